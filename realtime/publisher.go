package realtime

import (
	"log/slog"

	redisAdapter "aa/adapters/redis"
	"aa/adapters/sse"
)

// Publisher 把事件寫入共用的 Redis Stream，
// 由各節點的 SSE 管理器各自廣播給已訂閱的客戶端。
// 發布只做一次，失敗時記錄日誌，不會回滾已提交的資料庫變更。
type Publisher struct {
	producer redisAdapter.IProducer[sse.PublishRequest[Event]]
	logger   *slog.Logger
}

func NewPublisher(producer redisAdapter.IProducer[sse.PublishRequest[Event]], logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		producer: producer,
		logger:   logger.With(slog.String("caller", "Publisher")),
	}
}

// Publish 將事件發布到指定頻道，fire-and-forget
func (p *Publisher) Publish(channel string, event Event) {
	err := p.producer.Publish(sse.PublishRequest[Event]{
		Channel: channel,
		Message: event,
	})
	if err != nil {
		p.logger.Error("Fail to publish event",
			slog.String("channel", channel),
			slog.String("event", event.Name),
			slog.Any("error", err))
	}
}

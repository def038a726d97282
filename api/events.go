package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"aa/auction"
	"aa/realtime"
)

// GetItemEvents 商品事件的SSE串流,推送出價與可購買狀態的變更
func (impl *ServerImpl) GetItemEvents(c *gin.Context) {
	const op = "GetItemEvents"
	itemID, ok := itemIDParam(c)
	if !ok {
		return
	}
	if _, err := impl.store.ItemByID(c.Request.Context(), itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			abortWithError(c, auction.ErrNotFound)
			return
		}
		abortWithError(c, fmt.Errorf("[%s] Fail to find item, err=%w", op, err))
		return
	}
	impl.streamEvents(c, realtime.ItemChannel(itemID))
}

// GetChatEvents 商品聊天室的SSE串流
func (impl *ServerImpl) GetChatEvents(c *gin.Context) {
	const op = "GetChatEvents"
	itemID, ok := itemIDParam(c)
	if !ok {
		return
	}
	if _, err := impl.store.ItemByID(c.Request.Context(), itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			abortWithError(c, auction.ErrNotFound)
			return
		}
		abortWithError(c, fmt.Errorf("[%s] Fail to find item, err=%w", op, err))
		return
	}
	impl.streamEvents(c, realtime.ChatChannel(itemID))
}

// GetLiveEvents 直播頁的SSE串流,推送精選商品的變更
func (impl *ServerImpl) GetLiveEvents(c *gin.Context) {
	impl.streamEvents(c, realtime.LiveChannel)
}

// streamEvents 訂閱指定頻道並以SSE格式把事件串流給客戶端,
// 事件名稱就是領域事件的名稱,資料為JSON
func (impl *ServerImpl) streamEvents(c *gin.Context, channel string) {
	const op = "streamEvents"
	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Transfer-Encoding", "chunked")

	ch, err := impl.sseManager.Subscribe(channel)
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to subscribe to channel %s, err=%w", op, channel, err))
		return
	}
	for {
		select {
		case <-w.CloseNotify():
			impl.sseManager.Unsubscribe(channel, ch)
			return
		// 頻道被manager關閉時結束串流,不再從已關閉的頻道讀出零值事件
		case event, ok := <-ch:
			if !ok {
				return
			}
			c.SSEvent(event.Name, event.Data)
			w.Flush()
		// 30秒沒有事件就發送一個空行,確保瀏覽器和Cloudflare不會斷開連線
		case <-time.After(30 * time.Second):
			w.WriteString("\n\n")
			w.Flush()
		}
	}
}

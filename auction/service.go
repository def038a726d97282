package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"

	redisAdapter "aa/adapters/redis"
	"aa/models"
	"aa/realtime"
	"aa/store"
)

// ImageStorage 為商品圖片的儲存後端，由 S3 操作元件實作
type ImageStorage interface {
	Upload(ctx context.Context, path, contentType string, content []byte) (string, error)
	Delete(ctx context.Context, path string) error
	KeyFromURL(rawURL string) string
}

// EventPublisher 將領域事件送往即時通知通道
type EventPublisher interface {
	Publish(channel string, event realtime.Event)
}

// LockFactory 為指定商品建立跨節點互斥鎖，回傳 nil 代表不加鎖
type LockFactory func(itemID uint) redisAdapter.IAutoRenewMutex

type Config struct {
	DB        *gorm.DB
	Store     *store.Store
	Storage   ImageStorage
	Publisher EventPublisher
	LockFor   LockFactory
	Logger    *slog.Logger
}

// Service 實作拍賣的狀態轉移:出價、直購、精選切換與可購買狀態
// 所有金額都由伺服器端計算，不信任客戶端傳入的數字
type Service struct {
	db        *gorm.DB
	store     *store.Store
	storage   ImageStorage
	publisher EventPublisher
	lockFor   LockFactory
	logger    *slog.Logger
}

func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:        cfg.DB,
		store:     cfg.Store,
		storage:   cfg.Storage,
		publisher: cfg.Publisher,
		lockFor:   cfg.LockFor,
		logger:    logger,
	}
}

// PlaceBid 對指定商品出價，金額由伺服器計算:
// 第一筆出價為起標價，之後每筆為目前價格加上加價幅度。
// 出價紀錄與商品目前價格在同一個交易中更新，
// 並以商品為單位的互斥鎖避免多個節點同時出價時重複金額
func (s *Service) PlaceBid(ctx context.Context, itemID uint, userID string) (models.Bid, error) {
	const op = "Service.PlaceBid"
	if s.lockFor != nil {
		mutex := s.lockFor(itemID)
		lockCtx, err := mutex.Lock(ctx)
		if err != nil {
			return models.Bid{}, fmt.Errorf("[%s] Fail to acquire item lock, err=%w", op, err)
		}
		defer func() {
			if _, err := mutex.Unlock(); err != nil {
				s.logger.Warn("Fail to release item lock", "item", itemID, "error", err)
			}
		}()
		ctx = lockCtx
	}

	var bid models.Bid
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.Item
		if result := tx.First(&item, itemID); result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return result.Error
		}
		if item.AuctionType != models.AuctionRegular && item.AuctionType != models.AuctionLive {
			return ErrWrongAuctionType
		}
		if !item.BidEndTime.IsZero() && time.Now().After(item.BidEndTime) {
			return ErrAuctionEnded
		}

		amount := item.StartingPrice
		if item.CurrentBid != 0 {
			amount = item.CurrentBid + item.BidInterval
		}
		bid = models.Bid{Amount: amount, ItemID: item.ID, UserID: userID}
		if result := tx.Create(&bid); result.Error != nil {
			return result.Error
		}
		if result := tx.Model(&models.Item{}).Where("id = ?", item.ID).Update("current_bid", amount); result.Error != nil {
			return result.Error
		}
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return models.Bid{}, err
		}
		return models.Bid{}, fmt.Errorf("[%s] Fail to place bid, err=%w", op, err)
	}

	bidderName := ""
	if bidder, err := s.store.UserByID(ctx, userID); err == nil {
		bidderName = bidder.Name
	} else {
		s.logger.Warn("Fail to load bidder for notification", "user", userID, "error", err)
	}
	s.publish(realtime.ItemChannel(itemID), realtime.NewBidEvent(itemID, bid.ID, bid.Amount, bidderName, bid.CreatedAt))
	return bid, nil
}

// Purchase 直購商品。以條件更新確保同一個商品只會成交一次，
// 第二位買家會收到 ErrAlreadySold
func (s *Service) Purchase(ctx context.Context, itemID uint, userID string) (models.Item, error) {
	const op = "Service.Purchase"
	item, err := s.store.ItemByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Item{}, ErrNotFound
		}
		return models.Item{}, fmt.Errorf("[%s] Fail to load item, err=%w", op, err)
	}
	if item.AuctionType != models.AuctionDirect {
		return models.Item{}, ErrWrongAuctionType
	}

	now := time.Now()
	result := s.db.WithContext(ctx).Model(&models.Item{}).
		Where("id = ? AND status = ?", itemID, models.StatusActive).
		Updates(map[string]any{
			"status":  models.StatusSold,
			"sold_to": userID,
			"sold_at": now,
		})
	if result.Error != nil {
		return models.Item{}, fmt.Errorf("[%s] Fail to mark item as sold, err=%w", op, result.Error)
	}
	if result.RowsAffected == 0 {
		return models.Item{}, ErrAlreadySold
	}

	item.Status = models.StatusSold
	item.SoldTo = lo.ToPtr(userID)
	item.SoldAt = lo.ToPtr(now)
	return item, nil
}

// SetAvailability 切換商品是否開放購買，並通知正在觀看該商品的客戶端
func (s *Service) SetAvailability(ctx context.Context, itemID uint, isAvailable bool) error {
	const op = "Service.SetAvailability"
	result := s.db.WithContext(ctx).Model(&models.Item{}).
		Where("id = ?", itemID).
		Update("is_available", isAvailable)
	if result.Error != nil {
		return fmt.Errorf("[%s] Fail to update availability, err=%w", op, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	s.publish(realtime.ItemChannel(itemID), realtime.AvailabilityEvent(itemID, isAvailable))
	return nil
}

// ToggleFeatured 切換直播商品的精選狀態。設為精選時會先取消其他
// 所有精選商品，保證同一時間最多只有一個精選商品
func (s *Service) ToggleFeatured(ctx context.Context, itemID uint) (models.Item, error) {
	const op = "Service.ToggleFeatured"
	var item models.Item
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if result := tx.First(&item, itemID); result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return result.Error
		}
		if item.AuctionType != models.AuctionLive {
			return ErrWrongAuctionType
		}
		if item.IsFeatured {
			if result := tx.Model(&models.Item{}).Where("id = ?", itemID).Update("is_featured", false); result.Error != nil {
				return result.Error
			}
			item.IsFeatured = false
			return nil
		}
		if result := tx.Model(&models.Item{}).Where("is_featured = ?", true).Update("is_featured", false); result.Error != nil {
			return result.Error
		}
		if result := tx.Model(&models.Item{}).Where("id = ?", itemID).Update("is_featured", true); result.Error != nil {
			return result.Error
		}
		item.IsFeatured = true
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return models.Item{}, err
		}
		return models.Item{}, fmt.Errorf("[%s] Fail to toggle featured item, err=%w", op, err)
	}
	s.publish(realtime.LiveChannel, realtime.FeaturedEvent(itemPayload(item)))
	return item, nil
}

// SaveNextLive 更新下一場直播的時間，傳入 nil 代表清除
func (s *Service) SaveNextLive(ctx context.Context, nextLive *time.Time) error {
	const op = "Service.SaveNextLive"
	if err := s.store.ReplaceNextLive(ctx, nextLive); err != nil {
		return fmt.Errorf("[%s] Fail to save next live time, err=%w", op, err)
	}
	return nil
}

// PostChatMessage 寫入聊天訊息並通知聊天室中的所有客戶端
func (s *Service) PostChatMessage(ctx context.Context, itemID uint, userID, message string) (models.ChatMessage, error) {
	const op = "Service.PostChatMessage"
	record, err := s.store.AppendChatMessage(ctx, itemID, userID, message)
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("[%s] Fail to append chat message, err=%w", op, err)
	}
	userName := ""
	if record.User != nil {
		userName = record.User.Name
	}
	s.publish(realtime.ChatChannel(itemID), realtime.MessageEvent(itemID, userName, record.Message, record.CreatedAt))
	return record, nil
}

func (s *Service) publish(channel string, event realtime.Event) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(channel, event)
}

// itemPayload 將商品轉為通知用的資料，欄位名稱與前端一致
func itemPayload(item models.Item) map[string]any {
	payload := map[string]any{
		"id":            item.ID,
		"name":          item.Name,
		"description":   item.Description,
		"startingPrice": item.StartingPrice,
		"currentBid":    item.CurrentBid,
		"bidInterval":   item.BidInterval,
		"auctionType":   string(item.AuctionType),
		"bidEndTime":    item.BidEndTime.UTC().Format(time.RFC3339),
		"isFeatured":    item.IsFeatured,
		"isAvailable":   item.IsAvailable,
		"status":        string(item.Status),
		"imageUrl":      item.ImageURL,
	}
	return payload
}

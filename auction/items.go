package auction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"aa/models"
	"aa/realtime"
)

// 非定時拍賣的商品沒有使用者指定的結標時間，給一個遠到不會觸發的預設值
const openEndedAuctionYears = 10

// ItemInput 為建立或更新商品的表單內容
type ItemInput struct {
	Name          string
	Description   string
	StartingPrice int64
	BidInterval   int64
	BidEndTime    time.Time
	AuctionType   models.AuctionType
	IsFeatured    bool
	IsAvailable   bool
}

// ImageUpload 為隨表單上傳的商品圖片，內容已通過格式檢查
type ImageUpload struct {
	Content     []byte
	ContentType string
	Extension   string
}

func (input ItemInput) validate() error {
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	switch input.AuctionType {
	case models.AuctionRegular, models.AuctionLive, models.AuctionDirect, models.AuctionDraft:
	default:
		return fmt.Errorf("%w: unknown auction type %q", ErrValidation, input.AuctionType)
	}
	if input.StartingPrice <= 0 {
		return fmt.Errorf("%w: starting price must be positive", ErrValidation)
	}
	if input.BidInterval <= 0 && (input.AuctionType == models.AuctionRegular || input.AuctionType == models.AuctionLive) {
		return fmt.Errorf("%w: bid interval must be positive", ErrValidation)
	}
	if input.BidEndTime.IsZero() && input.AuctionType == models.AuctionRegular {
		return fmt.Errorf("%w: bid end time is required", ErrValidation)
	}
	return nil
}

// CreateItem 建立商品。圖片先上傳再寫入資料庫，上傳失敗就中止整個操作。
// 建立時設為精選的商品會取消其他商品的精選狀態
func (s *Service) CreateItem(ctx context.Context, ownerID string, input ItemInput, image *ImageUpload) (models.Item, error) {
	const op = "Service.CreateItem"
	if err := input.validate(); err != nil {
		return models.Item{}, err
	}
	endTime := input.BidEndTime
	if input.AuctionType != models.AuctionRegular {
		endTime = time.Now().AddDate(openEndedAuctionYears, 0, 0)
	}

	imageURL := ""
	if image != nil {
		url, err := s.uploadImage(ctx, ownerID, image)
		if err != nil {
			return models.Item{}, fmt.Errorf("[%s] %w, err=%s", op, ErrUpload, err)
		}
		imageURL = url
	}

	item := models.Item{
		UserID:        ownerID,
		Name:          input.Name,
		Description:   input.Description,
		StartingPrice: input.StartingPrice,
		BidInterval:   input.BidInterval,
		BidEndTime:    endTime,
		AuctionType:   input.AuctionType,
		IsFeatured:    input.IsFeatured && input.AuctionType == models.AuctionLive,
		IsAvailable:   input.IsAvailable,
		Status:        models.StatusActive,
		ImageURL:      imageURL,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if item.IsFeatured {
			if result := tx.Model(&models.Item{}).Where("is_featured = ?", true).Update("is_featured", false); result.Error != nil {
				return result.Error
			}
		}
		return tx.Create(&item).Error
	})
	if err != nil {
		return models.Item{}, fmt.Errorf("[%s] Fail to create item, err=%w", op, err)
	}
	if item.IsFeatured {
		s.publish(realtime.LiveChannel, realtime.FeaturedEvent(itemPayload(item)))
	}
	return item, nil
}

// UpdateItem 更新商品內容。換圖時舊圖會盡力刪除，刪不掉只記錄不報錯
func (s *Service) UpdateItem(ctx context.Context, itemID uint, input ItemInput, image *ImageUpload) (models.Item, error) {
	const op = "Service.UpdateItem"
	if err := input.validate(); err != nil {
		return models.Item{}, err
	}
	item, err := s.store.ItemByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Item{}, ErrNotFound
		}
		return models.Item{}, fmt.Errorf("[%s] Fail to load item, err=%w", op, err)
	}

	previousImageURL := item.ImageURL
	if image != nil {
		url, err := s.uploadImage(ctx, item.UserID, image)
		if err != nil {
			return models.Item{}, fmt.Errorf("[%s] %w, err=%s", op, ErrUpload, err)
		}
		item.ImageURL = url
	}

	endTime := input.BidEndTime
	if input.AuctionType != models.AuctionRegular {
		endTime = item.BidEndTime
		if item.AuctionType == models.AuctionRegular || endTime.IsZero() {
			endTime = time.Now().AddDate(openEndedAuctionYears, 0, 0)
		}
	}

	item.Name = input.Name
	item.Description = input.Description
	item.StartingPrice = input.StartingPrice
	item.BidInterval = input.BidInterval
	item.BidEndTime = endTime
	item.AuctionType = input.AuctionType
	item.IsAvailable = input.IsAvailable
	wantFeatured := input.IsFeatured && input.AuctionType == models.AuctionLive
	becameFeatured := wantFeatured && !item.IsFeatured
	item.IsFeatured = wantFeatured

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if becameFeatured {
			if result := tx.Model(&models.Item{}).Where("is_featured = ? AND id <> ?", true, itemID).Update("is_featured", false); result.Error != nil {
				return result.Error
			}
		}
		return tx.Save(&item).Error
	})
	if err != nil {
		return models.Item{}, fmt.Errorf("[%s] Fail to update item, err=%w", op, err)
	}

	if image != nil && previousImageURL != "" && previousImageURL != item.ImageURL {
		s.removeImage(ctx, previousImageURL)
	}
	if becameFeatured {
		s.publish(realtime.LiveChannel, realtime.FeaturedEvent(itemPayload(item)))
	}
	return item, nil
}

// DeleteItem 刪除商品與其出價、聊天紀錄。
// 圖片刪除是盡力而為，失敗不影響刪除結果
func (s *Service) DeleteItem(ctx context.Context, itemID uint) error {
	const op = "Service.DeleteItem"
	item, err := s.store.ItemByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("[%s] Fail to load item, err=%w", op, err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if result := tx.Where("item_id = ?", itemID).Delete(&models.Bid{}); result.Error != nil {
			return result.Error
		}
		if result := tx.Where("item_id = ?", itemID).Delete(&models.ChatMessage{}); result.Error != nil {
			return result.Error
		}
		return tx.Delete(&models.Item{}, itemID).Error
	})
	if err != nil {
		return fmt.Errorf("[%s] Fail to delete item, err=%w", op, err)
	}

	if item.ImageURL != "" {
		s.removeImage(ctx, item.ImageURL)
	}
	return nil
}

func (s *Service) uploadImage(ctx context.Context, ownerID string, image *ImageUpload) (string, error) {
	if s.storage == nil {
		return "", errors.New("image storage is not configured")
	}
	key := fmt.Sprintf("%s/%s.%s", ownerID, uuid.NewString(), image.Extension)
	return s.storage.Upload(ctx, key, image.ContentType, image.Content)
}

func (s *Service) removeImage(ctx context.Context, rawURL string) {
	if s.storage == nil {
		return
	}
	key := s.storage.KeyFromURL(rawURL)
	if key == "" {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Warn("Fail to delete item image", "key", key, "error", err)
	}
}

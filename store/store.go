// Package store 提供對關聯式資料庫的型別化查詢與變更函數。
// 所有讀取都直接打到資料庫，沒有快取層。
package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"aa/models"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB 回傳底層的 gorm 連線，給需要自行組交易的呼叫者使用
func (s *Store) DB() *gorm.DB {
	return s.db
}

// ItemByID 取得指定商品，找不到時回傳 gorm.ErrRecordNotFound
func (s *Store) ItemByID(ctx context.Context, id uint) (models.Item, error) {
	const op = "Store.ItemByID"
	var item models.Item
	if result := s.db.WithContext(ctx).First(&item, id); result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return models.Item{}, result.Error
		}
		return models.Item{}, fmt.Errorf("[%s] Fail to find item, err=%w", op, result.Error)
	}
	return item, nil
}

// BidsForItem 取得商品的出價紀錄，由新到舊，並帶出出價者名稱
func (s *Store) BidsForItem(ctx context.Context, itemID uint) ([]models.Bid, error) {
	const op = "Store.BidsForItem"
	var bids []models.Bid
	result := s.db.WithContext(ctx).
		Preload("User").
		Where("item_id = ?", itemID).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: "created_at"}, Desc: true},
			{Column: clause.Column{Name: "id"}, Desc: true},
		}}).
		Find(&bids)
	if result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to list bids, err=%w", op, result.Error)
	}
	return bids, nil
}

// LiveItems 取得所有直播拍賣商品，精選的排在最前面
func (s *Store) LiveItems(ctx context.Context) ([]models.Item, error) {
	const op = "Store.LiveItems"
	var items []models.Item
	result := s.db.WithContext(ctx).
		Where("auction_type = ?", models.AuctionLive).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: "is_featured"}, Desc: true},
			{Column: clause.Column{Name: "id"}, Desc: false},
		}}).
		Find(&items)
	if result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to list live items, err=%w", op, result.Error)
	}
	return items, nil
}

// FeaturedLiveItem 取得目前的精選直播商品，沒有時回傳 nil
func (s *Store) FeaturedLiveItem(ctx context.Context) (*models.Item, error) {
	const op = "Store.FeaturedLiveItem"
	var item models.Item
	result := s.db.WithContext(ctx).
		Where("auction_type = ? AND is_featured = ?", models.AuctionLive, true).
		First(&item)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("[%s] Fail to find featured item, err=%w", op, result.Error)
	}
	return &item, nil
}

// NextLive 取得下一場直播拍賣的時間，單例資料表沒有資料時回傳 nil
func (s *Store) NextLive(ctx context.Context) (*time.Time, error) {
	const op = "Store.NextLive"
	var setting models.Setting
	result := s.db.WithContext(ctx).First(&setting)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("[%s] Fail to load setting, err=%w", op, result.Error)
	}
	return setting.NextLive, nil
}

// ReplaceNextLive 以取代的方式儲存下一場直播時間:
// 先清空整張表，nextLive 不為 nil 時再插入一列。
func (s *Store) ReplaceNextLive(ctx context.Context, nextLive *time.Time) error {
	const op = "Store.ReplaceNextLive"
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if result := tx.Where("1 = 1").Delete(&models.Setting{}); result.Error != nil {
			return result.Error
		}
		if nextLive == nil {
			return nil
		}
		return tx.Create(&models.Setting{NextLive: nextLive}).Error
	})
	if err != nil {
		return fmt.Errorf("[%s] Fail to replace setting, err=%w", op, err)
	}
	return nil
}

// CountRecentUploads 計算使用者在 since 之後的圖片上傳次數
func (s *Store) CountRecentUploads(ctx context.Context, userID string, since time.Time) (int64, error) {
	const op = "Store.CountRecentUploads"
	var count int64
	result := s.db.WithContext(ctx).
		Model(&models.Image{}).
		Where("uploader_id = ? AND created_at > ?", userID, since).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("[%s] Fail to count uploads, err=%w", op, result.Error)
	}
	return count, nil
}

// RecordUpload 紀錄一次圖片上傳
func (s *Store) RecordUpload(ctx context.Context, userID, url string) error {
	const op = "Store.RecordUpload"
	image := models.Image{UploaderID: userID, URL: url}
	if result := s.db.WithContext(ctx).Create(&image); result.Error != nil {
		return fmt.Errorf("[%s] Fail to record upload, err=%w", op, result.Error)
	}
	return nil
}

package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"aa/models"
)

// UserByID 取得指定使用者，找不到時回傳 gorm.ErrRecordNotFound
func (s *Store) UserByID(ctx context.Context, id string) (models.User, error) {
	const op = "Store.UserByID"
	var user models.User
	if result := s.db.WithContext(ctx).First(&user, "id = ?", id); result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return models.User{}, result.Error
		}
		return models.User{}, fmt.Errorf("[%s] Fail to find user, err=%w", op, result.Error)
	}
	return user, nil
}

// UserByEmail 以 email 取得使用者
func (s *Store) UserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "Store.UserByEmail"
	var user models.User
	if result := s.db.WithContext(ctx).First(&user, "email = ?", email); result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return models.User{}, result.Error
		}
		return models.User{}, fmt.Errorf("[%s] Fail to find user, err=%w", op, result.Error)
	}
	return user, nil
}

// ListUsers 取得所有使用者，給管理後台的使用者列表用
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "Store.ListUsers"
	var users []models.User
	result := s.db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}}).
		Find(&users)
	if result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to list users, err=%w", op, result.Error)
	}
	return users, nil
}

// ChatMessages 取得商品的聊天紀錄，由舊到新，並帶出發言者
func (s *Store) ChatMessages(ctx context.Context, itemID uint, limit int) ([]models.ChatMessage, error) {
	const op = "Store.ChatMessages"
	query := s.db.WithContext(ctx).
		Preload("User").
		Where("item_id = ?", itemID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}})
	if limit > 0 {
		query = query.Limit(limit)
	}
	var messages []models.ChatMessage
	if result := query.Find(&messages); result.Error != nil {
		return nil, fmt.Errorf("[%s] Fail to list chat messages, err=%w", op, result.Error)
	}
	return messages, nil
}

// AppendChatMessage 追加一筆聊天訊息並回傳帶有發言者的完整紀錄
func (s *Store) AppendChatMessage(ctx context.Context, itemID uint, userID, message string) (models.ChatMessage, error) {
	const op = "Store.AppendChatMessage"
	record := models.ChatMessage{
		ItemID:  itemID,
		UserID:  userID,
		Message: message,
	}
	if result := s.db.WithContext(ctx).Create(&record); result.Error != nil {
		return models.ChatMessage{}, fmt.Errorf("[%s] Fail to append chat message, err=%w", op, result.Error)
	}
	if result := s.db.WithContext(ctx).Preload("User").First(&record, record.ID); result.Error != nil {
		return models.ChatMessage{}, fmt.Errorf("[%s] Fail to reload chat message, err=%w", op, result.Error)
	}
	return record, nil
}

package auction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"aa/models"
)

// SetUserBlocked 封鎖或解除封鎖使用者。封鎖會直接覆寫原本的角色，
// 管理員被封鎖後也會失去權限;解除封鎖一律回到一般使用者
func (s *Service) SetUserBlocked(ctx context.Context, userID string, blocked bool) error {
	const op = "Service.SetUserBlocked"
	role := models.RoleUser
	if blocked {
		role = models.RoleBlocked
	}
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("role", role)
	if result.Error != nil {
		return fmt.Errorf("[%s] Fail to update user role, err=%w", op, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleUserRole 在管理員與一般使用者之間切換。
// 非管理員(包含被封鎖者)會被提升為管理員
func (s *Service) ToggleUserRole(ctx context.Context, userID string) (models.Role, error) {
	const op = "Service.ToggleUserRole"
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("[%s] Fail to load user, err=%w", op, err)
	}
	role := models.RoleAdmin
	if user.Role == models.RoleAdmin {
		role = models.RoleUser
	}
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("role", role)
	if result.Error != nil {
		return "", fmt.Errorf("[%s] Fail to update user role, err=%w", op, result.Error)
	}
	return role, nil
}

// DeleteUser 刪除使用者與其登入帳號、出價和聊天紀錄，
// 已購買商品的買家欄位改為空值以保留成交紀錄
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	const op = "Service.DeleteUser"
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if result := tx.Where("user_id = ?", userID).Delete(&models.Account{}); result.Error != nil {
			return result.Error
		}
		if result := tx.Where("user_id = ?", userID).Delete(&models.Bid{}); result.Error != nil {
			return result.Error
		}
		if result := tx.Where("user_id = ?", userID).Delete(&models.ChatMessage{}); result.Error != nil {
			return result.Error
		}
		if result := tx.Model(&models.Item{}).Where("sold_to = ?", userID).Update("sold_to", nil); result.Error != nil {
			return result.Error
		}
		result := tx.Delete(&models.User{}, "id = ?", userID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return err
		}
		return fmt.Errorf("[%s] Fail to delete user, err=%w", op, err)
	}
	return nil
}

// UpdatePhone 補齊使用者的電話號碼，空白字串視為無效
func (s *Service) UpdatePhone(ctx context.Context, userID, phone string) error {
	const op = "Service.UpdatePhone"
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return fmt.Errorf("%w: phone number is required", ErrValidation)
	}
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("phone", phone)
	if result.Error != nil {
		return fmt.Errorf("[%s] Fail to update phone number, err=%w", op, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

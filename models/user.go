package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 使用者角色，三種狀態:一般使用者、管理員、被封鎖的使用者
type Role string

const (
	RoleUser    Role = "user"
	RoleAdmin   Role = "admin"
	RoleBlocked Role = "blocked"
)

// User 代表拍賣系統中的使用者
// 使用者在第一次透過 SSO 登入時建立，角色由管理員操作或自助補齊資料時變更
type User struct {
	ID        string  `gorm:"type:uuid;primaryKey;<-:create"`
	Name      string  `gorm:"type:varchar(255)"`
	Email     *string `gorm:"type:varchar(255);uniqueIndex"`
	Phone     string  `gorm:"type:varchar(32)"`
	Image     string  `gorm:"type:text"`
	Role      Role    `gorm:"type:varchar(16);not null;default:user"`
	CreatedAt time.Time
	UpdatedAt time.Time

	// 外鍵關聯
	Accounts []Account `gorm:"constraint:OnDelete:CASCADE"`
	Bids     []Bid     `gorm:"constraint:OnDelete:CASCADE"`
}

func (User) TableName() string { return "aa_user" }

// 在建立時產生使用者 ID，避免依賴資料庫的 uuid extension
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

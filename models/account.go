package models

import (
	"time"
)

// Account 代表使用者在某個 SSO 提供者的身份
// 用 Provider 加上 ProviderAccountID 識別使用者在提供者端的帳號
type Account struct {
	ID                uint   `gorm:"primaryKey"`
	UserID            string `gorm:"type:uuid;uniqueIndex:idx_account_provider_user;not null;<-:create"`
	Provider          string `gorm:"type:varchar(64);uniqueIndex:idx_account_provider_user;uniqueIndex:idx_account_provider_identity;not null;<-:create"`
	ProviderAccountID string `gorm:"type:text;uniqueIndex:idx_account_provider_identity;not null;<-:create"`
	CreatedAt         time.Time

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (Account) TableName() string { return "aa_account" }

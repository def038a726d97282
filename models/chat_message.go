package models

import (
	"time"
)

// ChatMessage 代表直播拍賣的聊天訊息，只會新增不會修改
type ChatMessage struct {
	ID        uint   `gorm:"primaryKey"`
	ItemID    uint   `gorm:"not null;index;<-:create"`
	UserID    string `gorm:"type:uuid;not null;<-:create"`
	Message   string `gorm:"type:text;not null;<-:create"`
	CreatedAt time.Time

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Item *Item `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
}

func (ChatMessage) TableName() string { return "aa_chat_messages" }

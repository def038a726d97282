package models

import (
	"time"
)

// Bid 代表拍賣商品的出價紀錄
// 出價金額由伺服器計算，寫入後不會再被修改或刪除
type Bid struct {
	ID        uint   `gorm:"primaryKey"`
	Amount    int64  `gorm:"not null;<-:create"`
	ItemID    uint   `gorm:"not null;<-:create"`
	UserID    string `gorm:"type:uuid;not null;<-:create"`
	CreatedAt time.Time

	// 外鍵關聯
	User *User `gorm:"foreignKey:UserID"`
	Item *Item `gorm:"foreignKey:ItemID"`
}

func (Bid) TableName() string { return "aa_bids" }

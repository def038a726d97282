package models

import (
	"time"
)

// 拍賣方式，四種:定時拍賣、直播拍賣、直購、草稿
type AuctionType string

const (
	AuctionRegular AuctionType = "regular"
	AuctionLive    AuctionType = "live"
	AuctionDirect  AuctionType = "direct"
	AuctionDraft   AuctionType = "draft"
)

// 商品狀態，active 代表可以出價或購買，sold 代表已售出
type ItemStatus string

const (
	StatusActive ItemStatus = "active"
	StatusSold   ItemStatus = "sold"
)

// Item 代表拍賣系統中的商品
// CurrentBid 為 0 代表還沒有人出價；IsFeatured 只對 live 商品有意義，
// 且同一時間最多只有一個 live 商品被設為精選
type Item struct {
	ID            uint        `gorm:"primaryKey"`
	UserID        string      `gorm:"type:uuid;not null;<-:create"`
	Name          string      `gorm:"type:varchar(255);not null"`
	Description   string      `gorm:"type:text"`
	StartingPrice int64       `gorm:"not null"`
	CurrentBid    int64       `gorm:"not null;default:0"`
	AuctionType   AuctionType `gorm:"type:varchar(16);not null"`
	BidInterval   int64       `gorm:"not null"`
	BidEndTime    time.Time   `gorm:"type:timestamp with time zone"`
	IsFeatured    bool        `gorm:"not null;default:false"`
	IsAvailable   bool        `gorm:"not null;default:true"`
	Status        ItemStatus  `gorm:"type:varchar(16);not null;default:active"`
	SoldTo        *string     `gorm:"type:uuid"`
	SoldAt        *time.Time
	ImageURL      string `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// 外鍵關聯
	User       *User `gorm:"foreignKey:UserID"`
	Buyer      *User `gorm:"foreignKey:SoldTo;constraint:OnDelete:SET NULL"`
	BidRecords []Bid `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
}

func (Item) TableName() string { return "aa_items" }

package models

import (
	"time"
)

// Image 代表商品圖片的上傳紀錄，用於計算每小時的上傳次數限制
type Image struct {
	ID         uint   `gorm:"primaryKey"`
	UploaderID string `gorm:"type:uuid;not null;<-:create"`
	URL        string `gorm:"type:text;not null;<-:create"`
	CreatedAt  time.Time

	Uploader *User `gorm:"foreignKey:UploaderID;constraint:OnDelete:CASCADE"`
}

func (Image) TableName() string { return "aa_images" }

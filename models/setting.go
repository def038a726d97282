package models

import (
	"time"
)

// Setting 紀錄下一場直播拍賣的時間
// 整張表被當成單例使用:每次儲存會先清空再視情況重新插入一列
type Setting struct {
	ID       uint       `gorm:"primaryKey"`
	NextLive *time.Time `gorm:"type:timestamp with time zone"`
}

func (Setting) TableName() string { return "aa_nextlive" }

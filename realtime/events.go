// Package realtime 定義即時通知的頻道與事件，
// 事件在資料庫寫入成功後才發布，送達與否不影響已提交的變更。
package realtime

import (
	"fmt"
	"time"
)

// 事件名稱，與前端訂閱的名稱一致
const (
	EventNewBid              = "new-bid"
	EventAvailabilityChanged = "availability-changed"
	EventNewMessage          = "new-message"
	EventFeaturedChanged     = "featured-changed"
)

// LiveChannel 是精選直播商品變更的廣播頻道
const LiveChannel = "live-auction"

// ItemChannel 是單一商品的出價與可購買狀態頻道
func ItemChannel(itemID uint) string {
	return fmt.Sprintf("item-%d", itemID)
}

// ChatChannel 是單一商品的聊天頻道
func ChatChannel(itemID uint) string {
	return fmt.Sprintf("chat-%d", itemID)
}

// Event 是發布到頻道上的一筆事件，Data 是事件專屬的酬載
type Event struct {
	Name string         `json:"name" msgpack:"name"`
	Data map[string]any `json:"data" msgpack:"data"`
}

// NewBidEvent 帶出新的出價紀錄與商品最新價格
func NewBidEvent(itemID uint, bidID uint, amount int64, bidderName string, createdAt time.Time) Event {
	return Event{
		Name: EventNewBid,
		Data: map[string]any{
			"itemId":     itemID,
			"bidId":      bidID,
			"amount":     amount,
			"userName":   bidderName,
			"currentBid": amount,
			"createdAt":  createdAt.UTC().Format(time.RFC3339),
		},
	}
}

// AvailabilityEvent 帶出商品可購買狀態的變更
func AvailabilityEvent(itemID uint, isAvailable bool) Event {
	return Event{
		Name: EventAvailabilityChanged,
		Data: map[string]any{
			"itemId":      itemID,
			"isAvailable": isAvailable,
		},
	}
}

// MessageEvent 帶出一則聊天訊息
func MessageEvent(itemID uint, userName, message string, createdAt time.Time) Event {
	return Event{
		Name: EventNewMessage,
		Data: map[string]any{
			"itemId":    itemID,
			"user":      userName,
			"message":   message,
			"createdAt": createdAt.UTC().Format(time.RFC3339),
		},
	}
}

// FeaturedEvent 帶出精選狀態變更後的完整商品
func FeaturedEvent(item map[string]any) Event {
	return Event{
		Name: EventFeaturedChanged,
		Data: item,
	}
}

package sse_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"aa/adapters/sse"
)

func TestChannel(t *testing.T) {
	ch := sse.NewChannel[Message]()

	// 測試訂閱
	sub := ch.Subscribe()
	assert.NotNil(t, sub)

	// 測試廣播訊息
	msg := Message{Data: "test message"}
	ch.Broadcast(msg)

	select {
	case received := <-sub:
		assert.Equal(t, msg, received)
	case <-time.After(time.Second):
		t.Fatal("did not receive message in time")
	}

	// 測試取消訂閱
	ch.Unsubscribe(sub)
	_, ok := <-sub
	assert.False(t, ok, "channel should be closed")

	// 測試 IsIdle
	assert.True(t, ch.IsIdle(), "channel should be idle")
}

func TestChannelDropsWhenSubscriberIsSlow(t *testing.T) {
	ch := sse.NewChannel[Message]()
	sub := ch.Subscribe()

	// 塞爆訂閱者的緩衝，多出來的訊息應該被丟棄而不是卡住廣播
	for i := 0; i < 64; i++ {
		ch.Broadcast(Message{Data: "overflow"})
	}

	received := 0
	for {
		select {
		case <-sub:
			received++
		default:
			assert.Less(t, received, 64, "slow subscriber should not receive every message")
			ch.Unsubscribe(sub)
			return
		}
	}
}

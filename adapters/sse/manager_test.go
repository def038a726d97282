package sse_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"aa/adapters/sse"
)

func TestConnectionManager(t *testing.T) {
	defer goleak.VerifyNone(t)

	upstream := newFakeSubscriber()
	cm, err := sse.NewConnectionManager[Message](sse.WithSubscriber[Message](upstream))
	assert.NoError(t, err)
	cm.Start()
	defer cm.Done()

	// 測試訂閱
	ch, err := cm.Subscribe("test_channel")
	assert.NoError(t, err)
	assert.NotNil(t, ch)

	// 從上游餵一則訊息，應該被廣播到對應頻道
	msg := Message{Data: "test message"}
	upstream.ch <- sse.PublishRequest[Message]{Channel: "test_channel", Message: msg}

	select {
	case received := <-ch:
		assert.Equal(t, msg, received)
	case <-time.After(time.Second):
		t.Fatal("did not receive message in time")
	}

	// 沒有訂閱者的頻道訊息直接被忽略
	upstream.ch <- sse.PublishRequest[Message]{Channel: "nobody", Message: msg}

	// 測試取消訂閱
	cm.Unsubscribe("test_channel", ch)
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed")
}

func TestConnectionManagerRequiresSubscriber(t *testing.T) {
	_, err := sse.NewConnectionManager[Message]()
	assert.Error(t, err)
}

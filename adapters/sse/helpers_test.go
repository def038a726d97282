package sse_test

import (
	"io"
	"log"

	"aa/adapters/sse"
)

func init() {
	// 將日誌輸出重定向到io.Discard
	log.SetOutput(io.Discard)
}

// Message 表示一個 SSE 訊息，包含資料字段。
type Message struct {
	Data string `json:"data"`
}

// fakeSubscriber 提供一個可以手動餵訊息的上游來源
type fakeSubscriber struct {
	ch chan sse.PublishRequest[Message]
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{ch: make(chan sse.PublishRequest[Message], 8)}
}

func (f *fakeSubscriber) Subscribe() <-chan sse.PublishRequest[Message] {
	return f.ch
}

package api

import (
	"bufio"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aa/adapters/sse"
	"aa/realtime"
)

// fakeEventSource 模擬redis stream消費者作為manager的上游
type fakeEventSource struct {
	ch chan sse.PublishRequest[realtime.Event]
}

func (f *fakeEventSource) Subscribe() <-chan sse.PublishRequest[realtime.Event] {
	return f.ch
}

func TestStreamEventsEndsWhenManagerStops(t *testing.T) {
	impl, _, router := newTestServer(t)
	source := &fakeEventSource{ch: make(chan sse.PublishRequest[realtime.Event], 16)}
	manager, err := sse.NewConnectionManager[realtime.Event](sse.WithSubscriber[realtime.Event](source))
	require.NoError(t, err)
	manager.Start()
	impl.sseManager = manager
	router.GET("/api/events/live", impl.GetLiveEvents)

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	// 反覆送事件直到串流開始吐資料,避免訂閱還沒完成時漏接
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				source.ch <- sse.PublishRequest[realtime.Event]{
					Channel: realtime.LiveChannel,
					Message: realtime.FeaturedEvent(map[string]any{"id": 1}),
				}
			}
		}
	}()

	resp, err := http.Get(ts.URL + "/api/events/live")
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, realtime.EventFeaturedChanged)
	close(stop)

	// manager收掉訂閱頻道後,串流必須結束而不是一直吐出零值事件
	manager.Done()
	done := make(chan struct{})
	go func() {
		io.Copy(io.Discard, reader)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after manager shutdown")
	}
}

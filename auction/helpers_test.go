package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"aa/models"
	"aa/realtime"
	"aa/store"
)

type publishedEvent struct {
	Channel string
	Event   realtime.Event
}

// fakePublisher 記錄所有送出的事件供測試檢查
type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) Publish(channel string, event realtime.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Channel: channel, Event: event})
}

// fakeStorage 以記憶體模擬圖片儲存後端
type fakeStorage struct {
	uploads    map[string][]byte
	deleted    []string
	failUpload bool
}

func (f *fakeStorage) Upload(_ context.Context, path, _ string, content []byte) (string, error) {
	if f.failUpload {
		return "", errors.New("storage unavailable")
	}
	if f.uploads == nil {
		f.uploads = map[string][]byte{}
	}
	f.uploads[path] = content
	return "https://img.example.com/" + path, nil
}

func (f *fakeStorage) Delete(_ context.Context, path string) error {
	f.deleted = append(f.deleted, path)
	return nil
}

func (f *fakeStorage) KeyFromURL(rawURL string) string {
	return strings.TrimPrefix(rawURL, "https://img.example.com/")
}

func setupTest(t *testing.T) (*Service, *gorm.DB, *fakePublisher, *fakeStorage) {
	t.Helper()
	// 每個測試使用獨立的 in-memory 資料庫，cache=shared 讓同一個
	// 連線池中的多條連線看到同一份資料
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	require.NoError(t, models.AutoMigrate(db))

	publisher := &fakePublisher{}
	storage := &fakeStorage{}
	service := NewService(Config{
		DB:        db,
		Store:     store.New(db),
		Storage:   storage,
		Publisher: publisher,
		Logger:    slog.Default(),
	})
	return service, db, publisher, storage
}

func createUser(t *testing.T, db *gorm.DB, name string, role models.Role) models.User {
	t.Helper()
	email := name + "@example.com"
	user := models.User{Name: name, Email: &email, Role: role}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// createItem 建立測試商品，未指定的欄位填入合理預設值
func createItem(t *testing.T, db *gorm.DB, item models.Item) models.Item {
	t.Helper()
	if item.Name == "" {
		item.Name = "vintage camera"
	}
	if item.UserID == "" {
		item.UserID = createUser(t, db, "owner-"+uuid.NewString()[:8], models.RoleAdmin).ID
	}
	if item.AuctionType == "" {
		item.AuctionType = models.AuctionRegular
	}
	if item.StartingPrice == 0 {
		item.StartingPrice = 1000
	}
	if item.BidInterval == 0 {
		item.BidInterval = 100
	}
	if item.BidEndTime.IsZero() {
		item.BidEndTime = time.Now().Add(time.Hour)
	}
	if item.Status == "" {
		item.Status = models.StatusActive
	}
	require.NoError(t, db.Create(&item).Error)
	return item
}

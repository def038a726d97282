package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"aa/models"
)

func setupTest(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()
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
	return New(db), db
}

func seedUser(t *testing.T, db *gorm.DB, name string) models.User {
	t.Helper()
	email := name + "@example.com"
	user := models.User{Name: name, Email: &email}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedItem(t *testing.T, db *gorm.DB, owner models.User, name string, auctionType models.AuctionType) models.Item {
	t.Helper()
	item := models.Item{
		UserID:        owner.ID,
		Name:          name,
		StartingPrice: 1000,
		BidInterval:   100,
		BidEndTime:    time.Now().Add(time.Hour),
		AuctionType:   auctionType,
		IsAvailable:   true,
		Status:        models.StatusActive,
	}
	require.NoError(t, db.Create(&item).Error)
	return item
}

func TestItemByID(t *testing.T) {
	store, db := setupTest(t)
	ctx := context.Background()
	owner := seedUser(t, db, "owner")
	item := seedItem(t, db, owner, "camera", models.AuctionRegular)

	found, err := store.ItemByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "camera", found.Name)

	_, err = store.ItemByID(ctx, 9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestBidsForItemOrder(t *testing.T) {
	store, db := setupTest(t)
	ctx := context.Background()
	owner := seedUser(t, db, "owner")
	bidder := seedUser(t, db, "alice")
	item := seedItem(t, db, owner, "camera", models.AuctionRegular)

	for _, amount := range []int64{1000, 1100, 1200} {
		require.NoError(t, db.Create(&models.Bid{Amount: amount, ItemID: item.ID, UserID: bidder.ID}).Error)
	}

	bids, err := store.BidsForItem(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, bids, 3)
	// 由新到舊
	assert.Equal(t, int64(1200), bids[0].Amount)
	assert.Equal(t, int64(1000), bids[2].Amount)
	require.NotNil(t, bids[0].User)
	assert.Equal(t, "alice", bids[0].User.Name)
}

func TestLiveItemsAndFeatured(t *testing.T) {
	store, db := setupTest(t)
	ctx := context.Background()
	owner := seedUser(t, db, "owner")
	seedItem(t, db, owner, "regular", models.AuctionRegular)
	plain := seedItem(t, db, owner, "plain live", models.AuctionLive)
	featured := seedItem(t, db, owner, "featured live", models.AuctionLive)
	require.NoError(t, db.Model(&models.Item{}).Where("id = ?", featured.ID).Update("is_featured", true).Error)

	items, err := store.LiveItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	// 精選商品排最前面
	assert.Equal(t, featured.ID, items[0].ID)
	assert.Equal(t, plain.ID, items[1].ID)

	current, err := store.FeaturedLiveItem(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, featured.ID, current.ID)

	// 沒有精選商品時回傳nil而不是錯誤
	require.NoError(t, db.Model(&models.Item{}).Where("id = ?", featured.ID).Update("is_featured", false).Error)
	current, err = store.FeaturedLiveItem(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestNextLiveLifecycle(t *testing.T) {
	store, _ := setupTest(t)
	ctx := context.Background()

	// 一開始沒有設定
	nextLive, err := store.NextLive(ctx)
	require.NoError(t, err)
	assert.Nil(t, nextLive)

	first := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, store.ReplaceNextLive(ctx, &first))

	// 再設定一次會取代而不是累積
	second := first.Add(48 * time.Hour)
	require.NoError(t, store.ReplaceNextLive(ctx, &second))

	nextLive, err = store.NextLive(ctx)
	require.NoError(t, err)
	require.NotNil(t, nextLive)
	assert.WithinDuration(t, second, *nextLive, time.Second)

	require.NoError(t, store.ReplaceNextLive(ctx, nil))
	nextLive, err = store.NextLive(ctx)
	require.NoError(t, err)
	assert.Nil(t, nextLive)
}

func TestUploadTracking(t *testing.T) {
	store, db := setupTest(t)
	ctx := context.Background()
	uploader := seedUser(t, db, "uploader")

	require.NoError(t, store.RecordUpload(ctx, uploader.ID, "https://img.example.com/a.png"))
	require.NoError(t, store.RecordUpload(ctx, uploader.ID, "https://img.example.com/b.png"))

	count, err := store.CountRecentUploads(ctx, uploader.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// 區間外的紀錄不計算
	count, err = store.CountRecentUploads(ctx, uploader.ID, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestChatMessages(t *testing.T) {
	store, db := setupTest(t)
	ctx := context.Background()
	owner := seedUser(t, db, "owner")
	speaker := seedUser(t, db, "bob")
	item := seedItem(t, db, owner, "live item", models.AuctionLive)

	first, err := store.AppendChatMessage(ctx, item.ID, speaker.ID, "first")
	require.NoError(t, err)
	require.NotNil(t, first.User)
	assert.Equal(t, "bob", first.User.Name)

	_, err = store.AppendChatMessage(ctx, item.ID, speaker.ID, "second")
	require.NoError(t, err)

	// 由舊到新
	messages, err := store.ChatMessages(ctx, item.ID, 10)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Message)
	assert.Equal(t, "second", messages[1].Message)

	// limit生效
	messages, err = store.ChatMessages(ctx, item.ID, 1)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

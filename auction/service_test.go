package auction

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisAdapter "aa/adapters/redis"
	"aa/models"
	"aa/realtime"
)

func TestPlaceBid(t *testing.T) {
	service, db, publisher, _ := setupTest(t)
	ctx := context.Background()
	item := createItem(t, db, models.Item{StartingPrice: 1000, BidInterval: 100})
	bidder := createUser(t, db, "alice", models.RoleUser)

	// 第一筆出價為起標價
	bid, err := service.PlaceBid(ctx, item.ID, bidder.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), bid.Amount)

	// 之後每筆為目前價格加上加價幅度
	bid, err = service.PlaceBid(ctx, item.ID, bidder.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1100), bid.Amount)

	var updated models.Item
	require.NoError(t, db.First(&updated, item.ID).Error)
	assert.Equal(t, int64(1100), updated.CurrentBid)

	require.Len(t, publisher.events, 2)
	assert.Equal(t, realtime.ItemChannel(item.ID), publisher.events[0].Channel)
	assert.Equal(t, realtime.EventNewBid, publisher.events[0].Event.Name)
	assert.Equal(t, "alice", publisher.events[1].Event.Data["userName"])
	assert.Equal(t, int64(1100), publisher.events[1].Event.Data["amount"])
}

// 兩筆同時送出的出價必須被商品鎖序列化,
// 各自拿到遞增後的金額而不是同一個金額
func TestPlaceBidConcurrentSerialized(t *testing.T) {
	service, db, _, _ := setupTest(t)
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { client.Close() })
	service.lockFor = func(itemID uint) redisAdapter.IAutoRenewMutex {
		return redisAdapter.NewAutoRenewMutex(client, fmt.Sprintf("lock:item:%d", itemID),
			redisAdapter.WithAutoRenewMutexExpiry(2*time.Second),
			redisAdapter.WithAutoRenewMutexRetryDelay(10*time.Millisecond))
	}

	item := createItem(t, db, models.Item{StartingPrice: 500, BidInterval: 100})
	bidders := []models.User{
		createUser(t, db, "alice", models.RoleUser),
		createUser(t, db, "bob", models.RoleUser),
	}

	var wg sync.WaitGroup
	errs := make([]error, len(bidders))
	for i, bidder := range bidders {
		wg.Add(1)
		go func(i int, userID string) {
			defer wg.Done()
			_, errs[i] = service.PlaceBid(context.Background(), item.ID, userID)
		}(i, bidder.ID)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	var bids []models.Bid
	require.NoError(t, db.Order("amount asc").Find(&bids, "item_id = ?", item.ID).Error)
	require.Len(t, bids, 2)
	assert.Equal(t, int64(500), bids[0].Amount)
	assert.Equal(t, int64(600), bids[1].Amount)

	var updated models.Item
	require.NoError(t, db.First(&updated, item.ID).Error)
	assert.Equal(t, int64(600), updated.CurrentBid)
}

func TestPlaceBidRejectsWrongType(t *testing.T) {
	service, db, publisher, _ := setupTest(t)
	ctx := context.Background()
	bidder := createUser(t, db, "bob", models.RoleUser)

	for _, auctionType := range []models.AuctionType{models.AuctionDirect, models.AuctionDraft} {
		item := createItem(t, db, models.Item{AuctionType: auctionType})
		_, err := service.PlaceBid(ctx, item.ID, bidder.ID)
		assert.ErrorIs(t, err, ErrWrongAuctionType)
	}
	assert.Empty(t, publisher.events)
}

func TestPlaceBidAfterEndTime(t *testing.T) {
	service, db, _, _ := setupTest(t)
	bidder := createUser(t, db, "carol", models.RoleUser)
	item := createItem(t, db, models.Item{BidEndTime: time.Now().Add(-time.Minute)})

	_, err := service.PlaceBid(context.Background(), item.ID, bidder.ID)
	assert.ErrorIs(t, err, ErrAuctionEnded)
}

func TestPlaceBidItemNotFound(t *testing.T) {
	service, db, _, _ := setupTest(t)
	bidder := createUser(t, db, "dave", models.RoleUser)

	_, err := service.PlaceBid(context.Background(), 9999, bidder.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPurchase(t *testing.T) {
	service, db, _, _ := setupTest(t)
	ctx := context.Background()
	item := createItem(t, db, models.Item{AuctionType: models.AuctionDirect})
	buyer := createUser(t, db, "erin", models.RoleUser)

	sold, err := service.Purchase(ctx, item.ID, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSold, sold.Status)
	require.NotNil(t, sold.SoldTo)
	assert.Equal(t, buyer.ID, *sold.SoldTo)
	assert.NotNil(t, sold.SoldAt)

	// 第二位買家會失敗，商品只成交一次
	other := createUser(t, db, "frank", models.RoleUser)
	_, err = service.Purchase(ctx, item.ID, other.ID)
	assert.ErrorIs(t, err, ErrAlreadySold)

	var persisted models.Item
	require.NoError(t, db.First(&persisted, item.ID).Error)
	assert.Equal(t, buyer.ID, *persisted.SoldTo)
}

func TestPurchaseRejectsWrongType(t *testing.T) {
	service, db, _, _ := setupTest(t)
	item := createItem(t, db, models.Item{AuctionType: models.AuctionRegular})
	buyer := createUser(t, db, "grace", models.RoleUser)

	_, err := service.Purchase(context.Background(), item.ID, buyer.ID)
	assert.ErrorIs(t, err, ErrWrongAuctionType)
}

func TestSetAvailability(t *testing.T) {
	service, db, publisher, _ := setupTest(t)
	ctx := context.Background()
	item := createItem(t, db, models.Item{AuctionType: models.AuctionDirect, IsAvailable: true})

	require.NoError(t, service.SetAvailability(ctx, item.ID, false))

	var updated models.Item
	require.NoError(t, db.First(&updated, item.ID).Error)
	assert.False(t, updated.IsAvailable)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, realtime.ItemChannel(item.ID), publisher.events[0].Channel)
	assert.Equal(t, realtime.EventAvailabilityChanged, publisher.events[0].Event.Name)
	assert.Equal(t, false, publisher.events[0].Event.Data["isAvailable"])

	assert.ErrorIs(t, service.SetAvailability(ctx, 9999, true), ErrNotFound)
}

func TestToggleFeatured(t *testing.T) {
	service, db, publisher, _ := setupTest(t)
	ctx := context.Background()
	first := createItem(t, db, models.Item{Name: "first", AuctionType: models.AuctionLive, IsFeatured: true})
	second := createItem(t, db, models.Item{Name: "second", AuctionType: models.AuctionLive})

	// 設為精選時其他商品必須被取消精選
	toggled, err := service.ToggleFeatured(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsFeatured)

	var previous models.Item
	require.NoError(t, db.First(&previous, first.ID).Error)
	assert.False(t, previous.IsFeatured)

	var count int64
	require.NoError(t, db.Model(&models.Item{}).Where("is_featured = ?", true).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, realtime.LiveChannel, publisher.events[0].Channel)
	assert.Equal(t, realtime.EventFeaturedChanged, publisher.events[0].Event.Name)

	// 再切換一次就是取消精選
	toggled, err = service.ToggleFeatured(ctx, second.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsFeatured)
}

func TestToggleFeaturedRejectsNonLive(t *testing.T) {
	service, db, _, _ := setupTest(t)
	item := createItem(t, db, models.Item{AuctionType: models.AuctionRegular})

	_, err := service.ToggleFeatured(context.Background(), item.ID)
	assert.ErrorIs(t, err, ErrWrongAuctionType)
}

func TestSaveNextLive(t *testing.T) {
	service, db, _, _ := setupTest(t)
	ctx := context.Background()

	next := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, service.SaveNextLive(ctx, &next))

	var settings []models.Setting
	require.NoError(t, db.Find(&settings).Error)
	require.Len(t, settings, 1)

	// 清除後資料表應該是空的
	require.NoError(t, service.SaveNextLive(ctx, nil))
	require.NoError(t, db.Find(&settings).Error)
	assert.Empty(t, settings)
}

func TestPostChatMessage(t *testing.T) {
	service, db, publisher, _ := setupTest(t)
	ctx := context.Background()
	item := createItem(t, db, models.Item{AuctionType: models.AuctionLive})
	speaker := createUser(t, db, "heidi", models.RoleUser)

	record, err := service.PostChatMessage(ctx, item.ID, speaker.ID, "hello everyone")
	require.NoError(t, err)
	assert.Equal(t, "hello everyone", record.Message)
	require.NotNil(t, record.User)
	assert.Equal(t, "heidi", record.User.Name)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, realtime.ChatChannel(item.ID), publisher.events[0].Channel)
	assert.Equal(t, realtime.EventNewMessage, publisher.events[0].Event.Name)
	assert.Equal(t, "heidi", publisher.events[0].Event.Data["user"])
}

package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"aa/models"
)

// ItemFilter 是管理後台商品列表的過濾與分頁條件
type ItemFilter struct {
	Name        string
	AuctionType models.AuctionType
	Status      models.ItemStatus
	SortKey     string // name, created_at, current_bid, bid_end_time
	SortDesc    bool
	Page        int
	Limit       int
}

// ItemSummary 是管理後台商品列表的一列，
// 帶出每個商品最新一筆出價、總出價次數與買家身份。
type ItemSummary struct {
	ID            uint               `json:"id"`
	Name          string             `json:"name"`
	AuctionType   models.AuctionType `json:"auctionType"`
	Status        models.ItemStatus  `json:"status"`
	StartingPrice int64              `json:"startingPrice"`
	CurrentBid    int64              `json:"currentBid"`
	BidInterval   int64              `json:"bidInterval"`
	BidEndTime    time.Time          `json:"bidEndTime"`
	IsFeatured    bool               `json:"isFeatured"`
	IsAvailable   bool               `json:"isAvailable"`
	ImageURL      string             `json:"imageUrl"`
	SoldAt        *time.Time         `json:"soldAt"`
	BidCount      int64              `json:"bidCount"`
	LatestBid     int64              `json:"latestBid"`
	LatestBidder  string             `json:"latestBidder"`
	BuyerName     string             `json:"buyerName"`
	BuyerEmail    string             `json:"buyerEmail"`
	BuyerPhone    string             `json:"buyerPhone"`
}

// 允許的排序欄位，避免把使用者輸入直接拼進 ORDER BY
var listSortKeys = map[string]string{
	"name":         "aa_items.name",
	"created_at":   "aa_items.created_at",
	"current_bid":  "aa_items.current_bid",
	"bid_end_time": "aa_items.bid_end_time",
}

// ListItems 以單一聚合查詢取得商品列表:
// 每個商品的最新出價用子查詢挑出，出價次數用 COUNT 子查詢，
// 買家與最新出價者用 LEFT JOIN 帶出。
func (s *Store) ListItems(ctx context.Context, filter ItemFilter) ([]ItemSummary, int64, error) {
	const op = "Store.ListItems"

	query := s.db.WithContext(ctx).Model(&models.Item{}).
		Select(`aa_items.id, aa_items.name, aa_items.auction_type, aa_items.status,
			aa_items.starting_price, aa_items.current_bid, aa_items.bid_interval,
			aa_items.bid_end_time, aa_items.is_featured, aa_items.is_available,
			aa_items.image_url, aa_items.sold_at,
			(SELECT COUNT(*) FROM aa_bids WHERE aa_bids.item_id = aa_items.id) AS bid_count,
			COALESCE(latest.amount, 0) AS latest_bid,
			COALESCE(latest_user.name, '') AS latest_bidder,
			COALESCE(buyer.name, '') AS buyer_name,
			COALESCE(buyer.email, '') AS buyer_email,
			COALESCE(buyer.phone, '') AS buyer_phone`).
		Joins(`LEFT JOIN aa_bids AS latest ON latest.id = (
			SELECT b.id FROM aa_bids AS b
			WHERE b.item_id = aa_items.id
			ORDER BY b.created_at DESC, b.id DESC LIMIT 1)`).
		Joins(`LEFT JOIN aa_user AS latest_user ON latest_user.id = latest.user_id`).
		Joins(`LEFT JOIN aa_user AS buyer ON buyer.id = aa_items.sold_to`)

	if filter.Name != "" {
		query = query.Where("aa_items.name LIKE ?", "%"+filter.Name+"%")
	}
	if filter.AuctionType != "" {
		query = query.Where("aa_items.auction_type = ?", filter.AuctionType)
	}
	if filter.Status != "" {
		query = query.Where("aa_items.status = ?", filter.Status)
	}

	var total int64
	if result := query.Session(&gorm.Session{}).Count(&total); result.Error != nil {
		return nil, 0, fmt.Errorf("[%s] Fail to count items, err=%w", op, result.Error)
	}

	sortColumn, ok := listSortKeys[filter.SortKey]
	if !ok {
		sortColumn = "aa_items.created_at"
		filter.SortDesc = true
	}
	order := sortColumn
	if filter.SortDesc {
		order += " DESC"
	}
	query = query.Order(order).Order("aa_items.id")

	if filter.Limit > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Limit(filter.Limit).Offset((page - 1) * filter.Limit)
	}

	var rows []ItemSummary
	if result := query.Scan(&rows); result.Error != nil {
		return nil, 0, fmt.Errorf("[%s] Fail to list items, err=%w", op, result.Error)
	}
	return rows, total, nil
}

package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"gorm.io/gorm"

	internalS3 "aa/adapters/s3"
	"aa/auction"
	"aa/models"
	"aa/store"
)

// 單張商品圖片的大小上限
const maxImageSize = 5 << 20

func itemIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("itemId"), 10, 32)
	if err != nil {
		abortWithError(c, auction.ErrNotFound)
		return 0, false
	}
	return uint(id), true
}

// itemView 是商品的對外JSON格式
func itemView(item models.Item) gin.H {
	view := gin.H{
		"id":            item.ID,
		"name":          item.Name,
		"description":   item.Description,
		"startingPrice": item.StartingPrice,
		"currentBid":    item.CurrentBid,
		"bidInterval":   item.BidInterval,
		"auctionType":   item.AuctionType,
		"bidEndTime":    item.BidEndTime.UTC().Format(time.RFC3339),
		"isFeatured":    item.IsFeatured,
		"isAvailable":   item.IsAvailable,
		"status":        item.Status,
		"imageUrl":      item.ImageURL,
		"createdAt":     item.CreatedAt.UTC().Format(time.RFC3339),
	}
	if item.SoldAt != nil {
		view["soldAt"] = item.SoldAt.UTC().Format(time.RFC3339)
	}
	return view
}

// GetItems 商品列表,支援名稱、拍賣方式與狀態過濾以及分頁。
// 買家的聯絡資訊只有管理員看得到
func (impl *ServerImpl) GetItems(c *gin.Context) {
	const op = "GetItems"
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	filter := store.ItemFilter{
		Name:        c.Query("name"),
		AuctionType: models.AuctionType(c.Query("auctionType")),
		Status:      models.ItemStatus(c.Query("status")),
		SortKey:     c.Query("sort"),
		SortDesc:    c.Query("order") != "asc",
		Page:        page,
		Limit:       limit,
	}
	items, total, err := impl.store.ListItems(c.Request.Context(), filter)
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to list items, err=%w", op, err))
		return
	}

	userID, _ := currentUserID(c)
	if userID == "" || !impl.gate.IsAdmin(c.Request.Context(), userID) {
		for i := range items {
			items[i].BuyerName = ""
			items[i].BuyerEmail = ""
			items[i].BuyerPhone = ""
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetItem 單一商品的詳細資訊與完整出價紀錄
func (impl *ServerImpl) GetItem(c *gin.Context) {
	const op = "GetItem"
	itemID, ok := itemIDParam(c)
	if !ok {
		return
	}
	item, err := impl.store.ItemByID(c.Request.Context(), itemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		abortWithError(c, auction.ErrNotFound)
		return
	}
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to find item, err=%w", op, err))
		return
	}
	bids, err := impl.store.BidsForItem(c.Request.Context(), itemID)
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to list bids, err=%w", op, err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"item": itemView(item),
		"bids": bidViews(bids),
	})
}

// PostItem 新增商品,只開放給管理員,表單為multipart格式
func (impl *ServerImpl) PostItem(c *gin.Context) {
	userID, ok := impl.requireAdmin(c)
	if !ok {
		return
	}
	input, image, ok := impl.parseItemForm(c, userID)
	if !ok {
		return
	}
	item, err := impl.service.CreateItem(c.Request.Context(), userID, input, image)
	if err != nil {
		abortWithError(c, err)
		return
	}
	impl.recordUpload(c, userID, item.ImageURL)
	c.JSON(http.StatusCreated, gin.H{"item": itemView(item)})
}

// PutItem 更新商品內容,只開放給管理員
func (impl *ServerImpl) PutItem(c *gin.Context) {
	userID, ok := impl.requireAdmin(c)
	if !ok {
		return
	}
	itemID, ok := itemIDParam(c)
	if !ok {
		return
	}
	input, image, ok := impl.parseItemForm(c, userID)
	if !ok {
		return
	}
	item, err := impl.service.UpdateItem(c.Request.Context(), itemID, input, image)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if image != nil {
		impl.recordUpload(c, userID, item.ImageURL)
	}
	c.JSON(http.StatusOK, gin.H{"item": itemView(item)})
}

// DeleteItem 刪除商品與其所有出價和聊天紀錄,只開放給管理員
func (impl *ServerImpl) DeleteItem(c *gin.Context) {
	if _, ok := impl.requireAdmin(c); !ok {
		return
	}
	itemID, ok := itemIDParam(c)
	if !ok {
		return
	}
	if err := impl.service.DeleteItem(c.Request.Context(), itemID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PostItemPurchase 直購商品,第一位買家成交後其他人會得到conflict
func (impl *ServerImpl) PostItemPurchase(c *gin.Context) {
	userID, ok := impl.requireActiveUser(c)
	if !ok {
		return
	}
	itemID, ok := itemIDParam(c)
	if !ok {
		return
	}
	item, err := impl.service.Purchase(c.Request.Context(), itemID, userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": itemView(item)})
}

// PostItemFeature 切換直播商品的精選狀態,只開放給管理員
func (impl *ServerImpl) PostItemFeature(c *gin.Context) {
	if _, ok := impl.requireAdmin(c); !ok {
		return
	}
	itemID, ok := itemIDParam(c)
	if !ok {
		return
	}
	item, err := impl.service.ToggleFeatured(c.Request.Context(), itemID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": itemView(item)})
}

// PostAuctionAvailability 切換商品是否開放購買
func (impl *ServerImpl) PostAuctionAvailability(c *gin.Context) {
	if _, ok := impl.requireActiveUser(c); !ok {
		return
	}
	var body struct {
		ItemID      uint `json:"itemId"`
		IsAvailable bool `json:"isAvailable"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, fmt.Errorf("%w: %s", auction.ErrValidation, err))
		return
	}
	if err := impl.service.SetAvailability(c.Request.Context(), body.ItemID, body.IsAvailable); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"itemId":      body.ItemID,
		"isAvailable": body.IsAvailable,
	})
}

// GetLive 直播頁需要的所有資料:直播商品、目前的精選商品與下一場直播時間
func (impl *ServerImpl) GetLive(c *gin.Context) {
	const op = "GetLive"
	ctx := c.Request.Context()
	items, err := impl.store.LiveItems(ctx)
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to list live items, err=%w", op, err))
		return
	}
	featured, err := impl.store.FeaturedLiveItem(ctx)
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to find featured item, err=%w", op, err))
		return
	}
	nextLive, err := impl.store.NextLive(ctx)
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to find next live time, err=%w", op, err))
		return
	}

	views := lo.Map(items, func(item models.Item, _ int) gin.H { return itemView(item) })
	response := gin.H{"items": views}
	if featured != nil {
		response["featured"] = itemView(*featured)
	}
	if nextLive != nil {
		response["nextLive"] = nextLive.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, response)
}

// PostNextLive 設定下一場直播的時間,傳null代表清除,只開放給管理員
func (impl *ServerImpl) PostNextLive(c *gin.Context) {
	if _, ok := impl.requireAdmin(c); !ok {
		return
	}
	var body struct {
		NextLive *time.Time `json:"nextLive"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, fmt.Errorf("%w: %s", auction.ErrValidation, err))
		return
	}
	if err := impl.service.SaveNextLive(c.Request.Context(), body.NextLive); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// parseItemForm 解析商品表單與附帶的圖片。
// 圖片限制大小與MIME類型,描述會先過濾HTML,
// 上傳頻率超過限制時回覆too many requests
func (impl *ServerImpl) parseItemForm(c *gin.Context, userID string) (auction.ItemInput, *auction.ImageUpload, bool) {
	const op = "parseItemForm"
	startingPrice, _ := strconv.ParseInt(c.PostForm("startingPrice"), 10, 64)
	bidInterval, _ := strconv.ParseInt(c.PostForm("bidInterval"), 10, 64)
	isFeatured, _ := strconv.ParseBool(c.DefaultPostForm("isFeatured", "false"))
	isAvailable, _ := strconv.ParseBool(c.DefaultPostForm("isAvailable", "true"))

	var bidEndTime time.Time
	if raw := c.PostForm("bidEndTime"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			abortWithError(c, fmt.Errorf("%w: invalid bid end time %q", auction.ErrValidation, raw))
			return auction.ItemInput{}, nil, false
		}
		bidEndTime = parsed
	}

	input := auction.ItemInput{
		Name:          impl.sanitizeText(c.PostForm("name")),
		Description:   impl.htmlChecker.Sanitize(c.PostForm("description")),
		StartingPrice: startingPrice,
		BidInterval:   bidInterval,
		BidEndTime:    bidEndTime,
		AuctionType:   models.AuctionType(c.PostForm("auctionType")),
		IsFeatured:    isFeatured,
		IsAvailable:   isAvailable,
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		// 沒有附圖是合法的
		return input, nil, true
	}

	// 檢查是否達到上傳限制
	if impl.config.S3.RateLimitPerHour > 0 {
		count, err := impl.store.CountRecentUploads(c.Request.Context(), userID, time.Now().Add(-time.Hour))
		if err != nil {
			abortWithError(c, fmt.Errorf("[%s] Fail to count uploads, err=%w", op, err))
			return auction.ItemInput{}, nil, false
		}
		if count >= impl.config.S3.RateLimitPerHour {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "upload limit reached"})
			return auction.ItemInput{}, nil, false
		}
	}

	// 限制圖片
	// 	1. 小於5MB
	// 	2. MIME類型為不包含腳本的圖片檔案
	file, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to open uploaded image, err=%w", op, err))
		return auction.ItemInput{}, nil, false
	}
	defer file.Close()
	content, err := io.ReadAll(internalS3.NewMaxSizeReader(file, maxImageSize))
	if errors.As(err, &internalS3.ErrReachLimitType) {
		abortWithError(c, fmt.Errorf("%w: %s", auction.ErrValidation, err))
		return auction.ItemInput{}, nil, false
	}
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to read uploaded image, err=%w", op, err))
		return auction.ItemInput{}, nil, false
	}
	mimeType := http.DetectContentType(content)
	secure, ext := internalS3.CheckSecureImageAndGetExtension(mimeType)
	if !secure {
		abortWithError(c, fmt.Errorf("%w: invalid image type %s", auction.ErrValidation, mimeType))
		return auction.ItemInput{}, nil, false
	}
	return input, &auction.ImageUpload{Content: content, ContentType: mimeType, Extension: ext}, true
}

// recordUpload 在資料庫留下上傳紀錄供頻率限制查詢,失敗只記錄
func (impl *ServerImpl) recordUpload(c *gin.Context, userID, url string) {
	if url == "" {
		return
	}
	if err := impl.store.RecordUpload(c.Request.Context(), userID, url); err != nil {
		slog.Warn("Fail to record upload", slog.String("user", userID), slog.Any("error", err))
	}
}

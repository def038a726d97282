package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"aa/auction"
	"aa/models"
)

func bidViews(bids []models.Bid) []gin.H {
	views := make([]gin.H, len(bids))
	for i, bid := range bids {
		userName := ""
		if bid.User != nil {
			userName = bid.User.Name
		}
		views[i] = gin.H{
			"id":        bid.ID,
			"amount":    bid.Amount,
			"userName":  userName,
			"createdAt": bid.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	return views
}

// GetItemBids 商品的出價紀錄,由新到舊
func (impl *ServerImpl) GetItemBids(c *gin.Context) {
	const op = "GetItemBids"
	itemID, ok := itemIDParam(c)
	if !ok {
		return
	}
	bids, err := impl.store.BidsForItem(c.Request.Context(), itemID)
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to list bids, err=%w", op, err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"bids": bidViews(bids)})
}

// GetBids 同GetItemBids,但itemId改由query string帶入
func (impl *ServerImpl) GetBids(c *gin.Context) {
	const op = "GetBids"
	itemID, err := strconv.ParseUint(c.Query("itemId"), 10, 64)
	if err != nil {
		abortWithError(c, fmt.Errorf("%w: invalid itemId", auction.ErrValidation))
		return
	}
	bids, err := impl.store.BidsForItem(c.Request.Context(), uint(itemID))
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to list bids, err=%w", op, err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"bids": bidViews(bids)})
}

// PostItemBid 對商品出價。出價金額由伺服器計算,
// 請求本身不帶金額,成功時回傳這次出價的完整紀錄
func (impl *ServerImpl) PostItemBid(c *gin.Context) {
	userID, ok := impl.requireActiveUser(c)
	if !ok {
		return
	}
	itemID, ok := itemIDParam(c)
	if !ok {
		return
	}
	bid, err := impl.service.PlaceBid(c.Request.Context(), itemID, userID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"bid": gin.H{
			"id":        bid.ID,
			"amount":    bid.Amount,
			"itemId":    bid.ItemID,
			"createdAt": bid.CreatedAt.UTC().Format(time.RFC3339),
		},
	})
}

package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"aa/auction"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrForbidden        = errors.New("forbidden")
)

// abortWithError 將領域錯誤對應到HTTP狀態碼,統一回傳 {"error": message}。
// 非預期的錯誤記錄完整內容後只回報internal error,避免洩漏細節
func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
	case errors.Is(err, ErrForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, auction.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, auction.ErrWrongAuctionType):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "wrong auction type"})
	case errors.Is(err, auction.ErrValidation):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, auction.ErrAlreadySold):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "item already sold"})
	case errors.Is(err, auction.ErrAuctionEnded):
		c.AbortWithStatusJSON(http.StatusGone, gin.H{"error": "auction has ended"})
	case errors.Is(err, auction.ErrUpload):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "image upload failed"})
	default:
		slog.Error("Unexpected error", slog.String("path", c.FullPath()), slog.Any("error", err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

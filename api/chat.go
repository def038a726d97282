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

// 聊天紀錄單次最多回傳的則數
const chatHistoryLimit = 100

// GetItemMessages 商品聊天室的歷史訊息,由舊到新
func (impl *ServerImpl) GetItemMessages(c *gin.Context) {
	const op = "GetItemMessages"
	itemID, ok := itemIDParam(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(chatHistoryLimit)))
	if limit <= 0 || limit > chatHistoryLimit {
		limit = chatHistoryLimit
	}
	messages, err := impl.store.ChatMessages(c.Request.Context(), itemID, limit)
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to list chat messages, err=%w", op, err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messageViews(messages)})
}

func messageViews(messages []models.ChatMessage) []gin.H {
	views := make([]gin.H, len(messages))
	for i, message := range messages {
		userName := ""
		if message.User != nil {
			userName = message.User.Name
		}
		views[i] = gin.H{
			"id":        message.ID,
			"user":      userName,
			"message":   message.Message,
			"createdAt": message.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	return views
}

// GetChat 同GetItemMessages,但itemId改由query string的item帶入
func (impl *ServerImpl) GetChat(c *gin.Context) {
	const op = "GetChat"
	itemID, err := strconv.ParseUint(c.Query("item"), 10, 64)
	if err != nil {
		abortWithError(c, fmt.Errorf("%w: invalid item", auction.ErrValidation))
		return
	}
	messages, err := impl.store.ChatMessages(c.Request.Context(), uint(itemID), chatHistoryLimit)
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to list chat messages, err=%w", op, err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messageViews(messages)})
}

// PostChat 新增一則聊天訊息,與PostRealtime共用同一套流程
func (impl *ServerImpl) PostChat(c *gin.Context) {
	impl.PostRealtime(c)
}

// PostRealtime 接收聊天訊息並轉發到商品的聊天頻道。
// 訊息內容先過濾HTML再儲存,空訊息視為無效
func (impl *ServerImpl) PostRealtime(c *gin.Context) {
	userID, ok := impl.requireActiveUser(c)
	if !ok {
		return
	}
	var body struct {
		ItemID  uint   `json:"itemId"`
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, fmt.Errorf("%w: %s", auction.ErrValidation, err))
		return
	}
	message := impl.sanitizeText(body.Message)
	if message == "" {
		abortWithError(c, fmt.Errorf("%w: message is required", auction.ErrValidation))
		return
	}
	record, err := impl.service.PostChatMessage(c.Request.Context(), body.ItemID, userID, message)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": gin.H{
			"id":        record.ID,
			"itemId":    record.ItemID,
			"message":   record.Message,
			"createdAt": record.CreatedAt.UTC().Format(time.RFC3339),
		},
	})
}

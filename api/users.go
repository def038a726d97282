package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"aa/auction"
	"aa/models"
	"aa/policy"
)

func userView(user models.User) gin.H {
	email := ""
	if user.Email != nil {
		email = *user.Email
	}
	return gin.H{
		"id":        user.ID,
		"name":      user.Name,
		"email":     email,
		"phone":     user.Phone,
		"image":     user.Image,
		"role":      user.Role,
		"createdAt": user.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// GetUsers 所有使用者的列表,只開放給管理員
func (impl *ServerImpl) GetUsers(c *gin.Context) {
	const op = "GetUsers"
	if _, ok := impl.requireAdmin(c); !ok {
		return
	}
	users, err := impl.store.ListUsers(c.Request.Context())
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to list users, err=%w", op, err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": lo.Map(users, func(user models.User, _ int) gin.H { return userView(user) })})
}

// GetMe 登入使用者自己的資料
func (impl *ServerImpl) GetMe(c *gin.Context) {
	const op = "GetMe"
	userID, ok := impl.requireUser(c)
	if !ok {
		return
	}
	user, err := impl.store.UserByID(c.Request.Context(), userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		abortWithError(c, ErrNotAuthenticated)
		return
	}
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to find user, err=%w", op, err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userView(user)})
}

// GetCheckPhone 檢查登入使用者是否已補齊電話號碼,
// 前端以此決定是否導向補資料頁
func (impl *ServerImpl) GetCheckPhone(c *gin.Context) {
	const op = "GetCheckPhone"
	userID, ok := impl.requireUser(c)
	if !ok {
		return
	}
	user, err := impl.store.UserByID(c.Request.Context(), userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		abortWithError(c, ErrNotAuthenticated)
		return
	}
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to find user, err=%w", op, err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"hasPhone": !policy.NeedsPhoneNumber(user)})
}

// GetCheckPhoneStatus 同GetCheckPhone,但未登入時不回錯誤,
// 而是回報authenticated=false讓前端自行決定流程
func (impl *ServerImpl) GetCheckPhoneStatus(c *gin.Context) {
	const op = "GetCheckPhoneStatus"
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"needsPhone": false, "authenticated": false})
		return
	}
	user, err := impl.store.UserByID(c.Request.Context(), userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusOK, gin.H{"needsPhone": false, "authenticated": false})
		return
	}
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to find user, err=%w", op, err))
		return
	}
	response := gin.H{
		"needsPhone":    policy.NeedsPhoneNumber(user),
		"authenticated": true,
	}
	if user.Email != nil {
		response["email"] = *user.Email
	}
	c.JSON(http.StatusOK, response)
}

// PostPhone 補齊登入使用者的電話號碼
func (impl *ServerImpl) PostPhone(c *gin.Context) {
	userID, ok := impl.requireUser(c)
	if !ok {
		return
	}
	var body struct {
		Phone string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, fmt.Errorf("%w: %s", auction.ErrValidation, err))
		return
	}
	if err := impl.service.UpdatePhone(c.Request.Context(), userID, body.Phone); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PostUserBlock 封鎖或解除封鎖使用者,只開放給管理員。
// 接受form與JSON兩種編碼,JSON舊欄位名blocked也一併支援。
// 管理員也可以被封鎖,封鎖後立即失去所有權限
func (impl *ServerImpl) PostUserBlock(c *gin.Context) {
	if _, ok := impl.requireAdmin(c); !ok {
		return
	}
	var body struct {
		UserID  string `form:"userId" json:"userId"`
		Block   *bool  `form:"block" json:"block"`
		Blocked *bool  `form:"blocked" json:"blocked"`
	}
	if err := c.ShouldBind(&body); err != nil || body.UserID == "" {
		abortWithError(c, fmt.Errorf("%w: userId is required", auction.ErrValidation))
		return
	}
	block := false
	switch {
	case body.Block != nil:
		block = *body.Block
	case body.Blocked != nil:
		block = *body.Blocked
	}
	if err := impl.service.SetUserBlocked(c.Request.Context(), body.UserID, block); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PostUserRole 在管理員與一般使用者之間切換角色,只開放給管理員
func (impl *ServerImpl) PostUserRole(c *gin.Context) {
	if _, ok := impl.requireAdmin(c); !ok {
		return
	}
	var body struct {
		UserID string `form:"userId" json:"userId"`
	}
	if err := c.ShouldBind(&body); err != nil || body.UserID == "" {
		abortWithError(c, fmt.Errorf("%w: userId is required", auction.ErrValidation))
		return
	}
	role, err := impl.service.ToggleUserRole(c.Request.Context(), body.UserID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": role})
}

// DeleteUser 刪除使用者及其所有關聯資料,只開放給管理員
func (impl *ServerImpl) DeleteUser(c *gin.Context) {
	if _, ok := impl.requireAdmin(c); !ok {
		return
	}
	userID := c.Param("userId")
	if err := impl.service.DeleteUser(c.Request.Context(), userID); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

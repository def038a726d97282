package policy

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"aa/models"
	"aa/store"
)

// 被封鎖或資料不全的使用者會被導向的頁面
const (
	BlockedPath         = "/blocked"
	CompleteProfilePath = "/complete-profile"
)

// Gate 以資料庫中的最新角色判斷使用者能做什麼。
// 每次判斷都重新查詢，角色變更立即生效，不依賴登入時發出的憑證內容
type Gate struct {
	store  *store.Store
	logger *slog.Logger
}

func NewGate(store *store.Store, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{store: store, logger: logger}
}

// Decision 表示一次存取檢查的結果
// Allow 為 false 時 RedirectTo 指向使用者應該前往的頁面
type Decision struct {
	Allow      bool
	RedirectTo string
}

// IsAdmin 判斷使用者目前是否為管理員，查詢失敗視為否
func (g *Gate) IsAdmin(ctx context.Context, userID string) bool {
	user, err := g.store.UserByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			g.logger.Warn("Fail to load user for admin check", "user", userID, "error", err)
		}
		return false
	}
	return user.Role == models.RoleAdmin
}

// IsBlocked 判斷使用者是否被封鎖。
// 查詢失敗採取寬鬆策略視為未封鎖，避免資料庫不穩時鎖住所有人
func (g *Gate) IsBlocked(ctx context.Context, userID string) bool {
	user, err := g.store.UserByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			g.logger.Warn("Fail to load user for block check", "user", userID, "error", err)
		}
		return false
	}
	return user.Role == models.RoleBlocked
}

// NeedsPhoneNumber 判斷使用者是否還沒補齊電話號碼
func NeedsPhoneNumber(user models.User) bool {
	return strings.TrimSpace(user.Phone) == ""
}

// Check 對登入使用者的一次頁面存取做檢查:
// 被封鎖的使用者一律導向封鎖頁，沒有電話號碼的使用者導向補資料頁。
// API 與認證相關路徑不做導向，由各自的處理器決定怎麼回應
func (g *Gate) Check(ctx context.Context, userID, path string) Decision {
	user, err := g.store.UserByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			g.logger.Warn("Fail to load user for access check", "user", userID, "error", err)
		}
		return Decision{Allow: true}
	}
	if user.Role == models.RoleBlocked && path != BlockedPath {
		return Decision{RedirectTo: BlockedPath}
	}
	if user.Role != models.RoleBlocked && NeedsPhoneNumber(user) &&
		path != CompleteProfilePath &&
		!strings.HasPrefix(path, "/api") &&
		!strings.HasPrefix(path, "/auth") {
		return Decision{RedirectTo: CompleteProfilePath}
	}
	return Decision{Allow: true}
}

package api

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"aa/adapters/oidc"
	"aa/adapters/session"
	"aa/models"
)

// SSO流程暫存在session中的key
const (
	sessionKeyState    = "sso-state"
	sessionKeyNonce    = "sso-nonce"
	sessionKeyRedirect = "sso-redirect"
)

// GetSSOLogin 產生導向身份提供者的登入URL。
// state與nonce存在session中,callback時比對以防止CSRF與重放
func (impl *ServerImpl) GetSSOLogin(c *gin.Context) {
	const op = "GetSSOLogin"
	provider, ok := impl.oidcProviders[c.Param("provider")]
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown sso provider"})
		return
	}
	state, err := generateID("st")
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Unable to generate state, err=%w", op, err))
		return
	}
	nonce, err := generateID("n")
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Unable to generate nonce, err=%w", op, err))
		return
	}

	sess, err := session.GetSession(c)
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to get session, err=%w", op, err))
		return
	}
	sess.Set(sessionKeyState, state)
	sess.Set(sessionKeyNonce, nonce)
	sess.Set(sessionKeyRedirect, c.Query("redirect"))
	if err := sess.Save(); err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to save session, err=%w", op, err))
		return
	}

	c.Redirect(http.StatusFound, provider.AuthURL(state, nonce, impl.callbackURL(c), []string{"email", "openid", "profile"}))
}

// GetSSOCallback 用授權碼交換token,第一次登入時建立使用者與帳號關聯,
// 成功後簽發access token並導回登入前的頁面
func (impl *ServerImpl) GetSSOCallback(c *gin.Context) {
	const op = "GetSSOCallback"
	providerName := c.Param("provider")
	provider, ok := impl.oidcProviders[providerName]
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown sso provider"})
		return
	}

	sess, err := session.GetSession(c)
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to get session, err=%w", op, err))
		return
	}
	verifier := provider.NewExchangeVerifier(sess.Get(sessionKeyState), sess.Get(sessionKeyNonce))
	token, err := provider.Exchange(c.Request.Context(), verifier, c.Query("code"), c.Query("state"), impl.callbackURL(c))
	if errors.Is(err, oidc.ErrStateMismatch) || errors.Is(err, oidc.ErrNonceMismatch) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid sso callback"})
		return
	}
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to exchange token, err=%w", op, err))
		return
	}

	user, err := impl.findOrCreateUser(c, providerName, token)
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to resolve user, err=%w", op, err))
		return
	}

	signed, err := SignJWT(user, impl.config.Auth)
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to sign access token, err=%w", op, err))
		return
	}
	c.SetCookie(AccessTokenCookie, signed, int(impl.config.Auth.ExpireDuration.Seconds()), "/", "", true, true)

	redirect := sess.Get(sessionKeyRedirect)
	if redirect == "" {
		redirect = "/"
	}
	sess.Delete(sessionKeyState)
	sess.Delete(sessionKeyNonce)
	sess.Delete(sessionKeyRedirect)
	if err := sess.Save(); err != nil {
		slog.Warn("Fail to save session after sso callback", slog.Any("error", err))
	}
	c.Redirect(http.StatusFound, redirect)
}

// GetLogout 清除access token的cookie,token本身不撤銷
func (impl *ServerImpl) GetLogout(c *gin.Context) {
	c.SetCookie(AccessTokenCookie, "", -1, "/", "", true, true)
	c.Redirect(http.StatusFound, "/")
}

// findOrCreateUser 以提供者與帳號識別碼找到本地使用者。
// 找不到時先嘗試用email關聯既有使用者,否則建立新使用者,
// 同一位使用者可以綁定多個身份提供者
func (impl *ServerImpl) findOrCreateUser(c *gin.Context, providerName string, token *oidc.ExchangeToken) (models.User, error) {
	const op = "findOrCreateUser"
	ctx := c.Request.Context()

	account := models.Account{
		Provider:          providerName,
		ProviderAccountID: token.IDToken.Sub,
	}
	result := impl.db.WithContext(ctx).Preload("User").Where(&account).First(&account)
	if result.Error == nil {
		if account.User == nil {
			return models.User{}, fmt.Errorf("[%s] Account %d has no user", op, account.ID)
		}
		return *account.User, nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return models.User{}, fmt.Errorf("[%s] Fail to find account, err=%w", op, result.Error)
	}

	var user models.User
	err := impl.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if token.IDToken.Email.Email != "" {
			if result := tx.First(&user, "email = ?", token.IDToken.Email.Email); result.Error == nil {
				account.UserID = user.ID
				return tx.Create(&account).Error
			} else if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return result.Error
			}
		}
		user = models.User{
			Name:  token.IDToken.Name,
			Image: token.IDToken.Picture,
			Role:  models.RoleUser,
		}
		if token.IDToken.Email.Email != "" {
			email := token.IDToken.Email.Email
			user.Email = &email
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		account.UserID = user.ID
		return tx.Create(&account).Error
	})
	if err != nil {
		return models.User{}, fmt.Errorf("[%s] Fail to create user, err=%w", op, err)
	}
	return user, nil
}

// callbackURL 組出目前provider的callback位址
func (impl *ServerImpl) callbackURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/auth/sso/%s/callback", scheme, c.Request.Host, c.Param("provider"))
}

func generateID(prefix string) (string, error) {
	const op = "generateID"
	bytes := make([]byte, 20)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("[%s] Fail to generate unique id, err=%w", op, err)
	}
	return prefix + "_" + base64.URLEncoding.EncodeToString(bytes), nil
}

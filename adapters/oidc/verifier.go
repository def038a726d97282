package oidc

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// ExchangeVerifier 用於驗證 OIDC 身份驗證過程中的令牌和狀態。
// 期望值來自使用者的 session，比對使用等長時間的方式進行
type ExchangeVerifier struct {
	idTokenVerifier *oidc.IDTokenVerifier // ID 令牌驗證器
	reqState        string                // 請求狀態值
	reqNonce        string                // 請求隨機數
}

// VerifyIDToken 驗證 ID 令牌的有效性
func (v *ExchangeVerifier) VerifyIDToken(ctx context.Context, rawIDToken string) (*oidc.IDToken, error) {
	const op = "VerifyIDToken"
	idToken, err := v.idTokenVerifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("[%s] err=%w", op, err)
	}
	return idToken, nil
}

// VerifyState 驗證狀態值是否匹配，session 中沒有狀態值時一律視為不匹配
func (v *ExchangeVerifier) VerifyState(state string) bool {
	if v.reqState == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(state), []byte(v.reqState)) == 1
}

// VerifyNonce 驗證隨機數是否匹配，session 中沒有隨機數時一律視為不匹配
func (v *ExchangeVerifier) VerifyNonce(nonce string) bool {
	if v.reqNonce == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(nonce), []byte(v.reqNonce)) == 1
}

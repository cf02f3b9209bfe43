// Package identity 校验连接方的身份令牌（HS256 JWT），从中取出玩家名
package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/form3tech-oss/jwt-go"

	"github.com/palemoky/uno-lobby/internal/apperrors"
)

const (
	// DefaultClaim 默认用作玩家名的 claim
	DefaultClaim = "email"
	// fallbackClaim 默认 claim 缺失时使用
	fallbackClaim = "sub"
)

// ErrNoSecret 未配置签名密钥时无法签发令牌
var ErrNoSecret = errors.New("jwt secret is not configured")

// Verifier 令牌签发与校验，密钥为空时拒绝一切令牌
type Verifier struct {
	secret []byte
	claim  string
}

// NewVerifier 创建校验器，claim 为空时使用 email
func NewVerifier(secret, claim string) *Verifier {
	if claim == "" {
		claim = DefaultClaim
	}
	return &Verifier{secret: []byte(secret), claim: claim}
}

// Issue 签发令牌，ttl 为 0 时不设置过期时间
func (v *Verifier) Issue(name string, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrNoSecret
	}
	if strings.TrimSpace(name) == "" {
		return "", apperrors.ErrInvalidName
	}

	now := time.Now()
	claims := jwt.MapClaims{
		v.claim: name,
		"sub":   name,
		"iat":   now.Unix(),
	}
	if ttl > 0 {
		claims["exp"] = now.Add(ttl).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify 校验令牌并返回玩家名，失败统一返回 ErrUnauthorized
func (v *Verifier) Verify(tokenString string) (string, error) {
	if len(v.secret) == 0 || tokenString == "" {
		return "", apperrors.ErrUnauthorized
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return "", apperrors.ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", apperrors.ErrUnauthorized
	}
	for _, key := range []string{v.claim, fallbackClaim} {
		if name, ok := claims[key].(string); ok && strings.TrimSpace(name) != "" {
			return name, nil
		}
	}
	return "", apperrors.ErrUnauthorized
}

// FromRequest 从 Authorization: Bearer 头或 ?token= 参数中取出令牌并校验
func (v *Verifier) FromRequest(r *http.Request) (string, error) {
	return v.Verify(TokenFromRequest(r))
}

// TokenFromRequest 提取请求携带的令牌
func TokenFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}

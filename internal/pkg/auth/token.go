// Package auth は管理者ログインとセッショントークンを扱う
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken       = errors.New("トークンが無効です")
	ErrInvalidCredentials = errors.New("パスワードが正しくありません")
	ErrAdminDisabled      = errors.New("管理者ログインは設定されていません")
)

// RoleAdmin は管理者トークンのロール
const RoleAdmin = "admin"

// Claims は管理者トークンのクレーム
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager はHS256で署名したトークンを発行・検証する
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue は管理者トークンを発行する
func (m *TokenManager) Issue() (string, time.Time, error) {
	now := m.now().UTC()
	exp := now.Add(m.ttl)
	claims := Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   RoleAdmin,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("トークンの署名に失敗: %w", err)
	}
	return signed, exp, nil
}

// Parse はトークンを検証してクレームを返す
// 署名方式がHS256以外、期限切れ、ロールが管理者でない場合は ErrInvalidToken
func (m *TokenManager) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Role != RoleAdmin {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticator は管理者パスワードを確認してトークンを発行する
type Authenticator struct {
	passwordHash string
	tokens       *TokenManager
}

func NewAuthenticator(passwordHash string, tokens *TokenManager) *Authenticator {
	return &Authenticator{passwordHash: passwordHash, tokens: tokens}
}

// Login はパスワードが正しければ管理者トークンを返す
func (a *Authenticator) Login(password string) (string, time.Time, error) {
	if a.passwordHash == "" {
		return "", time.Time{}, ErrAdminDisabled
	}
	if !VerifyPassword(a.passwordHash, password) {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return a.tokens.Issue()
}

// RandomSecret は署名鍵が未設定のときに使う乱数の鍵を生成する
func RandomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

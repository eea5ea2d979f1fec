package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-concert-checkin/internal/pkg/auth"
	"github.com/sanosuguru/go-concert-checkin/internal/pkg/logger"
)

// ContextKeyAdmin は検証済みの管理者クレームを保持するコンテキストキー
const ContextKeyAdmin = "admin_claims"

// TokenParser は管理者トークンを検証する
type TokenParser interface {
	Parse(raw string) (*auth.Claims, error)
}

// AdminAuth は Bearer トークンで管理者であることを確認するミドルウェア
func AdminAuth(tokens TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "管理者トークンが必要です")
			}

			claims, err := tokens.Parse(strings.TrimSpace(raw))
			if err != nil {
				logger.Warn("管理者トークンの検証に失敗",
					zap.String("remote_ip", c.RealIP()),
					zap.Error(err),
				)
				return echo.NewHTTPError(http.StatusUnauthorized, "管理者トークンが無効です")
			}

			c.Set(ContextKeyAdmin, claims)
			return next(c)
		}
	}
}

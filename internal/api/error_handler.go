package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-concert-checkin/internal/application"
	"github.com/sanosuguru/go-concert-checkin/internal/domain/concert"
	"github.com/sanosuguru/go-concert-checkin/internal/domain/persistence"
	"github.com/sanosuguru/go-concert-checkin/internal/domain/ticket"
	"github.com/sanosuguru/go-concert-checkin/internal/pkg/logger"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, message, details := classify(err)

	// エラーログを出力（5xx エラーの場合）
	if code >= 500 {
		logger.Error("サーバーエラー",
			zap.Int("status", code),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, ErrorResponse{
			Error:   message,
			Code:    code,
			Details: details,
		})
	}
	if writeErr != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(writeErr))
	}
}

// classify はエラーをHTTPステータスと利用者向けメッセージに変換する
func classify(err error) (int, string, string) {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		if m, ok := he.Message.(string); ok {
			return he.Code, m, ""
		}
		return he.Code, http.StatusText(he.Code), ""
	case errors.Is(err, application.ErrInvalidInput):
		return http.StatusBadRequest, application.ErrInvalidInput.Error(), validationDetail(err)
	case errors.Is(err, concert.ErrConcertNotFound):
		return http.StatusNotFound, concert.ErrConcertNotFound.Error(), ""
	case errors.Is(err, ticket.ErrTicketNotFound):
		return http.StatusNotFound, ticket.ErrTicketNotFound.Error(), ""
	case errors.Is(err, persistence.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "ただいま処理できません。しばらくしてから再度お試しください", ""
	default:
		return http.StatusInternalServerError, "内部サーバーエラー", ""
	}
}

// validationDetail は入力エラーの具体的な理由を返す
func validationDetail(err error) string {
	for _, sentinel := range []error{
		concert.ErrNameRequired,
		concert.ErrVenueRequired,
		concert.ErrDateRequired,
		ticket.ErrHolderNameRequired,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return ""
}

// Package router はHTTPルーティングを組み立てる
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sanosuguru/go-concert-checkin/internal/api"
	"github.com/sanosuguru/go-concert-checkin/internal/api/handler"
	"github.com/sanosuguru/go-concert-checkin/internal/api/middleware"
	"github.com/sanosuguru/go-concert-checkin/internal/config"
	"github.com/sanosuguru/go-concert-checkin/internal/pkg/metrics"
)

// Handlers はルートに登録するハンドラー群
type Handlers struct {
	Concert *handler.ConcertHandler
	Ticket  *handler.TicketHandler
	Admin   *handler.AdminHandler
	Health  *handler.HealthHandler
}

// Options はルーターの任意設定
type Options struct {
	// Tokens は管理者APIのトークン検証に使う
	Tokens middleware.TokenParser
	// LoginLimiter は管理者ログインに掛ける試行回数制限（nil なら制限なし）
	LoginLimiter echo.MiddlewareFunc
	// Metrics が nil なら /metrics とHTTPメトリクスを登録しない
	Metrics     *metrics.Metrics
	MetricsAuth config.MetricsConfig
	// Gatherer が nil ならデフォルトレジストリを公開する
	Gatherer prometheus.Gatherer
}

// New はミドルウェアとルートを設定したEchoインスタンスを返す
func New(h Handlers, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler

	middleware.SetupMiddleware(e)

	if opts.Metrics != nil {
		e.Use(middleware.PrometheusMiddleware(opts.Metrics))

		metricsHandler := promhttp.Handler()
		if opts.Gatherer != nil {
			metricsHandler = promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})
		}
		e.GET("/metrics", echo.WrapHandler(metricsHandler), middleware.MetricsBasicAuth(opts.MetricsAuth))
	}

	Register(e, h, opts.Tokens, opts.LoginLimiter)
	return e
}

// Register はAPIルートを登録する
func Register(e *echo.Echo, h Handlers, tokens middleware.TokenParser, loginLimiter echo.MiddlewareFunc) {
	e.GET("/health", h.Health.Check)

	v1 := e.Group("/api/v1")
	v1.GET("/health", h.Health.Check)

	// 来場者向け
	v1.GET("/concerts", h.Concert.List)
	v1.GET("/concerts/:id", h.Concert.GetByID)
	v1.POST("/concerts/:id/tickets", h.Ticket.Purchase)
	v1.GET("/tickets/:code", h.Ticket.GetStatus)

	// 入場ゲート
	v1.POST("/tickets/:code/check-in", h.Ticket.CheckIn)

	// 管理者
	var loginMiddleware []echo.MiddlewareFunc
	if loginLimiter != nil {
		loginMiddleware = append(loginMiddleware, loginLimiter)
	}
	v1.POST("/admin/login", h.Admin.Login, loginMiddleware...)
	admin := v1.Group("/admin", middleware.AdminAuth(tokens))
	admin.POST("/concerts", h.Admin.CreateConcert)
	admin.GET("/tickets", h.Admin.ListTickets)
	admin.GET("/concerts/:id/attendance", h.Admin.Attendance)
}

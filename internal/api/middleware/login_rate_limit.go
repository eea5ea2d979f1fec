package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-concert-checkin/internal/pkg/logger"
)

// LoginRateLimit は送信元IPごとにログイン試行回数を固定ウィンドウで制限する
// rdb が nil または limit が0以下なら何もしない。Redis障害時は制限せず通す
func LoginRateLimit(rdb *redis.Client, limit int, window time.Duration) echo.MiddlewareFunc {
	if rdb == nil || limit <= 0 || window <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			key := "ratelimit:login:" + ip

			ctx := c.Request().Context()
			var incr *redis.IntCmd
			var ttl *redis.DurationCmd
			// 期限はウィンドウの開始時だけ設定される（EXPIRE NX、Redis 7 以降）
			_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				incr = pipe.Incr(ctx, key)
				pipe.ExpireNX(ctx, key, window)
				ttl = pipe.PTTL(ctx, key)
				return nil
			})
			if err != nil {
				logger.Warn("ログイン試行回数の記録に失敗", zap.String("remote_ip", ip), zap.Error(err))
				return next(c)
			}

			count := incr.Val()
			remaining := int64(limit) - count
			if remaining < 0 {
				remaining = 0
			}
			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(limit) {
				retry := ttl.Val()
				if retry <= 0 {
					retry = window
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(int((retry+time.Second-1)/time.Second)))
				logger.Warn("ログイン試行回数の上限に達しました", zap.String("remote_ip", ip), zap.Int64("count", count))
				return echo.NewHTTPError(http.StatusTooManyRequests, "ログイン試行回数が多すぎます。しばらくしてから再度お試しください")
			}
			return next(c)
		}
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-concert-checkin/internal/api/handler"
	"github.com/sanosuguru/go-concert-checkin/internal/api/middleware"
	"github.com/sanosuguru/go-concert-checkin/internal/api/router"
	"github.com/sanosuguru/go-concert-checkin/internal/application"
	"github.com/sanosuguru/go-concert-checkin/internal/config"
	"github.com/sanosuguru/go-concert-checkin/internal/domain/concert"
	"github.com/sanosuguru/go-concert-checkin/internal/domain/ticket"
	"github.com/sanosuguru/go-concert-checkin/internal/infrastructure/filestore"
	"github.com/sanosuguru/go-concert-checkin/internal/infrastructure/postgres"
	"github.com/sanosuguru/go-concert-checkin/internal/infrastructure/rabbitmq"
	redisinfra "github.com/sanosuguru/go-concert-checkin/internal/infrastructure/redis"
	"github.com/sanosuguru/go-concert-checkin/internal/pkg/auth"
	"github.com/sanosuguru/go-concert-checkin/internal/pkg/logger"
	"github.com/sanosuguru/go-concert-checkin/internal/pkg/metrics"
	"github.com/sanosuguru/go-concert-checkin/internal/worker"
)

// @title Concert Check-in API
// @version 1.0
// @description コンサートチケットの発行と入場チェックのAPI
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// .env は任意（本番では環境変数を直接渡す）
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.Env)
	defer logger.Sync()

	m := metrics.Init()
	health := handler.NewHealthHandler()

	concertRepo, ticketRepo, closeStore := openStore(cfg, health)
	defer closeStore()

	opts := []application.TicketServiceOption{
		application.WithRetryPolicy(retryPolicy(cfg)),
		application.WithMetrics(m),
	}

	var loginLimiter echo.MiddlewareFunc
	if cfg.Redis.Enabled {
		rc := redisinfra.NewClient(&cfg.Redis)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := redisinfra.Ping(ctx, rc)
		cancel()
		if err != nil {
			// キャッシュは任意なので起動は続ける
			logger.Warn("Redisに接続できないため集計キャッシュを無効にします", zap.Error(err))
			rc.Close()
		} else {
			defer rc.Close()
			opts = append(opts, application.WithAttendanceCache(redisinfra.NewAttendanceCache(rc, cfg.Redis.CacheTTL)))
			health.AddCheck("redis", func(ctx context.Context) error { return redisinfra.Ping(ctx, rc) })
			loginLimiter = middleware.LoginRateLimit(rc, cfg.Admin.LoginRateLimit, cfg.Admin.LoginRateWindow)
			logger.Info("Redis集計キャッシュを有効にしました", zap.String("addr", cfg.Redis.Addr()))
		}
	}

	if cfg.RabbitMQ.URL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
		if err != nil {
			logger.Warn("RabbitMQに接続できないためイベント通知を無効にします", zap.Error(err))
		} else {
			defer pub.Close()
			opts = append(opts, application.WithEventPublisher(pub))
			logger.Info("イベント通知を有効にしました", zap.String("queue", cfg.RabbitMQ.Queue))
		}
	}

	concertService := application.NewConcertService(concertRepo, retryPolicy(cfg), m)
	ticketService := application.NewTicketService(concertRepo, ticketRepo, opts...)

	authenticator, tokens := setupAdminAuth(cfg.Admin)

	e := router.New(router.Handlers{
		Concert: handler.NewConcertHandler(concertService),
		Ticket:  handler.NewTicketHandler(ticketService),
		Admin:   handler.NewAdminHandler(concertService, ticketService, authenticator),
		Health:  health,
	}, router.Options{
		Tokens:       tokens,
		LoginLimiter: loginLimiter,
		Metrics:      m,
		MetricsAuth:  cfg.Metrics,
	})
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	// バックグラウンドワーカー
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	reporter := worker.NewAttendanceReporter(ticketService, m, cfg.Worker.AttendanceRefreshInterval)
	go reporter.Start(workerCtx)

	go func() {
		logger.Info("サーバーを起動します",
			zap.String("port", cfg.Server.Port),
			zap.String("env", cfg.Env),
			zap.String("store", cfg.Store.Driver),
		)
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	reporter.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("サーバーシャットダウンエラー", zap.Error(err))
		return
	}

	logger.Info("サーバーが正常にシャットダウンしました")
}

// openStore は設定されたドライバでストアを開く
func openStore(cfg *config.Config, health *handler.HealthHandler) (concert.Repository, ticket.Repository, func()) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := postgres.NewConnection(&cfg.Database)
		if err != nil {
			logger.Fatal("データベース接続エラー", zap.Error(err))
		}
		if err := postgres.RunMigrations(db.DB, cfg.Database.MigrationsPath); err != nil {
			logger.Fatal("マイグレーションエラー", zap.Error(err))
		}
		health.AddCheck("postgres", func(ctx context.Context) error { return postgres.Ping(ctx, db) })
		logger.Info("PostgreSQLストアを使用します", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))
		return postgres.NewConcertRepository(db), postgres.NewTicketRepository(db), func() { db.Close() }

	case config.StoreDriverFile:
		store, err := filestore.Open(cfg.Store.Path, filestore.Options{LockTimeout: cfg.Store.LockTimeout})
		if err != nil {
			// 壊れたスナップショットは空として扱わない
			logger.Fatal("ストアを開けません", zap.String("path", cfg.Store.Path), zap.Error(err))
		}
		logger.Info("ファイルストアを使用します", zap.String("path", store.Path()))
		return store.Concerts(), store.Tickets(), func() {}

	default:
		logger.Fatal("不明なストアドライバです", zap.String("driver", cfg.Store.Driver))
		return nil, nil, nil
	}
}

func retryPolicy(cfg *config.Config) application.RetryPolicy {
	return application.RetryPolicy{
		Attempts: cfg.Store.RetryAttempts,
		Delay:    cfg.Store.RetryDelay,
	}
}

// setupAdminAuth は管理者ログインとトークン検証を組み立てる
func setupAdminAuth(cfg config.AdminConfig) (*auth.Authenticator, *auth.TokenManager) {
	hash := cfg.PasswordHash
	if hash == "" && cfg.Password != "" {
		h, err := auth.HashPassword(cfg.Password)
		if err != nil {
			logger.Fatal("管理者パスワードのハッシュ化に失敗", zap.Error(err))
		}
		hash = h
		logger.Warn("ADMIN_PASSWORD を平文で受け取りました。ADMIN_PASSWORD_HASH の使用を推奨します")
	}
	if hash == "" {
		logger.Warn("管理者パスワードが未設定のため管理者APIは利用できません")
	}

	secret := cfg.JWTSecret
	if secret == "" {
		s, err := auth.RandomSecret()
		if err != nil {
			logger.Fatal("トークン署名鍵の生成に失敗", zap.Error(err))
		}
		secret = s
		logger.Warn("ADMIN_JWT_SECRET が未設定のため一時的な署名鍵を使います（再起動でトークンは無効になります）")
	}

	tokens := auth.NewTokenManager(secret, cfg.TokenTTL)
	return auth.NewAuthenticator(hash, tokens), tokens
}

package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-concert-checkin/internal/api/handler"
	"github.com/sanosuguru/go-concert-checkin/internal/api/router"
	"github.com/sanosuguru/go-concert-checkin/internal/application"
	"github.com/sanosuguru/go-concert-checkin/internal/config"
	"github.com/sanosuguru/go-concert-checkin/internal/domain/concert"
	"github.com/sanosuguru/go-concert-checkin/internal/domain/ticket"
	"github.com/sanosuguru/go-concert-checkin/internal/infrastructure/filestore"
	"github.com/sanosuguru/go-concert-checkin/internal/infrastructure/postgres"
	"github.com/sanosuguru/go-concert-checkin/internal/pkg/auth"
)

const adminPassword = "e2e-admin-password"

// TestServer はE2Eテスト用のサーバー
type TestServer struct {
	Echo *echo.Echo
	// StorePath はファイルストアのパス（PostgreSQL使用時は空）
	StorePath string
}

// NewTestServer はテスト用サーバーを作成する
// E2E_STORE=postgres のときはPostgreSQLを使い、未起動ならスキップする
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	return newTestServerAt(t, filepath.Join(t.TempDir(), "db.json"))
}

func newTestServerAt(t *testing.T, storePath string) *TestServer {
	t.Helper()

	var (
		concertRepo concert.Repository
		ticketRepo  ticket.Repository
	)
	if os.Getenv("E2E_STORE") == config.StoreDriverPostgres {
		cfg := config.Load()
		db, err := postgres.NewConnection(&cfg.Database)
		if err != nil {
			t.Skipf("DB接続エラー: %v", err)
		}
		if err := postgres.RunMigrations(db.DB, "../migrations"); err != nil {
			t.Fatalf("マイグレーションエラー: %v", err)
		}
		t.Cleanup(func() {
			db.Exec("DELETE FROM tickets")
			db.Exec("DELETE FROM concerts")
			db.Close()
		})
		concertRepo, ticketRepo = postgres.NewConcertRepository(db), postgres.NewTicketRepository(db)
		storePath = ""
	} else {
		store, err := filestore.Open(storePath, filestore.Options{LockTimeout: 2 * time.Second})
		require.NoError(t, err)
		concertRepo, ticketRepo = store.Concerts(), store.Tickets()
	}

	concertService := application.NewConcertService(concertRepo, application.DefaultRetryPolicy(), nil)
	ticketService := application.NewTicketService(concertRepo, ticketRepo)

	hash, err := auth.HashPassword(adminPassword)
	require.NoError(t, err)
	tokens := auth.NewTokenManager("e2e-secret", time.Hour)

	e := router.New(router.Handlers{
		Concert: handler.NewConcertHandler(concertService),
		Ticket:  handler.NewTicketHandler(ticketService),
		Admin:   handler.NewAdminHandler(concertService, ticketService, auth.NewAuthenticator(hash, tokens)),
		Health:  handler.NewHealthHandler(),
	}, router.Options{Tokens: tokens})

	return &TestServer{Echo: e, StorePath: storePath}
}

// Request はHTTPリクエストを実行する
func (s *TestServer) Request(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

// AdminHeaders は管理者としてログインし、認証ヘッダーを返す
func (s *TestServer) AdminHeaders(t *testing.T) map[string]string {
	t.Helper()
	rec := s.Request(http.MethodPost, "/api/v1/admin/login", map[string]string{"password": adminPassword}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return map[string]string{"Authorization": "Bearer " + resp["token"]}
}

// CreateConcert は管理者としてコンサートを登録し、IDを返す
func (s *TestServer) CreateConcert(t *testing.T, name string) string {
	t.Helper()
	rec := s.Request(http.MethodPost, "/api/v1/admin/concerts", map[string]string{
		"name": name, "venue": "Hall A", "date": "2025-05-01",
	}, s.AdminHeaders(t))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp["id"].(string)
}

// Purchase はチケットを購入し、入場コードを返す
func (s *TestServer) Purchase(t *testing.T, concertID, holder string) string {
	t.Helper()
	rec := s.Request(http.MethodPost, "/api/v1/concerts/"+concertID+"/tickets", map[string]string{"holder_name": holder}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp["code"].(string)
}

package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-concert-checkin/internal/api/handler"
	"github.com/sanosuguru/go-concert-checkin/internal/application"
	"github.com/sanosuguru/go-concert-checkin/internal/config"
	"github.com/sanosuguru/go-concert-checkin/internal/infrastructure/filestore"
	"github.com/sanosuguru/go-concert-checkin/internal/pkg/auth"
	"github.com/sanosuguru/go-concert-checkin/internal/pkg/metrics"
)

const adminPassword = "correct horse"

func newTestRouter(t *testing.T, opts Options) *echo.Echo {
	t.Helper()
	store, err := filestore.Open(filepath.Join(t.TempDir(), "db.json"), filestore.Options{})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	concerts := application.NewConcertService(store.Concerts(), application.DefaultRetryPolicy(), m)
	tickets := application.NewTicketService(store.Concerts(), store.Tickets(), application.WithMetrics(m))

	hash, err := auth.HashPassword(adminPassword)
	require.NoError(t, err)
	tokens := auth.NewTokenManager("router-test-secret", time.Hour)

	return New(Handlers{
		Concert: handler.NewConcertHandler(concerts),
		Ticket:  handler.NewTicketHandler(tickets),
		Admin:   handler.NewAdminHandler(concerts, tickets, auth.NewAuthenticator(hash, tokens)),
		Health:  handler.NewHealthHandler(),
	}, Options{
		Tokens:       tokens,
		LoginLimiter: opts.LoginLimiter,
		Metrics:      m,
		MetricsAuth:  opts.MetricsAuth,
		Gatherer:     reg,
	})
}

func do(e *echo.Echo, method, target, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, e *echo.Echo) string {
	t.Helper()
	rec := do(e, http.MethodPost, "/api/v1/admin/login", `{"password":"`+adminPassword+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp handler.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestRouter_Health(t *testing.T) {
	e := newTestRouter(t, Options{})

	for _, path := range []string{"/health", "/api/v1/health"} {
		rec := do(e, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRouter_AdminRoutesRequireToken(t *testing.T) {
	e := newTestRouter(t, Options{})

	routes := []struct{ method, path, body string }{
		{http.MethodPost, "/api/v1/admin/concerts", `{"name":"Aurora","venue":"Hall A","date":"2025-05-01"}`},
		{http.MethodGet, "/api/v1/admin/tickets", ""},
		{http.MethodGet, "/api/v1/admin/concerts/any/attendance", ""},
	}

	t.Run("トークンなしは401", func(t *testing.T) {
		for _, r := range routes {
			rec := do(e, r.method, r.path, r.body, "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code, r.path)
		}
	})

	t.Run("不正なトークンは401", func(t *testing.T) {
		for _, r := range routes {
			rec := do(e, r.method, r.path, r.body, "not-a-token")
			assert.Equal(t, http.StatusUnauthorized, rec.Code, r.path)
		}
	})

	t.Run("誤ったパスワードではログインできない", func(t *testing.T) {
		rec := do(e, http.MethodPost, "/api/v1/admin/login", `{"password":"wrong"}`, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRouter_TicketFlow(t *testing.T) {
	e := newTestRouter(t, Options{})
	token := login(t, e)

	rec := do(e, http.MethodPost, "/api/v1/admin/concerts", `{"name":"Aurora","venue":"Hall A","date":"2025-05-01"}`, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c handler.ConcertResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))

	rec = do(e, http.MethodPost, "/api/v1/concerts/"+c.ID+"/tickets", `{"holder_name":"Alice"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tk handler.TicketResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tk))

	rec = do(e, http.MethodPost, "/api/v1/tickets/"+tk.Code+"/check-in", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(e, http.MethodPost, "/api/v1/tickets/"+tk.Code+"/check-in", "", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(e, http.MethodGet, "/api/v1/admin/concerts/"+c.ID+"/attendance", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var a handler.AttendanceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, 1, a.Sold)
	assert.Equal(t, 1, a.CheckedIn)
}

func TestRouter_Metrics(t *testing.T) {
	t.Run("認証未設定なら誰でも取得できる", func(t *testing.T) {
		e := newTestRouter(t, Options{})
		do(e, http.MethodPost, "/api/v1/tickets/unknown/check-in", "", "")

		rec := do(e, http.MethodGet, "/metrics", "", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `checkins_total{result="not_found"} 1`)
		// チケットコードはラベルに含めない
		assert.Contains(t, body, `path="/api/v1/tickets/:code/check-in"`)
		assert.NotContains(t, body, "unknown")
	})

	t.Run("認証設定時はBasic認証が必要", func(t *testing.T) {
		e := newTestRouter(t, Options{MetricsAuth: config.MetricsConfig{User: "prom", Password: "scrape"}})

		rec := do(e, http.MethodGet, "/metrics", "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		req.SetBasicAuth("prom", "scrape")
		rec = httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRouter_UnknownRoute(t *testing.T) {
	e := newTestRouter(t, Options{})

	rec := do(e, http.MethodGet, "/api/v1/nowhere", "", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
}

func TestRouter_LoginLimiterOnlyOnLogin(t *testing.T) {
	reject := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many")
		}
	}
	e := newTestRouter(t, Options{LoginLimiter: reject})

	rec := do(e, http.MethodPost, "/api/v1/admin/login", `{"password":"`+adminPassword+`"}`, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = do(e, http.MethodGet, "/api/v1/concerts", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

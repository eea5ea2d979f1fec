package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/go-concert-checkin/internal/application"
	"github.com/sanosuguru/go-concert-checkin/internal/domain/concert"
	"github.com/sanosuguru/go-concert-checkin/internal/domain/ticket"
)

// MockConcertService はConcertServiceInterfaceのモック
type MockConcertService struct {
	mock.Mock
}

func (m *MockConcertService) CreateConcert(ctx context.Context, input application.CreateConcertInput) (*concert.Concert, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*concert.Concert), args.Error(1)
}

func (m *MockConcertService) GetConcert(ctx context.Context, id string) (*concert.Concert, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*concert.Concert), args.Error(1)
}

func (m *MockConcertService) ListConcerts(ctx context.Context) ([]*concert.Concert, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*concert.Concert), args.Error(1)
}

// MockTicketService はTicketServiceInterfaceのモック
type MockTicketService struct {
	mock.Mock
}

func (m *MockTicketService) PurchaseTicket(ctx context.Context, input application.PurchaseTicketInput) (*ticket.Ticket, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ticket.Ticket), args.Error(1)
}

func (m *MockTicketService) GetTicketStatus(ctx context.Context, code string) (*application.TicketView, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.TicketView), args.Error(1)
}

func (m *MockTicketService) CheckIn(ctx context.Context, code string) (application.CheckInOutcome, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(application.CheckInOutcome), args.Error(1)
}

func (m *MockTicketService) ListSoldTickets(ctx context.Context) ([]application.TicketSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]application.TicketSummary), args.Error(1)
}

func (m *MockTicketService) GetAttendance(ctx context.Context, concertID string) (*application.Attendance, error) {
	args := m.Called(ctx, concertID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.Attendance), args.Error(1)
}

// MockAuthenticator はAuthenticatorInterfaceのモック
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(password string) (string, time.Time, error) {
	args := m.Called(password)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

// serve はルートを登録してリクエストを処理する
func serve(method, route, target, body string, h echo.HandlerFunc) *httptest.ResponseRecorder {
	e := NewTestEcho()
	e.Add(method, route, h)

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

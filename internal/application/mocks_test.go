package application

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/go-concert-checkin/internal/domain/concert"
	"github.com/sanosuguru/go-concert-checkin/internal/domain/ticket"
)

// MockConcertRepository はconcert.Repositoryのモック
type MockConcertRepository struct {
	mock.Mock
}

func (m *MockConcertRepository) Create(ctx context.Context, c *concert.Concert) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockConcertRepository) GetByID(ctx context.Context, id string) (*concert.Concert, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*concert.Concert), args.Error(1)
}

func (m *MockConcertRepository) List(ctx context.Context) ([]*concert.Concert, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*concert.Concert), args.Error(1)
}

// MockTicketRepository はticket.Repositoryのモック
type MockTicketRepository struct {
	mock.Mock
}

func (m *MockTicketRepository) Create(ctx context.Context, t *ticket.Ticket) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTicketRepository) GetByCode(ctx context.Context, code string) (*ticket.Ticket, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ticket.Ticket), args.Error(1)
}

func (m *MockTicketRepository) List(ctx context.Context) ([]*ticket.Ticket, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ticket.Ticket), args.Error(1)
}

func (m *MockTicketRepository) CompareAndSetCheckedIn(ctx context.Context, code string, at time.Time) (ticket.CheckInResult, error) {
	args := m.Called(ctx, code, at)
	return args.Get(0).(ticket.CheckInResult), args.Error(1)
}

func (m *MockTicketRepository) CountByConcert(ctx context.Context, concertID string) (ticket.Counts, error) {
	args := m.Called(ctx, concertID)
	return args.Get(0).(ticket.Counts), args.Error(1)
}

// MockAttendanceCache はAttendanceCacheのモック
type MockAttendanceCache struct {
	mock.Mock
}

func (m *MockAttendanceCache) Get(ctx context.Context, concertID string) (ticket.Counts, error) {
	args := m.Called(ctx, concertID)
	return args.Get(0).(ticket.Counts), args.Error(1)
}

func (m *MockAttendanceCache) Set(ctx context.Context, concertID string, counts ticket.Counts) error {
	args := m.Called(ctx, concertID, counts)
	return args.Error(0)
}

func (m *MockAttendanceCache) Invalidate(ctx context.Context, concertID string) error {
	args := m.Called(ctx, concertID)
	return args.Error(0)
}

// MockEventPublisher はEventPublisherのモック
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, ev ticket.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

package handler

import (
	"context"
	"time"

	"github.com/sanosuguru/go-concert-checkin/internal/application"
	"github.com/sanosuguru/go-concert-checkin/internal/domain/concert"
	"github.com/sanosuguru/go-concert-checkin/internal/domain/ticket"
)

// ConcertServiceInterface はコンサートサービスのインターフェース
type ConcertServiceInterface interface {
	CreateConcert(ctx context.Context, input application.CreateConcertInput) (*concert.Concert, error)
	GetConcert(ctx context.Context, id string) (*concert.Concert, error)
	ListConcerts(ctx context.Context) ([]*concert.Concert, error)
}

// TicketServiceInterface はチケットサービスのインターフェース
type TicketServiceInterface interface {
	PurchaseTicket(ctx context.Context, input application.PurchaseTicketInput) (*ticket.Ticket, error)
	GetTicketStatus(ctx context.Context, code string) (*application.TicketView, error)
	CheckIn(ctx context.Context, code string) (application.CheckInOutcome, error)
	ListSoldTickets(ctx context.Context) ([]application.TicketSummary, error)
	GetAttendance(ctx context.Context, concertID string) (*application.Attendance, error)
}

// AuthenticatorInterface は管理者ログインのインターフェース
type AuthenticatorInterface interface {
	Login(password string) (string, time.Time, error)
}

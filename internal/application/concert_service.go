package application

import (
	"context"
	"fmt"
	"time"

	"github.com/sanosuguru/go-concert-checkin/internal/domain/concert"
	"github.com/sanosuguru/go-concert-checkin/internal/pkg/metrics"
)

type ConcertService struct {
	concertRepo concert.Repository
	retry       RetryPolicy
	metrics     *metrics.Metrics
}

func NewConcertService(concertRepo concert.Repository, retry RetryPolicy, m *metrics.Metrics) *ConcertService {
	return &ConcertService{concertRepo: concertRepo, retry: retry, metrics: m}
}

type CreateConcertInput struct {
	Name  string
	Venue string
	Date  string
}

// CreateConcert はコンサートを登録する
// 呼び出し元が管理者であることは上位層で確認済みであること
func (s *ConcertService) CreateConcert(ctx context.Context, input CreateConcertInput) (*concert.Concert, error) {
	c := concert.NewConcert(input.Name, input.Venue, input.Date)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	start := time.Now()
	err := s.retry.do(ctx, "create_concert", func() error {
		return s.concertRepo.Create(ctx, c)
	})
	s.metrics.ObserveStore("create_concert", start, err)
	if err != nil {
		return nil, fmt.Errorf("コンサート作成に失敗しました: %w", err)
	}
	return c, nil
}

func (s *ConcertService) GetConcert(ctx context.Context, id string) (*concert.Concert, error) {
	return s.concertRepo.GetByID(ctx, id)
}

func (s *ConcertService) ListConcerts(ctx context.Context) ([]*concert.Concert, error) {
	return s.concertRepo.List(ctx)
}

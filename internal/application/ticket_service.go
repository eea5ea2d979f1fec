package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-concert-checkin/internal/domain/concert"
	"github.com/sanosuguru/go-concert-checkin/internal/domain/ticket"
	"github.com/sanosuguru/go-concert-checkin/internal/pkg/logger"
	"github.com/sanosuguru/go-concert-checkin/internal/pkg/metrics"
)

// CheckInOutcome はチェックインの判定結果
type CheckInOutcome string

const (
	// CheckInAdmitted は入場を許可した（この呼び出しが入場済みにした）
	CheckInAdmitted CheckInOutcome = "admitted"
	// CheckInAlreadyUsed はチケットは有効だが既に入場済み
	CheckInAlreadyUsed CheckInOutcome = "already_used"
	// CheckInNotFound はチケットが存在しない
	CheckInNotFound CheckInOutcome = "not_found"
)

// AttendanceCache はコンサートごとの販売数・入場数のキャッシュ
type AttendanceCache interface {
	Get(ctx context.Context, concertID string) (ticket.Counts, error)
	Set(ctx context.Context, concertID string, counts ticket.Counts) error
	Invalidate(ctx context.Context, concertID string) error
}

// EventPublisher は確定したチケット操作を外部へ通知する
type EventPublisher interface {
	Publish(ctx context.Context, event ticket.Event) error
}

// publishTimeout は通知1件あたりの待ち時間上限
const publishTimeout = 3 * time.Second

type TicketService struct {
	concertRepo concert.Repository
	ticketRepo  ticket.Repository
	retry       RetryPolicy
	metrics     *metrics.Metrics
	cache       AttendanceCache
	publisher   EventPublisher
	now         func() time.Time
}

// TicketServiceOption は TicketService の任意設定
type TicketServiceOption func(*TicketService)

// WithRetryPolicy はストア混雑時の再試行方針を設定する
func WithRetryPolicy(p RetryPolicy) TicketServiceOption {
	return func(s *TicketService) { s.retry = p }
}

// WithMetrics はメトリクスを設定する
func WithMetrics(m *metrics.Metrics) TicketServiceOption {
	return func(s *TicketService) { s.metrics = m }
}

// WithAttendanceCache は集計キャッシュを設定する
func WithAttendanceCache(c AttendanceCache) TicketServiceOption {
	return func(s *TicketService) { s.cache = c }
}

// WithEventPublisher はイベント通知先を設定する
func WithEventPublisher(p EventPublisher) TicketServiceOption {
	return func(s *TicketService) { s.publisher = p }
}

func NewTicketService(concertRepo concert.Repository, ticketRepo ticket.Repository, opts ...TicketServiceOption) *TicketService {
	s := &TicketService{
		concertRepo: concertRepo,
		ticketRepo:  ticketRepo,
		retry:       DefaultRetryPolicy(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type PurchaseTicketInput struct {
	ConcertID  string
	HolderName string
}

// TicketView は表示用のチケット状態
type TicketView struct {
	Code        string
	HolderName  string
	ConcertID   string
	CheckedIn   bool
	CheckedInAt *time.Time
}

// TicketSummary は管理者向けの販売一覧の1行
type TicketSummary struct {
	HolderName string
	Code       string
	ConcertID  string
	CheckedIn  bool
}

// Attendance はコンサートの販売数と入場数
type Attendance struct {
	ConcertID   string
	ConcertName string
	Sold        int
	CheckedIn   int
}

// PurchaseTicket はチケットを発行する
func (s *TicketService) PurchaseTicket(ctx context.Context, input PurchaseTicketInput) (*ticket.Ticket, error) {
	t := ticket.NewTicket(strings.TrimSpace(input.ConcertID), input.HolderName)
	if t.HolderName == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, ticket.ErrHolderNameRequired)
	}
	if t.ConcertID == "" {
		return nil, concert.ErrConcertNotFound
	}
	if _, err := s.concertRepo.GetByID(ctx, t.ConcertID); err != nil {
		return nil, err
	}

	start := time.Now()
	err := s.retry.do(ctx, "purchase_ticket", func() error {
		return s.ticketRepo.Create(ctx, t)
	})
	s.metrics.ObserveStore("purchase_ticket", start, err)
	if err != nil {
		if errors.Is(err, concert.ErrConcertNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("チケット発行に失敗しました: %w", err)
	}

	s.metrics.CountIssued()
	logger.Info("チケットを発行しました",
		zap.String("concert_id", t.ConcertID),
		zap.String("code", t.Code),
	)
	s.afterCommit(ctx, ticket.NewEvent(ticket.EventPurchased, t, t.IssuedAt))
	return t, nil
}

// GetTicketStatus はチケットの状態を返す（読み取りのみ）
func (s *TicketService) GetTicketStatus(ctx context.Context, code string) (*TicketView, error) {
	t, err := s.ticketRepo.GetByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	return &TicketView{
		Code:        t.Code,
		HolderName:  t.HolderName,
		ConcertID:   t.ConcertID,
		CheckedIn:   t.CheckedIn,
		CheckedInAt: t.CheckedInAt,
	}, nil
}

// CheckIn は入場可否を判定し、許可した場合はチケットを入場済みにする
// 排他はストアの CompareAndSetCheckedIn に委ね、ここではロックを取らない。
// エラーが返るのはストア障害のときだけ
func (s *TicketService) CheckIn(ctx context.Context, code string) (CheckInOutcome, error) {
	code = strings.TrimSpace(code)

	start := time.Now()
	var result ticket.CheckInResult
	err := s.retry.do(ctx, "check_in", func() error {
		var err error
		result, err = s.ticketRepo.CompareAndSetCheckedIn(ctx, code, s.now())
		return err
	})
	s.metrics.ObserveStore("check_in", start, err)
	if err != nil {
		s.metrics.CountCheckIn("error")
		return "", fmt.Errorf("チェックインに失敗しました: %w", err)
	}

	var outcome CheckInOutcome
	switch result {
	case ticket.CheckInSucceeded:
		outcome = CheckInAdmitted
	case ticket.CheckInAlreadyCheckedIn:
		outcome = CheckInAlreadyUsed
	case ticket.CheckInNotFound:
		outcome = CheckInNotFound
	default:
		return "", fmt.Errorf("不明なチェックイン結果です: %s", result)
	}
	s.metrics.CountCheckIn(string(outcome))

	if outcome == CheckInAdmitted {
		logger.Info("入場を許可しました", zap.String("code", code))
		// 入場済みは戻らないので、読み直した値は確定している
		t, err := s.ticketRepo.GetByCode(ctx, code)
		if err != nil {
			logger.Warn("入場後のチケット取得に失敗", zap.String("code", code), zap.Error(err))
			return outcome, nil
		}
		at := s.now()
		if t.CheckedInAt != nil {
			at = *t.CheckedInAt
		}
		s.afterCommit(ctx, ticket.NewEvent(ticket.EventCheckedIn, t, at))
	}
	return outcome, nil
}

// ListSoldTickets は発行順の販売一覧を返す
// 呼び出し元が管理者であることは上位層で確認済みであること
func (s *TicketService) ListSoldTickets(ctx context.Context) ([]TicketSummary, error) {
	tickets, err := s.ticketRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]TicketSummary, len(tickets))
	for i, t := range tickets {
		summaries[i] = TicketSummary{
			HolderName: t.HolderName,
			Code:       t.Code,
			ConcertID:  t.ConcertID,
			CheckedIn:  t.CheckedIn,
		}
	}
	return summaries, nil
}

// GetAttendance はコンサートの販売数と入場数を返す
// キャッシュがあれば優先し、無ければストアで集計してキャッシュする
func (s *TicketService) GetAttendance(ctx context.Context, concertID string) (*Attendance, error) {
	c, err := s.concertRepo.GetByID(ctx, concertID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if counts, err := s.cache.Get(ctx, c.ID); err == nil {
			return newAttendance(c, counts), nil
		}
	}

	counts, err := s.ticketRepo.CountByConcert(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("入場状況の集計に失敗しました: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, c.ID, counts); err != nil {
			logger.Warn("入場状況のキャッシュ保存に失敗", zap.String("concert_id", c.ID), zap.Error(err))
		}
	}
	return newAttendance(c, counts), nil
}

func newAttendance(c *concert.Concert, counts ticket.Counts) *Attendance {
	return &Attendance{
		ConcertID:   c.ID,
		ConcertName: c.Name,
		Sold:        counts.Sold,
		CheckedIn:   counts.CheckedIn,
	}
}

// afterCommit は確定済みの変更に付随する処理を行う
// ここでの失敗はログに残すだけで、確定した操作の結果は変えない
func (s *TicketService) afterCommit(ctx context.Context, ev ticket.Event) {
	ctx = context.WithoutCancel(ctx)

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, ev.ConcertID); err != nil {
			logger.Warn("入場状況キャッシュの無効化に失敗",
				zap.String("concert_id", ev.ConcertID),
				zap.Error(err),
			)
		}
	}

	if s.publisher != nil {
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		if err := s.publisher.Publish(pubCtx, ev); err != nil {
			logger.Warn("イベントの通知に失敗",
				zap.String("type", string(ev.Type)),
				zap.String("code", ev.Code),
				zap.Error(err),
			)
		}
	}
}

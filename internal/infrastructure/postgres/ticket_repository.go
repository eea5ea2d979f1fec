package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-concert-checkin/internal/domain/concert"
	"github.com/sanosuguru/go-concert-checkin/internal/domain/persistence"
	"github.com/sanosuguru/go-concert-checkin/internal/domain/ticket"
)

type ticketRow struct {
	Code        string     `db:"code"`
	HolderName  string     `db:"holder_name"`
	ConcertID   string     `db:"concert_id"`
	CheckedIn   bool       `db:"checked_in"`
	CheckedInAt *time.Time `db:"checked_in_at"`
	IssuedAt    time.Time  `db:"issued_at"`
}

func (r *ticketRow) toEntity() *ticket.Ticket {
	return &ticket.Ticket{
		Code: r.Code, HolderName: r.HolderName, ConcertID: r.ConcertID,
		CheckedIn: r.CheckedIn, CheckedInAt: r.CheckedInAt, IssuedAt: r.IssuedAt,
	}
}

const ticketColumns = `code, holder_name, concert_id, checked_in, checked_in_at, issued_at`

// TicketRepository はチケットリポジトリのPostgreSQL実装
type TicketRepository struct {
	db      *sqlx.DB
	newCode func() (string, error)
}

// NewTicketRepository はTicketRepositoryを作成する
func NewTicketRepository(db *sqlx.DB) *TicketRepository {
	return &TicketRepository{db: db, newCode: ticket.NewCode}
}

// Create はチケットを発行する
// コードの一意性は主キー制約で保証し、衝突時は再生成する
func (r *TicketRepository) Create(ctx context.Context, t *ticket.Ticket) error {
	query := `INSERT INTO tickets (code, holder_name, concert_id, checked_in, issued_at) VALUES ($1, $2, $3, FALSE, $4)`

	for attempt := 0; attempt < ticket.MaxCodeAttempts; attempt++ {
		code, err := r.newCode()
		if err != nil {
			return persistence.Unavailable("チケットコード採番", err)
		}
		_, err = r.db.ExecContext(ctx, query, code, t.HolderName, t.ConcertID, t.IssuedAt)
		switch {
		case err == nil:
			t.Code = code
			t.CheckedIn = false
			t.CheckedInAt = nil
			return nil
		case isUniqueViolation(err):
			continue
		case isForeignKeyViolation(err), isInvalidUUID(err):
			return concert.ErrConcertNotFound
		default:
			return unavailable("チケット作成", err)
		}
	}
	return fmt.Errorf("%w: %w", persistence.ErrStoreUnavailable, ticket.ErrCodeExhausted)
}

// GetByCode はコードからチケットを取得する
func (r *TicketRepository) GetByCode(ctx context.Context, code string) (*ticket.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE code = $1`

	var row ticketRow
	if err := r.db.GetContext(ctx, &row, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ticket.ErrTicketNotFound
		}
		return nil, unavailable("チケット取得", err)
	}
	return row.toEntity(), nil
}

// List は発行順にチケット一覧を取得する
func (r *TicketRepository) List(ctx context.Context) ([]*ticket.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets ORDER BY seq`

	var rows []ticketRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, unavailable("チケット一覧取得", err)
	}
	tickets := make([]*ticket.Ticket, len(rows))
	for i := range rows {
		tickets[i] = rows[i].toEntity()
	}
	return tickets, nil
}

// CompareAndSetCheckedIn は未入場のチケットだけを入場済みにする
// 条件付きUPDATEは行ロックを取るため、同一コードへの同時実行で1行を更新できるのは1件だけ
func (r *TicketRepository) CompareAndSetCheckedIn(ctx context.Context, code string, at time.Time) (ticket.CheckInResult, error) {
	query := `UPDATE tickets SET checked_in = TRUE, checked_in_at = $2 WHERE code = $1 AND checked_in = FALSE`

	result, err := r.db.ExecContext(ctx, query, code, at.UTC())
	if err != nil {
		return 0, unavailable("チェックイン", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, unavailable("チェックイン結果の確認", err)
	}
	if rows == 1 {
		return ticket.CheckInSucceeded, nil
	}

	// 更新できなかった理由を判別する（入場済みは戻らないので後から読んでも正しい）
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM tickets WHERE code = $1)`, code); err != nil {
		return 0, unavailable("チケット存在確認", err)
	}
	if exists {
		return ticket.CheckInAlreadyCheckedIn, nil
	}
	return ticket.CheckInNotFound, nil
}

// CountByConcert はコンサートの販売数・入場数を集計する
func (r *TicketRepository) CountByConcert(ctx context.Context, concertID string) (ticket.Counts, error) {
	query := `SELECT COUNT(*) AS sold, COUNT(*) FILTER (WHERE checked_in) AS checked_in FROM tickets WHERE concert_id::text = $1`

	var row struct {
		Sold      int `db:"sold"`
		CheckedIn int `db:"checked_in"`
	}
	if err := r.db.GetContext(ctx, &row, query, concertID); err != nil {
		return ticket.Counts{}, unavailable("入場数集計", err)
	}
	return ticket.Counts{Sold: row.Sold, CheckedIn: row.CheckedIn}, nil
}

var _ ticket.Repository = (*TicketRepository)(nil)

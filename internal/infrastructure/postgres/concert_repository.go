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
)

// concertRow はDBの行を表す構造体
type concertRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Venue     string    `db:"venue"`
	Date      string    `db:"date"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *concertRow) toEntity() *concert.Concert {
	return &concert.Concert{
		ID:        r.ID,
		Name:      r.Name,
		Venue:     r.Venue,
		Date:      r.Date,
		CreatedAt: r.CreatedAt,
	}
}

// ConcertRepository はコンサートリポジトリのPostgreSQL実装
type ConcertRepository struct {
	db    *sqlx.DB
	newID func() (string, error)
}

// NewConcertRepository はConcertRepositoryを作成する
func NewConcertRepository(db *sqlx.DB) *ConcertRepository {
	return &ConcertRepository{db: db, newID: concert.NewID}
}

// Create は新しいコンサートを作成する
func (r *ConcertRepository) Create(ctx context.Context, c *concert.Concert) error {
	query := `INSERT INTO concerts (id, name, venue, date, created_at) VALUES ($1, $2, $3, $4, $5)`

	for attempt := 0; attempt < concert.MaxIDAttempts; attempt++ {
		id, err := r.newID()
		if err != nil {
			return persistence.Unavailable("コンサートID採番", err)
		}
		_, err = r.db.ExecContext(ctx, query, id, c.Name, c.Venue, c.Date, c.CreatedAt)
		if err == nil {
			c.ID = id
			return nil
		}
		if isUniqueViolation(err) {
			continue
		}
		return unavailable("コンサート作成", err)
	}
	return fmt.Errorf("%w: コンサートIDの採番に失敗しました", persistence.ErrStoreUnavailable)
}

// GetByID はIDからコンサートを取得する
func (r *ConcertRepository) GetByID(ctx context.Context, id string) (*concert.Concert, error) {
	query := `SELECT id, name, venue, date, created_at FROM concerts WHERE id = $1`

	var row concertRow
	err := r.db.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidUUID(err) {
			return nil, concert.ErrConcertNotFound
		}
		return nil, unavailable("コンサート取得", err)
	}
	return row.toEntity(), nil
}

// List は作成順にコンサート一覧を取得する
func (r *ConcertRepository) List(ctx context.Context) ([]*concert.Concert, error) {
	query := `SELECT id, name, venue, date, created_at FROM concerts ORDER BY seq`

	var rows []concertRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, unavailable("コンサート一覧取得", err)
	}

	concerts := make([]*concert.Concert, len(rows))
	for i := range rows {
		concerts[i] = rows[i].toEntity()
	}
	return concerts, nil
}

// インターフェースを満たしているか確認
var _ concert.Repository = (*ConcertRepository)(nil)

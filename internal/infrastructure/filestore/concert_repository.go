package filestore

import (
	"context"
	"fmt"

	"github.com/sanosuguru/go-concert-checkin/internal/domain/concert"
	"github.com/sanosuguru/go-concert-checkin/internal/domain/persistence"
)

// ConcertRepository はコンサートリポジトリのファイルストア実装
type ConcertRepository struct {
	store *Store
}

// Create は新しいコンサートを保存する
func (r *ConcertRepository) Create(ctx context.Context, c *concert.Concert) error {
	var assigned string
	err := r.store.mutate(ctx, "コンサート作成", func(next *state) (bool, error) {
		for attempt := 0; attempt < concert.MaxIDAttempts; attempt++ {
			id, err := r.store.newConcertID()
			if err != nil {
				return false, persistence.Unavailable("コンサートID採番", err)
			}
			if _, exists := next.concertIndex[id]; exists {
				continue
			}
			next.addConcert(concertRecord{
				ID: id, Name: c.Name, Venue: c.Venue, Date: c.Date, CreatedAt: c.CreatedAt,
			})
			assigned = id
			return true, nil
		}
		return false, fmt.Errorf("%w: コンサートIDの採番に失敗しました", persistence.ErrStoreUnavailable)
	})
	if err != nil {
		return err
	}
	c.ID = assigned
	return nil
}

// GetByID はIDからコンサートを取得する
func (r *ConcertRepository) GetByID(ctx context.Context, id string) (*concert.Concert, error) {
	st := r.store.current()
	idx, ok := st.concertIndex[id]
	if !ok {
		return nil, concert.ErrConcertNotFound
	}
	return st.concerts[idx].toEntity(), nil
}

// List は作成順にコンサート一覧を返す
func (r *ConcertRepository) List(ctx context.Context) ([]*concert.Concert, error) {
	st := r.store.current()
	concerts := make([]*concert.Concert, len(st.concerts))
	for i, rec := range st.concerts {
		concerts[i] = rec.toEntity()
	}
	return concerts, nil
}

var _ concert.Repository = (*ConcertRepository)(nil)

package filestore

import (
	"context"
	"fmt"
	"time"

	"github.com/sanosuguru/go-concert-checkin/internal/domain/concert"
	"github.com/sanosuguru/go-concert-checkin/internal/domain/persistence"
	"github.com/sanosuguru/go-concert-checkin/internal/domain/ticket"
)

// TicketRepository はチケットリポジトリのファイルストア実装
type TicketRepository struct {
	store *Store
}

// Create はチケットを保存し、既存コードと衝突しないコードを採番する
// 参照先コンサートが存在しない場合は concert.ErrConcertNotFound を返す
func (r *TicketRepository) Create(ctx context.Context, t *ticket.Ticket) error {
	var assigned string
	err := r.store.mutate(ctx, "チケット作成", func(next *state) (bool, error) {
		if _, ok := next.concertIndex[t.ConcertID]; !ok {
			return false, concert.ErrConcertNotFound
		}
		for attempt := 0; attempt < ticket.MaxCodeAttempts; attempt++ {
			code, err := r.store.newCode()
			if err != nil {
				return false, persistence.Unavailable("チケットコード採番", err)
			}
			if _, exists := next.ticketIndex[code]; exists {
				continue
			}
			next.addTicket(ticketRecord{
				Code: code, HolderName: t.HolderName, ConcertID: t.ConcertID,
				CheckedIn: false, IssuedAt: t.IssuedAt,
			})
			assigned = code
			return true, nil
		}
		return false, fmt.Errorf("%w: %w", persistence.ErrStoreUnavailable, ticket.ErrCodeExhausted)
	})
	if err != nil {
		return err
	}
	t.Code = assigned
	t.CheckedIn = false
	t.CheckedInAt = nil
	return nil
}

// GetByCode はコードからチケットを取得する
func (r *TicketRepository) GetByCode(ctx context.Context, code string) (*ticket.Ticket, error) {
	st := r.store.current()
	idx, ok := st.ticketIndex[code]
	if !ok {
		return nil, ticket.ErrTicketNotFound
	}
	return st.tickets[idx].toEntity(), nil
}

// List は発行順にチケット一覧を返す
func (r *TicketRepository) List(ctx context.Context) ([]*ticket.Ticket, error) {
	st := r.store.current()
	tickets := make([]*ticket.Ticket, len(st.tickets))
	for i, rec := range st.tickets {
		tickets[i] = rec.toEntity()
	}
	return tickets, nil
}

// CompareAndSetCheckedIn は未入場のチケットを入場済みにする
func (r *TicketRepository) CompareAndSetCheckedIn(ctx context.Context, code string, at time.Time) (ticket.CheckInResult, error) {
	// 入場済みは戻らないため、読み取りだけで確定できる結果はロックを取らずに返す
	st := r.store.current()
	idx, ok := st.ticketIndex[code]
	if ok && st.tickets[idx].CheckedIn {
		return ticket.CheckInAlreadyCheckedIn, nil
	}

	var result ticket.CheckInResult
	err := r.store.mutate(ctx, "チェックイン", func(next *state) (bool, error) {
		idx, ok := next.ticketIndex[code]
		if !ok {
			result = ticket.CheckInNotFound
			return false, nil
		}
		if next.tickets[idx].CheckedIn {
			result = ticket.CheckInAlreadyCheckedIn
			return false, nil
		}
		checkedAt := at.UTC()
		next.tickets[idx].CheckedIn = true
		next.tickets[idx].CheckedInAt = &checkedAt
		result = ticket.CheckInSucceeded
		return true, nil
	})
	if err != nil {
		return 0, err
	}
	return result, nil
}

// CountByConcert はコンサートの販売数・入場数を集計する
func (r *TicketRepository) CountByConcert(ctx context.Context, concertID string) (ticket.Counts, error) {
	st := r.store.current()
	var counts ticket.Counts
	for _, rec := range st.tickets {
		if rec.ConcertID != concertID {
			continue
		}
		counts.Sold++
		if rec.CheckedIn {
			counts.CheckedIn++
		}
	}
	return counts, nil
}

var _ ticket.Repository = (*TicketRepository)(nil)

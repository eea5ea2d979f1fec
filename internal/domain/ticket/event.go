package ticket

import "time"

// EventType はチケットのドメインイベント種別
type EventType string

const (
	EventPurchased EventType = "ticket.purchased"
	EventCheckedIn EventType = "ticket.checked_in"
)

// Event は確定したチケット操作を外部へ通知するためのイベント
type Event struct {
	Type       EventType `json:"type"`
	Code       string    `json:"code"`
	ConcertID  string    `json:"concert_id"`
	HolderName string    `json:"holder_name"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent はチケットの現在値からイベントを作成する
func NewEvent(typ EventType, t *Ticket, at time.Time) Event {
	return Event{
		Type:       typ,
		Code:       t.Code,
		ConcertID:  t.ConcertID,
		HolderName: t.HolderName,
		OccurredAt: at.UTC(),
	}
}

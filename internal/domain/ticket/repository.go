package ticket

import (
	"context"
	"time"
)

// CheckInResult は入場処理（compare-and-set）の結果
type CheckInResult int

const (
	// CheckInSucceeded はこの呼び出しが未入場→入場済みへの遷移を行ったことを示す
	CheckInSucceeded CheckInResult = iota + 1
	// CheckInAlreadyCheckedIn は既に入場済みだったことを示す
	CheckInAlreadyCheckedIn
	// CheckInNotFound はコードが存在しないことを示す
	CheckInNotFound
)

func (r CheckInResult) String() string {
	switch r {
	case CheckInSucceeded:
		return "succeeded"
	case CheckInAlreadyCheckedIn:
		return "already_checked_in"
	case CheckInNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Counts はコンサート単位の販売数・入場数
type Counts struct {
	Sold      int
	CheckedIn int
}

// Repository はチケットリポジトリのインターフェース
type Repository interface {
	// Create はチケットを永続化し、衝突しないコードを採番して t.Code に設定する
	Create(ctx context.Context, t *Ticket) error

	// GetByCode はコードからチケットを取得する
	GetByCode(ctx context.Context, code string) (*Ticket, error)

	// List は発行順にチケット一覧を取得する
	List(ctx context.Context) ([]*Ticket, error)

	// CompareAndSetCheckedIn は未入場のチケットだけを入場済みにする
	// 同一コードへの同時呼び出しのうち CheckInSucceeded を受け取るのは1件のみ
	// error はストア障害の場合にのみ返る
	CompareAndSetCheckedIn(ctx context.Context, code string, at time.Time) (CheckInResult, error)

	// CountByConcert はコンサートごとの販売数・入場数を集計する
	CountByConcert(ctx context.Context, concertID string) (Counts, error)
}

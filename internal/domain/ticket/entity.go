package ticket

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Ticket はコンサート1公演分の入場券を表す
// Code がチケット保有者の唯一の認証情報となる
type Ticket struct {
	Code        string
	HolderName  string
	ConcertID   string
	CheckedIn   bool
	CheckedInAt *time.Time
	IssuedAt    time.Time
}

// NewTicket は未入場状態のチケットを作成する（Codeはストアが採番する）
func NewTicket(concertID, holderName string) *Ticket {
	return &Ticket{
		HolderName: strings.TrimSpace(holderName),
		ConcertID:  concertID,
		CheckedIn:  false,
		IssuedAt:   time.Now().UTC(),
	}
}

// Validate はチケットの検証を行う
func (t *Ticket) Validate() error {
	if strings.TrimSpace(t.HolderName) == "" {
		return ErrHolderNameRequired
	}
	if t.ConcertID == "" {
		return ErrConcertIDRequired
	}
	return nil
}

// Status はチケットの状態名を返す
func (t *Ticket) Status() Status {
	if t.CheckedIn {
		return StatusCheckedIn
	}
	return StatusIssued
}

// Status はチケットの状態を表す
type Status string

const (
	StatusIssued    Status = "issued"
	StatusCheckedIn Status = "checked_in"
)

// NewCode はチケットコードを生成する
// UUIDv4 は122ビットの乱数を含み、推測による偽造は現実的でない
func NewCode() (string, error) {
	code, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("チケットコードの生成に失敗: %w", err)
	}
	return code.String(), nil
}

// MaxCodeAttempts はコード衝突時の再生成上限
const MaxCodeAttempts = 5

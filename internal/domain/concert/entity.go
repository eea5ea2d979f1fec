package concert

import (
	"strings"
	"time"
)

// Concert はチケット販売対象のコンサートを表す
// 作成後は変更されない
type Concert struct {
	ID        string
	Name      string
	Venue     string
	Date      string
	CreatedAt time.Time
}

// NewConcert は新しいコンサートを作成する（IDはストアが採番する）
func NewConcert(name, venue, date string) *Concert {
	return &Concert{
		Name:      strings.TrimSpace(name),
		Venue:     strings.TrimSpace(venue),
		Date:      strings.TrimSpace(date),
		CreatedAt: time.Now().UTC(),
	}
}

// Validate はコンサートの検証を行う
func (c *Concert) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrNameRequired
	}
	if strings.TrimSpace(c.Venue) == "" {
		return ErrVenueRequired
	}
	if strings.TrimSpace(c.Date) == "" {
		return ErrDateRequired
	}
	return nil
}

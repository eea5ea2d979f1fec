package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-concert-checkin/internal/domain/persistence"
	"github.com/sanosuguru/go-concert-checkin/internal/pkg/logger"
)

// RetryPolicy はストアが混雑しているときの再試行方針
// 再試行するのは persistence.ErrStoreBusy（何も書き込まれていない）だけで、
// 結果が確定しない障害は即座に返す
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy はデフォルトの再試行方針を返す
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Delay: 50 * time.Millisecond}
}

func (p RetryPolicy) do(ctx context.Context, op string, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			logger.Warn("ストアが混雑しているため再試行します",
				zap.String("op", op),
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			timer := time.NewTimer(p.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return err
			case <-timer.C:
			}
		}
		err = fn()
		if err == nil || !persistence.IsRetryable(err) {
			return err
		}
	}
	return err
}

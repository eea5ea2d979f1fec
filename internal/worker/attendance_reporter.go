package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-concert-checkin/internal/application"
	"github.com/sanosuguru/go-concert-checkin/internal/pkg/logger"
	"github.com/sanosuguru/go-concert-checkin/internal/pkg/metrics"
)

// TicketLister は販売済みチケットの一覧を返すインターフェース
type TicketLister interface {
	ListSoldTickets(ctx context.Context) ([]application.TicketSummary, error)
}

// AttendanceReporter は状態ごとのチケット数を定期的にメトリクスへ反映するワーカー
type AttendanceReporter struct {
	tickets  TicketLister
	metrics  *metrics.Metrics
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// DefaultAttendanceRefreshInterval は集計間隔が不正なときに使う間隔
const DefaultAttendanceRefreshInterval = 30 * time.Second

// NewAttendanceReporter は新しいレポーターを作成
// interval が0以下の場合は DefaultAttendanceRefreshInterval を使う
func NewAttendanceReporter(tickets TicketLister, m *metrics.Metrics, interval time.Duration) *AttendanceReporter {
	if interval <= 0 {
		logger.Warn("集計間隔が不正なため既定値を使います",
			zap.Duration("interval", interval),
			zap.Duration("default", DefaultAttendanceRefreshInterval),
		)
		interval = DefaultAttendanceRefreshInterval
	}
	return &AttendanceReporter{
		tickets:  tickets,
		metrics:  m,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start はレポーターを開始する（起動直後に1回集計する）
func (r *AttendanceReporter) Start(ctx context.Context) {
	logger.Info("入場状況レポーター開始", zap.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	defer close(r.doneCh)

	r.report(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("入場状況レポーター停止（コンテキストキャンセル）")
			return
		case <-r.stopCh:
			logger.Info("入場状況レポーター停止（シグナル受信）")
			return
		case <-ticker.C:
			r.report(ctx)
		}
	}
}

// Stop はレポーターを停止し、終了を待つ
func (r *AttendanceReporter) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

// report は販売一覧を集計してゲージを更新する
func (r *AttendanceReporter) report(ctx context.Context) {
	log := logger.Get()

	summaries, err := r.tickets.ListSoldTickets(ctx)
	if err != nil {
		log.Error("入場状況の集計に失敗", zap.Error(err))
		return
	}

	var issued, checkedIn int
	for _, s := range summaries {
		if s.CheckedIn {
			checkedIn++
		} else {
			issued++
		}
	}
	r.metrics.SetTicketsByState(issued, checkedIn)
	log.Debug("入場状況を更新", zap.Int("issued", issued), zap.Int("checked_in", checkedIn))
}

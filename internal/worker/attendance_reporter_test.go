package worker

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/go-concert-checkin/internal/application"
	"github.com/sanosuguru/go-concert-checkin/internal/pkg/metrics"
)

// MockTicketLister はTicketListerのモック
type MockTicketLister struct {
	mock.Mock
}

func (m *MockTicketLister) ListSoldTickets(ctx context.Context) ([]application.TicketSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]application.TicketSummary), args.Error(1)
}

func TestNewAttendanceReporter(t *testing.T) {
	reporter := NewAttendanceReporter(new(MockTicketLister), nil, time.Minute)

	assert.NotNil(t, reporter)
	assert.Equal(t, time.Minute, reporter.interval)
	assert.NotNil(t, reporter.stopCh)
	assert.NotNil(t, reporter.doneCh)
}

func TestNewAttendanceReporter_InvalidInterval(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
	}{
		{name: "ゼロ", interval: 0},
		{name: "負の値", interval: -time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reporter := NewAttendanceReporter(new(MockTicketLister), nil, tt.interval)

			assert.Equal(t, DefaultAttendanceRefreshInterval, reporter.interval)
		})
	}

	t.Run("ゼロ間隔でも開始と停止ができる", func(t *testing.T) {
		lister := new(MockTicketLister)
		lister.On("ListSoldTickets", mock.Anything).Return([]application.TicketSummary{}, nil)

		reporter := NewAttendanceReporter(lister, nil, 0)

		go reporter.Start(context.Background())
		time.Sleep(20 * time.Millisecond)
		reporter.Stop()

		select {
		case <-reporter.doneCh:
		case <-time.After(time.Second):
			t.Error("reporter did not stop in time")
		}
		lister.AssertNumberOfCalls(t, "ListSoldTickets", 1)
	})
}

func TestAttendanceReporter_Report(t *testing.T) {
	t.Run("状態ごとの件数をゲージに反映する", func(t *testing.T) {
		m := metrics.NewWithRegistry(prometheus.NewRegistry())
		lister := new(MockTicketLister)
		lister.On("ListSoldTickets", mock.Anything).Return([]application.TicketSummary{
			{Code: "a", CheckedIn: true},
			{Code: "b"},
			{Code: "c"},
		}, nil)

		reporter := NewAttendanceReporter(lister, m, time.Minute)
		reporter.report(context.Background())

		assert.Equal(t, 2.0, testutil.ToFloat64(m.TicketsByState.WithLabelValues("issued")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.TicketsByState.WithLabelValues("checked_in")))
		lister.AssertExpectations(t)
	})

	t.Run("集計に失敗してもゲージは変えない", func(t *testing.T) {
		m := metrics.NewWithRegistry(prometheus.NewRegistry())
		m.SetTicketsByState(4, 3)
		lister := new(MockTicketLister)
		lister.On("ListSoldTickets", mock.Anything).Return(nil, assert.AnError)

		reporter := NewAttendanceReporter(lister, m, time.Minute)
		reporter.report(context.Background())

		assert.Equal(t, 4.0, testutil.ToFloat64(m.TicketsByState.WithLabelValues("issued")))
		assert.Equal(t, 3.0, testutil.ToFloat64(m.TicketsByState.WithLabelValues("checked_in")))
	})

	t.Run("メトリクス未設定でもパニックしない", func(t *testing.T) {
		lister := new(MockTicketLister)
		lister.On("ListSoldTickets", mock.Anything).Return([]application.TicketSummary{{Code: "a"}}, nil)

		reporter := NewAttendanceReporter(lister, nil, time.Minute)
		assert.NotPanics(t, func() { reporter.report(context.Background()) })
	})
}

func TestAttendanceReporter_StartStop(t *testing.T) {
	t.Run("開始と停止が正常に動作する", func(t *testing.T) {
		lister := new(MockTicketLister)
		lister.On("ListSoldTickets", mock.Anything).Return([]application.TicketSummary{}, nil)

		reporter := NewAttendanceReporter(lister, nil, 50*time.Millisecond)

		go reporter.Start(context.Background())
		time.Sleep(120 * time.Millisecond)
		reporter.Stop()

		select {
		case <-reporter.doneCh:
		case <-time.After(time.Second):
			t.Error("reporter did not stop in time")
		}
		// 起動直後の1回と tick 分
		assert.GreaterOrEqual(t, len(lister.Calls), 2)
	})

	t.Run("コンテキストキャンセルで停止する", func(t *testing.T) {
		lister := new(MockTicketLister)
		lister.On("ListSoldTickets", mock.Anything).Return([]application.TicketSummary{}, nil).Maybe()

		reporter := NewAttendanceReporter(lister, nil, 50*time.Millisecond)
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan struct{})
		go func() {
			reporter.Start(ctx)
			close(done)
		}()

		time.Sleep(80 * time.Millisecond)
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("reporter did not stop after context cancel")
		}
	})
}

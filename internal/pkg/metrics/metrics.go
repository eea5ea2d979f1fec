package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// チェックインの総数（result: admitted, already_used, not_found, error）
	CheckInsTotal *prometheus.CounterVec

	// 発行したチケットの総数
	TicketsIssuedTotal prometheus.Counter

	// ストア操作の所要時間（operation, status: success/failed）
	StoreOperationDuration *prometheus.HistogramVec

	// 状態ごとのチケット数（state: issued, checked_in）
	TicketsByState *prometheus.GaugeVec
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		CheckInsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkins_total",
				Help: "Total number of check-in attempts by result",
			},
			[]string{"result"},
		),
		TicketsIssuedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tickets_issued_total",
				Help: "Total number of tickets issued",
			},
		),
		StoreOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "store_operation_duration_seconds",
				Help:    "Time spent on ticket store operations",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
			},
			[]string{"operation", "status"},
		),
		TicketsByState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tickets_by_state",
				Help: "Current number of tickets by state",
			},
			[]string{"state"},
		),
	}

	// レジストリに登録
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CheckInsTotal,
		m.TicketsIssuedTotal,
		m.StoreOperationDuration,
		m.TicketsByState,
	)

	return m
}

// ObserveStore はストア操作の所要時間を記録する（nil レシーバは何もしない）
func (m *Metrics) ObserveStore(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	m.StoreOperationDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
}

// CountCheckIn はチェックイン結果をカウントする
func (m *Metrics) CountCheckIn(result string) {
	if m == nil {
		return
	}
	m.CheckInsTotal.WithLabelValues(result).Inc()
}

// CountIssued は発行数をカウントする
func (m *Metrics) CountIssued() {
	if m == nil {
		return
	}
	m.TicketsIssuedTotal.Inc()
}

// SetTicketsByState は状態ごとのチケット数を設定する
func (m *Metrics) SetTicketsByState(issued, checkedIn int) {
	if m == nil {
		return
	}
	m.TicketsByState.WithLabelValues("issued").Set(float64(issued))
	m.TicketsByState.WithLabelValues("checked_in").Set(float64(checkedIn))
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
func Get() *Metrics {
	return defaultMetrics
}

package metrics

// Prometheus counters for the balance monitor, exposed on an optional
// /metrics listener.

import (
	"net/http"
	"time"

	"solwatch/internal/infra/log"
	"solwatch/internal/monitor"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics implements monitor.Recorder.
type Metrics struct {
	scans          prometheus.Counter
	changes        prometheus.Counter
	fetchFailures  prometheus.Counter
	notifyFailures prometheus.Counter
	lastScan       prometheus.Gauge
	walletsScanned prometheus.Gauge
}

// New registers the solwatch collectors on the default registry.
func New() *Metrics {
	return &Metrics{
		scans: promauto.NewCounter(prometheus.CounterOpts{
			Name: "solwatch_scans_total",
			Help: "Completed balance scans.",
		}),
		changes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "solwatch_balance_changes_total",
			Help: "Detected balance changes.",
		}),
		fetchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "solwatch_fetch_failures_total",
			Help: "Balance fetches that failed.",
		}),
		notifyFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "solwatch_notify_failures_total",
			Help: "Change notifications that could not be delivered.",
		}),
		lastScan: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "solwatch_last_scan_timestamp_seconds",
			Help: "Unix time the most recent scan started.",
		}),
		walletsScanned: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "solwatch_wallets_scanned",
			Help: "Wallets checked by the most recent scan.",
		}),
	}
}

func (m *Metrics) ScanCompleted(stats monitor.Stats, at time.Time) {
	m.scans.Inc()
	m.changes.Add(float64(stats.Changes))
	m.fetchFailures.Add(float64(stats.FetchFailures))
	m.lastScan.Set(float64(at.Unix()))
	m.walletsScanned.Set(float64(stats.Scanned))
}

func (m *Metrics) NotifyFailed() {
	m.notifyFailures.Inc()
}

// Serve exposes /metrics on addr and blocks. Intended to run in its own
// goroutine; errors are logged, never fatal.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	log.LogInfo("Metrics listener starting", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.LogError("Metrics listener stopped", zap.Error(err))
	}
}

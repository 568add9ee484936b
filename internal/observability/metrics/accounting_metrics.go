package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config identifies the emitting service on every metric.
type Config struct {
	ServiceName string
	Environment string
}

// AccountingMetrics captures low-cardinality counters for the accounting core.
type AccountingMetrics struct {
	exchangeFallbackUsed *prometheus.CounterVec
	movementsPosted      *prometheus.CounterVec
	httpDuration         *prometheus.HistogramVec
}

var (
	accountingMetricsOnce sync.Once
	accountingMetrics     *AccountingMetrics
)

func Accounting() *AccountingMetrics {
	return AccountingWithConfig(Config{})
}

func AccountingWithConfig(cfg Config) *AccountingMetrics {
	accountingMetricsOnce.Do(func() {
		accountingMetrics = newAccountingMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return accountingMetrics
}

func ResetAccountingMetricsForTest() {
	accountingMetricsOnce = sync.Once{}
	accountingMetrics = nil
}

func newAccountingMetrics(registerer prometheus.Registerer, cfg Config) *AccountingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "vibook-accounting"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	exchangeFallbackUsed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "accounting_exchange_rate_fallback_total",
			Help:        "Exchange rate resolutions that fell past the exact-date lookup, by tier.",
			ConstLabels: constLabels,
		},
		[]string{"tier"}, // prior_date | global_latest | constant
	)

	movementsPosted := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "accounting_ledger_movements_posted_total",
			Help:        "Ledger movements written, by movement type.",
			ConstLabels: constLabels,
		},
		[]string{"type"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "accounting_http_request_duration_seconds",
			Help:        "HTTP request duration by route and status.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"route", "status"},
	)

	registerer.MustRegister(
		exchangeFallbackUsed,
		movementsPosted,
		httpDuration,
	)

	return &AccountingMetrics{
		exchangeFallbackUsed: exchangeFallbackUsed,
		movementsPosted:      movementsPosted,
		httpDuration:         httpDuration,
	}
}

// IncExchangeFallback records a rate resolution that needed a fallback tier.
func (m *AccountingMetrics) IncExchangeFallback(tier string) {
	if m == nil {
		return
	}
	m.exchangeFallbackUsed.WithLabelValues(tier).Inc()
}

// IncMovementPosted records one ledger movement write.
func (m *AccountingMetrics) IncMovementPosted(movementType string) {
	if m == nil {
		return
	}
	m.movementsPosted.WithLabelValues(movementType).Inc()
}

// ObserveHTTPRequest records one request duration sample.
func (m *AccountingMetrics) ObserveHTTPRequest(route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(route, status).Observe(d.Seconds())
}

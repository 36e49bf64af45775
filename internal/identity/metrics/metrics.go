package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the identity module.
type Metrics struct {
	SignaturesCreated prometheus.Counter
	AccountsCreated   prometheus.Counter
	ResolveDuration   prometheus.Histogram
}

// New creates a Metrics instance with all identity module metrics registered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SignaturesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "laborx_signatures_created_total",
			Help: "Total number of address signatures bound to accounts",
		}),
		AccountsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "laborx_accounts_autocreated_total",
			Help: "Total number of accounts created implicitly on first signature binding",
		}),
		ResolveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "laborx_resolve_account_duration_seconds",
			Help:    "Duration of address-to-account resolution (auth critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveResolve records the duration of a resolve operation.
// Call with time.Now() captured at the start of the operation.
func (m *Metrics) ObserveResolve(start time.Time) {
	m.ResolveDuration.Observe(time.Since(start).Seconds())
}

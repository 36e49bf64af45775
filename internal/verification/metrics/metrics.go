package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Submissions      *prometheus.CounterVec
	ChecksIssued     *prometheus.CounterVec
	Confirmations    *prometheus.CounterVec
	DispatchFailures prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "laborx_verification_submissions_total",
			Help: "Verification requests submitted, by level.",
		}, []string{"level"}),
		ChecksIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "laborx_verification_checks_issued_total",
			Help: "One-time confirmation checks issued, by purpose.",
		}, []string{"purpose"}),
		Confirmations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "laborx_verification_confirmations_total",
			Help: "Contact confirmation attempts, by channel and outcome.",
		}, []string{"channel", "outcome"}),
		DispatchFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "laborx_verification_dispatch_failures_total",
			Help: "Confirmation email dispatches that failed.",
		}),
	}
}

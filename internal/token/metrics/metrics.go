package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Issued    *prometheus.CounterVec
	Refreshed *prometheus.CounterVec
	Revoked   *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Issued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "laborx_tokens_issued_total",
			Help: "Tokens issued for a fresh (account, purpose) scope.",
		}, []string{"purpose"}),
		Refreshed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "laborx_tokens_refreshed_total",
			Help: "Tokens refreshed in place for an existing scope.",
		}, []string{"purpose"}),
		Revoked: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "laborx_tokens_revoked_total",
			Help: "Tokens revoked, by purpose.",
		}, []string{"purpose"}),
	}
}

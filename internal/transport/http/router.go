// Package httptransport is the thin HTTP layer. Handlers decode, delegate
// to domain services, and encode; business rules stay in the services.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ip-fomin/LaborX-backend/pkg/platform/middleware/device"
	"github.com/ip-fomin/LaborX-backend/pkg/platform/middleware/metadata"
	"github.com/ip-fomin/LaborX-backend/pkg/platform/middleware/requesttime"
)

// NewRouter assembles the API surface. The metrics gatherer is optional;
// without one the /metrics route is not mounted.
func NewRouter(identity *IdentityHandler, verification *VerificationHandler, tokens *TokenHandler, gatherer prometheus.Gatherer) http.Handler {
	router := chi.NewRouter()
	router.Use(requesttime.Middleware)
	router.Use(metadata.ClientMetadata)
	router.Use(device.Middleware)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if gatherer != nil {
		router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	identity.Register(router)
	verification.Register(router)
	tokens.Register(router)
	return router
}

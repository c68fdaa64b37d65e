package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ringkv/pkg/platform/middleware/metadata"
	"ringkv/pkg/platform/middleware/requestid"
)

// NewRouter wires the data API endpoints with the standard middleware
// chain.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.RequestID)
	r.Use(metadata.ClientMetadata)

	r.Post("/v1/get", h.HandleGet)
	r.Post("/v1/get-bulk", h.HandleGetBulk)
	r.Get("/healthz", h.HandleHealth)
	return r
}

// NewOpsRouter wires the operational endpoints served on the ops listener.
func NewOpsRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", h.HandleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

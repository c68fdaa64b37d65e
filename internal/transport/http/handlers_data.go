// Package httptransport is the thin HTTP layer over the serving handler. It
// translates JSON requests to handler calls and response kinds to HTTP
// statuses without embedding serving logic.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"ringkv/internal/server"
	"ringkv/pkg/platform/httputil"
	"ringkv/pkg/requestcontext"
)

var tracer = otel.Tracer("ringkv/internal/transport/http")

// Getter is the slice of the serving handler the transport depends on.
type Getter interface {
	Get(ctx context.Context, domainID int, key []byte) server.Response
	GetBulk(ctx context.Context, domainID int, keys [][]byte) server.BulkResponse
	Ready() bool
}

// Handler wires data endpoints to the serving handler.
type Handler struct {
	handler Getter
	logger  *slog.Logger
}

// NewHandler constructs the transport handler.
func NewHandler(handler Getter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{handler: handler, logger: logger}
}

// GetRequest is the body of POST /v1/get. Key bytes travel base64-encoded.
type GetRequest struct {
	DomainID int    `json:"domain_id"`
	Key      []byte `json:"key"`
}

// GetResponse mirrors one serving response.
type GetResponse struct {
	Status string `json:"status"`
	Value  []byte `json:"value,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// GetBulkRequest is the body of POST /v1/get-bulk.
type GetBulkRequest struct {
	DomainID int      `json:"domain_id"`
	Keys     [][]byte `json:"keys"`
}

// GetBulkResponse mirrors a bulk serving response.
type GetBulkResponse struct {
	Status    string        `json:"status"`
	Responses []GetResponse `json:"responses,omitempty"`
	Detail    string        `json:"detail,omitempty"`
}

// HandleGet handles POST /v1/get.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "Get")
	defer span.End()

	var req GetRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	span.SetAttributes(attribute.Int("ringkv.domain_id", req.DomainID))

	resp := h.handler.Get(ctx, req.DomainID, req.Key)
	h.logOutcome(ctx, "get", req.DomainID, resp)
	httputil.WriteJSON(w, statusOf(resp.Kind), toGetResponse(resp))
}

// HandleGetBulk handles POST /v1/get-bulk.
func (h *Handler) HandleGetBulk(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "GetBulk")
	defer span.End()

	var req GetBulkRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	span.SetAttributes(
		attribute.Int("ringkv.domain_id", req.DomainID),
		attribute.Int("ringkv.num_keys", len(req.Keys)),
	)

	resp := h.handler.GetBulk(ctx, req.DomainID, req.Keys)

	out := GetBulkResponse{Status: resp.Kind.String(), Detail: resp.Detail()}
	if resp.Kind == server.KindResponses {
		out.Responses = make([]GetResponse, len(resp.Responses))
		for i, keyResp := range resp.Responses {
			out.Responses[i] = toGetResponse(keyResp)
		}
	}
	httputil.WriteJSON(w, statusOf(resp.Kind), out)
}

// HandleHealth handles GET /healthz.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !h.handler.Ready() {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_serving"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "serving"})
}

func (h *Handler) logOutcome(ctx context.Context, op string, domainID int, resp server.Response) {
	if resp.Kind != server.KindInternalError {
		return
	}
	h.logger.ErrorContext(ctx, "lookup failed",
		"op", op,
		"request_id", requestcontext.RequestID(ctx),
		"domain_id", domainID,
		"detail", resp.Detail(),
	)
}

func toGetResponse(resp server.Response) GetResponse {
	return GetResponse{
		Status: resp.Kind.String(),
		Value:  resp.Value(),
		Detail: resp.Detail(),
	}
}

func statusOf(kind server.Kind) int {
	switch kind {
	case server.KindValue, server.KindNotFound, server.KindResponses:
		return http.StatusOK
	case server.KindNoSuchDomain:
		return http.StatusNotFound
	case server.KindInterrupted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

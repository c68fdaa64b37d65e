// Package server implements the read-serving core of a ringkv partition
// server: it binds this host's partitions to readers at the versions cluster
// metadata dictates, and answers point lookups on a bounded worker pool.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"ringkv/internal/coordinator"
	"ringkv/internal/server/metrics"
	"ringkv/internal/storage"
)

// Configurator supplies the host-local serving configuration.
type Configurator interface {
	// RingGroupName selects the cluster scope this host belongs to.
	RingGroupName() string
	// NumConcurrentGets is the worker pool size and the bound on
	// simultaneously executing reader calls.
	NumConcurrentGets() int
}

// Handler states. A handler is only constructed in ready state; failed
// assembly never produces a handler.
const (
	stateReady int32 = iota
	stateShuttingDown
	stateTerminated
)

// Handler is the per-process facade answering Get and GetBulk. It is safe
// for concurrent use by many callers between construction and ShutDown.
type Handler struct {
	domainAccessors []*DomainAccessor
	executor        *Executor
	state           atomic.Int32

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetrics sets the handler's serving metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// NewHandler assembles the serving topology for the host at addr and starts
// the request executor. Any metadata inconsistency other than a partition
// with no current version fails construction with an *AssemblyError.
func NewHandler(
	addr coordinator.HostAddress,
	cfg Configurator,
	coord coordinator.Coordinator,
	opts ...Option,
) (*Handler, error) {
	h := &Handler{logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	numWorkers := cfg.NumConcurrentGets()
	if numWorkers <= 0 {
		return nil, fmt.Errorf("num concurrent gets must be positive, got %d", numWorkers)
	}

	domainAccessors, err := buildDomainAccessors(addr, cfg.RingGroupName(), coord, h.logger, h.metrics)
	if err != nil {
		return nil, err
	}
	h.domainAccessors = domainAccessors
	h.executor = NewExecutor(numWorkers)
	return h, nil
}

// Get answers a single-key lookup. The timing sample is recorded on every
// return path.
func (h *Handler) Get(ctx context.Context, domainID int, key []byte) Response {
	start := time.Now()
	resp := h.get(ctx, domainID, key)
	h.metrics.ObserveGet(time.Since(start))
	h.metrics.IncrementOutcome("get", resp.Kind.String())
	return resp
}

func (h *Handler) get(ctx context.Context, domainID int, key []byte) Response {
	if h.state.Load() != stateReady {
		return InternalErrorResponse("handler is not serving")
	}
	accessor := h.domainAccessor(domainID)
	if accessor == nil {
		return NoSuchDomainResponse()
	}

	h.metrics.AddInFlight(1)
	defer h.metrics.AddInFlight(-1)

	future, err := h.executor.Submit(func(scratch *storage.Result) Response {
		return accessor.Get(key, scratch)
	})
	if err != nil {
		return InternalErrorResponse(err.Error())
	}
	return future.Wait(ctx)
}

// GetBulk answers a multi-key lookup, fanning out one task per key and
// joining in input order. The first interrupted wait collapses the whole
// response.
func (h *Handler) GetBulk(ctx context.Context, domainID int, keys [][]byte) BulkResponse {
	start := time.Now()
	resp := h.getBulk(ctx, domainID, keys)
	h.metrics.ObserveGetBulk(time.Since(start))
	h.metrics.IncrementOutcome("get_bulk", resp.Kind.String())
	return resp
}

func (h *Handler) getBulk(ctx context.Context, domainID int, keys [][]byte) BulkResponse {
	if h.state.Load() != stateReady {
		return InternalErrorBulk("handler is not serving")
	}
	// Resolve the domain once; nothing is enqueued for an unknown domain.
	accessor := h.domainAccessor(domainID)
	if accessor == nil {
		return NoSuchDomainBulk()
	}

	h.metrics.AddInFlight(float64(len(keys)))
	defer h.metrics.AddInFlight(-float64(len(keys)))

	futures := make([]*Future, len(keys))
	for i, key := range keys {
		key := key
		future, err := h.executor.Submit(func(scratch *storage.Result) Response {
			return accessor.Get(key, scratch)
		})
		if err != nil {
			return InternalErrorBulk(err.Error())
		}
		futures[i] = future
	}

	responses := make([]Response, 0, len(keys))
	for _, future := range futures {
		resp := future.Wait(ctx)
		if resp.Kind == KindInterrupted {
			return InterruptedBulk()
		}
		responses = append(responses, resp)
	}
	return ResponsesBulk(responses)
}

// DomainAccessors returns the (possibly nil) accessor per domain id slot.
// Read-only; used for status reporting.
func (h *Handler) DomainAccessors() []*DomainAccessor {
	return h.domainAccessors
}

// Ready reports whether the handler is serving.
func (h *Handler) Ready() bool {
	return h.state.Load() == stateReady
}

// ShutDown closes every domain accessor in ascending domain id order, then
// shuts the executor down. A second call is a no-op.
func (h *Handler) ShutDown() {
	if !h.state.CompareAndSwap(stateReady, stateShuttingDown) {
		return
	}
	for _, accessor := range h.domainAccessors {
		if accessor == nil {
			continue
		}
		if err := accessor.Close(); err != nil {
			h.logger.Error("closing domain accessor", "domain", accessor.Name(), "error", err)
		}
	}
	h.executor.Shutdown()
	h.state.Store(stateTerminated)
}

func (h *Handler) domainAccessor(domainID int) *DomainAccessor {
	if domainID < 0 || domainID >= len(h.domainAccessors) {
		return nil
	}
	return h.domainAccessors[domainID]
}

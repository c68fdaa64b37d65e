package events

import (
	"context"
	"log/slog"
	"time"
)

// Sink delivers events somewhere durable.
type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// Recorder is the non-blocking front end services record through. Events
// are buffered on a channel; when the buffer is full the event is dropped
// and counted in the log rather than stalling the caller.
type Recorder struct {
	inbox  chan Event
	logger *slog.Logger
}

// NewRecorder creates a recorder with the given buffer size.
func NewRecorder(buffer int, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Record enqueues an event, stamping the time if unset. Never blocks.
func (r *Recorder) Record(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	select {
	case r.inbox <- e:
	default:
		r.logger.Warn("event buffer full, dropping event", "type", string(e.Type))
	}
}

// Worker drains a recorder into a sink.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

// NewWorker wires a recorder's channel to a sink.
func NewWorker(sink Sink, recorder *Recorder, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{sink: sink, inbox: recorder.inbox, logger: logger}
}

// Run consumes events until ctx is done. Publish failures are logged and
// the event is dropped; serving never depends on event delivery.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case event := <-w.inbox:
			w.publish(ctx, event)
		}
	}
}

// drain flushes whatever is already buffered, with a short deadline so
// shutdown cannot hang on a dead broker.
func (w *Worker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		select {
		case event := <-w.inbox:
			w.publish(ctx, event)
		default:
			return
		}
	}
}

func (w *Worker) publish(ctx context.Context, event Event) {
	if err := w.sink.Publish(ctx, event); err != nil {
		w.logger.Error("publishing event", "type", string(event.Type), "error", err)
	}
}

package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderStampsTimestamp(t *testing.T) {
	recorder := NewRecorder(4, nil)
	recorder.Record(Event{Type: TypeServerReady, Host: "host-a:9090"})

	event := <-recorder.inbox
	assert.False(t, event.Timestamp.IsZero())
}

func TestRecorderKeepsExplicitTimestamp(t *testing.T) {
	recorder := NewRecorder(4, nil)
	stamp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	recorder.Record(Event{Type: TypeServerReady, Timestamp: stamp})

	event := <-recorder.inbox
	assert.Equal(t, stamp, event.Timestamp)
}

func TestRecorderDropsWhenFull(t *testing.T) {
	recorder := NewRecorder(1, nil)
	recorder.Record(Event{Type: TypeServerReady})
	// Buffer is full; this must not block.
	done := make(chan struct{})
	go func() {
		recorder.Record(Event{Type: TypeServerStopped})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full buffer")
	}
}

func TestWorkerDeliversToSink(t *testing.T) {
	sink := NewMemorySink()
	recorder := NewRecorder(8, nil)
	worker := NewWorker(sink, recorder, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	recorder.Record(Event{Type: TypeServerReady, Host: "host-a:9090", RingGroup: "serving"})
	recorder.Record(Event{Type: TypeDomainLoaded, Host: "host-a:9090", Domain: "fruit"})

	require.Eventually(t, func() bool {
		return len(sink.Events()) == 2
	}, time.Second, 5*time.Millisecond)

	collected := sink.Events()
	assert.Equal(t, TypeServerReady, collected[0].Type)
	assert.Equal(t, TypeDomainLoaded, collected[1].Type)
	assert.Equal(t, "fruit", collected[1].Domain)
}

func TestWorkerDrainsBufferedEventsOnStop(t *testing.T) {
	sink := NewMemorySink()
	recorder := NewRecorder(8, nil)
	worker := NewWorker(sink, recorder, nil)

	recorder.Record(Event{Type: TypeServerStopped})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := worker.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, sink.Events(), 1, "events already buffered are flushed at shutdown")
}

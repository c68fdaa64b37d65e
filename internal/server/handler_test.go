package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"ringkv/internal/partitioner"
	"ringkv/internal/server/mocks"
	"ringkv/internal/storage"
	"ringkv/internal/storage/memory"
)

type staticConfig struct {
	ringGroup string
	gets      int
}

func (c staticConfig) RingGroupName() string {
	return c.ringGroup
}

func (c staticConfig) NumConcurrentGets() int {
	return c.gets
}

// fruitHandler assembles a handler serving one 4-partition domain seeded
// with the given key/value pairs.
func fruitHandler(t *testing.T, seed map[string]string) *Handler {
	t.Helper()

	const numPartitions = 4
	engine := memory.NewEngine(numPartitions, memory.WithVersion(3))
	part := partitioner.NewFNV1a()
	for key, value := range seed {
		require.NoError(t, engine.Put(part.Partition([]byte(key), numPartitions), []byte(key), []byte(value)))
	}

	cluster := mustCluster(t, singleDomainSpec(numPartitions, 3, servingRing(allPartitions(numPartitions)...)), engine)
	handler, err := NewHandler(testAddr, staticConfig{ringGroup: "serving", gets: 2}, cluster,
		WithLogger(discardLogger()))
	require.NoError(t, err)
	t.Cleanup(handler.ShutDown)
	return handler
}

func TestGetReturnsSeededValue(t *testing.T) {
	handler := fruitHandler(t, map[string]string{"apple": "red"})

	resp := handler.Get(context.Background(), 0, []byte("apple"))
	require.Equal(t, KindValue, resp.Kind)
	assert.Equal(t, []byte("red"), resp.Value())

	// Reads are idempotent; repeat arbitrarily.
	for i := 0; i < 10; i++ {
		again := handler.Get(context.Background(), 0, []byte("apple"))
		require.Equal(t, KindValue, again.Kind)
		assert.Equal(t, []byte("red"), again.Value())
	}
}

func TestGetMissingKey(t *testing.T) {
	handler := fruitHandler(t, map[string]string{"apple": "red"})

	resp := handler.Get(context.Background(), 0, []byte("grape"))
	assert.Equal(t, KindNotFound, resp.Kind)
}

func TestGetUnknownDomain(t *testing.T) {
	handler := fruitHandler(t, nil)

	tests := []struct {
		name     string
		domainID int
	}{
		{name: "beyond table", domainID: 7},
		{name: "at table length", domainID: 1},
		{name: "negative", domainID: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := handler.Get(context.Background(), tt.domainID, []byte("apple"))
			assert.Equal(t, KindNoSuchDomain, resp.Kind)
		})
	}
}

func TestGetBulkPreservesInputOrder(t *testing.T) {
	handler := fruitHandler(t, map[string]string{"a": "1", "c": "3"})

	resp := handler.GetBulk(context.Background(), 0, [][]byte{[]byte("a"), []byte("b"), []byte("c")})
	require.Equal(t, KindResponses, resp.Kind)
	require.Len(t, resp.Responses, 3)

	assert.Equal(t, KindValue, resp.Responses[0].Kind)
	assert.Equal(t, []byte("1"), resp.Responses[0].Value())
	assert.Equal(t, KindNotFound, resp.Responses[1].Kind)
	assert.Equal(t, KindValue, resp.Responses[2].Kind)
	assert.Equal(t, []byte("3"), resp.Responses[2].Value())
}

func TestGetBulkEmptyKeys(t *testing.T) {
	handler := fruitHandler(t, nil)

	resp := handler.GetBulk(context.Background(), 0, nil)
	require.Equal(t, KindResponses, resp.Kind)
	assert.Empty(t, resp.Responses)
}

func TestGetBulkUnknownDomain(t *testing.T) {
	handler := fruitHandler(t, nil)

	resp := handler.GetBulk(context.Background(), 9, [][]byte{[]byte("a")})
	assert.Equal(t, KindNoSuchDomain, resp.Kind)
}

// blockedHandler builds a handler with one worker whose reader blocks until
// release is closed, so waits can be interrupted deterministically.
func blockedHandler(t *testing.T, release chan struct{}) *Handler {
	t.Helper()

	ctrl := gomock.NewController(t)
	reader := mocks.NewMockReader(ctrl)
	reader.EXPECT().VersionNumber().Return(0, false).AnyTimes()
	reader.EXPECT().Close().Return(nil).AnyTimes()
	reader.EXPECT().Get(gomock.Any(), gomock.Any()).DoAndReturn(
		func([]byte, *storage.Result) error {
			<-release
			return nil
		}).AnyTimes()
	engine := mocks.NewMockEngine(ctrl)
	engine.EXPECT().OpenReader(gomock.Any()).Return(reader, nil).AnyTimes()

	cluster := mustCluster(t, singleDomainSpec(1, 3, servingRing(allPartitions(1)...)), engine)
	handler, err := NewHandler(testAddr, staticConfig{ringGroup: "serving", gets: 1}, cluster,
		WithLogger(discardLogger()))
	require.NoError(t, err)
	return handler
}

func TestGetInterrupted(t *testing.T) {
	release := make(chan struct{})
	handler := blockedHandler(t, release)
	defer func() {
		close(release)
		handler.ShutDown()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	resp := handler.Get(ctx, 0, []byte("apple"))
	assert.Equal(t, KindInterrupted, resp.Kind)
}

func TestGetBulkInterruptedCollapses(t *testing.T) {
	release := make(chan struct{})
	handler := blockedHandler(t, release)
	defer func() {
		close(release)
		handler.ShutDown()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	resp := handler.GetBulk(ctx, 0, [][]byte{[]byte("a"), []byte("b"), []byte("c")})
	assert.Equal(t, KindInterrupted, resp.Kind,
		"the first interrupted wait collapses the whole bulk response")
	assert.Empty(t, resp.Responses)
}

func TestShutDownStopsServing(t *testing.T) {
	handler := fruitHandler(t, map[string]string{"apple": "red"})
	require.True(t, handler.Ready())

	handler.ShutDown()
	assert.False(t, handler.Ready())

	resp := handler.Get(context.Background(), 0, []byte("apple"))
	require.Equal(t, KindInternalError, resp.Kind)
	assert.Contains(t, resp.Detail(), "not serving")

	bulk := handler.GetBulk(context.Background(), 0, [][]byte{[]byte("apple")})
	assert.Equal(t, KindInternalError, bulk.Kind)
}

func TestShutDownClosesEachReaderOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := mocks.NewMockReader(ctrl)
	reader.EXPECT().VersionNumber().Return(3, true).AnyTimes()
	reader.EXPECT().Close().Return(nil).Times(2) // two partitions, one close each
	engine := mocks.NewMockEngine(ctrl)
	engine.EXPECT().OpenReader(gomock.Any()).Return(reader, nil).Times(2)

	cluster := mustCluster(t, singleDomainSpec(2, 3, servingRing(allPartitions(2)...)), engine)
	handler, err := NewHandler(testAddr, staticConfig{ringGroup: "serving", gets: 1}, cluster,
		WithLogger(discardLogger()))
	require.NoError(t, err)

	handler.ShutDown()
	handler.ShutDown() // idempotent: no second round of closes
}

func TestNewHandlerRejectsBadPoolSize(t *testing.T) {
	engine := memory.NewEngine(1)
	cluster := mustCluster(t, singleDomainSpec(1, 3, servingRing(allPartitions(1)...)), engine)

	_, err := NewHandler(testAddr, staticConfig{ringGroup: "serving", gets: 0}, cluster)
	assert.Error(t, err)
}

func TestNewHandlerPropagatesAssemblyFailure(t *testing.T) {
	engine := memory.NewEngine(1)
	cluster := mustCluster(t, singleDomainSpec(1, 3, servingRing(allPartitions(1)...)), engine)

	_, err := NewHandler(testAddr, staticConfig{ringGroup: "wrong-group", gets: 1}, cluster,
		WithLogger(discardLogger()))
	require.Error(t, err)
	var assemblyErr *AssemblyError
	assert.ErrorAs(t, err, &assemblyErr)
}

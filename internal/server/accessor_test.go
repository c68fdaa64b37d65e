package server

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"ringkv/internal/server/mocks"
	"ringkv/internal/storage"
	"ringkv/internal/storage/memory"
)

func TestPartitionAccessorCounters(t *testing.T) {
	engine := memory.NewEngine(1)
	require.NoError(t, engine.Put(0, []byte("apple"), []byte("red")))
	reader, err := engine.OpenReader(0)
	require.NoError(t, err)

	accessor := NewPartitionAccessor("fruit", 0, 0, reader)
	result := storage.NewResult()

	require.NoError(t, accessor.Get([]byte("apple"), result))
	assert.True(t, result.Found())

	result.Reset()
	require.NoError(t, accessor.Get([]byte("grape"), result))
	assert.False(t, result.Found())

	counters := accessor.Counters()
	assert.Equal(t, uint64(2), counters.Gets)
	assert.Equal(t, uint64(1), counters.Hits)
	assert.Equal(t, uint64(1), counters.Misses)
	assert.Equal(t, uint64(0), counters.Errors)
}

func TestPartitionAccessorCountsErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := mocks.NewMockReader(ctrl)
	reader.EXPECT().Get(gomock.Any(), gomock.Any()).Return(errors.New("disk fault"))

	accessor := NewPartitionAccessor("fruit", 0, 0, reader)
	err := accessor.Get([]byte("apple"), storage.NewResult())
	require.Error(t, err)
	assert.Equal(t, uint64(1), accessor.Counters().Errors)
}

func TestPartitionAccessorClosesReaderOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := mocks.NewMockReader(ctrl)
	reader.EXPECT().Close().Return(nil).Times(1)

	accessor := NewPartitionAccessor("fruit", 0, 3, reader)
	require.NoError(t, accessor.Close())
	require.NoError(t, accessor.Close(), "second close must not reach the reader")
}

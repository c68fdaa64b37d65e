package server

import (
	"sync"
	"sync/atomic"

	"ringkv/internal/storage"
)

// PartitionAccessor binds one local partition to its open reader and tracks
// advisory per-partition counters. The reader is exclusively owned by its
// accessor from assembly until shutdown.
type PartitionAccessor struct {
	domainName      string
	domainID        int
	partitionNumber int
	reader          storage.Reader

	gets   atomic.Uint64
	hits   atomic.Uint64
	misses atomic.Uint64
	errors atomic.Uint64

	closeOnce sync.Once
	closeErr  error
}

// NewPartitionAccessor binds a partition identity to its reader.
func NewPartitionAccessor(domainName string, domainID, partitionNumber int, reader storage.Reader) *PartitionAccessor {
	return &PartitionAccessor{
		domainName:      domainName,
		domainID:        domainID,
		partitionNumber: partitionNumber,
		reader:          reader,
	}
}

// PartitionNumber returns the partition this accessor serves.
func (a *PartitionAccessor) PartitionNumber() int {
	return a.partitionNumber
}

// Get delegates to the reader using the caller's scratch result.
func (a *PartitionAccessor) Get(key []byte, result *storage.Result) error {
	a.gets.Add(1)
	if err := a.reader.Get(key, result); err != nil {
		a.errors.Add(1)
		return err
	}
	if result.Found() {
		a.hits.Add(1)
	} else {
		a.misses.Add(1)
	}
	return nil
}

// PartitionCounters is a snapshot of an accessor's advisory counters. The
// counts are updated concurrently without coordination, so a snapshot taken
// under load may be internally inconsistent.
type PartitionCounters struct {
	Gets   uint64
	Hits   uint64
	Misses uint64
	Errors uint64
}

// Counters snapshots the accessor's counters.
func (a *PartitionAccessor) Counters() PartitionCounters {
	return PartitionCounters{
		Gets:   a.gets.Load(),
		Hits:   a.hits.Load(),
		Misses: a.misses.Load(),
		Errors: a.errors.Load(),
	}
}

// Close closes the underlying reader. Safe to call more than once; the
// reader itself is closed exactly once.
func (a *PartitionAccessor) Close() error {
	a.closeOnce.Do(func() {
		a.closeErr = a.reader.Close()
	})
	return a.closeErr
}

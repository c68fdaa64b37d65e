// Package memory provides an in-memory storage engine. It backs development
// topologies and tests; production hosts plug in real on-disk engines.
package memory

import (
	"fmt"
	"sync"

	"ringkv/internal/storage"
)

// Engine holds the partitions of one domain in memory at a single version.
type Engine struct {
	numPartitions int
	version       int
	hasVersion    bool

	mu         sync.RWMutex
	partitions []map[string][]byte
}

// Option configures an Engine.
type Option func(*Engine)

// WithVersion pins the version readers report. Without it readers report
// their version as unknown.
func WithVersion(version int) Option {
	return func(e *Engine) {
		e.version = version
		e.hasVersion = true
	}
}

// NewEngine creates an engine with numPartitions empty partitions.
func NewEngine(numPartitions int, opts ...Option) *Engine {
	e := &Engine{
		numPartitions: numPartitions,
		partitions:    make([]map[string][]byte, numPartitions),
	}
	for i := range e.partitions {
		e.partitions[i] = make(map[string][]byte)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Put stores a value in the given partition. Intended for seeding data
// before serving begins; the serving path never writes.
func (e *Engine) Put(partitionNumber int, key, value []byte) error {
	if partitionNumber < 0 || partitionNumber >= e.numPartitions {
		return fmt.Errorf("partition %d out of range [0, %d)", partitionNumber, e.numPartitions)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	e.partitions[partitionNumber][string(key)] = stored
	return nil
}

// OpenReader returns a reader pinned to one partition.
func (e *Engine) OpenReader(partitionNumber int) (storage.Reader, error) {
	if partitionNumber < 0 || partitionNumber >= e.numPartitions {
		return nil, fmt.Errorf("partition %d out of range [0, %d)", partitionNumber, e.numPartitions)
	}
	return &reader{engine: e, partition: partitionNumber}, nil
}

type reader struct {
	engine    *Engine
	partition int

	mu     sync.Mutex
	closed bool
}

func (r *reader) Get(key []byte, result *storage.Result) error {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return fmt.Errorf("reader for partition %d is closed", r.partition)
	}

	r.engine.mu.RLock()
	value, ok := r.engine.partitions[r.partition][string(key)]
	r.engine.mu.RUnlock()

	result.Reset()
	if ok {
		result.SetValue(value)
	}
	return nil
}

func (r *reader) VersionNumber() (int, bool) {
	return r.engine.version, r.engine.hasVersion
}

func (r *reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("reader for partition %d already closed", r.partition)
	}
	r.closed = true
	return nil
}

// Package redis loads cluster metadata from a snapshot the external updater
// publishes as a single JSON document. Reading the whole snapshot at once
// keeps the view consistent without cross-key coordination.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"ringkv/internal/coordinator"
)

// DefaultKey is where the updater publishes the cluster snapshot.
const DefaultKey = "ringkv:cluster"

// ErrNoSnapshot is returned when no snapshot has been published yet.
var ErrNoSnapshot = errors.New("no cluster snapshot published")

// Store reads cluster metadata snapshots from redis.
type Store struct {
	client *redis.Client
	key    string
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the snapshot key.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// NewStore constructs a metadata store over a connected redis client.
func NewStore(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, key: DefaultKey}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// LoadCluster fetches and decodes the published snapshot, binding engines
// through bindEngine.
func (s *Store) LoadCluster(ctx context.Context, bindEngine coordinator.EngineBinder) (*coordinator.Cluster, error) {
	spec, err := s.LoadSpec(ctx)
	if err != nil {
		return nil, err
	}
	return coordinator.NewCluster(spec, bindEngine)
}

// LoadSpec fetches the serializable form of the snapshot.
func (s *Store) LoadSpec(ctx context.Context) (coordinator.ClusterSpec, error) {
	var spec coordinator.ClusterSpec

	payload, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return spec, ErrNoSnapshot
	}
	if err != nil {
		return spec, fmt.Errorf("fetch cluster snapshot: %w", err)
	}
	if err := json.Unmarshal(payload, &spec); err != nil {
		return spec, fmt.Errorf("decode cluster snapshot: %w", err)
	}
	return spec, nil
}

// Publish writes a snapshot. Only tests and development tooling publish from
// this process; production snapshots come from the updater.
func (s *Store) Publish(ctx context.Context, spec coordinator.ClusterSpec) error {
	payload, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("encode cluster snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("publish cluster snapshot: %w", err)
	}
	return nil
}

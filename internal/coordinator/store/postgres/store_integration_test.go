//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ringkv/internal/coordinator"
	"ringkv/internal/storage"
	"ringkv/internal/storage/memory"
	"ringkv/pkg/testutil/containers"
)

func seedMetadata(t *testing.T, store *Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx, Schema)
	require.NoError(t, err)

	statements := []string{
		`INSERT INTO domains (id, name, num_partitions, partitioner, engine)
		 VALUES (0, 'profiles', 4, 'fnv1a', 'memory'), (2, 'features', 2, 'fnv1a', 'memory')`,
		`INSERT INTO domain_groups (name) VALUES ('main')`,
		`INSERT INTO domain_group_versions (domain_group, number) VALUES ('main', 7)`,
		`INSERT INTO domain_group_version_domains (domain_group, number, domain_id, version)
		 VALUES ('main', 7, 0, 3), ('main', 7, 2, 5)`,
		`INSERT INTO ring_groups (name, domain_group) VALUES ('serving', 'main')`,
		`INSERT INTO rings (ring_group, number, current_version, updating_to_version)
		 VALUES ('serving', 0, 7, NULL)`,
		`INSERT INTO hosts (ring_group, ring_number, host, port)
		 VALUES ('serving', 0, 'host-a', 9090)`,
		`INSERT INTO host_domains (ring_group, ring_number, host, port, domain_id)
		 VALUES ('serving', 0, 'host-a', 9090, 0)`,
		`INSERT INTO host_domain_partitions
			(ring_group, ring_number, host, port, domain_id, partition_number, current_domain_group_version)
		 VALUES
			('serving', 0, 'host-a', 9090, 0, 0, 7),
			('serving', 0, 'host-a', 9090, 0, 1, NULL)`,
	}
	for _, statement := range statements {
		_, err := store.db.ExecContext(ctx, statement)
		require.NoError(t, err)
	}
}

func TestLoadSpecFromPostgres(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	store := NewStore(pc.DB)
	seedMetadata(t, store)

	spec, err := store.LoadSpec(context.Background())
	require.NoError(t, err)

	require.Len(t, spec.Domains, 2)
	assert.Equal(t, "profiles", spec.Domains[0].Name)
	assert.Equal(t, 4, spec.Domains[0].NumPartitions)
	assert.Equal(t, "memory", spec.Domains[0].EngineName)

	require.Len(t, spec.DomainGroups, 1)
	require.Len(t, spec.DomainGroups[0].Versions, 1)
	assert.Len(t, spec.DomainGroups[0].Versions[0].DomainVersions, 2)

	require.Len(t, spec.RingGroups, 1)
	rg := spec.RingGroups[0]
	assert.Equal(t, "main", rg.DomainGroupName)
	require.Len(t, rg.Rings, 1)
	require.NotNil(t, rg.Rings[0].CurrentVersion)
	assert.Equal(t, 7, *rg.Rings[0].CurrentVersion)
	assert.Nil(t, rg.Rings[0].UpdatingToVersion)

	require.Len(t, rg.Rings[0].Hosts, 1)
	host := rg.Rings[0].Hosts[0]
	assert.Equal(t, "host-a", host.Host)
	require.Len(t, host.Domains, 1)
	require.Len(t, host.Domains[0].Partitions, 2)
	assert.NotNil(t, host.Domains[0].Partitions[0].CurrentDomainGroupVersion)
	assert.Nil(t, host.Domains[0].Partitions[1].CurrentDomainGroupVersion,
		"NULL current version survives the round trip")
}

func TestLoadClusterFromPostgres(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	store := NewStore(pc.DB)
	seedMetadata(t, store)

	cluster, err := store.LoadCluster(context.Background(), func(ds coordinator.DomainSpec) (storage.Engine, error) {
		return memory.NewEngine(ds.NumPartitions), nil
	})
	require.NoError(t, err)

	ringGroup, ok := cluster.RingGroup("serving")
	require.True(t, ok)
	ring, ok := ringGroup.RingForHost(coordinator.HostAddress{Host: "host-a", Port: 9090})
	require.True(t, ok)
	version, ok := ring.Version()
	require.True(t, ok)
	assert.Equal(t, 7, version)
}

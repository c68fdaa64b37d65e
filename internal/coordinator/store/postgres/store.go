// Package postgres loads the cluster metadata graph from PostgreSQL. The
// external updater owns the write side of these tables; the partition server
// only reads.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"ringkv/internal/coordinator"
)

// Schema creates the metadata tables. Exposed for integration tests and
// development environments; production schemas are managed by the updater.
const Schema = `
CREATE TABLE IF NOT EXISTS domains (
	id             INTEGER PRIMARY KEY,
	name           TEXT NOT NULL UNIQUE,
	num_partitions INTEGER NOT NULL,
	partitioner    TEXT NOT NULL DEFAULT 'fnv1a',
	engine         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS domain_groups (
	name TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS domain_group_versions (
	domain_group TEXT NOT NULL REFERENCES domain_groups (name),
	number       INTEGER NOT NULL,
	PRIMARY KEY (domain_group, number)
);

CREATE TABLE IF NOT EXISTS domain_group_version_domains (
	domain_group TEXT NOT NULL,
	number       INTEGER NOT NULL,
	domain_id    INTEGER NOT NULL REFERENCES domains (id),
	version      INTEGER NOT NULL,
	PRIMARY KEY (domain_group, number, domain_id),
	FOREIGN KEY (domain_group, number) REFERENCES domain_group_versions (domain_group, number)
);

CREATE TABLE IF NOT EXISTS ring_groups (
	name         TEXT PRIMARY KEY,
	domain_group TEXT NOT NULL REFERENCES domain_groups (name)
);

CREATE TABLE IF NOT EXISTS rings (
	ring_group          TEXT NOT NULL REFERENCES ring_groups (name),
	number              INTEGER NOT NULL,
	current_version     INTEGER,
	updating_to_version INTEGER,
	PRIMARY KEY (ring_group, number)
);

CREATE TABLE IF NOT EXISTS hosts (
	ring_group  TEXT NOT NULL,
	ring_number INTEGER NOT NULL,
	host        TEXT NOT NULL,
	port        INTEGER NOT NULL,
	PRIMARY KEY (ring_group, ring_number, host, port),
	FOREIGN KEY (ring_group, ring_number) REFERENCES rings (ring_group, number)
);

CREATE TABLE IF NOT EXISTS host_domains (
	ring_group  TEXT NOT NULL,
	ring_number INTEGER NOT NULL,
	host        TEXT NOT NULL,
	port        INTEGER NOT NULL,
	domain_id   INTEGER NOT NULL REFERENCES domains (id),
	PRIMARY KEY (ring_group, ring_number, host, port, domain_id),
	FOREIGN KEY (ring_group, ring_number, host, port) REFERENCES hosts (ring_group, ring_number, host, port)
);

CREATE TABLE IF NOT EXISTS host_domain_partitions (
	ring_group                   TEXT NOT NULL,
	ring_number                  INTEGER NOT NULL,
	host                         TEXT NOT NULL,
	port                         INTEGER NOT NULL,
	domain_id                    INTEGER NOT NULL,
	partition_number             INTEGER NOT NULL,
	current_domain_group_version INTEGER,
	PRIMARY KEY (ring_group, ring_number, host, port, domain_id, partition_number),
	FOREIGN KEY (ring_group, ring_number, host, port, domain_id)
		REFERENCES host_domains (ring_group, ring_number, host, port, domain_id)
);
`

// Store reads cluster metadata from PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore constructs a metadata store over an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// LoadCluster reads the full metadata graph in one repeatable-read
// transaction and assembles it, binding engines through bindEngine.
func (s *Store) LoadCluster(ctx context.Context, bindEngine coordinator.EngineBinder) (*coordinator.Cluster, error) {
	spec, err := s.LoadSpec(ctx)
	if err != nil {
		return nil, err
	}
	return coordinator.NewCluster(spec, bindEngine)
}

// LoadSpec reads the serializable form of the metadata graph.
func (s *Store) LoadSpec(ctx context.Context) (coordinator.ClusterSpec, error) {
	var spec coordinator.ClusterSpec

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return spec, fmt.Errorf("begin metadata read: %w", err)
	}
	defer tx.Rollback()

	if spec.Domains, err = loadDomains(ctx, tx); err != nil {
		return spec, err
	}
	if spec.DomainGroups, err = loadDomainGroups(ctx, tx); err != nil {
		return spec, err
	}
	if spec.RingGroups, err = loadRingGroups(ctx, tx); err != nil {
		return spec, err
	}

	if err := tx.Commit(); err != nil {
		return spec, fmt.Errorf("commit metadata read: %w", err)
	}
	return spec, nil
}

func loadDomains(ctx context.Context, tx *sql.Tx) ([]coordinator.DomainSpec, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, num_partitions, partitioner, engine
		FROM domains
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load domains: %w", err)
	}
	defer rows.Close()

	var domains []coordinator.DomainSpec
	for rows.Next() {
		var d coordinator.DomainSpec
		if err := rows.Scan(&d.ID, &d.Name, &d.NumPartitions, &d.PartitionerName, &d.EngineName); err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

func loadDomainGroups(ctx context.Context, tx *sql.Tx) ([]coordinator.DomainGroupSpec, error) {
	groups := make(map[string]*coordinator.DomainGroupSpec)
	var order []string

	rows, err := tx.QueryContext(ctx, `SELECT name FROM domain_groups ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("load domain groups: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan domain group: %w", err)
		}
		groups[name] = &coordinator.DomainGroupSpec{Name: name}
		order = append(order, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	versionRows, err := tx.QueryContext(ctx, `
		SELECT v.domain_group, v.number, d.domain_id, d.version
		FROM domain_group_versions v
		LEFT JOIN domain_group_version_domains d
			ON d.domain_group = v.domain_group AND d.number = v.number
		ORDER BY v.domain_group, v.number, d.domain_id`)
	if err != nil {
		return nil, fmt.Errorf("load domain group versions: %w", err)
	}
	defer versionRows.Close()

	for versionRows.Next() {
		var groupName string
		var number int
		var domainID, version sql.NullInt64
		if err := versionRows.Scan(&groupName, &number, &domainID, &version); err != nil {
			return nil, fmt.Errorf("scan domain group version: %w", err)
		}
		group, ok := groups[groupName]
		if !ok {
			return nil, fmt.Errorf("domain group version references unknown group %q", groupName)
		}
		versionSpec := findOrAddVersion(group, number)
		if domainID.Valid {
			versionSpec.DomainVersions = append(versionSpec.DomainVersions, coordinator.DomainVersionSpec{
				DomainID:      int(domainID.Int64),
				VersionNumber: int(version.Int64),
			})
		}
	}
	if err := versionRows.Err(); err != nil {
		return nil, err
	}

	out := make([]coordinator.DomainGroupSpec, 0, len(order))
	for _, name := range order {
		out = append(out, *groups[name])
	}
	return out, nil
}

func findOrAddVersion(group *coordinator.DomainGroupSpec, number int) *coordinator.DomainGroupVersionSpec {
	for i := range group.Versions {
		if group.Versions[i].Number == number {
			return &group.Versions[i]
		}
	}
	group.Versions = append(group.Versions, coordinator.DomainGroupVersionSpec{Number: number})
	return &group.Versions[len(group.Versions)-1]
}

func loadRingGroups(ctx context.Context, tx *sql.Tx) ([]coordinator.RingGroupSpec, error) {
	rows, err := tx.QueryContext(ctx, `SELECT name, domain_group FROM ring_groups ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("load ring groups: %w", err)
	}
	defer rows.Close()

	var ringGroups []coordinator.RingGroupSpec
	for rows.Next() {
		var rg coordinator.RingGroupSpec
		if err := rows.Scan(&rg.Name, &rg.DomainGroupName); err != nil {
			return nil, fmt.Errorf("scan ring group: %w", err)
		}
		ringGroups = append(ringGroups, rg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range ringGroups {
		if err := loadRings(ctx, tx, &ringGroups[i]); err != nil {
			return nil, err
		}
	}
	return ringGroups, nil
}

func loadRings(ctx context.Context, tx *sql.Tx, rg *coordinator.RingGroupSpec) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT number, current_version, updating_to_version
		FROM rings
		WHERE ring_group = $1
		ORDER BY number`, rg.Name)
	if err != nil {
		return fmt.Errorf("load rings of %q: %w", rg.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var ring coordinator.RingSpec
		var current, updatingTo sql.NullInt64
		if err := rows.Scan(&ring.Number, &current, &updatingTo); err != nil {
			return fmt.Errorf("scan ring: %w", err)
		}
		ring.CurrentVersion = nullableInt(current)
		ring.UpdatingToVersion = nullableInt(updatingTo)
		rg.Rings = append(rg.Rings, ring)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range rg.Rings {
		if err := loadHosts(ctx, tx, rg.Name, &rg.Rings[i]); err != nil {
			return err
		}
	}
	return nil
}

func loadHosts(ctx context.Context, tx *sql.Tx, ringGroup string, ring *coordinator.RingSpec) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT host, port
		FROM hosts
		WHERE ring_group = $1 AND ring_number = $2
		ORDER BY host, port`, ringGroup, ring.Number)
	if err != nil {
		return fmt.Errorf("load hosts of ring %d: %w", ring.Number, err)
	}
	defer rows.Close()

	for rows.Next() {
		var h coordinator.HostSpec
		if err := rows.Scan(&h.Host, &h.Port); err != nil {
			return fmt.Errorf("scan host: %w", err)
		}
		ring.Hosts = append(ring.Hosts, h)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range ring.Hosts {
		if err := loadHostDomains(ctx, tx, ringGroup, ring.Number, &ring.Hosts[i]); err != nil {
			return err
		}
	}
	return nil
}

func loadHostDomains(ctx context.Context, tx *sql.Tx, ringGroup string, ringNumber int, host *coordinator.HostSpec) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT hd.domain_id, p.partition_number, p.current_domain_group_version
		FROM host_domains hd
		LEFT JOIN host_domain_partitions p
			ON p.ring_group = hd.ring_group AND p.ring_number = hd.ring_number
			AND p.host = hd.host AND p.port = hd.port AND p.domain_id = hd.domain_id
		WHERE hd.ring_group = $1 AND hd.ring_number = $2 AND hd.host = $3 AND hd.port = $4
		ORDER BY hd.domain_id, p.partition_number`,
		ringGroup, ringNumber, host.Host, host.Port)
	if err != nil {
		return fmt.Errorf("load host domains of %s:%d: %w", host.Host, host.Port, err)
	}
	defer rows.Close()

	byDomain := make(map[int]*coordinator.HostDomainSpec)
	var order []int
	for rows.Next() {
		var domainID int
		var partitionNumber, currentVersion sql.NullInt64
		if err := rows.Scan(&domainID, &partitionNumber, &currentVersion); err != nil {
			return fmt.Errorf("scan host domain partition: %w", err)
		}
		hd, ok := byDomain[domainID]
		if !ok {
			hd = &coordinator.HostDomainSpec{DomainID: domainID}
			byDomain[domainID] = hd
			order = append(order, domainID)
		}
		if partitionNumber.Valid {
			hd.Partitions = append(hd.Partitions, coordinator.HostDomainPartitionSpec{
				PartitionNumber:           int(partitionNumber.Int64),
				CurrentDomainGroupVersion: nullableInt(currentVersion),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, domainID := range order {
		host.Domains = append(host.Domains, *byDomain[domainID])
	}
	return nil
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

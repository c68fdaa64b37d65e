package server

import (
	"fmt"
	"log/slog"

	"ringkv/internal/coordinator"
	"ringkv/internal/server/metrics"
)

// AssemblyError is a fatal inconsistency detected while binding this host's
// partitions to readers. The handler never starts serving after one.
type AssemblyError struct {
	Stage  string
	Detail string
	Err    error
}

func (e *AssemblyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("assembly failed at %s: %s: %v", e.Stage, e.Detail, e.Err)
	}
	return fmt.Sprintf("assembly failed at %s: %s", e.Stage, e.Detail)
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}

func assemblyErrorf(stage string, format string, args ...any) *AssemblyError {
	return &AssemblyError{Stage: stage, Detail: fmt.Sprintf(format, args...)}
}

// buildDomainAccessors resolves cluster metadata into the dense domain
// accessor table this host serves from. This is the single point where
// metadata inconsistency is detected; once it returns, the serving path
// never consults metadata again.
//
// A partition whose current version is absent is logged and skipped, leaving
// its slot empty. Every other inconsistency is fatal, and any readers opened
// before the failure are closed.
func buildDomainAccessors(
	addr coordinator.HostAddress,
	ringGroupName string,
	coord coordinator.Coordinator,
	logger *slog.Logger,
	m *metrics.Metrics,
) ([]*DomainAccessor, error) {
	ringGroup, ok := coord.RingGroup(ringGroupName)
	if !ok {
		return nil, assemblyErrorf("ring group", "ring group %q not found", ringGroupName)
	}
	ring, ok := ringGroup.RingForHost(addr)
	if !ok {
		return nil, assemblyErrorf("ring", "no ring in group %q contains host %s", ringGroupName, addr)
	}
	domainGroup := ringGroup.DomainGroup()
	if domainGroup == nil {
		return nil, assemblyErrorf("domain group", "ring group %q has no domain group", ringGroupName)
	}

	// Prefer the version the ring is updating to; a ring mid-update serves
	// the incoming data.
	versionNumber, ok := ring.UpdatingToVersion()
	if !ok {
		versionNumber, ok = ring.Version()
	}
	if !ok {
		return nil, assemblyErrorf("version", "ring %d has neither an updating-to nor a current version", ring.Number)
	}

	domainGroupVersion, ok := domainGroup.VersionByNumber(versionNumber)
	if !ok {
		return nil, assemblyErrorf("domain group version",
			"version %d not found in domain group %q", versionNumber, domainGroup.Name)
	}

	host, ok := ring.HostByAddress(addr)
	if !ok {
		return nil, assemblyErrorf("host", "host %s not found in ring %d", addr, ring.Number)
	}

	maxDomainID := 0
	for _, dv := range domainGroupVersion.DomainVersions() {
		if dv.Domain.ID > maxDomainID {
			maxDomainID = dv.Domain.ID
		}
	}
	domainAccessors := make([]*DomainAccessor, maxDomainID+1)

	// Close every reader opened so far when assembly fails partway.
	var opened []*PartitionAccessor
	fail := func(err *AssemblyError) ([]*DomainAccessor, error) {
		for _, accessor := range opened {
			if closeErr := accessor.Close(); closeErr != nil {
				logger.Error("closing readers after failed assembly", "error", closeErr)
			}
		}
		return nil, err
	}

	for _, dv := range domainGroupVersion.DomainVersions() {
		domain := dv.Domain

		hostDomain, ok := host.HostDomain(domain.ID)
		if !ok {
			return fail(assemblyErrorf("host domain",
				"host %s has no assignment record for domain %s (id %d)", addr, domain.Name, domain.ID))
		}
		partitions := hostDomain.Partitions()

		logger.Info("loading domain partitions",
			"domain", domain.Name,
			"domain_id", domain.ID,
			"assigned", len(partitions),
			"num_partitions", domain.NumPartitions,
		)

		partitionAccessors := make([]*PartitionAccessor, domain.NumPartitions)
		for _, partition := range partitions {
			currentVersion, ok := partition.CurrentDomainGroupVersion()
			if !ok {
				logger.Error("skipping partition with no current version",
					"domain", domain.Name,
					"partition", partition.PartitionNumber,
				)
				m.IncrementPartitionsSkipped()
				continue
			}

			if partition.PartitionNumber < 0 || partition.PartitionNumber >= domain.NumPartitions {
				return fail(assemblyErrorf("partition number",
					"partition %d of domain %s out of range [0, %d)",
					partition.PartitionNumber, domain.Name, domain.NumPartitions))
			}

			// The version this partition should be at is dictated by the
			// domain group version it was last updated to, not by the
			// ring-level effective version.
			partitionGroupVersion, ok := domainGroup.VersionByNumber(currentVersion)
			if !ok {
				return fail(assemblyErrorf("partition version",
					"domain group %q has no version %d recorded for partition %d of domain %s",
					domainGroup.Name, currentVersion, partition.PartitionNumber, domain.Name))
			}
			domainVersion, ok := partitionGroupVersion.DomainVersion(domain.ID)
			if !ok {
				return fail(assemblyErrorf("partition version",
					"domain group version %d has no entry for domain %s (id %d)",
					partitionGroupVersion.Number, domain.Name, domain.ID))
			}

			reader, err := domain.Engine.OpenReader(partition.PartitionNumber)
			if err != nil {
				return fail(&AssemblyError{
					Stage: "open reader",
					Detail: fmt.Sprintf("partition %d of domain %s",
						partition.PartitionNumber, domain.Name),
					Err: err,
				})
			}

			// A reader that knows its version must agree with metadata.
			// Disagreement is always fatal, never logged-and-tolerated.
			if readerVersion, known := reader.VersionNumber(); known && readerVersion != domainVersion.VersionNumber {
				if closeErr := reader.Close(); closeErr != nil {
					logger.Error("closing mismatched reader", "error", closeErr)
				}
				return fail(assemblyErrorf("version check",
					"partition %d of domain %s: reader reports version %d but metadata dictates version %d",
					partition.PartitionNumber, domain.Name, readerVersion, domainVersion.VersionNumber))
			}

			accessor := NewPartitionAccessor(domain.Name, domain.ID, partition.PartitionNumber, reader)
			partitionAccessors[partition.PartitionNumber] = accessor
			opened = append(opened, accessor)
			m.IncrementPartitionsLoaded()
		}

		domainAccessors[domain.ID] = NewDomainAccessor(domain.Name, domain.ID, partitionAccessors, domain.Partitioner)
	}

	return domainAccessors, nil
}

package server

import (
	"errors"
	"fmt"

	"ringkv/internal/partitioner"
	"ringkv/internal/storage"
)

// DomainAccessor routes a key to the partition accessor holding it. The
// accessor slice is dense (one slot per partition, nil when the partition is
// not served here) and never changes after assembly.
type DomainAccessor struct {
	name        string
	domainID    int
	accessors   []*PartitionAccessor
	partitioner partitioner.Partitioner
}

// NewDomainAccessor builds the routing table for one domain. len(accessors)
// must equal the domain's partition count.
func NewDomainAccessor(name string, domainID int, accessors []*PartitionAccessor, part partitioner.Partitioner) *DomainAccessor {
	return &DomainAccessor{
		name:        name,
		domainID:    domainID,
		accessors:   accessors,
		partitioner: part,
	}
}

// Name returns the domain's human name.
func (d *DomainAccessor) Name() string {
	return d.name
}

// DomainID returns the domain's id.
func (d *DomainAccessor) DomainID() int {
	return d.domainID
}

// NumPartitions returns the domain's fixed partition count.
func (d *DomainAccessor) NumPartitions() int {
	return len(d.accessors)
}

// Get routes key to its partition and performs the read into the worker's
// scratch result. The returned response owns its value bytes; they are
// copied out of the scratch buffer before it can be reused.
func (d *DomainAccessor) Get(key []byte, result *storage.Result) Response {
	idx := d.partitioner.Partition(key, len(d.accessors))
	if idx < 0 || idx >= len(d.accessors) {
		return InternalErrorResponse(fmt.Sprintf(
			"domain %s (id %d): partitioner returned out of range index %d for %d partitions",
			d.name, d.domainID, idx, len(d.accessors)))
	}
	accessor := d.accessors[idx]
	if accessor == nil {
		return InternalErrorResponse(fmt.Sprintf(
			"domain %s (id %d): partition unavailable: no reader for partition %d",
			d.name, d.domainID, idx))
	}
	if err := accessor.Get(key, result); err != nil {
		return InternalErrorResponse(fmt.Sprintf(
			"domain %s (id %d): get failed for key %x: %v",
			d.name, d.domainID, key, err))
	}
	if !result.Found() {
		return NotFoundResponse()
	}
	return ValueResponse(result.CopyValue())
}

// Close closes every installed partition accessor in ascending partition
// order, collecting errors.
func (d *DomainAccessor) Close() error {
	var errs []error
	for _, accessor := range d.accessors {
		if accessor == nil {
			continue
		}
		if err := accessor.Close(); err != nil {
			errs = append(errs, fmt.Errorf("domain %s partition %d: %w", d.name, accessor.PartitionNumber(), err))
		}
	}
	return errors.Join(errs...)
}

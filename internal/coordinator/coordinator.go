// Package coordinator models the cluster metadata a partition server needs
// to bind its local partitions to readers: ring groups of rings of hosts,
// and domain groups pinning each domain to an immutable version.
//
// The graph is assembled once (by a loader or directly from a ClusterSpec)
// and is read-only afterwards. The external updater that publishes this
// metadata is out of scope; this package only consumes it.
package coordinator

import (
	"fmt"

	"ringkv/internal/partitioner"
	"ringkv/internal/storage"
)

// Coordinator exposes the slice of cluster metadata the serving core reads.
type Coordinator interface {
	RingGroup(name string) (*RingGroup, bool)
}

// HostAddress identifies a partition server on the network.
type HostAddress struct {
	Host string
	Port int
}

func (a HostAddress) String() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// Cluster is the root of the metadata graph.
type Cluster struct {
	ringGroups map[string]*RingGroup
}

// RingGroup returns the named ring group.
func (c *Cluster) RingGroup(name string) (*RingGroup, bool) {
	rg, ok := c.ringGroups[name]
	return rg, ok
}

// RingGroup is a set of rings serving the same domain group.
type RingGroup struct {
	Name string

	domainGroup *DomainGroup
	rings       []*Ring
}

// DomainGroup returns the domain group attached to this ring group.
func (rg *RingGroup) DomainGroup() *DomainGroup {
	return rg.domainGroup
}

// Rings returns the rings in this group.
func (rg *RingGroup) Rings() []*Ring {
	return rg.rings
}

// RingForHost returns the ring containing the given host.
func (rg *RingGroup) RingForHost(addr HostAddress) (*Ring, bool) {
	for _, ring := range rg.rings {
		if _, ok := ring.HostByAddress(addr); ok {
			return ring, true
		}
	}
	return nil, false
}

// Ring is one replica set of hosts within a ring group.
type Ring struct {
	Number int

	current    *int
	updatingTo *int
	hosts      []*Host
}

// Version returns the ring's current domain group version, if set.
func (r *Ring) Version() (int, bool) {
	if r.current == nil {
		return 0, false
	}
	return *r.current, true
}

// UpdatingToVersion returns the version the ring is moving to, if set.
func (r *Ring) UpdatingToVersion() (int, bool) {
	if r.updatingTo == nil {
		return 0, false
	}
	return *r.updatingTo, true
}

// Hosts returns the hosts in this ring.
func (r *Ring) Hosts() []*Host {
	return r.hosts
}

// HostByAddress returns the host record with the given network identity.
func (r *Ring) HostByAddress(addr HostAddress) (*Host, bool) {
	for _, h := range r.hosts {
		if h.Address == addr {
			return h, true
		}
	}
	return nil, false
}

// Host is one partition server and its partition assignments.
type Host struct {
	Address HostAddress

	hostDomains map[int]*HostDomain
}

// HostDomain returns this host's assignment record for a domain.
func (h *Host) HostDomain(domainID int) (*HostDomain, bool) {
	hd, ok := h.hostDomains[domainID]
	return hd, ok
}

// HostDomain lists the partitions of one domain assigned to one host.
type HostDomain struct {
	DomainID int

	partitions []*HostDomainPartition
}

// Partitions returns the assigned partitions.
func (hd *HostDomain) Partitions() []*HostDomainPartition {
	return hd.partitions
}

// HostDomainPartition is one assigned partition and the domain group
// version it is currently materialized at.
type HostDomainPartition struct {
	PartitionNumber int

	currentDomainGroupVersion *int
}

// CurrentDomainGroupVersion returns the domain group version this partition
// is materialized at. ok is false when the partition has not completed any
// update yet; such partitions cannot be served.
func (p *HostDomainPartition) CurrentDomainGroupVersion() (int, bool) {
	if p.currentDomainGroupVersion == nil {
		return 0, false
	}
	return *p.currentDomainGroupVersion, true
}

// DomainGroup names a set of domains versioned together.
type DomainGroup struct {
	Name string

	versions map[int]*DomainGroupVersion
}

// VersionByNumber returns the domain group version with the given number.
func (dg *DomainGroup) VersionByNumber(number int) (*DomainGroupVersion, bool) {
	v, ok := dg.versions[number]
	return v, ok
}

// DomainGroupVersion pins one version per constituent domain.
type DomainGroupVersion struct {
	Number int

	domainVersions []DomainVersion
}

// DomainVersions returns the per-domain version pins.
func (v *DomainGroupVersion) DomainVersions() []DomainVersion {
	return v.domainVersions
}

// DomainVersion looks up the pin for one domain.
func (v *DomainGroupVersion) DomainVersion(domainID int) (DomainVersion, bool) {
	for _, dv := range v.domainVersions {
		if dv.Domain.ID == domainID {
			return dv, true
		}
	}
	return DomainVersion{}, false
}

// DomainVersion pins one domain at one version.
type DomainVersion struct {
	Domain        *Domain
	VersionNumber int
}

// Domain is a partitioned key→value namespace. Immutable for the lifetime
// of a handler instance.
type Domain struct {
	ID            int
	Name          string
	NumPartitions int
	Partitioner   partitioner.Partitioner
	Engine        storage.Engine
}

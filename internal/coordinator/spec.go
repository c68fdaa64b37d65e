package coordinator

import (
	"fmt"

	"ringkv/internal/partitioner"
	"ringkv/internal/storage"
)

// ClusterSpec is the serializable form of the metadata graph. Loaders
// produce it (from SQL rows or a published JSON snapshot) and tests build it
// directly; NewCluster turns it into the immutable graph.
type ClusterSpec struct {
	Domains      []DomainSpec      `json:"domains"`
	DomainGroups []DomainGroupSpec `json:"domain_groups"`
	RingGroups   []RingGroupSpec   `json:"ring_groups"`
}

// DomainSpec describes one domain. Engine binding happens through the
// EngineBinder so metadata stays independent of local storage wiring.
type DomainSpec struct {
	ID              int               `json:"id"`
	Name            string            `json:"name"`
	NumPartitions   int               `json:"num_partitions"`
	PartitionerName string            `json:"partitioner"`
	EngineName      string            `json:"engine"`
	EngineOptions   map[string]string `json:"engine_options,omitempty"`
}

type DomainGroupSpec struct {
	Name     string                   `json:"name"`
	Versions []DomainGroupVersionSpec `json:"versions"`
}

type DomainGroupVersionSpec struct {
	Number         int                 `json:"number"`
	DomainVersions []DomainVersionSpec `json:"domain_versions"`
}

type DomainVersionSpec struct {
	DomainID      int `json:"domain_id"`
	VersionNumber int `json:"version"`
}

type RingGroupSpec struct {
	Name            string     `json:"name"`
	DomainGroupName string     `json:"domain_group"`
	Rings           []RingSpec `json:"rings"`
}

type RingSpec struct {
	Number            int        `json:"number"`
	CurrentVersion    *int       `json:"current_version,omitempty"`
	UpdatingToVersion *int       `json:"updating_to_version,omitempty"`
	Hosts             []HostSpec `json:"hosts"`
}

type HostSpec struct {
	Host    string           `json:"host"`
	Port    int              `json:"port"`
	Domains []HostDomainSpec `json:"domains"`
}

type HostDomainSpec struct {
	DomainID   int                       `json:"domain_id"`
	Partitions []HostDomainPartitionSpec `json:"partitions"`
}

type HostDomainPartitionSpec struct {
	PartitionNumber           int  `json:"partition_number"`
	CurrentDomainGroupVersion *int `json:"current_domain_group_version,omitempty"`
}

// EngineBinder resolves the storage engine for a domain. The daemon supplies
// one that knows about the engines materialized on this host; tests supply
// one returning memory engines.
type EngineBinder func(domain DomainSpec) (storage.Engine, error)

// NewCluster validates spec and assembles the metadata graph. Every
// reference (domain IDs in version pins and host assignments, domain group
// names in ring groups) must resolve.
func NewCluster(spec ClusterSpec, bindEngine EngineBinder) (*Cluster, error) {
	if bindEngine == nil {
		return nil, fmt.Errorf("engine binder is required")
	}

	domains := make(map[int]*Domain, len(spec.Domains))
	for _, ds := range spec.Domains {
		if ds.NumPartitions <= 0 {
			return nil, fmt.Errorf("domain %q: num partitions must be positive, got %d", ds.Name, ds.NumPartitions)
		}
		if _, exists := domains[ds.ID]; exists {
			return nil, fmt.Errorf("duplicate domain id %d", ds.ID)
		}
		part, ok := partitioner.ByName(ds.PartitionerName)
		if !ok {
			return nil, fmt.Errorf("domain %q: unknown partitioner %q", ds.Name, ds.PartitionerName)
		}
		engine, err := bindEngine(ds)
		if err != nil {
			return nil, fmt.Errorf("domain %q: bind engine: %w", ds.Name, err)
		}
		domains[ds.ID] = &Domain{
			ID:            ds.ID,
			Name:          ds.Name,
			NumPartitions: ds.NumPartitions,
			Partitioner:   part,
			Engine:        engine,
		}
	}

	domainGroups := make(map[string]*DomainGroup, len(spec.DomainGroups))
	for _, dgs := range spec.DomainGroups {
		dg := &DomainGroup{
			Name:     dgs.Name,
			versions: make(map[int]*DomainGroupVersion, len(dgs.Versions)),
		}
		for _, vs := range dgs.Versions {
			dgv := &DomainGroupVersion{Number: vs.Number}
			for _, dvs := range vs.DomainVersions {
				domain, ok := domains[dvs.DomainID]
				if !ok {
					return nil, fmt.Errorf("domain group %q version %d: unknown domain id %d", dgs.Name, vs.Number, dvs.DomainID)
				}
				dgv.domainVersions = append(dgv.domainVersions, DomainVersion{
					Domain:        domain,
					VersionNumber: dvs.VersionNumber,
				})
			}
			dg.versions[vs.Number] = dgv
		}
		domainGroups[dgs.Name] = dg
	}

	cluster := &Cluster{ringGroups: make(map[string]*RingGroup, len(spec.RingGroups))}
	for _, rgs := range spec.RingGroups {
		dg, ok := domainGroups[rgs.DomainGroupName]
		if !ok {
			return nil, fmt.Errorf("ring group %q: unknown domain group %q", rgs.Name, rgs.DomainGroupName)
		}
		rg := &RingGroup{Name: rgs.Name, domainGroup: dg}
		for _, rs := range rgs.Rings {
			ring := &Ring{
				Number:     rs.Number,
				current:    copyOptional(rs.CurrentVersion),
				updatingTo: copyOptional(rs.UpdatingToVersion),
			}
			for _, hs := range rs.Hosts {
				host := &Host{
					Address:     HostAddress{Host: hs.Host, Port: hs.Port},
					hostDomains: make(map[int]*HostDomain, len(hs.Domains)),
				}
				for _, hds := range hs.Domains {
					if _, ok := domains[hds.DomainID]; !ok {
						return nil, fmt.Errorf("host %s: unknown domain id %d", host.Address, hds.DomainID)
					}
					hd := &HostDomain{DomainID: hds.DomainID}
					for _, ps := range hds.Partitions {
						hd.partitions = append(hd.partitions, &HostDomainPartition{
							PartitionNumber:           ps.PartitionNumber,
							currentDomainGroupVersion: copyOptional(ps.CurrentDomainGroupVersion),
						})
					}
					host.hostDomains[hds.DomainID] = hd
				}
				ring.hosts = append(ring.hosts, host)
			}
			rg.rings = append(rg.rings, ring)
		}
		cluster.ringGroups[rgs.Name] = rg
	}

	return cluster, nil
}

func copyOptional(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

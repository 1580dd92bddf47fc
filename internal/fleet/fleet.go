// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

// Package fleet holds the normalized in-memory model of the deployment: the
// instances, compute nodes and images that the inventory loader assembles
// into a Snapshot. A Snapshot is built once per invocation and read-only
// afterwards.
package fleet

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/coredrift/fleetadm/internal/catalog"
)

// Instance is one member of a service.
type Instance struct {
	ID      string
	Service string

	// ComputeID is empty when the instance is hosted in another
	// datacenter: we know of it from the registry but have no local
	// machine record for it.
	ComputeID string

	PrimaryIP  string
	ImageID    string
	Shard      string // only for sharded services
	Datacenter string

	// Metadata is the registry-side metadata of the instance. It feeds
	// probe environments (autoEnv) and carries the coordination-store
	// ordinal for nameservice instances.
	Metadata map[string]string

	// StorageID is set only on storage instances.
	StorageID string
}

// Local reports whether the instance is hosted on a compute node in the
// local datacenter.
func (inst *Instance) Local() bool {
	return inst.ComputeID != ""
}

// ComputeNode is a physical host carrying instances.
type ComputeNode struct {
	ComputeID string
	Hostname  string

	Datacenter string
	AdminIP    string
	RAM        int64 // megabytes

	// Headnode marks the datacenter's head node, the target of template
	// layout generation.
	Headnode bool

	// IsStorageHost is derived: true iff at least one storage instance is
	// hosted here.
	IsStorageHost bool

	// StorageIDs aggregates the storage ids of hosted storage instances,
	// sorted.
	StorageIDs []string
}

// Image is an entry from the image registry. Version is "-" when the image
// record could not be found.
type Image struct {
	ID      string
	Version string
}

// Snapshot is the consistent view of the fleet produced by the inventory
// loader.
type Snapshot struct {
	Account    string
	AppID      string
	Datacenter string

	// AppMetadata is the raw metadata of the fleet application. The
	// coordination-ring reconciler reads its ring property from here.
	AppMetadata map[string]json.RawMessage

	// Instances is sorted by catalog service order, then shard, then
	// datacenter, then instance id. The planner's deterministic instance
	// binding depends on this order.
	Instances []*Instance

	byID      map[string]*Instance
	byService map[string][]*Instance

	cns          map[string]*ComputeNode
	cnByHostname map[string]*ComputeNode

	images map[string]Image
}

// NewSnapshot assembles a snapshot from loaded records, sorting instances,
// building the lookup indexes and deriving the per-CN storage attributes.
// It fails on duplicate instance ids and on instances whose service name is
// not in the catalog.
func NewSnapshot(account, appID, datacenter string, appMetadata map[string]json.RawMessage, instances []*Instance, cns []*ComputeNode, images []Image) (*Snapshot, error) {
	snap := &Snapshot{
		Account:      account,
		AppID:        appID,
		Datacenter:   datacenter,
		AppMetadata:  appMetadata,
		Instances:    instances,
		byID:         make(map[string]*Instance, len(instances)),
		byService:    make(map[string][]*Instance),
		cns:          make(map[string]*ComputeNode, len(cns)),
		cnByHostname: make(map[string]*ComputeNode, len(cns)),
		images:       make(map[string]Image, len(images)),
	}

	sort.SliceStable(snap.Instances, func(i, j int) bool {
		a, b := snap.Instances[i], snap.Instances[j]
		if ai, bi := catalog.Index(a.Service), catalog.Index(b.Service); ai != bi {
			return ai < bi
		}
		if a.Shard != b.Shard {
			return a.Shard < b.Shard
		}
		if a.Datacenter != b.Datacenter {
			return a.Datacenter < b.Datacenter
		}
		return a.ID < b.ID
	})

	for _, inst := range snap.Instances {
		if !catalog.IsValid(inst.Service) {
			return nil, fmt.Errorf("instance %s: unknown service %q", inst.ID, inst.Service)
		}
		if _, ok := snap.byID[inst.ID]; ok {
			return nil, fmt.Errorf("duplicate instance id %s", inst.ID)
		}
		snap.byID[inst.ID] = inst
		snap.byService[inst.Service] = append(snap.byService[inst.Service], inst)
	}

	for _, cn := range cns {
		if _, ok := snap.cns[cn.ComputeID]; ok {
			return nil, fmt.Errorf("duplicate compute node %s", cn.ComputeID)
		}
		snap.cns[cn.ComputeID] = cn
		if cn.Hostname != "" {
			snap.cnByHostname[cn.Hostname] = cn
		}
	}

	for _, img := range images {
		snap.images[img.ID] = img
	}

	snap.deriveStorageHosts()
	return snap, nil
}

func (s *Snapshot) deriveStorageHosts() {
	for _, inst := range s.byService["storage"] {
		if !inst.Local() {
			continue
		}
		cn, ok := s.cns[inst.ComputeID]
		if !ok {
			continue
		}
		cn.IsStorageHost = true
		if inst.StorageID != "" {
			cn.StorageIDs = append(cn.StorageIDs, inst.StorageID)
		}
	}
	for _, cn := range s.cns {
		sort.Strings(cn.StorageIDs)
	}
}

// Instance returns the instance with the given id, or nil.
func (s *Snapshot) Instance(id string) *Instance {
	return s.byID[id]
}

// ServiceInstances returns the instances of the named service, in snapshot
// order. The returned slice must not be modified.
func (s *Snapshot) ServiceInstances(service string) []*Instance {
	return s.byService[service]
}

// LocalInstances returns every instance hosted in the local datacenter, in
// snapshot order.
func (s *Snapshot) LocalInstances() []*Instance {
	var ret []*Instance
	for _, inst := range s.Instances {
		if inst.Local() {
			ret = append(ret, inst)
		}
	}
	return ret
}

// ComputeNode returns the CN with the given compute id, or nil.
func (s *Snapshot) ComputeNode(computeID string) *ComputeNode {
	return s.cns[computeID]
}

// ComputeNodeByHostname returns the CN with the given hostname, or nil.
func (s *Snapshot) ComputeNodeByHostname(hostname string) *ComputeNode {
	return s.cnByHostname[hostname]
}

// ComputeNodes returns all known CNs sorted by hostname then compute id.
func (s *Snapshot) ComputeNodes() []*ComputeNode {
	ret := make([]*ComputeNode, 0, len(s.cns))
	for _, cn := range s.cns {
		ret = append(ret, cn)
	}
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].Hostname != ret[j].Hostname {
			return ret[i].Hostname < ret[j].Hostname
		}
		return ret[i].ComputeID < ret[j].ComputeID
	})
	return ret
}

// ImageVersion returns the human-readable version of the given image, or
// "-" if the image registry had no record for it.
func (s *Snapshot) ImageVersion(imageID string) string {
	if img, ok := s.images[imageID]; ok && img.Version != "" {
		return img.Version
	}
	return "-"
}

// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

// Package layout models desired and observed fleet layouts: a mapping from
// compute node to service to config key to instance count. Desired layouts
// come from JSON files written by operators or by genconfig; observed
// layouts are derived from the inventory snapshot. The planner diffs the
// two.
package layout

import (
	"fmt"
	"sort"

	"github.com/coredrift/fleetadm/internal/catalog"
	"github.com/coredrift/fleetadm/internal/fleet"
)

// AnyCN is the pseudo compute-node id meaning "unpinned placement": the
// provisioning backend chooses the host. A layout may use AnyCN or specific
// compute ids, never both.
const AnyCN = "<any>"

// ConfigKey identifies one variant of a service. Shard is empty for
// unsharded services.
type ConfigKey struct {
	Shard   string
	ImageID string
}

// Prefix returns the part of the key before the image, used to partition
// plan operations so that per-shard sequences stay isolated.
func (k ConfigKey) Prefix() string {
	return k.Shard
}

func (k ConfigKey) String() string {
	if k.Shard != "" {
		return fmt.Sprintf("shard %s image %s", k.Shard, k.ImageID)
	}
	return fmt.Sprintf("image %s", k.ImageID)
}

// Matches reports whether the given instance has this config key.
func (k ConfigKey) Matches(inst *fleet.Instance) bool {
	return inst.ImageID == k.ImageID && inst.Shard == k.Shard
}

// KeyFor returns the config key of an instance per its service's key shape.
func KeyFor(inst *fleet.Instance) ConfigKey {
	if catalog.IsSharded(inst.Service) {
		return ConfigKey{Shard: inst.Shard, ImageID: inst.ImageID}
	}
	return ConfigKey{ImageID: inst.ImageID}
}

// SortKeys sorts config keys by shard then image, in place.
func SortKeys(keys []ConfigKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Shard != keys[j].Shard {
			return keys[i].Shard < keys[j].Shard
		}
		return keys[i].ImageID < keys[j].ImageID
	})
}

// Layout is a count of service variants per compute node. The zero value is
// not usable; call New.
type Layout struct {
	cns map[string]map[string]map[ConfigKey]int
}

// New returns an empty layout.
func New() *Layout {
	return &Layout{cns: make(map[string]map[string]map[ConfigKey]int)}
}

// Add increments the count for (computeID, service, key) by n.
func (l *Layout) Add(computeID, service string, key ConfigKey, n int) {
	svcs, ok := l.cns[computeID]
	if !ok {
		svcs = make(map[string]map[ConfigKey]int)
		l.cns[computeID] = svcs
	}
	counts, ok := svcs[service]
	if !ok {
		counts = make(map[ConfigKey]int)
		svcs[service] = counts
	}
	counts[key] += n
}

// Count returns the count for (computeID, service, key).
func (l *Layout) Count(computeID, service string, key ConfigKey) int {
	return l.cns[computeID][service][key]
}

// Total returns the count for (service, key) summed across all compute
// nodes. This is the quantity that AnyCN entries in a desired layout are
// compared against.
func (l *Layout) Total(service string, key ConfigKey) int {
	total := 0
	for _, svcs := range l.cns {
		total += svcs[service][key]
	}
	return total
}

// ComputeIDs returns the compute ids referenced by the layout, sorted.
func (l *Layout) ComputeIDs() []string {
	ids := make([]string, 0, len(l.cns))
	for id := range l.cns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HasCompute reports whether the layout references the given compute id.
func (l *Layout) HasCompute(computeID string) bool {
	_, ok := l.cns[computeID]
	return ok
}

// HasAny reports whether the layout uses the AnyCN pseudo compute id.
func (l *Layout) HasAny() bool {
	return l.HasCompute(AnyCN)
}

// Services returns the services configured on the given compute id, in
// catalog order.
func (l *Layout) Services(computeID string) []string {
	var names []string
	for name := range l.cns[computeID] {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return catalog.Index(names[i]) < catalog.Index(names[j])
	})
	return names
}

// ServiceNames returns every service referenced anywhere in the layout, in
// catalog order.
func (l *Layout) ServiceNames() []string {
	seen := make(map[string]bool)
	for _, svcs := range l.cns {
		for name := range svcs {
			seen[name] = true
		}
	}
	var names []string
	for name := range seen {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return catalog.Index(names[i]) < catalog.Index(names[j])
	})
	return names
}

// Keys returns the config keys present for (computeID, service), sorted.
func (l *Layout) Keys(computeID, service string) []ConfigKey {
	counts := l.cns[computeID][service]
	keys := make([]ConfigKey, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	SortKeys(keys)
	return keys
}

// AllKeys returns the config keys present for service across all compute
// nodes, sorted and deduplicated.
func (l *Layout) AllKeys(service string) []ConfigKey {
	seen := make(map[ConfigKey]bool)
	for _, svcs := range l.cns {
		for key := range svcs[service] {
			seen[key] = true
		}
	}
	keys := make([]ConfigKey, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	SortKeys(keys)
	return keys
}

// FromSnapshot derives the observed layout from the local instances of the
// snapshot.
func FromSnapshot(snap *fleet.Snapshot) *Layout {
	l := New()
	for _, inst := range snap.Instances {
		if !inst.Local() {
			continue
		}
		l.Add(inst.ComputeID, inst.Service, KeyFor(inst), 1)
	}
	return l
}

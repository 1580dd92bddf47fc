// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

// Package dispatch runs fleet commands and file transfers across a set of
// instances or global zones, selected by a scope predicate, over the
// message bus with bounded concurrency.
package dispatch

import (
	"fmt"
	"sort"

	"github.com/coredrift/fleetadm/internal/catalog"
	"github.com/coredrift/fleetadm/internal/fleet"
)

// Target is one resolved execution target. For zone targets InstanceID is
// the zone to enter on the hosting compute node; for global-zone targets
// InstanceID is empty and the command runs on the node itself.
type Target struct {
	InstanceID string
	ComputeID  string
	Hostname   string
	Service    string
	PrimaryIP  string
}

// GlobalZone reports whether the target is a compute node rather than a
// zone.
func (t Target) GlobalZone() bool {
	return t.InstanceID == ""
}

// Ident is the identifier results are keyed and files are named by: the
// instance id, or the compute id for global-zone targets.
func (t Target) Ident() string {
	if t.GlobalZone() {
		return t.ComputeID
	}
	return t.InstanceID
}

// Scope selects the targets of a dispatch. The selected set is the union
// of all populated fields. Identifiers that match nothing in the inventory
// are errors; a known service with no local instances is an empty
// contribution, not an error.
type Scope struct {
	// InstanceIDs selects specific instances.
	InstanceIDs []string

	// Services selects all local instances of each named service.
	Services []string

	// ComputeNodes selects all local instances hosted on each node, given
	// by hostname or compute id.
	ComputeNodes []string

	// AllInstances selects every local instance of every service that
	// supports fleet commands.
	AllInstances bool

	// GlobalZones switches targeting from instances to their hosting
	// compute nodes. Combined with AllInstances it selects every known
	// compute node.
	GlobalZones bool
}

// Resolve expands the scope against the snapshot. Targets come out in
// deterministic order (catalog order, then snapshot order) with duplicates
// from overlapping selectors removed.
func (s *Scope) Resolve(snap *fleet.Snapshot) ([]Target, error) {
	var instances []*fleet.Instance

	for _, id := range s.InstanceIDs {
		inst := snap.Instance(id)
		if inst == nil {
			return nil, fmt.Errorf("no such instance: %s", id)
		}
		if !inst.Local() {
			return nil, fmt.Errorf("instance %s is not in the local datacenter", id)
		}
		instances = append(instances, inst)
	}

	for _, service := range s.Services {
		if !catalog.IsValid(service) {
			return nil, fmt.Errorf("no such service: %s", service)
		}
		for _, inst := range snap.ServiceInstances(service) {
			if inst.Local() {
				instances = append(instances, inst)
			}
		}
	}

	for _, name := range s.ComputeNodes {
		cn := snap.ComputeNode(name)
		if cn == nil {
			cn = snap.ComputeNodeByHostname(name)
		}
		if cn == nil {
			return nil, fmt.Errorf("no such compute node: %s", name)
		}
		for _, inst := range snap.LocalInstances() {
			if inst.ComputeID == cn.ComputeID {
				instances = append(instances, inst)
			}
		}
	}

	if s.AllInstances {
		for _, inst := range snap.LocalInstances() {
			if catalog.SupportsFleetCommand(inst.Service) {
				instances = append(instances, inst)
			}
		}
	}

	if s.GlobalZones {
		return globalZoneTargets(snap, s.AllInstances, instances), nil
	}

	seen := make(map[string]bool, len(instances))
	targets := make([]Target, 0, len(instances))
	for _, inst := range instances {
		if seen[inst.ID] {
			continue
		}
		seen[inst.ID] = true
		target := Target{
			InstanceID: inst.ID,
			ComputeID:  inst.ComputeID,
			Service:    inst.Service,
			PrimaryIP:  inst.PrimaryIP,
		}
		if cn := snap.ComputeNode(inst.ComputeID); cn != nil {
			target.Hostname = cn.Hostname
		}
		targets = append(targets, target)
	}
	sortTargets(targets)
	return targets, nil
}

// globalZoneTargets projects the instance selection onto the hosting
// compute nodes. With all set, every known node is selected regardless of
// what it hosts.
func globalZoneTargets(snap *fleet.Snapshot, all bool, instances []*fleet.Instance) []Target {
	seen := make(map[string]bool)
	if all {
		for _, cn := range snap.ComputeNodes() {
			seen[cn.ComputeID] = true
		}
	}
	for _, inst := range instances {
		if inst.ComputeID != "" {
			seen[inst.ComputeID] = true
		}
	}
	targets := make([]Target, 0, len(seen))
	for computeID := range seen {
		target := Target{ComputeID: computeID}
		if cn := snap.ComputeNode(computeID); cn != nil {
			target.Hostname = cn.Hostname
		}
		targets = append(targets, target)
	}
	sortTargets(targets)
	return targets
}

func sortTargets(targets []Target) {
	sort.SliceStable(targets, func(i, j int) bool {
		if targets[i].Service != targets[j].Service {
			return catalog.Index(targets[i].Service) < catalog.Index(targets[j].Service)
		}
		if targets[i].Hostname != targets[j].Hostname {
			return targets[i].Hostname < targets[j].Hostname
		}
		return targets[i].Ident() < targets[j].Ident()
	})
}

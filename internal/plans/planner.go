// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package plans

import (
	"fmt"
	"sort"

	"github.com/coredrift/fleetadm/internal/admdiags"
	"github.com/coredrift/fleetadm/internal/catalog"
	"github.com/coredrift/fleetadm/internal/fleet"
	"github.com/coredrift/fleetadm/internal/layout"
)

// Options adjusts planning behavior.
type Options struct {
	// Service, when set, restricts the plan to that service. Differences
	// in other services are ignored entirely.
	Service string

	// AllowReprovision permits collapsing a matched provision/deprovision
	// pair (same service, compute node and shard) into a single
	// reprovision of the existing instance.
	AllowReprovision bool
}

// Build diffs the observed layout (derived from the snapshot) against the
// desired layout and returns the ordered operation list that converges the
// fleet. It is a pure function of its inputs: planning the same snapshot
// and layout twice yields identical plans.
func Build(snap *fleet.Snapshot, desired *layout.Layout, opts Options) (*Plan, admdiags.Diagnostics) {
	var diags admdiags.Diagnostics

	if opts.Service != "" && !catalog.IsValid(opts.Service) {
		diags = diags.Append(admdiags.Sourceless(admdiags.Error,
			"Unknown service",
			fmt.Sprintf("There is no service named %q in the service catalog.", opts.Service)))
		return nil, diags
	}

	observed := layout.FromSnapshot(snap)
	p := &planner{
		snap:     snap,
		observed: observed,
		desired:  desired,
		opts:     opts,
		bound:    make(map[string]bool),
	}

	plan := &Plan{}
	for _, service := range catalog.All() {
		if opts.Service != "" && service != opts.Service {
			continue
		}
		plan.Operations = append(plan.Operations, p.planService(service)...)
	}
	return plan, diags
}

type planner struct {
	snap     *fleet.Snapshot
	observed *layout.Layout
	desired  *layout.Layout
	opts     Options

	// bound tracks instance ids already claimed by a deprovision or
	// reprovision so that no instance is bound twice within one plan.
	bound map[string]bool
}

// delta is the per-(compute, service, key) difference between desired and
// observed counts.
type delta struct {
	key   layout.ConfigKey
	count int // positive: provision; negative: deprovision
	want  int
	have  int
}

func (p *planner) planService(service string) []*Operation {
	if p.desired.HasAny() {
		return p.planBucket(service, layout.AnyCN, p.anyDeltas(service))
	}

	// Walk the union of compute nodes referenced by the desired layout
	// and those observed hosting this service, sorted for determinism.
	desiredCNs := make(map[string]bool)
	for _, id := range p.desired.ComputeIDs() {
		desiredCNs[id] = true
	}
	cnSet := make(map[string]bool)
	for id := range desiredCNs {
		cnSet[id] = true
	}
	for _, inst := range p.snap.ServiceInstances(service) {
		if inst.Local() {
			cnSet[inst.ComputeID] = true
		}
	}
	cns := make([]string, 0, len(cnSet))
	for id := range cnSet {
		cns = append(cns, id)
	}
	sort.Strings(cns)

	var ops []*Operation
	for _, cn := range cns {
		var deltas []delta
		if !desiredCNs[cn] {
			// The desired layout says nothing about this CN at all:
			// everything observed here is surplus.
			for _, key := range p.observed.Keys(cn, service) {
				have := p.observed.Count(cn, service, key)
				deltas = append(deltas, delta{key: key, count: -have, want: 0, have: have})
			}
		} else {
			deltas = p.cnDeltas(service, cn)
		}
		ops = append(ops, p.planBucket(service, cn, deltas)...)
	}
	return ops
}

func (p *planner) cnDeltas(service, cn string) []delta {
	keySet := make(map[layout.ConfigKey]bool)
	for _, key := range p.desired.Keys(cn, service) {
		keySet[key] = true
	}
	for _, key := range p.observed.Keys(cn, service) {
		keySet[key] = true
	}
	keys := make([]layout.ConfigKey, 0, len(keySet))
	for key := range keySet {
		keys = append(keys, key)
	}
	layout.SortKeys(keys)

	var deltas []delta
	for _, key := range keys {
		want := p.desired.Count(cn, service, key)
		have := p.observed.Count(cn, service, key)
		if want != have {
			deltas = append(deltas, delta{key: key, count: want - have, want: want, have: have})
		}
	}
	return deltas
}

// anyDeltas compares unpinned desired counts against the observed totals
// across all compute nodes.
func (p *planner) anyDeltas(service string) []delta {
	keySet := make(map[layout.ConfigKey]bool)
	for _, key := range p.desired.Keys(layout.AnyCN, service) {
		keySet[key] = true
	}
	for _, key := range p.observed.AllKeys(service) {
		keySet[key] = true
	}
	keys := make([]layout.ConfigKey, 0, len(keySet))
	for key := range keySet {
		keys = append(keys, key)
	}
	layout.SortKeys(keys)

	var deltas []delta
	for _, key := range keys {
		want := p.desired.Count(layout.AnyCN, service, key)
		have := p.observed.Total(service, key)
		if want != have {
			deltas = append(deltas, delta{key: key, count: want - have, want: want, have: have})
		}
	}
	return deltas
}

// planBucket orders the operations for one (service, compute node) bucket.
// Deltas are partitioned by config-key prefix (the shard, for sharded
// services) so that per-shard sequences stay isolated, then provisions and
// deprovisions within a partition are paired into reprovisions where
// allowed and interleaved one-for-one otherwise.
func (p *planner) planBucket(service, cn string, deltas []delta) []*Operation {
	if len(deltas) == 0 {
		return nil
	}

	prefixes := make([]string, 0, len(deltas))
	byPrefix := make(map[string][]delta)
	for _, d := range deltas {
		prefix := d.key.Prefix()
		if _, ok := byPrefix[prefix]; !ok {
			prefixes = append(prefixes, prefix)
		}
		byPrefix[prefix] = append(byPrefix[prefix], d)
	}
	sort.Strings(prefixes)

	var ops []*Operation
	for _, prefix := range prefixes {
		ops = append(ops, p.planPartition(service, cn, byPrefix[prefix])...)
	}
	return ops
}

func (p *planner) planPartition(service, cn string, deltas []delta) []*Operation {
	var provisions, deprovisions []*Operation
	for _, d := range deltas {
		switch {
		case d.count > 0:
			reason := fmt.Sprintf("%d instances wanted, %d found", d.want, d.have)
			for i := 0; i < d.count; i++ {
				provisions = append(provisions, &Operation{
					Action:    Provision,
					Service:   service,
					ComputeID: cn,
					Key:       d.key,
					Shard:     d.key.Shard,
					Reason:    reason,
				})
			}
		case d.count < 0:
			reason := fmt.Sprintf("%d instances wanted, %d found", d.want, d.have)
			for _, inst := range p.bindInstances(service, cn, d.key, -d.count) {
				// Bind to the instance's real host even in unpinned
				// layouts so the executor can lane by compute node.
				deprovisions = append(deprovisions, &Operation{
					Action:     Deprovision,
					Service:    service,
					ComputeID:  inst.ComputeID,
					Key:        d.key,
					Shard:      d.key.Shard,
					InstanceID: inst.ID,
					Reason:     reason,
				})
			}
		}
	}

	var ops []*Operation

	if p.opts.AllowReprovision {
		for len(provisions) > 0 && len(deprovisions) > 0 {
			prov, dep := provisions[0], deprovisions[0]
			provisions, deprovisions = provisions[1:], deprovisions[1:]
			ops = append(ops, &Operation{
				Action:     Reprovision,
				Service:    service,
				ComputeID:  dep.ComputeID,
				InstanceID: dep.InstanceID,
				OldImageID: dep.Key.ImageID,
				NewImageID: prov.Key.ImageID,
				Shard:      prov.Shard,
				Key:        prov.Key,
				Reason:     fmt.Sprintf("image %s wanted in place of %s", prov.Key.ImageID, dep.Key.ImageID),
			})
		}
	}

	// Interleave the remainder provision-first so that capacity is added
	// before it is removed, then append whichever side is longer.
	for len(provisions) > 0 && len(deprovisions) > 0 {
		ops = append(ops, provisions[0], deprovisions[0])
		provisions, deprovisions = provisions[1:], deprovisions[1:]
	}
	ops = append(ops, provisions...)
	ops = append(ops, deprovisions...)
	return ops
}

// bindInstances picks the specific instances a deprovision applies to. The
// walk follows snapshot order (service, shard, datacenter, id), which is
// what makes binding deterministic.
func (p *planner) bindInstances(service, cn string, key layout.ConfigKey, n int) []*fleet.Instance {
	var picked []*fleet.Instance
	for _, inst := range p.snap.ServiceInstances(service) {
		if len(picked) == n {
			break
		}
		if !inst.Local() || p.bound[inst.ID] {
			continue
		}
		if !key.Matches(inst) {
			continue
		}
		if cn != layout.AnyCN && inst.ComputeID != cn {
			continue
		}
		p.bound[inst.ID] = true
		picked = append(picked, inst)
	}
	return picked
}

// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package alarms

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/coredrift/fleetadm/internal/fleet"
	"github.com/coredrift/fleetadm/internal/upstream"
)

// PlanOptions adjusts update-plan computation.
type PlanOptions struct {
	// Account is the monitoring account owning our probe groups.
	Account string

	// Contacts are attached to newly created probe groups.
	Contacts []string

	// Unconfigure computes a tear-down plan: the wanted set is empty and
	// every group of ours becomes removable.
	Unconfigure bool
}

// ProbeAdd is a probe scheduled for creation. GroupName refers to the
// probe's group by name because the group's UUID may not exist until the
// group itself is created during apply.
type ProbeAdd struct {
	Probe     *upstream.Probe
	GroupName string
}

// UpdatePlan is the differential update bringing the deployed monitoring
// configuration in line with the wanted set.
type UpdatePlan struct {
	GroupsToAdd    []*upstream.ProbeGroup
	GroupsToRemove []*upstream.ProbeGroup
	ProbesToAdd    []ProbeAdd
	ProbesToRemove []*upstream.Probe

	// Warnings report benign drift (contact or owner differences on
	// matched groups) that the plan leaves alone.
	Warnings []string
}

// HasNoChanges reports whether applying the plan would do nothing.
func (p *UpdatePlan) HasNoChanges() bool {
	return len(p.GroupsToAdd) == 0 && len(p.GroupsToRemove) == 0 &&
		len(p.ProbesToAdd) == 0 && len(p.ProbesToRemove) == 0
}

// BuildUpdatePlan diffs the deployed configuration against the wanted set
// derived from the event templates and the snapshot.
func BuildUpdatePlan(snap *fleet.Snapshot, deployed *DeployedConfig, templates []EventTemplate, opts PlanOptions) *UpdatePlan {
	plan := &UpdatePlan{}

	var wanted []*wantedGroup
	if !opts.Unconfigure {
		wanted = computeWanted(snap, templates, opts.Account, opts.Contacts)
	}

	deployedByName := make(map[string]*upstream.ProbeGroup, len(deployed.Groups))
	for _, g := range deployed.Groups {
		deployedByName[g.Name] = g
	}
	probesByGroup := make(map[string][]*upstream.Probe)
	for _, p := range deployed.Probes {
		probesByGroup[p.GroupUUID] = append(probesByGroup[p.GroupUUID], p)
	}

	wantedNames := make(map[string]bool, len(wanted))
	for _, wg := range wanted {
		wantedNames[wg.group.Name] = true

		existing, ok := deployedByName[wg.group.Name]
		if !ok {
			plan.GroupsToAdd = append(plan.GroupsToAdd, wg.group)
			for _, probe := range wg.probes {
				plan.ProbesToAdd = append(plan.ProbesToAdd, ProbeAdd{Probe: probe, GroupName: wg.group.Name})
			}
			continue
		}

		if existing.Owner != wg.group.Owner {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf(
				"probe group %q is owned by %q, expected %q", existing.Name, existing.Owner, wg.group.Owner))
		}
		if !sameContacts(existing.Contacts, wg.group.Contacts) {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf(
				"probe group %q has different contacts than configured", existing.Name))
		}

		plan.diffGroupProbes(wg, existing, probesByGroup[existing.UUID])
	}

	// Deployed groups we do not want: removable patterns are deleted with
	// their probes; anything else is operator-owned and left in place.
	for _, g := range deployed.Groups {
		if wantedNames[g.Name] {
			continue
		}
		if !Removable(g.Name, templates) {
			continue
		}
		plan.GroupsToRemove = append(plan.GroupsToRemove, g)
		plan.ProbesToRemove = append(plan.ProbesToRemove, probesByGroup[g.UUID]...)
	}

	return plan
}

// diffGroupProbes matches wanted probes against the deployed probes of one
// matched group by (type, config, agent, machine).
func (p *UpdatePlan) diffGroupProbes(wg *wantedGroup, group *upstream.ProbeGroup, deployed []*upstream.Probe) {
	unmatched := make(map[string][]*upstream.Probe, len(deployed))
	for _, probe := range deployed {
		key := probeKey(probe)
		unmatched[key] = append(unmatched[key], probe)
	}

	for _, probe := range wg.probes {
		key := probeKey(probe)
		if candidates := unmatched[key]; len(candidates) > 0 {
			unmatched[key] = candidates[1:]
			continue
		}
		add := *probe
		add.GroupUUID = group.UUID
		p.ProbesToAdd = append(p.ProbesToAdd, ProbeAdd{Probe: &add, GroupName: group.Name})
	}

	keys := make([]string, 0, len(unmatched))
	for key := range unmatched {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		p.ProbesToRemove = append(p.ProbesToRemove, unmatched[key]...)
	}
}

// probeKey is the structural identity of a probe. Config is compared by
// canonical JSON so that formatting differences in the deployed payload do
// not force probe churn.
func probeKey(p *upstream.Probe) string {
	return p.Type + "\x00" + canonicalJSON(p.Config) + "\x00" + p.Agent + "\x00" + p.Machine
}

func canonicalJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	buf, err := json.Marshal(v)
	if err != nil {
		return string(raw)
	}
	return string(buf)
}

func sameContacts(a, b []string) bool {
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	if len(as) == 0 && len(bs) == 0 {
		return true
	}
	return reflect.DeepEqual(as, bs)
}

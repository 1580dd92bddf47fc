// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package alarms

import (
	"encoding/json"
	"sort"

	"github.com/coredrift/fleetadm/internal/fleet"
	"github.com/coredrift/fleetadm/internal/upstream"
)

// wantedGroup is one probe group we expect to exist, with its probes. The
// probes carry no group UUID: it is resolved at apply time, after the
// group exists.
type wantedGroup struct {
	group  *upstream.ProbeGroup
	probes []*upstream.Probe
}

// computeWanted expands the event templates against the snapshot into the
// full set of wanted probe groups. The result is ordered by group name.
func computeWanted(snap *fleet.Snapshot, templates []EventTemplate, account string, contacts []string) []*wantedGroup {
	byName := make(map[string]*wantedGroup)
	get := func(name string) *wantedGroup {
		wg, ok := byName[name]
		if !ok {
			wg = &wantedGroup{group: &upstream.ProbeGroup{
				Name:     name,
				Owner:    account,
				Enabled:  true,
				Contacts: contacts,
			}}
			byName[name] = wg
		}
		return wg
	}

	for _, tmpl := range templates {
		switch {
		case tmpl.Scope.CheckFrom != "":
			wg := get(GroupName(tmpl.EventClass))
			for _, target := range localInstances(snap, tmpl.Scope.Service) {
				for _, checker := range localInstances(snap, tmpl.Scope.CheckFrom) {
					wg.probes = append(wg.probes, instanceProbes(tmpl, checker.ID, target.ID, nil)...)
				}
			}

		case tmpl.Scope.Service == ScopeEach:
			for _, service := range probeServices() {
				wg := get(eachGroupName(service))
				for _, inst := range localInstances(snap, service) {
					wg.probes = append(wg.probes, instanceProbes(tmpl, inst.ID, inst.ID, autoEnv(tmpl, inst))...)
				}
			}

		case tmpl.Scope.Service == ScopeAll:
			wg := get(GroupName(tmpl.EventClass))
			for _, service := range probeServices() {
				for _, inst := range localInstances(snap, service) {
					wg.probes = append(wg.probes, instanceProbes(tmpl, inst.ID, inst.ID, autoEnv(tmpl, inst))...)
				}
			}

		case tmpl.Scope.Global:
			wg := get(GroupName(tmpl.EventClass))
			for _, cnID := range hostingComputeIDs(snap, tmpl.Scope.Service) {
				wg.probes = append(wg.probes, instanceProbes(tmpl, cnID, "", nil)...)
			}

		default:
			wg := get(GroupName(tmpl.EventClass))
			for _, inst := range localInstances(snap, tmpl.Scope.Service) {
				wg.probes = append(wg.probes, instanceProbes(tmpl, inst.ID, inst.ID, autoEnv(tmpl, inst))...)
			}
		}
	}

	// Groups that expanded to no probes (a service with no local
	// instances) are not wanted at all.
	names := make([]string, 0, len(byName))
	for name, wg := range byName {
		if len(wg.probes) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	wanted := make([]*wantedGroup, 0, len(names))
	for _, name := range names {
		wanted = append(wanted, byName[name])
	}
	return wanted
}

// instanceProbes builds one probe per check of the template, bound to the
// given agent. machine is empty when the agent itself is the subject.
func instanceProbes(tmpl EventTemplate, agent, machine string, env map[string]string) []*upstream.Probe {
	var probes []*upstream.Probe
	for i, check := range tmpl.Checks {
		probes = append(probes, &upstream.Probe{
			Name:        probeName(tmpl.EventClass, i),
			Type:        check.Type,
			Config:      checkConfig(check, env),
			Agent:       agent,
			Machine:     machine,
			GroupEvents: true,
		})
	}
	return probes
}

// checkConfig renders a check's config, merging in the probe environment.
// encoding/json emits map keys sorted, so equal configs render to equal
// bytes and structural probe matching can compare the raw payloads.
func checkConfig(check Check, env map[string]string) json.RawMessage {
	config := make(map[string]interface{}, len(check.Config)+1)
	for k, v := range check.Config {
		config[k] = v
	}
	if len(env) > 0 {
		config["env"] = env
	}
	buf, err := json.Marshal(config)
	if err != nil {
		// config maps come from the static event catalog; they always
		// marshal
		panic(err)
	}
	return buf
}

func autoEnv(tmpl EventTemplate, inst *fleet.Instance) map[string]string {
	if len(tmpl.AutoEnv) == 0 {
		return nil
	}
	env := make(map[string]string, len(tmpl.AutoEnv))
	for _, key := range tmpl.AutoEnv {
		env[key] = inst.Metadata[key]
	}
	return env
}

func localInstances(snap *fleet.Snapshot, service string) []*fleet.Instance {
	var ret []*fleet.Instance
	for _, inst := range snap.ServiceInstances(service) {
		if inst.Local() {
			ret = append(ret, inst)
		}
	}
	return ret
}

// hostingComputeIDs returns the distinct compute nodes hosting local
// instances of the service, sorted.
func hostingComputeIDs(snap *fleet.Snapshot, service string) []string {
	seen := make(map[string]bool)
	for _, inst := range localInstances(snap, service) {
		seen[inst.ComputeID] = true
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

// Package catalog is the static vocabulary of fleet services: which service
// names exist, which are sharded, which participate in fleet commands, and
// which are subject to monitoring probes.
//
// The catalog is pure data. Anything that consumes a service name from user
// input or from an upstream record validates it here first.
package catalog

import "fmt"

// Service holds the static metadata for one service in the fleet.
type Service struct {
	Name string

	// Sharded services carry a shard number as the leading element of
	// their config key.
	Sharded bool

	// FleetCommand reports whether instances of this service accept
	// dispatched commands and file transfers.
	FleetCommand bool

	// Probes reports whether instances of this service are subject to
	// monitoring probes.
	Probes bool

	// ProbeGroupAlias is the human-oriented probe-group name used for
	// per-service ("each") event templates.
	ProbeGroupAlias string
}

// services is ordered. Plan emission, executor scheduling, and all of the
// tabular output walk services in this order, which is what makes plans
// deterministic across runs.
var services = []Service{
	{Name: "nameservice", FleetCommand: true, Probes: true, ProbeGroupAlias: "nameservice"},
	{Name: "postgres", Sharded: true, FleetCommand: true, Probes: true, ProbeGroupAlias: "postgres"},
	{Name: "moray", Sharded: true, FleetCommand: true, Probes: true, ProbeGroupAlias: "moray"},
	{Name: "electric-moray", FleetCommand: true, Probes: true, ProbeGroupAlias: "electric-moray"},
	{Name: "storage", FleetCommand: true, Probes: true, ProbeGroupAlias: "storage"},
	{Name: "authcache", FleetCommand: true, Probes: true, ProbeGroupAlias: "authcache"},
	{Name: "webapi", FleetCommand: true, Probes: true, ProbeGroupAlias: "webapi"},
	{Name: "loadbalancer", FleetCommand: true, Probes: true, ProbeGroupAlias: "loadbalancer"},
	{Name: "jobsupervisor", FleetCommand: true, Probes: true, ProbeGroupAlias: "jobsupervisor"},
	{Name: "jobpuller", FleetCommand: true, Probes: true, ProbeGroupAlias: "jobpuller"},
	{Name: "medusa", FleetCommand: true, Probes: true, ProbeGroupAlias: "medusa"},
	{Name: "ops", FleetCommand: true, Probes: true, ProbeGroupAlias: "ops"},
	{Name: "madtom", FleetCommand: true, Probes: false},
	{Name: "marlin-dashboard", FleetCommand: true, Probes: false},
}

var byName = func() map[string]Service {
	m := make(map[string]Service, len(services))
	for _, svc := range services {
		if _, ok := m[svc.Name]; ok {
			panic(fmt.Sprintf("duplicate service %q in catalog", svc.Name))
		}
		m[svc.Name] = svc
	}
	return m
}()

// IsValid reports whether name is a known service name.
func IsValid(name string) bool {
	_, ok := byName[name]
	return ok
}

// IsSharded reports whether the named service carries a shard number in its
// config key. False for unknown services.
func IsSharded(name string) bool {
	return byName[name].Sharded
}

// SupportsFleetCommand reports whether instances of the named service accept
// dispatched commands.
func SupportsFleetCommand(name string) bool {
	return byName[name].FleetCommand
}

// SupportsProbes reports whether instances of the named service are probe
// targets.
func SupportsProbes(name string) bool {
	return byName[name].Probes
}

// ProbeGroupAlias returns the per-service probe group name, or the service
// name itself if no alias is recorded.
func ProbeGroupAlias(name string) string {
	svc, ok := byName[name]
	if !ok || svc.ProbeGroupAlias == "" {
		return name
	}
	return svc.ProbeGroupAlias
}

// ConfigKey returns the ordered property names composing the named service's
// config key: ("shard", "image") for sharded services, ("image",) otherwise.
func ConfigKey(name string) []string {
	if IsSharded(name) {
		return []string{"shard", "image"}
	}
	return []string{"image"}
}

// All returns every service name in catalog order. The returned slice is a
// copy.
func All() []string {
	names := make([]string, len(services))
	for i, svc := range services {
		names[i] = svc.Name
	}
	return names
}

// ProbeTargets returns the names of services that accept probes, in catalog
// order.
func ProbeTargets() []string {
	var names []string
	for _, svc := range services {
		if svc.Probes {
			names = append(names, svc.Name)
		}
	}
	return names
}

// Index returns the catalog position of the named service, used for the
// deterministic service ordering of plans and reports. Unknown services sort
// last.
func Index(name string) int {
	for i, svc := range services {
		if svc.Name == name {
			return i
		}
	}
	return len(services)
}

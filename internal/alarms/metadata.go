// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

// Package alarms reconciles the monitoring service's probe and probe-group
// configuration against the expected set derived from the local event
// catalog and the fleet snapshot.
package alarms

import "github.com/coredrift/fleetadm/internal/catalog"

// Severity of a knowledge article.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// Scope selects which agents an event template's probes run on.
//
// Exactly one of the following forms is used:
//
//   - Service set: one probe per local instance of that service. With
//     Global also set, one probe per distinct compute node hosting the
//     service instead.
//   - Service == ScopeEach: the template expands per probe-supporting
//     service, one group per service named from the alias table.
//   - Service == ScopeAll: one group; one probe per instance of every
//     probe-supporting service.
//   - CheckFrom set (with Service as the target): one probe per (target
//     instance, checker instance) pair, agent on the checker.
type Scope struct {
	Service   string
	Global    bool
	CheckFrom string
}

const (
	ScopeEach = "each"
	ScopeAll  = "all"
)

// Check is one concrete check within an event template. Config is opaque
// to the reconciler; it is compared structurally against deployed probes.
type Check struct {
	Type   string
	Config map[string]interface{}
}

// KnowledgeArticle is the operator documentation attached to an event.
type KnowledgeArticle struct {
	Severity    Severity
	Title       string
	Description string
	Impact      string
	Response    string
	Action      string
}

// EventTemplate defines one failure mode from the local event catalog.
type EventTemplate struct {
	// EventClass is the dotted event name, e.g. "fleet.storage.disk_used".
	EventClass string

	Scope  Scope
	Checks []Check

	// AutoEnv names instance metadata keys copied into the probe's
	// environment.
	AutoEnv []string

	KA KnowledgeArticle

	// LegacyNames lists probe-group names from older naming schemes that
	// the reconciler is allowed to clean up.
	LegacyNames []string
}

// Templates returns the built-in event catalog.
func Templates() []EventTemplate {
	return builtinTemplates
}

var builtinTemplates = []EventTemplate{
	{
		EventClass: "fleet.instance.svcs_down",
		Scope:      Scope{Service: ScopeEach},
		Checks: []Check{{
			Type:   "cmd",
			Config: map[string]interface{}{"cmd": "svcs -x", "interval": float64(60), "threshold": float64(2)},
		}},
		KA: KnowledgeArticle{
			Severity:    SeverityMajor,
			Title:       "SMF maintenance",
			Description: "One or more SMF services in the zone entered the maintenance state.",
			Impact:      "The affected instance is likely not serving requests.",
			Response:    "None (no automated response).",
			Action:      "Log into the zone, inspect the service log and clear the maintenance state.",
		},
		LegacyNames: []string{"smf-maintenance"},
	},
	{
		EventClass: "fleet.instance.log_error",
		Scope:      Scope{Service: ScopeAll},
		Checks: []Check{{
			Type:   "bunyan-log-scan",
			Config: map[string]interface{}{"fields": map[string]interface{}{"level": "fatal"}, "interval": float64(60)},
		}},
		KA: KnowledgeArticle{
			Severity:    SeverityMinor,
			Title:       "Fatal error logged",
			Description: "An instance logged a fatal-level error.",
			Impact:      "A request may have failed; the instance usually restarts and recovers.",
			Response:    "None.",
			Action:      "Inspect the instance log around the event time.",
		},
		LegacyNames: []string{"log-fatal"},
	},
	{
		EventClass: "fleet.storage.disk_used",
		Scope:      Scope{Service: "storage"},
		Checks: []Check{{
			Type:   "cmd",
			Config: map[string]interface{}{"cmd": "disk-usage-check", "interval": float64(300)},
		}},
		AutoEnv: []string{"STORAGE_ID"},
		KA: KnowledgeArticle{
			Severity:    SeverityMajor,
			Title:       "Storage zone low on space",
			Description: "A storage zone's data dataset crossed the usage threshold.",
			Impact:      "Writes to this storage zone will begin to fail when the dataset fills.",
			Response:    "New writes are directed away from full zones automatically.",
			Action:      "Audit space usage and grow or rebalance the affected zone.",
		},
	},
	{
		EventClass: "fleet.compute.zone_memory",
		Scope:      Scope{Service: "storage", Global: true},
		Checks: []Check{{
			Type:   "cmd",
			Config: map[string]interface{}{"cmd": "zone-memory-check", "interval": float64(120)},
		}},
		KA: KnowledgeArticle{
			Severity:    SeverityMinor,
			Title:       "Zone memory pressure on storage node",
			Description: "A zone on a storage node is paging against its memory cap.",
			Impact:      "Requests served by the node may see elevated latency.",
			Response:    "None.",
			Action:      "Identify the zone under pressure and rebalance or resize it.",
		},
	},
	{
		EventClass: "fleet.webapi.reachability",
		Scope:      Scope{Service: "webapi", CheckFrom: "loadbalancer"},
		Checks: []Check{{
			Type:   "http",
			Config: map[string]interface{}{"path": "/ping", "interval": float64(60), "timeout": float64(30)},
		}},
		KA: KnowledgeArticle{
			Severity:    SeverityCritical,
			Title:       "Front door cannot reach API server",
			Description: "A load balancer failed to reach a webapi instance on its ping endpoint.",
			Impact:      "Requests routed to the unreachable instance fail until it is taken out of rotation.",
			Response:    "The load balancer health check removes the instance from rotation.",
			Action:      "Check the webapi instance and the network path from the load balancer.",
		},
	},
}

// probeServices returns the services a ScopeEach template expands over.
func probeServices() []string {
	return catalog.ProbeTargets()
}

// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package alarms

import (
	"fmt"
	"strings"

	"github.com/coredrift/fleetadm/internal/catalog"
)

// nameVersionSuffix is appended to every probe-group name we deploy. Bump
// the version only when the naming scheme itself changes; older suffixes
// become legacy patterns.
const nameVersionSuffix = ";v=1"

// GroupName derives the deterministic probe-group name for an event class.
// Two probe groups share a name only if they are the same logical group
// across runs.
func GroupName(eventClass string) string {
	return eventClass + nameVersionSuffix
}

// eachGroupName is the probe-group name for a per-service ("each")
// template expansion, taken from the service alias table.
func eachGroupName(service string) string {
	return catalog.ProbeGroupAlias(service) + nameVersionSuffix
}

// Removable reports whether a deployed probe-group name belongs to us —
// either the current naming scheme or a legacy name recorded in the event
// catalog — and may therefore be deleted when no longer wanted. Anything
// else is operator-owned and left in place.
func Removable(name string, templates []EventTemplate) bool {
	if strings.HasSuffix(name, nameVersionSuffix) {
		base := strings.TrimSuffix(name, nameVersionSuffix)
		for _, tmpl := range templates {
			if base == tmpl.EventClass {
				return true
			}
		}
		for _, service := range probeServices() {
			if base == catalog.ProbeGroupAlias(service) {
				return true
			}
		}
	}
	for _, tmpl := range templates {
		for _, legacy := range tmpl.LegacyNames {
			if name == legacy {
				return true
			}
		}
	}
	return false
}

// probeName names one wanted probe. The name is informational: matching
// against deployed probes uses (type, config, agent, machine), never the
// name.
func probeName(eventClass string, ordinal int) string {
	parts := strings.Split(eventClass, ".")
	return fmt.Sprintf("%s%d", parts[len(parts)-1], ordinal)
}

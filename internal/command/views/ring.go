// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package views

import (
	"fmt"
	"strconv"

	"github.com/coredrift/fleetadm/internal/ring"
)

// Ring renders coordination-ring audits.
type Ring struct {
	view *View
}

func NewRing(view *View) *Ring {
	return &Ring{view: view}
}

// Audit prints the ring table with one row per stored entry, then any
// validation errors.
func (r *Ring) Audit(audit *ring.Audit) {
	table := newTable(r.view)
	table.SetHeader([]string{"#", "HOST", "PORT", "LAST", "STATE"})
	for i, entry := range audit.Entries {
		last := ""
		if entry.IsLast {
			last = "*"
		}
		table.Append([]string{
			strconv.Itoa(entry.Ordinal),
			entry.Address,
			strconv.Itoa(entry.Port),
			last,
			audit.States[i].String(),
		})
	}
	table.Render()

	for _, err := range audit.ValidationErrors {
		fmt.Fprintf(r.view.Stderr, "%s\n", r.view.Color(fmt.Sprintf("[red]error: %s[reset]", err)))
	}
	if audit.ForeignCount > 0 {
		fmt.Fprintf(r.view.Stdout, "note: %d entries are backed by instances in other datacenters\n",
			audit.ForeignCount)
	}
}

// RepairSummary reports the outcome of a fixup run.
func (r *Ring) RepairSummary(audit *ring.Audit, changed bool) {
	switch {
	case changed:
		fmt.Fprintf(r.view.Stdout, "removed %d dangling entries from the ring\n", len(audit.MissingIndices))
	case audit.Clean():
		fmt.Fprintln(r.view.Stdout, "ring is consistent; nothing to repair")
	default:
		fmt.Fprintln(r.view.Stdout, "no repairable entries")
	}
}

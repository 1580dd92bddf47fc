// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package views

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/coredrift/fleetadm/internal/alarms"
	"github.com/coredrift/fleetadm/internal/upstream"
)

// Alarms renders alarm listings and alarm-config plans.
type Alarms struct {
	view *View
}

func NewAlarms(view *View) *Alarms {
	return &Alarms{view: view}
}

// List prints the alarm table, open alarms first, newest first within each
// group.
func (a *Alarms) List(list []*upstream.Alarm) {
	sorted := append([]*upstream.Alarm(nil), list...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Closed != sorted[j].Closed {
			return !sorted[i].Closed
		}
		return sorted[i].OpenedAt.After(sorted[j].OpenedAt)
	})

	table := newTable(a.view)
	table.SetHeader([]string{"ID", "STATE", "OPENED", "FAULTS"})
	for _, alarm := range sorted {
		state := "open"
		if alarm.Closed {
			state = "closed"
		}
		if alarm.Suppressed {
			state += " (notify off)"
		}
		table.Append([]string{
			strconv.Itoa(alarm.ID),
			state,
			alarm.OpenedAt.Format(time.RFC3339),
			strconv.Itoa(len(alarm.Faults)),
		})
	}
	table.Render()
}

// Details prints one alarm with its faults.
func (a *Alarms) Details(alarm *upstream.Alarm) {
	state := "open"
	if alarm.Closed {
		state = "closed"
	}
	fmt.Fprintf(a.view.Stdout, "alarm %d (%s), opened %s\n",
		alarm.ID, state, alarm.OpenedAt.Format(time.RFC3339))
	if alarm.Suppressed {
		fmt.Fprintln(a.view.Stdout, "notifications: disabled")
	}
	for _, fault := range alarm.Faults {
		fmt.Fprintf(a.view.Stdout, "  %s  %s  %s\n",
			fault.Time.Format(time.RFC3339), fault.Machine, fault.Summary)
	}
}

// UpdatePlan summarizes a monitoring-config update before apply.
func (a *Alarms) UpdatePlan(plan *alarms.UpdatePlan) {
	if plan.HasNoChanges() {
		fmt.Fprintln(a.view.Stdout, "Monitoring configuration is up to date.")
	} else {
		fmt.Fprintf(a.view.Stdout,
			"Plan: %d probe groups to add, %d to remove; %d probes to add, %d to remove\n",
			len(plan.GroupsToAdd), len(plan.GroupsToRemove),
			len(plan.ProbesToAdd), len(plan.ProbesToRemove))
	}
	for _, warning := range plan.Warnings {
		fmt.Fprintf(a.view.Stdout, "%s\n",
			a.view.Color(fmt.Sprintf("[yellow]warning: %s[reset]", warning)))
	}
}

// MaintWindows prints the maintenance-window table.
func (a *Alarms) MaintWindows(windows []*upstream.MaintWindow) {
	sorted := append([]*upstream.MaintWindow(nil), windows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	table := newTable(a.view)
	table.SetHeader([]string{"ID", "START", "END", "SCOPE", "NOTES"})
	for _, win := range sorted {
		table.Append([]string{
			strconv.Itoa(win.ID),
			win.Start.Format(time.RFC3339),
			win.End.Format(time.RFC3339),
			maintScope(win),
			win.Notes,
		})
	}
	table.Render()
}

func maintScope(win *upstream.MaintWindow) string {
	switch {
	case len(win.Probes) > 0:
		return fmt.Sprintf("%d probes", len(win.Probes))
	case len(win.ProbeGroups) > 0:
		return fmt.Sprintf("%d probe groups", len(win.ProbeGroups))
	case len(win.Machines) > 0:
		return fmt.Sprintf("%d machines", len(win.Machines))
	default:
		return "all"
	}
}

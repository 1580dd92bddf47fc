// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/coredrift/fleetadm/internal/command/views"
	"github.com/coredrift/fleetadm/internal/upstream"
)

// AlarmMaintListCommand lists maintenance windows.
type AlarmMaintListCommand struct {
	Meta
}

func (c *AlarmMaintListCommand) Help() string {
	helpText := `
Usage: fleetadm alarm maint list

  Lists maintenance windows.
`
	return strings.TrimSpace(helpText)
}

func (c *AlarmMaintListCommand) Synopsis() string {
	return "List maintenance windows"
}

func (c *AlarmMaintListCommand) Run(args []string) int {
	if err := c.flagSet("alarm maint list").Parse(args); err != nil {
		return c.usageError("alarm maint list", err)
	}

	windows, err := c.Clients.Monitor.ListMaintWindows(context.Background(), c.Config.Account)
	if err != nil {
		c.showError(err)
		return 1
	}
	views.NewAlarms(c.View).MaintWindows(windows)
	return 0
}

// AlarmMaintShowCommand prints one maintenance window.
type AlarmMaintShowCommand struct {
	Meta
}

func (c *AlarmMaintShowCommand) Help() string {
	helpText := `
Usage: fleetadm alarm maint show <id>

  Prints one maintenance window.
`
	return strings.TrimSpace(helpText)
}

func (c *AlarmMaintShowCommand) Synopsis() string {
	return "Show one maintenance window"
}

func (c *AlarmMaintShowCommand) Run(args []string) int {
	f := c.flagSet("alarm maint show")
	if err := f.Parse(args); err != nil {
		return c.usageError("alarm maint show", err)
	}
	id, err := alarmID(f.Args())
	if err != nil {
		return c.usageError("alarm maint show", err)
	}

	win, err := c.Clients.Monitor.GetMaintWindow(context.Background(), c.Config.Account, id)
	if err != nil {
		c.showError(err)
		return 1
	}
	views.NewAlarms(c.View).MaintWindows([]*upstream.MaintWindow{win})
	return 0
}

// AlarmMaintCreateCommand creates a maintenance window.
type AlarmMaintCreateCommand struct {
	Meta
}

func (c *AlarmMaintCreateCommand) Help() string {
	helpText := `
Usage: fleetadm alarm maint create [options] -notes <text>

  Creates a maintenance window. Start defaults to now; either -end or
  -duration sets when it closes. At most one of -probe, -group or
  -machine scopes the window; repeat the flag for multiple values.
  Without a scope the window covers everything.

Options:

  -start time       RFC 3339 start time. Defaults to now.

  -end time         RFC 3339 end time.

  -duration d       Window length, e.g. 2h30m. Alternative to -end.

  -notes text       Required description of the maintenance.

  -probe uuid       Scope to a probe. May be repeated.

  -group uuid       Scope to a probe group. May be repeated.

  -machine uuid     Scope to a machine. May be repeated.
`
	return strings.TrimSpace(helpText)
}

func (c *AlarmMaintCreateCommand) Synopsis() string {
	return "Create a maintenance window"
}

func (c *AlarmMaintCreateCommand) Run(args []string) int {
	var startStr, endStr, notes string
	var duration time.Duration
	var probes, groups, machines contactsFlag
	f := c.flagSet("alarm maint create")
	f.StringVar(&startStr, "start", "", "start time")
	f.StringVar(&endStr, "end", "", "end time")
	f.DurationVar(&duration, "duration", 0, "window length")
	f.StringVar(&notes, "notes", "", "description")
	f.Var(&probes, "probe", "probe scope")
	f.Var(&groups, "group", "probe group scope")
	f.Var(&machines, "machine", "machine scope")
	if err := f.Parse(args); err != nil {
		return c.usageError("alarm maint create", err)
	}
	if notes == "" {
		return c.usageError("alarm maint create", fmt.Errorf("-notes is required"))
	}
	scopes := 0
	for _, s := range [][]string{probes, groups, machines} {
		if len(s) > 0 {
			scopes++
		}
	}
	if scopes > 1 {
		return c.usageError("alarm maint create",
			fmt.Errorf("at most one of -probe, -group and -machine may be used"))
	}

	start := time.Now().UTC()
	if startStr != "" {
		var err error
		start, err = time.Parse(time.RFC3339, startStr)
		if err != nil {
			return c.usageError("alarm maint create", fmt.Errorf("bad -start: %w", err))
		}
	}
	var end time.Time
	switch {
	case endStr != "" && duration != 0:
		return c.usageError("alarm maint create", fmt.Errorf("-end and -duration are mutually exclusive"))
	case endStr != "":
		var err error
		end, err = time.Parse(time.RFC3339, endStr)
		if err != nil {
			return c.usageError("alarm maint create", fmt.Errorf("bad -end: %w", err))
		}
	case duration != 0:
		end = start.Add(duration)
	default:
		return c.usageError("alarm maint create", fmt.Errorf("one of -end or -duration is required"))
	}
	if !end.After(start) {
		return c.usageError("alarm maint create", fmt.Errorf("window must end after it starts"))
	}

	win, err := c.Clients.Monitor.CreateMaintWindow(context.Background(), c.Config.Account, &upstream.MaintWindow{
		Start:       start,
		End:         end,
		Notes:       notes,
		Probes:      probes,
		ProbeGroups: groups,
		Machines:    machines,
	})
	if err != nil {
		c.showError(err)
		return 1
	}
	views.NewAlarms(c.View).MaintWindows([]*upstream.MaintWindow{win})
	return 0
}

// AlarmMaintDeleteCommand deletes maintenance windows.
type AlarmMaintDeleteCommand struct {
	Meta
}

func (c *AlarmMaintDeleteCommand) Help() string {
	helpText := `
Usage: fleetadm alarm maint delete <id>...

  Deletes the given maintenance windows.
`
	return strings.TrimSpace(helpText)
}

func (c *AlarmMaintDeleteCommand) Synopsis() string {
	return "Delete maintenance windows"
}

func (c *AlarmMaintDeleteCommand) Run(args []string) int {
	f := c.flagSet("alarm maint delete")
	if err := f.Parse(args); err != nil {
		return c.usageError("alarm maint delete", err)
	}
	if f.NArg() == 0 {
		return c.usageError("alarm maint delete", fmt.Errorf("expected at least one window id"))
	}
	ctx := context.Background()

	var errs *multierror.Error
	for _, arg := range f.Args() {
		id, err := alarmID([]string{arg})
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if err := c.Clients.Monitor.DeleteMaintWindow(ctx, c.Config.Account, id); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("deleting window %d: %w", id, err))
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		c.showError(err)
		return 1
	}
	return 0
}

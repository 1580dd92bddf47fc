// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/coredrift/fleetadm/internal/command/views"
)

// AlarmListCommand lists alarms.
type AlarmListCommand struct {
	Meta
}

func (c *AlarmListCommand) Help() string {
	helpText := `
Usage: fleetadm alarm list [options]

  Lists alarms, open first.

Options:

  -closed     Include closed alarms.
`
	return strings.TrimSpace(helpText)
}

func (c *AlarmListCommand) Synopsis() string {
	return "List alarms"
}

func (c *AlarmListCommand) Run(args []string) int {
	var includeClosed bool
	f := c.flagSet("alarm list")
	f.BoolVar(&includeClosed, "closed", false, "include closed alarms")
	if err := f.Parse(args); err != nil {
		return c.usageError("alarm list", err)
	}

	alarms, err := c.Clients.Monitor.ListAlarms(context.Background(), c.Config.Account)
	if err != nil {
		c.showError(err)
		return 1
	}
	if !includeClosed {
		open := alarms[:0]
		for _, a := range alarms {
			if !a.Closed {
				open = append(open, a)
			}
		}
		alarms = open
	}
	views.NewAlarms(c.View).List(alarms)
	return 0
}

// AlarmShowCommand prints one alarm with its faults.
type AlarmShowCommand struct {
	Meta
}

func (c *AlarmShowCommand) Help() string {
	helpText := `
Usage: fleetadm alarm show <id>

  Prints one alarm and its fault events.
`
	return strings.TrimSpace(helpText)
}

func (c *AlarmShowCommand) Synopsis() string {
	return "Show one alarm and its faults"
}

func (c *AlarmShowCommand) Run(args []string) int {
	f := c.flagSet("alarm show")
	if err := f.Parse(args); err != nil {
		return c.usageError("alarm show", err)
	}
	id, err := alarmID(f.Args())
	if err != nil {
		return c.usageError("alarm show", err)
	}

	alarm, err := c.Clients.Monitor.GetAlarm(context.Background(), c.Config.Account, id)
	if err != nil {
		c.showError(err)
		return 1
	}
	views.NewAlarms(c.View).Details(alarm)
	return 0
}

// AlarmCloseCommand closes alarms. Failures are reported per alarm; the
// batch continues.
type AlarmCloseCommand struct {
	Meta
}

func (c *AlarmCloseCommand) Help() string {
	helpText := `
Usage: fleetadm alarm close <id>...

  Closes the given alarms. Each alarm is closed independently; a
  failure on one does not stop the rest.
`
	return strings.TrimSpace(helpText)
}

func (c *AlarmCloseCommand) Synopsis() string {
	return "Close alarms"
}

func (c *AlarmCloseCommand) Run(args []string) int {
	f := c.flagSet("alarm close")
	if err := f.Parse(args); err != nil {
		return c.usageError("alarm close", err)
	}
	if f.NArg() == 0 {
		return c.usageError("alarm close", fmt.Errorf("expected at least one alarm id"))
	}
	ctx := context.Background()

	var errs *multierror.Error
	for _, arg := range f.Args() {
		id, err := strconv.Atoi(arg)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("bad alarm id %q", arg))
			continue
		}
		if err := c.Clients.Monitor.CloseAlarm(ctx, c.Config.Account, id); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("closing alarm %d: %w", id, err))
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		c.showError(err)
		return 1
	}
	return 0
}

// AlarmNotifyCommand toggles alarm notifications.
type AlarmNotifyCommand struct {
	Meta
}

func (c *AlarmNotifyCommand) Help() string {
	helpText := `
Usage: fleetadm alarm notify <on|off> <id>...

  Enables or disables notifications for the given alarms.
`
	return strings.TrimSpace(helpText)
}

func (c *AlarmNotifyCommand) Synopsis() string {
	return "Enable or disable alarm notifications"
}

func (c *AlarmNotifyCommand) Run(args []string) int {
	f := c.flagSet("alarm notify")
	if err := f.Parse(args); err != nil {
		return c.usageError("alarm notify", err)
	}
	if f.NArg() < 2 {
		return c.usageError("alarm notify", fmt.Errorf("expected on|off and at least one alarm id"))
	}
	var enabled bool
	switch f.Arg(0) {
	case "on":
		enabled = true
	case "off":
	default:
		return c.usageError("alarm notify", fmt.Errorf("expected on or off, got %q", f.Arg(0)))
	}
	ctx := context.Background()

	var errs *multierror.Error
	for _, arg := range f.Args()[1:] {
		id, err := strconv.Atoi(arg)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("bad alarm id %q", arg))
			continue
		}
		if err := c.Clients.Monitor.SetAlarmNotify(ctx, c.Config.Account, id, enabled); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("alarm %d: %w", id, err))
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		c.showError(err)
		return 1
	}
	return 0
}

func alarmID(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected exactly one alarm id")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("bad alarm id %q", args[0])
	}
	return id, nil
}

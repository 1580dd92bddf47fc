// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/coredrift/fleetadm/internal/alarms"
	"github.com/coredrift/fleetadm/internal/command/views"
	"github.com/coredrift/fleetadm/internal/fleet"
	"github.com/coredrift/fleetadm/internal/upstream"
)

// contactsFlag collects repeated -contact flags.
type contactsFlag []string

func (c *contactsFlag) String() string { return strings.Join(*c, ",") }

func (c *contactsFlag) Set(v string) error {
	*c = append(*c, v)
	return nil
}

// AlarmConfigShowCommand prints the wanted monitoring configuration as the
// update plan computed against an empty deployment, which amounts to the
// full set of groups and probes the fleet should carry.
type AlarmConfigShowCommand struct {
	Meta
}

func (c *AlarmConfigShowCommand) Help() string {
	helpText := `
Usage: fleetadm alarm config show

  Prints the probe groups and probes that the current fleet should
  carry, without consulting the monitoring service.
`
	return strings.TrimSpace(helpText)
}

func (c *AlarmConfigShowCommand) Synopsis() string {
	return "Show the wanted monitoring configuration"
}

func (c *AlarmConfigShowCommand) Run(args []string) int {
	if err := c.flagSet("alarm config show").Parse(args); err != nil {
		return c.usageError("alarm config show", err)
	}

	snap, err := c.loadSnapshot(context.Background())
	if err != nil {
		c.showError(err)
		return 1
	}
	plan := alarms.BuildUpdatePlan(snap, &alarms.DeployedConfig{}, alarms.Templates(),
		alarms.PlanOptions{Account: c.Config.Account})
	view := views.NewAlarms(c.View)
	for _, g := range plan.GroupsToAdd {
		probes := 0
		for _, pa := range plan.ProbesToAdd {
			if pa.GroupName == g.Name {
				probes++
			}
		}
		fmt.Fprintf(c.View.Stdout, "%-40s %d probes\n", g.Name, probes)
	}
	view.UpdatePlan(plan)
	return 0
}

// AlarmConfigVerifyCommand shows the update plan without applying it.
type AlarmConfigVerifyCommand struct {
	Meta
}

func (c *AlarmConfigVerifyCommand) Help() string {
	helpText := `
Usage: fleetadm alarm config verify [options]

  Compares the deployed monitoring configuration against what the
  current fleet should carry and prints the differences. Nothing is
  changed.

Options:

  -contact name   Contact attached to groups the plan would create.
                  May be repeated.
`
	return strings.TrimSpace(helpText)
}

func (c *AlarmConfigVerifyCommand) Synopsis() string {
	return "Show monitoring configuration drift"
}

func (c *AlarmConfigVerifyCommand) Run(args []string) int {
	var contacts contactsFlag
	f := c.flagSet("alarm config verify")
	f.Var(&contacts, "contact", "contact for new groups")
	if err := f.Parse(args); err != nil {
		return c.usageError("alarm config verify", err)
	}
	ctx := context.Background()

	plan, _, err := c.alarmPlan(ctx, contacts, false)
	if err != nil {
		c.showError(err)
		return 1
	}
	views.NewAlarms(c.View).UpdatePlan(plan)
	if !plan.HasNoChanges() {
		return 1
	}
	return 0
}

// AlarmConfigUpdateCommand converges the deployed monitoring configuration.
type AlarmConfigUpdateCommand struct {
	Meta
}

func (c *AlarmConfigUpdateCommand) Help() string {
	helpText := `
Usage: fleetadm alarm config update [options]

  Brings the deployed monitoring configuration in line with the current
  fleet: creates missing probe groups and probes, removes stale ones.

Options:

  -contact name   Contact attached to newly created probe groups.
                  May be repeated.

  -unconfigure    Remove all of our probe groups and probes instead.

  -y              Skip the confirmation prompt.
`
	return strings.TrimSpace(helpText)
}

func (c *AlarmConfigUpdateCommand) Synopsis() string {
	return "Converge the deployed monitoring configuration"
}

func (c *AlarmConfigUpdateCommand) Run(args []string) int {
	var contacts contactsFlag
	var unconfigure, yes bool
	f := c.flagSet("alarm config update")
	f.Var(&contacts, "contact", "contact for new groups")
	f.BoolVar(&unconfigure, "unconfigure", false, "remove all monitoring configuration")
	f.BoolVar(&yes, "y", false, "skip confirmation")
	if err := f.Parse(args); err != nil {
		return c.usageError("alarm config update", err)
	}
	ctx := context.Background()

	plan, _, err := c.alarmPlan(ctx, contacts, unconfigure)
	if err != nil {
		c.showError(err)
		return 1
	}
	views.NewAlarms(c.View).UpdatePlan(plan)
	if plan.HasNoChanges() {
		return 0
	}
	if !yes {
		ok, err := c.confirm("Apply these monitoring changes?")
		if err != nil {
			c.showError(err)
			return 1
		}
		if !ok {
			return 0
		}
	}

	err = alarms.Apply(ctx, c.Clients.Monitor, c.Config.Account, plan, alarms.ApplyOptions{
		Concurrency: c.Config.Concurrency,
		Logger:      c.Logger,
	})
	if err != nil {
		c.showError(err)
		return 1
	}
	return 0
}

// alarmPlan loads the fleet and the deployed monitoring state and computes
// the update plan.
func (m *Meta) alarmPlan(ctx context.Context, contacts []string, unconfigure bool) (*alarms.UpdatePlan, *fleet.Snapshot, error) {
	snap, err := m.loadSnapshot(ctx)
	if err != nil {
		return nil, nil, err
	}

	// Probes can linger on agents whose machine is gone; include destroyed
	// machines so those get cleaned up too.
	var destroyed []*upstream.Machine
	if m.Clients.Machines != nil {
		destroyed, err = m.Clients.Machines.ListDestroyed(ctx, m.Config.Account)
		if err != nil {
			return nil, nil, fmt.Errorf("listing destroyed machines: %w", err)
		}
	}

	agents := alarms.AgentIDs(snap, destroyed)
	deployed, err := alarms.LoadDeployed(ctx, m.Clients.Monitor, m.Config.Account, agents, m.Config.Concurrency)
	if err != nil {
		return nil, nil, err
	}

	plan := alarms.BuildUpdatePlan(snap, deployed, alarms.Templates(), alarms.PlanOptions{
		Account:     m.Config.Account,
		Contacts:    contacts,
		Unconfigure: unconfigure,
	})
	return plan, snap, nil
}

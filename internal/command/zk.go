// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"context"
	"strings"

	"github.com/coredrift/fleetadm/internal/command/views"
	"github.com/coredrift/fleetadm/internal/ring"
)

// ZkListCommand audits the coordination ring.
type ZkListCommand struct {
	Meta
}

func (c *ZkListCommand) Help() string {
	helpText := `
Usage: fleetadm zk list

  Audits the coordination-store server ring against the deployed
  nameservice instances and prints one row per ring entry with its
  state: ok, missing, foreign or invalid.
`
	return strings.TrimSpace(helpText)
}

func (c *ZkListCommand) Synopsis() string {
	return "Audit the coordination-store server ring"
}

func (c *ZkListCommand) Run(args []string) int {
	if err := c.flagSet("zk list").Parse(args); err != nil {
		return c.usageError("zk list", err)
	}

	snap, err := c.loadSnapshot(context.Background())
	if err != nil {
		c.showError(err)
		return 1
	}
	audit, err := ring.AuditSnapshot(snap, "")
	if err != nil {
		c.showError(err)
		return 1
	}
	views.NewRing(c.View).Audit(audit)
	if len(audit.ValidationErrors) > 0 {
		return 1
	}
	return 0
}

// ZkFixupCommand removes dangling ring entries.
type ZkFixupCommand struct {
	Meta
}

func (c *ZkFixupCommand) Help() string {
	helpText := `
Usage: fleetadm zk fixup [options]

  Removes ring entries whose ordinal has no backing nameservice
  instance. The ring is re-read immediately before writing; entries
  involved in validation errors are never touched.

Options:

  -dry-run    Show what would be removed without writing.

  -y          Skip the confirmation prompt.
`
	return strings.TrimSpace(helpText)
}

func (c *ZkFixupCommand) Synopsis() string {
	return "Remove dangling coordination-ring entries"
}

func (c *ZkFixupCommand) Run(args []string) int {
	var dryRun, yes bool
	f := c.flagSet("zk fixup")
	f.BoolVar(&dryRun, "dry-run", false, "no writes")
	f.BoolVar(&yes, "y", false, "skip confirmation")
	if err := f.Parse(args); err != nil {
		return c.usageError("zk fixup", err)
	}
	ctx := context.Background()

	snap, err := c.loadSnapshot(ctx)
	if err != nil {
		c.showError(err)
		return 1
	}
	audit, err := ring.AuditSnapshot(snap, "")
	if err != nil {
		c.showError(err)
		return 1
	}

	view := views.NewRing(c.View)
	view.Audit(audit)
	if !audit.Repairable() {
		view.RepairSummary(audit, false)
		if len(audit.ValidationErrors) > 0 {
			return 1
		}
		return 0
	}
	if dryRun {
		return 0
	}
	if !yes {
		ok, err := c.confirm("Remove the entries marked missing?")
		if err != nil {
			c.showError(err)
			return 1
		}
		if !ok {
			return 0
		}
	}

	rec := &ring.Reconciler{
		Registry: c.Clients.Registry,
		AppName:  c.Config.AppName,
		Logger:   c.Logger,
	}
	repaired, changed, err := rec.Repair(ctx, snap)
	if err != nil {
		c.showError(err)
		return 1
	}
	view.RepairSummary(repaired, changed)
	return 0
}

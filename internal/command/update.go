// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/coredrift/fleetadm/internal/command/views"
	"github.com/coredrift/fleetadm/internal/deploy"
	"github.com/coredrift/fleetadm/internal/layout"
	"github.com/coredrift/fleetadm/internal/plans"
)

// UpdateCommand converges the fleet toward a desired layout.
//
// Concurrent updates are not coordinated: run one update at a time per
// datacenter.
type UpdateCommand struct {
	Meta
}

func (c *UpdateCommand) Help() string {
	helpText := `
Usage: fleetadm update [options] <layout.json>

  Computes the plan that converges the deployed fleet toward the desired
  layout, shows it, asks for confirmation and executes it.

Options:

  -s name           Only plan and execute changes for the named service.

  -dry-run          Show the operations without executing anything.

  -y                Skip the confirmation prompt.

  -no-reprovision   Never collapse an image change into a reprovision;
                    emit separate provision and deprovision operations.
`
	return strings.TrimSpace(helpText)
}

func (c *UpdateCommand) Synopsis() string {
	return "Converge the fleet toward a desired layout"
}

func (c *UpdateCommand) Run(args []string) int {
	var service string
	var dryRun, yes, noReprovision bool
	f := c.flagSet("update")
	f.StringVar(&service, "s", "", "restrict to one service")
	f.BoolVar(&dryRun, "dry-run", false, "print operations only")
	f.BoolVar(&yes, "y", false, "skip confirmation")
	f.BoolVar(&noReprovision, "no-reprovision", false, "no reprovision collapsing")
	if err := f.Parse(args); err != nil {
		return c.usageError("update", err)
	}
	if f.NArg() != 1 {
		return c.usageError("update", fmt.Errorf("expected exactly one layout file"))
	}
	ctx := context.Background()

	src, err := afero.ReadFile(c.Fs, f.Arg(0))
	if err != nil {
		c.showError(err)
		return 1
	}
	desired, diags := layout.Parse(src, f.Arg(0))
	if diags.HasErrors() {
		c.View.Diagnostics(diags)
		return 1
	}

	snap, err := c.loadSnapshot(ctx)
	if err != nil {
		c.showError(err)
		return 1
	}

	plan, diags := plans.Build(snap, desired, plans.Options{
		Service:          service,
		AllowReprovision: !noReprovision,
	})
	c.View.Diagnostics(diags)
	if diags.HasErrors() {
		return 1
	}

	views.NewPlan(c.View).Render(plan)
	if plan.Empty() {
		return 0
	}

	backend, err := deploy.NewRegistryBackend(ctx, c.Clients.Registry, c.Clients.Provisioner, snap.AppID)
	if err != nil {
		c.showError(err)
		return 1
	}

	opts := deploy.Options{DryRun: dryRun, Logger: c.Logger}
	if !dryRun && !yes {
		opts.Confirm = func(p *plans.Plan) (bool, error) {
			return c.confirm("Execute this plan?")
		}
	}
	hook := views.NewExecProgress(c.View, dryRun)
	completed, err := deploy.Execute(ctx, plan, backend, hook, opts)
	if err != nil {
		c.showError(err)
		c.Ui.Error(fmt.Sprintf("%d of %d operations completed", completed, len(plan.Operations)))
		return 1
	}
	return 0
}

// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"context"
	"strings"

	"github.com/coredrift/fleetadm/internal/command/views"
)

// ShowCommand lists the deployed fleet.
type ShowCommand struct {
	Meta
}

func (c *ShowCommand) Help() string {
	helpText := `
Usage: fleetadm show [options]

  Lists deployed instances, grouped by compute node.

Options:

  -summary    Print aggregate counts by service, shard and version
              instead of individual instances.

  -bycn       With -summary, break the counts down per compute node.

  -json       Emit the fleet as a desired-layout JSON document. The
              output is directly usable as input to "fleetadm update".

  -all        Include instances hosted in other datacenters.
`
	return strings.TrimSpace(helpText)
}

func (c *ShowCommand) Synopsis() string {
	return "List deployed instances"
}

func (c *ShowCommand) Run(args []string) int {
	var summary, byCN, asJSON, all bool
	f := c.flagSet("show")
	f.BoolVar(&summary, "summary", false, "aggregate counts")
	f.BoolVar(&byCN, "bycn", false, "per-CN summary")
	f.BoolVar(&asJSON, "json", false, "layout JSON output")
	f.BoolVar(&all, "all", false, "include remote instances")
	if err := f.Parse(args); err != nil {
		return c.usageError("show", err)
	}

	snap, err := c.loadSnapshot(context.Background())
	if err != nil {
		c.showError(err)
		return 1
	}

	view := views.NewShow(c.View)
	switch {
	case asJSON:
		if err := view.JSON(snap); err != nil {
			c.showError(err)
			return 1
		}
	case summary:
		view.Summary(snap, byCN)
	default:
		view.Instances(snap, all)
	}
	return 0
}

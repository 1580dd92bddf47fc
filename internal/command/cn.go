// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"context"
	"strings"

	"github.com/coredrift/fleetadm/internal/command/views"
)

// CnCommand lists compute nodes.
type CnCommand struct {
	Meta
}

func (c *CnCommand) Help() string {
	helpText := `
Usage: fleetadm cn [options]

  Lists the compute nodes hosting the fleet.

Options:

  -s          Only list nodes hosting storage instances.

  -n          Print hostnames only, one per line.

  -o columns  Comma-separated list of columns to print. Available:
              hostname, compute, ip, ram, storage, instances.
`
	return strings.TrimSpace(helpText)
}

func (c *CnCommand) Synopsis() string {
	return "List compute nodes"
}

func (c *CnCommand) Run(args []string) int {
	var storageOnly, namesOnly bool
	var columns string
	f := c.flagSet("cn")
	f.BoolVar(&storageOnly, "s", false, "storage hosts only")
	f.BoolVar(&namesOnly, "n", false, "hostnames only")
	f.StringVar(&columns, "o", "", "column selection")
	if err := f.Parse(args); err != nil {
		return c.usageError("cn", err)
	}

	snap, err := c.loadSnapshot(context.Background())
	if err != nil {
		c.showError(err)
		return 1
	}

	view := views.NewCN(c.View)
	if namesOnly {
		view.Names(snap, storageOnly)
		return 0
	}
	var cols []string
	if columns != "" {
		cols = strings.Split(columns, ",")
	}
	if err := view.Table(snap, cols, storageOnly); err != nil {
		return c.usageError("cn", err)
	}
	return 0
}

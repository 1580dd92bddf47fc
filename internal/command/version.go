// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coredrift/fleetadm/version"
)

// VersionCommand prints the fleetadm version.
type VersionCommand struct {
	Meta
}

func (c *VersionCommand) Help() string {
	helpText := `
Usage: fleetadm version [options]

  Prints the fleetadm version.

Options:

  -json       Output in JSON format.
`
	return strings.TrimSpace(helpText)
}

func (c *VersionCommand) Synopsis() string {
	return "Show the current fleetadm version"
}

func (c *VersionCommand) Run(args []string) int {
	var jsonOut bool
	f := c.flagSet("version")
	f.BoolVar(&jsonOut, "json", false, "JSON output")
	if err := f.Parse(args); err != nil {
		return c.usageError("version", err)
	}

	if jsonOut {
		out, err := json.MarshalIndent(map[string]string{"version": version.String()}, "", "  ")
		if err != nil {
			c.showError(err)
			return 1
		}
		c.Ui.Output(string(out))
		return 0
	}
	c.Ui.Output(fmt.Sprintf("fleetadm v%s", version.String()))
	return 0
}

// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/coredrift/fleetadm/internal/genconfig"
)

// GenconfigCommand generates desired-layout files.
type GenconfigCommand struct {
	Meta
}

func (c *GenconfigCommand) Help() string {
	helpText := `
Usage: fleetadm genconfig [options] <template>
       fleetadm genconfig [options] -from-file=<path>

  Generates a desired-layout document. With a template name ("coal" or
  "lab") the layout places every instance on the datacenter's head node.
  With -from-file, the layout is computed from a hardware description
  and written per availability zone.

Options:

  -from-file=path   Read a hardware description (availability zones,
                    racks, servers with roles) instead of a template.

  -directory=dir    Output directory for per-AZ layout files. Required
                    when the description spans more than one zone.
`
	return strings.TrimSpace(helpText)
}

func (c *GenconfigCommand) Synopsis() string {
	return "Generate a desired-layout document"
}

func (c *GenconfigCommand) Run(args []string) int {
	var fromFile, directory string
	f := c.flagSet("genconfig")
	f.StringVar(&fromFile, "from-file", "", "hardware description path")
	f.StringVar(&directory, "directory", "", "output directory")
	if err := f.Parse(args); err != nil {
		return c.usageError("genconfig", err)
	}
	ctx := context.Background()

	if fromFile != "" {
		return c.runFromFile(ctx, fromFile, directory)
	}

	if f.NArg() != 1 {
		return c.usageError("genconfig", fmt.Errorf(
			"expected a template name (%s) or -from-file", strings.Join(genconfig.TemplateNames(), ", ")))
	}
	snap, err := c.loadSnapshot(ctx)
	if err != nil {
		c.showError(err)
		return 1
	}
	l, err := genconfig.Template(ctx, snap, c.Clients.Images, f.Arg(0))
	if err != nil {
		c.showError(err)
		return 1
	}
	src, err := l.MarshalIndent()
	if err != nil {
		c.showError(err)
		return 1
	}
	c.Ui.Output(string(src))
	return 0
}

func (c *GenconfigCommand) runFromFile(ctx context.Context, path, directory string) int {
	src, err := afero.ReadFile(c.Fs, path)
	if err != nil {
		c.showError(err)
		return 1
	}
	cfg, issues := genconfig.ParseHardwareConfig(src)
	if len(issues) > 0 {
		c.View.Issues(issues)
		return 1
	}

	layouts, err := genconfig.FromFile(ctx, cfg, c.Clients.Images)
	if err != nil {
		c.showError(err)
		return 1
	}
	written, err := genconfig.WriteLayouts(c.Fs, directory, c.View.Stdout, layouts)
	if err != nil {
		c.showError(err)
		return 1
	}
	for _, name := range written {
		c.Ui.Info(fmt.Sprintf("wrote %s", name))
	}
	return 0
}

// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/coredrift/fleetadm/internal/command/views"
	"github.com/coredrift/fleetadm/internal/dispatch"
)

// FleetCommand runs one command or file transfer across a scope of
// instances or global zones.
type FleetCommand struct {
	Meta
}

func (c *FleetCommand) Help() string {
	helpText := `
Usage: fleetadm fleet [scope options] [options] '<command>'
       fleetadm fleet [scope options] [options] -g <remote-file> -d <dir>
       fleetadm fleet [scope options] [options] -p <local-file> -D <dir>

  Runs a shell command on every target in scope, or fetches a file from
  each target (-g), or pushes a file to each target (-p). The scope is
  the union of the scope options; at least one is required.

Scope options:

  -s service   All local instances of the service. May be repeated.

  -z uuid      A specific instance. May be repeated.

  -S node      All instances hosted on the compute node, by hostname or
               uuid. May be repeated.

  -a           Every local instance of every service that supports
               fleet commands.

  -G           Target the global zones hosting the selected instances
               instead of the instances themselves.

Options:

  -g file      Fetch the remote file from every target into the
               directory given by -d, as <ident>.<basename>.

  -d dir       Destination directory for -g.

  -p file      Push the local file into the remote directory given
               by -D on every target.

  -D dir       Remote destination directory for -p.

  -J           Emit one JSON object per result instead of text.

  -I           Immediate mode: print each result as it completes
               instead of buffering until the run finishes.

  -T seconds   Per-target timeout. Defaults to 60.

  -n count     Maximum concurrent targets. Defaults to 30.
`
	return strings.TrimSpace(helpText)
}

func (c *FleetCommand) Synopsis() string {
	return "Run a command or file transfer across the fleet"
}

func (c *FleetCommand) Run(args []string) int {
	var services, instances, nodes contactsFlag
	var all, globalZones bool
	var getPath, getDir, putPath, putDir string
	var jsonOut, immediate bool
	var timeoutSecs, concurrency int
	f := c.flagSet("fleet")
	f.Var(&services, "s", "service scope")
	f.Var(&instances, "z", "instance scope")
	f.Var(&nodes, "S", "compute node scope")
	f.BoolVar(&all, "a", false, "all instances")
	f.BoolVar(&globalZones, "G", false, "target global zones")
	f.StringVar(&getPath, "g", "", "remote file to fetch")
	f.StringVar(&getDir, "d", "", "local directory for -g")
	f.StringVar(&putPath, "p", "", "local file to push")
	f.StringVar(&putDir, "D", "", "remote directory for -p")
	f.BoolVar(&jsonOut, "J", false, "JSON output")
	f.BoolVar(&immediate, "I", false, "immediate output")
	f.IntVar(&timeoutSecs, "T", 0, "per-target timeout in seconds")
	f.IntVar(&concurrency, "n", 0, "max concurrent targets")
	if err := f.Parse(args); err != nil {
		return c.usageError("fleet", err)
	}

	scope := &dispatch.Scope{
		InstanceIDs:  instances,
		Services:     services,
		ComputeNodes: nodes,
		AllInstances: all,
		GlobalZones:  globalZones,
	}
	if len(instances) == 0 && len(services) == 0 && len(nodes) == 0 && !all {
		return c.usageError("fleet", fmt.Errorf("no scope: use -s, -z, -S or -a"))
	}

	op, err := c.buildOperation(f.Args(), getPath, getDir, putPath, putDir)
	if err != nil {
		return c.usageError("fleet", err)
	}

	ctx := context.Background()
	snap, err := c.loadSnapshot(ctx)
	if err != nil {
		c.showError(err)
		return 1
	}
	targets, err := scope.Resolve(snap)
	if err != nil {
		c.showError(err)
		return 1
	}
	if len(targets) == 0 {
		c.Ui.Error("no targets matched the scope")
		return 1
	}

	transport, err := c.Clients.Broker()
	if err != nil {
		c.showError(fmt.Errorf("connecting to message broker: %w", err))
		return 1
	}

	d := &dispatch.Dispatcher{
		Transport:   transport,
		Concurrency: concurrency,
		Timeout:     time.Duration(timeoutSecs) * time.Second,
		Buffered:    !immediate,
		Logger:      c.Logger,
	}

	var out views.FleetResults
	switch {
	case jsonOut:
		out = views.NewFleetJSON(c.View)
	case immediate:
		// results interleave across targets; the block form keeps them
		// readable
		out = views.NewFleetText(c.View, views.Multiline)
	default:
		out = views.NewFleetText(c.View, views.Auto)
	}

	failed := false
	for r := range d.Run(ctx, targets, op) {
		out.Result(r)
		if r.Failed() {
			failed = true
		}
	}
	if failed {
		return 1
	}
	return 0
}

func (c *FleetCommand) buildOperation(args []string, getPath, getDir, putPath, putDir string) (dispatch.Operation, error) {
	switch {
	case getPath != "":
		if putPath != "" {
			return nil, fmt.Errorf("-g and -p are mutually exclusive")
		}
		if getDir == "" {
			return nil, fmt.Errorf("-g requires -d")
		}
		if len(args) != 0 {
			return nil, fmt.Errorf("no command expected with -g")
		}
		return &dispatch.GetOp{RemotePath: getPath, LocalDir: getDir, Fs: c.Fs}, nil
	case putPath != "":
		if putDir == "" {
			return nil, fmt.Errorf("-p requires -D")
		}
		if len(args) != 0 {
			return nil, fmt.Errorf("no command expected with -p")
		}
		return dispatch.NewPutOp(c.Fs, putPath, putDir)
	default:
		if len(args) != 1 {
			return nil, fmt.Errorf("expected exactly one command argument")
		}
		return &dispatch.CommandOp{Script: args[0]}, nil
	}
}

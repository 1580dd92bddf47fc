// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

// Package command holds the fleetadm CLI commands.
package command

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/afero"

	"github.com/coredrift/fleetadm/internal/command/cliconfig"
	"github.com/coredrift/fleetadm/internal/command/views"
	"github.com/coredrift/fleetadm/internal/dispatch"
	"github.com/coredrift/fleetadm/internal/fleet"
	"github.com/coredrift/fleetadm/internal/inventory"
	"github.com/coredrift/fleetadm/internal/upstream"
)

// Clients bundles the upstream bindings commands operate against. Tests
// substitute in-memory fakes.
type Clients struct {
	Registry    upstream.Registry
	Provisioner upstream.Provisioner
	Machines    upstream.Machines
	Compute     upstream.Compute
	Images      upstream.Images
	Monitor     upstream.Monitor

	// Broker dials the dispatch transport on first use.
	Broker func() (dispatch.Transport, error)
}

// Meta is embedded by every command: the UI, the configuration, the
// upstream clients and a handful of shared helpers.
type Meta struct {
	Ui cli.Ui

	View    *views.View
	Config  *cliconfig.Config
	Clients *Clients
	Fs      afero.Fs
	Logger  hclog.Logger

	// Snapshot, when set, is used instead of loading the inventory. Tests
	// use this.
	Snapshot *fleet.Snapshot
}

// flagSet returns a FlagSet configured the way our commands expect:
// errors surface through the returned diagnostics rather than killing the
// process.
func (m *Meta) flagSet(name string) *flag.FlagSet {
	f := flag.NewFlagSet(name, flag.ContinueOnError)
	f.SetOutput(io.Discard)
	f.Usage = func() {}
	return f
}

// loadSnapshot loads the fleet inventory.
func (m *Meta) loadSnapshot(ctx context.Context) (*fleet.Snapshot, error) {
	if m.Snapshot != nil {
		return m.Snapshot, nil
	}
	return inventory.Load(ctx, inventory.Sources{
		Registry: m.Clients.Registry,
		Machines: m.Clients.Machines,
		Compute:  m.Clients.Compute,
		Images:   m.Clients.Images,
	}, inventory.Options{
		AppName:     m.Config.AppName,
		Datacenter:  m.Config.Datacenter,
		Concurrency: m.Config.Concurrency,
		Logger:      m.Logger,
	})
}

// confirm asks a yes/no question on the terminal.
func (m *Meta) confirm(question string) (bool, error) {
	answer, err := m.Ui.Ask(question + " [y/N]")
	if err != nil {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// showError renders a fatal command error.
func (m *Meta) showError(err error) {
	m.Ui.Error(fmt.Sprintf("Error: %s", err))
}

// usageError renders a flag-parsing problem and the command help pointer.
func (m *Meta) usageError(name string, err error) int {
	m.Ui.Error(fmt.Sprintf("Error: %s", err))
	m.Ui.Error(fmt.Sprintf("Run 'fleetadm %s -help' for usage.", name))
	return 2
}

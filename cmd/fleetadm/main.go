// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

// fleetadm is the fleet administration tool: it inspects and reshapes the
// deployed fleet, reconciles the coordination ring and the monitoring
// configuration, and runs commands across instances over the message bus.
package main

import (
	"fmt"
	"os"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/mattn/go-isatty"
	shellwords "github.com/mattn/go-shellwords"
	"github.com/mitchellh/cli"
	"github.com/spf13/afero"

	"github.com/coredrift/fleetadm/internal/command"
	"github.com/coredrift/fleetadm/internal/command/cliconfig"
	"github.com/coredrift/fleetadm/internal/command/views"
	"github.com/coredrift/fleetadm/internal/dispatch"
	"github.com/coredrift/fleetadm/internal/logging"
	"github.com/coredrift/fleetadm/internal/upstream/rest"
	"github.com/coredrift/fleetadm/version"
)

// EnvCLI names additional CLI arguments, prepended to the real ones.
const EnvCLI = "FLEETADM_CLI_ARGS"

func main() {
	os.Exit(realMain())
}

func realMain() int {
	ui := &cli.BasicUi{
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
		Reader:      os.Stdin,
	}

	args, err := mergeEnvArgs(os.Args[1:])
	if err != nil {
		ui.Error(err.Error())
		return 1
	}

	view := views.NewView(os.Stdout, os.Stderr)
	if isatty.IsTerminal(os.Stdout.Fd()) && os.Getenv("NO_COLOR") == "" {
		view.EnableColor()
	}

	logger := logging.Root()
	fs := afero.NewOsFs()

	meta := command.Meta{
		Ui:     ui,
		View:   view,
		Fs:     fs,
		Logger: logger,
	}

	// The version command must work without a config file; everything else
	// needs the upstream endpoints.
	if !versionOnly(args) {
		path, err := cliconfig.ConfigFile(fs)
		if err != nil {
			ui.Error(fmt.Sprintf("Error: %s", err))
			return 1
		}
		cfg, err := cliconfig.Load(fs, path)
		if err != nil {
			ui.Error(fmt.Sprintf("Error: %s", err))
			return 1
		}
		clients, err := buildClients(cfg, logger)
		if err != nil {
			ui.Error(fmt.Sprintf("Error: %s", err))
			return 1
		}
		meta.Config = cfg
		meta.Clients = clients
	}

	runner := &cli.CLI{
		Name:       "fleetadm",
		Version:    version.String(),
		Args:       args,
		Commands:   initCommands(meta),
		HelpWriter: os.Stdout,
	}

	code, err := runner.Run()
	if err != nil {
		ui.Error(fmt.Sprintf("Error executing CLI: %s", err))
		return 1
	}
	return code
}

// mergeEnvArgs prepends arguments from FLEETADM_CLI_ARGS, split with shell
// quoting rules, after the subcommand words.
func mergeEnvArgs(args []string) ([]string, error) {
	extra := os.Getenv(EnvCLI)
	if extra == "" {
		return args, nil
	}
	parsed, err := shellwords.Parse(extra)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", EnvCLI, err)
	}

	// keep the subcommand words first so the CLI router still sees them
	cmdLen := 0
	for cmdLen < len(args) && args[cmdLen] != "" && args[cmdLen][0] != '-' {
		cmdLen++
	}
	merged := make([]string, 0, len(args)+len(parsed))
	merged = append(merged, args[:cmdLen]...)
	merged = append(merged, parsed...)
	merged = append(merged, args[cmdLen:]...)
	return merged, nil
}

func versionOnly(args []string) bool {
	for _, arg := range args {
		switch arg {
		case "version", "-v", "-version", "--version":
			return true
		case "-help", "--help", "-h":
			return true
		}
	}
	return len(args) == 0
}

// buildClients binds the upstream REST endpoints and the broker dialer.
// The broker connection is deferred until a command actually dispatches.
func buildClients(cfg *cliconfig.Config, logger hclog.Logger) (*command.Clients, error) {
	registry, err := rest.NewClient(cfg.Registry, logger.Named("registry"))
	if err != nil {
		return nil, fmt.Errorf("registry endpoint: %w", err)
	}
	machines, err := rest.NewClient(cfg.Machines, logger.Named("machines"))
	if err != nil {
		return nil, fmt.Errorf("machines endpoint: %w", err)
	}
	compute, err := rest.NewClient(cfg.Compute, logger.Named("compute"))
	if err != nil {
		return nil, fmt.Errorf("compute endpoint: %w", err)
	}
	images, err := rest.NewClient(cfg.Images, logger.Named("images"))
	if err != nil {
		return nil, fmt.Errorf("images endpoint: %w", err)
	}
	monitor, err := rest.NewClient(cfg.Monitor, logger.Named("monitor"))
	if err != nil {
		return nil, fmt.Errorf("monitor endpoint: %w", err)
	}

	registryClient := rest.NewRegistryClient(registry)
	return &command.Clients{
		Registry:    registryClient,
		Provisioner: registryClient,
		Machines:    rest.NewMachinesClient(machines),
		Compute:     rest.NewComputeClient(compute),
		Images:      rest.NewImagesClient(images),
		Monitor:     rest.NewMonitorClient(monitor),
		Broker: func() (dispatch.Transport, error) {
			t, err := dispatch.DialBroker(dispatch.BrokerConfig{
				Host:           cfg.Broker.Host,
				Port:           cfg.Broker.Port,
				Login:          cfg.Broker.Login,
				Password:       cfg.Broker.Password,
				ConnectTimeout: cfg.Broker.ConnectTimeout(),
			})
			if err != nil {
				return nil, err
			}
			return t, nil
		},
	}, nil
}

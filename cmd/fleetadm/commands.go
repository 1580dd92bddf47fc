// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"github.com/mitchellh/cli"

	"github.com/coredrift/fleetadm/internal/command"
)

// initCommands builds the CLI command table. Every command shares the same
// Meta value.
func initCommands(meta command.Meta) map[string]cli.CommandFactory {
	return map[string]cli.CommandFactory{
		"show": func() (cli.Command, error) {
			return &command.ShowCommand{Meta: meta}, nil
		},
		"cn": func() (cli.Command, error) {
			return &command.CnCommand{Meta: meta}, nil
		},
		"genconfig": func() (cli.Command, error) {
			return &command.GenconfigCommand{Meta: meta}, nil
		},
		"update": func() (cli.Command, error) {
			return &command.UpdateCommand{Meta: meta}, nil
		},
		"zk list": func() (cli.Command, error) {
			return &command.ZkListCommand{Meta: meta}, nil
		},
		"zk fixup": func() (cli.Command, error) {
			return &command.ZkFixupCommand{Meta: meta}, nil
		},
		"alarm list": func() (cli.Command, error) {
			return &command.AlarmListCommand{Meta: meta}, nil
		},
		"alarm show": func() (cli.Command, error) {
			return &command.AlarmShowCommand{Meta: meta}, nil
		},
		"alarm close": func() (cli.Command, error) {
			return &command.AlarmCloseCommand{Meta: meta}, nil
		},
		"alarm notify": func() (cli.Command, error) {
			return &command.AlarmNotifyCommand{Meta: meta}, nil
		},
		"alarm config show": func() (cli.Command, error) {
			return &command.AlarmConfigShowCommand{Meta: meta}, nil
		},
		"alarm config verify": func() (cli.Command, error) {
			return &command.AlarmConfigVerifyCommand{Meta: meta}, nil
		},
		"alarm config update": func() (cli.Command, error) {
			return &command.AlarmConfigUpdateCommand{Meta: meta}, nil
		},
		"alarm maint list": func() (cli.Command, error) {
			return &command.AlarmMaintListCommand{Meta: meta}, nil
		},
		"alarm maint show": func() (cli.Command, error) {
			return &command.AlarmMaintShowCommand{Meta: meta}, nil
		},
		"alarm maint create": func() (cli.Command, error) {
			return &command.AlarmMaintCreateCommand{Meta: meta}, nil
		},
		"alarm maint delete": func() (cli.Command, error) {
			return &command.AlarmMaintDeleteCommand{Meta: meta}, nil
		},
		"fleet": func() (cli.Command, error) {
			return &command.FleetCommand{Meta: meta}, nil
		},
		"version": func() (cli.Command, error) {
			return &command.VersionCommand{Meta: meta}, nil
		},
	}
}

// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package plans

type Action rune

const (
	NoOp        Action = 0
	Provision   Action = '+'
	Deprovision Action = '-'
	Reprovision Action = '~'
)

//go:generate go tool golang.org/x/tools/cmd/stringer -type Action

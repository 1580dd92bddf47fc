// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package admdiags

type Severity rune

//go:generate go tool golang.org/x/tools/cmd/stringer -type=Severity

const (
	Error   Severity = 'E'
	Warning Severity = 'W'
)

// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

// Package version carries the fleetadm version number.
package version

import "fmt"

// Version is the main version number being run, following semantic
// versioning.
var Version = "1.4.2"

// Prerelease is a pre-release marker. Empty for final releases.
var Prerelease = "dev"

// String returns the complete version string.
func String() string {
	if Prerelease != "" {
		return fmt.Sprintf("%s-%s", Version, Prerelease)
	}
	return Version
}

// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package admdiags

// Diagnostic describes a single problem (or advisory) detected while
// processing user input or talking to an upstream service.
type Diagnostic interface {
	Severity() Severity
	Description() Description
}

// Description is the user-facing text of a diagnostic. Subject, when set,
// names the thing the diagnostic is about: a file path, a service name, a
// scope token. It stands in for the source ranges a language-based tool
// would carry; all of fleetadm's inputs are flags and small JSON files.
type Description struct {
	Subject string
	Summary string
	Detail  string
}

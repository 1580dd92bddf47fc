// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package dispatch

// Kind classifies one result on the stream.
type Kind rune

const (
	// OK: the operation ran and exited zero.
	OK Kind = '0'

	// Nonzero: the operation ran and exited nonzero. Stdout and stderr
	// are present.
	Nonzero Kind = '1'

	// Timeout: no reply arrived within the target's deadline.
	Timeout Kind = 'T'

	// DispatchError: the request could not be delivered, or the reply
	// could not be consumed.
	DispatchError Kind = 'X'
)

// Result is one completed (or failed) operation on one target.
type Result struct {
	Target Target
	Kind   Kind

	// ExitStatus is meaningful for OK and Nonzero only.
	ExitStatus int
	Stdout     string
	Stderr     string

	// Err carries the failure for Timeout and DispatchError results.
	Err error
}

// Failed reports whether the result counts against the process exit
// status.
func (r *Result) Failed() bool {
	return r.Kind != OK
}

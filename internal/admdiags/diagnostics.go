// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package admdiags

import (
	"fmt"

	multierror "github.com/hashicorp/go-multierror"
)

// Diagnostics is a list of diagnostics. A nil Diagnostics is a valid,
// empty list.
type Diagnostics []Diagnostic

// Append adds new diagnostics to the list. It accepts Diagnostic values,
// Diagnostics lists, and native error values (including multierror
// aggregates, which are flattened), and returns the combined list.
//
// As with the usual pattern for append, callers must reassign the result:
//
//	diags = diags.Append(moreDiags)
func (diags Diagnostics) Append(new ...interface{}) Diagnostics {
	for _, item := range new {
		if item == nil {
			continue
		}

		switch ti := item.(type) {
		case Diagnostic:
			diags = append(diags, ti)
		case Diagnostics:
			diags = append(diags, ti...)
		case *multierror.Error:
			if ti != nil {
				for _, err := range ti.Errors {
					diags = append(diags, nativeError{err})
				}
			}
		case error:
			diags = append(diags, nativeError{ti})
		default:
			panic(fmt.Errorf("can't construct diagnostic(s) from %T", item))
		}
	}

	if len(diags) == 0 {
		return nil
	}
	return diags
}

// HasErrors returns true if any of the diagnostics in the list have a
// severity of Error.
func (diags Diagnostics) HasErrors() bool {
	for _, diag := range diags {
		if diag.Severity() == Error {
			return true
		}
	}
	return false
}

// Err flattens a diagnostics list into a single Go error, or to nil if the
// list contains no error-level diagnostics.
func (diags Diagnostics) Err() error {
	if !diags.HasErrors() {
		return nil
	}

	var err *multierror.Error
	for _, diag := range diags {
		if diag.Severity() != Error {
			continue
		}
		desc := diag.Description()
		if desc.Detail != "" {
			err = multierror.Append(err, fmt.Errorf("%s: %s", desc.Summary, desc.Detail))
		} else {
			err = multierror.Append(err, fmt.Errorf("%s", desc.Summary))
		}
	}
	return err.ErrorOrNil()
}

// NonFatalErr is like Err except that it returns an error even when only
// warnings are present, for contexts where warnings must still be reported
// through an error-shaped API.
func (diags Diagnostics) NonFatalErr() error {
	if len(diags) == 0 {
		return nil
	}
	var err *multierror.Error
	for _, diag := range diags {
		desc := diag.Description()
		err = multierror.Append(err, fmt.Errorf("%s: %s", desc.Summary, desc.Detail))
	}
	return err.ErrorOrNil()
}

// Warnings returns only the warning-severity diagnostics.
func (diags Diagnostics) Warnings() Diagnostics {
	var ret Diagnostics
	for _, diag := range diags {
		if diag.Severity() == Warning {
			ret = append(ret, diag)
		}
	}
	return ret
}

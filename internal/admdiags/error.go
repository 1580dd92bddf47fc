// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package admdiags

// nativeError is a Diagnostic implementation that wraps a normal Go error.
type nativeError struct {
	err error
}

var _ Diagnostic = nativeError{}

func (e nativeError) Severity() Severity {
	return Error
}

func (e nativeError) Description() Description {
	return Description{
		Summary: e.err.Error(),
	}
}

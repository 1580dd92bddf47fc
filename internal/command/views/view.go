// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

// Package views renders command output: fleet tables, plan listings and
// the dispatcher result stream.
package views

import (
	"fmt"
	"io"
	"strings"

	"github.com/mitchellh/colorstring"
	wordwrap "github.com/mitchellh/go-wordwrap"

	"github.com/coredrift/fleetadm/internal/admdiags"
)

// View is the base layer for command views: a pair of output streams and
// a colorize implementation, plus the human-readable diagnostic renderer.
type View struct {
	Stdout io.Writer
	Stderr io.Writer

	colorize *colorstring.Colorize
}

// NewView returns a view writing to the given streams with color
// disabled.
func NewView(stdout, stderr io.Writer) *View {
	return &View{
		Stdout: stdout,
		Stderr: stderr,
		colorize: &colorstring.Colorize{
			Colors:  colorstring.DefaultColors,
			Disable: true,
			Reset:   true,
		},
	}
}

// EnableColor turns on color rendering. For convenient use during
// initialization, EnableColor returns the receiver.
func (v *View) EnableColor() *View {
	v.colorize.Disable = false
	return v
}

func (v *View) Color(s string) string {
	return v.colorize.Color(s)
}

// Issues reports accumulated validation problems with a count. Used for
// inputs validated exhaustively rather than fail-fast (hardware configs,
// monitoring state).
func (v *View) Issues(issues []string) {
	for _, issue := range issues {
		fmt.Fprintf(v.Stderr, "%s\n", v.Color(fmt.Sprintf("[red]error: %s[reset]", issue)))
	}
	if len(issues) > 0 {
		fmt.Fprintf(v.Stderr, "%d problems found\n", len(issues))
	}
}

// Diagnostics renders warnings to stdout and errors to stderr.
func (v *View) Diagnostics(diags admdiags.Diagnostics) {
	for _, diag := range diags {
		desc := diag.Description()

		var buf strings.Builder
		switch diag.Severity() {
		case admdiags.Error:
			buf.WriteString(v.Color("[red]Error: [reset]"))
		case admdiags.Warning:
			buf.WriteString(v.Color("[yellow]Warning: [reset]"))
		}
		if desc.Subject != "" {
			fmt.Fprintf(&buf, "%s: ", desc.Subject)
		}
		buf.WriteString(desc.Summary)
		if desc.Detail != "" {
			buf.WriteString("\n\n")
			buf.WriteString(wordwrap.WrapString(desc.Detail, 78))
		}
		buf.WriteString("\n")

		if diag.Severity() == admdiags.Error {
			fmt.Fprint(v.Stderr, buf.String())
		} else {
			fmt.Fprint(v.Stdout, buf.String())
		}
	}
}

// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package views

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/coredrift/fleetadm/internal/dispatch"
)

// FleetResults consumes the dispatcher's result stream. Exactly one
// formatter owns the stream.
type FleetResults interface {
	Result(r dispatch.Result)
}

// TextMode selects the per-result rendering of the text formatter.
type TextMode int

const (
	// Auto renders oneline when stdout fits a single line and stderr is
	// empty, multiline otherwise.
	Auto TextMode = iota
	Oneline
	Multiline
)

// FleetJSON streams one JSON object per result, newline-separated. The
// command output is carried verbatim, unformatted.
type FleetJSON struct {
	view *View
}

func NewFleetJSON(view *View) *FleetJSON {
	return &FleetJSON{view: view}
}

type fleetResultJSON struct {
	Hostname   string `json:"hostname"`
	Zonename   string `json:"zonename"`
	Service    string `json:"service,omitempty"`
	UUID       string `json:"uuid"`
	ExitStatus *int   `json:"exit_status"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	Error      string `json:"error,omitempty"`
}

func (f *FleetJSON) Result(r dispatch.Result) {
	rec := fleetResultJSON{
		Hostname: r.Target.Hostname,
		Zonename: r.Target.InstanceID,
		Service:  r.Target.Service,
		UUID:     r.Target.Ident(),
		Stdout:   r.Stdout,
		Stderr:   r.Stderr,
	}
	if r.Target.GlobalZone() {
		rec.Zonename = "global"
	}
	switch r.Kind {
	case dispatch.OK, dispatch.Nonzero:
		status := r.ExitStatus
		rec.ExitStatus = &status
	default:
		rec.Error = r.Err.Error()
	}
	buf, err := json.Marshal(rec)
	if err != nil {
		// the record is all plain strings and ints
		panic(err)
	}
	fmt.Fprintf(f.view.Stdout, "%s\n", buf)
}

// FleetText renders results as text, one block or line per result.
type FleetText struct {
	view *View
	mode TextMode
}

func NewFleetText(view *View, mode TextMode) *FleetText {
	return &FleetText{view: view, mode: mode}
}

func (f *FleetText) Result(r dispatch.Result) {
	switch f.mode {
	case Oneline:
		f.oneline(r)
	case Multiline:
		f.multiline(r)
	default:
		if oneliner(r) {
			f.oneline(r)
		} else {
			f.multiline(r)
		}
	}
}

// oneliner reports whether a result fits the oneline rendering.
func oneliner(r dispatch.Result) bool {
	if r.Kind != dispatch.OK && r.Kind != dispatch.Nonzero {
		return true
	}
	trimmed := strings.TrimRight(r.Stdout, "\n")
	return r.Stderr == "" && !strings.Contains(trimmed, "\n")
}

func (f *FleetText) oneline(r dispatch.Result) {
	fmt.Fprintf(f.view.Stdout, "%-20s %s\n", r.Target.Hostname, summaryLine(r))
}

func (f *FleetText) multiline(r dispatch.Result) {
	fmt.Fprintf(f.view.Stdout, "=== Output from %s (%s, %s):\n",
		r.Target.Ident(), r.Target.Hostname, zoneLabel(r.Target))
	switch r.Kind {
	case dispatch.OK, dispatch.Nonzero:
		fmt.Fprint(f.view.Stdout, ensureNewline(r.Stdout))
		if r.Stderr != "" {
			fmt.Fprint(f.view.Stdout, f.view.Color("[bold]stderr:[reset]\n"))
			fmt.Fprint(f.view.Stdout, ensureNewline(r.Stderr))
		}
		if r.Kind == dispatch.Nonzero {
			fmt.Fprintf(f.view.Stdout, f.view.Color("[red]exit status %d[reset]\n"), r.ExitStatus)
		}
	default:
		fmt.Fprintf(f.view.Stdout, f.view.Color("[red]error: %s[reset]\n"), r.Err)
	}
	fmt.Fprintln(f.view.Stdout)
}

func summaryLine(r dispatch.Result) string {
	switch r.Kind {
	case dispatch.OK:
		return strings.TrimRight(r.Stdout, "\n")
	case dispatch.Nonzero:
		line := strings.TrimRight(r.Stdout, "\n")
		return fmt.Sprintf("%s (exit status %d)", line, r.ExitStatus)
	default:
		return fmt.Sprintf("error: %s", r.Err)
	}
}

func zoneLabel(t dispatch.Target) string {
	if t.GlobalZone() {
		return "global zone"
	}
	return t.Service
}

func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

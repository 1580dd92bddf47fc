// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package views

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/coredrift/fleetadm/internal/dispatch"
)

func newTestView() (*View, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return NewView(&stdout, &stderr), &stdout, &stderr
}

var okResult = dispatch.Result{
	Target: dispatch.Target{
		InstanceID: "i-w1", ComputeID: "cn-1", Hostname: "RA01", Service: "webapi",
	},
	Kind:   dispatch.OK,
	Stdout: "all clear\n",
}

func TestFleetJSONStream(t *testing.T) {
	view, stdout, _ := newTestView()
	f := NewFleetJSON(view)

	f.Result(okResult)
	f.Result(dispatch.Result{
		Target: dispatch.Target{ComputeID: "cn-2", Hostname: "RA02"},
		Kind:   dispatch.Timeout,
		Err:    errors.New("no reply from cn-2 within 5s"),
	})

	lines := strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}

	var first map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 1 is not JSON: %s", err)
	}
	for key, want := range map[string]interface{}{
		"hostname":    "RA01",
		"zonename":    "i-w1",
		"service":     "webapi",
		"uuid":        "i-w1",
		"exit_status": float64(0),
		"stdout":      "all clear\n",
		"stderr":      "",
	} {
		if first[key] != want {
			t.Errorf("field %s = %v, want %v", key, first[key], want)
		}
	}
	if _, ok := first["error"]; ok {
		t.Error("ok result carries an error field")
	}

	var second map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatal(err)
	}
	if second["zonename"] != "global" {
		t.Errorf("global-zone zonename = %v", second["zonename"])
	}
	if second["exit_status"] != nil {
		t.Errorf("timeout exit_status = %v, want null", second["exit_status"])
	}
	if msg, _ := second["error"].(string); !strings.Contains(msg, "no reply") {
		t.Errorf("error field = %v", second["error"])
	}
}

func TestFleetTextOneline(t *testing.T) {
	view, stdout, _ := newTestView()
	f := NewFleetText(view, Oneline)

	f.Result(okResult)
	line := stdout.String()
	if !strings.HasPrefix(line, "RA01") || !strings.Contains(line, "all clear") {
		t.Errorf("oneline output = %q", line)
	}
	if strings.Count(line, "\n") != 1 {
		t.Errorf("oneline output spans lines: %q", line)
	}
}

func TestFleetTextMultiline(t *testing.T) {
	view, stdout, _ := newTestView()
	f := NewFleetText(view, Multiline)

	f.Result(dispatch.Result{
		Target:     dispatch.Target{InstanceID: "i-w1", Hostname: "RA01", Service: "webapi"},
		Kind:       dispatch.Nonzero,
		ExitStatus: 3,
		Stdout:     "line one\nline two",
		Stderr:     "oops\n",
	})
	out := stdout.String()
	for _, want := range []string{
		"=== Output from i-w1 (RA01, webapi):",
		"line one\nline two\n",
		"stderr:\noops\n",
		"exit status 3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("multiline output missing %q:\n%s", want, out)
		}
	}
}

func TestFleetTextAuto(t *testing.T) {
	view, stdout, _ := newTestView()
	f := NewFleetText(view, Auto)

	// single-line stdout, no stderr: oneline
	f.Result(okResult)
	if strings.Contains(stdout.String(), "=== Output") {
		t.Errorf("single-line result rendered multiline: %q", stdout.String())
	}

	stdout.Reset()
	multi := okResult
	multi.Stdout = "one\ntwo\n"
	f.Result(multi)
	if !strings.Contains(stdout.String(), "=== Output") {
		t.Errorf("multi-line result rendered oneline: %q", stdout.String())
	}

	stdout.Reset()
	withStderr := okResult
	withStderr.Stderr = "warn\n"
	f.Result(withStderr)
	if !strings.Contains(stdout.String(), "stderr:") {
		t.Errorf("result with stderr rendered oneline: %q", stdout.String())
	}
}

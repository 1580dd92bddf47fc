// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package layout

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/coredrift/fleetadm/internal/fleet"
)

func TestParse(t *testing.T) {
	src := []byte(`{
		"cn1": {
			"moray": {"1": {"imgA": 3}, "2": {"imgA": 2}},
			"medusa": {"imgB": 2}
		},
		"cn2": {
			"storage": {"imgC": 1}
		}
	}`)

	l, diags := Parse(src, "layout.json")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %s", diags.Err())
	}

	if got := l.Count("cn1", "moray", ConfigKey{Shard: "1", ImageID: "imgA"}); got != 3 {
		t.Errorf("moray shard 1 count = %d, want 3", got)
	}
	if got := l.Count("cn1", "medusa", ConfigKey{ImageID: "imgB"}); got != 2 {
		t.Errorf("medusa count = %d, want 2", got)
	}
	if got := l.Total("moray", ConfigKey{Shard: "2", ImageID: "imgA"}); got != 2 {
		t.Errorf("moray shard 2 total = %d, want 2", got)
	}
	if diff := cmp.Diff([]string{"cn1", "cn2"}, l.ComputeIDs()); diff != "" {
		t.Errorf("wrong compute ids\n%s", diff)
	}
	if diff := cmp.Diff([]string{"moray", "medusa"}, l.Services("cn1")); diff != "" {
		t.Errorf("wrong catalog-ordered services\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"not json", `{`},
		{"unknown service", `{"cn1": {"mako": {"imgA": 1}}}`},
		{"sharded shape for unsharded", `{"cn1": {"medusa": {"1": {"imgA": 1}}}}`},
		{"unsharded shape for sharded", `{"cn1": {"moray": {"imgA": 1}}}`},
		{"negative count", `{"cn1": {"medusa": {"imgA": -1}}}`},
		{"fractional count", `{"cn1": {"medusa": {"imgA": 1.5}}}`},
		{"mixed any and pinned", `{"<any>": {"medusa": {"imgA": 1}}, "cn1": {"medusa": {"imgA": 1}}}`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, diags := Parse([]byte(test.src), "layout.json")
			if !diags.HasErrors() {
				t.Fatalf("expected errors, got none")
			}
		})
	}
}

func TestParseAnyAlone(t *testing.T) {
	l, diags := Parse([]byte(`{"<any>": {"medusa": {"imgA": 4}}}`), "layout.json")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %s", diags.Err())
	}
	if !l.HasAny() {
		t.Errorf("layout should report HasAny")
	}
	if got := l.Total("medusa", ConfigKey{ImageID: "imgA"}); got != 4 {
		t.Errorf("total = %d, want 4", got)
	}
}

func TestRoundTrip(t *testing.T) {
	l := New()
	l.Add("cn1", "moray", ConfigKey{Shard: "1", ImageID: "imgA"}, 3)
	l.Add("cn1", "medusa", ConfigKey{ImageID: "imgB"}, 2)
	l.Add("cn2", "storage", ConfigKey{ImageID: "imgC"}, 1)

	buf, err := l.MarshalIndent()
	if err != nil {
		t.Fatal(err)
	}
	got, diags := Parse(buf, "roundtrip.json")
	if diags.HasErrors() {
		t.Fatalf("re-parse failed: %s", diags.Err())
	}

	a, _ := json.Marshal(l)
	b, _ := json.Marshal(got)
	if string(a) != string(b) {
		t.Errorf("round trip changed the layout:\n  in:  %s\n  out: %s", a, b)
	}
}

func TestFromSnapshot(t *testing.T) {
	snap, err := fleet.NewSnapshot("poseidon", "app-1", "dc-east-1", nil, []*fleet.Instance{
		{ID: "i1", Service: "moray", ComputeID: "cn1", Shard: "1", ImageID: "imgA", Datacenter: "dc-east-1"},
		{ID: "i2", Service: "moray", ComputeID: "cn1", Shard: "1", ImageID: "imgA", Datacenter: "dc-east-1"},
		{ID: "i3", Service: "medusa", ComputeID: "cn2", ImageID: "imgB", Datacenter: "dc-east-1"},
		{ID: "i4", Service: "medusa", ImageID: "imgB", Datacenter: "dc-west-1"}, // remote: no CN
	}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	obs := FromSnapshot(snap)
	if got := obs.Count("cn1", "moray", ConfigKey{Shard: "1", ImageID: "imgA"}); got != 2 {
		t.Errorf("moray count = %d, want 2", got)
	}
	if got := obs.Count("cn2", "medusa", ConfigKey{ImageID: "imgB"}); got != 1 {
		t.Errorf("medusa count = %d, want 1", got)
	}
	// the remote instance must not appear anywhere
	if got := obs.Total("medusa", ConfigKey{ImageID: "imgB"}); got != 1 {
		t.Errorf("medusa total = %d, want 1 (remote instance counted?)", got)
	}
}

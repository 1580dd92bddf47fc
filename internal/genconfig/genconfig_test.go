// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package genconfig

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/coredrift/fleetadm/internal/catalog"
	"github.com/coredrift/fleetadm/internal/fleet"
	"github.com/coredrift/fleetadm/internal/layout"
	"github.com/coredrift/fleetadm/internal/upstream"
	"github.com/coredrift/fleetadm/internal/upstream/upstreamtest"
)

func allImages() *upstreamtest.Images {
	records := make(map[string]*upstream.ImageRecord)
	for _, service := range catalog.All() {
		id := "img-" + service
		records[id] = &upstream.ImageRecord{ID: id, Name: service, Version: "1.0.0"}
	}
	return &upstreamtest.Images{Records: records}
}

func snapshotWithCNs(t *testing.T, cns []*fleet.ComputeNode) *fleet.Snapshot {
	t.Helper()
	snap, err := fleet.NewSnapshot("poseidon", "app-1", "dc-east-1", nil, nil, cns, nil)
	if err != nil {
		t.Fatal(err)
	}
	return snap
}

func TestTemplateCoal(t *testing.T) {
	snap := snapshotWithCNs(t, []*fleet.ComputeNode{
		{ComputeID: "cn-head", Hostname: "headnode", Headnode: true},
		{ComputeID: "cn-1", Hostname: "RA01"},
	})

	l, err := Template(context.Background(), snap, allImages(), "coal")
	if err != nil {
		t.Fatal(err)
	}

	if ids := l.ComputeIDs(); len(ids) != 1 || ids[0] != "cn-head" {
		t.Fatalf("layout compute nodes = %v, want just cn-head", ids)
	}
	if got := l.Count("cn-head", "storage", layout.ConfigKey{ImageID: "img-storage"}); got != 2 {
		t.Errorf("storage count = %d, want 2", got)
	}
	if got := l.Count("cn-head", "postgres", layout.ConfigKey{Shard: "1", ImageID: "img-postgres"}); got != 1 {
		t.Errorf("postgres shard 1 count = %d, want 1", got)
	}
	for _, service := range catalog.All() {
		if len(l.Keys("cn-head", service)) == 0 {
			t.Errorf("service %s missing from coal layout", service)
		}
	}
}

func TestTemplateLabShards(t *testing.T) {
	snap := snapshotWithCNs(t, []*fleet.ComputeNode{
		{ComputeID: "cn-head", Hostname: "headnode", Headnode: true},
	})
	l, err := Template(context.Background(), snap, allImages(), "lab")
	if err != nil {
		t.Fatal(err)
	}
	for _, shard := range []string{"1", "2"} {
		if got := l.Count("cn-head", "moray", layout.ConfigKey{Shard: shard, ImageID: "img-moray"}); got != 2 {
			t.Errorf("moray shard %s count = %d, want 2", shard, got)
		}
	}
}

func TestTemplateErrors(t *testing.T) {
	images := allImages()
	head := &fleet.ComputeNode{ComputeID: "cn-head", Hostname: "headnode", Headnode: true}

	t.Run("unknown template", func(t *testing.T) {
		snap := snapshotWithCNs(t, []*fleet.ComputeNode{head})
		if _, err := Template(context.Background(), snap, images, "production"); err == nil {
			t.Error("expected an error")
		}
	})
	t.Run("no head node", func(t *testing.T) {
		snap := snapshotWithCNs(t, []*fleet.ComputeNode{{ComputeID: "cn-1", Hostname: "RA01"}})
		if _, err := Template(context.Background(), snap, images, "coal"); err == nil {
			t.Error("expected an error")
		}
	})
	t.Run("two head nodes", func(t *testing.T) {
		snap := snapshotWithCNs(t, []*fleet.ComputeNode{
			head,
			{ComputeID: "cn-head2", Hostname: "headnode2", Headnode: true},
		})
		if _, err := Template(context.Background(), snap, images, "coal"); err == nil {
			t.Error("expected an error")
		}
	})
	t.Run("service without image", func(t *testing.T) {
		snap := snapshotWithCNs(t, []*fleet.ComputeNode{head})
		partial := allImages()
		for id, rec := range partial.Records {
			if rec.Name == "medusa" {
				delete(partial.Records, id)
			}
		}
		_, err := Template(context.Background(), snap, partial, "coal")
		if err == nil || !strings.Contains(err.Error(), "medusa") {
			t.Errorf("err = %v, want missing-image error naming medusa", err)
		}
	})
}

const twoAZConfig = `{
	"nshards": 2,
	"servers": [
		{"type": "metadata", "uuid": "m-e1", "az": "east", "rack": "r1"},
		{"type": "metadata", "uuid": "m-e2", "az": "east", "rack": "r2"},
		{"type": "metadata", "uuid": "m-e3", "az": "east", "rack": "r3"},
		{"type": "storage",  "uuid": "s-e1", "az": "east", "rack": "r1"},
		{"type": "storage",  "uuid": "s-e2", "az": "east", "rack": "r2"},
		{"type": "metadata", "uuid": "m-w1", "az": "west", "rack": "r1"},
		{"type": "metadata", "uuid": "m-w2", "az": "west", "rack": "r2"},
		{"type": "metadata", "uuid": "m-w3", "az": "west", "rack": "r3"},
		{"type": "storage",  "uuid": "s-w1", "az": "west", "rack": "r1"}
	]
}`

func TestParseHardwareConfigIssues(t *testing.T) {
	src := []byte(`{
		"nshards": 0,
		"servers": [
			{"type": "metadata", "uuid": "m-1", "az": "east", "rack": "r1"},
			{"type": "metadata", "uuid": "m-1", "az": "east", "rack": "r1"},
			{"type": "tape", "uuid": "t-1", "az": "east", "rack": "r1"},
			{"type": "storage", "az": "east", "rack": "r1"},
			{"type": "metadata", "uuid": "m-2", "rack": "r1"}
		]
	}`)
	_, issues := ParseHardwareConfig(src)

	wantFragments := []string{
		"nshards must be at least 1",
		"duplicate uuid",
		`unknown type "tape"`,
		"missing uuid",
		"missing az",
		"metadata servers cannot hold",
	}
	for _, want := range wantFragments {
		found := false
		for _, issue := range issues {
			if strings.Contains(issue, want) {
				found = true
			}
		}
		if !found {
			t.Errorf("no issue matching %q in %v", want, issues)
		}
	}
}

func TestParseHardwareConfigClean(t *testing.T) {
	cfg, issues := ParseHardwareConfig([]byte(twoAZConfig))
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if got := cfg.AZs(); len(got) != 2 || got[0] != "east" || got[1] != "west" {
		t.Errorf("AZs = %v", got)
	}
}

func TestFromFileSpreadsReplicasAcrossRacks(t *testing.T) {
	cfg, issues := ParseHardwareConfig([]byte(twoAZConfig))
	if len(issues) != 0 {
		t.Fatal(issues)
	}
	layouts, err := FromFile(context.Background(), cfg, allImages())
	if err != nil {
		t.Fatal(err)
	}

	east := layouts["east"]
	if got := east.Total("storage", layout.ConfigKey{ImageID: "img-storage"}); got != 2 {
		t.Errorf("east storage total = %d, want one per storage server", got)
	}
	for _, shard := range []string{"1", "2"} {
		key := layout.ConfigKey{Shard: shard, ImageID: "img-postgres"}
		if got := east.Total("postgres", key); got != 3 {
			t.Errorf("east postgres shard %s total = %d, want 3", shard, got)
		}
		// three racks: replicas of one shard never share a server
		for _, cn := range []string{"m-e1", "m-e2", "m-e3"} {
			if got := east.Count(cn, "postgres", key); got > 1 {
				t.Errorf("postgres shard %s: %d replicas on %s", shard, got, cn)
			}
		}
	}
	if west := layouts["west"]; west.Total("storage", layout.ConfigKey{ImageID: "img-storage"}) != 1 {
		t.Error("west storage total != 1")
	}
}

// A generated layout must survive the JSON codec unchanged.
func TestFromFileRoundTrips(t *testing.T) {
	cfg, issues := ParseHardwareConfig([]byte(twoAZConfig))
	if len(issues) != 0 {
		t.Fatal(issues)
	}
	layouts, err := FromFile(context.Background(), cfg, allImages())
	if err != nil {
		t.Fatal(err)
	}

	for az, l := range layouts {
		src, err := l.MarshalIndent()
		if err != nil {
			t.Fatal(err)
		}
		parsed, diags := layout.Parse(src, az+".json")
		if diags.HasErrors() {
			t.Fatalf("%s: reparse failed: %s", az, diags.Err())
		}
		for _, cn := range l.ComputeIDs() {
			for _, service := range l.Services(cn) {
				for _, key := range l.Keys(cn, service) {
					if parsed.Count(cn, service, key) != l.Count(cn, service, key) {
						t.Errorf("%s: %s/%s/%s changed across the codec", az, cn, service, key)
					}
				}
			}
		}
	}
}

func TestWriteLayoutsSingleAZStreams(t *testing.T) {
	l := layout.New()
	l.Add("cn-1", "medusa", layout.ConfigKey{ImageID: "img-medusa"}, 1)

	var buf bytes.Buffer
	fs := afero.NewMemMapFs()
	written, err := WriteLayouts(fs, "", &buf, map[string]*layout.Layout{"east": l})
	if err != nil {
		t.Fatal(err)
	}
	if len(written) != 0 {
		t.Errorf("files written for a single AZ: %v", written)
	}
	if !strings.Contains(buf.String(), `"medusa"`) {
		t.Errorf("stream output missing layout: %q", buf.String())
	}
}

func TestWriteLayoutsMultiAZFiles(t *testing.T) {
	l := layout.New()
	l.Add("cn-1", "medusa", layout.ConfigKey{ImageID: "img-medusa"}, 1)
	layouts := map[string]*layout.Layout{"east": l, "west": l}

	var buf bytes.Buffer
	fs := afero.NewMemMapFs()

	if _, err := WriteLayouts(fs, "", &buf, layouts); err == nil {
		t.Error("no error for multiple AZs without a directory")
	}

	written, err := WriteLayouts(fs, "/out", &buf, layouts)
	if err != nil {
		t.Fatal(err)
	}
	if len(written) != 2 {
		t.Fatalf("written = %v, want two files", written)
	}
	if buf.Len() != 0 {
		t.Error("stream output written in file mode")
	}
	for _, name := range []string{"/out/east.json", "/out/west.json"} {
		if _, err := fs.Stat(name); err != nil {
			t.Errorf("missing %s", name)
		}
	}
}

// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestConfigKey(t *testing.T) {
	tests := []struct {
		service string
		want    []string
	}{
		{"moray", []string{"shard", "image"}},
		{"postgres", []string{"shard", "image"}},
		{"medusa", []string{"image"}},
		{"storage", []string{"image"}},
	}
	for _, test := range tests {
		t.Run(test.service, func(t *testing.T) {
			if diff := cmp.Diff(test.want, ConfigKey(test.service)); diff != "" {
				t.Errorf("wrong config key for %s\n%s", test.service, diff)
			}
		})
	}
}

func TestValidity(t *testing.T) {
	if !IsValid("moray") {
		t.Errorf("moray should be a valid service")
	}
	if IsValid("mako") {
		t.Errorf("mako should not be a valid service")
	}
	if IsSharded("webapi") {
		t.Errorf("webapi should not be sharded")
	}
}

func TestOrdering(t *testing.T) {
	all := All()
	if len(all) == 0 {
		t.Fatal("empty catalog")
	}
	// nameservice must come first: the coordination store has to exist
	// before anything that depends on it is deployed.
	if all[0] != "nameservice" {
		t.Errorf("expected nameservice first, got %q", all[0])
	}
	for i, name := range all {
		if Index(name) != i {
			t.Errorf("Index(%q) = %d, want %d", name, Index(name), i)
		}
	}
	if Index("mako") != len(all) {
		t.Errorf("unknown services must sort last")
	}
}

func TestProbeTargets(t *testing.T) {
	for _, name := range ProbeTargets() {
		if !SupportsProbes(name) {
			t.Errorf("ProbeTargets returned %q which does not support probes", name)
		}
	}
	if SupportsProbes("madtom") {
		t.Errorf("madtom should not support probes")
	}
}

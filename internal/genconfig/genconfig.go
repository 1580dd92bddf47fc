// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

// Package genconfig produces desired-layout files: from a built-in
// template pinned to the datacenter's head node, or from an operator's
// hardware description spanning availability zones.
package genconfig

import (
	"context"
	"fmt"

	"github.com/coredrift/fleetadm/internal/catalog"
	"github.com/coredrift/fleetadm/internal/fleet"
	"github.com/coredrift/fleetadm/internal/layout"
	"github.com/coredrift/fleetadm/internal/upstream"
)

// template is a hard-coded per-service count table. Counts of sharded
// services are per shard.
type template struct {
	shards []string
	counts map[string]int
}

var templates = map[string]template{
	// single-machine development fleet
	"coal": {
		shards: []string{"1"},
		counts: map[string]int{
			"nameservice":      1,
			"postgres":         1,
			"moray":            1,
			"electric-moray":   1,
			"storage":          2,
			"authcache":        1,
			"webapi":           1,
			"loadbalancer":     1,
			"jobsupervisor":    1,
			"jobpuller":        1,
			"medusa":           1,
			"ops":              1,
			"madtom":           1,
			"marlin-dashboard": 1,
		},
	},
	// shared lab hardware: quorum nameservice, two shards
	"lab": {
		shards: []string{"1", "2"},
		counts: map[string]int{
			"nameservice":      3,
			"postgres":         2,
			"moray":            2,
			"electric-moray":   1,
			"storage":          3,
			"authcache":        1,
			"webapi":           2,
			"loadbalancer":     2,
			"jobsupervisor":    1,
			"jobpuller":        1,
			"medusa":           1,
			"ops":              1,
			"madtom":           1,
			"marlin-dashboard": 1,
		},
	},
}

// TemplateNames lists the built-in templates.
func TemplateNames() []string {
	return []string{"coal", "lab"}
}

// Template generates a desired layout from a built-in count table. All
// instances land on the datacenter's head node, which must be uniquely
// identifiable in the snapshot. Every service must have at least one image
// in the registry.
func Template(ctx context.Context, snap *fleet.Snapshot, images upstream.Images, name string) (*layout.Layout, error) {
	tmpl, ok := templates[name]
	if !ok {
		return nil, fmt.Errorf("unknown config template: %q", name)
	}

	var head *fleet.ComputeNode
	for _, cn := range snap.ComputeNodes() {
		if !cn.Headnode {
			continue
		}
		if head != nil {
			return nil, fmt.Errorf("multiple head nodes in inventory (%s, %s)", head.ComputeID, cn.ComputeID)
		}
		head = cn
	}
	if head == nil {
		return nil, fmt.Errorf("no head node in inventory")
	}

	l := layout.New()
	for _, service := range catalog.All() {
		count, ok := tmpl.counts[service]
		if !ok {
			continue
		}
		imageID, err := latestImage(ctx, images, service)
		if err != nil {
			return nil, err
		}
		if catalog.IsSharded(service) {
			for _, shard := range tmpl.shards {
				l.Add(head.ComputeID, service, layout.ConfigKey{Shard: shard, ImageID: imageID}, count)
			}
		} else {
			l.Add(head.ComputeID, service, layout.ConfigKey{ImageID: imageID}, count)
		}
	}
	return l, nil
}

func latestImage(ctx context.Context, images upstream.Images, service string) (string, error) {
	recs, err := images.ListImagesByService(ctx, service)
	if err != nil {
		return "", fmt.Errorf("listing images for %s: %w", service, err)
	}
	if len(recs) == 0 {
		return "", fmt.Errorf("no image found for service %q", service)
	}
	return recs[0].ID, nil
}

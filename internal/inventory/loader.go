// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

// Package inventory assembles the fleet snapshot from the upstream
// inventories: the registry's application, services and instances, the
// machine inventory, the compute-node inventory and the image registry.
// Loading is fail-fast except where a missing record is an expected
// condition (compute nodes of other datacenters, unpublished images).
package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	hclog "github.com/hashicorp/go-hclog"
	multierror "github.com/hashicorp/go-multierror"

	"github.com/coredrift/fleetadm/internal/fleet"
	"github.com/coredrift/fleetadm/internal/upstream"
)

// DefaultAppName is the well-known registry application the fleet is
// deployed under.
const DefaultAppName = "fleet"

// DefaultConcurrency bounds the fan-out of per-record upstream lookups.
const DefaultConcurrency = 50

// Sources collects the upstream providers the loader reads from.
type Sources struct {
	Registry upstream.Registry
	Machines upstream.Machines
	Compute  upstream.Compute
	Images   upstream.Images
}

// Options adjusts loading.
type Options struct {
	// AppName overrides the registry application name.
	AppName string

	// Datacenter is the local datacenter name, used to label the
	// snapshot.
	Datacenter string

	// Concurrency bounds the per-record lookup pool.
	Concurrency int

	Logger hclog.Logger
}

// Load fetches and joins the upstream records into a snapshot.
func Load(ctx context.Context, src Sources, opts Options) (*fleet.Snapshot, error) {
	appName := opts.AppName
	if appName == "" {
		appName = DefaultAppName
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	app, err := src.Registry.GetApplicationByName(ctx, appName)
	if err != nil {
		return nil, fmt.Errorf("loading application %q: %w", appName, err)
	}

	services, err := src.Registry.ListServices(ctx, app.ID)
	if err != nil {
		return nil, fmt.Errorf("listing services: %w", err)
	}
	svcNames := make(map[string]string, len(services))
	for _, svc := range services {
		svcNames[svc.ID] = svc.Name
	}

	regInstances, err := src.Registry.ListInstances(ctx, app.ID)
	if err != nil {
		return nil, fmt.Errorf("listing instances: %w", err)
	}

	machines, err := src.Machines.ListActive(ctx, app.Owner)
	if err != nil {
		return nil, fmt.Errorf("listing machines: %w", err)
	}
	machineByID := make(map[string]*upstream.Machine, len(machines))
	for _, m := range machines {
		if m.Fleet() {
			machineByID[m.ID] = m
		}
	}

	// Join registry instances with their machine records. Instances with
	// no local machine record are in another datacenter; we keep them but
	// they carry no compute node.
	instances := make([]*fleet.Instance, 0, len(regInstances))
	cnIDs := make(map[string]bool)
	imageIDs := make(map[string]bool)
	for _, ri := range regInstances {
		svcName, ok := svcNames[ri.ServiceID]
		if !ok {
			return nil, fmt.Errorf("instance %s references unknown service %s", ri.ID, ri.ServiceID)
		}

		inst := &fleet.Instance{
			ID:        ri.ID,
			Service:   svcName,
			Metadata:  ri.Metadata,
			Shard:     ri.Metadata["SHARD"],
			StorageID: ri.Metadata["STORAGE_ID"],
		}
		if m, ok := machineByID[ri.ID]; ok {
			inst.ComputeID = m.ServerID
			inst.ImageID = m.ImageID
			inst.PrimaryIP = m.PrimaryIP
			inst.Datacenter = m.Datacenter
			if m.Shard != "" {
				inst.Shard = m.Shard
			}
			cnIDs[m.ServerID] = true
			if m.ImageID != "" {
				imageIDs[m.ImageID] = true
			}
		}
		instances = append(instances, inst)
	}

	cns, err := loadComputeNodes(ctx, src.Compute, cnIDs, concurrency, logger)
	if err != nil {
		return nil, err
	}

	// An instance whose hosting node is unknown locally is treated as
	// remote: the machine inventory answered for it, but the node belongs
	// to another datacenter's inventory.
	known := make(map[string]bool, len(cns))
	for _, cn := range cns {
		known[cn.ComputeID] = true
	}
	for _, inst := range instances {
		if inst.ComputeID != "" && !known[inst.ComputeID] {
			logger.Debug("instance host not found locally, treating as remote",
				"instance", inst.ID, "compute", inst.ComputeID)
			inst.ComputeID = ""
		}
	}

	images, err := loadImages(ctx, src.Images, imageIDs, concurrency, logger)
	if err != nil {
		return nil, err
	}

	snap, err := fleet.NewSnapshot(app.Owner, app.ID, opts.Datacenter, app.Metadata, instances, cns, images)
	if err != nil {
		return nil, err
	}
	logger.Debug("snapshot loaded",
		"instances", len(snap.Instances), "compute_nodes", len(cns), "images", len(images))
	return snap, nil
}

// loadComputeNodes fetches CN records with a bounded pool, tolerating
// not-found (the node is in another datacenter).
func loadComputeNodes(ctx context.Context, compute upstream.Compute, ids map[string]bool, concurrency int, logger hclog.Logger) ([]*fleet.ComputeNode, error) {
	var (
		mu   sync.Mutex
		cns  []*fleet.ComputeNode
		errs *multierror.Error
	)
	forEachPooled(sortedKeys(ids), concurrency, func(id string) {
		rec, err := compute.GetComputeNode(ctx, id)
		if err != nil {
			if errors.Is(err, upstream.ErrNotFound) {
				logger.Debug("compute node not found", "compute", id)
				return
			}
			mu.Lock()
			errs = multierror.Append(errs, fmt.Errorf("compute node %s: %w", id, err))
			mu.Unlock()
			return
		}
		mu.Lock()
		cns = append(cns, &fleet.ComputeNode{
			ComputeID:  rec.ID,
			Hostname:   rec.Hostname,
			Datacenter: rec.Datacenter,
			RAM:        rec.RAM,
			AdminIP:    rec.AdminIP,
			Headnode:   rec.Headnode,
		})
		mu.Unlock()
	})
	return cns, errs.ErrorOrNil()
}

// loadImages fetches image records with a bounded pool. Missing records
// are tolerated; the snapshot renders their version as "-".
func loadImages(ctx context.Context, images upstream.Images, ids map[string]bool, concurrency int, logger hclog.Logger) ([]fleet.Image, error) {
	var (
		mu   sync.Mutex
		recs []fleet.Image
		errs *multierror.Error
	)
	forEachPooled(sortedKeys(ids), concurrency, func(id string) {
		rec, err := images.GetImage(ctx, id)
		if err != nil {
			if errors.Is(err, upstream.ErrNotFound) {
				logger.Debug("image not found", "image", id)
				return
			}
			mu.Lock()
			errs = multierror.Append(errs, fmt.Errorf("image %s: %w", id, err))
			mu.Unlock()
			return
		}
		mu.Lock()
		recs = append(recs, fleet.Image{ID: rec.ID, Version: rec.Version})
		mu.Unlock()
	})
	return recs, errs.ErrorOrNil()
}

func forEachPooled(items []string, concurrency int, fn func(item string)) {
	if len(items) == 0 {
		return
	}
	if concurrency > len(items) {
		concurrency = len(items)
	}

	work := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range work {
				fn(item)
			}
		}()
	}
	for _, item := range items {
		work <- item
	}
	close(work)
	wg.Wait()
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

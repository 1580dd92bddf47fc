// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package alarms

import (
	"context"
	"fmt"
	"sort"
	"sync"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/coredrift/fleetadm/internal/fleet"
	"github.com/coredrift/fleetadm/internal/upstream"
)

// DeployedConfig is the monitoring configuration as currently deployed:
// the account's probe groups and the probes found on every known agent.
type DeployedConfig struct {
	Groups []*upstream.ProbeGroup
	Probes []*upstream.Probe
}

// AgentIDs collects every agent worth asking about probes: local
// instances, their compute nodes, and machines that have since been
// destroyed (plus their hosts), so that probes left behind on dead agents
// are found and cleaned up.
func AgentIDs(snap *fleet.Snapshot, destroyed []*upstream.Machine) []string {
	seen := make(map[string]bool)
	for _, inst := range snap.LocalInstances() {
		seen[inst.ID] = true
	}
	for _, cn := range snap.ComputeNodes() {
		seen[cn.ComputeID] = true
	}
	for _, m := range destroyed {
		if !m.Fleet() {
			continue
		}
		seen[m.ID] = true
		if m.ServerID != "" {
			seen[m.ServerID] = true
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadDeployed fetches the deployed monitoring configuration. Probe
// listing fans out per agent with the given concurrency (this is the
// expensive part of an alarm-config run). Upstream failures are fatal:
// planning against a partial view would schedule bogus removals.
func LoadDeployed(ctx context.Context, monitor upstream.Monitor, account string, agents []string, concurrency int) (*DeployedConfig, error) {
	groups, err := monitor.ListProbeGroups(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("listing probe groups: %w", err)
	}

	if concurrency <= 0 {
		concurrency = 10
	}
	if concurrency > len(agents) {
		concurrency = len(agents)
	}

	var (
		mu     sync.Mutex
		probes []*upstream.Probe
		errs   *multierror.Error
	)
	work := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for agent := range work {
				found, err := monitor.ListProbes(ctx, account, agent)
				mu.Lock()
				if err != nil {
					errs = multierror.Append(errs, fmt.Errorf("listing probes for agent %s: %w", agent, err))
				} else {
					probes = append(probes, found...)
				}
				mu.Unlock()
			}
		}()
	}
	for _, agent := range agents {
		work <- agent
	}
	close(work)
	wg.Wait()

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	// agents can report shared probes more than once
	seen := make(map[string]bool, len(probes))
	deduped := probes[:0]
	for _, p := range probes {
		if p.UUID != "" && seen[p.UUID] {
			continue
		}
		seen[p.UUID] = true
		deduped = append(deduped, p)
	}

	return &DeployedConfig{Groups: groups, Probes: deduped}, nil
}

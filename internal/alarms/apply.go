// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package alarms

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"
	multierror "github.com/hashicorp/go-multierror"

	"github.com/coredrift/fleetadm/internal/upstream"
)

// ApplyOptions adjusts plan application.
type ApplyOptions struct {
	// Concurrency bounds concurrent requests within each phase. Zero
	// means a conservative default.
	Concurrency int

	Logger hclog.Logger
}

// Apply executes an update plan in four phases: delete unwanted probes,
// delete unwanted groups, create wanted groups, create wanted probes. The
// order matters: a group cannot be deleted while probes reference it, and
// a probe cannot be created before its group exists. Failures in one phase
// do not stop later phases (the work items are independent); all errors
// are aggregated.
func Apply(ctx context.Context, monitor upstream.Monitor, account string, plan *UpdatePlan, opts ApplyOptions) error {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	var (
		mu   sync.Mutex
		errs *multierror.Error
	)
	fail := func(err error) {
		mu.Lock()
		errs = multierror.Append(errs, err)
		mu.Unlock()
	}

	runPhase(concurrency, len(plan.ProbesToRemove), func(i int) {
		probe := plan.ProbesToRemove[i]
		logger.Debug("deleting probe", "uuid", probe.UUID, "agent", probe.Agent)
		if err := monitor.DeleteProbe(ctx, account, probe.UUID); err != nil {
			fail(fmt.Errorf("deleting probe %s: %w", probe.UUID, err))
		}
	})

	runPhase(concurrency, len(plan.GroupsToRemove), func(i int) {
		group := plan.GroupsToRemove[i]
		logger.Debug("deleting probe group", "uuid", group.UUID, "name", group.Name)
		if err := monitor.DeleteProbeGroup(ctx, account, group.UUID); err != nil {
			fail(fmt.Errorf("deleting probe group %q: %w", group.Name, err))
		}
	})

	// Created groups are indexed by name so the probe phase can resolve
	// group references that did not exist when the plan was built.
	groupUUIDs := make(map[string]string)
	runPhase(concurrency, len(plan.GroupsToAdd), func(i int) {
		group := plan.GroupsToAdd[i]
		logger.Debug("creating probe group", "name", group.Name)
		created, err := monitor.CreateProbeGroup(ctx, account, group)
		if err != nil {
			fail(fmt.Errorf("creating probe group %q: %w", group.Name, err))
			return
		}
		mu.Lock()
		groupUUIDs[created.Name] = created.UUID
		mu.Unlock()
	})

	runPhase(concurrency, len(plan.ProbesToAdd), func(i int) {
		add := plan.ProbesToAdd[i]
		probe := *add.Probe
		if probe.GroupUUID == "" {
			mu.Lock()
			uuid := groupUUIDs[add.GroupName]
			mu.Unlock()
			if uuid == "" {
				fail(fmt.Errorf("not creating probe %q: probe group %q was not created", probe.Name, add.GroupName))
				return
			}
			probe.GroupUUID = uuid
		}
		logger.Debug("creating probe", "name", probe.Name, "agent", probe.Agent)
		if _, err := monitor.CreateProbe(ctx, account, &probe); err != nil {
			fail(fmt.Errorf("creating probe %q on agent %s: %w", probe.Name, probe.Agent, err))
		}
	})

	return errs.ErrorOrNil()
}

// runPhase runs fn for every index in [0, n) on a bounded worker pool and
// waits for the phase to drain.
func runPhase(concurrency, n int, fn func(i int)) {
	if n == 0 {
		return
	}
	if concurrency > n {
		concurrency = n
	}
	work := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				fn(i)
			}
		}()
	}
	for i := 0; i < n; i++ {
		work <- i
	}
	close(work)
	wg.Wait()
}

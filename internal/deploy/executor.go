// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

// Package deploy executes deployment plans against a provisioning backend.
//
// Services run one at a time, in catalog order. Within a service,
// operations for distinct compute nodes run in parallel lanes; operations
// within a lane run sequentially in plan order, and a failure aborts the
// remainder of that lane only.
//
// Executor invocations are not safe against concurrent operators: two
// updates planned from the same snapshot will silently fight each other.
// Callers must serialize invocations externally.
package deploy

import (
	"context"
	"fmt"
	"sync"

	hclog "github.com/hashicorp/go-hclog"
	multierror "github.com/hashicorp/go-multierror"

	"github.com/coredrift/fleetadm/internal/layout"
	"github.com/coredrift/fleetadm/internal/plans"
)

// Hook receives progress notifications during execution. Implementations
// must be safe for concurrent use: lanes report from their own goroutines.
type Hook interface {
	// OperationStart is called before the backend call for op is issued
	// (or, in dry-run mode, in place of it).
	OperationStart(op *plans.Operation)

	// OperationResult is called with the outcome. instanceID is the
	// newly assigned id for provisions.
	OperationResult(op *plans.Operation, instanceID string, err error)
}

// NoopHook is a Hook that does nothing.
type NoopHook struct{}

func (NoopHook) OperationStart(*plans.Operation)                 {}
func (NoopHook) OperationResult(*plans.Operation, string, error) {}

// Options adjusts execution behavior.
type Options struct {
	// DryRun reports every operation through the hook without calling
	// the backend.
	DryRun bool

	// Confirm, when non-nil and DryRun is false, is consulted once
	// before any backend call is issued. Returning false aborts the
	// execution with no side effects and a nil error.
	Confirm func(plan *plans.Plan) (bool, error)

	Logger hclog.Logger
}

// Execute drives the plan against the backend and returns the number of
// operations that completed successfully, along with the aggregate of any
// lane failures.
func Execute(ctx context.Context, plan *plans.Plan, backend Backend, hook Hook, opts Options) (int, error) {
	if hook == nil {
		hook = NoopHook{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	if plan.Empty() {
		return 0, nil
	}

	if !opts.DryRun && opts.Confirm != nil {
		ok, err := opts.Confirm(plan)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, nil
		}
	}

	exec := &executor{
		backend: backend,
		hook:    hook,
		logger:  logger,
		dryRun:  opts.DryRun,
	}

	// plan.Services() preserves plan order, which is catalog order.
	for _, service := range plan.Services() {
		var ops []*plans.Operation
		for _, op := range plan.Operations {
			if op.Service == service {
				ops = append(ops, op)
			}
		}
		exec.runService(ctx, service, ops)
	}

	return exec.completed, exec.errs.ErrorOrNil()
}

type executor struct {
	backend Backend
	hook    Hook
	logger  hclog.Logger
	dryRun  bool

	mu        sync.Mutex
	completed int
	errs      *multierror.Error
}

// runService executes one service's operations, one lane per compute node.
func (e *executor) runService(ctx context.Context, service string, ops []*plans.Operation) {
	lanes := make(map[string][]*plans.Operation)
	var order []string
	for _, op := range ops {
		if _, ok := lanes[op.ComputeID]; !ok {
			order = append(order, op.ComputeID)
		}
		lanes[op.ComputeID] = append(lanes[op.ComputeID], op)
	}

	e.logger.Debug("executing service", "service", service, "lanes", len(order), "operations", len(ops))

	var wg sync.WaitGroup
	for _, cn := range order {
		wg.Add(1)
		go func(cn string, laneOps []*plans.Operation) {
			defer wg.Done()
			e.runLane(ctx, service, cn, laneOps)
		}(cn, lanes[cn])
	}
	wg.Wait()
}

func (e *executor) runLane(ctx context.Context, service, cn string, ops []*plans.Operation) {
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			e.fail(op, err)
			return
		}

		e.hook.OperationStart(op)
		if e.dryRun {
			e.hook.OperationResult(op, "", nil)
			e.done()
			continue
		}

		instanceID, err := e.apply(ctx, op)
		e.hook.OperationResult(op, instanceID, err)
		if err != nil {
			e.fail(op, err)
			// abort the rest of this lane; other lanes continue
			return
		}
		e.done()
	}
}

func (e *executor) apply(ctx context.Context, op *plans.Operation) (string, error) {
	switch op.Action {
	case plans.Provision:
		computeID := op.ComputeID
		if computeID == layout.AnyCN {
			computeID = ""
		}
		return e.backend.Provision(ctx, op.Service, op.Key.ImageID, computeID, op.Shard)
	case plans.Deprovision:
		return "", e.backend.Deprovision(ctx, op.InstanceID)
	case plans.Reprovision:
		return "", e.backend.Reprovision(ctx, op.InstanceID, op.NewImageID)
	default:
		return "", fmt.Errorf("unknown plan action %q", op.Action)
	}
}

func (e *executor) done() {
	e.mu.Lock()
	e.completed++
	e.mu.Unlock()
}

func (e *executor) fail(op *plans.Operation, err error) {
	e.logger.Error("operation failed", "operation", op.String(), "error", err)
	e.mu.Lock()
	e.errs = multierror.Append(e.errs, fmt.Errorf("%s: %w", op, err))
	e.mu.Unlock()
}

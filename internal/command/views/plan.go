// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package views

import (
	"fmt"
	"strings"
	"sync"

	"github.com/coredrift/fleetadm/internal/plans"
)

// Plan renders a deployment plan before execution.
type Plan struct {
	view *View
}

func NewPlan(view *View) *Plan {
	return &Plan{view: view}
}

// Render lists the plan's operations in execution order, followed by a
// count summary.
func (p *Plan) Render(plan *plans.Plan) {
	if plan.Empty() {
		fmt.Fprintln(p.view.Stdout, "No changes required; the fleet matches the desired configuration.")
		return
	}
	for _, op := range plan.Operations {
		var tag string
		switch op.Action {
		case plans.Provision:
			tag = p.view.Color("[green]+[reset]")
		case plans.Deprovision:
			tag = p.view.Color("[red]-[reset]")
		case plans.Reprovision:
			tag = p.view.Color("[yellow]~[reset]")
		}
		fmt.Fprintf(p.view.Stdout, "  %s %s\n", tag, op)
	}
	fmt.Fprintf(p.view.Stdout, "\nPlan: %s\n", countSummary(plan))
}

// ExecProgress is a deploy.Hook reporting each operation as it runs.
// Lanes execute in parallel, so output is serialized.
type ExecProgress struct {
	view *View
	mu   sync.Mutex

	// DryRun switches to the "would" phrasing.
	DryRun bool
}

func NewExecProgress(view *View, dryRun bool) *ExecProgress {
	return &ExecProgress{view: view, DryRun: dryRun}
}

func (p *ExecProgress) OperationStart(op *plans.Operation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.DryRun {
		fmt.Fprintf(p.view.Stdout, "would %s\n", op)
		return
	}
	fmt.Fprintf(p.view.Stdout, "%s ...\n", op)
}

func (p *ExecProgress) OperationResult(op *plans.Operation, instanceID string, err error) {
	if p.DryRun {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case err != nil:
		fmt.Fprintf(p.view.Stderr, p.view.Color("[red]failed: %s: %s[reset]\n"), op, err)
	case instanceID != "":
		fmt.Fprintf(p.view.Stdout, "done: %s (new instance %s)\n", op, instanceID)
	default:
		fmt.Fprintf(p.view.Stdout, "done: %s\n", op)
	}
}

func countSummary(plan *plans.Plan) string {
	provision, deprovision, reprovision := plan.Counts()
	parts := []string{
		fmt.Sprintf("%d to provision", provision),
		fmt.Sprintf("%d to deprovision", deprovision),
	}
	if reprovision > 0 {
		parts = append(parts, fmt.Sprintf("%d to reprovision", reprovision))
	}
	return strings.Join(parts, ", ")
}

// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

// Package plans describes deployment plans: the ordered operation lists the
// planner produces by diffing the observed fleet layout against a desired
// layout, and that the executor later drives against the provisioning
// backend.
package plans

import (
	"fmt"

	"github.com/coredrift/fleetadm/internal/layout"
)

// Operation is one step of a plan. Exactly one Action applies; the fields
// that are meaningful depend on it:
//
//   - Provision: Service, ComputeID (possibly layout.AnyCN), Key.
//   - Deprovision: Service, ComputeID, Key, InstanceID.
//   - Reprovision: Service, ComputeID, InstanceID, OldImageID, NewImageID,
//     and Shard for sharded services.
type Operation struct {
	Action  Action
	Service string

	// ComputeID is the compute node the operation applies to. For
	// provisions from an unpinned layout this is layout.AnyCN and the
	// backend chooses the host.
	ComputeID string

	Key        layout.ConfigKey
	InstanceID string

	OldImageID string
	NewImageID string
	Shard      string

	// Reason is a short operator-facing explanation of why the planner
	// emitted this operation.
	Reason string
}

func (op *Operation) String() string {
	switch op.Action {
	case Provision:
		return fmt.Sprintf("provision %s (%s) on %s", op.Service, op.Key, op.ComputeID)
	case Deprovision:
		return fmt.Sprintf("deprovision %s instance %s (%s) on %s", op.Service, op.InstanceID, op.Key, op.ComputeID)
	case Reprovision:
		return fmt.Sprintf("reprovision %s instance %s on %s (image %s -> %s)", op.Service, op.InstanceID, op.ComputeID, op.OldImageID, op.NewImageID)
	default:
		return "no-op"
	}
}

// Plan is an ordered sequence of operations. Emission order is significant:
// the executor preserves it within each (service, compute node) lane.
type Plan struct {
	Operations []*Operation
}

// Empty reports whether the plan contains no operations, i.e. the observed
// layout already matches the desired one.
func (p *Plan) Empty() bool {
	return len(p.Operations) == 0
}

// Counts returns the number of provision, deprovision and reprovision
// operations in the plan.
func (p *Plan) Counts() (provision, deprovision, reprovision int) {
	for _, op := range p.Operations {
		switch op.Action {
		case Provision:
			provision++
		case Deprovision:
			deprovision++
		case Reprovision:
			reprovision++
		}
	}
	return provision, deprovision, reprovision
}

// Services returns the distinct services touched by the plan, in plan
// order.
func (p *Plan) Services() []string {
	var names []string
	seen := make(map[string]bool)
	for _, op := range p.Operations {
		if !seen[op.Service] {
			seen[op.Service] = true
			names = append(names, op.Service)
		}
	}
	return names
}

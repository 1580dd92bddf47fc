// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package ring

import (
	"context"
	"fmt"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/coredrift/fleetadm/internal/fleet"
	"github.com/coredrift/fleetadm/internal/upstream"
)

// Reconciler audits and repairs the stored ring. Repair is idempotent, but
// invocations must be serialized externally: the registry's update call is
// atomic, yet two concurrent repairs can still interleave their
// read-modify-write cycles.
type Reconciler struct {
	Registry upstream.Registry

	// AppName is the registry application holding the ring property.
	AppName string

	// Property overrides DefaultProperty when set.
	Property string

	Logger hclog.Logger
}

func (r *Reconciler) property() string {
	if r.Property != "" {
		return r.Property
	}
	return DefaultProperty
}

func (r *Reconciler) logger() hclog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return hclog.NewNullLogger()
}

// Audit audits the ring as recorded in the snapshot.
func (r *Reconciler) Audit(snap *fleet.Snapshot) (*Audit, error) {
	return AuditSnapshot(snap, r.property())
}

// Repair removes ring entries whose ordinal has no backing instance and
// rewrites the stored property. It refuses to run when the audit found
// validation errors. The property is re-read immediately before writing so
// that a ring changed since the snapshot was taken fails the repair
// instead of being overwritten.
//
// Repair returns the fresh audit and whether the stored ring was changed.
func (r *Reconciler) Repair(ctx context.Context, snap *fleet.Snapshot) (*Audit, bool, error) {
	app, err := r.Registry.GetApplicationByName(ctx, r.AppName)
	if err != nil {
		return nil, false, fmt.Errorf("re-reading application %q: %w", r.AppName, err)
	}

	entries, err := ParseEntries(app.Metadata[r.property()])
	if err != nil {
		return nil, false, err
	}
	audit := auditEntries(snap, entries)

	if len(audit.ValidationErrors) > 0 {
		return audit, false, fmt.Errorf("ring has %d validation errors that cannot be repaired automatically",
			len(audit.ValidationErrors))
	}
	if len(audit.MissingIndices) == 0 {
		return audit, false, nil
	}

	// Remove in descending index order so earlier indices stay stable.
	repaired := append([]Entry(nil), entries...)
	for i := len(audit.MissingIndices) - 1; i >= 0; i-- {
		idx := audit.MissingIndices[i]
		r.logger().Info("removing ring entry",
			"index", idx, "ordinal", repaired[idx].Ordinal, "address", repaired[idx].Address)
		repaired = append(repaired[:idx], repaired[idx+1:]...)
	}

	payload, err := MarshalEntries(repaired)
	if err != nil {
		return audit, false, err
	}
	if err := r.Registry.UpdateApplicationMetadata(ctx, app.ID, r.property(), payload); err != nil {
		return audit, false, fmt.Errorf("rewriting ring property: %w", err)
	}
	return audit, true, nil
}

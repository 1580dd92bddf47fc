// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

// Package ring audits and repairs the coordination store's member list, an
// ordered ring of addresses stored as a property on the registry
// application. Each ring entry must be backed by a nameservice instance
// carrying the entry's ordinal in its metadata and listening on the
// entry's address.
package ring

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/coredrift/fleetadm/internal/fleet"
)

// DefaultProperty is the application metadata property holding the ring.
const DefaultProperty = "ZK_SERVERS"

// OrdinalMetadataKey is the instance metadata key recording the
// coordination-store ordinal of a nameservice instance.
const OrdinalMetadataKey = "ZK_ID"

// nameserviceRole is the catalog service backing the coordination store.
const nameserviceRole = "nameservice"

// Entry is one member of the coordination ring.
type Entry struct {
	Ordinal int    `json:"num"`
	Address string `json:"host"`
	Port    int    `json:"port"`
	IsLast  bool   `json:"last,omitempty"`
}

// ParseEntries decodes the ring property payload.
func ParseEntries(raw json.RawMessage) ([]Entry, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decoding ring property: %w", err)
	}
	return entries, nil
}

// MarshalEntries encodes entries for storage, normalizing the IsLast marker
// onto exactly the final entry.
func MarshalEntries(entries []Entry) (json.RawMessage, error) {
	normalized := make([]Entry, len(entries))
	copy(normalized, entries)
	for i := range normalized {
		normalized[i].IsLast = i == len(normalized)-1
	}
	return json.Marshal(normalized)
}

// EntryState classifies one ring entry after an audit.
type EntryState int

const (
	// EntryOK: a local nameservice instance backs this entry.
	EntryOK EntryState = iota

	// EntryMissing: no instance carries this ordinal. Repairable.
	EntryMissing

	// EntryForeign: the backing instance exists but is hosted in another
	// datacenter. Informational.
	EntryForeign

	// EntryInvalid: the entry participates in a validation error and is
	// not automatically repairable.
	EntryInvalid
)

func (s EntryState) String() string {
	switch s {
	case EntryOK:
		return "ok"
	case EntryMissing:
		return "missing"
	case EntryForeign:
		return "foreign"
	case EntryInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Audit is the result of auditing the stored ring against the snapshot.
type Audit struct {
	Entries []Entry

	// States has one element per ring entry.
	States []EntryState

	// MissingIndices are the ring indices (not ordinals) whose ordinal
	// has no backing instance, ascending. These are automatically
	// repairable.
	MissingIndices []int

	// ValidationErrors are structural problems that repair refuses to
	// touch.
	ValidationErrors []string

	// ForeignCount counts entries backed by instances in other
	// datacenters.
	ForeignCount int
}

// Repairable reports whether repair can run: no validation errors and at
// least one missing entry.
func (a *Audit) Repairable() bool {
	return len(a.ValidationErrors) == 0 && len(a.MissingIndices) > 0
}

// Clean reports whether the stored ring is fully consistent.
func (a *Audit) Clean() bool {
	return len(a.ValidationErrors) == 0 && len(a.MissingIndices) == 0
}

// AuditSnapshot audits the ring stored under the given property (empty
// means DefaultProperty) against the snapshot's nameservice instances.
func AuditSnapshot(snap *fleet.Snapshot, property string) (*Audit, error) {
	if property == "" {
		property = DefaultProperty
	}
	entries, err := ParseEntries(snap.AppMetadata[property])
	if err != nil {
		return nil, err
	}
	return auditEntries(snap, entries), nil
}

func auditEntries(snap *fleet.Snapshot, entries []Entry) *Audit {
	audit := &Audit{
		Entries: entries,
		States:  make([]EntryState, len(entries)),
	}

	// Index nameservice instances by their metadata ordinal, surfacing
	// duplicate and absent ordinals as validation errors.
	byOrdinal := make(map[int]*fleet.Instance)
	for _, inst := range snap.ServiceInstances(nameserviceRole) {
		raw, ok := inst.Metadata[OrdinalMetadataKey]
		if !ok || raw == "" {
			audit.ValidationErrors = append(audit.ValidationErrors,
				fmt.Sprintf("nameservice instance %s has no %s metadata", inst.ID, OrdinalMetadataKey))
			continue
		}
		ordinal, err := strconv.Atoi(raw)
		if err != nil || ordinal <= 0 {
			audit.ValidationErrors = append(audit.ValidationErrors,
				fmt.Sprintf("nameservice instance %s has invalid %s metadata %q", inst.ID, OrdinalMetadataKey, raw))
			continue
		}
		if other, ok := byOrdinal[ordinal]; ok {
			audit.ValidationErrors = append(audit.ValidationErrors,
				fmt.Sprintf("ordinal %d claimed by both instance %s and instance %s", ordinal, other.ID, inst.ID))
			continue
		}
		byOrdinal[ordinal] = inst
	}

	seen := make(map[int]int)
	for i, entry := range entries {
		invalid := false

		if entry.Ordinal <= 0 {
			audit.ValidationErrors = append(audit.ValidationErrors,
				fmt.Sprintf("ring index %d: ordinal %d is not a positive integer", i, entry.Ordinal))
			invalid = true
		}
		if prev, ok := seen[entry.Ordinal]; ok {
			audit.ValidationErrors = append(audit.ValidationErrors,
				fmt.Sprintf("ring index %d: ordinal %d duplicates index %d", i, entry.Ordinal, prev))
			invalid = true
		}
		seen[entry.Ordinal] = i

		if wantLast := i == len(entries)-1; entry.IsLast != wantLast {
			if entry.IsLast {
				audit.ValidationErrors = append(audit.ValidationErrors,
					fmt.Sprintf("ring index %d: last marker set before the final entry", i))
			} else {
				audit.ValidationErrors = append(audit.ValidationErrors,
					fmt.Sprintf("ring index %d: final entry is missing the last marker", i))
			}
			invalid = true
		}

		if invalid {
			audit.States[i] = EntryInvalid
			continue
		}

		inst, ok := byOrdinal[entry.Ordinal]
		switch {
		case !ok:
			audit.States[i] = EntryMissing
			audit.MissingIndices = append(audit.MissingIndices, i)
		case !inst.Local():
			audit.States[i] = EntryForeign
			audit.ForeignCount++
		case inst.PrimaryIP != entry.Address:
			audit.States[i] = EntryInvalid
			audit.ValidationErrors = append(audit.ValidationErrors,
				fmt.Sprintf("ring index %d: instance %s has address %s but the ring records %s",
					i, inst.ID, inst.PrimaryIP, entry.Address))
		default:
			audit.States[i] = EntryOK
		}
	}

	return audit
}

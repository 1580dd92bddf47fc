// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package upstream

import "context"

// FleetTag is the machine tag marking fleet membership. Machines without
// it are ignored by the inventory loader even when owned by the fleet
// account.
const FleetTag = "fleet_role"

// Machine is a record from the machine (VM) inventory.
type Machine struct {
	ID       string            `json:"uuid"`
	ServerID string            `json:"server_uuid"`
	ImageID  string            `json:"image_uuid"`
	State    string            `json:"state"`
	Tags     map[string]string `json:"tags"`

	// Shard is the logical shard number recorded on machines of sharded
	// services, as a decimal string.
	Shard string `json:"shard,omitempty"`

	PrimaryIP  string `json:"primary_ip"`
	Datacenter string `json:"datacenter"`
	RAM        int64  `json:"ram"`
}

// Fleet reports whether the machine carries the fleet-membership tag.
func (m *Machine) Fleet() bool {
	_, ok := m.Tags[FleetTag]
	return ok
}

// Machines is the machine inventory.
type Machines interface {
	// ListActive returns the active machines owned by the given account.
	ListActive(ctx context.Context, owner string) ([]*Machine, error)

	// ListDestroyed returns destroyed machines owned by the account. The
	// alarm reconciler uses these to find probes left behind on agents
	// that no longer exist.
	ListDestroyed(ctx context.Context, owner string) ([]*Machine, error)
}

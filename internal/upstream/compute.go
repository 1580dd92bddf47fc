// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package upstream

import "context"

// ComputeNodeRecord is a record from the compute-node inventory. AdminIP is
// the node's address on the administrative network, taken from sysinfo.
type ComputeNodeRecord struct {
	ID         string `json:"uuid"`
	Hostname   string `json:"hostname"`
	Datacenter string `json:"datacenter"`
	RAM        int64  `json:"ram"`
	AdminIP    string `json:"admin_ip"`
	Headnode   bool   `json:"headnode"`
}

// Compute is the compute-node inventory.
type Compute interface {
	// GetComputeNode returns the record for one compute node, or
	// ErrNotFound. A not-found here usually means the referenced node
	// lives in another datacenter.
	GetComputeNode(ctx context.Context, computeID string) (*ComputeNodeRecord, error)
}

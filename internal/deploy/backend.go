// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package deploy

import "context"

// Backend is the provisioning system the executor drives. Each call is
// atomic from the executor's point of view. Implementations must be safe
// for concurrent use across distinct instances; the executor never issues
// two concurrent calls for the same compute node.
type Backend interface {
	// Provision creates one instance of the service from the given image.
	// computeID is empty for unpinned placement, in which case the
	// backend chooses the host. shard is empty for unsharded services.
	Provision(ctx context.Context, service, imageID, computeID, shard string) (instanceID string, err error)

	// Deprovision destroys the given instance.
	Deprovision(ctx context.Context, instanceID string) error

	// Reprovision re-images the given instance in place.
	Reprovision(ctx context.Context, instanceID, imageID string) error
}

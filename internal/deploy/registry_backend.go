// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package deploy

import (
	"context"
	"fmt"

	"github.com/coredrift/fleetadm/internal/upstream"
)

// RegistryBackend is the production Backend: instance lifecycle goes
// through the registry's provisioning API.
type RegistryBackend struct {
	provisioner upstream.Provisioner

	// serviceIDs maps catalog service names to registry service ids.
	serviceIDs map[string]string
}

var _ Backend = (*RegistryBackend)(nil)

// NewRegistryBackend resolves the application's service ids and returns
// the backend.
func NewRegistryBackend(ctx context.Context, registry upstream.Registry, provisioner upstream.Provisioner, appID string) (*RegistryBackend, error) {
	services, err := registry.ListServices(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("listing services: %w", err)
	}
	ids := make(map[string]string, len(services))
	for _, svc := range services {
		ids[svc.Name] = svc.ID
	}
	return &RegistryBackend{provisioner: provisioner, serviceIDs: ids}, nil
}

func (b *RegistryBackend) Provision(ctx context.Context, service, imageID, computeID, shard string) (string, error) {
	serviceID, ok := b.serviceIDs[service]
	if !ok {
		return "", fmt.Errorf("service %q is not registered", service)
	}
	inst, err := b.provisioner.CreateInstance(ctx, upstream.InstanceRequest{
		ServiceID: serviceID,
		ImageID:   imageID,
		ComputeID: computeID,
		Shard:     shard,
	})
	if err != nil {
		return "", err
	}
	return inst.ID, nil
}

func (b *RegistryBackend) Deprovision(ctx context.Context, instanceID string) error {
	return b.provisioner.DestroyInstance(ctx, instanceID)
}

func (b *RegistryBackend) Reprovision(ctx context.Context, instanceID, imageID string) error {
	return b.provisioner.ReimageInstance(ctx, instanceID, imageID)
}

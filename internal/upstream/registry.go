// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package upstream

import (
	"context"
	"encoding/json"
)

// Application is the registry record for a deployed application.
type Application struct {
	ID    string `json:"uuid"`
	Name  string `json:"name"`
	Owner string `json:"owner_uuid"`

	// Metadata holds application-wide properties, among them the
	// coordination-ring property (ZK_SERVERS by default).
	Metadata map[string]json.RawMessage `json:"metadata"`
}

// Service is the registry record for one service under an application.
type Service struct {
	ID            string `json:"uuid"`
	Name          string `json:"name"`
	ApplicationID string `json:"application_uuid"`
}

// ServiceInstance is the registry record for one instance of a service.
type ServiceInstance struct {
	ID        string            `json:"uuid"`
	ServiceID string            `json:"service_uuid"`
	Metadata  map[string]string `json:"metadata"`
}

// Registry is the application/service registry.
type Registry interface {
	// GetApplicationByName finds the application with the given name,
	// returning ErrNotFound if it does not exist.
	GetApplicationByName(ctx context.Context, name string) (*Application, error)

	ListServices(ctx context.Context, applicationID string) ([]*Service, error)
	ListInstances(ctx context.Context, applicationID string) ([]*ServiceInstance, error)

	// UpdateApplicationMetadata atomically replaces one metadata
	// property of the application.
	UpdateApplicationMetadata(ctx context.Context, applicationID, key string, value json.RawMessage) error
}

// InstanceRequest describes a new instance to provision.
type InstanceRequest struct {
	ServiceID string

	ImageID string

	// ComputeID pins placement to one compute node; empty lets the
	// registry choose.
	ComputeID string

	// Shard is set for instances of sharded services.
	Shard string
}

// Provisioner drives instance lifecycle through the registry.
type Provisioner interface {
	CreateInstance(ctx context.Context, req InstanceRequest) (*ServiceInstance, error)
	DestroyInstance(ctx context.Context, instanceID string) error

	// ReimageInstance re-images one instance in place.
	ReimageInstance(ctx context.Context, instanceID, imageID string) error
}

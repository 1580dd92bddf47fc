// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/coredrift/fleetadm/internal/upstream"
)

// RegistryClient is the REST binding for the application/service registry.
type RegistryClient struct {
	c *Client
}

var (
	_ upstream.Registry    = (*RegistryClient)(nil)
	_ upstream.Provisioner = (*RegistryClient)(nil)
)

func NewRegistryClient(c *Client) *RegistryClient {
	return &RegistryClient{c: c}
}

func (r *RegistryClient) GetApplicationByName(ctx context.Context, name string) (*upstream.Application, error) {
	var apps []*upstream.Application
	query := url.Values{"name": []string{name}}
	if err := r.c.getJSON(ctx, "/applications", query, &apps); err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		return nil, fmt.Errorf("application %q: %w", name, upstream.ErrNotFound)
	}
	return apps[0], nil
}

func (r *RegistryClient) ListServices(ctx context.Context, applicationID string) ([]*upstream.Service, error) {
	var svcs []*upstream.Service
	query := url.Values{"application_uuid": []string{applicationID}}
	err := r.c.getJSON(ctx, "/services", query, &svcs)
	return svcs, err
}

func (r *RegistryClient) ListInstances(ctx context.Context, applicationID string) ([]*upstream.ServiceInstance, error) {
	var insts []*upstream.ServiceInstance
	query := url.Values{"application_uuid": []string{applicationID}}
	err := r.c.getJSON(ctx, "/instances", query, &insts)
	return insts, err
}

func (r *RegistryClient) UpdateApplicationMetadata(ctx context.Context, applicationID, key string, value json.RawMessage) error {
	body := map[string]interface{}{
		"action":   "update",
		"metadata": map[string]json.RawMessage{key: value},
	}
	return r.c.do(ctx, "PUT", "/applications/"+applicationID, nil, body, nil)
}

func (r *RegistryClient) CreateInstance(ctx context.Context, req upstream.InstanceRequest) (*upstream.ServiceInstance, error) {
	metadata := map[string]string{"IMAGE": req.ImageID}
	if req.Shard != "" {
		metadata["SHARD"] = req.Shard
	}
	body := map[string]interface{}{
		"service_uuid": req.ServiceID,
		"metadata":     metadata,
	}
	if req.ComputeID != "" {
		body["params"] = map[string]string{"server_uuid": req.ComputeID}
	}
	var inst upstream.ServiceInstance
	if err := r.c.do(ctx, "POST", "/instances", nil, body, &inst); err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *RegistryClient) DestroyInstance(ctx context.Context, instanceID string) error {
	return r.c.do(ctx, "DELETE", "/instances/"+instanceID, nil, nil, nil)
}

func (r *RegistryClient) ReimageInstance(ctx context.Context, instanceID, imageID string) error {
	body := map[string]interface{}{
		"action":     "update",
		"metadata":   map[string]string{"IMAGE": imageID},
		"image_uuid": imageID,
	}
	return r.c.do(ctx, "PUT", "/instances/"+instanceID, nil, body, nil)
}

// MachinesClient is the REST binding for the machine inventory.
type MachinesClient struct {
	c *Client
}

var _ upstream.Machines = (*MachinesClient)(nil)

func NewMachinesClient(c *Client) *MachinesClient {
	return &MachinesClient{c: c}
}

func (m *MachinesClient) list(ctx context.Context, owner, state string) ([]*upstream.Machine, error) {
	var machines []*upstream.Machine
	query := url.Values{
		"owner_uuid": []string{owner},
		"state":      []string{state},
	}
	err := m.c.getJSON(ctx, "/vms", query, &machines)
	return machines, err
}

func (m *MachinesClient) ListActive(ctx context.Context, owner string) ([]*upstream.Machine, error) {
	return m.list(ctx, owner, "active")
}

func (m *MachinesClient) ListDestroyed(ctx context.Context, owner string) ([]*upstream.Machine, error) {
	return m.list(ctx, owner, "destroyed")
}

// ComputeClient is the REST binding for the compute-node inventory.
type ComputeClient struct {
	c *Client
}

var _ upstream.Compute = (*ComputeClient)(nil)

func NewComputeClient(c *Client) *ComputeClient {
	return &ComputeClient{c: c}
}

// serverRecord is the wire shape of a compute-node record: the admin
// address hides inside sysinfo.
type serverRecord struct {
	UUID       string `json:"uuid"`
	Hostname   string `json:"hostname"`
	Datacenter string `json:"datacenter"`
	RAM        int64  `json:"ram"`
	Headnode   bool   `json:"headnode"`
	Sysinfo    struct {
		AdminIP string `json:"Admin IP"`
	} `json:"sysinfo"`
}

func (cc *ComputeClient) GetComputeNode(ctx context.Context, computeID string) (*upstream.ComputeNodeRecord, error) {
	var rec serverRecord
	if err := cc.c.getJSON(ctx, "/servers/"+computeID, nil, &rec); err != nil {
		return nil, err
	}
	return &upstream.ComputeNodeRecord{
		ID:         rec.UUID,
		Hostname:   rec.Hostname,
		Datacenter: rec.Datacenter,
		RAM:        rec.RAM,
		AdminIP:    rec.Sysinfo.AdminIP,
		Headnode:   rec.Headnode,
	}, nil
}

// ImagesClient is the REST binding for the image registry.
type ImagesClient struct {
	c *Client
}

var _ upstream.Images = (*ImagesClient)(nil)

func NewImagesClient(c *Client) *ImagesClient {
	return &ImagesClient{c: c}
}

func (ic *ImagesClient) GetImage(ctx context.Context, imageID string) (*upstream.ImageRecord, error) {
	var rec upstream.ImageRecord
	if err := ic.c.getJSON(ctx, "/images/"+imageID, nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (ic *ImagesClient) ListImagesByService(ctx context.Context, service string) ([]*upstream.ImageRecord, error) {
	var recs []*upstream.ImageRecord
	query := url.Values{"name": []string{service}}
	err := ic.c.getJSON(ctx, "/images", query, &recs)
	return recs, err
}

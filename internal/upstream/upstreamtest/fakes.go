// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

// Package upstreamtest provides in-memory implementations of the upstream
// interfaces for tests.
package upstreamtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/coredrift/fleetadm/internal/upstream"
)

// Registry is an in-memory upstream.Registry.
type Registry struct {
	App       *upstream.Application
	Services  []*upstream.Service
	Instances []*upstream.ServiceInstance

	// Err, when set, is returned by every call.
	Err error

	mu      sync.Mutex
	nextID  int
	Updates []MetadataUpdate

	// Created, Destroyed and Reimaged log provisioner calls in order.
	Created   []upstream.InstanceRequest
	Destroyed []string
	Reimaged  map[string]string

	// FailCreate makes CreateInstance fail for the given service ids.
	FailCreate map[string]bool
}

// MetadataUpdate records one UpdateApplicationMetadata call.
type MetadataUpdate struct {
	ApplicationID string
	Key           string
	Value         json.RawMessage
}

var (
	_ upstream.Registry    = (*Registry)(nil)
	_ upstream.Provisioner = (*Registry)(nil)
)

func (r *Registry) GetApplicationByName(_ context.Context, name string) (*upstream.Application, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	if r.App == nil || r.App.Name != name {
		return nil, fmt.Errorf("application %q: %w", name, upstream.ErrNotFound)
	}
	return r.App, nil
}

func (r *Registry) ListServices(_ context.Context, applicationID string) ([]*upstream.Service, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Services, nil
}

func (r *Registry) ListInstances(_ context.Context, applicationID string) ([]*upstream.ServiceInstance, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Instances, nil
}

func (r *Registry) UpdateApplicationMetadata(_ context.Context, applicationID, key string, value json.RawMessage) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Updates = append(r.Updates, MetadataUpdate{ApplicationID: applicationID, Key: key, Value: value})
	if r.App != nil && r.App.ID == applicationID {
		if r.App.Metadata == nil {
			r.App.Metadata = make(map[string]json.RawMessage)
		}
		r.App.Metadata[key] = value
	}
	return nil
}

func (r *Registry) CreateInstance(_ context.Context, req upstream.InstanceRequest) (*upstream.ServiceInstance, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCreate[req.ServiceID] {
		return nil, fmt.Errorf("service %s: provisioning refused", req.ServiceID)
	}
	r.nextID++
	inst := &upstream.ServiceInstance{
		ID:        fmt.Sprintf("inst-%04d", r.nextID),
		ServiceID: req.ServiceID,
		Metadata:  map[string]string{"IMAGE": req.ImageID},
	}
	if req.Shard != "" {
		inst.Metadata["SHARD"] = req.Shard
	}
	r.Created = append(r.Created, req)
	r.Instances = append(r.Instances, inst)
	return inst, nil
}

func (r *Registry) DestroyInstance(_ context.Context, instanceID string) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Destroyed = append(r.Destroyed, instanceID)
	for i, inst := range r.Instances {
		if inst.ID == instanceID {
			r.Instances = append(r.Instances[:i], r.Instances[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("instance %s: %w", instanceID, upstream.ErrNotFound)
}

func (r *Registry) ReimageInstance(_ context.Context, instanceID, imageID string) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Reimaged == nil {
		r.Reimaged = make(map[string]string)
	}
	r.Reimaged[instanceID] = imageID
	return nil
}

// Machines is an in-memory upstream.Machines.
type Machines struct {
	Active    []*upstream.Machine
	Destroyed []*upstream.Machine
	Err       error
}

var _ upstream.Machines = (*Machines)(nil)

func (m *Machines) ListActive(context.Context, string) ([]*upstream.Machine, error) {
	return m.Active, m.Err
}

func (m *Machines) ListDestroyed(context.Context, string) ([]*upstream.Machine, error) {
	return m.Destroyed, m.Err
}

// Compute is an in-memory upstream.Compute.
type Compute struct {
	Nodes map[string]*upstream.ComputeNodeRecord
	Err   error
}

var _ upstream.Compute = (*Compute)(nil)

func (c *Compute) GetComputeNode(_ context.Context, computeID string) (*upstream.ComputeNodeRecord, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	if rec, ok := c.Nodes[computeID]; ok {
		return rec, nil
	}
	return nil, fmt.Errorf("server %s: %w", computeID, upstream.ErrNotFound)
}

// Images is an in-memory upstream.Images.
type Images struct {
	Records map[string]*upstream.ImageRecord
	Err     error
}

var _ upstream.Images = (*Images)(nil)

func (i *Images) GetImage(_ context.Context, imageID string) (*upstream.ImageRecord, error) {
	if i.Err != nil {
		return nil, i.Err
	}
	if rec, ok := i.Records[imageID]; ok {
		return rec, nil
	}
	return nil, fmt.Errorf("image %s: %w", imageID, upstream.ErrNotFound)
}

func (i *Images) ListImagesByService(_ context.Context, service string) ([]*upstream.ImageRecord, error) {
	if i.Err != nil {
		return nil, i.Err
	}
	var recs []*upstream.ImageRecord
	for _, rec := range i.Records {
		if rec.Name == service {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

// Monitor is an in-memory upstream.Monitor with mutable state, usable to
// test both plan computation and apply.
type Monitor struct {
	mu     sync.Mutex
	nextID int

	Groups []*upstream.ProbeGroup
	// Probes maps agent id to the probes running there.
	Probes map[string][]*upstream.Probe

	Alarms  map[int]*upstream.Alarm
	Windows map[int]*upstream.MaintWindow

	// FailCreateGroup makes CreateProbeGroup fail for groups with the
	// given names.
	FailCreateGroup map[string]bool
}

var _ upstream.Monitor = (*Monitor)(nil)

func (m *Monitor) assignID() string {
	m.nextID++
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", m.nextID)
}

func (m *Monitor) ListProbeGroups(context.Context, string) ([]*upstream.ProbeGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*upstream.ProbeGroup(nil), m.Groups...), nil
}

func (m *Monitor) ListProbes(_ context.Context, _ string, agent string) ([]*upstream.Probe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*upstream.Probe(nil), m.Probes[agent]...), nil
}

func (m *Monitor) CreateProbeGroup(_ context.Context, _ string, group *upstream.ProbeGroup) (*upstream.ProbeGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCreateGroup[group.Name] {
		return nil, fmt.Errorf("probe group %q refused", group.Name)
	}
	created := *group
	created.UUID = m.assignID()
	m.Groups = append(m.Groups, &created)
	return &created, nil
}

func (m *Monitor) DeleteProbeGroup(_ context.Context, _ string, groupUUID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, g := range m.Groups {
		if g.UUID == groupUUID {
			m.Groups = append(m.Groups[:i], m.Groups[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("probe group %s: %w", groupUUID, upstream.ErrNotFound)
}

func (m *Monitor) CreateProbe(_ context.Context, _ string, probe *upstream.Probe) (*upstream.Probe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	created := *probe
	created.UUID = m.assignID()
	if m.Probes == nil {
		m.Probes = make(map[string][]*upstream.Probe)
	}
	m.Probes[created.Agent] = append(m.Probes[created.Agent], &created)
	return &created, nil
}

func (m *Monitor) DeleteProbe(_ context.Context, _ string, probeUUID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for agent, probes := range m.Probes {
		for i, p := range probes {
			if p.UUID == probeUUID {
				m.Probes[agent] = append(probes[:i], probes[i+1:]...)
				return nil
			}
		}
	}
	return fmt.Errorf("probe %s: %w", probeUUID, upstream.ErrNotFound)
}

func (m *Monitor) ListAlarms(context.Context, string) ([]*upstream.Alarm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ret []*upstream.Alarm
	for _, a := range m.Alarms {
		ret = append(ret, a)
	}
	return ret, nil
}

func (m *Monitor) GetAlarm(_ context.Context, _ string, id int) (*upstream.Alarm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.Alarms[id]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("alarm %d: %w", id, upstream.ErrNotFound)
}

func (m *Monitor) CloseAlarm(_ context.Context, _ string, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Alarms[id]
	if !ok {
		return fmt.Errorf("alarm %d: %w", id, upstream.ErrNotFound)
	}
	a.Closed = true
	return nil
}

func (m *Monitor) SetAlarmNotify(_ context.Context, _ string, id int, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Alarms[id]
	if !ok {
		return fmt.Errorf("alarm %d: %w", id, upstream.ErrNotFound)
	}
	a.Suppressed = !enabled
	return nil
}

func (m *Monitor) ListMaintWindows(context.Context, string) ([]*upstream.MaintWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ret []*upstream.MaintWindow
	for _, w := range m.Windows {
		ret = append(ret, w)
	}
	return ret, nil
}

func (m *Monitor) GetMaintWindow(_ context.Context, _ string, id int) (*upstream.MaintWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.Windows[id]; ok {
		return w, nil
	}
	return nil, fmt.Errorf("maintenance window %d: %w", id, upstream.ErrNotFound)
}

func (m *Monitor) CreateMaintWindow(_ context.Context, _ string, win *upstream.MaintWindow) (*upstream.MaintWindow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	created := *win
	created.ID = m.nextID
	if m.Windows == nil {
		m.Windows = make(map[int]*upstream.MaintWindow)
	}
	m.Windows[created.ID] = &created
	return &created, nil
}

func (m *Monitor) DeleteMaintWindow(_ context.Context, _ string, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Windows[id]; !ok {
		return fmt.Errorf("maintenance window %d: %w", id, upstream.ErrNotFound)
	}
	delete(m.Windows, id)
	return nil
}

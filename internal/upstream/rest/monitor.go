// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package rest

import (
	"context"
	"fmt"
	"net/url"

	"github.com/coredrift/fleetadm/internal/upstream"
)

// MonitorClient is the REST binding for the monitoring service. Paths
// follow the monitoring service's per-account namespace.
type MonitorClient struct {
	c *Client
}

var _ upstream.Monitor = (*MonitorClient)(nil)

func NewMonitorClient(c *Client) *MonitorClient {
	return &MonitorClient{c: c}
}

func (m *MonitorClient) path(account string, parts ...string) string {
	p := "/pub/" + account
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func (m *MonitorClient) ListProbeGroups(ctx context.Context, account string) ([]*upstream.ProbeGroup, error) {
	var groups []*upstream.ProbeGroup
	err := m.c.getJSON(ctx, m.path(account, "probegroups"), nil, &groups)
	return groups, err
}

func (m *MonitorClient) ListProbes(ctx context.Context, account, agent string) ([]*upstream.Probe, error) {
	var probes []*upstream.Probe
	query := url.Values{"agent": []string{agent}}
	err := m.c.getJSON(ctx, m.path(account, "probes"), query, &probes)
	return probes, err
}

func (m *MonitorClient) CreateProbeGroup(ctx context.Context, account string, group *upstream.ProbeGroup) (*upstream.ProbeGroup, error) {
	var created upstream.ProbeGroup
	if err := m.c.do(ctx, "POST", m.path(account, "probegroups"), nil, group, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (m *MonitorClient) DeleteProbeGroup(ctx context.Context, account, groupUUID string) error {
	return m.c.do(ctx, "DELETE", m.path(account, "probegroups", groupUUID), nil, nil, nil)
}

func (m *MonitorClient) CreateProbe(ctx context.Context, account string, probe *upstream.Probe) (*upstream.Probe, error) {
	var created upstream.Probe
	if err := m.c.do(ctx, "POST", m.path(account, "probes"), nil, probe, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (m *MonitorClient) DeleteProbe(ctx context.Context, account, probeUUID string) error {
	return m.c.do(ctx, "DELETE", m.path(account, "probes", probeUUID), nil, nil, nil)
}

func (m *MonitorClient) ListAlarms(ctx context.Context, account string) ([]*upstream.Alarm, error) {
	var alarms []*upstream.Alarm
	err := m.c.getJSON(ctx, m.path(account, "alarms"), nil, &alarms)
	return alarms, err
}

func (m *MonitorClient) GetAlarm(ctx context.Context, account string, id int) (*upstream.Alarm, error) {
	var alarm upstream.Alarm
	if err := m.c.getJSON(ctx, m.path(account, "alarms", fmt.Sprint(id)), nil, &alarm); err != nil {
		return nil, err
	}
	return &alarm, nil
}

func (m *MonitorClient) CloseAlarm(ctx context.Context, account string, id int) error {
	query := url.Values{"action": []string{"close"}}
	return m.c.do(ctx, "POST", m.path(account, "alarms", fmt.Sprint(id)), query, nil, nil)
}

func (m *MonitorClient) SetAlarmNotify(ctx context.Context, account string, id int, enabled bool) error {
	action := "unsuppress"
	if !enabled {
		action = "suppress"
	}
	query := url.Values{"action": []string{action}}
	return m.c.do(ctx, "POST", m.path(account, "alarms", fmt.Sprint(id)), query, nil, nil)
}

func (m *MonitorClient) ListMaintWindows(ctx context.Context, account string) ([]*upstream.MaintWindow, error) {
	var wins []*upstream.MaintWindow
	err := m.c.getJSON(ctx, m.path(account, "maintenances"), nil, &wins)
	return wins, err
}

func (m *MonitorClient) GetMaintWindow(ctx context.Context, account string, id int) (*upstream.MaintWindow, error) {
	var win upstream.MaintWindow
	if err := m.c.getJSON(ctx, m.path(account, "maintenances", fmt.Sprint(id)), nil, &win); err != nil {
		return nil, err
	}
	return &win, nil
}

func (m *MonitorClient) CreateMaintWindow(ctx context.Context, account string, win *upstream.MaintWindow) (*upstream.MaintWindow, error) {
	var created upstream.MaintWindow
	if err := m.c.do(ctx, "POST", m.path(account, "maintenances"), nil, win, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (m *MonitorClient) DeleteMaintWindow(ctx context.Context, account string, id int) error {
	return m.c.do(ctx, "DELETE", m.path(account, "maintenances", fmt.Sprint(id)), nil, nil, nil)
}

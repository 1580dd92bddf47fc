// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package upstream

import (
	"context"
	"encoding/json"
	"time"
)

// ProbeGroup is a monitoring probe group.
type ProbeGroup struct {
	UUID     string   `json:"uuid"`
	Name     string   `json:"name"`
	Owner    string   `json:"user"`
	Enabled  bool     `json:"enabled"`
	Contacts []string `json:"contacts"`
}

// Probe is one monitoring check. Agent is the inventory identifier (an
// instance or a compute node) running the check; Machine, when set, is the
// subject of the check when it differs from the agent.
type Probe struct {
	UUID        string          `json:"uuid"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Config      json.RawMessage `json:"config"`
	Agent       string          `json:"agent"`
	Machine     string          `json:"machine,omitempty"`
	GroupUUID   string          `json:"group,omitempty"`
	GroupEvents bool            `json:"groupEvents"`
	Contacts    []string        `json:"contacts,omitempty"`
}

// Alarm is an open or closed alarm with its faults.
type Alarm struct {
	ID             int       `json:"id"`
	ProbeGroupUUID string    `json:"probeGroup,omitempty"`
	Closed         bool      `json:"closed"`
	Suppressed     bool      `json:"suppressed"`
	OpenedAt       time.Time `json:"timeOpened"`
	Faults         []Fault   `json:"faults"`
}

// Fault is one fault event attached to an alarm.
type Fault struct {
	ProbeUUID string          `json:"probe"`
	Machine   string          `json:"machine"`
	Time      time.Time       `json:"time"`
	Data      json.RawMessage `json:"data"`
	Summary   string          `json:"summary"`
}

// MaintWindow is a monitoring maintenance window. At most one of Probes,
// ProbeGroups or Machines scopes the window; all empty means all-scope.
type MaintWindow struct {
	ID          int       `json:"id"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Notes       string    `json:"notes"`
	Probes      []string  `json:"probes,omitempty"`
	ProbeGroups []string  `json:"probeGroups,omitempty"`
	Machines    []string  `json:"machines,omitempty"`
}

// Monitor is the monitoring service.
type Monitor interface {
	ListProbeGroups(ctx context.Context, account string) ([]*ProbeGroup, error)

	// ListProbes returns the probes whose agent is the given inventory
	// identifier.
	ListProbes(ctx context.Context, account, agent string) ([]*Probe, error)

	// CreateProbeGroup returns the group with its server-assigned UUID.
	CreateProbeGroup(ctx context.Context, account string, group *ProbeGroup) (*ProbeGroup, error)
	DeleteProbeGroup(ctx context.Context, account, groupUUID string) error

	CreateProbe(ctx context.Context, account string, probe *Probe) (*Probe, error)
	DeleteProbe(ctx context.Context, account, probeUUID string) error

	ListAlarms(ctx context.Context, account string) ([]*Alarm, error)
	GetAlarm(ctx context.Context, account string, id int) (*Alarm, error)
	CloseAlarm(ctx context.Context, account string, id int) error

	// SetAlarmNotify enables or disables notifications for one alarm.
	SetAlarmNotify(ctx context.Context, account string, id int, enabled bool) error

	ListMaintWindows(ctx context.Context, account string) ([]*MaintWindow, error)
	GetMaintWindow(ctx context.Context, account string, id int) (*MaintWindow, error)
	CreateMaintWindow(ctx context.Context, account string, win *MaintWindow) (*MaintWindow, error)
	DeleteMaintWindow(ctx context.Context, account string, id int) error
}

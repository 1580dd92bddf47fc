// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package deploy

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/coredrift/fleetadm/internal/layout"
	"github.com/coredrift/fleetadm/internal/plans"
)

// mockBackend records calls and can be told to fail specific instances.
type mockBackend struct {
	mu       sync.Mutex
	calls    []string
	nextID   int
	failOn   map[string]bool
	failProv bool
}

func (b *mockBackend) record(format string, args ...interface{}) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	call := fmt.Sprintf(format, args...)
	b.calls = append(b.calls, call)
	return call
}

func (b *mockBackend) Provision(_ context.Context, service, imageID, computeID, shard string) (string, error) {
	b.record("provision %s %s %s %s", service, imageID, computeID, shard)
	if b.failProv {
		return "", fmt.Errorf("provision refused")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	return fmt.Sprintf("new-%d", b.nextID), nil
}

func (b *mockBackend) Deprovision(_ context.Context, instanceID string) error {
	b.record("deprovision %s", instanceID)
	if b.failOn[instanceID] {
		return fmt.Errorf("deprovision of %s refused", instanceID)
	}
	return nil
}

func (b *mockBackend) Reprovision(_ context.Context, instanceID, imageID string) error {
	b.record("reprovision %s %s", instanceID, imageID)
	if b.failOn[instanceID] {
		return fmt.Errorf("reprovision of %s refused", instanceID)
	}
	return nil
}

func prov(service, cn, image string) *plans.Operation {
	return &plans.Operation{Action: plans.Provision, Service: service, ComputeID: cn, Key: layout.ConfigKey{ImageID: image}}
}

func deprov(service, cn, image, inst string) *plans.Operation {
	return &plans.Operation{Action: plans.Deprovision, Service: service, ComputeID: cn, Key: layout.ConfigKey{ImageID: image}, InstanceID: inst}
}

func TestExecuteLaneOrdering(t *testing.T) {
	backend := &mockBackend{}
	plan := &plans.Plan{Operations: []*plans.Operation{
		prov("medusa", "cn1", "imgB"),
		deprov("medusa", "cn1", "imgA", "m-0"),
		prov("medusa", "cn1", "imgB"),
		deprov("medusa", "cn1", "imgA", "m-1"),
	}}

	n, err := Execute(context.Background(), plan, backend, nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("completed = %d, want 4", n)
	}

	want := []string{
		"provision medusa imgB cn1 ",
		"deprovision m-0",
		"provision medusa imgB cn1 ",
		"deprovision m-1",
	}
	if diff := cmp.Diff(want, backend.calls); diff != "" {
		t.Errorf("wrong intra-lane call order\n%s", diff)
	}
}

func TestExecuteLaneFailureIsolation(t *testing.T) {
	backend := &mockBackend{failOn: map[string]bool{"a-0": true}}
	plan := &plans.Plan{Operations: []*plans.Operation{
		deprov("medusa", "cn1", "imgA", "a-0"),
		deprov("medusa", "cn1", "imgA", "a-1"), // same lane: must not run
		deprov("medusa", "cn2", "imgA", "b-0"), // other lane: must run
	}}

	n, err := Execute(context.Background(), plan, backend, nil, Options{})
	if err == nil {
		t.Fatal("expected an aggregate error")
	}
	if n != 1 {
		t.Errorf("completed = %d, want 1", n)
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	for _, call := range backend.calls {
		if call == "deprovision a-1" {
			t.Errorf("lane continued past a failure")
		}
	}
	found := false
	for _, call := range backend.calls {
		if call == "deprovision b-0" {
			found = true
		}
	}
	if !found {
		t.Errorf("failure in one lane stopped another lane")
	}
}

func TestExecuteDryRun(t *testing.T) {
	backend := &mockBackend{}
	plan := &plans.Plan{Operations: []*plans.Operation{
		prov("medusa", "cn1", "imgA"),
		deprov("medusa", "cn1", "imgA", "m-0"),
	}}

	var started []string
	hook := &recordingHook{onStart: func(op *plans.Operation) {
		started = append(started, op.String())
	}}

	n, err := Execute(context.Background(), plan, backend, hook, Options{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("completed = %d, want 2", n)
	}
	if len(backend.calls) != 0 {
		t.Errorf("dry run called the backend: %v", backend.calls)
	}
	if len(started) != 2 {
		t.Errorf("dry run reported %d operations, want 2", len(started))
	}
}

func TestExecuteConfirmDeclined(t *testing.T) {
	backend := &mockBackend{}
	plan := &plans.Plan{Operations: []*plans.Operation{prov("medusa", "cn1", "imgA")}}

	n, err := Execute(context.Background(), plan, backend, nil, Options{
		Confirm: func(*plans.Plan) (bool, error) { return false, nil },
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 || len(backend.calls) != 0 {
		t.Errorf("declined confirmation still executed operations")
	}
}

func TestExecuteUnpinnedProvision(t *testing.T) {
	backend := &mockBackend{}
	plan := &plans.Plan{Operations: []*plans.Operation{prov("medusa", layout.AnyCN, "imgA")}}

	if _, err := Execute(context.Background(), plan, backend, nil, Options{}); err != nil {
		t.Fatal(err)
	}
	// the pseudo compute id must not leak into the backend
	want := []string{"provision medusa imgA  "}
	if diff := cmp.Diff(want, backend.calls); diff != "" {
		t.Errorf("wrong backend call\n%s", diff)
	}
}

type recordingHook struct {
	mu      sync.Mutex
	onStart func(op *plans.Operation)
}

func (h *recordingHook) OperationStart(op *plans.Operation) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.onStart != nil {
		h.onStart(op)
	}
}

func (h *recordingHook) OperationResult(*plans.Operation, string, error) {}

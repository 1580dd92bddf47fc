// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package plans

import (
	"fmt"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"

	"github.com/coredrift/fleetadm/internal/fleet"
	"github.com/coredrift/fleetadm/internal/layout"
)

func testSnapshot(t *testing.T, instances []*fleet.Instance) *fleet.Snapshot {
	t.Helper()
	snap, err := fleet.NewSnapshot("poseidon", "app-1", "dc-east-1", nil, instances, []*fleet.ComputeNode{
		{ComputeID: "cn1", Hostname: "RA001"},
		{ComputeID: "cn2", Hostname: "RA002"},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return snap
}

func morayInstances(cn string, shard string, image string, n int) []*fleet.Instance {
	var ret []*fleet.Instance
	for i := 0; i < n; i++ {
		ret = append(ret, &fleet.Instance{
			ID:         fmt.Sprintf("moray-%s-%s-%d", shard, image, i),
			Service:    "moray",
			ComputeID:  cn,
			Shard:      shard,
			ImageID:    image,
			Datacenter: "dc-east-1",
		})
	}
	return ret
}

func medusaInstances(cn string, image string, n int) []*fleet.Instance {
	var ret []*fleet.Instance
	for i := 0; i < n; i++ {
		ret = append(ret, &fleet.Instance{
			ID:         fmt.Sprintf("medusa-%s-%d", image, i),
			Service:    "medusa",
			ComputeID:  cn,
			ImageID:    image,
			Datacenter: "dc-east-1",
		})
	}
	return ret
}

func mustPlan(t *testing.T, snap *fleet.Snapshot, desired *layout.Layout, opts Options) *Plan {
	t.Helper()
	plan, diags := Build(snap, desired, opts)
	if diags.HasErrors() {
		t.Fatalf("unexpected planning errors: %s", diags.Err())
	}
	return plan
}

func TestPlanNoop(t *testing.T) {
	snap := testSnapshot(t, morayInstances("cn1", "1", "imgA", 3))
	desired := layout.New()
	desired.Add("cn1", "moray", layout.ConfigKey{Shard: "1", ImageID: "imgA"}, 3)

	plan := mustPlan(t, snap, desired, Options{})
	if !plan.Empty() {
		t.Errorf("expected empty plan, got:\n%s", spew.Sdump(plan.Operations))
	}
}

func TestPlanScaleUp(t *testing.T) {
	snap := testSnapshot(t, morayInstances("cn1", "1", "imgA", 2))
	desired := layout.New()
	desired.Add("cn1", "moray", layout.ConfigKey{Shard: "1", ImageID: "imgA"}, 4)

	plan := mustPlan(t, snap, desired, Options{})
	if len(plan.Operations) != 2 {
		t.Fatalf("expected 2 operations, got %d:\n%s", len(plan.Operations), spew.Sdump(plan.Operations))
	}
	for _, op := range plan.Operations {
		if op.Action != Provision || op.Service != "moray" || op.ComputeID != "cn1" {
			t.Errorf("unexpected operation: %s", op)
		}
		if op.Key.Shard != "1" || op.Key.ImageID != "imgA" {
			t.Errorf("unexpected key: %s", op.Key)
		}
	}
}

func TestPlanReprovision(t *testing.T) {
	snap := testSnapshot(t, medusaInstances("cn1", "imgA", 2))
	desired := layout.New()
	desired.Add("cn1", "medusa", layout.ConfigKey{ImageID: "imgB"}, 2)

	plan := mustPlan(t, snap, desired, Options{AllowReprovision: true})
	if len(plan.Operations) != 2 {
		t.Fatalf("expected 2 operations, got %d:\n%s", len(plan.Operations), spew.Sdump(plan.Operations))
	}
	for _, op := range plan.Operations {
		if op.Action != Reprovision {
			t.Errorf("expected reprovision, got %s", op)
		}
		if op.OldImageID != "imgA" || op.NewImageID != "imgB" {
			t.Errorf("wrong image transition: %s -> %s", op.OldImageID, op.NewImageID)
		}
		if op.InstanceID == "" {
			t.Errorf("reprovision not bound to an instance")
		}
	}
	if plan.Operations[0].InstanceID == plan.Operations[1].InstanceID {
		t.Errorf("both reprovisions bound to the same instance")
	}
}

func TestPlanUpgradeWithoutReprovision(t *testing.T) {
	snap := testSnapshot(t, medusaInstances("cn1", "imgA", 2))
	desired := layout.New()
	desired.Add("cn1", "medusa", layout.ConfigKey{ImageID: "imgB"}, 2)

	plan := mustPlan(t, snap, desired, Options{AllowReprovision: false})

	var got []Action
	for _, op := range plan.Operations {
		got = append(got, op.Action)
	}
	want := []Action{Provision, Deprovision, Provision, Deprovision}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("wrong action sequence\n%s", diff)
	}
	if plan.Operations[0].Key.ImageID != "imgB" {
		t.Errorf("first provision should use the new image")
	}
	if plan.Operations[1].Key.ImageID != "imgA" {
		t.Errorf("first deprovision should remove an old-image instance")
	}
	if plan.Operations[1].InstanceID == plan.Operations[3].InstanceID {
		t.Errorf("deprovisions bound to the same instance twice")
	}
}

func TestPlanIdempotent(t *testing.T) {
	instances := append(morayInstances("cn1", "1", "imgA", 3), medusaInstances("cn2", "imgB", 2)...)
	snap := testSnapshot(t, instances)
	observed := layout.FromSnapshot(snap)

	plan := mustPlan(t, snap, observed, Options{AllowReprovision: true})
	if !plan.Empty() {
		t.Errorf("plan(O, O) should be empty, got:\n%s", spew.Sdump(plan.Operations))
	}
}

func TestPlanDeterministic(t *testing.T) {
	instances := append(morayInstances("cn1", "1", "imgA", 3),
		append(morayInstances("cn1", "2", "imgA", 2), medusaInstances("cn2", "imgB", 2)...)...)
	snap := testSnapshot(t, instances)

	desired := layout.New()
	desired.Add("cn1", "moray", layout.ConfigKey{Shard: "1", ImageID: "imgB"}, 2)
	desired.Add("cn1", "moray", layout.ConfigKey{Shard: "2", ImageID: "imgA"}, 2)
	desired.Add("cn2", "medusa", layout.ConfigKey{ImageID: "imgC"}, 3)

	first := mustPlan(t, snap, desired, Options{})
	for i := 0; i < 10; i++ {
		again := mustPlan(t, snap, desired, Options{})
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("plan differs between runs\n%s", diff)
		}
	}
}

// TestPlanConverges checks the planner's central property: applying the
// plan to the observed layout yields the desired layout exactly.
func TestPlanConverges(t *testing.T) {
	tests := []struct {
		name      string
		instances []*fleet.Instance
		desired   func() *layout.Layout
	}{
		{
			"scale up and down across shards",
			append(morayInstances("cn1", "1", "imgA", 3), morayInstances("cn1", "2", "imgA", 1)...),
			func() *layout.Layout {
				d := layout.New()
				d.Add("cn1", "moray", layout.ConfigKey{Shard: "1", ImageID: "imgA"}, 1)
				d.Add("cn1", "moray", layout.ConfigKey{Shard: "2", ImageID: "imgA"}, 3)
				return d
			},
		},
		{
			"abandon a compute node",
			append(medusaInstances("cn1", "imgA", 2), medusaInstances("cn2", "imgA", 2)...),
			func() *layout.Layout {
				d := layout.New()
				d.Add("cn1", "medusa", layout.ConfigKey{ImageID: "imgA"}, 4)
				return d
			},
		},
		{
			"unpinned scale",
			medusaInstances("cn1", "imgA", 2),
			func() *layout.Layout {
				d := layout.New()
				d.Add(layout.AnyCN, "medusa", layout.ConfigKey{ImageID: "imgA"}, 5)
				return d
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			snap := testSnapshot(t, test.instances)
			desired := test.desired()
			plan := mustPlan(t, snap, desired, Options{})

			result := layout.FromSnapshot(snap)
			for _, op := range plan.Operations {
				switch op.Action {
				case Provision:
					cn := op.ComputeID
					if cn == layout.AnyCN {
						cn = "cn1" // the backend's arbitrary choice
					}
					result.Add(cn, op.Service, op.Key, 1)
				case Deprovision:
					result.Add(op.ComputeID, op.Service, op.Key, -1)
				case Reprovision:
					result.Add(op.ComputeID, op.Service, layout.ConfigKey{Shard: op.Shard, ImageID: op.OldImageID}, -1)
					result.Add(op.ComputeID, op.Service, op.Key, 1)
				}
			}

			for _, service := range desired.ServiceNames() {
				for _, key := range desired.AllKeys(service) {
					var want, got int
					if desired.HasAny() {
						want = desired.Count(layout.AnyCN, service, key)
						got = result.Total(service, key)
					} else {
						for _, cn := range desired.ComputeIDs() {
							want += desired.Count(cn, service, key)
							got += result.Count(cn, service, key)
						}
					}
					if got != want {
						t.Errorf("%s %s: got %d instances, want %d", service, key, got, want)
					}
				}
			}
		})
	}
}

func TestPlanServiceFilter(t *testing.T) {
	instances := append(morayInstances("cn1", "1", "imgA", 1), medusaInstances("cn1", "imgA", 1)...)
	snap := testSnapshot(t, instances)

	// desired removes both services, but the filter restricts to medusa
	desired := layout.New()
	desired.Add("cn1", "moray", layout.ConfigKey{Shard: "1", ImageID: "imgA"}, 0)
	desired.Add("cn1", "medusa", layout.ConfigKey{ImageID: "imgA"}, 0)

	plan := mustPlan(t, snap, desired, Options{Service: "medusa"})
	for _, op := range plan.Operations {
		if op.Service != "medusa" {
			t.Errorf("operation for filtered-out service: %s", op)
		}
	}
	if len(plan.Operations) != 1 {
		t.Errorf("expected 1 operation, got %d", len(plan.Operations))
	}
}

func TestPlanUnknownService(t *testing.T) {
	snap := testSnapshot(t, nil)
	_, diags := Build(snap, layout.New(), Options{Service: "mako"})
	if !diags.HasErrors() {
		t.Fatal("expected an error for an unknown service")
	}
}

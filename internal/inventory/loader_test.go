// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package inventory

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/coredrift/fleetadm/internal/upstream"
	"github.com/coredrift/fleetadm/internal/upstream/upstreamtest"
)

func testSources() Sources {
	return Sources{
		Registry: &upstreamtest.Registry{
			App: &upstream.Application{ID: "app-1", Name: "fleet", Owner: "poseidon"},
			Services: []*upstream.Service{
				{ID: "svc-moray", Name: "moray", ApplicationID: "app-1"},
				{ID: "svc-storage", Name: "storage", ApplicationID: "app-1"},
				{ID: "svc-webapi", Name: "webapi", ApplicationID: "app-1"},
			},
			Instances: []*upstream.ServiceInstance{
				{ID: "i-moray-1", ServiceID: "svc-moray", Metadata: map[string]string{"SHARD": "1"}},
				{ID: "i-stor-1", ServiceID: "svc-storage", Metadata: map[string]string{"STORAGE_ID": "1.stor"}},
				{ID: "i-web-remote", ServiceID: "svc-webapi", Metadata: map[string]string{}},
			},
		},
		Machines: &upstreamtest.Machines{
			Active: []*upstream.Machine{
				{ID: "i-moray-1", ServerID: "cn1", ImageID: "imgA", PrimaryIP: "10.0.0.4",
					Datacenter: "dc-east-1", Tags: map[string]string{upstream.FleetTag: "moray"}},
				{ID: "i-stor-1", ServerID: "cn1", ImageID: "imgB", PrimaryIP: "10.0.0.5",
					Datacenter: "dc-east-1", Tags: map[string]string{upstream.FleetTag: "storage"}},
				// owned by the account but not part of the fleet
				{ID: "i-other", ServerID: "cn1", ImageID: "imgZ", Tags: map[string]string{}},
			},
		},
		Compute: &upstreamtest.Compute{
			Nodes: map[string]*upstream.ComputeNodeRecord{
				"cn1": {ID: "cn1", Hostname: "RA001", Datacenter: "dc-east-1", RAM: 262144, AdminIP: "10.99.99.7"},
			},
		},
		Images: &upstreamtest.Images{
			Records: map[string]*upstream.ImageRecord{
				"imgA": {ID: "imgA", Name: "moray", Version: "release-20260801"},
			},
		},
	}
}

func TestLoad(t *testing.T) {
	snap, err := Load(context.Background(), testSources(), Options{Datacenter: "dc-east-1"})
	if err != nil {
		t.Fatal(err)
	}

	moray := snap.Instance("i-moray-1")
	if moray == nil {
		t.Fatal("moray instance missing from snapshot")
	}
	if moray.ComputeID != "cn1" || moray.Shard != "1" || moray.ImageID != "imgA" {
		t.Errorf("bad moray join: %+v", moray)
	}

	// the webapi instance has no machine record: remote
	web := snap.Instance("i-web-remote")
	if web == nil || web.Local() {
		t.Errorf("webapi instance should be remote, got %+v", web)
	}

	cn := snap.ComputeNode("cn1")
	if cn == nil {
		t.Fatal("cn1 missing from snapshot")
	}
	if !cn.IsStorageHost {
		t.Errorf("cn1 hosts a storage instance and should be a storage host")
	}
	if diff := cmp.Diff([]string{"1.stor"}, cn.StorageIDs); diff != "" {
		t.Errorf("wrong storage ids\n%s", diff)
	}

	if got := snap.ImageVersion("imgA"); got != "release-20260801" {
		t.Errorf("ImageVersion(imgA) = %q", got)
	}
	if got := snap.ImageVersion("imgB"); got != "-" {
		t.Errorf("missing image should render as \"-\", got %q", got)
	}
}

func TestLoadMissingApplication(t *testing.T) {
	src := testSources()
	src.Registry = &upstreamtest.Registry{}
	if _, err := Load(context.Background(), src, Options{}); err == nil {
		t.Fatal("expected an error for a missing application")
	}
}

func TestLoadDuplicateInstance(t *testing.T) {
	src := testSources()
	reg := src.Registry.(*upstreamtest.Registry)
	reg.Instances = append(reg.Instances, reg.Instances[0])
	if _, err := Load(context.Background(), src, Options{}); err == nil {
		t.Fatal("expected an error for a duplicate instance id")
	}
}

func TestLoadUnknownServiceRecord(t *testing.T) {
	src := testSources()
	reg := src.Registry.(*upstreamtest.Registry)
	reg.Instances = append(reg.Instances, &upstream.ServiceInstance{ID: "i-x", ServiceID: "svc-unknown"})
	if _, err := Load(context.Background(), src, Options{}); err == nil {
		t.Fatal("expected an error for an instance of an unknown service")
	}
}

// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package genconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/coredrift/fleetadm/internal/catalog"
	"github.com/coredrift/fleetadm/internal/layout"
	"github.com/coredrift/fleetadm/internal/upstream"
)

// HardwareConfig is the operator-supplied description of the hardware a
// fleet is to be laid out on: servers grouped into racks and availability
// zones, each carrying a role.
type HardwareConfig struct {
	// NShards is the number of metadata shards to lay out.
	NShards int `json:"nshards"`

	// Images optionally pins a service to a specific image id; services
	// not listed use the newest registry image.
	Images map[string]string `json:"images,omitempty"`

	Servers []HardwareServer `json:"servers"`
}

// HardwareServer is one server in the hardware description.
type HardwareServer struct {
	// Type is the server role: "metadata" or "storage".
	Type string `json:"type"`

	ComputeID string `json:"uuid"`
	AZ        string `json:"az"`
	Rack      string `json:"rack"`
	RAM       int64  `json:"memory,omitempty"` // gigabytes
}

const (
	serverMetadata = "metadata"
	serverStorage  = "storage"
)

// metadataReplicas is how many instances of each sharded service every
// shard gets within one availability zone.
const metadataReplicas = 3

// ParseHardwareConfig decodes and validates a hardware description.
// Validation problems are accumulated: the caller reports all of them with
// a count rather than stopping at the first.
func ParseHardwareConfig(src []byte) (*HardwareConfig, []string) {
	var cfg HardwareConfig
	if err := json.Unmarshal(src, &cfg); err != nil {
		return nil, []string{fmt.Sprintf("parsing hardware config: %s", err)}
	}
	return &cfg, cfg.validate()
}

func (cfg *HardwareConfig) validate() []string {
	var issues []string
	if cfg.NShards < 1 {
		issues = append(issues, fmt.Sprintf("nshards must be at least 1 (found %d)", cfg.NShards))
	}
	if len(cfg.Servers) == 0 {
		issues = append(issues, "no servers specified")
	}

	seen := make(map[string]bool, len(cfg.Servers))
	counts := make(map[string]map[string]int) // az -> type -> count
	for i, srv := range cfg.Servers {
		where := fmt.Sprintf("server %d", i)
		if srv.ComputeID != "" {
			where = fmt.Sprintf("server %s", srv.ComputeID)
		}
		switch {
		case srv.ComputeID == "":
			issues = append(issues, fmt.Sprintf("%s: missing uuid", where))
		case seen[srv.ComputeID]:
			issues = append(issues, fmt.Sprintf("%s: duplicate uuid", where))
		default:
			seen[srv.ComputeID] = true
		}
		if srv.Type != serverMetadata && srv.Type != serverStorage {
			issues = append(issues, fmt.Sprintf("%s: unknown type %q", where, srv.Type))
			continue
		}
		if srv.AZ == "" {
			issues = append(issues, fmt.Sprintf("%s: missing az", where))
			continue
		}
		if srv.Rack == "" {
			issues = append(issues, fmt.Sprintf("%s: missing rack", where))
		}
		if counts[srv.AZ] == nil {
			counts[srv.AZ] = make(map[string]int)
		}
		counts[srv.AZ][srv.Type]++
	}

	azs := make([]string, 0, len(counts))
	for az := range counts {
		azs = append(azs, az)
	}
	sort.Strings(azs)
	for _, az := range azs {
		if counts[az][serverStorage] == 0 {
			issues = append(issues, fmt.Sprintf("az %s: no storage servers", az))
		}
		if n := counts[az][serverMetadata]; n == 0 {
			issues = append(issues, fmt.Sprintf("az %s: no metadata servers", az))
		} else if n < metadataReplicas {
			issues = append(issues, fmt.Sprintf(
				"az %s: %d metadata servers cannot hold %d replicas per shard", az, n, metadataReplicas))
		}
	}
	return issues
}

// AZs returns the availability zones of the description, sorted.
func (cfg *HardwareConfig) AZs() []string {
	seen := make(map[string]bool)
	for _, srv := range cfg.Servers {
		if srv.AZ != "" {
			seen[srv.AZ] = true
		}
	}
	azs := make([]string, 0, len(seen))
	for az := range seen {
		azs = append(azs, az)
	}
	sort.Strings(azs)
	return azs
}

// FromFile generates one desired layout per availability zone from a
// validated hardware description. The caller must have rejected the
// description already if validation produced issues.
func FromFile(ctx context.Context, cfg *HardwareConfig, images upstream.Images) (map[string]*layout.Layout, error) {
	resolve := func(service string) (string, error) {
		if id, ok := cfg.Images[service]; ok {
			return id, nil
		}
		return latestImage(ctx, images, service)
	}

	layouts := make(map[string]*layout.Layout)
	for _, az := range cfg.AZs() {
		l, err := cfg.layoutAZ(az, resolve)
		if err != nil {
			return nil, err
		}
		layouts[az] = l
	}
	return layouts, nil
}

// layoutAZ lays out one availability zone. Storage servers take one
// storage zone each; everything else is spread over the metadata servers
// round-robin across racks, so replicas of one shard never pile onto one
// rack when more than one is available.
func (cfg *HardwareConfig) layoutAZ(az string, resolve func(string) (string, error)) (*layout.Layout, error) {
	var storage, metadata []HardwareServer
	for _, srv := range cfg.Servers {
		if srv.AZ != az {
			continue
		}
		switch srv.Type {
		case serverStorage:
			storage = append(storage, srv)
		case serverMetadata:
			metadata = append(metadata, srv)
		}
	}
	if len(metadata) == 0 {
		return nil, fmt.Errorf("az %s has no metadata servers", az)
	}
	spread := newRackSpread(metadata)

	l := layout.New()

	storageImage, err := resolve("storage")
	if err != nil {
		return nil, err
	}
	for _, srv := range storage {
		l.Add(srv.ComputeID, "storage", layout.ConfigKey{ImageID: storageImage}, 1)
	}

	for shard := 1; shard <= cfg.NShards; shard++ {
		for _, service := range []string{"postgres", "moray"} {
			imageID, err := resolve(service)
			if err != nil {
				return nil, err
			}
			key := layout.ConfigKey{Shard: fmt.Sprintf("%d", shard), ImageID: imageID}
			for i := 0; i < metadataReplicas; i++ {
				l.Add(spread.next(), service, key, 1)
			}
		}
	}

	for _, service := range catalog.All() {
		if service == "storage" || catalog.IsSharded(service) {
			continue
		}
		imageID, err := resolve(service)
		if err != nil {
			return nil, err
		}
		count := 1
		if service == "nameservice" {
			count = 3
		}
		key := layout.ConfigKey{ImageID: imageID}
		for i := 0; i < count; i++ {
			l.Add(spread.next(), service, key, 1)
		}
	}
	return l, nil
}

// rackSpread walks a server set rack by rack: each call to next yields a
// server from the rack least recently used.
type rackSpread struct {
	racks   []string
	byRack  map[string][]HardwareServer
	rackIdx int
	srvIdx  map[string]int
}

func newRackSpread(servers []HardwareServer) *rackSpread {
	byRack := make(map[string][]HardwareServer)
	for _, srv := range servers {
		byRack[srv.Rack] = append(byRack[srv.Rack], srv)
	}
	racks := make([]string, 0, len(byRack))
	for rack := range byRack {
		racks = append(racks, rack)
	}
	sort.Strings(racks)
	for _, rack := range racks {
		sort.Slice(byRack[rack], func(i, j int) bool {
			return byRack[rack][i].ComputeID < byRack[rack][j].ComputeID
		})
	}
	return &rackSpread{racks: racks, byRack: byRack, srvIdx: make(map[string]int)}
}

func (r *rackSpread) next() string {
	rack := r.racks[r.rackIdx%len(r.racks)]
	r.rackIdx++
	servers := r.byRack[rack]
	srv := servers[r.srvIdx[rack]%len(servers)]
	r.srvIdx[rack]++
	return srv.ComputeID
}

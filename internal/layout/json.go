// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package layout

import (
	"encoding/json"
	"fmt"

	"github.com/coredrift/fleetadm/internal/admdiags"
	"github.com/coredrift/fleetadm/internal/catalog"
)

// Parse decodes and validates a desired-layout JSON document. The filename
// is used only in diagnostics. The wire shape is
//
//	{ computeId: { service: { image: count } } }
//
// for unsharded services and
//
//	{ computeId: { service: { shard: { image: count } } } }
//
// for sharded ones. Shapes that do not match the service's catalog entry
// are rejected here, before the planner ever sees the layout.
func Parse(src []byte, filename string) (*Layout, admdiags.Diagnostics) {
	var diags admdiags.Diagnostics

	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(src, &raw); err != nil {
		diags = diags.Append(admdiags.WithSubject(admdiags.Error, filename,
			"Invalid layout file",
			fmt.Sprintf("The file does not contain a valid layout object: %s.", err)))
		return nil, diags
	}

	l := New()
	for computeID, svcs := range raw {
		for service, body := range svcs {
			if !catalog.IsValid(service) {
				diags = diags.Append(admdiags.WithSubject(admdiags.Error, filename,
					"Unknown service in layout",
					fmt.Sprintf("Compute node %q configures service %q, which is not in the service catalog.", computeID, service)))
				continue
			}
			keyDiags := parseServiceCounts(l, filename, computeID, service, body)
			diags = diags.Append(keyDiags)
		}
	}

	if l.HasAny() && len(l.cns) > 1 {
		diags = diags.Append(admdiags.WithSubject(admdiags.Error, filename,
			"Layout mixes unpinned and pinned placement",
			fmt.Sprintf("The %q pseudo compute node cannot be combined with specific compute nodes in the same layout.", AnyCN)))
	}

	if diags.HasErrors() {
		return nil, diags
	}
	return l, diags
}

func parseServiceCounts(l *Layout, filename, computeID, service string, body json.RawMessage) admdiags.Diagnostics {
	var diags admdiags.Diagnostics

	badShape := func(detail string) admdiags.Diagnostics {
		return diags.Append(admdiags.WithSubject(admdiags.Error, filename,
			"Layout entry does not match service config shape",
			fmt.Sprintf("Service %q on compute node %q: %s.", service, computeID, detail)))
	}

	if catalog.IsSharded(service) {
		var perShard map[string]map[string]json.RawMessage
		if err := json.Unmarshal(body, &perShard); err != nil {
			return badShape(fmt.Sprintf("expected { shard: { image: count } }: %s", err))
		}
		for shard, perImage := range perShard {
			for image, rawCount := range perImage {
				count, err := decodeCount(rawCount)
				if err != nil {
					return badShape(fmt.Sprintf("shard %q image %q: %s", shard, image, err))
				}
				l.Add(computeID, service, ConfigKey{Shard: shard, ImageID: image}, count)
			}
		}
		return diags
	}

	var perImage map[string]json.RawMessage
	if err := json.Unmarshal(body, &perImage); err != nil {
		return badShape(fmt.Sprintf("expected { image: count }: %s", err))
	}
	for image, rawCount := range perImage {
		count, err := decodeCount(rawCount)
		if err != nil {
			return badShape(fmt.Sprintf("image %q: %s", image, err))
		}
		// A nested object here means the operator wrote a sharded shape
		// for an unsharded service; decodeCount already rejected it.
		l.Add(computeID, service, ConfigKey{ImageID: image}, count)
	}
	return diags
}

func decodeCount(raw json.RawMessage) (int, error) {
	var count int
	if err := json.Unmarshal(raw, &count); err != nil {
		return 0, fmt.Errorf("count must be an integer")
	}
	if count < 0 {
		return 0, fmt.Errorf("count must not be negative")
	}
	return count, nil
}

// MarshalJSON renders the layout in the same wire shape Parse accepts.
// encoding/json emits map keys in sorted order, so the output is
// deterministic and round-trips through Parse.
func (l *Layout) MarshalJSON() ([]byte, error) {
	doc := make(map[string]map[string]interface{}, len(l.cns))
	for computeID, svcs := range l.cns {
		svcDoc := make(map[string]interface{}, len(svcs))
		for service, counts := range svcs {
			if catalog.IsSharded(service) {
				perShard := make(map[string]map[string]int)
				for key, count := range counts {
					if perShard[key.Shard] == nil {
						perShard[key.Shard] = make(map[string]int)
					}
					perShard[key.Shard][key.ImageID] = count
				}
				svcDoc[service] = perShard
			} else {
				perImage := make(map[string]int, len(counts))
				for key, count := range counts {
					perImage[key.ImageID] = count
				}
				svcDoc[service] = perImage
			}
		}
		doc[computeID] = svcDoc
	}
	return json.Marshal(doc)
}

// MarshalIndent is MarshalJSON with the conventional two-space indentation
// used for layout files on disk.
func (l *Layout) MarshalIndent() ([]byte, error) {
	compact, err := l.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var doc map[string]map[string]interface{}
	if err := json.Unmarshal(compact, &doc); err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "    ")
}

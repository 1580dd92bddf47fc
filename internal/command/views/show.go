// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package views

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/coredrift/fleetadm/internal/catalog"
	"github.com/coredrift/fleetadm/internal/fleet"
	"github.com/coredrift/fleetadm/internal/layout"
)

// Show renders the fleet snapshot.
type Show struct {
	view *View
}

func NewShow(view *View) *Show {
	return &Show{view: view}
}

func newTable(v *View) *tablewriter.Table {
	table := tablewriter.NewWriter(v.Stdout)
	table.SetBorder(false)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator("")
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// Instances renders the per-CN instance listing. With all set, instances
// from other datacenters follow in their own section.
func (s *Show) Instances(snap *fleet.Snapshot, all bool) {
	for _, cn := range snap.ComputeNodes() {
		var rows [][]string
		for _, inst := range snap.Instances {
			if inst.ComputeID != cn.ComputeID {
				continue
			}
			rows = append(rows, []string{
				inst.Service, inst.Shard, inst.ID, snap.ImageVersion(inst.ImageID),
			})
		}
		if len(rows) == 0 {
			continue
		}
		fmt.Fprintf(s.view.Stdout, "%s\n", s.view.Color(fmt.Sprintf(
			"[bold]CN %s (%s)[reset]", cn.Hostname, cn.ComputeID)))
		table := newTable(s.view)
		table.SetHeader([]string{"SERVICE", "SH", "INSTANCE", "VERSION"})
		table.AppendBulk(rows)
		table.Render()
		fmt.Fprintln(s.view.Stdout)
	}

	if !all {
		return
	}
	var remote [][]string
	for _, inst := range snap.Instances {
		if inst.Local() {
			continue
		}
		remote = append(remote, []string{
			inst.Datacenter, inst.Service, inst.Shard, inst.ID, snap.ImageVersion(inst.ImageID),
		})
	}
	if len(remote) == 0 {
		return
	}
	fmt.Fprintf(s.view.Stdout, "%s\n", s.view.Color("[bold]Other datacenters[reset]"))
	table := newTable(s.view)
	table.SetHeader([]string{"DATACENTER", "SERVICE", "SH", "INSTANCE", "VERSION"})
	table.AppendBulk(remote)
	table.Render()
}

// Summary renders aggregate counts by (service, shard, version), fleet
// wide or per compute node.
func (s *Show) Summary(snap *fleet.Snapshot, byCN bool) {
	type key struct {
		cn      string
		service string
		shard   string
		version string
	}
	counts := make(map[key]int)
	for _, inst := range snap.Instances {
		if !inst.Local() {
			continue
		}
		k := key{service: inst.Service, shard: inst.Shard, version: snap.ImageVersion(inst.ImageID)}
		if byCN {
			if cn := snap.ComputeNode(inst.ComputeID); cn != nil {
				k.cn = cn.Hostname
			}
		}
		counts[k]++
	}

	keys := make([]key, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if ai, bi := catalog.Index(a.service), catalog.Index(b.service); ai != bi {
			return ai < bi
		}
		if a.shard != b.shard {
			return a.shard < b.shard
		}
		if a.cn != b.cn {
			return a.cn < b.cn
		}
		return a.version < b.version
	})

	table := newTable(s.view)
	header := []string{"SERVICE", "SH", "VERSION", "COUNT"}
	if byCN {
		header = append([]string{"CN"}, header...)
	}
	table.SetHeader(header)
	for _, k := range keys {
		row := []string{k.service, k.shard, k.version, strconv.Itoa(counts[k])}
		if byCN {
			row = append([]string{k.cn}, row...)
		}
		table.Append(row)
	}
	table.Render()
}

// JSON emits the local fleet as a desired-layout document, suitable as
// update input.
func (s *Show) JSON(snap *fleet.Snapshot) error {
	src, err := layout.FromSnapshot(snap).MarshalIndent()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(s.view.Stdout, "%s\n", src)
	return err
}

// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package views

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/coredrift/fleetadm/internal/fleet"
)

// CNColumns is the default column set of the cn listing.
var CNColumns = []string{"HOSTNAME", "COMPUTE", "IP", "RAM", "STORAGE", "INSTANCES"}

// CN renders the compute-node listing.
type CN struct {
	view *View
}

func NewCN(view *View) *CN {
	return &CN{view: view}
}

// Names prints only the hostnames, one per line.
func (c *CN) Names(snap *fleet.Snapshot, storageOnly bool) {
	for _, cn := range snap.ComputeNodes() {
		if storageOnly && !cn.IsStorageHost {
			continue
		}
		fmt.Fprintln(c.view.Stdout, cn.Hostname)
	}
}

// Table prints the node table restricted to the given columns (nil means
// CNColumns). Unknown column names are an error.
func (c *CN) Table(snap *fleet.Snapshot, columns []string, storageOnly bool) error {
	if len(columns) == 0 {
		columns = CNColumns
	}
	for _, col := range columns {
		if !validCNColumn(col) {
			return fmt.Errorf("unknown column %q (have %s)", col, strings.Join(CNColumns, ", "))
		}
	}

	instances := make(map[string]int)
	for _, inst := range snap.LocalInstances() {
		instances[inst.ComputeID]++
	}

	table := newTable(c.view)
	table.SetHeader(columns)
	for _, cn := range snap.ComputeNodes() {
		if storageOnly && !cn.IsStorageHost {
			continue
		}
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = cnColumn(cn, col, instances[cn.ComputeID])
		}
		table.Append(row)
	}
	table.Render()
	return nil
}

func validCNColumn(name string) bool {
	for _, col := range CNColumns {
		if strings.EqualFold(col, name) {
			return true
		}
	}
	return false
}

func cnColumn(cn *fleet.ComputeNode, col string, instances int) string {
	switch strings.ToUpper(col) {
	case "HOSTNAME":
		return cn.Hostname
	case "COMPUTE":
		return cn.ComputeID
	case "IP":
		return cn.AdminIP
	case "RAM":
		return strconv.FormatInt(cn.RAM, 10)
	case "STORAGE":
		if cn.IsStorageHost {
			return "yes"
		}
		return "no"
	case "INSTANCES":
		return strconv.Itoa(instances)
	default:
		return ""
	}
}

// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package dispatch

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/spf13/afero"

	"github.com/coredrift/fleetadm/internal/fleet"
)

func testSnapshot(t *testing.T) *fleet.Snapshot {
	t.Helper()
	snap, err := fleet.NewSnapshot("poseidon", "app-1", "dc-east-1", nil,
		[]*fleet.Instance{
			{ID: "i-w1", Service: "webapi", ComputeID: "cn-1", ImageID: "img1", Datacenter: "dc-east-1", PrimaryIP: "10.0.0.1"},
			{ID: "i-w2", Service: "webapi", ComputeID: "cn-2", ImageID: "img1", Datacenter: "dc-east-1", PrimaryIP: "10.0.0.2"},
			{ID: "i-m1", Service: "medusa", ComputeID: "cn-1", ImageID: "img2", Datacenter: "dc-east-1"},
			{ID: "i-r1", Service: "medusa", ImageID: "img2", Datacenter: "dc-west-1"},
		},
		[]*fleet.ComputeNode{
			{ComputeID: "cn-1", Hostname: "RA01", Datacenter: "dc-east-1"},
			{ComputeID: "cn-2", Hostname: "RA02", Datacenter: "dc-east-1"},
			{ComputeID: "cn-3", Hostname: "RA03", Datacenter: "dc-east-1"},
		}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return snap
}

func idents(targets []Target) []string {
	ids := make([]string, len(targets))
	for i, t := range targets {
		ids[i] = t.Ident()
	}
	return ids
}

func TestScopeResolve(t *testing.T) {
	snap := testSnapshot(t)

	for _, tc := range []struct {
		name  string
		scope Scope
		want  []string
	}{
		{"instances", Scope{InstanceIDs: []string{"i-m1"}}, []string{"i-m1"}},
		{"service", Scope{Services: []string{"webapi"}}, []string{"i-w1", "i-w2"}},
		{"cn by hostname", Scope{ComputeNodes: []string{"RA01"}}, []string{"i-w1", "i-m1"}},
		{"cn by id", Scope{ComputeNodes: []string{"cn-2"}}, []string{"i-w2"}},
		{"all", Scope{AllInstances: true}, []string{"i-w1", "i-w2", "i-m1"}},
		{"union dedup", Scope{InstanceIDs: []string{"i-w1"}, Services: []string{"webapi"}}, []string{"i-w1", "i-w2"}},
		{"all global zones", Scope{AllInstances: true, GlobalZones: true}, []string{"cn-1", "cn-2", "cn-3"}},
		{"gz of service", Scope{Services: []string{"webapi"}, GlobalZones: true}, []string{"cn-1", "cn-2"}},
		{"empty service", Scope{Services: []string{"ops"}}, []string{}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			targets, err := tc.scope.Resolve(snap)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, idents(targets), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("wrong targets (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScopeResolveErrors(t *testing.T) {
	snap := testSnapshot(t)
	for _, scope := range []Scope{
		{InstanceIDs: []string{"i-nope"}},
		{InstanceIDs: []string{"i-r1"}}, // remote instance
		{Services: []string{"frobnicator"}},
		{ComputeNodes: []string{"RA99"}},
	} {
		if _, err := scope.Resolve(snap); err == nil {
			t.Errorf("scope %+v: expected an error", scope)
		}
	}
}

func TestCommandRequestEntersZone(t *testing.T) {
	op := &CommandOp{Script: "svcs -x | head -1"}

	req, err := op.Request(Target{InstanceID: "i-w1", ComputeID: "cn-1"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(req.Script, "zlogin i-w1") {
		t.Errorf("zone request not wrapped: %q", req.Script)
	}
	if !strings.Contains(req.Script, "'svcs -x | head -1'") {
		t.Errorf("script not quoted for zone entry: %q", req.Script)
	}

	req, err = op.Request(Target{ComputeID: "cn-1"})
	if err != nil {
		t.Fatal(err)
	}
	if req.Script != op.Script {
		t.Errorf("global-zone request modified: %q", req.Script)
	}
}

// fakeTransport scripts one reply per instance id.
type fakeTransport struct {
	mu sync.Mutex

	replies map[string]*Reply // nil value: never reply (time out)
	delays  map[string]time.Duration
	errs    map[string]error

	inFlight    int32
	maxInFlight int32
}

func (f *fakeTransport) Exec(ctx context.Context, t Target, req *Request) (*Reply, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if n <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, n) {
			break
		}
	}

	f.mu.Lock()
	rep := f.replies[t.Ident()]
	delay := f.delays[t.Ident()]
	err := f.errs[t.Ident()]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if rep == nil {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return rep, nil
}

// A three-target mix must yield all three results in completion order:
// the fast success first, the slower failure second, the timeout last.
func TestRunCompletionOrder(t *testing.T) {
	transport := &fakeTransport{
		replies: map[string]*Reply{
			"i-fast": {ExitStatus: 0, Stdout: "ok\n"},
			"i-slow": {ExitStatus: 1, Stderr: "boom\n"},
		},
		delays: map[string]time.Duration{
			"i-fast": 5 * time.Millisecond,
			"i-slow": 30 * time.Millisecond,
		},
	}
	d := &Dispatcher{
		Transport:   transport,
		Concurrency: 2,
		Timeout:     100 * time.Millisecond,
	}
	targets := []Target{
		{InstanceID: "i-fast", ComputeID: "cn-1"},
		{InstanceID: "i-slow", ComputeID: "cn-1"},
		{InstanceID: "i-dead", ComputeID: "cn-2"},
	}

	var got []Result
	for r := range d.Run(context.Background(), targets, &CommandOp{Script: "true"}) {
		got = append(got, r)
	}
	if len(got) != 3 {
		t.Fatalf("results = %d, want 3", len(got))
	}
	for i, want := range []struct {
		ident string
		kind  Kind
	}{
		{"i-fast", OK},
		{"i-slow", Nonzero},
		{"i-dead", Timeout},
	} {
		if got[i].Target.Ident() != want.ident || got[i].Kind != want.kind {
			t.Errorf("result %d = %s/%s, want %s/%s",
				i, got[i].Target.Ident(), got[i].Kind, want.ident, want.kind)
		}
	}
	if got[1].Stderr != "boom\n" {
		t.Errorf("nonzero result lost stderr: %+v", got[1])
	}
	if got[2].Err == nil {
		t.Error("timeout result carries no error")
	}

	failed := 0
	for _, r := range got {
		if r.Failed() {
			failed++
		}
	}
	if failed != 2 {
		t.Errorf("failed results = %d, want 2", failed)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	transport := &fakeTransport{
		replies: map[string]*Reply{},
		delays:  map[string]time.Duration{},
	}
	var targets []Target
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		transport.replies["i-"+id] = &Reply{}
		transport.delays["i-"+id] = 10 * time.Millisecond
		targets = append(targets, Target{InstanceID: "i-" + id, ComputeID: "cn-1"})
	}
	d := &Dispatcher{Transport: transport, Concurrency: 3, Timeout: time.Second}

	n := 0
	for range d.Run(context.Background(), targets, &CommandOp{Script: "true"}) {
		n++
	}
	if n != len(targets) {
		t.Fatalf("results = %d, want %d", n, len(targets))
	}
	if transport.maxInFlight > 3 {
		t.Errorf("max in flight = %d, want <= 3", transport.maxInFlight)
	}
}

func TestRunBufferedHoldsResults(t *testing.T) {
	transport := &fakeTransport{
		replies: map[string]*Reply{
			"i-a": {Stdout: "a"},
			"i-b": {Stdout: "b"},
		},
		delays: map[string]time.Duration{"i-b": 40 * time.Millisecond},
	}
	d := &Dispatcher{Transport: transport, Timeout: time.Second, Buffered: true}
	targets := []Target{
		{InstanceID: "i-a", ComputeID: "cn-1"},
		{InstanceID: "i-b", ComputeID: "cn-1"},
	}

	start := time.Now()
	stream := d.Run(context.Background(), targets, &CommandOp{Script: "true"})
	first := <-stream
	// nothing may arrive before the slowest target finishes
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("first result after %s, before the slow target completed", elapsed)
	}
	second := <-stream
	if _, open := <-stream; open {
		t.Error("stream still open after all targets")
	}
	if first.Target.Ident() != "i-a" || second.Target.Ident() != "i-b" {
		t.Errorf("drain order = %s, %s; want completion order i-a, i-b",
			first.Target.Ident(), second.Target.Ident())
	}
}

func TestRunInterruptStopsScheduling(t *testing.T) {
	transport := &fakeTransport{
		replies: map[string]*Reply{"i-a": {}, "i-b": {}, "i-c": {}},
		delays: map[string]time.Duration{
			"i-a": 30 * time.Millisecond,
			"i-b": 30 * time.Millisecond,
			"i-c": 30 * time.Millisecond,
		},
	}
	d := &Dispatcher{Transport: transport, Concurrency: 1, Timeout: time.Second}
	targets := []Target{
		{InstanceID: "i-a", ComputeID: "cn-1"},
		{InstanceID: "i-b", ComputeID: "cn-1"},
		{InstanceID: "i-c", ComputeID: "cn-1"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	stream := d.Run(ctx, targets, &CommandOp{Script: "true"})
	first := <-stream
	cancel()

	var rest []Result
	for r := range stream {
		rest = append(rest, r)
	}
	// i-a was in flight and must have completed normally despite cancel;
	// at most one more target got scheduled before cancel landed
	if first.Kind != OK {
		t.Errorf("in-flight result = %s, want OK", first.Kind)
	}
	if len(rest) > 1 {
		t.Errorf("results after interrupt = %d, want <= 1", len(rest))
	}
	for _, r := range rest {
		if r.Kind != OK {
			t.Errorf("scheduled-before-interrupt result = %s, want OK", r.Kind)
		}
	}
}

func TestGetWritesFetchedFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	op := &GetOp{RemotePath: "/var/log/app.log", LocalDir: "/tmp/out", Fs: fs}
	transport := &fakeTransport{
		replies: map[string]*Reply{
			"i-a": {ExitStatus: 0, Data: []byte("log contents\n")},
			"i-b": {ExitStatus: 1, Stderr: "no such file\n"},
		},
	}
	d := &Dispatcher{Transport: transport, Timeout: time.Second}
	targets := []Target{
		{InstanceID: "i-a", ComputeID: "cn-1"},
		{InstanceID: "i-b", ComputeID: "cn-1"},
	}

	for range d.Run(context.Background(), targets, op) {
	}

	data, err := afero.ReadFile(fs, "/tmp/out/i-a.app.log")
	if err != nil {
		t.Fatalf("fetched file missing: %s", err)
	}
	if string(data) != "log contents\n" {
		t.Errorf("fetched content = %q", data)
	}
	if _, err := fs.Stat("/tmp/out/i-b.app.log"); err == nil {
		t.Error("file written for a failed fetch")
	}
}

func TestPutCarriesContentToEveryTarget(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/tmp/patch.sh", []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	op, err := NewPutOp(fs, "/tmp/patch.sh", "/var/tmp")
	if err != nil {
		t.Fatal(err)
	}

	req, err := op.Request(Target{InstanceID: "i-a", ComputeID: "cn-1"})
	if err != nil {
		t.Fatal(err)
	}
	if req.Path != "/var/tmp/patch.sh" {
		t.Errorf("put path = %q", req.Path)
	}
	if string(req.Data) != "#!/bin/sh\n" {
		t.Errorf("put data = %q", req.Data)
	}

	if _, err := NewPutOp(fs, "/tmp/absent", "/var/tmp"); err == nil {
		t.Error("missing local file not reported")
	}
}

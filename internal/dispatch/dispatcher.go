// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	// DefaultConcurrency bounds simultaneous outstanding operations.
	DefaultConcurrency = 30

	// DefaultTimeout is the per-target deadline for one publish/reply
	// round trip.
	DefaultTimeout = 60 * time.Second
)

// Transport delivers one request to the agent on a target's compute node
// and waits for the correlated reply. Implementations must be safe for
// concurrent use.
type Transport interface {
	Exec(ctx context.Context, t Target, req *Request) (*Reply, error)
}

// Dispatcher fans one operation out across targets.
//
// Results arrive on the returned stream in completion order, not input
// order. Cancelling the run context stops scheduling of new targets;
// operations already in flight run on to their own deadlines, then the
// stream closes. Unscheduled targets produce no results.
type Dispatcher struct {
	Transport Transport

	// Concurrency caps outstanding operations. Zero means
	// DefaultConcurrency.
	Concurrency int

	// Timeout is the per-target deadline. Zero means DefaultTimeout.
	Timeout time.Duration

	// Buffered withholds the stream until every target has completed or
	// timed out, then drains it in completion order.
	Buffered bool

	Logger hclog.Logger
}

// Run dispatches op to every target and returns the result stream. The
// channel closes when all scheduled targets have completed.
func (d *Dispatcher) Run(ctx context.Context, targets []Target, op Operation) <-chan Result {
	concurrency := d.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	logger := d.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	out := make(chan Result)
	results := out
	if d.Buffered {
		results = make(chan Result)
		go func() {
			var held []Result
			for r := range results {
				held = append(held, r)
			}
			for _, r := range held {
				out <- r
			}
			close(out)
		}()
	}

	logger.Debug("dispatching", "operation", op.Describe(), "targets", len(targets), "concurrency", concurrency)

	sem := make(chan struct{}, concurrency)
	go func() {
		var wg sync.WaitGroup
	schedule:
		for _, target := range targets {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				logger.Warn("interrupted; abandoning unscheduled targets")
				break schedule
			}
			wg.Add(1)
			go func(t Target) {
				defer wg.Done()
				defer func() { <-sem }()
				results <- d.dispatchOne(ctx, t, op)
			}(target)
		}
		wg.Wait()
		close(results)
	}()
	return out
}

// dispatchOne runs the full round trip for one target. The operation
// context is detached from the run context so that an interrupt does not
// kill work already in flight; only the per-target deadline applies.
func (d *Dispatcher) dispatchOne(ctx context.Context, t Target, op Operation) Result {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	req, err := op.Request(t)
	if err != nil {
		return Result{Target: t, Kind: DispatchError, Err: err}
	}
	rep, err := d.Transport.Exec(opCtx, t, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{Target: t, Kind: Timeout,
				Err: fmt.Errorf("no reply from %s within %s", t.Ident(), timeout)}
		}
		return Result{Target: t, Kind: DispatchError, Err: err}
	}
	rep, err = op.Complete(t, rep)
	if err != nil {
		return Result{Target: t, Kind: DispatchError, Err: err}
	}

	kind := OK
	if rep.ExitStatus != 0 {
		kind = Nonzero
	}
	return Result{
		Target:     t,
		Kind:       kind,
		ExitStatus: rep.ExitStatus,
		Stdout:     rep.Stdout,
		Stderr:     rep.Stderr,
	}
}

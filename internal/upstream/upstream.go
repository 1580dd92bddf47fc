// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

// Package upstream defines the provider interfaces the core consumes: the
// application/service registry, the machine inventory, the compute-node
// inventory, the image registry and the monitoring service. The REST
// bindings live in upstream/rest; tests substitute in-memory fakes.
package upstream

import "errors"

// ErrNotFound is returned by lookup operations when the upstream has no
// record for the requested identifier. Callers that tolerate missing
// records (remote compute nodes, unknown images) test for it with
// errors.Is.
var ErrNotFound = errors.New("upstream record not found")

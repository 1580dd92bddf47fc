// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

// Package httpclient builds the HTTP clients used to talk to the upstream
// inventory and monitoring services.
package httpclient

import (
	"net/http"

	cleanhttp "github.com/hashicorp/go-cleanhttp"
)

// New returns the DefaultPooledClient from the cleanhttp package that will
// also send a fleetadm User-Agent string.
func New() *http.Client {
	cli := cleanhttp.DefaultPooledClient()
	cli.Transport = &userAgentRoundTripper{
		userAgent: UserAgent(),
		inner:     cli.Transport,
	}
	return cli
}

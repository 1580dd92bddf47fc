// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package httpclient

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/coredrift/fleetadm/version"
)

const uaEnvVar = "FLEETADM_APPEND_USER_AGENT"

type userAgentRoundTripper struct {
	inner     http.RoundTripper
	userAgent string
}

func (rt *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if _, ok := req.Header["User-Agent"]; !ok {
		req.Header.Set("User-Agent", rt.userAgent)
	}
	return rt.inner.RoundTrip(req)
}

// UserAgent returns the User-Agent header value sent on upstream requests,
// optionally extended via FLEETADM_APPEND_USER_AGENT.
func UserAgent() string {
	ua := fmt.Sprintf("fleetadm/%s", version.String())
	if add := strings.TrimSpace(os.Getenv(uaEnvVar)); add != "" {
		ua += " " + add
	}
	return ua
}

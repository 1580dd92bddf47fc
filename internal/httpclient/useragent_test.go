// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package httpclient

import (
	"fmt"
	"strings"
	"testing"

	"github.com/coredrift/fleetadm/version"
)

func TestUserAgent(t *testing.T) {
	t.Setenv(uaEnvVar, "")
	want := fmt.Sprintf("fleetadm/%s", version.String())
	if got := UserAgent(); got != want {
		t.Errorf("UserAgent() = %q, want %q", got, want)
	}

	t.Setenv(uaEnvVar, " test/1 ")
	if got := UserAgent(); !strings.HasSuffix(got, " test/1") {
		t.Errorf("UserAgent() = %q, want suffix %q", got, " test/1")
	}
}

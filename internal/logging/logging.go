// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

// Package logging configures the process-wide logger. Logging is off by
// default; operators enable it with FLEETADM_LOG=<level> and optionally
// redirect it with FLEETADM_LOG_PATH=<file>.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	hclog "github.com/hashicorp/go-hclog"
)

const (
	envLog     = "FLEETADM_LOG"
	envLogFile = "FLEETADM_LOG_PATH"
)

var (
	rootOnce sync.Once
	root     hclog.Logger
)

// Root returns the process root logger, constructing it from the
// environment on first use.
func Root() hclog.Logger {
	rootOnce.Do(func() {
		root = newRootLogger()
	})
	return root
}

// Named returns a subsystem logger hanging off the root logger.
func Named(name string) hclog.Logger {
	return Root().Named(name)
}

func newRootLogger() hclog.Logger {
	level := strings.ToLower(strings.TrimSpace(os.Getenv(envLog)))
	if level == "" {
		return hclog.NewNullLogger()
	}

	var output io.Writer = os.Stderr
	if path := os.Getenv(envLogFile); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			output = f
		}
		// on error we fall back to stderr rather than losing logs
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:   "fleetadm",
		Level:  parseLevel(level),
		Output: output,
	})
}

func parseLevel(s string) hclog.Level {
	switch s {
	case "trace":
		return hclog.Trace
	case "debug":
		return hclog.Debug
	case "info":
		return hclog.Info
	case "warn", "warning":
		return hclog.Warn
	case "error":
		return hclog.Error
	default:
		// any other value enables the most verbose level, matching the
		// long-standing behavior of setting the variable to "1"
		return hclog.Trace
	}
}

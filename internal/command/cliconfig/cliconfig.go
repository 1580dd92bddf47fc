// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

// Package cliconfig locates and loads the fleetadm configuration file,
// which names the upstream endpoints and the broker for one datacenter.
package cliconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
)

// EnvConfig overrides the config file location.
const EnvConfig = "FLEETADM_CONFIG"

const systemConfigFile = "/etc/fleetadm.json"

// Config is the parsed configuration file.
type Config struct {
	// AppName is the application to administer. Defaults to "fleet".
	AppName string `json:"app,omitempty"`

	// Account owns the machines and the monitoring configuration.
	Account string `json:"account"`

	// Datacenter is the local datacenter name.
	Datacenter string `json:"datacenter"`

	Registry string `json:"registry_url"`
	Machines string `json:"machines_url"`
	Compute  string `json:"compute_url"`
	Images   string `json:"images_url"`
	Monitor  string `json:"monitor_url"`

	Broker Broker `json:"broker"`

	// Concurrency bounds upstream fan-out in the inventory loader and the
	// alarm apply phase. Zero takes the per-component defaults.
	Concurrency int `json:"concurrency,omitempty"`
}

// Broker locates the AMQP broker for fleet command dispatch.
type Broker struct {
	Host     string `json:"host"`
	Port     int    `json:"port,omitempty"`
	Login    string `json:"login,omitempty"`
	Password string `json:"password,omitempty"`

	// ConnectTimeoutSeconds bounds the initial broker handshake.
	ConnectTimeoutSeconds int `json:"connect_timeout,omitempty"`
}

// ConnectTimeout returns the handshake bound as a duration.
func (b Broker) ConnectTimeout() time.Duration {
	if b.ConnectTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(b.ConnectTimeoutSeconds) * time.Second
}

// ConfigFile returns the path the configuration is loaded from: the
// FLEETADM_CONFIG override, the system file if present, else a per-user
// file in the home directory.
func ConfigFile(fs afero.Fs) (string, error) {
	if path := os.Getenv(EnvConfig); path != "" {
		return path, nil
	}
	if _, err := fs.Stat(systemConfigFile); err == nil {
		return systemConfigFile, nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".fleetadm.json"), nil
}

// Load reads and validates the configuration at path.
func Load(fs afero.Fs, path string) (*Config, error) {
	src, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := Parse(src)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a configuration document.
func Parse(src []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(src, &cfg); err != nil {
		return nil, err
	}
	if cfg.AppName == "" {
		cfg.AppName = "fleet"
	}
	if cfg.Broker.Port == 0 {
		cfg.Broker.Port = 5672
	}

	var missing []string
	for _, field := range []struct {
		name  string
		value string
	}{
		{"account", cfg.Account},
		{"datacenter", cfg.Datacenter},
		{"registry_url", cfg.Registry},
		{"machines_url", cfg.Machines},
		{"compute_url", cfg.Compute},
		{"images_url", cfg.Images},
		{"monitor_url", cfg.Monitor},
	} {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required fields: %v", missing)
	}
	return &cfg, nil
}

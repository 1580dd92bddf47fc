// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

// Package rest provides the HTTP bindings for the upstream interfaces. All
// five upstreams speak plain JSON over HTTP; each binding shares the same
// retrying client.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	retryablehttp "github.com/hashicorp/go-retryablehttp"

	"github.com/coredrift/fleetadm/internal/httpclient"
	"github.com/coredrift/fleetadm/internal/upstream"
)

// Client is a JSON-over-HTTP client for one upstream endpoint.
type Client struct {
	base *url.URL
	http *retryablehttp.Client
}

// NewClient builds a client for the given base URL.
func NewClient(baseURL string, logger hclog.Logger) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream url %q: %w", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid upstream url %q: must be http or https", baseURL)
	}

	retry := retryablehttp.NewClient()
	retry.HTTPClient = httpclient.New()
	retry.RetryMax = 3
	retry.RetryWaitMin = 250 * time.Millisecond
	retry.RetryWaitMax = 2 * time.Second
	if logger != nil {
		retry.Logger = logger.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true})
	} else {
		retry.Logger = nil
	}

	return &Client{base: base, http: retry}, nil
}

func (c *Client) url(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.url(path, query), rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, upstream.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decoding response: %w", method, path, err)
	}
	return nil
}

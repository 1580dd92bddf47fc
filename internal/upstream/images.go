// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package upstream

import "context"

// ImageRecord is a record from the image registry.
type ImageRecord struct {
	ID      string `json:"uuid"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Images is the image registry.
type Images interface {
	// GetImage returns the record for one image, or ErrNotFound. Image
	// lookups are best-effort in the loader: a missing record renders as
	// version "-" rather than failing the load.
	GetImage(ctx context.Context, imageID string) (*ImageRecord, error)

	// ListImagesByService lists the images tagged for one service name,
	// newest first.
	ListImagesByService(ctx context.Context, service string) ([]*ImageRecord, error)
}

// Copyright (c) The FleetAdm Authors
// SPDX-License-Identifier: MPL-2.0

package genconfig

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/coredrift/fleetadm/internal/layout"
)

// WriteLayouts emits the generated layouts. With exactly one availability
// zone the layout streams to out; otherwise each zone is written to
// <az>.json under dir. Returns the written file names, if any.
func WriteLayouts(fs afero.Fs, dir string, out io.Writer, layouts map[string]*layout.Layout) ([]string, error) {
	azs := make([]string, 0, len(layouts))
	for az := range layouts {
		azs = append(azs, az)
	}
	sort.Strings(azs)

	if len(azs) == 1 {
		src, err := layouts[azs[0]].MarshalIndent()
		if err != nil {
			return nil, err
		}
		if _, err := out.Write(append(src, '\n')); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if dir == "" {
		return nil, fmt.Errorf("%d availability zones but no output directory given", len(azs))
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var written []string
	for _, az := range azs {
		src, err := layouts[az].MarshalIndent()
		if err != nil {
			return nil, err
		}
		name := filepath.Join(dir, az+".json")
		if err := afero.WriteFile(fs, name, append(src, '\n'), 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", name, err)
		}
		written = append(written, name)
	}
	return written, nil
}

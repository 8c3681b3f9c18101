// Package metrics reports host state that matters to backups.
package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"
)

// LowSpacePercent is the used share of a volume at which it is reported as low on space.
const LowSpacePercent = 90.0

// DiskMetrics describes the filesystem holding a directory.
type DiskMetrics struct {
	Path        string  `json:"path"`
	Filesystem  string  `json:"filesystem"`
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Available   uint64  `json:"available"`
	UsedPercent float64 `json:"used_percent"`
	LowSpace    bool    `json:"low_space"`
}

// Volume returns usage for the filesystem that holds path. A path that does
// not exist yet, such as a backup directory created on first use, is
// measured at its nearest existing parent.
func Volume(ctx context.Context, path string) (*DiskMetrics, error) {
	dir, err := existingParent(path)
	if err != nil {
		return nil, err
	}

	usage, err := disk.UsageWithContext(ctx, dir)
	if err != nil {
		return nil, err
	}

	return &DiskMetrics{
		Path:        dir,
		Filesystem:  usage.Fstype,
		Total:       usage.Total,
		Used:        usage.Used,
		Available:   usage.Free,
		UsedPercent: usage.UsedPercent,
		LowSpace:    usage.UsedPercent >= LowSpacePercent,
	}, nil
}

func existingParent(path string) (string, error) {
	dir, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(dir); err == nil {
			return dir, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"
)

// LowSpaceThreshold is the used percentage at which a destination volume
// triggers an advisory.
const LowSpaceThreshold = 95.0

// DiskSpace describes the volume holding a path.
type DiskSpace struct {
	Path        string  `json:"path"`
	Probed      string  `json:"probed"`
	Total       uint64  `json:"total"`
	Free        uint64  `json:"free"`
	UsedPercent float64 `json:"used_percent"`
}

// Low reports whether usage is at or above LowSpaceThreshold.
func (d DiskSpace) Low() bool {
	return d.UsedPercent >= LowSpaceThreshold
}

// CheckDiskSpace reports usage of the volume holding path. Destinations may
// not exist yet, so the nearest existing ancestor is probed instead.
func CheckDiskSpace(ctx context.Context, path string) (DiskSpace, error) {
	probe, err := nearestExisting(path)
	if err != nil {
		return DiskSpace{Path: path}, err
	}
	usage, err := disk.UsageWithContext(ctx, probe)
	if err != nil {
		return DiskSpace{Path: path, Probed: probe}, fmt.Errorf("disk usage for %s: %w", probe, err)
	}
	return DiskSpace{
		Path:        path,
		Probed:      probe,
		Total:       usage.Total,
		Free:        usage.Free,
		UsedPercent: usage.UsedPercent,
	}, nil
}

// CheckDestinationSpace wraps CheckDiskSpace as a preflight Result.
func CheckDestinationSpace(ctx context.Context, name, path string) Result {
	space, err := CheckDiskSpace(ctx, path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	detail := fmt.Sprintf("%s (%s free of %s, %.0f%% used)", path, FormatBytes(space.Free), FormatBytes(space.Total), space.UsedPercent)
	return Result{Name: name, Passed: !space.Low(), Detail: detail}
}

func nearestExisting(path string) (string, error) {
	if path == "" {
		return "", errors.New("empty path")
	}
	current, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(current); err == nil {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no existing ancestor for %s", path)
		}
		current = parent
	}
}

// FormatBytes renders n with binary units ("512 B", "1.5 GiB").
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

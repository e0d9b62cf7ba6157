// Package cleanup reclaims disk space by removing scan artifacts past the
// retention window.
package cleanup

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Usage summarizes the artifact directory.
type Usage struct {
	Files      int        `json:"files"`
	Bytes      int64      `json:"bytes"`
	OldestFile *time.Time `json:"oldest_file,omitempty"`
}

// Reaper deletes artifacts older than the retention window.
type Reaper struct {
	dir       string
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a Reaper. retention <= 0 disables removal entirely.
func New(dir string, retention time.Duration, logger *slog.Logger) *Reaper {
	return &Reaper{dir: dir, retention: retention, interval: time.Hour, logger: logger}
}

// Run sweeps immediately and then on a fixed interval until ctx is canceled.
func (r *Reaper) Run(ctx context.Context) {
	r.sweepLogged(ctx)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweepLogged(ctx)
		}
	}
}

func (r *Reaper) sweepLogged(ctx context.Context) {
	removed, err := r.Sweep(ctx)
	if err != nil {
		r.logger.Error("artifact sweep failed", "err", err)
		return
	}
	if removed > 0 {
		r.logger.Info("expired artifacts removed", "count", removed)
	}
}

// Sweep removes expired artifacts once and reports how many were deleted.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	if r.retention <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-r.retention)
	removed := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(r.dir, entry.Name())
			if err := os.Remove(path); err != nil {
				r.logger.Warn("could not remove artifact", "path", path, "err", err)
				continue
			}
			removed++
		}
	}
	return removed, nil
}

// Usage reports current artifact directory consumption.
func (r *Reaper) Usage() (Usage, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Usage{}, nil
		}
		return Usage{}, err
	}

	var usage Usage
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		usage.Files++
		usage.Bytes += info.Size()
		mod := info.ModTime()
		if usage.OldestFile == nil || mod.Before(*usage.OldestFile) {
			usage.OldestFile = &mod
		}
	}
	return usage, nil
}

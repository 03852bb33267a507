//go:build !linux

package devicewatch

import (
	"context"

	"mirrorvault/internal/logging"
)

type platform struct{}

// Start logs that attach detection is unavailable on this platform.
func (w *Watcher) Start(context.Context) error {
	if w == nil {
		return nil
	}
	w.logger.Info("device watching not supported on this platform",
		logging.String(logging.FieldEventType, "device_watch_unsupported"),
	)
	return nil
}

func (w *Watcher) Stop() {}

func (w *Watcher) Running() bool { return false }

package pairs

import (
	"context"
	"fmt"
	"sync"
)

// Saver persists settings. Implemented by the SQLite store.
type Saver interface {
	SaveSettings(ctx context.Context, settings Settings) error
}

// Handle is the shared, lock-guarded settings instance. Readers take a
// Snapshot; writers go through Update, which holds the lock for the
// read-modify-write-persist sequence only.
type Handle struct {
	mu       sync.Mutex
	settings Settings
	saver    Saver
}

// NewHandle wraps initial settings. A nil saver keeps changes in memory.
func NewHandle(initial Settings, saver Saver) *Handle {
	return &Handle{settings: initial.Clone(), saver: saver}
}

// Snapshot returns a private copy of the current settings.
func (h *Handle) Snapshot() Settings {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.settings.Clone()
}

// Update applies fn to a copy of the settings, persists the result, and
// commits it. If fn or the save fails the shared settings are unchanged.
func (h *Handle) Update(ctx context.Context, fn func(*Settings) error) (Settings, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := h.settings.Clone()
	if err := fn(&next); err != nil {
		return h.settings.Clone(), err
	}
	if h.saver != nil {
		if err := h.saver.SaveSettings(ctx, next); err != nil {
			return h.settings.Clone(), fmt.Errorf("persist settings: %w", err)
		}
	}
	h.settings = next
	return next.Clone(), nil
}

// Replace swaps in an entirely new settings value.
func (h *Handle) Replace(ctx context.Context, settings Settings) (Settings, error) {
	return h.Update(ctx, func(s *Settings) error {
		*s = settings.Clone()
		return nil
	})
}

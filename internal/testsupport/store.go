package testsupport

import (
	"context"
	"testing"

	"mirrorvault/internal/config"
	"mirrorvault/internal/pairs"
	"mirrorvault/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewHandle loads settings from st (seeding from cfg) and wraps them in a
// pairs.Handle that persists through st.
func NewHandle(t testing.TB, cfg *config.Config, st *store.Store) *pairs.Handle {
	t.Helper()

	settings, _, err := st.LoadSettings(context.Background(), cfg.SeedSettings())
	if err != nil {
		t.Fatalf("store.LoadSettings: %v", err)
	}
	return pairs.NewHandle(settings, st)
}

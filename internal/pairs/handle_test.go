package pairs_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"mirrorvault/internal/pairs"
)

type recordingSaver struct {
	mu    sync.Mutex
	saved []pairs.Settings
	err   error
}

func (r *recordingSaver) SaveSettings(_ context.Context, s pairs.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, s.Clone())
	return nil
}

func TestHandleUpdatePersistsAndCommits(t *testing.T) {
	saver := &recordingSaver{}
	h := pairs.NewHandle(sampleSettings(1), saver)

	next, err := h.Update(context.Background(), func(s *pairs.Settings) error {
		s.Add(pairs.NewPair("/a", "/b"))
		return nil
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if len(next.Pairs) != 2 || len(h.Snapshot().Pairs) != 2 {
		t.Fatalf("expected 2 pairs after add, got %d", len(h.Snapshot().Pairs))
	}
	if len(saver.saved) != 1 || len(saver.saved[0].Pairs) != 2 {
		t.Fatalf("expected one save with 2 pairs, got %+v", saver.saved)
	}
}

func TestHandleUpdateRollsBackOnSaveFailure(t *testing.T) {
	saver := &recordingSaver{err: errors.New("disk full")}
	initial := sampleSettings(2)
	h := pairs.NewHandle(initial, saver)

	_, err := h.Update(context.Background(), func(s *pairs.Settings) error {
		_, err := s.Remove(0)
		return err
	})
	if err == nil {
		t.Fatal("expected save error")
	}
	if got := h.Snapshot(); len(got.Pairs) != 2 || got.Pairs[0].ID != initial.Pairs[0].ID {
		t.Fatalf("expected rollback, got %+v", got.Pairs)
	}
}

func TestHandleUpdateRollsBackOnMutationError(t *testing.T) {
	saver := &recordingSaver{}
	h := pairs.NewHandle(sampleSettings(1), saver)

	_, err := h.Update(context.Background(), func(s *pairs.Settings) error {
		s.Pairs[0].Source = "/mutated"
		_, err := s.MoveUp(7)
		return err
	})
	if !errors.Is(err, pairs.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if h.Snapshot().Pairs[0].Source == "/mutated" {
		t.Fatal("partial mutation leaked into shared settings")
	}
	if len(saver.saved) != 0 {
		t.Fatal("save must not run when the mutation fails")
	}
}

func TestHandleSnapshotIsACopy(t *testing.T) {
	h := pairs.NewHandle(sampleSettings(1), nil)
	snap := h.Snapshot()
	snap.Pairs[0].Enabled = false
	if !h.Snapshot().Pairs[0].Enabled {
		t.Fatal("snapshot mutation leaked into handle")
	}
}

func TestHandleReplace(t *testing.T) {
	h := pairs.NewHandle(sampleSettings(3), nil)
	replacement := sampleSettings(1)
	replacement.CheckIntervalSeconds = 120
	if _, err := h.Replace(context.Background(), replacement); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	got := h.Snapshot()
	if len(got.Pairs) != 1 || got.CheckIntervalSeconds != 120 {
		t.Fatalf("unexpected settings after replace: %+v", got)
	}
}

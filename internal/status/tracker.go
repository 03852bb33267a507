package status

import (
	"sort"
	"sync"
	"time"
)

// Tracker holds PairStatus entries keyed by pair id behind its own lock,
// independent of the settings lock.
type Tracker struct {
	mu       sync.Mutex
	statuses map[string]PairStatus
	now      func() time.Time
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{statuses: make(map[string]PairStatus), now: time.Now}
}

// SetClock overrides the wall clock (tests).
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if now != nil {
		t.now = now
	}
}

// Apply records u for pairID, creating the entry if needed, and returns
// the updated status.
func (t *Tracker) Apply(pairID string, u Update) PairStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.statuses[pairID]
	if !ok {
		st = NewPairStatus(pairID)
	}
	st.Apply(u, t.now())
	t.statuses[pairID] = st
	return st
}

// Reconcile makes the key set equal ids: missing ids start Pending and
// entries for unknown ids are dropped.
func (t *Tracker) Reconcile(ids []string) (added, removed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
		if _, ok := t.statuses[id]; !ok {
			t.statuses[id] = NewPairStatus(id)
			added++
		}
	}
	for id := range t.statuses {
		if _, ok := keep[id]; !ok {
			delete(t.statuses, id)
			removed++
		}
	}
	return added, removed
}

// Remove discards the history of pairID.
func (t *Tracker) Remove(pairID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.statuses, pairID)
}

// Get returns the status for pairID.
func (t *Tracker) Get(pairID string) (PairStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.statuses[pairID]
	return st, ok
}

// Len returns the number of tracked pairs.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.statuses)
}

// Snapshot returns a copy of every status ordered by pair id.
func (t *Tracker) Snapshot() []PairStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]PairStatus, 0, len(t.statuses))
	for _, st := range t.statuses {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PairID < out[j].PairID })
	return out
}

package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mirrorvault/internal/mirror"
	"mirrorvault/internal/notifications"
	"mirrorvault/internal/pairs"
	"mirrorvault/internal/preflight"
	"mirrorvault/internal/scheduler"
)

type fakeExecutor struct {
	mu       sync.Mutex
	calls    []string
	outcomes map[string]mirror.Outcome
	delay    time.Duration
	onCall   func(source string)
}

func (f *fakeExecutor) Execute(ctx context.Context, source, destination string, _ pairs.ToolOptions) mirror.Outcome {
	if f.onCall != nil {
		f.onCall(source)
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, source)
	if out, ok := f.outcomes[source]; ok {
		return out
	}
	return mirror.Outcome{Kind: mirror.Success, Message: "No changes"}
}

func (f *fakeExecutor) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type event struct {
	kind    string
	pairID  string
	outcome mirror.Kind
	trigger scheduler.Trigger
}

type recordingReporter struct {
	mu     sync.Mutex
	events []event
}

func (r *recordingReporter) PairStarted(p pairs.Pair, trigger scheduler.Trigger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{kind: "started", pairID: p.ID, trigger: trigger})
}

func (r *recordingReporter) PairFinished(p pairs.Pair, out mirror.Outcome, trigger scheduler.Trigger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{kind: "finished", pairID: p.ID, outcome: out.Kind, trigger: trigger})
}

type published struct {
	event   notifications.Event
	payload notifications.Payload
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (n *recordingNotifier) Publish(_ context.Context, ev notifications.Event, payload notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, published{event: ev, payload: payload})
	return n.err
}

func (n *recordingNotifier) Events() []published {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]published(nil), n.sent...)
}

func newSettings(paths ...string) *pairs.Handle {
	s := pairs.Settings{CheckIntervalSeconds: 3600, Tool: pairs.ToolOptions{Threads: 8}}
	for _, p := range paths {
		s.Add(pairs.NewPair(p, p+"-dst"))
	}
	return pairs.NewHandle(s, nil)
}

func noDisk(context.Context, string) (preflight.DiskSpace, error) {
	return preflight.DiskSpace{}, errors.New("not probed")
}

func TestRunBatchSequentialInStoredOrder(t *testing.T) {
	handle := newSettings("/a", "/b", "/c")
	if _, err := handle.Update(context.Background(), func(s *pairs.Settings) error {
		_, err := s.SetEnabled(1, false)
		return err
	}); err != nil {
		t.Fatalf("disable pair: %v", err)
	}

	exec := &fakeExecutor{outcomes: map[string]mirror.Outcome{
		"/c": {Kind: mirror.Warning, Message: "Extra files/dirs in destination"},
	}}
	reporter := &recordingReporter{}
	notifier := &recordingNotifier{}
	runner := scheduler.NewRunner(handle, exec, reporter, notifier, nil, scheduler.WithDiskChecker(noDisk))

	summary := runner.RunBatch(context.Background(), scheduler.TriggerManual, 0)

	calls := exec.Calls()
	if len(calls) != 2 || calls[0] != "/a" || calls[1] != "/c" {
		t.Fatalf("unexpected invocation order %v", calls)
	}
	if summary.Attempted != 2 || summary.OK != 1 || summary.Warnings != 1 || summary.Failed != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Kind() != mirror.Warning {
		t.Fatalf("expected warning summary, got %s", summary.Kind())
	}

	if len(reporter.events) != 4 {
		t.Fatalf("expected 4 reporter events, got %+v", reporter.events)
	}
	if reporter.events[0].kind != "started" || reporter.events[1].kind != "finished" || reporter.events[1].outcome != mirror.Success {
		t.Fatalf("unexpected reporter sequence %+v", reporter.events)
	}
	if reporter.events[3].trigger != scheduler.TriggerManual {
		t.Fatalf("trigger not propagated: %+v", reporter.events[3])
	}

	events := notifier.Events()
	if len(events) != 1 || events[0].event != notifications.EventRunSummary {
		t.Fatalf("expected one summary notification, got %+v", events)
	}
	if events[0].payload["warnings"] != 1 || events[0].payload["trigger"] != "manual" {
		t.Fatalf("unexpected summary payload %+v", events[0].payload)
	}
}

func TestRunBatchEmptyListIsAdvisory(t *testing.T) {
	exec := &fakeExecutor{}
	notifier := &recordingNotifier{}
	runner := scheduler.NewRunner(newSettings(), exec, nil, notifier, nil)

	summary := runner.RunBatch(context.Background(), scheduler.TriggerSchedule, 1)
	if !summary.NoPairs || summary.Attempted != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(exec.Calls()) != 0 {
		t.Fatalf("expected zero invocations, got %v", exec.Calls())
	}
	events := notifier.Events()
	if len(events) != 1 || events[0].event != notifications.EventNoPairs {
		t.Fatalf("expected no-pairs advisory, got %+v", events)
	}
}

func TestRunBatchStopsBetweenPairsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := &fakeExecutor{onCall: func(source string) {
		if source == "/a" {
			cancel()
		}
	}}
	runner := scheduler.NewRunner(newSettings("/a", "/b"), exec, nil, &recordingNotifier{}, nil, scheduler.WithDiskChecker(nil))

	summary := runner.RunBatch(ctx, scheduler.TriggerSchedule, 1)
	if calls := exec.Calls(); len(calls) != 1 {
		t.Fatalf("expected the in-flight pair only, got %v", calls)
	}
	if !summary.Interrupted || summary.OK != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestRunBatchPublishesLowDiskAdvisory(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("offline")}
	full := func(_ context.Context, path string) (preflight.DiskSpace, error) {
		return preflight.DiskSpace{Path: path, Total: 100 << 30, Free: 1 << 30, UsedPercent: 99}, nil
	}
	runner := scheduler.NewRunner(newSettings("/a"), &fakeExecutor{}, nil, notifier, nil, scheduler.WithDiskChecker(full))

	summary := runner.RunBatch(context.Background(), scheduler.TriggerDevice, 0)
	if summary.OK != 1 {
		t.Fatalf("advisory must not change the outcome: %+v", summary)
	}
	events := notifier.Events()
	if len(events) != 2 || events[0].event != notifications.EventLowDiskSpace {
		t.Fatalf("expected disk advisory then summary, got %+v", events)
	}
	if events[0].payload["path"] != "/a-dst" || events[0].payload["used_percent"] != 99 {
		t.Fatalf("unexpected advisory payload %+v", events[0].payload)
	}
}

func TestSummaryKind(t *testing.T) {
	tests := []struct {
		summary scheduler.Summary
		want    mirror.Kind
	}{
		{scheduler.Summary{OK: 3}, mirror.Success},
		{scheduler.Summary{OK: 1, Warnings: 1}, mirror.Warning},
		{scheduler.Summary{Warnings: 2, Failed: 1}, mirror.Failed},
	}
	for _, tt := range tests {
		if got := tt.summary.Kind(); got != tt.want {
			t.Fatalf("Kind(%+v) = %s, want %s", tt.summary, got, tt.want)
		}
	}
}

func TestSchedulerStartStopIdempotent(t *testing.T) {
	handle := newSettings("/a")
	exec := &fakeExecutor{}
	runner := scheduler.NewRunner(handle, exec, nil, &recordingNotifier{}, nil, scheduler.WithDiskChecker(nil))
	sched := scheduler.New(runner, handle, 20*time.Millisecond, nil)

	if sched.Stop() {
		t.Fatal("Stop on a stopped scheduler should be a no-op")
	}
	if !sched.Start(context.Background()) {
		t.Fatal("expected first Start to launch the loop")
	}
	if sched.Start(context.Background()) {
		t.Fatal("second Start should be a no-op")
	}
	waitFor(t, func() bool { return len(exec.Calls()) == 1 })
	if st := sched.State(); !st.Running || st.Iteration != 1 {
		t.Fatalf("unexpected state %+v", st)
	}
	if !sched.Stop() {
		t.Fatal("expected Stop to stop the loop")
	}
	if sched.Running() {
		t.Fatal("scheduler still running after Stop")
	}
	if sched.Stop() {
		t.Fatal("second Stop should be a no-op")
	}
}

func TestSchedulerStopDuringSleepReturnsWithinSlice(t *testing.T) {
	handle := newSettings("/a")
	exec := &fakeExecutor{}
	runner := scheduler.NewRunner(handle, exec, nil, &recordingNotifier{}, nil, scheduler.WithDiskChecker(nil))
	sched := scheduler.New(runner, handle, 50*time.Millisecond, nil)

	sched.Start(context.Background())
	waitFor(t, func() bool { return len(exec.Calls()) == 1 })
	time.Sleep(30 * time.Millisecond)

	begin := time.Now()
	sched.Stop()
	if elapsed := time.Since(begin); elapsed > time.Second {
		t.Fatalf("Stop took %s; expected it within one slice, not the hour-long interval", elapsed)
	}
	if calls := exec.Calls(); len(calls) != 1 {
		t.Fatalf("no further tick should start after Stop, got %v", calls)
	}
}

func TestSchedulerStopWaitsForInFlightPair(t *testing.T) {
	handle := newSettings("/a")
	started := make(chan struct{}, 1)
	exec := &fakeExecutor{delay: 100 * time.Millisecond, onCall: func(string) { started <- struct{}{} }}
	runner := scheduler.NewRunner(handle, exec, nil, &recordingNotifier{}, nil, scheduler.WithDiskChecker(nil))
	sched := scheduler.New(runner, handle, time.Second, nil)

	sched.Start(context.Background())
	<-started
	sched.Stop()
	if calls := exec.Calls(); len(calls) != 1 {
		t.Fatalf("in-flight pair should complete before Stop returns, got %v", calls)
	}
}

func TestSchedulerRestartsIterationCount(t *testing.T) {
	handle := newSettings("/a")
	exec := &fakeExecutor{}
	notifier := &recordingNotifier{}
	runner := scheduler.NewRunner(handle, exec, nil, notifier, nil, scheduler.WithDiskChecker(nil))
	sched := scheduler.New(runner, handle, 0, nil)

	sched.Start(context.Background())
	waitFor(t, func() bool { return len(exec.Calls()) == 1 })
	sched.Stop()
	sched.Start(context.Background())
	waitFor(t, func() bool { return len(exec.Calls()) == 2 })
	sched.Stop()

	events := notifier.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 summaries, got %+v", events)
	}
	if events[1].payload["iteration"] != 1 {
		t.Fatalf("iteration should restart at 1, got %v", events[1].payload["iteration"])
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

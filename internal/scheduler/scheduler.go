package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mirrorvault/internal/logging"
)

// MaxSleepSlice bounds a single uninterrupted sleep.
const MaxSleepSlice = 60 * time.Second

// State is a point-in-time view of the scheduler.
type State struct {
	Running   bool      `json:"running"`
	Iteration int       `json:"iteration"`
	LastTick  time.Time `json:"last_tick,omitzero"`
	NextTick  time.Time `json:"next_tick,omitzero"`
}

// Scheduler owns the interval loop. It is either stopped or running one
// loop goroutine.
type Scheduler struct {
	runner   *Runner
	settings SettingsSource
	slice    time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
	iteration int
	lastTick  time.Time
	nextTick  time.Time
}

// New builds a stopped scheduler. slice is clamped to (0, MaxSleepSlice].
func New(runner *Runner, settings SettingsSource, slice time.Duration, logger *slog.Logger) *Scheduler {
	if slice <= 0 || slice > MaxSleepSlice {
		slice = MaxSleepSlice
	}
	return &Scheduler{
		runner:   runner,
		settings: settings,
		slice:    slice,
		logger:   logging.NewComponentLogger(logger, "scheduler"),
	}
}

// Start launches the loop. It reports false when already running.
func (s *Scheduler) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	s.iteration = 0
	go s.loop(loopCtx, s.done)
	s.logger.Info("scheduler started",
		logging.String(logging.FieldEventType, "scheduler_started"),
		logging.Duration("slice", s.slice),
	)
	return true
}

// Stop signals the loop and blocks until it has exited. It reports false
// when already stopped.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return false
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done

	s.mu.Lock()
	s.running = false
	s.cancel = nil
	s.done = nil
	s.nextTick = time.Time{}
	s.mu.Unlock()
	s.logger.Info("scheduler stopped", logging.String(logging.FieldEventType, "scheduler_stopped"))
	return true
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// State returns the current loop position.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Running: s.running, Iteration: s.iteration, LastTick: s.lastTick, NextTick: s.nextTick}
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		if ctx.Err() != nil {
			return
		}
		s.mu.Lock()
		s.iteration++
		iteration := s.iteration
		s.lastTick = time.Now()
		s.mu.Unlock()

		s.runner.RunBatch(ctx, TriggerSchedule, iteration)

		interval := s.settings.Snapshot().Interval()
		s.mu.Lock()
		s.nextTick = time.Now().Add(interval)
		s.mu.Unlock()
		if !sleepSliced(ctx, interval, s.slice) {
			return
		}
	}
}

// sleepSliced waits total in steps of at most slice, returning false as soon
// as ctx is done.
func sleepSliced(ctx context.Context, total, slice time.Duration) bool {
	remaining := total
	for remaining > 0 {
		step := min(remaining, slice)
		timer := time.NewTimer(step)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		remaining -= step
	}
	return ctx.Err() == nil
}

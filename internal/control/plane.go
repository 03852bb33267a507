package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mirrorvault/internal/logging"
	"mirrorvault/internal/metrics"
	"mirrorvault/internal/mirror"
	"mirrorvault/internal/notifications"
	"mirrorvault/internal/pairs"
	"mirrorvault/internal/scheduler"
	"mirrorvault/internal/status"
	"mirrorvault/internal/store"
)

var (
	// ErrStopped is returned for commands sent after Exit.
	ErrStopped = errors.New("control plane stopped")
	// ErrRunInProgress rejects a manual run while another is in flight.
	ErrRunInProgress = errors.New("a manual run is already in progress")
	// ErrCommandPanicked reports a command abandoned after a panic.
	ErrCommandPanicked = errors.New("command panicked")
)

// Presenter receives state broadcasts. It must not call back into the plane
// synchronously.
type Presenter interface {
	WindowVisibilityChanged(visible bool)
	StatusChanged(st status.PairStatus)
}

// History persists finished runs.
type History interface {
	RecordRun(ctx context.Context, run store.Run) (int64, error)
	DeleteRunsForPair(ctx context.Context, pairID string) error
}

// Deps are the collaborators a Plane is built from.
type Deps struct {
	Handle     *pairs.Handle
	Tracker    *status.Tracker
	Executor   scheduler.Executor
	Notifier   notifications.Service
	Presenter  Presenter
	History    History
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	SleepSlice time.Duration
	// DiskChecker overrides the destination free-space probe; nil keeps the default.
	DiskChecker scheduler.DiskChecker
}

// View is a read-only snapshot for status surfaces.
type View struct {
	DaemonRunning   bool                `json:"daemon_running"`
	WindowVisible   bool                `json:"window_visible"`
	ManualRunActive bool                `json:"manual_run_active"`
	Scheduler       scheduler.State     `json:"scheduler"`
	Settings        pairs.Settings      `json:"settings"`
	Statuses        []status.PairStatus `json:"statuses"`
	QueueDepth      int                 `json:"queue_depth"`
}

// Plane is the single-threaded command consumer.
type Plane struct {
	handle    *pairs.Handle
	tracker   *status.Tracker
	runner    *scheduler.Runner
	scheduler *scheduler.Scheduler
	notifier  notifications.Service
	presenter Presenter
	history   History
	metrics   *metrics.Metrics
	logger    *slog.Logger

	queue   *commandQueue
	baseCtx context.Context
	done    chan struct{}

	stateMu       sync.RWMutex
	windowVisible bool
	exiting       bool

	manualMu     sync.Mutex
	manualActive bool
	manualCancel context.CancelFunc
	manualWG     sync.WaitGroup
}

// New wires a plane and the scheduler it drives. Nothing runs until Run.
func New(deps Deps) *Plane {
	tracker := deps.Tracker
	if tracker == nil {
		tracker = status.NewTracker()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewNoop()
	}
	presenter := deps.Presenter
	if presenter == nil {
		presenter = nopPresenter{}
	}

	p := &Plane{
		handle:    deps.Handle,
		tracker:   tracker,
		notifier:  notifier,
		presenter: presenter,
		history:   deps.History,
		metrics:   deps.Metrics,
		logger:    logging.NewComponentLogger(deps.Logger, "control"),
		queue:     newCommandQueue(),
		baseCtx:   context.Background(),
		done:      make(chan struct{}),
	}

	opts := []scheduler.RunnerOption{scheduler.WithMetrics(deps.Metrics)}
	if deps.DiskChecker != nil {
		opts = append(opts, scheduler.WithDiskChecker(deps.DiskChecker))
	}
	p.runner = scheduler.NewRunner(deps.Handle, deps.Executor, p, notifier, deps.Logger, opts...)
	p.scheduler = scheduler.New(p.runner, deps.Handle, deps.SleepSlice, deps.Logger)

	initial := deps.Handle.Snapshot()
	tracker.Reconcile(initial.IDs())
	p.publishPairCounts(initial)
	return p
}

// Run consumes commands until Exit is processed or ctx is cancelled, which
// is treated as Exit.
func (p *Plane) Run(ctx context.Context) error {
	defer close(p.done)
	p.baseCtx = context.WithoutCancel(ctx)

	for {
		env, ok := p.queue.pop(ctx)
		if !ok {
			p.exit(p.baseCtx)
			p.drain()
			return ctx.Err()
		}
		reply := p.dispatch(p.baseCtx, env.cmd)
		if env.reply != nil {
			env.reply <- reply
		}
		if p.isExiting() {
			p.drain()
			return nil
		}
	}
}

// Done is closed once Run has returned.
func (p *Plane) Done() <-chan struct{} { return p.done }

// Send enqueues cmd without waiting for it to be applied.
func (p *Plane) Send(cmd Command) error {
	return p.queue.push(envelope{cmd: cmd})
}

// Do enqueues cmd and waits for its result.
func (p *Plane) Do(ctx context.Context, cmd Command) (any, error) {
	reply := make(chan Reply, 1)
	if err := p.queue.push(envelope{cmd: cmd, reply: reply}); err != nil {
		return nil, err
	}
	select {
	case r := <-reply:
		return r.Value, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// View returns a consistent-enough snapshot for display. It reads through
// the settings and tracker locks, never the command queue.
func (p *Plane) View() View {
	p.stateMu.RLock()
	visible := p.windowVisible
	p.stateMu.RUnlock()
	p.manualMu.Lock()
	manual := p.manualActive
	p.manualMu.Unlock()

	sched := p.scheduler.State()
	return View{
		DaemonRunning:   sched.Running,
		WindowVisible:   visible,
		ManualRunActive: manual,
		Scheduler:       sched,
		Settings:        p.handle.Snapshot(),
		Statuses:        p.tracker.Snapshot(),
		QueueDepth:      p.queue.len(),
	}
}

// Tracker exposes the status tracker for read-only consumers.
func (p *Plane) Tracker() *status.Tracker { return p.tracker }

// PairStarted implements scheduler.Reporter.
func (p *Plane) PairStarted(pair pairs.Pair, trigger scheduler.Trigger) {
	p.report(UpdateBackupStatus{Pair: pair, Update: status.RunningUpdate(), Trigger: trigger})
}

// PairFinished implements scheduler.Reporter.
func (p *Plane) PairFinished(pair pairs.Pair, outcome mirror.Outcome, trigger scheduler.Trigger) {
	out := outcome
	p.report(UpdateBackupStatus{Pair: pair, Update: status.FromOutcome(outcome), Outcome: &out, Trigger: trigger})
}

func (p *Plane) report(cmd UpdateBackupStatus) {
	if err := p.Send(cmd); err != nil {
		p.logger.Debug("status update after shutdown dropped",
			logging.String(logging.FieldPairID, cmd.Pair.ID),
			logging.String("state", cmd.Update.State.String()),
		)
	}
}

func (p *Plane) dispatch(ctx context.Context, cmd Command) (reply Reply) {
	if cmd == nil {
		return Reply{Err: errors.New("nil command")}
	}
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(p.logger, "command panicked; abandoned", "command_panicked",
				logging.String("command", cmd.Name()),
				logging.Any("panic", r),
				logging.String(logging.FieldErrorHint, "report this with the daemon log"),
			)
			reply = Reply{Err: fmt.Errorf("%w: %s: %v", ErrCommandPanicked, cmd.Name(), r)}
		}
	}()

	value, err := cmd.apply(ctx, p)
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.As(err, &verr), errors.Is(err, pairs.ErrIndexOutOfRange), errors.Is(err, pairs.ErrValidation):
			logging.WarnWithContext(p.logger, "command rejected", "command_rejected",
				logging.String("command", cmd.Name()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "fix the request and retry"),
				logging.String(logging.FieldImpact, "no state was changed"),
			)
		case errors.Is(err, ErrRunInProgress):
			p.logger.Info("manual run already in progress", logging.String("command", cmd.Name()))
		default:
			logging.ErrorWithContext(p.logger, "command failed; edit abandoned", "command_failed",
				logging.String("command", cmd.Name()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the state database is writable"),
			)
		}
	}
	return Reply{Value: value, Err: err}
}

// drain closes the queue. Status reports from runs that finished while
// exiting are still applied so their outcome reaches history; everything
// else is refused.
func (p *Plane) drain() {
	for _, env := range p.queue.close() {
		reply := Reply{Err: ErrStopped}
		if cmd, ok := env.cmd.(UpdateBackupStatus); ok {
			reply = p.dispatch(p.baseCtx, cmd)
		}
		if env.reply != nil {
			env.reply <- reply
		}
	}
}

func (p *Plane) isExiting() bool {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.exiting
}

func (p *Plane) setWindowVisible(visible bool) {
	p.stateMu.Lock()
	changed := p.windowVisible != visible
	p.windowVisible = visible
	p.stateMu.Unlock()
	if changed {
		p.presenter.WindowVisibilityChanged(visible)
	}
}

func (p *Plane) startDaemon(ctx context.Context) bool {
	if !p.scheduler.Start(p.baseCtx) {
		return false
	}
	p.metrics.SetDaemonRunning(true)
	interval := p.handle.Snapshot().CheckIntervalSeconds
	p.logger.Info("daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.Int("interval_seconds", interval),
	)
	p.publish(ctx, notifications.EventDaemonStarted, notifications.Payload{"interval_seconds": interval})
	return true
}

func (p *Plane) stopDaemon(ctx context.Context) bool {
	if !p.scheduler.Stop() {
		return false
	}
	p.metrics.SetDaemonRunning(false)
	p.logger.Info("daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
	p.publish(ctx, notifications.EventDaemonStopped, nil)
	return true
}

func (p *Plane) runNow(trigger scheduler.Trigger) error {
	p.manualMu.Lock()
	defer p.manualMu.Unlock()
	if p.manualActive {
		return ErrRunInProgress
	}
	runCtx, cancel := context.WithCancel(p.baseCtx)
	p.manualActive = true
	p.manualCancel = cancel
	p.manualWG.Add(1)

	go func() {
		defer p.manualWG.Done()
		defer cancel()
		p.runner.RunBatch(runCtx, trigger, 0)
		p.manualMu.Lock()
		p.manualActive = false
		p.manualCancel = nil
		p.manualMu.Unlock()
	}()
	return nil
}

func (p *Plane) exit(ctx context.Context) {
	p.stateMu.Lock()
	if p.exiting {
		p.stateMu.Unlock()
		return
	}
	p.exiting = true
	p.stateMu.Unlock()

	p.stopDaemon(ctx)

	p.manualMu.Lock()
	cancel := p.manualCancel
	p.manualMu.Unlock()
	if cancel != nil {
		cancel()
	}
	p.manualWG.Wait()
	p.logger.Info("control plane exiting", logging.String(logging.FieldEventType, "control_exit"))
}

// afterEdit reconciles derived state with freshly committed settings. The
// scheduler reads the shared handle directly, so it sees the edit at its
// next tick without being rebuilt.
func (p *Plane) afterEdit(next pairs.Settings) {
	added, removed := p.tracker.Reconcile(next.IDs())
	if added > 0 || removed > 0 {
		p.logger.Debug("status map reconciled", logging.Int("added", added), logging.Int("removed", removed))
	}
	p.publishPairCounts(next)
}

func (p *Plane) publishPairCounts(s pairs.Settings) {
	enabled := len(s.EnabledPairs())
	p.metrics.SetPairs(enabled, len(s.Pairs)-enabled)
}

type nopPresenter struct{}

func (nopPresenter) WindowVisibilityChanged(bool)   {}
func (nopPresenter) StatusChanged(status.PairStatus) {}

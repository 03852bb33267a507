package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"mirrorvault/internal/config"
	"mirrorvault/internal/control"
	"mirrorvault/internal/deps"
	"mirrorvault/internal/devicewatch"
	"mirrorvault/internal/logging"
	"mirrorvault/internal/metrics"
	"mirrorvault/internal/mirror"
	"mirrorvault/internal/notifications"
	"mirrorvault/internal/pairs"
	"mirrorvault/internal/preflight"
	"mirrorvault/internal/scheduler"
	"mirrorvault/internal/status"
	"mirrorvault/internal/store"
)

// HistoryRetention bounds how long finished runs are kept.
const HistoryRetention = 90 * 24 * time.Hour

// ErrAlreadyRunning is returned when another process holds the lock.
var ErrAlreadyRunning = errors.New("another mirrorvault daemon instance is already running")

// Options tune daemon construction.
type Options struct {
	// Executor overrides the mirroring tool executor.
	Executor scheduler.Executor
	// Notifier overrides the ntfy service built from config.
	Notifier notifications.Service
	// StartScheduling starts the scheduler once the daemon is up, in
	// addition to the persisted start_with_system setting.
	StartScheduling bool
	LogPath         string
}

// Daemon owns the process-level lifecycle around the control plane.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	handle   *pairs.Handle
	plane    *control.Plane
	notifier notifications.Service
	metrics  *metrics.Metrics
	watcher  *devicewatch.Watcher
	api      *apiServer
	logPath  string

	startScheduling bool

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	exited  chan struct{}
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool          `json:"running"`
	PID          int           `json:"pid"`
	Watching     bool          `json:"device_watch"`
	View         control.View  `json:"view"`
	DatabasePath string        `json:"database_path"`
	LockFilePath string        `json:"lock_path"`
	LogPath      string        `json:"log_path,omitempty"`
	Dependencies []deps.Status `json:"dependencies"`
}

// New constructs a daemon around an open store. Settings are loaded from
// the store, seeded from cfg on first run.
func New(ctx context.Context, cfg *config.Config, st *store.Store, logger *slog.Logger, opts Options) (*Daemon, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	settings, created, err := st.LoadSettings(ctx, cfg.SeedSettings())
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if created {
		logger.Info("settings seeded from config defaults",
			logging.String(logging.FieldEventType, "settings_seeded"),
			logging.Int("interval_seconds", settings.CheckIntervalSeconds),
		)
	}
	handle := pairs.NewHandle(settings, st)

	m, err := metrics.New(nil)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	executor := opts.Executor
	if executor == nil {
		executor = mirror.New(cfg.MirrorBinary(), mirror.WithLogger(logger))
	}

	d := &Daemon{
		cfg:             cfg,
		logger:          logger,
		store:           st,
		handle:          handle,
		notifier:        notifier,
		metrics:         m,
		logPath:         opts.LogPath,
		startScheduling: opts.StartScheduling,
		lockPath:        cfg.LockPath(),
		lock:            flock.New(cfg.LockPath()),
		exited:          make(chan struct{}),
	}
	d.plane = control.New(control.Deps{
		Handle:     handle,
		Tracker:    status.NewTracker(),
		Executor:   executor,
		Notifier:   notifier,
		Presenter:  newLogPresenter(logger),
		History:    st,
		Metrics:    m,
		Logger:     logger,
		SleepSlice: cfg.SleepSlice(),
	})
	d.watcher = devicewatch.New(cfg, d.triggerDeviceRun, logger)
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the instance lock, starts the control plane and its
// surfaces, and starts scheduling when requested.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	go func() {
		defer close(d.exited)
		_ = d.plane.Run(runCtx)
	}()

	if err := d.api.start(runCtx); err != nil {
		cancel()
		<-d.exited
		_ = d.lock.Unlock()
		return fmt.Errorf("start api: %w", err)
	}
	_ = d.watcher.Start(runCtx)
	d.running.Store(true)

	d.logPreflight(runCtx)
	d.pruneHistory(runCtx)

	d.logger.Info("mirrorvault daemon started",
		logging.String(logging.FieldEventType, "process_started"),
		logging.String("lock", d.lockPath),
		logging.String("database", d.store.Path()),
	)

	if d.startScheduling || d.handle.Snapshot().StartWithSystem {
		if _, err := d.plane.Do(runCtx, control.StartDaemon{}); err != nil {
			logging.WarnWithContext(d.logger, "automatic start of scheduling failed", "autostart_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run `mirrorvault start` once the daemon is up"),
				logging.String(logging.FieldImpact, "no scheduled runs until started"),
			)
		}
	}
	return nil
}

// Stop tears down surfaces, exits the control plane, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.watcher.Stop()
	d.api.stop()

	exitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if _, err := d.plane.Do(exitCtx, control.Exit{}); err != nil && !errors.Is(err, control.ErrStopped) {
		d.logger.Debug("exit command not acknowledged", logging.Error(err))
	}
	<-d.exited
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}

	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the lock file if the next start fails"),
		)
	}
	d.running.Store(false)
	d.logger.Info("mirrorvault daemon stopped", logging.String(logging.FieldEventType, "process_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Exited is closed once the control plane has processed Exit, whether it
// came from Stop or from a client.
func (d *Daemon) Exited() <-chan struct{} { return d.exited }

// Running reports whether the process lifecycle is active.
func (d *Daemon) Running() bool { return d.running.Load() }

// Do forwards a command to the control plane and waits for the reply.
func (d *Daemon) Do(ctx context.Context, cmd control.Command) (any, error) {
	return d.plane.Do(ctx, cmd)
}

// View returns the control-plane snapshot.
func (d *Daemon) View() control.View { return d.plane.View() }

// Settings returns the current settings snapshot.
func (d *Daemon) Settings() pairs.Settings { return d.handle.Snapshot() }

// History lists recorded runs.
func (d *Daemon) History(ctx context.Context, filter store.RunFilter) ([]store.Run, error) {
	return d.store.ListRuns(ctx, filter)
}

// Metrics exposes the daemon's instruments.
func (d *Daemon) Metrics() *metrics.Metrics { return d.metrics }

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string { return d.logPath }

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Watching:     d.watcher.Running(),
		View:         d.plane.View(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
		Dependencies: preflight.CheckSystemDeps(ctx, d.cfg),
	}
}

// TestNotification sends a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

func (d *Daemon) triggerDeviceRun(string) error {
	_, err := d.plane.Do(context.Background(), control.RunBackupNow{Trigger: scheduler.TriggerDevice})
	return err
}

func (d *Daemon) logPreflight(ctx context.Context) {
	for _, result := range preflight.RunAll(ctx, d.cfg, d.handle.Snapshot()) {
		if result.Passed {
			d.logger.Debug("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
			continue
		}
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run `mirrorvault status` for details"),
			logging.String(logging.FieldImpact, "affected pairs may fail until fixed"),
		)
	}
}

func (d *Daemon) pruneHistory(ctx context.Context) {
	cutoff := time.Now().Add(-HistoryRetention)
	removed, err := d.store.PruneRuns(ctx, cutoff)
	if err != nil {
		logging.WarnWithContext(d.logger, "run history prune failed", "history_prune_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "old runs remain in the database"),
		)
		return
	}
	if removed > 0 {
		d.logger.Info("pruned old run history",
			logging.String(logging.FieldEventType, "history_pruned"),
			logging.Int64("removed", removed),
		)
	}
}

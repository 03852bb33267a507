package scheduler

import (
	"context"
	"log/slog"
	"time"

	"mirrorvault/internal/logging"
	"mirrorvault/internal/metrics"
	"mirrorvault/internal/mirror"
	"mirrorvault/internal/notifications"
	"mirrorvault/internal/pairs"
	"mirrorvault/internal/preflight"
)

// Trigger names what started a batch.
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
	TriggerDevice   Trigger = "device"
)

// SettingsSource yields a private copy of the current settings.
type SettingsSource interface {
	Snapshot() pairs.Settings
}

// Executor runs the mirroring tool for one pair.
type Executor interface {
	Execute(ctx context.Context, source, destination string, opts pairs.ToolOptions) mirror.Outcome
}

// Reporter receives per-pair transitions. Implementations must not block
// on long work; the control plane enqueues a status command and returns.
type Reporter interface {
	PairStarted(pair pairs.Pair, trigger Trigger)
	PairFinished(pair pairs.Pair, outcome mirror.Outcome, trigger Trigger)
}

// Summary tallies one batch.
type Summary struct {
	Trigger     Trigger       `json:"trigger"`
	Iteration   int           `json:"iteration,omitempty"`
	Attempted   int           `json:"attempted"`
	OK          int           `json:"ok"`
	Warnings    int           `json:"warnings"`
	Failed      int           `json:"failed"`
	Duration    time.Duration `json:"duration"`
	NoPairs     bool          `json:"no_pairs,omitempty"`
	Interrupted bool          `json:"interrupted,omitempty"`
}

// Kind collapses the tallies: any failure wins, then any warning.
func (s Summary) Kind() mirror.Kind {
	switch {
	case s.Failed > 0:
		return mirror.Failed
	case s.Warnings > 0:
		return mirror.Warning
	default:
		return mirror.Success
	}
}

func (s *Summary) add(kind mirror.Kind) {
	s.Attempted++
	switch kind {
	case mirror.Success:
		s.OK++
	case mirror.Warning:
		s.Warnings++
	default:
		s.Failed++
	}
}

// DiskChecker reports free space for a destination.
type DiskChecker func(ctx context.Context, path string) (preflight.DiskSpace, error)

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithMetrics records batch counts.
func WithMetrics(m *metrics.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithDiskChecker replaces the destination free-space probe. A nil checker
// disables the advisory.
func WithDiskChecker(check DiskChecker) RunnerOption {
	return func(r *Runner) { r.diskCheck = check }
}

// Runner executes batches of enabled pairs.
type Runner struct {
	settings  SettingsSource
	executor  Executor
	reporter  Reporter
	notifier  notifications.Service
	metrics   *metrics.Metrics
	diskCheck DiskChecker
	logger    *slog.Logger
}

// NewRunner wires a batch runner.
func NewRunner(settings SettingsSource, executor Executor, reporter Reporter, notifier notifications.Service, logger *slog.Logger, opts ...RunnerOption) *Runner {
	if notifier == nil {
		notifier = notifications.NewNoop()
	}
	r := &Runner{
		settings:  settings,
		executor:  executor,
		reporter:  reporter,
		notifier:  notifier,
		diskCheck: preflight.CheckDiskSpace,
		logger:    logging.NewComponentLogger(logger, "scheduler"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunBatch runs every enabled pair once, in order. Cancelling ctx stops the
// batch before the next pair starts; an in-flight tool invocation always
// runs to completion.
func (r *Runner) RunBatch(ctx context.Context, trigger Trigger, iteration int) Summary {
	started := time.Now()
	summary := Summary{Trigger: trigger, Iteration: iteration}
	snap := r.settings.Snapshot()
	enabled := snap.EnabledPairs()
	r.metrics.RecordTick(string(trigger))

	logger := r.logger.With(logging.String(logging.FieldTrigger, string(trigger)))
	if len(enabled) == 0 {
		summary.NoPairs = true
		logger.Info("no pairs configured; nothing to run",
			logging.String(logging.FieldEventType, "batch_skipped"),
			logging.Int("configured", len(snap.Pairs)),
		)
		r.publish(ctx, notifications.EventNoPairs, nil)
		return summary
	}

	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_started"),
		logging.Int("iteration", iteration),
		logging.Int("pairs", len(enabled)),
	)

	for _, pair := range enabled {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}
		pairCtx := logging.WithPairID(ctx, pair.ID)
		r.checkDestinationSpace(pairCtx, pair)

		r.reportStarted(pair, trigger)
		outcome := r.executor.Execute(context.WithoutCancel(pairCtx), pair.Source, pair.Destination, snap.Tool)
		r.reportFinished(pair, outcome, trigger)
		summary.add(outcome.Kind)
	}
	summary.Duration = time.Since(started)

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "batch_finished"),
		logging.Int("iteration", iteration),
		logging.Int("ok", summary.OK),
		logging.Int("warnings", summary.Warnings),
		logging.Int("failed", summary.Failed),
		logging.Duration("duration", summary.Duration),
	}
	if summary.Interrupted {
		attrs = append(attrs, logging.Bool("interrupted", true))
	}
	if summary.Failed > 0 {
		logging.WarnWithContext(logger, "batch finished with failures", "batch_finished",
			append(attrs,
				logging.String(logging.FieldErrorHint, "check the per-pair errors above or run `mirrorvault history`"),
				logging.String(logging.FieldImpact, "some destinations are not up to date"),
			)...)
	} else {
		logger.Info("batch finished", logging.Args(attrs...)...)
	}

	if summary.Attempted > 0 {
		r.publish(ctx, notifications.EventRunSummary, notifications.Payload{
			"trigger":   string(trigger),
			"iteration": iteration,
			"ok":        summary.OK,
			"warnings":  summary.Warnings,
			"failed":    summary.Failed,
			"duration":  summary.Duration.Round(time.Second).String(),
		})
	}
	return summary
}

func (r *Runner) reportStarted(pair pairs.Pair, trigger Trigger) {
	if r.reporter != nil {
		r.reporter.PairStarted(pair, trigger)
	}
}

func (r *Runner) reportFinished(pair pairs.Pair, outcome mirror.Outcome, trigger Trigger) {
	if r.reporter != nil {
		r.reporter.PairFinished(pair, outcome, trigger)
	}
}

func (r *Runner) checkDestinationSpace(ctx context.Context, pair pairs.Pair) {
	if r.diskCheck == nil {
		return
	}
	logger := logging.WithContext(ctx, r.logger)
	space, err := r.diskCheck(ctx, pair.Destination)
	if err != nil {
		logger.Debug("destination space probe failed", logging.Error(err))
		return
	}
	if !space.Low() {
		return
	}
	logging.WarnWithContext(logger, "destination volume nearly full", "destination_low_space",
		logging.String("destination", pair.Destination),
		logging.Float64("used_percent", space.UsedPercent),
		logging.String("free", preflight.FormatBytes(space.Free)),
		logging.String(logging.FieldErrorHint, "free space on the destination volume"),
		logging.String(logging.FieldImpact, "the mirroring tool may fail partway through"),
	)
	r.publish(ctx, notifications.EventLowDiskSpace, notifications.Payload{
		"path":         pair.Destination,
		"used_percent": int(space.UsedPercent),
		"free":         preflight.FormatBytes(space.Free),
	})
}

func (r *Runner) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := r.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		logging.WarnWithContext(r.logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the ntfy topic and network"),
			logging.String(logging.FieldImpact, "event was not delivered"),
		)
	}
}

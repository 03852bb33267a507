package control

import (
	"context"
	"fmt"
	"strings"

	"mirrorvault/internal/logging"
	"mirrorvault/internal/mirror"
	"mirrorvault/internal/notifications"
	"mirrorvault/internal/pairs"
	"mirrorvault/internal/pathcheck"
	"mirrorvault/internal/scheduler"
	"mirrorvault/internal/status"
	"mirrorvault/internal/store"
)

// Command is one entry of the control-plane vocabulary.
type Command interface {
	Name() string
	apply(ctx context.Context, p *Plane) (any, error)
}

// ValidationError carries a path validation report with at least one error.
type ValidationError struct {
	Report pathcheck.Report
}

func (e *ValidationError) Error() string {
	return "invalid pair: " + strings.Join(e.Report.Errors(), "; ")
}

func (e *ValidationError) Unwrap() error { return pairs.ErrValidation }

// PairResult is returned by AddBackupPair and UpdateBackupPair.
type PairResult struct {
	Pair     pairs.Pair `json:"pair"`
	Warnings []string   `json:"warnings,omitempty"`
}

type (
	ShowWindow  struct{}
	HideWindow  struct{}
	StartDaemon struct{}
	StopDaemon  struct{}
	Exit        struct{}

	// RunBackupNow runs all enabled pairs once without touching the daemon state.
	RunBackupNow struct {
		Trigger scheduler.Trigger
	}

	// UpdateConfig replaces the whole settings value.
	UpdateConfig struct {
		Settings pairs.Settings
	}

	AddBackupPair struct {
		Source      string
		Destination string
	}

	UpdateBackupPair struct {
		Index       int
		Source      string
		Destination string
	}

	RemoveBackupPair struct {
		Index int
	}

	MoveBackupPairUp struct {
		Index int
	}

	MoveBackupPairDown struct {
		Index int
	}

	ToggleBackupPairEnabled struct {
		Index   int
		Enabled bool
	}

	// UpdateBackupStatus applies one status transition. Outcome is set for
	// final transitions and drives run history and metrics.
	UpdateBackupStatus struct {
		Pair    pairs.Pair
		Update  status.Update
		Outcome *mirror.Outcome
		Trigger scheduler.Trigger
	}
)

func (ShowWindow) Name() string              { return "show_window" }
func (HideWindow) Name() string              { return "hide_window" }
func (StartDaemon) Name() string             { return "start_daemon" }
func (StopDaemon) Name() string              { return "stop_daemon" }
func (Exit) Name() string                    { return "exit" }
func (RunBackupNow) Name() string            { return "run_backup_now" }
func (UpdateConfig) Name() string            { return "update_config" }
func (AddBackupPair) Name() string           { return "add_backup_pair" }
func (UpdateBackupPair) Name() string        { return "update_backup_pair" }
func (RemoveBackupPair) Name() string        { return "remove_backup_pair" }
func (MoveBackupPairUp) Name() string        { return "move_backup_pair_up" }
func (MoveBackupPairDown) Name() string      { return "move_backup_pair_down" }
func (ToggleBackupPairEnabled) Name() string { return "toggle_backup_pair_enabled" }
func (UpdateBackupStatus) Name() string      { return "update_backup_status" }

func (ShowWindow) apply(_ context.Context, p *Plane) (any, error) {
	p.setWindowVisible(true)
	return true, nil
}

func (HideWindow) apply(_ context.Context, p *Plane) (any, error) {
	p.setWindowVisible(false)
	return false, nil
}

func (StartDaemon) apply(ctx context.Context, p *Plane) (any, error) {
	return p.startDaemon(ctx), nil
}

func (StopDaemon) apply(ctx context.Context, p *Plane) (any, error) {
	return p.stopDaemon(ctx), nil
}

func (Exit) apply(ctx context.Context, p *Plane) (any, error) {
	p.exit(ctx)
	return nil, nil
}

func (c RunBackupNow) apply(_ context.Context, p *Plane) (any, error) {
	trigger := c.Trigger
	if trigger == "" {
		trigger = scheduler.TriggerManual
	}
	if err := p.runNow(trigger); err != nil {
		return false, err
	}
	return true, nil
}

func (c UpdateConfig) apply(ctx context.Context, p *Plane) (any, error) {
	if err := c.Settings.Validate(); err != nil {
		return nil, err
	}
	next, err := p.handle.Replace(ctx, c.Settings)
	if err != nil {
		return nil, err
	}
	p.afterEdit(next)
	if p.scheduler.Running() {
		p.scheduler.Stop()
		p.scheduler.Start(p.baseCtx)
		p.logger.Info("daemon restarted with new settings",
			logging.String(logging.FieldEventType, "daemon_restarted"),
			logging.Int("interval_seconds", next.CheckIntervalSeconds),
		)
	}
	return next, nil
}

func (c AddBackupPair) apply(ctx context.Context, p *Plane) (any, error) {
	var result PairResult
	next, err := p.handle.Update(ctx, func(s *pairs.Settings) error {
		report := pathcheck.Validate(c.Source, c.Destination, s.Pairs, pathcheck.NoEditing)
		if report.HasErrors() {
			return &ValidationError{Report: report}
		}
		result.Warnings = report.Warnings()
		result.Pair = s.Add(pairs.NewPair(c.Source, c.Destination))
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.afterEdit(next)
	return result, nil
}

func (c UpdateBackupPair) apply(ctx context.Context, p *Plane) (any, error) {
	var result PairResult
	next, err := p.handle.Update(ctx, func(s *pairs.Settings) error {
		if c.Index < 0 || c.Index >= len(s.Pairs) {
			return fmt.Errorf("%w: %d", pairs.ErrIndexOutOfRange, c.Index)
		}
		report := pathcheck.Validate(c.Source, c.Destination, s.Pairs, c.Index)
		if report.HasErrors() {
			return &ValidationError{Report: report}
		}
		updated, err := s.Update(c.Index, c.Source, c.Destination)
		if err != nil {
			return err
		}
		result.Pair = updated
		result.Warnings = report.Warnings()
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.afterEdit(next)
	return result, nil
}

func (c RemoveBackupPair) apply(ctx context.Context, p *Plane) (any, error) {
	var removed pairs.Pair
	next, err := p.handle.Update(ctx, func(s *pairs.Settings) error {
		var err error
		removed, err = s.Remove(c.Index)
		return err
	})
	if err != nil {
		return nil, err
	}
	p.tracker.Remove(removed.ID)
	p.afterEdit(next)
	if p.history != nil {
		if err := p.history.DeleteRunsForPair(ctx, removed.ID); err != nil {
			logging.WarnWithContext(p.logger, "failed to drop run history for removed pair", "history_delete_failed",
				logging.String(logging.FieldPairID, removed.ID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the state database"),
				logging.String(logging.FieldImpact, "stale runs remain in `mirrorvault history`"),
			)
		}
	}
	return removed, nil
}

func (c MoveBackupPairUp) apply(ctx context.Context, p *Plane) (any, error) {
	return p.move(ctx, func(s *pairs.Settings) (bool, error) { return s.MoveUp(c.Index) })
}

func (c MoveBackupPairDown) apply(ctx context.Context, p *Plane) (any, error) {
	return p.move(ctx, func(s *pairs.Settings) (bool, error) { return s.MoveDown(c.Index) })
}

func (c ToggleBackupPairEnabled) apply(ctx context.Context, p *Plane) (any, error) {
	var updated pairs.Pair
	next, err := p.handle.Update(ctx, func(s *pairs.Settings) error {
		var err error
		updated, err = s.SetEnabled(c.Index, c.Enabled)
		return err
	})
	if err != nil {
		return nil, err
	}
	p.afterEdit(next)
	return updated, nil
}

func (c UpdateBackupStatus) apply(ctx context.Context, p *Plane) (any, error) {
	if p.handle.Snapshot().IndexOf(c.Pair.ID) < 0 {
		p.logger.Debug("status update for unknown pair dropped",
			logging.String(logging.FieldPairID, c.Pair.ID),
			logging.String("state", c.Update.State.String()),
		)
		return nil, nil
	}
	st := p.tracker.Apply(c.Pair.ID, c.Update)
	p.presenter.StatusChanged(st)

	if c.Outcome == nil || !c.Update.State.Final() {
		return st, nil
	}
	out := *c.Outcome
	p.metrics.RecordOutcome(out.Kind.String(), out.Duration, out.FilesCopied, out.BytesTransferred)
	if p.history != nil {
		run := store.Run{
			PairID:           c.Pair.ID,
			Source:           c.Pair.Source,
			Destination:      c.Pair.Destination,
			Outcome:          out.Kind.String(),
			Message:          out.Message,
			ExitCode:         out.ExitCode,
			FilesCopied:      out.FilesCopied,
			BytesTransferred: out.BytesTransferred,
			Duration:         out.Duration,
			Trigger:          string(c.Trigger),
			FinishedAt:       st.LastExecution,
		}
		if _, err := p.history.RecordRun(ctx, run); err != nil {
			logging.WarnWithContext(p.logger, "failed to record run history", "history_record_failed",
				logging.String(logging.FieldPairID, c.Pair.ID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the state database"),
				logging.String(logging.FieldImpact, "run missing from `mirrorvault history`; live status unaffected"),
			)
		}
	}
	return st, nil
}

func (p *Plane) move(ctx context.Context, fn func(*pairs.Settings) (bool, error)) (any, error) {
	var moved bool
	next, err := p.handle.Update(ctx, func(s *pairs.Settings) error {
		var err error
		moved, err = fn(s)
		return err
	})
	if err != nil {
		return false, err
	}
	if moved {
		p.afterEdit(next)
	}
	return moved, nil
}

func (p *Plane) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := p.notifier.Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		logging.WarnWithContext(p.logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the ntfy topic and network"),
			logging.String(logging.FieldImpact, "event was not delivered"),
		)
	}
}

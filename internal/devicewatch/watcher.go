package devicewatch

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"mirrorvault/internal/config"
	"mirrorvault/internal/logging"
)

// DefaultDebounce collapses the burst of partition events a single drive
// produces into one run.
const DefaultDebounce = 30 * time.Second

// TriggerFunc requests a run. It must not block on the run itself.
type TriggerFunc func(device string) error

// Watcher filters attach events and calls its trigger at most once per
// debounce window.
type Watcher struct {
	subsystem string
	debounce  time.Duration
	trigger   TriggerFunc
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	lastFire time.Time

	platform
}

// New returns nil when attach-triggered runs are disabled.
func New(cfg *config.Config, trigger TriggerFunc, logger *slog.Logger) *Watcher {
	if cfg == nil || !cfg.Devices.RunOnAttach || trigger == nil {
		return nil
	}
	subsystem := strings.TrimSpace(cfg.Devices.Subsystem)
	if subsystem == "" {
		subsystem = "block"
	}
	return &Watcher{
		subsystem: subsystem,
		debounce:  DefaultDebounce,
		trigger:   trigger,
		logger:    logging.NewComponentLogger(logger, "devicewatch"),
		now:       time.Now,
	}
}

// SetDebounce overrides the debounce window.
func (w *Watcher) SetDebounce(d time.Duration) {
	if w == nil || d < 0 {
		return
	}
	w.debounce = d
}

// SetClock overrides the clock used for debouncing.
func (w *Watcher) SetClock(now func() time.Time) {
	if w == nil || now == nil {
		return
	}
	w.now = now
}

// Handle processes one uevent and reports whether a run was triggered.
func (w *Watcher) Handle(action string, env map[string]string) bool {
	if w == nil {
		return false
	}
	if !w.matches(action, env) {
		return false
	}
	device := deviceName(env)

	w.mu.Lock()
	now := w.now()
	if !w.lastFire.IsZero() && now.Sub(w.lastFire) < w.debounce {
		w.mu.Unlock()
		w.logger.Debug("attach event debounced", logging.String("device", device))
		return false
	}
	w.lastFire = now
	w.mu.Unlock()

	w.logger.Info("storage attached; requesting backup run",
		logging.String(logging.FieldEventType, "device_attached"),
		logging.String(logging.FieldTrigger, "device"),
		logging.String("device", device),
	)
	if err := w.trigger(device); err != nil {
		logging.WarnWithContext(w.logger, "device-triggered run not started", "device_trigger_failed",
			logging.String("device", device),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "a run may already be in progress"),
			logging.String(logging.FieldImpact, "attached drive will be mirrored at the next scheduled tick"),
		)
		return false
	}
	return true
}

func (w *Watcher) matches(action string, env map[string]string) bool {
	if !strings.EqualFold(action, "add") {
		return false
	}
	if !strings.EqualFold(env["SUBSYSTEM"], w.subsystem) {
		return false
	}
	// Block devices report a disk and then each partition; only partitions
	// are mountable.
	if w.subsystem == "block" && env["DEVTYPE"] != "partition" {
		return false
	}
	return true
}

func deviceName(env map[string]string) string {
	if name := env["DEVNAME"]; name != "" {
		if !strings.HasPrefix(name, "/") {
			return "/dev/" + name
		}
		return name
	}
	devpath := env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return "/dev/" + parts[len(parts)-1]
}

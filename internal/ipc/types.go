package ipc

import (
	"time"

	"mirrorvault/internal/daemon"
	"mirrorvault/internal/deps"
	"mirrorvault/internal/pairs"
	"mirrorvault/internal/store"
)

// ServiceName is the JSON-RPC receiver name.
const ServiceName = "Mirrorvault"

// PairView is one pair joined with its live status.
type PairView = daemon.PairView

// DependencyStatus describes availability of an external dependency.
type DependencyStatus = deps.Status

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse is the combined process and scheduler state.
type StatusResponse struct {
	Running         bool               `json:"running"`
	PID             int                `json:"pid"`
	DaemonRunning   bool               `json:"daemon_running"`
	ManualRunActive bool               `json:"manual_run_active"`
	WindowVisible   bool               `json:"window_visible"`
	DeviceWatch     bool               `json:"device_watch"`
	Iteration       int                `json:"iteration"`
	LastTick        time.Time          `json:"last_tick,omitzero"`
	NextTick        time.Time          `json:"next_tick,omitzero"`
	IntervalSeconds int                `json:"interval_seconds"`
	Pairs           []PairView         `json:"pairs"`
	DatabasePath    string             `json:"database_path"`
	LockPath        string             `json:"lock_path"`
	LogPath         string             `json:"log_path"`
	Dependencies    []DependencyStatus `json:"dependencies"`
}

// StartRequest starts scheduling.
type StartRequest struct{}

// StartResponse reports whether scheduling changed state.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// PauseRequest stops scheduling without exiting the process.
type PauseRequest struct{}

// PauseResponse reports whether scheduling changed state.
type PauseResponse struct {
	Stopped bool   `json:"stopped"`
	Message string `json:"message"`
}

// ExitRequest shuts the daemon process down.
type ExitRequest struct{}

// ExitResponse acknowledges the exit.
type ExitResponse struct {
	Exiting bool `json:"exiting"`
}

// RunNowRequest runs every enabled pair once.
type RunNowRequest struct{}

// RunNowResponse reports whether the run was started.
type RunNowResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// WindowRequest shows or hides the status window.
type WindowRequest struct {
	Visible bool `json:"visible"`
}

// WindowResponse echoes the new visibility.
type WindowResponse struct {
	Visible bool `json:"visible"`
}

// ListPairsRequest lists pairs with status.
type ListPairsRequest struct{}

// ListPairsResponse contains pairs in stored order.
type ListPairsResponse struct {
	Pairs []PairView `json:"pairs"`
}

// PairRequest adds a pair, or updates the pair at Index.
type PairRequest struct {
	Index       int    `json:"index"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// PairResponse carries the stored pair or the validation messages that
// blocked it.
type PairResponse struct {
	Saved    bool       `json:"saved"`
	Pair     pairs.Pair `json:"pair"`
	Errors   []string   `json:"errors,omitempty"`
	Warnings []string   `json:"warnings,omitempty"`
}

// IndexRequest addresses a pair by position.
type IndexRequest struct {
	Index int `json:"index"`
}

// RemovePairResponse returns the removed pair.
type RemovePairResponse struct {
	Pair pairs.Pair `json:"pair"`
}

// MovePairRequest moves the pair at Index one step.
type MovePairRequest struct {
	Index int  `json:"index"`
	Up    bool `json:"up"`
}

// MovePairResponse reports whether the order changed.
type MovePairResponse struct {
	Moved bool `json:"moved"`
}

// TogglePairRequest enables or disables the pair at Index.
type TogglePairRequest struct {
	Index   int  `json:"index"`
	Enabled bool `json:"enabled"`
}

// TogglePairResponse returns the updated pair.
type TogglePairResponse struct {
	Pair pairs.Pair `json:"pair"`
}

// SettingsRequest fetches the persisted settings.
type SettingsRequest struct{}

// SettingsResponse carries the settings value.
type SettingsResponse struct {
	Settings pairs.Settings `json:"settings"`
}

// UpdateSettingsRequest replaces the whole settings value.
type UpdateSettingsRequest struct {
	Settings pairs.Settings `json:"settings"`
}

// ValidateRequest dry-runs path validation. EditingIndex is -1 for a new pair.
type ValidateRequest struct {
	Source       string `json:"source"`
	Destination  string `json:"destination"`
	EditingIndex int    `json:"editing_index"`
}

// ValidateResponse lists validation messages without changing anything.
type ValidateResponse struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// HistoryRequest lists recorded runs, newest first.
type HistoryRequest struct {
	PairID string `json:"pair_id"`
	Limit  int    `json:"limit"`
}

// HistoryResponse contains recorded runs.
type HistoryResponse struct {
	Runs []store.Run `json:"runs"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64  `json:"offset"`
	Limit      int    `json:"limit"`
	Follow     bool   `json:"follow"`
	WaitMillis int    `json:"wait_millis"`
	Match      string `json:"match"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

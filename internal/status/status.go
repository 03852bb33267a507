// Package status tracks per-pair execution statistics: the current state,
// cumulative execution and success counts, and telemetry from the most
// recent run.
package status

import (
	"fmt"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mirrorvault/internal/mirror"
)

// State is the lifecycle position of a pair.
type State int

const (
	Pending State = iota
	Running
	Success
	Warning
	Failed
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Failed:
		return "failed"
	default:
		return "pending"
	}
}

// Label is the display form used by the CLI and notifications.
func (s State) Label() string {
	return cases.Title(language.English).String(s.String())
}

// MarshalText renders the state name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseState converts a state name back into a State.
func ParseState(value string) (State, error) {
	for _, candidate := range []State{Pending, Running, Success, Warning, Failed} {
		if candidate.String() == value {
			return candidate, nil
		}
	}
	return Pending, fmt.Errorf("unknown state %q", value)
}

// Final reports whether the state ends an execution.
func (s State) Final() bool {
	return s == Success || s == Warning || s == Failed
}

// Update is one state transition reported for a pair.
type Update struct {
	State            State  `json:"state"`
	Message          string `json:"message,omitempty"`
	FilesCopied      int64  `json:"files_copied,omitempty"`
	BytesTransferred int64  `json:"bytes_transferred,omitempty"`
}

// RunningUpdate marks the start of an execution.
func RunningUpdate() Update {
	return Update{State: Running}
}

// FromOutcome converts an executor outcome into a final update.
func FromOutcome(o mirror.Outcome) Update {
	switch o.Kind {
	case mirror.Success:
		return Update{State: Success, Message: o.Message, FilesCopied: o.FilesCopied, BytesTransferred: o.BytesTransferred}
	case mirror.Warning:
		return Update{State: Warning, Message: o.Message}
	default:
		return Update{State: Failed, Message: o.Message}
	}
}

// PairStatus is the execution history of one pair.
type PairStatus struct {
	PairID               string    `json:"pair_id"`
	State                State     `json:"state"`
	Message              string    `json:"message,omitempty"`
	LastExecution        time.Time `json:"last_execution,omitzero"`
	ExecutionCount       int       `json:"execution_count"`
	SuccessCount         int       `json:"success_count"`
	FilesCopiedLast      int64     `json:"files_copied_last"`
	BytesTransferredLast int64     `json:"bytes_transferred_last"`
}

// NewPairStatus returns a Pending status with no history.
func NewPairStatus(pairID string) PairStatus {
	return PairStatus{PairID: pairID, State: Pending}
}

// Apply records u. Running only changes the state; final states count as
// one execution, and Success or Warning also count as a success. Warning
// keeps the previous run's telemetry, Failed clears the file count.
func (p *PairStatus) Apply(u Update, now time.Time) {
	p.State = u.State
	p.Message = u.Message
	if !u.State.Final() {
		return
	}
	p.ExecutionCount++
	p.LastExecution = now
	switch u.State {
	case Success:
		p.SuccessCount++
		p.FilesCopiedLast = u.FilesCopied
		p.BytesTransferredLast = u.BytesTransferred
	case Warning:
		p.SuccessCount++
	case Failed:
		p.FilesCopiedLast = 0
	}
}

// SuccessRate is floor(100 * successes / executions), or 0 before any run.
func (p PairStatus) SuccessRate() int {
	if p.ExecutionCount == 0 {
		return 0
	}
	return p.SuccessCount * 100 / p.ExecutionCount
}

// LastExecutionLabel renders the time since the last execution ("Never",
// "42s", "5m", "3h", "2d").
func (p PairStatus) LastExecutionLabel(now time.Time) string {
	if p.LastExecution.IsZero() {
		return "Never"
	}
	elapsed := now.Sub(p.LastExecution)
	if elapsed < 0 {
		return "now"
	}
	seconds := int64(elapsed / time.Second)
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%dh", seconds/3600)
	default:
		return fmt.Sprintf("%dd", seconds/86400)
	}
}

package notifications

import "fmt"

// Event names a notification the orchestrator can publish.
type Event string

const (
	EventRunSummary    Event = "run_summary"
	EventDaemonStarted Event = "daemon_started"
	EventDaemonStopped Event = "daemon_stopped"
	EventNoPairs       Event = "no_pairs"
	EventLowDiskSpace  Event = "low_disk_space"
	EventError         Event = "error"
	EventTest          Event = "test"
)

// Payload carries event-specific fields.
type Payload map[string]any

func (p Payload) str(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case error:
		return v.Error()
	default:
		return fmt.Sprint(v)
	}
}

func (p Payload) num(key string) int64 {
	if p == nil {
		return 0
	}
	switch v := p[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

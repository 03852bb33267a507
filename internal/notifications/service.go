package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mirrorvault/internal/config"
)

const userAgent = "Mirrorvault-Go/0.1.0"

// Service defines the notification surface exposed to the control plane.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		cfg:      cfg.Notifications,
	}
}

// NewNoop returns a Service that drops every event.
func NewNoop() Service { return noopService{} }

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	cfg      config.Notifications
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled(event) {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventRunSummary:
		return n.cfg.RunSummary
	case EventDaemonStarted, EventDaemonStopped:
		return n.cfg.DaemonState
	case EventNoPairs, EventLowDiskSpace:
		return n.cfg.Advisories
	default:
		return true
	}
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventRunSummary:
		return formatRunSummary(payload), true
	case EventDaemonStarted:
		body := "Daemon started"
		if interval := payload.num("interval_seconds"); interval > 0 {
			body = fmt.Sprintf("Daemon started (interval %s)", (time.Duration(interval) * time.Second).String())
		}
		return message{
			title: "Mirrorvault - Daemon Started",
			body:  body,
			tags:  []string{"mirrorvault", "daemon", "started"},
		}, true
	case EventDaemonStopped:
		return message{
			title: "Mirrorvault - Daemon Stopped",
			body:  "Daemon stopped",
			tags:  []string{"mirrorvault", "daemon", "stopped"},
		}, true
	case EventNoPairs:
		return message{
			title:    "Mirrorvault - Nothing To Do",
			body:     "No backup pairs configured",
			tags:     []string{"mirrorvault", "advisory"},
			priority: "low",
		}, true
	case EventLowDiskSpace:
		return message{
			title: "Mirrorvault - Low Disk Space",
			body: fmt.Sprintf("Destination %s is %d%% full (%s free)",
				payload.str("path"), payload.num("used_percent"), payload.str("free")),
			tags: []string{"mirrorvault", "advisory", "disk"},
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("Error")
		if label := strings.TrimSpace(payload.str("context")); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if errText := strings.TrimSpace(payload.str("error")); errText != "" {
			builder.WriteString(errText)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "Mirrorvault - Error",
			body:     builder.String(),
			tags:     []string{"mirrorvault", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Mirrorvault - Test",
			body:     "Notification system test",
			tags:     []string{"mirrorvault", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

// formatRunSummary renders "Daemon #N: X ok, Y warnings, Z failed" for
// scheduled ticks and "Manual run: ..." otherwise.
func formatRunSummary(payload Payload) message {
	ok := payload.num("ok")
	warnings := payload.num("warnings")
	failed := payload.num("failed")

	prefix := "Manual run"
	if payload.str("trigger") == "schedule" {
		prefix = fmt.Sprintf("Daemon #%d", payload.num("iteration"))
	} else if trigger := payload.str("trigger"); trigger != "" && trigger != "manual" {
		prefix = fmt.Sprintf("%s run", cases.Title(language.English).String(trigger))
	}
	body := fmt.Sprintf("%s: %d ok, %d warnings, %d failed", prefix, ok, warnings, failed)
	if d := payload.str("duration"); d != "" {
		body += " in " + d
	}

	msg := message{body: body}
	switch {
	case failed > 0:
		msg.title = "Mirrorvault - Backup Failed"
		msg.tags = []string{"mirrorvault", "run", "failed"}
		msg.priority = "high"
	case warnings > 0:
		msg.title = "Mirrorvault - Backup Warnings"
		msg.tags = []string{"mirrorvault", "run", "warning"}
	default:
		msg.title = "Mirrorvault - Backup Complete"
		msg.tags = []string{"mirrorvault", "run", "success"}
	}
	return msg
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

package daemon

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"mirrorvault/internal/status"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestLogPresenterRecordsVisibilityAndFinalStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	p := newLogPresenter(logger)

	p.WindowVisibilityChanged(true)

	st := status.NewPairStatus("pair-1")
	st.Apply(status.RunningUpdate(), time.Now())
	p.StatusChanged(st)

	st.Apply(status.Update{State: status.Success, FilesCopied: 4, BytesTransferred: 2048}, time.Now())
	p.StatusChanged(st)

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 info entries (running is debug), got %d: %s", len(entries), buf.String())
	}
	if entries[0]["event_type"] != "window_visibility" || entries[0]["visible"] != true {
		t.Fatalf("visibility entry = %v", entries[0])
	}
	if entries[0]["component"] != "presenter" {
		t.Fatalf("component = %v", entries[0]["component"])
	}
	final := entries[1]
	if final["pair_id"] != "pair-1" || final["state"] != status.Success.String() {
		t.Fatalf("status entry = %v", final)
	}
	if final["files_copied"] != float64(4) || final["success_rate"] != float64(100) {
		t.Fatalf("status counters = %v", final)
	}
}

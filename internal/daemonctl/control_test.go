package daemonctl_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"mirrorvault/internal/daemonctl"
	"mirrorvault/internal/ipc"
	"mirrorvault/internal/testsupport"
)

func TestBuildDependencySummary(t *testing.T) {
	tests := []struct {
		name     string
		deps     []ipc.DependencyStatus
		severity string
		detail   string
	}{
		{name: "none", severity: "info", detail: "No dependency checks configured"},
		{name: "all present", deps: []ipc.DependencyStatus{{Name: "robocopy", Available: true}}, severity: "ok", detail: "1/1 available"},
		{
			name:     "required missing",
			deps:     []ipc.DependencyStatus{{Name: "robocopy"}, {Name: "extra", Optional: true, Available: true}},
			severity: "error",
			detail:   "1/2 available (missing: 1 required, 0 optional)",
		},
		{
			name:     "optional missing",
			deps:     []ipc.DependencyStatus{{Name: "robocopy", Available: true}, {Name: "extra", Optional: true}},
			severity: "warn",
			detail:   "1/2 available (missing: 0 required, 1 optional)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := daemonctl.BuildDependencySummary(tt.deps)
			if got.Severity != tt.severity || got.Detail != tt.detail {
				t.Fatalf("summary = %+v", got)
			}
		})
	}
}

func TestBuildSystemChecksOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lines := daemonctl.BuildSystemChecks(cfg, ipc.StatusResponse{}, false)
	if lines[0].Label != "Mirrorvault" || lines[0].Severity != "warn" {
		t.Fatalf("first line = %+v", lines[0])
	}
	for _, line := range lines {
		if line.Label == "Scheduling" {
			t.Fatal("scheduling line should be omitted while offline")
		}
	}
}

func TestBuildSystemChecksRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic("backups"))
	lines := daemonctl.BuildSystemChecks(cfg, ipc.StatusResponse{Running: true, PID: 42, DaemonRunning: true, IntervalSeconds: 3600}, true)
	want := map[string]string{
		"Mirrorvault":   "Running (pid 42)",
		"Scheduling":    "Active, every 1h0m0s",
		"Notifications": "Configured",
	}
	for _, line := range lines {
		if detail, ok := want[line.Label]; ok {
			if line.Detail != detail {
				t.Fatalf("%s detail = %q, want %q", line.Label, line.Detail, detail)
			}
			delete(want, line.Label)
		}
	}
	if len(want) != 0 {
		t.Fatalf("missing lines: %v", want)
	}
}

func TestBuildStatusSnapshotOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	snap, err := daemonctl.BuildStatusSnapshot(context.Background(), filepath.Join(t.TempDir(), "none.sock"), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if snap.Reachable {
		t.Fatal("expected unreachable daemon")
	}
	if snap.Status.IntervalSeconds == 0 {
		t.Fatal("expected interval loaded from the database")
	}
	if len(snap.Status.Dependencies) != 1 || !snap.Status.Dependencies[0].Available {
		t.Fatalf("expected stubbed tool to be available: %+v", snap.Status.Dependencies)
	}
	if snap.DependencySummary.Severity != "ok" {
		t.Fatalf("dependency summary = %+v", snap.DependencySummary)
	}
}

func TestStopAndTerminateNotRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := daemonctl.StopAndTerminate(filepath.Join(t.TempDir(), "none.sock"), cfg, 0)
	if !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestReadPID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mirrorvault.pid")

	if pid, err := daemonctl.ReadPID(path); err != nil || pid != 0 {
		t.Fatalf("missing file = %d, %v", pid, err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(1234)+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if pid, err := daemonctl.ReadPID(path); err != nil || pid != 1234 {
		t.Fatalf("pid = %d, %v", pid, err)
	}
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if pid, err := daemonctl.ReadPID(path); err != nil || pid != 0 {
		t.Fatalf("garbage pid = %d, %v", pid, err)
	}
}

func TestForceKillRefusesSelf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirrorvault.pid")
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := daemonctl.ForceKillProcess(path, "", 0); err == nil {
		t.Fatal("expected refusal to kill the current process")
	}
}

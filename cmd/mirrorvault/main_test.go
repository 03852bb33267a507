package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mirrorvault/internal/ipc"
	"mirrorvault/internal/store"
	"mirrorvault/internal/testsupport"
)

func TestCLIPairCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	base := t.TempDir()
	docsSrc, docsDst := testsupport.PairDirs(t, base, "docs")
	photosSrc, photosDst := testsupport.PairDirs(t, base, "photos")

	requireContains(t, env.run(t, "pair", "list"), "No backup pairs configured")
	requireContains(t, env.run(t, "pair", "add", docsSrc, docsDst), "Added src → dst")
	env.run(t, "pair", "add", photosSrc, photosDst)

	out, _, err := runCLI(t, []string{"pair", "add", docsSrc, docsSrc}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected identical source and destination to be rejected")
	}
	requireContains(t, out, "error:")

	out = env.run(t, "pair", "list", "--json")
	var views []ipc.PairView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode pair list: %v\n%s", err, out)
	}
	if len(views) != 2 || views[0].Pair.Source != docsSrc || views[1].Pair.Source != photosSrc {
		t.Fatalf("unexpected pairs: %+v", views)
	}
	if views[0].LastRun != "Never" || views[0].Status.State.String() != "pending" {
		t.Fatalf("new pair should be pending: %+v", views[0])
	}

	requireContains(t, env.run(t, "pair", "up", "2"), "Moved pair 2 up")
	requireContains(t, env.run(t, "pair", "up", "1"), "already first")
	requireContains(t, env.run(t, "pair", "disable", "1"), "enabled=no")

	out = env.run(t, "pair", "list")
	photosRow := strings.Index(out, photosSrc)
	docsRow := strings.Index(out, docsSrc)
	if photosRow < 0 || docsRow < 0 || photosRow > docsRow {
		t.Fatalf("expected photos pair listed first:\n%s", out)
	}

	requireContains(t, env.run(t, "pair", "preview", "2"), "/MIR")
	requireContains(t, env.run(t, "pair", "validate", docsSrc, filepath.Join(base, "other")), "Paths are valid")

	out = env.run(t, "pair", "update", "2", docsSrc, filepath.Join(base, "docs-new"))
	requireContains(t, out, "Updated src → docs-new")

	requireContains(t, env.run(t, "pair", "remove", "1"), "Removed")
	if got := len(env.daemon.Settings().Pairs); got != 1 {
		t.Fatalf("expected 1 pair after removal, got %d", got)
	}

	if _, _, err := runCLI(t, []string{"pair", "remove", "9"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected out-of-range position to fail")
	}
	if _, _, err := runCLI(t, []string{"pair", "remove", "zero"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected invalid position to fail")
	}
}

func TestCLISettingsCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	requireContains(t, env.run(t, "settings", "show"), "Check interval:")

	out := env.run(t, "settings", "set", "--interval", "30m", "--threads", "16", "--mirror-mode=false")
	requireContains(t, out, "Settings saved")
	requireContains(t, out, "30m0s")

	settings := env.daemon.Settings()
	if settings.CheckIntervalSeconds != 1800 || settings.Tool.Threads != 16 || settings.Tool.MirrorMode {
		t.Fatalf("settings not applied: %+v", settings)
	}
	if settings.Tool.RetryCount != 3 {
		t.Fatalf("unchanged options must be preserved, got retry count %d", settings.Tool.RetryCount)
	}

	if _, _, err := runCLI(t, []string{"settings", "set", "--threads", "0"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected invalid thread count to be rejected")
	}
	if _, _, err := runCLI(t, []string{"settings", "set"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected an error without any flags")
	}
}

func TestCLIRunStatusAndHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	src, dst := testsupport.PairDirs(t, t.TempDir(), "docs")
	env.run(t, "pair", "add", src, dst)

	requireContains(t, env.run(t, "run"), "Backup run started")

	var runs []store.Run
	waitFor(t, 5*time.Second, func() bool {
		out, _, err := runCLI(t, []string{"history", "--json"}, env.socketPath, env.configPath)
		if err != nil {
			return false
		}
		runs = nil
		return json.Unmarshal([]byte(out), &runs) == nil && len(runs) > 0
	})
	if runs[0].Outcome != "success" || runs[0].Trigger != "manual" || runs[0].FilesCopied != 3 {
		t.Fatalf("unexpected run: %+v", runs[0])
	}

	out := env.run(t, "history", "--pair", "1")
	requireContains(t, out, "success")
	requireContains(t, out, "4.0 KiB")

	out = env.run(t, "status")
	requireContains(t, out, "System Status")
	requireContains(t, out, "Paused")
	requireContains(t, out, "Backup Pairs")
	requireContains(t, out, "100% success")

	requireContains(t, env.run(t, "start"), "Scheduling started")
	requireContains(t, env.run(t, "start"), "Scheduling already running")
	waitFor(t, 5*time.Second, func() bool {
		return env.daemon.View().DaemonRunning
	})
	requireContains(t, env.run(t, "pause"), "Scheduling paused")
	requireContains(t, env.run(t, "pause"), "not running")
}

func TestCLIWindowCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	requireContains(t, env.run(t, "window", "show"), "Status window visible")
	if !env.daemon.View().WindowVisible {
		t.Fatal("expected window visible")
	}
	requireContains(t, env.run(t, "window", "hide"), "Status window hidden")
	if _, _, err := runCLI(t, []string{"window", "maximize"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected unknown window action to fail")
	}
}

func TestCLILogsCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	for _, line := range []string{"first pair=a", "second pair=b", "third pair=a"} {
		if err := appendLine(env.logPath, line); err != nil {
			t.Fatalf("append log: %v", err)
		}
	}

	out := env.run(t, "logs", "--lines", "2")
	if strings.Contains(out, "first") || !strings.Contains(out, "second") || !strings.Contains(out, "third") {
		t.Fatalf("unexpected logs output: %q", out)
	}

	out = env.run(t, "logs", "--lines", "0", "--match", "pair=a")
	if !strings.Contains(out, "first") || strings.Contains(out, "second") {
		t.Fatalf("unexpected filtered output: %q", out)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cmd := newRootCommand()
	stdout := &syncBuffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(&syncBuffer{})
	cmd.SetArgs([]string{"--socket", env.socketPath, "--config", env.configPath, "logs", "--follow"})
	cmd.SetContext(ctx)

	done := make(chan error, 1)
	go func() { done <- cmd.Execute() }()

	time.Sleep(100 * time.Millisecond)
	if err := appendLine(env.logPath, "followed"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	waitFor(t, 3*time.Second, func() bool { return strings.Contains(stdout.String(), "followed") })
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("logs --follow: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("logs --follow did not exit")
	}
}

func TestCLITestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	requireContains(t, env.run(t, "test-notify"), "ntfy topic not configured")
}

func TestCLIWithoutDaemon(t *testing.T) {
	_, configPath := newTestConfig(t)
	socket := shortSocketPath(t)

	_, _, err := runCLI(t, []string{"pair", "list"}, socket, configPath)
	if err == nil || !strings.Contains(err.Error(), "mirrorvault start") {
		t.Fatalf("expected start hint, got %v", err)
	}

	out, _, err := runCLI(t, []string{"stop"}, socket, configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")

	out, _, err = runCLI(t, []string{"status"}, socket, configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Not running")
	requireContains(t, out, "No backup pairs configured")
}

func TestConfigImportWithoutDaemon(t *testing.T) {
	cfg, configPath := newTestConfig(t)
	legacyPath := filepath.Join(t.TempDir(), "config.json")
	legacy := `{"backup_pairs": [], "source_folder": "/data/docs", "destination_folder": "/backup/docs",
		"check_interval_seconds": 900, "start_with_windows": false,
		"robocopy": {"mirror_mode": true, "multithreading": 4, "fat_file_timing": true, "retry_count": 1, "retry_wait": 5}}`
	if err := os.WriteFile(legacyPath, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, []string{"config", "import", legacyPath}, shortSocketPath(t), configPath)
	if err != nil {
		t.Fatalf("config import: %v\n%s", err, out)
	}
	requireContains(t, out, "Migrated single source/destination folder")
	requireContains(t, out, "Imported 1 backup pairs")

	st := testsupport.MustOpenStore(t, cfg)
	settings, created, err := st.LoadSettings(context.Background(), cfg.SeedSettings())
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if created {
		t.Fatal("expected imported settings to be persisted")
	}
	if len(settings.Pairs) != 1 || settings.Pairs[0].Source != "/data/docs" {
		t.Fatalf("pairs = %+v", settings.Pairs)
	}
	if settings.CheckIntervalSeconds != 900 || settings.Tool.Threads != 4 {
		t.Fatalf("settings = %+v", settings)
	}
}

func TestConfigImportThroughDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	legacyPath := filepath.Join(t.TempDir(), "config.json")
	legacy := `{"backup_pairs": [{"id": "a1", "source": "/x", "destination": "/y", "enabled": true}], "check_interval_seconds": 120}`
	if err := os.WriteFile(legacyPath, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	requireContains(t, env.run(t, "config", "import", legacyPath), "Imported 1 backup pairs")
	settings := env.daemon.Settings()
	if len(settings.Pairs) != 1 || settings.Pairs[0].ID != "a1" || settings.CheckIntervalSeconds != 120 {
		t.Fatalf("daemon settings = %+v", settings)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}

	_, configPath := newTestConfig(t)
	out, _, err = runCLI(t, []string{"config", "validate"}, "", configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "mirrorvault.db")
}

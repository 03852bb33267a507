package deps

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected blank command status: %#v", results[2])
	}
}

func TestResolveMirrorToolOnPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stub")
	}
	binDir := t.TempDir()
	toolPath := filepath.Join(binDir, "robocopy")
	if err := os.WriteFile(toolPath, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("PATH", binDir)

	status := ResolveMirrorTool("robocopy")
	if !status.Available {
		t.Fatalf("expected tool to resolve, got detail %q", status.Detail)
	}
	if status.Command != toolPath {
		t.Fatalf("expected command %q, got %q", toolPath, status.Command)
	}
}

func TestResolveMirrorToolNotFound(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("System32 fallback may find robocopy")
	}
	t.Setenv("PATH", "")
	status := ResolveMirrorTool("robocopy")
	if status.Available {
		t.Fatal("expected resolution to fail")
	}
	if status.Detail == "" || status.Command != "robocopy" {
		t.Fatalf("unexpected status %#v", status)
	}
	if got := ResolveMirrorTool(""); got.Available || got.Detail != "command not configured" {
		t.Fatalf("unexpected status for empty binary %#v", got)
	}
}

func TestIsExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits")
	}
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain")
	if err := os.WriteFile(plain, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	info, _ := os.Stat(plain)
	if isExecutable(info) {
		t.Fatal("0644 file should not be executable")
	}
	dirInfo, _ := os.Stat(dir)
	if isExecutable(dirInfo) {
		t.Fatal("directory should not be executable")
	}
}

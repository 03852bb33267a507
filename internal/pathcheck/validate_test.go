package pathcheck_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"mirrorvault/internal/pairs"
	"mirrorvault/internal/pathcheck"
)

func mkdir(t *testing.T, parts ...string) string {
	t.Helper()
	dir := filepath.Join(parts...)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	return dir
}

func TestValidateSourceRules(t *testing.T) {
	root := t.TempDir()
	dir := mkdir(t, root, "src")
	file := filepath.Join(root, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	dest := filepath.Join(root, "dest")

	tests := []struct {
		name   string
		source string
		level  pathcheck.Level
		substr string
	}{
		{"empty", "  ", pathcheck.Error, "empty"},
		{"forbidden char", filepath.Join(root, "a?b"), pathcheck.Error, "'?'"},
		{"pipe", "C:\\data|x", pathcheck.Error, "'|'"},
		{"misplaced colon", "/data:/x", pathcheck.Error, "':'"},
		{"unc", `\\nas\share\docs`, pathcheck.Warning, "network path"},
		{"unc forward slashes", "//nas/share", pathcheck.Warning, "network path"},
		{"malformed unc", `\\nas`, pathcheck.Error, `\\server\share`},
		{"missing", filepath.Join(root, "missing"), pathcheck.Error, "does not exist"},
		{"file", file, pathcheck.Error, "must be a directory"},
		{"critical", "/etc", pathcheck.Warning, "system directory"},
		{"ok", dir, pathcheck.Valid, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.name == "critical" && runtime.GOOS == "windows" {
				t.Skip("unix critical path")
			}
			report := pathcheck.Validate(tt.source, dest, nil, pathcheck.NoEditing)
			if report.Source.Level != tt.level {
				t.Fatalf("source level = %s (%q), want %s", report.Source.Level, report.Source.Message, tt.level)
			}
			if !strings.Contains(report.Source.Message, tt.substr) {
				t.Fatalf("message %q missing %q", report.Source.Message, tt.substr)
			}
		})
	}
}

func TestDriveLetterColonAllowed(t *testing.T) {
	report := pathcheck.Validate(`C:\Users\docs`, `D:\Backup`, nil, pathcheck.NoEditing)
	for _, r := range []pathcheck.Result{report.Source, report.Destination} {
		if strings.Contains(r.Message, "':'") || strings.Contains(r.Message, "invalid character") {
			t.Fatalf("drive letter rejected: %s", r)
		}
	}
}

func TestValidateDestinationRules(t *testing.T) {
	root := t.TempDir()
	src := mkdir(t, root, "src")
	existing := mkdir(t, root, "existing")
	file := filepath.Join(root, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tests := []struct {
		name   string
		dest   string
		level  pathcheck.Level
		substr string
	}{
		{"empty", "", pathcheck.Error, "empty"},
		{"forbidden char", filepath.Join(root, "out*"), pathcheck.Error, "'*'"},
		{"unc", `\\nas\backups`, pathcheck.Warning, "network path"},
		{"exists as file", file, pathcheck.Error, "not a directory"},
		{"missing parent", filepath.Join(root, "nope", "deeper"), pathcheck.Error, "parent directory does not exist"},
		{"absent with parent", filepath.Join(root, "new"), pathcheck.Valid, ""},
		{"existing dir", existing, pathcheck.Valid, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := pathcheck.Validate(src, tt.dest, nil, pathcheck.NoEditing)
			if report.Destination.Level != tt.level {
				t.Fatalf("destination level = %s (%q), want %s", report.Destination.Level, report.Destination.Message, tt.level)
			}
			if !strings.Contains(report.Destination.Message, tt.substr) {
				t.Fatalf("message %q missing %q", report.Destination.Message, tt.substr)
			}
		})
	}
}

func TestWriteProbeLeavesNoArtifacts(t *testing.T) {
	root := t.TempDir()
	src := mkdir(t, root, "src")
	dest := mkdir(t, root, "dest")

	report := pathcheck.Validate(src, dest, nil, pathcheck.NoEditing)
	if !report.IsValid() {
		t.Fatalf("expected valid report, got %+v", report)
	}
	for _, dir := range []string{root, dest} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("read dir: %v", err)
		}
		for _, entry := range entries {
			if strings.HasPrefix(entry.Name(), ".mirrorvault-write-test") {
				t.Fatalf("probe file left behind in %s: %s", dir, entry.Name())
			}
		}
	}
}

func TestUnwritableDestination(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits not enforced")
	}
	root := t.TempDir()
	src := mkdir(t, root, "src")
	locked := mkdir(t, root, "locked")
	if err := os.Chmod(locked, 0o555); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	report := pathcheck.Validate(src, locked, nil, pathcheck.NoEditing)
	if !report.Destination.IsError() {
		t.Fatalf("expected write permission error, got %s", report.Destination)
	}
	report = pathcheck.Validate(src, filepath.Join(locked, "child"), nil, pathcheck.NoEditing)
	if !report.Destination.IsError() {
		t.Fatalf("expected parent write permission error, got %s", report.Destination)
	}
}

func TestCrossCheckNesting(t *testing.T) {
	root := t.TempDir()
	parent := mkdir(t, root, "data")
	child := mkdir(t, root, "data", "backup")
	sibling := mkdir(t, root, "mirror")

	tests := []struct {
		name  string
		src   string
		dst   string
		level pathcheck.Level
	}{
		{"identical", parent, parent, pathcheck.Error},
		{"identical after clean", parent + "/", parent, pathcheck.Error},
		{"destination inside source", parent, child, pathcheck.Error},
		{"source inside destination", child, parent, pathcheck.Error},
		{"siblings", parent, sibling, pathcheck.Valid},
		{"nested but destination absent", parent, filepath.Join(parent, "later"), pathcheck.Valid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := pathcheck.Validate(tt.src, tt.dst, nil, pathcheck.NoEditing)
			if report.Cross.Level != tt.level {
				t.Fatalf("cross level = %s (%q), want %s", report.Cross.Level, report.Cross.Message, tt.level)
			}
		})
	}
}

func TestCrossCheckResolvesSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	root := t.TempDir()
	real := mkdir(t, root, "real")
	inner := mkdir(t, root, "real", "inner")
	link := filepath.Join(root, "link")
	if err := os.Symlink(real, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}
	report := pathcheck.Validate(link, inner, nil, pathcheck.NoEditing)
	if !report.Cross.IsError() {
		t.Fatalf("expected nesting through symlink to be an error, got %s", report.Cross)
	}
}

func TestCrossCheckDuplicates(t *testing.T) {
	existing := []pairs.Pair{
		{ID: "a", Source: "/data/docs", Destination: "/backup/docs", Enabled: true},
		{ID: "b", Source: "/data/photos", Destination: "/backup/photos", Enabled: true},
	}

	sharedFirst := []pairs.Pair{
		{ID: "c", Source: "/data/docs", Destination: "/usb/docs", Enabled: true},
		{ID: "d", Source: "/data/docs", Destination: "/backup/docs", Enabled: true},
	}

	tests := []struct {
		name     string
		src      string
		dst      string
		editing  int
		level    pathcheck.Level
		substr   string
		existing []pairs.Pair
	}{
		{"exact duplicate", "/data/docs", "/backup/docs", pathcheck.NoEditing, pathcheck.Error, "already exists", nil},
		{"exact duplicate of edited pair", "/data/docs", "/backup/docs", 0, pathcheck.Valid, "", nil},
		{"shared source", "/data/docs", "/usb/docs", pathcheck.NoEditing, pathcheck.Warning, "/backup/docs", nil},
		{"shared destination", "/data/music", "/backup/photos", pathcheck.NoEditing, pathcheck.Warning, "/data/photos", nil},
		{"source is existing destination", "/backup/docs", "/usb/docs", pathcheck.NoEditing, pathcheck.Warning, "/data/docs", nil},
		{"unrelated", "/data/music", "/backup/music", pathcheck.NoEditing, pathcheck.Valid, "", nil},
		{"exact duplicate behind shared source", "/data/docs", "/backup/docs", pathcheck.NoEditing, pathcheck.Error, "already exists", sharedFirst},
		{"editing the exact duplicate", "/data/docs", "/backup/docs", 1, pathcheck.Warning, "/usb/docs", sharedFirst},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list := existing
			if tt.existing != nil {
				list = tt.existing
			}
			report := pathcheck.Validate(tt.src, tt.dst, list, tt.editing)
			if report.Cross.Level != tt.level {
				t.Fatalf("cross level = %s (%q), want %s", report.Cross.Level, report.Cross.Message, tt.level)
			}
			if !strings.Contains(report.Cross.Message, tt.substr) {
				t.Fatalf("message %q missing %q", report.Cross.Message, tt.substr)
			}
		})
	}
}

func TestPreProbeErrorsAreDeterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		a := pathcheck.Validate("/x<y", "/x<y", nil, pathcheck.NoEditing)
		b := pathcheck.Validate("/x<y", "/x<y", nil, pathcheck.NoEditing)
		if a != b {
			t.Fatalf("reports differ: %+v vs %+v", a, b)
		}
		if !a.Source.IsError() || !a.Cross.IsError() {
			t.Fatalf("expected errors, got %+v", a)
		}
	}
}

func TestReportMessages(t *testing.T) {
	report := pathcheck.Validate("", `\\nas\share`, nil, pathcheck.NoEditing)
	if !report.HasErrors() || report.IsValid() {
		t.Fatalf("expected errors, got %+v", report)
	}
	errs := report.Errors()
	if len(errs) != 1 || !strings.HasPrefix(errs[0], "source: ") {
		t.Fatalf("unexpected errors %v", errs)
	}
	warns := report.Warnings()
	if len(warns) != 1 || !strings.HasPrefix(warns[0], "destination: ") {
		t.Fatalf("unexpected warnings %v", warns)
	}
	if !strings.Contains(report.Summary(), "empty") {
		t.Fatalf("summary should prefer errors: %q", report.Summary())
	}
}

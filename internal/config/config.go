package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Mirror configures how the external mirroring tool is invoked.
type Mirror struct {
	Binary               string `toml:"binary"`
	MaxSleepSliceSeconds int    `toml:"max_sleep_slice_seconds"`
}

// Defaults seeds the persisted pair settings the first time the state
// database is created. Later edits go through the daemon, not this file.
type Defaults struct {
	CheckIntervalSeconds int  `toml:"check_interval_seconds"`
	MirrorMode           bool `toml:"mirror_mode"`
	Threads              int  `toml:"threads"`
	FatFileTiming        bool `toml:"fat_file_timing"`
	RetryCount           int  `toml:"retry_count"`
	RetryWaitSeconds     int  `toml:"retry_wait_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RunSummary     bool   `toml:"run_summary"`
	DaemonState    bool   `toml:"daemon_state"`
	Advisories     bool   `toml:"advisories"`
}

// Devices controls the removable-media trigger.
type Devices struct {
	RunOnAttach bool   `toml:"run_on_attach"`
	Subsystem   string `toml:"subsystem"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates the process-level configuration for mirrorvault.
//
// Configuration sections by subsystem:
//   - Paths: state and log directories, API bind address
//   - Mirror: tool binary and scheduler sleep granularity
//   - Defaults: seed values for the persisted pair settings
//   - Notifications: ntfy push notification settings
//   - Devices: run-on-attach trigger
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Mirror        Mirror        `toml:"mirror"`
	Defaults      Defaults      `toml:"defaults"`
	Notifications Notifications `toml:"notifications"`
	Devices       Devices       `toml:"devices"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mirrorvault.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// MirrorBinary returns the mirroring tool executable name.
func (c *Config) MirrorBinary() string {
	if c == nil || strings.TrimSpace(c.Mirror.Binary) == "" {
		return defaultMirrorBinary
	}
	return c.Mirror.Binary
}

// SleepSlice is the longest uninterrupted sleep the scheduler may take.
func (c *Config) SleepSlice() time.Duration {
	if c == nil || c.Mirror.MaxSleepSliceSeconds <= 0 {
		return maxSleepSliceSeconds * time.Second
	}
	return time.Duration(c.Mirror.MaxSleepSliceSeconds) * time.Second
}

// DatabasePath is the SQLite file holding pair settings and run history.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "mirrorvault.db")
}

// SocketPath is the unix socket the daemon serves JSON-RPC on.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "mirrorvault.sock")
}

// LockPath is the flock file guarding the single daemon instance.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "mirrorvault.lock")
}

// PIDPath records the daemon process id.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "mirrorvault.pid")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

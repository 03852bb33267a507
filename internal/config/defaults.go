package config

import "mirrorvault/internal/pairs"

const (
	defaultConfigPath           = "~/.config/mirrorvault/config.toml"
	defaultStateDir             = "~/.local/share/mirrorvault"
	defaultLogDir               = "~/.local/share/mirrorvault/logs"
	defaultLogRetentionDays     = 30
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultAPIBind              = "127.0.0.1:7490"
	defaultMirrorBinary         = "robocopy"
	maxSleepSliceSeconds        = 60
	defaultCheckIntervalSeconds = 3600
	defaultThreads              = 8
	defaultRetryCount           = 3
	defaultRetryWaitSeconds     = 2
	defaultNotifyRequestTimeout = 10
	defaultDeviceSubsystem      = "block"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Mirror: Mirror{
			Binary:               defaultMirrorBinary,
			MaxSleepSliceSeconds: maxSleepSliceSeconds,
		},
		Defaults: Defaults{
			CheckIntervalSeconds: defaultCheckIntervalSeconds,
			MirrorMode:           true,
			Threads:              defaultThreads,
			FatFileTiming:        true,
			RetryCount:           defaultRetryCount,
			RetryWaitSeconds:     defaultRetryWaitSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			RunSummary:     true,
			DaemonState:    true,
			Advisories:     true,
		},
		Devices: Devices{
			Subsystem: defaultDeviceSubsystem,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

// SeedSettings builds the initial persisted settings from the [defaults]
// section. It carries no pairs.
func (c *Config) SeedSettings() pairs.Settings {
	d := c.Defaults
	return pairs.Settings{
		CheckIntervalSeconds: d.CheckIntervalSeconds,
		Tool: pairs.ToolOptions{
			MirrorMode:       d.MirrorMode,
			Threads:          d.Threads,
			FatFileTiming:    d.FatFileTiming,
			RetryCount:       d.RetryCount,
			RetryWaitSeconds: d.RetryWaitSeconds,
		},
	}
}

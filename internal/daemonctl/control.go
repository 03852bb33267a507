package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"mirrorvault/internal/config"
	"mirrorvault/internal/daemon"
	"mirrorvault/internal/ipc"
	"mirrorvault/internal/preflight"
	"mirrorvault/internal/store"
)

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	// StartScheduling passes --start-daemon so scheduling begins at launch.
	StartScheduling bool
	LogLevel        string
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
	StartStateRequested      StartState = "start_requested"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State    StartState
	Launched bool
	Message  string
}

// ErrDaemonNotRunning indicates daemon IPC is unavailable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// Launch starts a detached mirrorvault daemon process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"daemon"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if opts.StartScheduling {
		args = append(args, "--start-daemon")
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	detach(proc)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForClient waits for IPC socket availability and returns a connected client.
func WaitForClient(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			return client, nil
		}
		lastErr = err
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted launches the process if needed, then starts scheduling.
func EnsureStarted(socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	client, err := ipc.Dial(socketPath)
	launched := false
	if err != nil {
		opts.StartScheduling = true
		if launchErr := Launch(executablePath, opts); launchErr != nil {
			return StartResult{}, launchErr
		}
		client, err = WaitForClient(socketPath, waitTimeout)
		if err != nil {
			return StartResult{}, err
		}
		launched = true
	}
	defer client.Close()

	resp, err := client.Start()
	if err != nil {
		return StartResult{}, err
	}
	message := strings.TrimSpace(resp.Message)
	switch {
	case resp.Started:
		return StartResult{State: StartStateStarted, Launched: launched, Message: message}, nil
	case launched:
		// --start-daemon already started scheduling before our request.
		return StartResult{State: StartStateStarted, Launched: true, Message: message}, nil
	case message != "":
		return StartResult{State: StartStateAlreadyRunning, Message: message}, nil
	}
	return StartResult{State: StartStateRequested, Launched: launched, Message: "Start request sent"}, nil
}

// WaitForShutdown waits for daemon IPC to disappear.
func WaitForShutdown(socketPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err != nil {
			if isDaemonUnavailable(err) {
				return nil
			}
			lastErr = err
			time.Sleep(200 * time.Millisecond)
			continue
		}
		_, statusErr := client.Status()
		_ = client.Close()
		if statusErr != nil {
			lastErr = statusErr
		} else {
			lastErr = fmt.Errorf("daemon still running")
		}
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for shutdown")
	}
	return fmt.Errorf("daemon did not stop: %w", lastErr)
}

// ProcessInfo returns whether daemon IPC is reachable and the daemon PID when available.
func ProcessInfo(socketPath string) (bool, int, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	defer client.Close()
	status, statusErr := client.Status()
	if statusErr != nil {
		return true, 0, statusErr
	}
	return true, status.PID, nil
}

// ReadPID parses the pid file; zero means no usable pid was recorded.
func ReadPID(pidPath string) (int, error) {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read daemon pid file %q: %w", pidPath, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, nil
	}
	return pid, nil
}

// ForceKillProcess kills the daemon process and cleans pid/lock files.
func ForceKillProcess(pidPath, lockPath string, fallbackPID int) (int, error) {
	pid, err := ReadPID(pidPath)
	if err != nil {
		return 0, err
	}
	if pid == 0 {
		pid = fallbackPID
	}
	if pid <= 0 {
		return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("locate daemon process %d: %w", pid, err)
	}
	if err := proc.Kill(); err != nil {
		return 0, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	if lockPath != "" {
		_ = os.Remove(lockPath)
	}
	return pid, nil
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	ExitAcknowledged bool
	ForcedKill       bool
	PID              int
}

// RestartResult captures stop/start outcomes for daemon restart.
type RestartResult struct {
	WasRunning bool
	Stop       StopResult
	Start      StartResult
}

// StopAndTerminate asks the daemon to exit and force-kills the process if it
// is still alive after gracePeriod. An in-flight tool invocation finishes
// before a graceful exit completes.
func StopAndTerminate(socketPath string, cfg *config.Config, gracePeriod time.Duration) (StopResult, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}
	pid := 0
	if statusResp, statusErr := client.Status(); statusErr == nil {
		pid = statusResp.PID
	}
	result := StopResult{PID: pid}

	exitDone := make(chan bool, 1)
	go func() {
		resp, err := client.Exit()
		exitDone <- err == nil && resp != nil && resp.Exiting
	}()
	select {
	case result.ExitAcknowledged = <-exitDone:
	case <-time.After(gracePeriod):
	}
	_ = client.Close()

	_ = WaitForShutdown(socketPath, gracePeriod)
	alive, livePID, aliveErr := ProcessInfo(socketPath)
	if aliveErr != nil || !alive {
		return result, nil
	}
	if livePID == 0 {
		livePID = pid
	}
	if cfg == nil {
		return result, fmt.Errorf("unable to locate daemon state directory")
	}
	killedPID, killErr := ForceKillProcess(cfg.PIDPath(), cfg.LockPath(), livePID)
	if killErr != nil {
		return result, fmt.Errorf("failed to stop daemon process: %w", killErr)
	}
	_ = os.Remove(socketPath)
	result.ForcedKill = true
	result.PID = killedPID
	return result, nil
}

// Restart stops the daemon if running, then ensures it is started.
func Restart(socketPath string, cfg *config.Config, executablePath string, opts LaunchOptions, stopGracePeriod, startWaitTimeout time.Duration) (RestartResult, error) {
	stopResult, stopErr := StopAndTerminate(socketPath, cfg, stopGracePeriod)
	if stopErr != nil && !errors.Is(stopErr, ErrDaemonNotRunning) {
		return RestartResult{}, stopErr
	}

	startResult, err := EnsureStarted(socketPath, executablePath, opts, startWaitTimeout)
	if err != nil {
		return RestartResult{}, err
	}

	return RestartResult{
		WasRunning: stopErr == nil,
		Stop:       stopResult,
		Start:      startResult,
	}, nil
}

// StatusLine is one labelled row of the status report.
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// Snapshot is the status report rendered by `mirrorvault status`.
type Snapshot struct {
	Status            ipc.StatusResponse `json:"status"`
	Reachable         bool               `json:"reachable"`
	SystemChecks      []StatusLine       `json:"system_checks"`
	DependencySummary StatusLine         `json:"dependency_summary"`
	OutcomeCounts     map[string]int     `json:"outcome_counts,omitempty"`
}

// BuildStatusSnapshot collects daemon status, falling back to the database
// when the daemon is not reachable.
func BuildStatusSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (*Snapshot, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	snap := &Snapshot{}

	if client, err := ipc.Dial(socketPath); err == nil {
		defer client.Close()
		if resp, statusErr := client.Status(); statusErr == nil && resp != nil {
			snap.Status = *resp
			snap.Reachable = true
		}
	}

	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if st, err := store.Open(cfg); err == nil {
		if !snap.Reachable {
			if settings, _, loadErr := st.LoadSettings(queryCtx, cfg.SeedSettings()); loadErr == nil {
				snap.Status.Pairs = daemon.BuildPairViews(settings, nil, time.Now())
				snap.Status.IntervalSeconds = settings.CheckIntervalSeconds
			}
		}
		if counts, countErr := st.OutcomeCounts(queryCtx); countErr == nil {
			snap.OutcomeCounts = counts
		}
		_ = st.Close()
	}

	if len(snap.Status.Dependencies) == 0 {
		snap.Status.Dependencies = preflight.CheckSystemDeps(ctx, cfg)
	}
	snap.SystemChecks = BuildSystemChecks(cfg, snap.Status, snap.Reachable)
	snap.DependencySummary = BuildDependencySummary(snap.Status.Dependencies)
	return snap, nil
}

// BuildSystemChecks resolves status lines that combine runtime state and config checks.
func BuildSystemChecks(cfg *config.Config, status ipc.StatusResponse, reachable bool) []StatusLine {
	lines := make([]StatusLine, 0, 6)
	if !reachable {
		lines = append(lines, StatusLine{Label: "Mirrorvault", Severity: "warn", Detail: "Not running (run `mirrorvault start`)"})
	} else {
		lines = append(lines, StatusLine{Label: "Mirrorvault", Severity: "ok", Detail: fmt.Sprintf("Running (pid %d)", status.PID)})
		switch {
		case status.ManualRunActive:
			lines = append(lines, StatusLine{Label: "Scheduling", Severity: "info", Detail: "Manual run in progress"})
		case status.DaemonRunning:
			detail := fmt.Sprintf("Active, every %s", time.Duration(status.IntervalSeconds)*time.Second)
			lines = append(lines, StatusLine{Label: "Scheduling", Severity: "ok", Detail: detail})
		default:
			lines = append(lines, StatusLine{Label: "Scheduling", Severity: "warn", Detail: "Paused"})
		}
	}

	for _, check := range []preflight.Result{
		preflight.CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		preflight.CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	} {
		severity := "ok"
		if !check.Passed {
			severity = "error"
		}
		lines = append(lines, StatusLine{Label: check.Name, Severity: severity, Detail: check.Detail})
	}

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		lines = append(lines, StatusLine{Label: "Notifications", Severity: "ok", Detail: "Configured"})
	} else {
		lines = append(lines, StatusLine{Label: "Notifications", Severity: "info", Detail: "Not configured"})
	}

	switch {
	case !cfg.Devices.RunOnAttach:
		lines = append(lines, StatusLine{Label: "Device Trigger", Severity: "info", Detail: "Disabled"})
	case status.DeviceWatch:
		lines = append(lines, StatusLine{Label: "Device Trigger", Severity: "ok", Detail: "Watching for attached drives"})
	case !reachable:
		lines = append(lines, StatusLine{Label: "Device Trigger", Severity: "info", Detail: "Inactive (daemon not running)"})
	default:
		lines = append(lines, StatusLine{Label: "Device Trigger", Severity: "warn", Detail: "Netlink unavailable"})
	}
	return lines
}

// BuildDependencySummary computes aggregate dependency readiness.
func BuildDependencySummary(deps []ipc.DependencyStatus) StatusLine {
	if len(deps) == 0 {
		return StatusLine{Label: "Dependencies", Severity: "info", Detail: "No dependency checks configured"}
	}
	missingRequired, missingOptional := 0, 0
	for _, dep := range deps {
		if dep.Available {
			continue
		}
		if dep.Optional {
			missingOptional++
		} else {
			missingRequired++
		}
	}
	available := len(deps) - missingRequired - missingOptional
	severity := "ok"
	if missingRequired > 0 {
		severity = "error"
	} else if missingOptional > 0 {
		severity = "warn"
	}
	detail := fmt.Sprintf("%d/%d available", available, len(deps))
	if missingRequired+missingOptional > 0 {
		detail = fmt.Sprintf("%d/%d available (missing: %d required, %d optional)", available, len(deps), missingRequired, missingOptional)
	}
	return StatusLine{Label: "Dependencies", Severity: severity, Detail: detail}
}

func isDaemonUnavailable(err error) bool {
	return os.IsNotExist(err) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

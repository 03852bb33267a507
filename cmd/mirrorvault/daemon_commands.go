package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mirrorvault/internal/daemonctl"
	"mirrorvault/internal/ipc"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start scheduled backups, launching the daemon if needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonLaunchOptions(ctx),
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.Launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}

			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintln(stdout, "Scheduling started")
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Scheduling already running")
			case daemonctl.StartStateRequested:
				fmt.Fprintln(stdout, result.Message)
			}
			return nil
		},
	}

	pauseCmd := &cobra.Command{
		Use:   "pause",
		Short: "Stop scheduled backups without exiting the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Pause()
				if err != nil {
					return err
				}
				if resp.Stopped {
					fmt.Fprintln(cmd.OutOrStdout(), "Scheduling paused")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Exit the mirrorvault daemon process",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 15*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if !result.ExitAcknowledged {
				fmt.Fprintln(stdout, "Exit request sent")
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Killed daemon process (pid %d)\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the mirrorvault daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.Restart(
				ctx.socketPath(),
				ctx.configValue(),
				exe,
				daemonLaunchOptions(ctx),
				15*time.Second,
				10*time.Second,
			)
			if err != nil {
				return err
			}

			if result.WasRunning {
				if result.Stop.ForcedKill && result.Stop.PID > 0 {
					fmt.Fprintf(stdout, "Killed daemon process (pid %d)\n", result.Stop.PID)
				}
				fmt.Fprintln(stdout, "Daemon stopped")
			}
			if result.Start.State == daemonctl.StartStateRequested {
				fmt.Fprintln(stdout, result.Start.Message)
				return nil
			}
			fmt.Fprintln(stdout, "Daemon restarted")
			return nil
		},
	}

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, pair and dependency status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			snap, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}
			if statusJSON {
				return writeJSON(cmd, snap)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("System Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range snap.SystemChecks {
				fmt.Fprintln(stdout, renderStatusLine(line.Label, statusKindFromSeverity(line.Severity), line.Detail, colorize))
			}
			if snap.Reachable && !snap.Status.NextTick.IsZero() && snap.Status.DaemonRunning {
				next := time.Until(snap.Status.NextTick).Round(time.Second)
				fmt.Fprintln(stdout, renderStatusLine("Next Run", statusInfo, fmt.Sprintf("in %s", max(next, 0)), colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range dependencyLines(snap.Status.Dependencies, snap.DependencySummary, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Backup Pairs", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if len(snap.Status.Pairs) == 0 {
				fmt.Fprintln(stdout, "No backup pairs configured (add one with `mirrorvault pair add`)")
				return nil
			}
			for _, line := range pairStatusLines(snap.Status.Pairs, colorize) {
				fmt.Fprintln(stdout, line)
			}
			if len(snap.OutcomeCounts) > 0 {
				fmt.Fprintln(stdout)
				fmt.Fprint(stdout, renderTable([]string{"Outcome", "Runs"}, outcomeRows(snap.OutcomeCounts), []columnAlignment{alignLeft, alignRight}))
			}
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run every enabled pair once, outside the schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RunNow()
				if err != nil {
					return err
				}
				if resp.Started {
					fmt.Fprintln(cmd.OutOrStdout(), "Backup run started")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	}

	windowCmd := &cobra.Command{
		Use:       "window show|hide",
		Short:     "Show or hide the status window",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"show", "hide"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var visible bool
			switch strings.ToLower(args[0]) {
			case "show":
				visible = true
			case "hide":
			default:
				return fmt.Errorf("unknown window action %q (expected show or hide)", args[0])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Window(visible)
				if err != nil {
					return err
				}
				if resp.Visible {
					fmt.Fprintln(cmd.OutOrStdout(), "Status window visible")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Status window hidden")
				}
				return nil
			})
		},
	}

	return []*cobra.Command{startCmd, pauseCmd, stopCmd, restartCmd, statusCmd, runCmd, windowCmd}
}

func outcomeRows(counts map[string]int) [][]string {
	rows := make([][]string, 0, len(counts))
	for _, outcome := range []string{"success", "warning", "failed"} {
		if n, ok := counts[outcome]; ok {
			rows = append(rows, []string{outcome, fmt.Sprintf("%d", n)})
		}
	}
	return rows
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext) daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{ConfigPath: ctx.configPath()}
	if ctx.logLevelFlag != nil {
		opts.LogLevel = strings.TrimSpace(*ctx.logLevelFlag)
	}
	return opts
}

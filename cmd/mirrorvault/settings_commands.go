package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"mirrorvault/internal/ipc"
	"mirrorvault/internal/pairs"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the check interval and tool options",
	}

	var showJSON bool
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show persisted settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.GetSettings()
				if err != nil {
					return err
				}
				if showJSON {
					return writeJSON(cmd, resp.Settings)
				}
				printSettings(cmd.OutOrStdout(), resp.Settings)
				return nil
			})
		},
	}
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output as JSON")

	var (
		interval        time.Duration
		startWithSystem bool
		mirrorMode      bool
		threads         int
		fatFileTiming   bool
		retryCount      int
		retryWait       int
	)
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Change settings; a running schedule restarts with the new interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.NFlag() == 0 {
				return fmt.Errorf("no settings given (see --help)")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				current, err := client.GetSettings()
				if err != nil {
					return err
				}
				next := current.Settings.Clone()
				if flags.Changed("interval") {
					next.CheckIntervalSeconds = int(interval / time.Second)
				}
				if flags.Changed("start-with-system") {
					next.StartWithSystem = startWithSystem
				}
				if flags.Changed("mirror-mode") {
					next.Tool.MirrorMode = mirrorMode
				}
				if flags.Changed("threads") {
					next.Tool.Threads = threads
				}
				if flags.Changed("fat-file-timing") {
					next.Tool.FatFileTiming = fatFileTiming
				}
				if flags.Changed("retry-count") {
					next.Tool.RetryCount = retryCount
				}
				if flags.Changed("retry-wait") {
					next.Tool.RetryWaitSeconds = retryWait
				}
				resp, err := client.UpdateSettings(next)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Settings saved")
				printSettings(cmd.OutOrStdout(), resp.Settings)
				return nil
			})
		},
	}
	setCmd.Flags().DurationVar(&interval, "interval", time.Hour, "Time between scheduled runs (e.g. 30m, 6h)")
	setCmd.Flags().BoolVar(&startWithSystem, "start-with-system", false, "Start scheduling when the daemon launches")
	setCmd.Flags().BoolVar(&mirrorMode, "mirror-mode", true, "Delete destination files missing from the source (/MIR)")
	setCmd.Flags().IntVar(&threads, "threads", 8, fmt.Sprintf("Copy threads (%d-%d)", pairs.MinThreads, pairs.MaxThreads))
	setCmd.Flags().BoolVar(&fatFileTiming, "fat-file-timing", true, "Use 2-second timestamp granularity (/FFT)")
	setCmd.Flags().IntVar(&retryCount, "retry-count", 3, fmt.Sprintf("Retries per failed file (0-%d)", pairs.MaxRetryCount))
	setCmd.Flags().IntVar(&retryWait, "retry-wait", 2, fmt.Sprintf("Seconds between retries (0-%d)", pairs.MaxRetryWaitSeconds))

	settingsCmd.AddCommand(showCmd, setCmd)
	return settingsCmd
}

func printSettings(out io.Writer, settings pairs.Settings) {
	fmt.Fprintf(out, "Check interval:     %s\n", settings.Interval())
	fmt.Fprintf(out, "Start with system:  %s\n", yesNo(settings.StartWithSystem))
	fmt.Fprintf(out, "Mirror mode:        %s\n", yesNo(settings.Tool.MirrorMode))
	fmt.Fprintf(out, "Threads:            %d\n", settings.Tool.Threads)
	fmt.Fprintf(out, "FAT file timing:    %s\n", yesNo(settings.Tool.FatFileTiming))
	fmt.Fprintf(out, "Retry count:        %d\n", settings.Tool.RetryCount)
	fmt.Fprintf(out, "Retry wait:         %ds\n", settings.Tool.RetryWaitSeconds)
	fmt.Fprintf(out, "Backup pairs:       %d (%d enabled)\n", len(settings.Pairs), len(settings.EnabledPairs()))
}

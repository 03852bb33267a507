package main

import (
	"github.com/spf13/cobra"

	"mirrorvault/internal/daemonrun"
)

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var diagnostic bool
	var startScheduling bool
	cmd := &cobra.Command{
		Use:          "daemon",
		Short:        "Run the mirrorvault daemon (internal)",
		Hidden:       true,
		Annotations:  map[string]string{"skipConfigLoad": "true"},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:        ctx.logLevel(),
				Diagnostic:      diagnostic,
				StartScheduling: startScheduling,
			})
		},
	}
	cmd.Flags().BoolVar(&diagnostic, "diagnostic", false, "Tee a DEBUG JSON log into the debug log directory")
	cmd.Flags().BoolVar(&startScheduling, "start-daemon", false, "Start scheduled backups immediately")
	return cmd
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mirrorvault/internal/config"
	"mirrorvault/internal/ipc"
	"mirrorvault/internal/pairs"
	"mirrorvault/internal/store"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigImportCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Add backup pairs with `mirrorvault pair add <source> <destination>` once the daemon is running.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(ctx.configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintf(out, "State database: %s\n", cfg.DatabasePath())
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <settings.json>",
		Short: "Import pairs and options from a legacy JSON settings file",
		Long: "Replaces the persisted pairs, check interval and tool options with the contents of a\n" +
			"legacy JSON settings file. A file with a single source_folder/destination_folder is\n" +
			"migrated into one backup pair.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read legacy settings: %w", err)
			}
			imported, migrated, err := pairs.ImportLegacy(data, cfg.SeedSettings())
			if err != nil {
				return err
			}

			saved, err := saveImportedSettings(cmd.Context(), ctx, cfg, imported)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if migrated {
				fmt.Fprintln(out, "Migrated single source/destination folder into a backup pair")
			}
			fmt.Fprintf(out, "Imported %d backup pairs\n", len(saved.Pairs))
			printSettings(out, saved)
			return nil
		},
	}
}

// saveImportedSettings goes through the daemon when it is running so its
// in-memory view stays authoritative, and writes the database otherwise.
func saveImportedSettings(runCtx context.Context, ctx *commandContext, cfg *config.Config, settings pairs.Settings) (pairs.Settings, error) {
	client, dialErr := ipc.Dial(ctx.socketPath())
	if dialErr == nil {
		defer client.Close()
		resp, err := client.UpdateSettings(settings)
		if err != nil {
			return pairs.Settings{}, err
		}
		return resp.Settings, nil
	}

	st, err := store.Open(cfg)
	if err != nil {
		return pairs.Settings{}, errors.Join(wrapDialError(dialErr, ctx.socketPath()), err)
	}
	defer st.Close()

	saveCtx, cancel := context.WithTimeout(runCtx, 5*time.Second)
	defer cancel()
	if err := st.SaveSettings(saveCtx, settings); err != nil {
		return pairs.Settings{}, err
	}
	return settings, nil
}

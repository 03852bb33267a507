package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mirrorvault/internal/ipc"
	"mirrorvault/internal/mirror"
	"mirrorvault/internal/pathcheck"
)

func newPairCommand(ctx *commandContext) *cobra.Command {
	pairCmd := &cobra.Command{
		Use:   "pair",
		Short: "Manage backup pairs",
	}

	var listJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List backup pairs in run order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ListPairs()
				if err != nil {
					return err
				}
				if listJSON {
					return writeJSON(cmd, resp.Pairs)
				}
				if len(resp.Pairs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No backup pairs configured")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), pairTable(resp.Pairs))
				return nil
			})
		},
	}
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")

	addCmd := &cobra.Command{
		Use:   "add <source> <destination>",
		Short: "Add a backup pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.AddPair(args[0], args[1])
				if err != nil {
					return err
				}
				return reportPairSave(cmd.OutOrStdout(), resp, "Added")
			})
		},
	}

	updateCmd := &cobra.Command{
		Use:   "update <position> <source> <destination>",
		Short: "Change the paths of a backup pair",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parsePosition(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.UpdatePair(index, args[1], args[2])
				if err != nil {
					return err
				}
				return reportPairSave(cmd.OutOrStdout(), resp, "Updated")
			})
		},
	}

	removeCmd := &cobra.Command{
		Use:     "remove <position>",
		Aliases: []string{"rm"},
		Short:   "Remove a backup pair and its run history",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parsePosition(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.RemovePair(index)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", resp.Pair.DisplayName())
				return nil
			})
		},
	}

	pairCmd.AddCommand(listCmd, addCmd, updateCmd, removeCmd)
	pairCmd.AddCommand(newPairMoveCommand(ctx, "up", true), newPairMoveCommand(ctx, "down", false))
	pairCmd.AddCommand(newPairToggleCommand(ctx, "enable", true), newPairToggleCommand(ctx, "disable", false))
	pairCmd.AddCommand(newPairPreviewCommand(ctx), newPairValidateCommand(ctx))
	return pairCmd
}

func newPairMoveCommand(ctx *commandContext, name string, up bool) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <position>",
		Short: fmt.Sprintf("Move a backup pair %s one position", name),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parsePosition(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.MovePair(index, up)
				if err != nil {
					return err
				}
				switch {
				case resp.Moved:
					fmt.Fprintf(cmd.OutOrStdout(), "Moved pair %d %s\n", index+1, name)
				case up:
					fmt.Fprintf(cmd.OutOrStdout(), "Pair %d is already first\n", index+1)
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "Pair %d is already last\n", index+1)
				}
				return nil
			})
		},
	}
}

func newPairToggleCommand(ctx *commandContext, name string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <position>",
		Short: fmt.Sprintf("%s a backup pair", strings.ToUpper(name[:1])+name[1:]),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parsePosition(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TogglePair(index, enabled)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: enabled=%s\n", resp.Pair.DisplayName(), yesNo(resp.Pair.Enabled))
				return nil
			})
		},
	}
}

func newPairPreviewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <position>",
		Short: "Print the exact mirroring command a pair runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parsePosition(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.GetSettings()
				if err != nil {
					return err
				}
				settings := resp.Settings
				if index >= len(settings.Pairs) {
					return fmt.Errorf("pair %d does not exist (%d configured)", index+1, len(settings.Pairs))
				}
				pair := settings.Pairs[index]
				binary := ""
				if cfg := ctx.configValue(); cfg != nil {
					binary = cfg.MirrorBinary()
				}
				fmt.Fprintln(cmd.OutOrStdout(), mirror.PreviewCommand(binary, pair.Source, pair.Destination, settings.Tool))
				return nil
			})
		},
	}
}

func newPairValidateCommand(ctx *commandContext) *cobra.Command {
	var position int
	cmd := &cobra.Command{
		Use:   "validate <source> <destination>",
		Short: "Check a source and destination without saving",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			editing := pathcheck.NoEditing
			if position > 0 {
				editing = position - 1
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Validate(ipc.ValidateRequest{
					Source:       args[0],
					Destination:  args[1],
					EditingIndex: editing,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				printMessages(out, resp.Errors, resp.Warnings)
				if !resp.Valid {
					return errors.New("paths are not valid")
				}
				fmt.Fprintln(out, "Paths are valid")
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&position, "editing", 0, "Position of the pair being edited (excluded from duplicate checks)")
	return cmd
}

func reportPairSave(out io.Writer, resp *ipc.PairResponse, verb string) error {
	printMessages(out, resp.Errors, resp.Warnings)
	if !resp.Saved {
		return errors.New("backup pair not saved")
	}
	fmt.Fprintf(out, "%s %s\n", verb, resp.Pair.DisplayName())
	return nil
}

func printMessages(out io.Writer, errs, warnings []string) {
	for _, msg := range errs {
		fmt.Fprintf(out, "error: %s\n", msg)
	}
	for _, msg := range warnings {
		fmt.Fprintf(out, "warning: %s\n", msg)
	}
}

// parsePosition converts a 1-based list position to an index.
func parsePosition(arg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid pair position %q (use the # column of `mirrorvault pair list`)", arg)
	}
	return n - 1, nil
}

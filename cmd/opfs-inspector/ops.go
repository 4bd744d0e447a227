package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"opfs-inspector/internal/domain/entity"

	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

const flagOutput = "output"

// panelOp is one panel call against the resolved tab.
type panelOp func(ctx context.Context, tab entity.TabID) (*entity.RelayResult, error)

// runOp evaluates op and prints the panel view, or the raw result with
// -o json. An error-status result makes the command fail.
func (a *app) runOp(cmd *cobra.Command, op panelOp) error {
	defer a.close()

	ctx, cancel, err := a.inspect(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	result, err := op(ctx, a.tabID)
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString(flagOutput)
	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		a.container.Console.ShowView(ctx, a.container.Panel.View(a.tabID))
	}

	if !result.OK() {
		return errResultFailed
	}
	return nil
}

func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP(flagOutput, "o", "", "output format (json)")
}

func newTestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Check that the page can reach its OPFS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOp(cmd, func(ctx context.Context, tab entity.TabID) (*entity.RelayResult, error) {
				return a.container.Panel.TestAccess(ctx, tab)
			})
		},
	}
	addOutputFlag(cmd)
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List every entry of the OPFS",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOp(cmd, func(ctx context.Context, tab entity.TabID) (*entity.RelayResult, error) {
				return a.container.Panel.Refresh(ctx, tab)
			})
		},
	}
	addOutputFlag(cmd)
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Download a file from the OPFS",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOp(cmd, func(ctx context.Context, tab entity.TabID) (*entity.RelayResult, error) {
				return a.container.Panel.Download(ctx, tab, args[0])
			})
		},
	}
	addOutputFlag(cmd)
	return cmd
}

func newPutCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <local-file> <path>",
		Short: "Upload a local file into the OPFS, creating directories",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			return a.runOp(cmd, func(ctx context.Context, tab entity.TabID) (*entity.RelayResult, error) {
				return a.container.Panel.Upload(ctx, tab, args[1], data)
			})
		},
	}
	addOutputFlag(cmd)
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rm <path>",
		Aliases: []string{"delete"},
		Short:   "Remove a file or directory",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recursive, _ := cmd.Flags().GetBool("recursive")
			return a.runOp(cmd, func(ctx context.Context, tab entity.TabID) (*entity.RelayResult, error) {
				return a.container.Panel.Delete(ctx, tab, args[0], recursive)
			})
		},
	}
	cmd.Flags().BoolP("recursive", "r", false, "remove non-empty directories")
	addOutputFlag(cmd)
	return cmd
}

func newWriteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write <path> <text>",
		Short: "Write text through the synchronous access worker",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOp(cmd, func(ctx context.Context, tab entity.TabID) (*entity.RelayResult, error) {
				return a.container.Panel.SyncWrite(ctx, tab, args[0], []byte(args[1]))
			})
		},
	}
	addOutputFlag(cmd)
	return cmd
}

func newTabsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tabs",
		Short: "List the tabs of the browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.close()
			if err := a.start(cmd); err != nil {
				return err
			}
			ctx, cancel := a.operationContext(cmd.Context())
			defer cancel()

			tabs, err := a.container.Browser.Tabs(ctx)
			if err != nil {
				return err
			}
			if len(tabs) == 0 {
				pterm.Info.Println("No tabs open")
				return nil
			}

			rows := pterm.TableData{{"ID", "URL", "TITLE"}}
			rows = append(rows, lo.Map(tabs, func(t entity.Tab, _ int) []string {
				return []string{t.ID.String(), t.URL, lo.Ternary(t.Title == "", "-", t.Title)}
			})...)
			return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
		},
	}
}

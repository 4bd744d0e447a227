package main

import (
	"context"
	"errors"
	"fmt"

	"opfs-inspector/internal/di"
	"opfs-inspector/internal/domain/entity"
	"opfs-inspector/internal/infrastructure/config"
	"opfs-inspector/internal/infrastructure/env"

	"github.com/spf13/cobra"
)

const flagTab = "tab"

var errResultFailed = errors.New("operation reported an error")

// app carries the container shared by the subcommand that runs.
type app struct {
	cfg       config.Config
	container *di.Container
	tabID     entity.TabID
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "opfs-inspector",
		Short:         "Inspect the Origin Private File System of a page",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(env.NewEnvService(), cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}

	config.RegisterFlags(root.PersistentFlags())
	root.PersistentFlags().String(flagTab, "", "inspect an already open tab instead of opening --url")

	root.AddCommand(
		newTestCmd(a),
		newListCmd(a),
		newGetCmd(a),
		newPutCmd(a),
		newRemoveCmd(a),
		newWriteCmd(a),
		newTabsCmd(a),
		newServeCmd(a),
	)
	return root
}

// start builds the container for cmd. It is separate from PersistentPreRunE
// so argument errors surface before a browser is launched.
func (a *app) start(cmd *cobra.Command) error {
	if a.container != nil {
		return nil
	}
	c, err := di.NewContainer(cmd.Context(), a.cfg, cmd.Name())
	if err != nil {
		return err
	}
	a.container = c
	c.Logger.Info("session started", "command", cmd.Name(), "backend", a.cfg.Backend)
	return nil
}

// inspect starts the container and resolves the tab the command works on.
func (a *app) inspect(cmd *cobra.Command) (context.Context, context.CancelFunc, error) {
	if err := a.start(cmd); err != nil {
		return nil, nil, err
	}

	ctx, cancel := a.operationContext(cmd.Context())
	tab, _ := cmd.Flags().GetString(flagTab)
	if tab != "" {
		a.tabID = entity.TabID(tab)
		return ctx, cancel, nil
	}
	if a.cfg.URL == "" {
		cancel()
		return nil, nil, fmt.Errorf("--%s or --%s is required", config.KeyURL, flagTab)
	}

	opened, err := a.container.Browser.OpenTab(ctx, a.cfg.URL)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("open %s: %w", a.cfg.URL, err)
	}
	a.container.Logger.Info("tab opened", "tab", opened.ID, "url", opened.URL)
	a.tabID = opened.ID
	return ctx, cancel, nil
}

// operationContext applies the configured timeout; zero means none.
func (a *app) operationContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if a.cfg.Timeout > 0 {
		return context.WithTimeout(parent, a.cfg.Timeout)
	}
	return context.WithCancel(parent)
}

func (a *app) close() {
	if a.container != nil {
		a.container.Close()
		a.container = nil
	}
}

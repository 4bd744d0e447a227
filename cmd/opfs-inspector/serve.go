package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the panel over HTTP",
		Long: "Serve the panel over HTTP. When --url is set the page is opened first; " +
			"other tabs can be opened with POST /api/tabs.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := a.start(cmd); err != nil {
				return err
			}
			log := a.container.Logger

			if a.cfg.URL != "" {
				openCtx, cancel := a.operationContext(ctx)
				tab, err := a.container.Browser.OpenTab(openCtx, a.cfg.URL)
				cancel()
				if err != nil {
					return err
				}
				pterm.Info.Printfln("Inspecting %s as tab %s", tab.URL, tab.ID)
			}

			server := &http.Server{
				Addr:              a.cfg.Addr,
				Handler:           a.container.HTTPServer().Handler(),
				ReadHeaderTimeout: 10 * time.Second,
				BaseContext: func(net.Listener) context.Context {
					return ctx
				},
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.ListenAndServe()
			}()
			log.Info("http server listening", "addr", a.cfg.Addr)
			pterm.Success.Printfln("Panel listening on http://%s", a.cfg.Addr)

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					log.Warn("server shutdown failed", "error", err)
				}
				return nil
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}
}

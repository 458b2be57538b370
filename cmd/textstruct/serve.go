package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leofalp/textstruct/internal/server"
	"github.com/leofalp/textstruct/providers/observability"
)

func newServeCommand(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *configPath, os.Stdout)
			if err != nil {
				return err
			}
			if addr != "" {
				a.config.Server.Addr = addr
			}
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// serve runs the HTTP server until ctx is done, then drains in-flight requests.
func (a *app) serve(ctx context.Context) error {
	handler := server.New(a.processor, a.store,
		server.WithAllowedOrigins(a.config.Server.AllowedOrigins...),
		server.WithObserver(a.observer),
	).Handler()

	srv := &http.Server{
		Addr:     a.config.Server.Addr,
		Handler:  handler,
		ErrorLog: slog.NewLogLogger(a.observer.Logger().Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		a.observer.Info(ctx, "Server listening",
			observability.String("addr", srv.Addr),
			observability.String("log.dir", a.store.Dir),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.observer.Info(context.Background(), "Shutting down",
		observability.Duration("timeout", a.config.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

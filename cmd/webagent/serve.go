package main

import (
	"context"
	"errors"
	"time"

	"github.com/mohammad-safakhou/webagent/internal/app"
	"github.com/mohammad-safakhou/webagent/internal/runtime"
	srv "github.com/mohammad-safakhou/webagent/internal/server"
	"github.com/spf13/cobra"
)

func serveCMD(load loader) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Address = addr
			}
			a, err := app.New(cmd.Context(), cfg, version)
			if err != nil {
				return err
			}
			ctx, cancel := runtime.SignalContext(cmd.Context(), "serve", a.Runner.Shutdown)
			defer cancel()

			s := srv.New(a.Runner, srv.Options{
				RequestTimeout: cfg.Server.RequestTimeout,
				Metrics:        a.Metrics.Handler(),
				Logger:         app.Logger(cfg, "[HTTP] "),
			})
			if cfg.Telemetry.MetricsPort > 0 {
				a.Metrics.ServeMetrics(ctx, cfg.Telemetry.MetricsPort, app.Logger(cfg, "[METRICS] "))
			}

			errCh := make(chan error, 1)
			go func() { errCh <- s.Start(cfg.Server.Address) }()

			select {
			case err = <-errCh:
			case <-ctx.Done():
			}
			shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
			defer stop()
			return errors.Join(err, s.Shutdown(shutdownCtx), a.Close(shutdownCtx))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.address)")
	return cmd
}

package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mohammad-safakhou/webagent/config"
	"github.com/mohammad-safakhou/webagent/internal/app"
	"github.com/mohammad-safakhou/webagent/internal/runner"
	"github.com/mohammad-safakhou/webagent/internal/runtime"
	srv "github.com/mohammad-safakhou/webagent/internal/server"
	"github.com/spf13/cobra"
)

func watchCMD(load loader) *cobra.Command {
	var cronSpec, outDir, name string
	var days int
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch <query>",
		Short: "Re-run a research query on a cron schedule, writing timestamped reports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			a, err := app.New(cmd.Context(), cfg, version)
			if err != nil {
				return err
			}
			ctx, cancel := runtime.SignalContext(cmd.Context(), "watch", a.Runner.Shutdown)
			defer cancel()

			job := watchJob(cfg, strings.Join(args, " "), name, cronSpec, days)
			sched := &srv.Scheduler{
				Research:  a.Runner,
				Jobs:      []srv.Job{job},
				OutputDir: outDir,
				Interval:  interval,
				Logger:    app.Logger(cfg, "[SCHED] "),
			}
			if rdb := a.Redis(); rdb != nil {
				sched.Locker = rdb
			}
			runErr := sched.Run(ctx)
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			return errors.Join(runErr, a.Close(shutdownCtx))
		},
	}
	cmd.Flags().StringVar(&cronSpec, "cron", "@daily", "cron expression, @hourly or @daily")
	cmd.Flags().StringVar(&outDir, "out", "reports", "directory for timestamped reports")
	cmd.Flags().StringVar(&name, "name", "", "job name used in report file names (default the query)")
	cmd.Flags().IntVarP(&days, "days", "d", 0, "news look-back window in days (1-30, default from config)")
	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "how often the schedule is checked")
	return cmd
}

// watchJob builds the scheduled job for query. An empty name uses the query.
func watchJob(cfg *config.Config, query, name, cronSpec string, days int) srv.Job {
	if name == "" {
		name = query
	}
	return srv.Job{
		Name:    name,
		Cron:    cronSpec,
		Kickoff: runner.Kickoff{Query: query, Days: lookback(cfg, days)},
	}
}

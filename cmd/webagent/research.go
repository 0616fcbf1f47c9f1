package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mohammad-safakhou/webagent/config"
	"github.com/mohammad-safakhou/webagent/internal/app"
	"github.com/mohammad-safakhou/webagent/internal/runner"
	"github.com/mohammad-safakhou/webagent/internal/runtime"
	"github.com/spf13/cobra"
)

func researchCMD(load loader) *cobra.Command {
	var days int
	var showIntermediate bool
	var output string
	cmd := &cobra.Command{
		Use:   "research <query>",
		Short: "Run the research pipeline and write a markdown report",
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
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = a.Close(shutdownCtx)
			}()
			ctx, cancel := runtime.SignalContext(cmd.Context(), "research", a.Runner.Shutdown)
			defer cancel()

			rep, err := a.Runner.Run(ctx, runner.Kickoff{
				Query:            strings.Join(args, " "),
				Days:             lookback(cfg, days),
				ShowIntermediate: showIntermediate,
			})
			if err != nil {
				return err
			}
			if output == "" {
				output = cfg.General.ReportPath
			}
			if err := runner.WriteReport(output, rep.Markdown); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rep.Markdown)
			if showIntermediate {
				fmt.Fprintf(cmd.ErrOrStderr(), "intermediate results written to %s\n", cfg.Checkpoint.Dir)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "report written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 0, "news look-back window in days (1-30, default from config)")
	cmd.Flags().BoolVar(&showIntermediate, "show-intermediate", false, "write per-task results to the checkpoint directory")
	cmd.Flags().StringVarP(&output, "output", "o", "", "report path (default general.report_path)")
	return cmd
}

// lookback resolves the --days flag, where 0 means pipeline.default_days.
func lookback(cfg *config.Config, days int) int {
	if days == 0 {
		return cfg.Pipeline.DefaultDays
	}
	return days
}

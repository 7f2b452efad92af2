package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/lvmatmul/collective"
	"github.com/katalvlaran/lvmatmul/collective/local"
	"github.com/katalvlaran/lvmatmul/logging"
	"github.com/katalvlaran/lvmatmul/orchestrator"
)

func newLocalCmd(a *app) *cobra.Command {
	var np int
	cmd := &cobra.Command{
		Use:   "local",
		Short: "Run every rank as a goroutine of this process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			cfg.WorldSize, cfg.Rank, cfg.Peers = np, 0, nil
			if err = cfg.Validate(); err != nil {
				return err
			}
			ocfg, err := orchestratorConfig(cfg)
			if err != nil {
				return err
			}
			lopts, err := a.logOptions(cfg)
			if err != nil {
				return err
			}
			timeout, err := cfg.TimeoutDuration()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			var report *orchestrator.Report
			commLog := slog.New(logging.Handler(a.stderr, lopts.Level, lopts.Format))
			err = local.Run(ctx, cfg.WorldSize, func(ctx context.Context, c *collective.Comm) error {
				env := orchestrator.Env{Comm: c, Logger: a.logger(c.Rank(), lopts)}
				rep, err := orchestrator.Run(ctx, env, ocfg)
				if err == nil && rep.IsCoordinator() {
					report = rep
				}

				return err
			}, local.WithCommOptions(collective.WithLogger(commLog)))
			if err != nil {
				return err
			}
			a.printf("%s", report.Summary())

			return nil
		},
	}
	cmd.Flags().IntVar(&np, "np", 4, "number of ranks")
	addComputeFlags(cmd.Flags(), &a.compute)

	return cmd
}

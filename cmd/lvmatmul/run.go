package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/lvmatmul/orchestrator"
)

func newRunCmd(a *app) *cobra.Command {
	var mesh meshFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one rank of a multi-process group over the websocket mesh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			mesh.apply(cmd.Flags(), &cfg)
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

			comm, log, err := a.dialMesh(ctx, cfg, lopts)
			if err != nil {
				return err
			}
			defer comm.Close()

			report, err := orchestrator.Run(ctx, orchestrator.Env{Comm: comm, Logger: log}, ocfg)
			if err != nil {
				return err
			}
			// Hold the mesh until every rank is done so no peer sees a
			// closed connection mid-run.
			if err = comm.Barrier(ctx); err != nil {
				return err
			}
			if report.IsCoordinator() {
				a.printf("%s", report.Summary())
			}

			return nil
		},
	}
	addComputeFlags(cmd.Flags(), &a.compute)
	addMeshFlags(cmd.Flags(), &mesh)

	return cmd
}

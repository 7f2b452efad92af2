package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/lvmatmul/bootstrap"
	"github.com/katalvlaran/lvmatmul/collective"
	"github.com/katalvlaran/lvmatmul/collective/local"
	"github.com/katalvlaran/lvmatmul/pingpong"
)

func newPingPongCmd(a *app) *cobra.Command {
	var (
		mesh    meshFlags
		localNP int
		opts    pingpong.Options
	)
	cmd := &cobra.Command{
		Use:   "pingpong",
		Short: "Measure round-trip latency and bandwidth between ranks 0 and 1",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			mesh.apply(cmd.Flags(), &cfg)
			if localNP > 0 {
				cfg.WorldSize, cfg.Rank, cfg.Peers = localNP, 0, nil
			}
			if err = cfg.Validate(); err != nil {
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

			var stats *pingpong.Stats
			if localNP > 0 {
				err = local.Run(ctx, localNP, func(ctx context.Context, c *collective.Comm) error {
					o := opts
					o.Logger = a.logger(c.Rank(), lopts)
					s, err := pingpong.Run(ctx, c, o)
					if c.Rank() == collective.Root {
						stats = s
					}

					return err
				})
			} else {
				stats, err = a.meshPingPong(ctx, cfg, opts)
			}
			if err != nil {
				return err
			}
			if stats != nil && stats.Rounds != nil {
				a.printf("%s", stats.Summary())
			}

			return nil
		},
	}
	fs := cmd.Flags()
	fs.IntVar(&localNP, "local", 0, "run N goroutine ranks in this process instead of joining a mesh")
	fs.IntVar(&opts.Iterations, "iterations", pingpong.DefaultIterations, "round trips")
	fs.IntVar(&opts.MessageSize, "size", pingpong.DefaultMessageSize, "message size in bytes")
	fs.StringVar(&a.compute.timeout, "timeout", bootstrap.DefaultTimeout.String(), "overall deadline")
	addMeshFlags(fs, &mesh)

	return cmd
}

func (a *app) meshPingPong(ctx context.Context, cfg bootstrap.Config, opts pingpong.Options) (*pingpong.Stats, error) {
	lopts, err := a.logOptions(cfg)
	if err != nil {
		return nil, err
	}
	comm, log, err := a.dialMesh(ctx, cfg, lopts)
	if err != nil {
		return nil, err
	}
	defer comm.Close()
	opts.Logger = log

	stats, err := pingpong.Run(ctx, comm, opts)
	if err != nil {
		return nil, err
	}

	return stats, comm.Barrier(ctx)
}

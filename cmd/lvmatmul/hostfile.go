package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/katalvlaran/lvmatmul/bootstrap"
)

func newHostfileCmd(a *app) *cobra.Command {
	var (
		mesh    meshFlags
		pattern string
		out     string
		resolve bool
	)
	cmd := &cobra.Command{
		Use:   "hostfile",
		Short: "Write an mpirun hostfile for the master/worker layout",
		Long: "Writes one 'name slots=1' line for rank 0 (the master address) and one per\n" +
			"worker, named by --worker-pattern. With --resolve, prints the resolved mesh\n" +
			"addresses instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			mesh.apply(cmd.Flags(), &cfg)
			if err = cfg.Validate(); err != nil {
				return err
			}

			if resolve {
				addrs, err := cfg.ResolvePeers()
				if err != nil {
					return err
				}
				for r, addr := range addrs {
					a.printf("%d %s\n", r, addr)
				}

				return nil
			}

			hosts := bootstrap.GenerateHosts(cfg.MasterAddr, pattern, cfg.WorldSize)
			var w io.Writer = a.stdout
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err = bootstrap.WriteHostfile(w, hosts); err != nil {
				return fmt.Errorf("writing hostfile: %w", err)
			}
			if out != "" {
				a.printf("Generated hostfile at %s (world size %d, master %s:%d)\n",
					out, cfg.WorldSize, cfg.MasterAddr, cfg.MasterPort)
			}

			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&pattern, "worker-pattern", bootstrap.DefaultWorkerPattern, "printf pattern naming worker r")
	fs.StringVarP(&out, "out", "o", "", "output file (stdout when empty)")
	fs.BoolVar(&resolve, "resolve", false, "print resolved rank addresses instead of a hostfile")
	addMeshFlags(fs, &mesh)

	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	var mesh meshFlags
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
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

			return cfg.Encode(a.stdout)
		},
	}
	addComputeFlags(cmd.Flags(), &a.compute)
	addMeshFlags(cmd.Flags(), &mesh)

	return cmd
}

package main

import (
	"context"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/katalvlaran/lvmatmul/bootstrap"
	"github.com/katalvlaran/lvmatmul/collective"
	"github.com/katalvlaran/lvmatmul/collective/wsmesh"
	"github.com/katalvlaran/lvmatmul/logging"
)

// meshFlags override the group fields of bootstrap.Config.
type meshFlags struct {
	rank       int
	worldSize  int
	peers      []string
	hostfile   string
	masterAddr string
	masterPort int
}

func addMeshFlags(fs *pflag.FlagSet, f *meshFlags) {
	fs.IntVar(&f.rank, "rank", 0, "this process's rank (MPI_RANK)")
	fs.IntVar(&f.worldSize, "world-size", 1, "number of ranks (MPI_WORLD_SIZE)")
	fs.StringSliceVar(&f.peers, "peers", nil, "host:port of every rank, in rank order (MPI_PEERS)")
	fs.StringVar(&f.hostfile, "hostfile", "", "mpirun-style hostfile (MPI_HOSTFILE)")
	fs.StringVar(&f.masterAddr, "master-addr", bootstrap.DefaultMasterAddr, "rank 0 host (MPI_MASTER_ADDR)")
	fs.IntVar(&f.masterPort, "master-port", bootstrap.DefaultMasterPort, "base mesh port (MPI_MASTER_PORT)")
}

func (f *meshFlags) apply(fs *pflag.FlagSet, cfg *bootstrap.Config) {
	if fs.Changed("rank") {
		cfg.Rank = f.rank
	}
	if fs.Changed("world-size") {
		cfg.WorldSize = f.worldSize
	}
	if fs.Changed("peers") {
		cfg.Peers = f.peers
	}
	if fs.Changed("hostfile") {
		cfg.Hostfile = f.hostfile
	}
	if fs.Changed("master-addr") {
		cfg.MasterAddr = f.masterAddr
	}
	if fs.Changed("master-port") {
		cfg.MasterPort = f.masterPort
	}
}

// dialMesh joins the websocket mesh described by cfg.
func (a *app) dialMesh(ctx context.Context, cfg bootstrap.Config, lopts logging.Options) (*collective.Comm, *slog.Logger, error) {
	peers, err := cfg.ResolvePeers()
	if err != nil {
		return nil, nil, err
	}
	log := a.logger(cfg.Rank, lopts)
	base := slog.New(logging.Handler(a.stderr, lopts.Level, lopts.Format))

	comm, err := wsmesh.Dial(ctx, wsmesh.Config{
		Rank:   cfg.Rank,
		Size:   cfg.WorldSize,
		Peers:  peers,
		Logger: base,
	}, collective.WithLogger(base))
	if err != nil {
		return nil, nil, err
	}

	return comm, log, nil
}

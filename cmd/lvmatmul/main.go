// Command lvmatmul multiplies two seeded N×N matrices across a group of
// ranks and reports checksums and timing on the coordinator.
//
//	lvmatmul local --np 4 --n 1000           # goroutine ranks in one process
//	MPI_RANK=1 MPI_WORLD_SIZE=2 lvmatmul run  # one rank of a websocket mesh
//	lvmatmul pingpong --local 2               # latency/bandwidth probe
//	lvmatmul hostfile                         # write an mpirun hostfile
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(os.Stdout, os.Stderr, os.Getenv)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "lvmatmul: %v\n", err)
		stop()
		os.Exit(1)
	}
}

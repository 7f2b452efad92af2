// Package lvmatmul is a distributed dense matrix multiplication toolkit:
// C = A·B over a group of ranks that split A by rows, replicate B, and
// gather C on the coordinator.
//
// 🚀 What is inside?
//
//	A small SPMD stack, each layer usable on its own:
//		• matrix:       row-major Dense storage, sequential Mul, Sum, seeded fill
//		• partition:    the row plan (N/P rows per rank, remainder policy)
//		• collective:   Broadcast, Scatter, Gather, Barrier, Send/Recv over a Transport
//		• kernel:       the local row-block product
//		• aggregate:    gathering C and the coordinator's remainder rows
//		• orchestrator: the per-rank program tying it together
//		• pingpong:     point-to-point latency and bandwidth probe
//
// Transports:
//
//	collective/local/   goroutine ranks over channel mailboxes (one process)
//	collective/wsmesh/  one process per rank, full websocket mesh
//
// Process setup lives in bootstrap/ (MPI_* environment, hostfiles, TOML) and
// logging/ (rank-tagged slog). The lvmatmul command in cmd/lvmatmul wires it
// all into a CLI.
//
// Quick example:
//
//	err := local.Run(ctx, 4, func(ctx context.Context, c *collective.Comm) error {
//		rep, err := orchestrator.Run(ctx, orchestrator.Env{Comm: c}, orchestrator.Config{N: 1000})
//		if err == nil && rep.IsCoordinator() {
//			fmt.Print(rep.Summary())
//		}
//		return err
//	})
//
// See examples/ for runnable scenarios.
package lvmatmul

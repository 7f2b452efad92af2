// Package collective implements the group-wide communication primitives a
// single-program-multiple-data (SPMD) run is built on: Broadcast, Scatter,
// Gather and Barrier, plus plain point-to-point Send/Recv.
//
// Every primitive is a blocking rendezvous: it returns only once the calling
// rank's part of the exchange is complete. All ranks of a group MUST invoke
// the same collectives in the same order with the same root and counts.
//
// Collectives are written once, in Comm, on top of a Transport that moves
// Frames between pairs of ranks with per-pair FIFO ordering. Two transports
// ship with the module:
//
//	collective/local   P ranks as goroutines of one process (channels)
//	collective/wsmesh  one process per rank, full websocket mesh
//
// Failure model (fail-fast):
//
//   - Any error inside a collective aborts the whole group before the call
//     returns. There is no partial success and no retry.
//   - An abort is delivered to every rank: every pending and future call
//     fails with an error matching ErrAborted that names the originating rank.
//   - Each frame carries its operation and a per-communicator sequence
//     number. A rank that receives a frame for a different collective than
//     the one it is executing fails with ErrMismatch instead of silently
//     mixing payloads.
//
// Root is the coordinator rank (0) by convention; every primitive still
// takes the root explicitly.
package collective

// Package bootstrap resolves a process's place in an lvmatmul group: its
// rank, the world size and the mesh address of every rank.
//
// Three sources are layered, lowest precedence first: a TOML file
// (LoadFile), the MPI_* environment a job scheduler sets (ApplyEnv) and
// command line flags applied by the caller. Peer addresses come from, in
// order, an explicit peer list, an MPI-style hostfile, or the default
// master/worker naming scheme (GenerateHosts).
package bootstrap

// SPDX-License-Identifier: MIT

// Package orchestrator runs one rank of a distributed C = A·B.
//
// Run is the single SPMD program: every rank calls it with its own
// communicator and the same Config, and every rank walks the same sequence
// of steps:
//
//  1. read rank and size from the communicator
//  2. build the row plan (partition.NewPlan)
//  3. allocate the row-local blocks and the role buffers; the coordinator
//     fills A and B from a seeded source
//  4. start the timer
//  5. scatter A's rows
//  6. broadcast B
//  7. multiply the local block (kernel.MulRowBlock)
//  8. gather C on the coordinator (aggregate.Collect)
//  9. stop the timer
//  10. report sums of A, B and C on the coordinator
//
// A failing step aborts the whole group, so no rank is left blocked in a
// collective its peers will never reach.
package orchestrator

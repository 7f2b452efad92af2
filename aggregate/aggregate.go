// SPDX-License-Identifier: MIT

// Package aggregate assembles the distributed product on the coordinator.
//
// Collect gathers every rank's output rows into the coordinator's C buffer in
// rank order, so rank r's block lands at rows [r*rowsPerProc, (r+1)*rowsPerProc).
// Under partition.CoordinatorRemainder the coordinator then computes the
// trailing N mod P rows itself from its full A and B.
package aggregate

import (
	"context"
	"errors"
	"fmt"

	"github.com/katalvlaran/lvmatmul/collective"
	"github.com/katalvlaran/lvmatmul/kernel"
	"github.com/katalvlaran/lvmatmul/partition"
)

var (
	// ErrNoResult indicates the coordinator called Collect without a destination.
	ErrNoResult = errors.New("aggregate: coordinator needs a result destination")

	// ErrResultShape indicates a destination or operand buffer of the wrong length.
	ErrResultShape = errors.New("aggregate: result buffer shape mismatch")
)

// Result is the coordinator's destination. A and B are read only for the
// remainder rows and may be nil when the plan has none.
type Result struct {
	C []float64 // N*N, row-major
	A []float64 // full A, N*N
	B []float64 // full B, N*N
}

// Collect gathers cLocal (plan.ChunkLen() elements) from every rank into
// res.C on collective.Root. Non-coordinators pass a nil res. Any failure
// aborts the group.
func Collect(ctx context.Context, comm collective.Communicator, plan partition.Plan, cLocal []float64, res *Result, opts ...kernel.Option) error {
	rank := comm.Rank()
	fail := func(err error) error {
		err = fmt.Errorf("rank %d: aggregate: %w", rank, err)
		comm.Abort(err)

		return err
	}

	var dst []float64
	if rank == collective.Root {
		if err := checkResult(plan, res); err != nil {
			return fail(err)
		}
		dst = res.C[:plan.Covered()*plan.N]
	}
	if err := comm.Gather(ctx, collective.Root, cLocal, dst); err != nil {
		return err
	}
	if rank != collective.Root || plan.Remainder == 0 {
		return nil
	}

	start, end := plan.RemainderRange()
	n := plan.N
	if err := kernel.MulRowBlock(res.A[start*n:end*n], end-start, n, res.B, res.C[start*n:end*n], opts...); err != nil {
		return fail(err)
	}

	return nil
}

func checkResult(plan partition.Plan, res *Result) error {
	if res == nil {
		return ErrNoResult
	}
	nn := plan.N * plan.N
	if len(res.C) != nn {
		return fmt.Errorf("C has %d elements, want %d: %w", len(res.C), nn, ErrResultShape)
	}
	if plan.Remainder > 0 && (len(res.A) != nn || len(res.B) != nn) {
		return fmt.Errorf("remainder rows need full A and B of %d elements: %w", nn, ErrResultShape)
	}

	return nil
}

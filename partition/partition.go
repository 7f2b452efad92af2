package partition

import "fmt"

// RowsPerProc returns n / p, the number of rows in every rank's block.
// It is pure and side-effect free; invalid input (n < 0, p < 1) yields 0.
func RowsPerProc(n, p int) int {
	if n < 0 || p < 1 {
		return 0
	}

	return n / p
}

// Plan is the row layout shared by every rank of a run.
type Plan struct {
	N           int    // matrix dimension
	P           int    // group size
	RowsPerProc int    // rows per rank block, N / P
	Remainder   int    // trailing rows owned by the coordinator, N mod P (0 under Strict)
	Policy      Policy // how the remainder was resolved
}

// NewPlan validates (n, p) and builds the row layout.
//
// Errors:
//   - ErrBadDimension when n < 1.
//   - ErrBadGroupSize when p < 1.
//   - ErrIndivisible when n % p != 0 and the policy is Strict.
func NewPlan(n, p int, opts ...Option) (Plan, error) {
	if n < 1 {
		return Plan{}, fmt.Errorf("n=%d: %w", n, ErrBadDimension)
	}
	if p < 1 {
		return Plan{}, fmt.Errorf("p=%d: %w", p, ErrBadGroupSize)
	}
	o := gatherOptions(opts...)

	rem := n % p
	if rem != 0 && o.policy == Strict {
		return Plan{}, fmt.Errorf("n=%d p=%d remainder=%d: %w", n, p, rem, ErrIndivisible)
	}

	return Plan{
		N:           n,
		P:           p,
		RowsPerProc: RowsPerProc(n, p),
		Remainder:   rem,
		Policy:      o.policy,
	}, nil
}

// ChunkLen is the element count of one rank's row block (RowsPerProc*N).
// It is the countPerRank of every Scatter and Gather in a run.
func (pl Plan) ChunkLen() int { return pl.RowsPerProc * pl.N }

// Covered is the number of leading rows distributed across the group.
func (pl Plan) Covered() int { return pl.RowsPerProc * pl.P }

// RowRange returns the half-open row interval [start, end) owned by rank.
func (pl Plan) RowRange(rank int) (start, end int, err error) {
	if rank < 0 || rank >= pl.P {
		return 0, 0, fmt.Errorf("rank=%d p=%d: %w", rank, pl.P, ErrRankOutOfRange)
	}
	start = rank * pl.RowsPerProc

	return start, start + pl.RowsPerProc, nil
}

// RemainderRange returns the trailing rows [Covered(), N) the coordinator
// computes on its own. The range is empty when Remainder == 0.
func (pl Plan) RemainderRange() (start, end int) {
	return pl.Covered(), pl.N
}

// String renders the plan for logs.
func (pl Plan) String() string {
	return fmt.Sprintf("n=%d p=%d rowsPerProc=%d remainder=%d policy=%s",
		pl.N, pl.P, pl.RowsPerProc, pl.Remainder, pl.Policy)
}

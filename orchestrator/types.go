// SPDX-License-Identifier: MIT

package orchestrator

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/katalvlaran/lvmatmul/collective"
	"github.com/katalvlaran/lvmatmul/matrix"
	"github.com/katalvlaran/lvmatmul/partition"
)

// DefaultSeed seeds operand generation when Config.Seed is zero.
const DefaultSeed uint64 = 20240601

// Env is the per-rank context Run executes in.
type Env struct {
	Comm   collective.Communicator
	Logger *slog.Logger     // discarded when nil
	Clock  func() time.Time // time.Now when nil
}

// Config is identical on every rank.
type Config struct {
	N       int              // matrix dimension
	Seed    uint64           // operand seed, DefaultSeed when zero
	Policy  partition.Policy // remainder handling, partition.Strict by default
	Workers int              // kernel goroutines per rank, 1 when < 1
	Host    string           // reported in the start line
}

// Role holds the buffers that differ between the coordinator and workers.
// It is either *CoordinatorRole or *WorkerRole.
type Role interface {
	isRole()
}

// CoordinatorRole owns the full operands and the result.
type CoordinatorRole struct {
	A, B, C *matrix.Dense
}

// WorkerRole owns only its replica of B.
type WorkerRole struct {
	B []float64
}

func (*CoordinatorRole) isRole() {}
func (*WorkerRole) isRole()      {}

// bBuffer returns the buffer B is broadcast through.
func bBuffer(r Role) []float64 {
	switch v := r.(type) {
	case *CoordinatorRole:
		return v.B.Data()
	case *WorkerRole:
		return v.B
	}

	return nil
}

// Report is the outcome of Run on one rank. Sums and Result are set on the
// coordinator only.
type Report struct {
	Rank        int
	Size        int
	N           int
	RowsPerProc int
	Remainder   int
	Elapsed     time.Duration

	SumA, SumB, SumC float64
	Result           *matrix.Dense
}

// IsCoordinator reports whether r came from collective.Root.
func (r *Report) IsCoordinator() bool { return r.Rank == collective.Root }

// Summary renders the coordinator's console report.
func (r *Report) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Matrix multiplication: %d x %d matrices with %d processes\n", r.N, r.N, r.Size)
	fmt.Fprintf(&sb, "Matrix A: size=%dx%d, sum=%f\n", r.N, r.N, r.SumA)
	fmt.Fprintf(&sb, "Matrix B: size=%dx%d, sum=%f\n", r.N, r.N, r.SumB)
	fmt.Fprintf(&sb, "Computation completed in %f seconds\n", r.Elapsed.Seconds())
	fmt.Fprintf(&sb, "Result Matrix C: size=%dx%d, sum=%f\n", r.N, r.N, r.SumC)

	return sb.String()
}

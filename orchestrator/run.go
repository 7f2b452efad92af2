// SPDX-License-Identifier: MIT

package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/katalvlaran/lvmatmul/aggregate"
	"github.com/katalvlaran/lvmatmul/collective"
	"github.com/katalvlaran/lvmatmul/kernel"
	"github.com/katalvlaran/lvmatmul/logging"
	"github.com/katalvlaran/lvmatmul/matrix"
	"github.com/katalvlaran/lvmatmul/partition"
)

// rank carries the state of one Run invocation.
type rank struct {
	env  Env
	cfg  Config
	id   int
	size int
	log  *slog.Logger
}

// Run executes the distributed multiplication on this rank. Every rank of
// the group must call Run with the same cfg.
func Run(ctx context.Context, env Env, cfg Config) (*Report, error) {
	if env.Comm == nil {
		return nil, ErrNoComm
	}
	if env.Logger == nil {
		env.Logger = logging.Discard()
	}
	if env.Clock == nil {
		env.Clock = time.Now
	}
	if cfg.Seed == 0 {
		cfg.Seed = DefaultSeed
	}
	if cfg.Workers < 1 {
		cfg.Workers = kernel.DefaultWorkers
	}

	r := &rank{env: env, cfg: cfg, id: env.Comm.Rank(), size: env.Comm.Size()}
	r.log = env.Logger

	return r.run(ctx)
}

func (r *rank) run(ctx context.Context) (*Report, error) {
	comm := r.env.Comm
	r.log.Info("process started", slog.Int("size", r.size), slog.String("host", r.cfg.Host))

	// Every rank validates the plan on its own; identical inputs give
	// identical verdicts, so either all ranks proceed or all fail here.
	plan, err := partition.NewPlan(r.cfg.N, r.size, partition.WithPolicy(r.cfg.Policy))
	if err != nil {
		return nil, r.fail(stepPlan, err)
	}

	aLocal := make([]float64, plan.ChunkLen())
	cLocal := make([]float64, plan.ChunkLen())
	role, err := r.allocate(plan)
	if err != nil {
		return nil, r.fail(stepAllocate, err)
	}
	coord, _ := role.(*CoordinatorRole)

	report := &Report{
		Rank:        r.id,
		Size:        r.size,
		N:           plan.N,
		RowsPerProc: plan.RowsPerProc,
		Remainder:   plan.Remainder,
	}
	if coord != nil {
		if report.SumA, err = matrix.Sum(coord.A); err != nil {
			return nil, r.fail(stepReport, err)
		}
		if report.SumB, err = matrix.Sum(coord.B); err != nil {
			return nil, r.fail(stepReport, err)
		}
		r.log.Info("operands ready", slog.String("plan", plan.String()),
			slog.Float64("sumA", report.SumA), slog.Float64("sumB", report.SumB))
	}

	start := r.env.Clock()

	var src []float64
	if coord != nil {
		src = coord.A.Data()[:plan.Covered()*plan.N]
	}
	if err = comm.Scatter(ctx, collective.Root, src, aLocal); err != nil {
		return nil, r.fail(stepScatter, err)
	}

	b := bBuffer(role)
	if err = comm.Broadcast(ctx, collective.Root, b); err != nil {
		return nil, r.fail(stepBroadcast, err)
	}

	r.log.Info("computing rows", slog.Int("rows", plan.RowsPerProc))
	if err = kernel.MulRowBlock(aLocal, plan.RowsPerProc, plan.N, b, cLocal, kernel.WithWorkers(r.cfg.Workers)); err != nil {
		return nil, r.fail(stepCompute, err)
	}

	var res *aggregate.Result
	if coord != nil {
		res = &aggregate.Result{C: coord.C.Data(), A: coord.A.Data(), B: coord.B.Data()}
	}
	if err = aggregate.Collect(ctx, comm, plan, cLocal, res, kernel.WithWorkers(r.cfg.Workers)); err != nil {
		return nil, r.fail(stepGather, err)
	}

	report.Elapsed = max(r.env.Clock().Sub(start), 0)

	if coord != nil {
		if report.SumC, err = matrix.Sum(coord.C); err != nil {
			return nil, r.fail(stepReport, err)
		}
		report.Result = coord.C
		r.log.Info("computation completed", slog.Duration("elapsed", report.Elapsed), slog.Float64("sumC", report.SumC))
	}

	return report, nil
}

// allocate builds the role buffers. The coordinator draws A then B from one
// seeded stream, so a given seed always yields the same operands.
func (r *rank) allocate(plan partition.Plan) (Role, error) {
	n := plan.N
	if r.id != collective.Root {
		return &WorkerRole{B: make([]float64, n*n)}, nil
	}

	rng := matrix.NewSource(r.cfg.Seed)
	a, err := matrix.NewUniform(n, rng)
	if err != nil {
		return nil, err
	}
	b, err := matrix.NewUniform(n, rng)
	if err != nil {
		return nil, err
	}
	c, err := matrix.NewDense(n, n, matrix.WithValidateNaNInf(false))
	if err != nil {
		return nil, err
	}

	return &CoordinatorRole{A: a, B: b, C: c}, nil
}

// fail aborts the group unless this rank is only observing a peer's abort,
// and tags err with the rank and step.
func (r *rank) fail(step string, err error) error {
	err = stepErrorf(r.id, step, err)
	if !errors.Is(err, collective.ErrAborted) {
		r.env.Comm.Abort(err)
	}
	r.log.Error("step failed", slog.String("step", step), slog.Any("err", err))

	return err
}

package local

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/lvmatmul/collective"
)

// RankFunc is the SPMD body executed once per rank.
type RankFunc func(ctx context.Context, comm *collective.Comm) error

// Run executes fn on size goroutine ranks of a fresh group and waits for all
// of them. A rank returning an error aborts the group, which unblocks every
// other rank. The returned error is the originating failure, not one of the
// secondary ErrAborted errors it caused.
func Run(ctx context.Context, size int, fn RankFunc, opts ...Option) error {
	comms, err := NewGroup(size, opts...)
	if err != nil {
		return err
	}

	var eg errgroup.Group
	errs := make([]error, size)
	for r, comm := range comms {
		eg.Go(func() error {
			defer comm.Close()
			if err := fn(ctx, comm); err != nil {
				if !errors.Is(err, collective.ErrAborted) {
					comm.Abort(fmt.Errorf("rank %d: %w", r, err))
				}
				errs[r] = err

				return err
			}

			return nil
		})
	}
	if eg.Wait() == nil {
		return nil
	}

	return rootCause(errs)
}

// rootCause prefers the first error that is not a consequence of an abort.
func rootCause(errs []error) error {
	var first error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if !errors.Is(err, collective.ErrAborted) {
			return err
		}
		if first == nil {
			first = err
		}
	}

	return first
}

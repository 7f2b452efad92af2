// Package local runs a whole process group inside one Go process: each rank
// is a goroutine and every ordered pair of ranks is connected by a buffered
// channel mailbox. Payloads are deep-copied on Send, so ranks never share
// memory, matching the semantics of a multi-process run.
//
// The package is the default transport for tests, for single-host runs of
// the lvmatmul CLI, and for the P = 1 degenerate case.
package local

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/katalvlaran/lvmatmul/collective"
)

// ErrBadSize indicates a group size below 1.
var ErrBadSize = errors.New("local: group size must be >= 1")

// group is the state shared by all ranks of one in-process group.
type group struct {
	size  int
	boxes [][]chan collective.Frame // boxes[src][dst]

	done  chan struct{} // closed on abort
	once  sync.Once
	cause atomic.Pointer[collective.AbortError]
}

// transport is one rank's view of the group.
type transport struct {
	g      *group
	rank   int
	closed atomic.Bool
}

var _ collective.Transport = (*transport)(nil)

// NewTransports builds size connected transports, index = rank.
func NewTransports(size int, opts ...Option) ([]collective.Transport, error) {
	if size < 1 {
		return nil, fmt.Errorf("size=%d: %w", size, ErrBadSize)
	}
	o := gatherOptions(opts...)

	g := &group{
		size:  size,
		boxes: make([][]chan collective.Frame, size),
		done:  make(chan struct{}),
	}
	for src := range g.boxes {
		g.boxes[src] = make([]chan collective.Frame, size)
		for dst := range g.boxes[src] {
			if src != dst {
				g.boxes[src][dst] = make(chan collective.Frame, o.depth)
			}
		}
	}

	ts := make([]collective.Transport, size)
	for r := range ts {
		ts[r] = &transport{g: g, rank: r}
	}

	return ts, nil
}

// NewGroup builds size connected communicators, index = rank.
func NewGroup(size int, opts ...Option) ([]*collective.Comm, error) {
	ts, err := NewTransports(size, opts...)
	if err != nil {
		return nil, err
	}
	o := gatherOptions(opts...)

	comms := make([]*collective.Comm, size)
	for r, t := range ts {
		comms[r] = collective.New(t, o.commOpts...)
	}

	return comms, nil
}

func (t *transport) Rank() int { return t.rank }
func (t *transport) Size() int { return t.g.size }

// Send copies f into the (rank, dst) mailbox.
func (t *transport) Send(ctx context.Context, dst int, f collective.Frame) error {
	if err := t.usable(); err != nil {
		return err
	}
	if dst < 0 || dst >= t.g.size || dst == t.rank {
		return fmt.Errorf("send to %d: %w", dst, collective.ErrBadPeer)
	}
	f = f.Clone()
	select {
	case t.g.boxes[t.rank][dst] <- f:
		return nil
	case <-t.g.done:
		return t.g.cause.Load()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv takes the next frame from the (src, rank) mailbox.
func (t *transport) Recv(ctx context.Context, src int) (collective.Frame, error) {
	if err := t.usable(); err != nil {
		return collective.Frame{}, err
	}
	if src < 0 || src >= t.g.size || src == t.rank {
		return collective.Frame{}, fmt.Errorf("recv from %d: %w", src, collective.ErrBadPeer)
	}
	select {
	case f := <-t.g.boxes[src][t.rank]:
		return f, nil
	case <-t.g.done:
		return collective.Frame{}, t.g.cause.Load()
	case <-ctx.Done():
		return collective.Frame{}, ctx.Err()
	}
}

// Abort marks the whole group aborted; the first cause wins.
func (t *transport) Abort(cause error) {
	t.g.once.Do(func() {
		t.g.cause.Store(collective.NewAbortError(t.rank, cause))
		close(t.g.done)
	})
}

// Close detaches this rank. Other ranks are unaffected; a peer blocked on
// this rank stays blocked until the group is aborted or its ctx ends.
func (t *transport) Close() error {
	t.closed.Store(true)

	return nil
}

// usable reports an abort before anything else, so a rank never completes a
// rendezvous after the group has failed.
func (t *transport) usable() error {
	select {
	case <-t.g.done:
		return t.g.cause.Load()
	default:
	}
	if t.closed.Load() {
		return collective.ErrClosed
	}

	return nil
}

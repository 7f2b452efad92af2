package collective

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Root is the coordinator rank.
const Root = 0

// Communicator is the process-group handle every SPMD component receives.
// Calls are blocking and must be issued by all ranks in the same order.
type Communicator interface {
	// Rank returns this participant's zero-based rank.
	Rank() int

	// Size returns the number of participants in the group.
	Size() int

	// Broadcast copies root's buf into every other rank's buf.
	// All ranks pass the same root and equal-length buffers.
	Broadcast(ctx context.Context, root int, buf []float64) error

	// Scatter splits root's src (len(dst)*Size() elements) into Size()
	// contiguous chunks in rank order; rank r receives chunk r into dst.
	// Non-root src is ignored and may be nil.
	Scatter(ctx context.Context, root int, src, dst []float64) error

	// Gather collects every rank's src into root's dst (len(src)*Size()
	// elements) in rank order. Non-root dst is ignored and may be nil.
	Gather(ctx context.Context, root int, src, dst []float64) error

	// Barrier blocks until every rank has entered it.
	Barrier(ctx context.Context) error

	// Send delivers payload to rank dst.
	Send(ctx context.Context, dst int, payload []byte) error

	// Recv receives the next payload from rank src into buf and returns its length.
	Recv(ctx context.Context, src int, buf []byte) (int, error)

	// Abort terminates the whole group with cause.
	Abort(cause error)

	// Close releases the underlying transport.
	Close() error
}

var _ Communicator = (*Comm)(nil)

// Comm implements Communicator over a Transport. A Comm belongs to one rank
// and must be driven by a single goroutine, like an MPI communicator.
type Comm struct {
	t      Transport
	rank   int
	size   int
	seq    uint64   // last collective sequence number issued
	sent   []uint64 // point-to-point counters per destination
	recvd  []uint64 // point-to-point counters per source
	logger *slog.Logger
}

// New wraps t in a Comm.
func New(t Transport, opts ...Option) *Comm {
	o := gatherOptions(opts...)
	size := t.Size()

	return &Comm{
		t:      t,
		rank:   t.Rank(),
		size:   size,
		sent:   make([]uint64, size),
		recvd:  make([]uint64, size),
		logger: o.logger.With(slog.Int("rank", t.Rank())),
	}
}

// Rank returns this participant's rank.
func (c *Comm) Rank() int { return c.rank }

// Size returns the group size.
func (c *Comm) Size() int { return c.size }

// Abort terminates the group. Safe to call more than once.
func (c *Comm) Abort(cause error) {
	c.logger.Error("aborting group", slog.Any("cause", cause))
	c.t.Abort(cause)
}

// Close releases the transport.
func (c *Comm) Close() error { return c.t.Close() }

// Broadcast implements Communicator.
func (c *Comm) Broadcast(ctx context.Context, root int, buf []float64) error {
	const op = OpBroadcast
	if err := c.checkRoot(root); err != nil {
		return c.fail(op, err)
	}
	seq := c.nextSeq()
	c.logger.Debug("collective", slog.String("op", op.String()), slog.Uint64("seq", seq), slog.Int("count", len(buf)))

	if c.rank == root {
		for r := 0; r < c.size; r++ {
			if r == root {
				continue
			}
			if err := c.send(ctx, r, Frame{Op: op, Seq: seq, Floats: buf}); err != nil {
				return c.fail(op, err)
			}
		}

		return nil
	}

	f, err := c.expect(ctx, root, op, seq)
	if err != nil {
		return c.fail(op, err)
	}
	if len(f.Floats) != len(buf) {
		return c.fail(op, fmt.Errorf("received %d values into buffer of %d: %w", len(f.Floats), len(buf), ErrBufferSize))
	}
	copy(buf, f.Floats)

	return nil
}

// Scatter implements Communicator.
func (c *Comm) Scatter(ctx context.Context, root int, src, dst []float64) error {
	const op = OpScatter
	if err := c.checkRoot(root); err != nil {
		return c.fail(op, err)
	}
	seq := c.nextSeq()
	count := len(dst)
	c.logger.Debug("collective", slog.String("op", op.String()), slog.Uint64("seq", seq), slog.Int("count", count))

	if c.rank == root {
		if len(src) != count*c.size {
			return c.fail(op, fmt.Errorf("source has %d values, want %d*%d: %w", len(src), count, c.size, ErrBufferSize))
		}
		for r := 0; r < c.size; r++ {
			chunk := src[r*count : (r+1)*count]
			if r == root {
				copy(dst, chunk)
				continue
			}
			if err := c.send(ctx, r, Frame{Op: op, Seq: seq, Floats: chunk}); err != nil {
				return c.fail(op, err)
			}
		}

		return nil
	}

	f, err := c.expect(ctx, root, op, seq)
	if err != nil {
		return c.fail(op, err)
	}
	if len(f.Floats) != count {
		return c.fail(op, fmt.Errorf("received chunk of %d values, want %d: %w", len(f.Floats), count, ErrBufferSize))
	}
	copy(dst, f.Floats)

	return nil
}

// Gather implements Communicator.
func (c *Comm) Gather(ctx context.Context, root int, src, dst []float64) error {
	const op = OpGather
	if err := c.checkRoot(root); err != nil {
		return c.fail(op, err)
	}
	seq := c.nextSeq()
	count := len(src)
	c.logger.Debug("collective", slog.String("op", op.String()), slog.Uint64("seq", seq), slog.Int("count", count))

	if c.rank != root {
		if err := c.send(ctx, root, Frame{Op: op, Seq: seq, Floats: src}); err != nil {
			return c.fail(op, err)
		}

		return nil
	}

	if len(dst) != count*c.size {
		return c.fail(op, fmt.Errorf("destination has %d values, want %d*%d: %w", len(dst), count, c.size, ErrBufferSize))
	}
	for r := 0; r < c.size; r++ {
		chunk := dst[r*count : (r+1)*count]
		if r == root {
			copy(chunk, src)
			continue
		}
		f, err := c.expect(ctx, r, op, seq)
		if err != nil {
			return c.fail(op, err)
		}
		if len(f.Floats) != count {
			return c.fail(op, fmt.Errorf("rank %d contributed %d values, want %d: %w", r, len(f.Floats), count, ErrBufferSize))
		}
		copy(chunk, f.Floats)
	}

	return nil
}

// Barrier implements Communicator as a fan-in to Root followed by a fan-out.
func (c *Comm) Barrier(ctx context.Context) error {
	const op = OpBarrier
	seq := c.nextSeq()

	if c.rank == Root {
		for r := 0; r < c.size; r++ {
			if r == Root {
				continue
			}
			if _, err := c.expect(ctx, r, op, seq); err != nil {
				return c.fail(op, err)
			}
		}
		for r := 0; r < c.size; r++ {
			if r == Root {
				continue
			}
			if err := c.send(ctx, r, Frame{Op: op, Seq: seq}); err != nil {
				return c.fail(op, err)
			}
		}

		return nil
	}

	if err := c.send(ctx, Root, Frame{Op: op, Seq: seq}); err != nil {
		return c.fail(op, err)
	}
	if _, err := c.expect(ctx, Root, op, seq); err != nil {
		return c.fail(op, err)
	}

	return nil
}

// Send implements Communicator.
func (c *Comm) Send(ctx context.Context, dst int, payload []byte) error {
	const op = OpSend
	if err := c.checkPeer(dst); err != nil {
		return c.fail(op, err)
	}
	c.sent[dst]++
	if err := c.send(ctx, dst, Frame{Op: op, Seq: c.sent[dst], Bytes: payload}); err != nil {
		return c.fail(op, err)
	}

	return nil
}

// Recv implements Communicator. A payload longer than buf is an error.
func (c *Comm) Recv(ctx context.Context, src int, buf []byte) (int, error) {
	const op = OpSend
	if err := c.checkPeer(src); err != nil {
		return 0, c.fail(op, err)
	}
	c.recvd[src]++
	f, err := c.expect(ctx, src, op, c.recvd[src])
	if err != nil {
		return 0, c.fail(op, err)
	}
	if len(f.Bytes) > len(buf) {
		return 0, c.fail(op, fmt.Errorf("payload of %d bytes into buffer of %d: %w", len(f.Bytes), len(buf), ErrBufferSize))
	}

	return copy(buf, f.Bytes), nil
}

func (c *Comm) nextSeq() uint64 {
	c.seq++

	return c.seq
}

func (c *Comm) send(ctx context.Context, dst int, f Frame) error {
	f.Origin = c.rank

	return c.t.Send(ctx, dst, f)
}

// expect receives the next frame from src and checks it belongs to the
// collective being executed.
func (c *Comm) expect(ctx context.Context, src int, op Op, seq uint64) (Frame, error) {
	f, err := c.t.Recv(ctx, src)
	if err != nil {
		return Frame{}, err
	}
	if f.Op != op || f.Seq != seq {
		return Frame{}, fmt.Errorf("from rank %d: got %s #%d, executing %s #%d: %w", src, f.Op, f.Seq, op, seq, ErrMismatch)
	}

	return f, nil
}

// fail aborts the group (unless this rank is only observing someone else's
// abort) and returns err tagged with op and rank.
func (c *Comm) fail(op Op, err error) error {
	if !errors.Is(err, ErrAborted) {
		c.Abort(opErrorf(op, c.rank, err))
	}

	return opErrorf(op, c.rank, err)
}

func (c *Comm) checkRoot(root int) error {
	if root < 0 || root >= c.size {
		return fmt.Errorf("root=%d size=%d: %w", root, c.size, ErrBadRoot)
	}

	return nil
}

func (c *Comm) checkPeer(peer int) error {
	if peer < 0 || peer >= c.size || peer == c.rank {
		return fmt.Errorf("peer=%d rank=%d size=%d: %w", peer, c.rank, c.size, ErrBadPeer)
	}

	return nil
}

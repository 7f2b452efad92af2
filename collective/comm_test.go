package collective_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/katalvlaran/lvmatmul/collective"
	"github.com/katalvlaran/lvmatmul/collective/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTimeout bounds every group so a broken rendezvous fails instead of hanging.
const testTimeout = 10 * time.Second

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)

	return ctx
}

// seq returns [start, start+1, ..., start+n-1] as float64.
func seq(start, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(start + i)
	}

	return out
}

// TestBroadcast_BitIdentical checks every rank ends with the exact bits of root's buffer,
// including NaN payloads and negative zero.
func TestBroadcast_BitIdentical(t *testing.T) {
	const size = 4
	src := []float64{1.5, math.Copysign(0, -1), math.Inf(1), math.Float64frombits(0x7ff8000000000abc), 42}
	got := make([][]float64, size)

	err := local.Run(testCtx(t), size, func(ctx context.Context, c *collective.Comm) error {
		buf := make([]float64, len(src))
		if c.Rank() == collective.Root {
			copy(buf, src)
		}
		if err := c.Broadcast(ctx, collective.Root, buf); err != nil {
			return err
		}
		got[c.Rank()] = buf

		return nil
	})
	require.NoError(t, err)

	for r := 0; r < size; r++ {
		require.Len(t, got[r], len(src))
		for i := range src {
			assert.Equal(t, math.Float64bits(src[i]), math.Float64bits(got[r][i]), "rank %d index %d", r, i)
		}
	}
}

// TestBroadcast_NonZeroRoot covers a root other than the coordinator.
func TestBroadcast_NonZeroRoot(t *testing.T) {
	err := local.Run(testCtx(t), 3, func(ctx context.Context, c *collective.Comm) error {
		buf := make([]float64, 3)
		if c.Rank() == 2 {
			copy(buf, []float64{7, 8, 9})
		}
		if err := c.Broadcast(ctx, 2, buf); err != nil {
			return err
		}
		if buf[0] != 7 || buf[2] != 9 {
			return errors.New("broadcast from rank 2 not delivered")
		}

		return nil
	})
	require.NoError(t, err)
}

// TestScatterGather_RoundTrip scatters A and gathers it straight back.
func TestScatterGather_RoundTrip(t *testing.T) {
	for _, size := range []int{1, 2, 3, 5} {
		const count = 6
		full := seq(100, count*size)
		var back []float64

		err := local.Run(testCtx(t), size, func(ctx context.Context, c *collective.Comm) error {
			var src, dst []float64
			if c.Rank() == collective.Root {
				src = full
				dst = make([]float64, len(full))
			}
			chunk := make([]float64, count)
			if err := c.Scatter(ctx, collective.Root, src, chunk); err != nil {
				return err
			}
			// Each chunk is the rank's contiguous slice of the source.
			want := seq(100+c.Rank()*count, count)
			for i := range want {
				if chunk[i] != want[i] {
					return errors.New("scatter delivered the wrong chunk")
				}
			}
			if err := c.Gather(ctx, collective.Root, chunk, dst); err != nil {
				return err
			}
			if c.Rank() == collective.Root {
				back = dst
			}

			return nil
		})
		require.NoError(t, err, "size=%d", size)
		assert.Equal(t, full, back, "size=%d", size)
	}
}

// TestScatterGather_EmptyChunks allows zero-length chunks (more ranks than rows).
func TestScatterGather_EmptyChunks(t *testing.T) {
	err := local.Run(testCtx(t), 3, func(ctx context.Context, c *collective.Comm) error {
		var src, dst []float64
		if c.Rank() == collective.Root {
			src, dst = []float64{}, []float64{}
		}
		if err := c.Scatter(ctx, collective.Root, src, nil); err != nil {
			return err
		}

		return c.Gather(ctx, collective.Root, nil, dst)
	})
	require.NoError(t, err)
}

// TestBarrier checks repeated barriers complete on every rank.
func TestBarrier(t *testing.T) {
	err := local.Run(testCtx(t), 4, func(ctx context.Context, c *collective.Comm) error {
		for i := 0; i < 3; i++ {
			if err := c.Barrier(ctx); err != nil {
				return err
			}
		}

		return nil
	})
	require.NoError(t, err)
}

// TestSendRecv exercises the point-to-point path used by the ping-pong probe.
func TestSendRecv(t *testing.T) {
	err := local.Run(testCtx(t), 2, func(ctx context.Context, c *collective.Comm) error {
		buf := make([]byte, 8)
		if c.Rank() == 0 {
			if err := c.Send(ctx, 1, []byte("ping")); err != nil {
				return err
			}
			n, err := c.Recv(ctx, 1, buf)
			if err != nil {
				return err
			}
			if string(buf[:n]) != "pong" {
				return errors.New("unexpected reply")
			}

			return nil
		}
		n, err := c.Recv(ctx, 0, buf)
		if err != nil {
			return err
		}
		if string(buf[:n]) != "ping" {
			return errors.New("unexpected request")
		}

		return c.Send(ctx, 0, []byte("pong"))
	})
	require.NoError(t, err)
}

// TestMismatch_Detected verifies that ranks issuing different collectives fail
// with ErrMismatch rather than mixing payloads.
func TestMismatch_Detected(t *testing.T) {
	err := local.Run(testCtx(t), 2, func(ctx context.Context, c *collective.Comm) error {
		buf := make([]float64, 2)
		if c.Rank() == collective.Root {
			return c.Broadcast(ctx, collective.Root, buf)
		}

		return c.Scatter(ctx, collective.Root, nil, buf)
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, collective.ErrMismatch) || errors.Is(err, collective.ErrAborted))
}

// TestBufferSize_AbortsGroup checks a root-side precondition failure is
// surfaced on the root and propagated as an abort to the waiting ranks.
func TestBufferSize_AbortsGroup(t *testing.T) {
	errs := make([]error, 3)
	_ = local.Run(testCtx(t), 3, func(ctx context.Context, c *collective.Comm) error {
		dst := make([]float64, 2)
		var src []float64
		if c.Rank() == collective.Root {
			src = make([]float64, 5) // want 2*3
		}
		errs[c.Rank()] = c.Scatter(ctx, collective.Root, src, dst)

		return errs[c.Rank()]
	})

	require.ErrorIs(t, errs[0], collective.ErrBufferSize)
	for r := 1; r < 3; r++ {
		require.ErrorIs(t, errs[r], collective.ErrAborted, "rank %d", r)
		var ae *collective.AbortError
		require.ErrorAs(t, errs[r], &ae)
		assert.Equal(t, 0, ae.Rank)
	}
}

// TestAbort_UnblocksPeers aborts from a worker while the root waits in Gather.
func TestAbort_UnblocksPeers(t *testing.T) {
	boom := errors.New("allocation failed")
	err := local.Run(testCtx(t), 3, func(ctx context.Context, c *collective.Comm) error {
		if c.Rank() == 2 {
			return boom
		}
		var dst []float64
		if c.Rank() == collective.Root {
			dst = make([]float64, 3)
		}

		return c.Gather(ctx, collective.Root, []float64{1}, dst)
	})
	require.ErrorIs(t, err, boom, "the originating failure is reported")
}

// TestBadRootAndPeer covers locally checked argument errors.
func TestBadRootAndPeer(t *testing.T) {
	comms, err := local.NewGroup(1)
	require.NoError(t, err)
	c := comms[0]

	require.ErrorIs(t, c.Broadcast(testCtx(t), 1, nil), collective.ErrBadRoot)

	comms, err = local.NewGroup(2)
	require.NoError(t, err)
	require.ErrorIs(t, comms[0].Send(testCtx(t), 0, []byte("x")), collective.ErrBadPeer)
}

// TestSingleRank_Identity checks P = 1: every primitive is a local copy.
func TestSingleRank_Identity(t *testing.T) {
	comms, err := local.NewGroup(1)
	require.NoError(t, err)
	c := comms[0]
	ctx := testCtx(t)

	src := seq(0, 4)
	dst := make([]float64, 4)
	require.NoError(t, c.Scatter(ctx, collective.Root, src, dst))
	assert.Equal(t, src, dst)

	out := make([]float64, 4)
	require.NoError(t, c.Gather(ctx, collective.Root, dst, out))
	assert.Equal(t, src, out)

	require.NoError(t, c.Broadcast(ctx, collective.Root, out))
	require.NoError(t, c.Barrier(ctx))
}

// TestContextCancel ensures a blocked rank honors cancellation.
func TestContextCancel(t *testing.T) {
	comms, err := local.NewGroup(2)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = comms[1].Broadcast(ctx, collective.Root, make([]float64, 1))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The cancelled rank aborted the group; rank 0 now fails fast.
	require.ErrorIs(t, comms[0].Barrier(testCtx(t)), collective.ErrAborted)
}

package wsmesh_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/lvmatmul/collective"
	"github.com/katalvlaran/lvmatmul/collective/wsmesh"
)

// loopback pre-binds one listener per rank and returns matching configs.
func loopback(t *testing.T, size int) []wsmesh.Config {
	t.Helper()
	lns := make([]net.Listener, size)
	peers := make([]string, size)
	for r := range lns {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		lns[r] = ln
		peers[r] = ln.Addr().String()
	}
	cfgs := make([]wsmesh.Config, size)
	for r := range cfgs {
		cfgs[r] = wsmesh.Config{
			Rank:          r,
			Size:          size,
			Peers:         peers,
			Listener:      lns[r],
			RetryInterval: 10 * time.Millisecond,
			CloseGrace:    500 * time.Millisecond,
		}
	}

	return cfgs
}

// runMesh connects every rank concurrently and runs fn on each.
func runMesh(t *testing.T, size int, fn func(ctx context.Context, c *collective.Comm) error) []error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfgs := loopback(t, size)
	errs := make([]error, size)
	var eg errgroup.Group
	for r := range cfgs {
		eg.Go(func() error {
			c, err := wsmesh.Dial(ctx, cfgs[r])
			if err != nil {
				errs[r] = err

				return err
			}
			defer c.Close()
			errs[r] = fn(ctx, c)

			return errs[r]
		})
	}
	_ = eg.Wait()

	return errs
}

func TestMesh_Collectives(t *testing.T) {
	const size, count = 3, 4
	var gathered []float64

	errs := runMesh(t, size, func(ctx context.Context, c *collective.Comm) error {
		b := make([]float64, 2)
		if c.Rank() == collective.Root {
			b[0], b[1] = 3.25, -1
		}
		if err := c.Broadcast(ctx, collective.Root, b); err != nil {
			return err
		}
		if b[0] != 3.25 || b[1] != -1 {
			return errors.New("broadcast payload differs")
		}

		var src, dst []float64
		if c.Rank() == collective.Root {
			src = make([]float64, size*count)
			for i := range src {
				src[i] = float64(i)
			}
			dst = make([]float64, size*count)
		}
		chunk := make([]float64, count)
		if err := c.Scatter(ctx, collective.Root, src, chunk); err != nil {
			return err
		}
		for i := range chunk {
			chunk[i] *= 2
		}
		if err := c.Gather(ctx, collective.Root, chunk, dst); err != nil {
			return err
		}
		if c.Rank() == collective.Root {
			gathered = dst
		}

		return c.Barrier(ctx)
	})
	for r, err := range errs {
		require.NoError(t, err, "rank %d", r)
	}
	require.Len(t, gathered, size*count)
	for i, v := range gathered {
		assert.Equal(t, float64(2*i), v)
	}
}

func TestMesh_SendRecv(t *testing.T) {
	errs := runMesh(t, 2, func(ctx context.Context, c *collective.Comm) error {
		buf := make([]byte, 1<<16)
		payload := make([]byte, len(buf))
		for i := range payload {
			payload[i] = byte(i)
		}
		if c.Rank() == 0 {
			if err := c.Send(ctx, 1, payload); err != nil {
				return err
			}
			n, err := c.Recv(ctx, 1, buf)
			if err != nil {
				return err
			}
			if n != len(payload) || buf[n-1] != payload[n-1] {
				return errors.New("echo corrupted")
			}

			return nil
		}
		n, err := c.Recv(ctx, 0, buf)
		if err != nil {
			return err
		}

		return c.Send(ctx, 0, buf[:n])
	})
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
}

func TestMesh_AbortPropagates(t *testing.T) {
	boom := errors.New("worker failed")
	errs := runMesh(t, 3, func(ctx context.Context, c *collective.Comm) error {
		if c.Rank() == 2 {
			c.Abort(boom)

			return boom
		}

		return c.Barrier(ctx)
	})
	require.ErrorIs(t, errs[2], boom)
	for r := 0; r < 2; r++ {
		require.ErrorIs(t, errs[r], collective.ErrAborted, "rank %d", r)
		var ae *collective.AbortError
		require.ErrorAs(t, errs[r], &ae)
		assert.Equal(t, 2, ae.Rank)
		assert.Contains(t, ae.Reason, "worker failed")
	}
}

func TestMesh_SingleRank(t *testing.T) {
	c, err := wsmesh.Dial(context.Background(), wsmesh.Config{Rank: 0, Size: 1})
	require.NoError(t, err)
	defer c.Close()

	src := []float64{1, 2}
	dst := make([]float64, 2)
	require.NoError(t, c.Scatter(context.Background(), collective.Root, src, dst))
	assert.Equal(t, src, dst)
}

func TestConfig_Validate(t *testing.T) {
	require.ErrorIs(t, wsmesh.Config{Size: 0}.Validate(), wsmesh.ErrConfig)
	require.ErrorIs(t, wsmesh.Config{Rank: 2, Size: 2, Peers: []string{"a", "b"}}.Validate(), wsmesh.ErrConfig)
	require.ErrorIs(t, wsmesh.Config{Rank: 0, Size: 2, Peers: []string{"a"}}.Validate(), wsmesh.ErrConfig)
	require.NoError(t, wsmesh.Config{Rank: 1, Size: 2, Peers: []string{"a", "b"}}.Validate())
}

func TestConnect_Timeout(t *testing.T) {
	cfgs := loopback(t, 2)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// Rank 1 is never started.
	_, err := wsmesh.Connect(ctx, cfgs[0])
	require.ErrorIs(t, err, context.DeadlineExceeded)
	_ = cfgs[1].Listener.Close()
}

package collective

import "context"

// Transport moves Frames between ranks of a fixed group.
//
// Contract:
//   - Frames between one ordered (src, dst) pair are delivered reliably and
//     in send order. No ordering is implied across different pairs.
//   - Send must not retain f's slices after it returns.
//   - Abort is idempotent and group-wide: once any rank aborts, every Send
//     and Recv on every rank fails with an error matching ErrAborted.
//   - Send and Recv honor ctx cancellation.
type Transport interface {
	Rank() int
	Size() int
	Send(ctx context.Context, dst int, f Frame) error
	Recv(ctx context.Context, src int) (Frame, error)
	Abort(cause error)
	Close() error
}

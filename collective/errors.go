package collective

import (
	"errors"
	"fmt"
)

var (
	// ErrAborted indicates the group was aborted; see AbortError for the origin.
	ErrAborted = errors.New("collective: group aborted")

	// ErrMismatch indicates a frame arrived for a different collective or
	// sequence number than the one being executed.
	ErrMismatch = errors.New("collective: collective call mismatch")

	// ErrBufferSize indicates a buffer length that violates the primitive's
	// contract (e.g. Scatter source != count*size) or a peer payload of the wrong length.
	ErrBufferSize = errors.New("collective: buffer size mismatch")

	// ErrBadRoot indicates a root rank outside [0, Size()).
	ErrBadRoot = errors.New("collective: root out of range")

	// ErrBadPeer indicates a point-to-point peer outside [0, Size()) or equal to self.
	ErrBadPeer = errors.New("collective: peer out of range")

	// ErrClosed indicates use of a communicator or transport after Close.
	ErrClosed = errors.New("collective: closed")

	// ErrBadFrame indicates an undecodable wire frame.
	ErrBadFrame = errors.New("collective: malformed frame")
)

// AbortError is what every rank observes once the group has been aborted.
// It matches ErrAborted via errors.Is and unwraps to the local cause when
// the abort originated on this rank.
type AbortError struct {
	Rank   int    // rank that initiated the abort
	Reason string // originating error text
	cause  error  // set only on the originating rank
}

// NewAbortError builds the group abort error for an abort initiated by rank.
func NewAbortError(rank int, cause error) *AbortError {
	reason := "aborted"
	if cause != nil {
		reason = cause.Error()
	}

	return &AbortError{Rank: rank, Reason: reason, cause: cause}
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("collective: group aborted by rank %d: %s", e.Rank, e.Reason)
}

// Is reports ErrAborted.
func (e *AbortError) Is(target error) bool { return target == ErrAborted }

// Unwrap returns the local cause, nil on ranks that learned of the abort remotely.
func (e *AbortError) Unwrap() error { return e.cause }

// opErrorf tags err with the primitive name and rank.
func opErrorf(op Op, rank int, err error) error {
	return fmt.Errorf("rank %d: %s: %w", rank, op, err)
}

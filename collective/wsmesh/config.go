package wsmesh

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"
)

const (
	// DefaultPath is the HTTP path every rank serves its mesh endpoint on.
	DefaultPath = "/lvmatmul/mesh"

	// DefaultRetryInterval is the pause between dial attempts to a peer that
	// is not listening yet.
	DefaultRetryInterval = 200 * time.Millisecond

	// DefaultInboxDepth is the per-peer queue of decoded frames.
	DefaultInboxDepth = 64

	// DefaultCloseGrace bounds the closing handshake in Close and the abort
	// notice in Abort.
	DefaultCloseGrace = 2 * time.Second
)

var (
	// ErrConfig indicates an inconsistent mesh configuration.
	ErrConfig = errors.New("wsmesh: invalid configuration")

	// ErrHandshake indicates a peer announced an unexpected rank or world size.
	ErrHandshake = errors.New("wsmesh: handshake rejected")

	// ErrPeerGone indicates a peer closed its side of the mesh.
	ErrPeerGone = errors.New("wsmesh: peer closed connection")
)

// Config describes one rank's place in the mesh.
type Config struct {
	Rank  int
	Size  int
	Peers []string // host:port of every rank, indexed by rank

	// Listener, when set, is used instead of listening on Peers[Rank].
	Listener net.Listener

	Path          string        // DefaultPath when empty
	RetryInterval time.Duration // DefaultRetryInterval when zero
	InboxDepth    int           // DefaultInboxDepth when zero
	CloseGrace    time.Duration // DefaultCloseGrace when zero
	Logger        *slog.Logger  // discarded when nil
}

// withDefaults fills zero fields.
func (c Config) withDefaults() Config {
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	if c.InboxDepth <= 0 {
		c.InboxDepth = DefaultInboxDepth
	}
	if c.CloseGrace <= 0 {
		c.CloseGrace = DefaultCloseGrace
	}

	return c
}

// Validate checks rank, size and the peer table.
func (c Config) Validate() error {
	if c.Size < 1 {
		return fmt.Errorf("size=%d: %w", c.Size, ErrConfig)
	}
	if c.Rank < 0 || c.Rank >= c.Size {
		return fmt.Errorf("rank=%d size=%d: %w", c.Rank, c.Size, ErrConfig)
	}
	if c.Size > 1 && len(c.Peers) != c.Size {
		return fmt.Errorf("%d peers for size %d: %w", len(c.Peers), c.Size, ErrConfig)
	}

	return nil
}

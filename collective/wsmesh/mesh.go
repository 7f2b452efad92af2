// Package wsmesh connects the ranks of a multi-process group with a full
// mesh of websocket connections, one per pair of ranks.
//
// Every rank serves an HTTP upgrade endpoint on its own address and dials
// every lower rank, so each pair ends up with exactly one connection. The
// dialing rank opens with a hello frame naming its rank and the world size;
// the accepting rank rejects anything that does not match its own view of
// the group. Frames travel as binary websocket messages encoded with
// collective.Frame.MarshalBinary.
//
// A rank that loses a connection without a closing handshake aborts the
// group. A graceful Close sends a normal-closure control frame so peers can
// tell a finished rank from a crashed one.
package wsmesh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/katalvlaran/lvmatmul/collective"
)

type peer struct {
	rank  int
	conn  *websocket.Conn
	wmu   sync.Mutex // gorilla allows one concurrent writer
	inbox chan collective.Frame
	gone  chan struct{} // closed when the reader exits
}

// Transport is one rank's endpoint of the mesh.
type Transport struct {
	cfg    Config
	logger *slog.Logger

	ln    net.Listener
	srv   *http.Server
	peers []*peer // indexed by rank, nil for self

	arrivals chan *peer // accepted, handshaken connections from higher ranks

	done      chan struct{}
	abortOnce sync.Once
	cause     atomic.Pointer[collective.AbortError]

	closeOnce sync.Once
	closed    atomic.Bool
}

var _ collective.Transport = (*Transport)(nil)

// Dial joins the mesh and wraps the transport in a collective.Comm.
func Dial(ctx context.Context, cfg Config, opts ...collective.Option) (*collective.Comm, error) {
	t, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return collective.New(t, opts...), nil
}

// Connect listens on this rank's address, dials all lower ranks, waits for
// all higher ranks, and returns once the mesh is complete or ctx ends.
func Connect(ctx context.Context, cfg Config) (*Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	t := &Transport{
		cfg:      cfg,
		logger:   logger.With(slog.Int("rank", cfg.Rank)),
		peers:    make([]*peer, cfg.Size),
		arrivals: make(chan *peer, cfg.Size),
		done:     make(chan struct{}),
	}
	if cfg.Size == 1 {
		return t, nil
	}

	if err := t.listen(); err != nil {
		return nil, err
	}
	if err := t.connect(ctx); err != nil {
		t.shutdown()

		return nil, err
	}
	for _, p := range t.peers {
		if p != nil {
			go t.read(p)
		}
	}
	t.logger.Info("mesh ready", slog.Int("size", cfg.Size), slog.String("addr", t.ln.Addr().String()))

	return t, nil
}

// Rank returns this rank.
func (t *Transport) Rank() int { return t.cfg.Rank }

// Size returns the world size.
func (t *Transport) Size() int { return t.cfg.Size }

// Addr returns the listening address, nil for a single-rank group.
func (t *Transport) Addr() net.Addr {
	if t.ln == nil {
		return nil
	}

	return t.ln.Addr()
}

func (t *Transport) listen() error {
	ln := t.cfg.Listener
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", t.cfg.Peers[t.cfg.Rank])
		if err != nil {
			return fmt.Errorf("wsmesh: listen %s: %w", t.cfg.Peers[t.cfg.Rank], err)
		}
	}
	t.ln = ln

	mux := http.NewServeMux()
	mux.HandleFunc(t.cfg.Path, t.accept)
	t.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := t.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Error("mesh server stopped", slog.Any("err", err))
		}
	}()

	return nil
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1 << 16,
	WriteBufferSize: 1 << 16,
}

// accept upgrades a connection from a higher rank and validates its hello.
func (t *Transport) accept(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.logger.Warn("upgrade failed", slog.Any("err", err))

		return
	}
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.logger.Warn("hello not received", slog.Any("err", err))
		_ = conn.Close()

		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	var hello collective.Frame
	if err = hello.UnmarshalBinary(msg); err == nil {
		err = t.checkHello(hello)
	}
	if err != nil {
		t.logger.Warn("rejecting peer", slog.Any("err", err))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()),
			time.Now().Add(time.Second))
		_ = conn.Close()

		return
	}
	t.arrivals <- t.newPeer(hello.Origin, conn)
}

func (t *Transport) checkHello(f collective.Frame) error {
	switch {
	case f.Op != collective.OpHello:
		return fmt.Errorf("first frame is %s: %w", f.Op, ErrHandshake)
	case int(f.Seq) != t.cfg.Size:
		return fmt.Errorf("peer world size %d, ours %d: %w", f.Seq, t.cfg.Size, ErrHandshake)
	case f.Origin <= t.cfg.Rank || f.Origin >= t.cfg.Size:
		return fmt.Errorf("unexpected dialing rank %d: %w", f.Origin, ErrHandshake)
	}

	return nil
}

func (t *Transport) newPeer(rank int, conn *websocket.Conn) *peer {
	return &peer{
		rank:  rank,
		conn:  conn,
		inbox: make(chan collective.Frame, t.cfg.InboxDepth),
		gone:  make(chan struct{}),
	}
}

// connect dials lower ranks and collects arrivals from higher ranks.
func (t *Transport) connect(ctx context.Context) error {
	for r := 0; r < t.cfg.Rank; r++ {
		conn, err := t.dial(ctx, r)
		if err != nil {
			return err
		}
		t.peers[r] = t.newPeer(r, conn)
	}

	for want := t.cfg.Size - 1 - t.cfg.Rank; want > 0; {
		select {
		case p := <-t.arrivals:
			if t.peers[p.rank] != nil {
				_ = p.conn.Close()

				return fmt.Errorf("duplicate connection from rank %d: %w", p.rank, ErrHandshake)
			}
			t.peers[p.rank] = p
			want--
		case <-ctx.Done():
			return fmt.Errorf("wsmesh: waiting for higher ranks: %w", ctx.Err())
		}
	}

	return nil
}

// dial retries until peer r accepts or ctx ends; peers start in any order.
func (t *Transport) dial(ctx context.Context, r int) (*websocket.Conn, error) {
	url := "ws://" + t.cfg.Peers[r] + t.cfg.Path
	hello, err := collective.Frame{Op: collective.OpHello, Origin: t.cfg.Rank, Seq: uint64(t.cfg.Size)}.MarshalBinary()
	if err != nil {
		return nil, err
	}

	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err == nil {
			if err = conn.WriteMessage(websocket.BinaryMessage, hello); err == nil {
				t.logger.Debug("dialed peer", slog.Int("peer", r), slog.String("url", url))

				return conn, nil
			}
			_ = conn.Close()
		}
		t.logger.Debug("dial retry", slog.Int("peer", r), slog.Any("err", err))

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wsmesh: dial rank %d at %s: %w", r, url, ctx.Err())
		case <-time.After(t.cfg.RetryInterval):
		}
	}
}

// read decodes frames from p until the connection ends.
func (t *Transport) read(p *peer) {
	defer close(p.gone)
	for {
		_, msg, err := p.conn.ReadMessage()
		if err != nil {
			t.lost(p, err)

			return
		}
		var f collective.Frame
		if err = f.UnmarshalBinary(msg); err != nil {
			t.Abort(fmt.Errorf("frame from rank %d: %w", p.rank, err))

			return
		}
		if f.Op == collective.OpAbort {
			t.remoteAbort(f)

			return
		}
		select {
		case p.inbox <- f:
		case <-t.done:
			return
		}
	}
}

// lost classifies a read error: a closing handshake or our own shutdown is
// benign, anything else means the peer died and the group must abort.
func (t *Transport) lost(p *peer, err error) {
	if t.closed.Load() || t.isAborted() {
		return
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		t.logger.Debug("peer closed", slog.Int("peer", p.rank))

		return
	}
	t.Abort(fmt.Errorf("lost connection to rank %d: %w", p.rank, err))
}

// Send encodes f and writes it to dst. ctx's deadline, if any, bounds the write.
func (t *Transport) Send(ctx context.Context, dst int, f collective.Frame) error {
	p, err := t.peer(dst)
	if err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	msg, err := f.MarshalBinary()
	if err != nil {
		return err
	}

	p.wmu.Lock()
	defer p.wmu.Unlock()
	deadline, _ := ctx.Deadline()
	_ = p.conn.SetWriteDeadline(deadline)
	if err = p.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
		if t.isAborted() {
			return t.cause.Load()
		}

		return fmt.Errorf("wsmesh: write to rank %d: %w", dst, err)
	}

	return nil
}

// Recv returns the next frame from src.
func (t *Transport) Recv(ctx context.Context, src int) (collective.Frame, error) {
	p, err := t.peer(src)
	if err != nil {
		return collective.Frame{}, err
	}
	select {
	case f := <-p.inbox:
		return f, nil
	case <-t.done:
		return collective.Frame{}, t.cause.Load()
	case <-ctx.Done():
		return collective.Frame{}, ctx.Err()
	case <-p.gone:
		// The reader queues everything it read before exiting.
		select {
		case f := <-p.inbox:
			return f, nil
		default:
		}
		if t.isAborted() {
			return collective.Frame{}, t.cause.Load()
		}

		return collective.Frame{}, fmt.Errorf("rank %d: %w", src, ErrPeerGone)
	}
}

// Abort records cause, notifies every peer and tears the mesh down.
func (t *Transport) Abort(cause error) {
	t.abortOnce.Do(func() {
		ae := collective.NewAbortError(t.cfg.Rank, cause)
		t.cause.Store(ae)
		close(t.done)
		t.logger.Error("group aborted", slog.Any("cause", cause))
		t.announce(ae)
		t.shutdown()
	})
}

// remoteAbort adopts an abort announced by a peer and relays it, so every
// connection carries the notice ahead of its teardown.
func (t *Transport) remoteAbort(f collective.Frame) {
	t.abortOnce.Do(func() {
		ae := &collective.AbortError{Rank: f.Origin, Reason: string(f.Bytes)}
		t.cause.Store(ae)
		close(t.done)
		t.logger.Error("group aborted by peer", slog.Int("origin", f.Origin), slog.String("reason", ae.Reason))
		t.announce(ae)
		t.shutdown()
	})
}

// announce writes an abort notice to every peer, best effort.
func (t *Transport) announce(ae *collective.AbortError) {
	notice, err := collective.Frame{Op: collective.OpAbort, Origin: ae.Rank, Bytes: []byte(ae.Reason)}.MarshalBinary()
	if err != nil {
		return
	}
	for _, p := range t.peers {
		if p == nil || p.rank == ae.Rank {
			continue
		}
		// A writer stuck on a dead peer keeps the lock; skip that peer.
		if !p.wmu.TryLock() {
			continue
		}
		_ = p.conn.SetWriteDeadline(time.Now().Add(t.cfg.CloseGrace))
		_ = p.conn.WriteMessage(websocket.BinaryMessage, notice)
		p.wmu.Unlock()
	}
}

// Close performs the closing handshake with every peer and stops the server.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		for _, p := range t.peers {
			if p == nil {
				continue
			}
			p.wmu.Lock()
			_ = p.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(t.cfg.CloseGrace))
			p.wmu.Unlock()
		}
		// Wait for each peer's closing echo so unread data is not reset.
		timeout := time.After(t.cfg.CloseGrace)
		for _, p := range t.peers {
			if p == nil {
				continue
			}
			select {
			case <-p.gone:
			case <-timeout:
			}
		}
		t.shutdown()
	})

	return nil
}

// shutdown closes sockets and the server without any handshake.
func (t *Transport) shutdown() {
	for _, p := range t.peers {
		if p != nil {
			_ = p.conn.Close()
		}
	}
	if t.srv != nil {
		_ = t.srv.Close()
	}
}

func (t *Transport) peer(r int) (*peer, error) {
	if t.isAborted() {
		return nil, t.cause.Load()
	}
	if t.closed.Load() {
		return nil, collective.ErrClosed
	}
	if r < 0 || r >= t.cfg.Size || r == t.cfg.Rank || t.peers[r] == nil {
		return nil, fmt.Errorf("peer %d: %w", r, collective.ErrBadPeer)
	}

	return t.peers[r], nil
}

func (t *Transport) isAborted() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

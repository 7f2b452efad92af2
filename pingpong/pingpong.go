// Package pingpong measures point-to-point round-trip latency and bandwidth
// between ranks 0 and 1 of a group.
//
// The two ranks take turns as sender: on iteration i, rank i%2 sends the
// message and waits for the echo. Rank 1 reports its own round trips to
// rank 0 at the end, so the coordinator's Stats cover every iteration.
// Ranks above 1 only join the opening and closing barriers.
package pingpong

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/katalvlaran/lvmatmul/collective"
	"github.com/katalvlaran/lvmatmul/logging"
)

const (
	// DefaultIterations is the number of round trips.
	DefaultIterations = 10

	// DefaultMessageSize is the payload of one message, in bytes.
	DefaultMessageSize = 1_000_000

	mib = 1024 * 1024
)

var (
	// ErrGroupTooSmall indicates a group with fewer than two ranks.
	ErrGroupTooSmall = errors.New("pingpong: world size must be >= 2")

	// ErrCorrupt indicates an echoed message that differs from the one sent.
	ErrCorrupt = errors.New("pingpong: echoed payload differs")
)

// Options configures Run. Zero fields take their defaults.
type Options struct {
	Iterations  int
	MessageSize int
	Logger      *slog.Logger
}

// Stats is the coordinator's summary. Other ranks get Stats with only
// Iterations and MessageSize set.
type Stats struct {
	Iterations     int
	MessageSize    int
	Total          time.Duration
	Rounds         []time.Duration // per iteration, in iteration order
	AvgRoundTrip   time.Duration
	BandwidthMiBps float64
}

// Summary renders the result block printed by the CLI.
func (s *Stats) Summary() string {
	return fmt.Sprintf("\n=== Ping-pong Test Results ===\n"+
		"Total time: %f seconds\n"+
		"Average time per round-trip: %f seconds\n"+
		"Bandwidth: %f MB/s\n",
		s.Total.Seconds(), s.AvgRoundTrip.Seconds(), s.BandwidthMiBps)
}

// Run executes the probe. Every rank of comm must call it with equal options.
func Run(ctx context.Context, comm collective.Communicator, opts Options) (*Stats, error) {
	if opts.Iterations < 1 {
		opts.Iterations = DefaultIterations
	}
	if opts.MessageSize < 1 {
		opts.MessageSize = DefaultMessageSize
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	rank := comm.Rank()
	if comm.Size() < 2 {
		return nil, fmt.Errorf("size %d: %w", comm.Size(), ErrGroupTooSmall)
	}

	stats := &Stats{Iterations: opts.Iterations, MessageSize: opts.MessageSize}
	if err := comm.Barrier(ctx); err != nil {
		return nil, err
	}

	if rank < 2 {
		log.Info("starting ping-pong test", slog.Int("iterations", opts.Iterations), slog.Int("bytes", opts.MessageSize))
		rounds, err := play(ctx, comm, opts, log)
		if err != nil {
			comm.Abort(err)

			return nil, err
		}
		if err = exchange(ctx, comm, rounds); err != nil {
			comm.Abort(err)

			return nil, err
		}
		stats.Rounds = rounds
	}

	if err := comm.Barrier(ctx); err != nil {
		return nil, err
	}
	if rank == collective.Root {
		stats.finish()
	} else {
		stats.Rounds = nil
	}

	return stats, nil
}

// play runs the alternating send/echo loop and returns the durations this
// rank measured as sender, zero elsewhere.
func play(ctx context.Context, comm collective.Communicator, opts Options, log *slog.Logger) ([]time.Duration, error) {
	rank := comm.Rank()
	partner := 1 - rank
	msg := make([]byte, opts.MessageSize)
	for i := range msg {
		msg[i] = byte(i % 128)
	}
	echo := make([]byte, opts.MessageSize)
	rounds := make([]time.Duration, opts.Iterations)

	for it := 0; it < opts.Iterations; it++ {
		if rank == it%2 {
			start := time.Now()
			if err := comm.Send(ctx, partner, msg); err != nil {
				return nil, err
			}
			n, err := comm.Recv(ctx, partner, echo)
			if err != nil {
				return nil, err
			}
			rounds[it] = time.Since(start)
			if n != len(msg) || echo[n-1] != msg[n-1] || echo[0] != msg[0] {
				return nil, fmt.Errorf("iteration %d: %w", it, ErrCorrupt)
			}
			log.Info("round trip", slog.Int("iteration", it), slog.Duration("elapsed", rounds[it]))

			continue
		}
		n, err := comm.Recv(ctx, partner, echo)
		if err != nil {
			return nil, err
		}
		if err = comm.Send(ctx, partner, echo[:n]); err != nil {
			return nil, err
		}
	}

	return rounds, nil
}

// exchange moves rank 1's measurements into rank 0's rounds.
func exchange(ctx context.Context, comm collective.Communicator, rounds []time.Duration) error {
	buf := make([]byte, 8*len(rounds))
	if comm.Rank() == 1 {
		for i, d := range rounds {
			binary.LittleEndian.PutUint64(buf[8*i:], uint64(d))
		}

		return comm.Send(ctx, collective.Root, buf)
	}

	n, err := comm.Recv(ctx, 1, buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("timings of %d bytes, want %d: %w", n, len(buf), collective.ErrBufferSize)
	}
	for i := 1; i < len(rounds); i += 2 {
		rounds[i] = time.Duration(binary.LittleEndian.Uint64(buf[8*i:]))
	}

	return nil
}

func (s *Stats) finish() {
	for _, d := range s.Rounds {
		s.Total += d
	}
	s.AvgRoundTrip = s.Total / time.Duration(s.Iterations)
	if secs := s.Total.Seconds(); secs > 0 {
		s.BandwidthMiBps = float64(s.MessageSize) * float64(s.Iterations) * 2 / secs / mib
	}
}

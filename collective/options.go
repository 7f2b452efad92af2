package collective

import (
	"io"
	"log/slog"
)

// Option configures a Comm.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger routes Comm diagnostics (collective trace at Debug, aborts at
// Error) to l. A nil l keeps the default discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func gatherOptions(opts ...Option) options {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return o
}

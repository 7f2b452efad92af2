package local

import "github.com/katalvlaran/lvmatmul/collective"

// DefaultMailboxDepth is the per-pair channel buffer. Any depth (including 0)
// is correct for same-order collectives; depth 1 lets a sender run one frame ahead.
const DefaultMailboxDepth = 1

const panicDepthInvalid = "local: WithMailboxDepth: depth must be >= 0"

// Option configures an in-process group.
type Option func(*options)

type options struct {
	depth    int
	commOpts []collective.Option
}

// WithMailboxDepth sets the per-pair channel buffer. Panics on depth < 0.
func WithMailboxDepth(depth int) Option {
	if depth < 0 {
		panic(panicDepthInvalid)
	}

	return func(o *options) { o.depth = depth }
}

// WithCommOptions forwards options to every collective.New call.
func WithCommOptions(opts ...collective.Option) Option {
	return func(o *options) { o.commOpts = append(o.commOpts, opts...) }
}

func gatherOptions(opts ...Option) options {
	o := options{depth: DefaultMailboxDepth}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return o
}

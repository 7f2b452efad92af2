// SPDX-License-Identifier: MIT

package kernel

// DefaultWorkers keeps the kernel on the calling goroutine.
const DefaultWorkers = 1

// Option configures MulRowBlock.
type Option func(*options)

type options struct {
	workers int
}

// WithWorkers splits the rows of the block across w goroutines. Every row is
// owned by exactly one worker, so the result does not depend on w.
// Panics if w < 1.
func WithWorkers(w int) Option {
	if w < 1 {
		panic("kernel: WithWorkers: w must be >= 1")
	}

	return func(o *options) { o.workers = w }
}

func gatherOptions(opts ...Option) options {
	o := options{workers: DefaultWorkers}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return o
}

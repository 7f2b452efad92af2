package partition

import "fmt"

// Policy selects how rows left over by N / P are handled.
type Policy int

const (
	// Strict rejects N mod P != 0 with ErrIndivisible.
	Strict Policy = iota

	// CoordinatorRemainder assigns the N mod P trailing rows to the coordinator.
	CoordinatorRemainder
)

// DefaultPolicy is the policy NewPlan uses when no option overrides it.
const DefaultPolicy = Strict

const panicPolicyInvalid = "partition: WithPolicy: unknown policy"

// String returns the lowercase policy name used in configs and logs.
func (p Policy) String() string {
	switch p {
	case Strict:
		return "strict"
	case CoordinatorRemainder:
		return "coordinator-remainder"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy is the inverse of Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "strict":
		return Strict, nil
	case "coordinator-remainder", "remainder":
		return CoordinatorRemainder, nil
	default:
		return Strict, fmt.Errorf("partition: unknown policy %q", s)
	}
}

// Option configures NewPlan.
type Option func(*options)

type options struct {
	policy Policy
}

// WithPolicy selects the remainder policy. Panics on an unknown Policy value.
func WithPolicy(p Policy) Option {
	if p != Strict && p != CoordinatorRemainder {
		panic(panicPolicyInvalid)
	}

	return func(o *options) { o.policy = p }
}

func gatherOptions(opts ...Option) options {
	o := options{policy: DefaultPolicy}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return o
}

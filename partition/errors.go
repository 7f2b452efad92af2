package partition

import "errors"

var (
	// ErrBadGroupSize indicates a process count below 1.
	ErrBadGroupSize = errors.New("partition: group size must be >= 1")

	// ErrBadDimension indicates a matrix dimension below 1.
	ErrBadDimension = errors.New("partition: matrix dimension must be >= 1")

	// ErrIndivisible indicates N mod P != 0 under the Strict policy.
	ErrIndivisible = errors.New("partition: matrix dimension not divisible by group size")

	// ErrRankOutOfRange indicates a rank outside [0, P).
	ErrRankOutOfRange = errors.New("partition: rank out of range")
)

package bootstrap

import "errors"

var (
	// ErrBadRank indicates a rank outside [0, world size).
	ErrBadRank = errors.New("bootstrap: rank out of range")

	// ErrBadWorldSize indicates a world size below 1.
	ErrBadWorldSize = errors.New("bootstrap: world size must be >= 1")

	// ErrPeerCount indicates a peer list whose length differs from the world size.
	ErrPeerCount = errors.New("bootstrap: peer count does not match world size")

	// ErrBadEnv indicates an environment variable that does not parse.
	ErrBadEnv = errors.New("bootstrap: malformed environment variable")

	// ErrBadHostfile indicates a hostfile line that does not parse.
	ErrBadHostfile = errors.New("bootstrap: malformed hostfile")

	// ErrBadConfig indicates an invalid field in a configuration file.
	ErrBadConfig = errors.New("bootstrap: invalid configuration")
)

// SPDX-License-Identifier: MIT

package orchestrator

import (
	"errors"
	"fmt"
)

// ErrNoComm indicates an Env without a communicator.
var ErrNoComm = errors.New("orchestrator: nil communicator")

// Step names used in error messages and logs.
const (
	stepPlan      = "plan"
	stepAllocate  = "allocate"
	stepScatter   = "scatter"
	stepBroadcast = "broadcast"
	stepCompute   = "compute"
	stepGather    = "gather"
	stepReport    = "report"
)

// stepErrorf renders "rank R: step: cause" and keeps cause matchable.
func stepErrorf(rank int, step string, err error) error {
	return fmt.Errorf("rank %d: %s: %w", rank, step, err)
}

// SPDX-License-Identifier: MIT

package kernel

import (
	"errors"
	"fmt"
)

// ErrShape indicates buffer lengths inconsistent with rows and n.
var ErrShape = errors.New("kernel: inconsistent buffer shape")

func shapeErrorf(what string, got, want int) error {
	return fmt.Errorf("%s has %d elements, want %d: %w", what, got, want, ErrShape)
}

// SPDX-License-Identifier: MIT
// Package matrix_test contains test helpers.
//
// Purpose:
//   - Provide small, deterministic fixtures for the Dense and kernel tests.

package matrix_test

import (
	"testing"

	"github.com/katalvlaran/lvmatmul/matrix"
)

// hide wraps any Matrix to hide its concrete type, forcing the generic
// (non-*Dense) paths in Mul, Sum and AllClose.
type hide struct{ matrix.Matrix }

// mustDense allocates an r×c *Dense or fails the test.
func mustDense(tb testing.TB, r, c int, opts ...matrix.Option) *matrix.Dense {
	tb.Helper()
	m, err := matrix.NewDense(r, c, opts...)
	if err != nil {
		tb.Fatalf("NewDense(%d,%d): %v", r, c, err)
	}

	return m
}

// fromRows builds a *Dense from a literal row slice.
func fromRows(tb testing.TB, rows [][]float64) *matrix.Dense {
	tb.Helper()
	m := mustDense(tb, len(rows), len(rows[0]), matrix.WithValidateNaNInf(false))
	for i, row := range rows {
		for j, v := range row {
			if err := m.Set(i, j, v); err != nil {
				tb.Fatalf("Set(%d,%d): %v", i, j, err)
			}
		}
	}

	return m
}

// mustUniform draws an n×n operand from seed.
func mustUniform(tb testing.TB, n int, seed uint64) *matrix.Dense {
	tb.Helper()
	m, err := matrix.NewUniform(n, matrix.NewSource(seed))
	if err != nil {
		tb.Fatalf("NewUniform(%d): %v", n, err)
	}

	return m
}

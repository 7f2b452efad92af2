// SPDX-License-Identifier: MIT

// Package kernel computes one rank's share of C = A·B: a block of rows of A
// multiplied by the full, row-major B.
//
// MulRowBlock accumulates each output element in strictly increasing k from
// +0.0, with no zero-skipping, so its results are bit-identical to
// matrix.Mul on the same rows regardless of how many ranks or workers split
// the work. The loop order is i→k→j, which streams rows of B and keeps the
// inner loop unit-stride.
//
// Buffers are plain []float64 slices so a block received from a collective
// can be fed in without wrapping or copying.
package kernel

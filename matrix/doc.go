// SPDX-License-Identifier: MIT

// Package matrix provides the dense, row-major storage used by every rank of
// a distributed multiplication run, plus the sequential reference kernels the
// distributed result is checked against.
//
// The matrix package provides:
//
//   - Dense: a flat []float64 buffer in row-major order (offset = i*cols + j)
//     with safe At/Set accessors, Clone, String, and no-copy access to the
//     backing slice (Data, RowBlock) for collective communication.
//   - FromData: wrap an existing row-major buffer without copying, used on the
//     coordinator to expose the gathered result as a matrix.
//   - Mul: sequential C = A × B with a fixed i→k→j loop order; each C[i,j]
//     accumulates A[i,k]*B[k,j] in strictly increasing k starting from +0.
//   - Sum: checksum-style sum of all entries in row-major order.
//   - FillUniform / NewUniform: seeded random initialization in [0,1).
//   - AllClose: element-wise |a-b| ≤ atol + rtol*|b| comparison.
//
// Errors are package-level sentinels (errors.go) matched with errors.Is.
// Public accessors never panic on user input.
package matrix

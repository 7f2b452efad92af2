// SPDX-License-Identifier: MIT
// Package matrix provides the sequential reference operations a distributed
// run is verified against: matrix multiplication, checksum and tolerance
// comparison. All functions perform strict fail-fast validation and return
// clear errors on dimension mismatches.

package matrix

import (
	"fmt"
	"math"
)

// ZeroSum is the initial accumulator value for dot products and checksums.
const ZeroSum = 0.0

// Operation name constants for unified error wrapping.
const (
	opMul      = "Mul"
	opSum      = "Sum"
	opAllClose = "AllClose"
)

// matrixErrorf wraps err with an operation tag, preserving the original error via %w.
// Use only when err != nil.
func matrixErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// Mul performs standard matrix multiplication C = A × B (no aliasing).
// Implementation:
//   - Stage 1: Validate A,B (not nil) and inner dimensions (A.Cols == B.Rows).
//   - Stage 2: If A and B are *Dense, use i→k→j with row-major strides;
//     otherwise use i→j→k through At.
//
// Behavior highlights:
//   - Both paths add A[i,k]*B[k,j] into C[i,j] in strictly increasing k,
//     starting from +0, so they are bit-identical to each other and to the
//     row-block kernel used by every rank.
//   - No zero-skipping: 0*Inf must still produce NaN.
//
// Errors:
//   - ErrNilMatrix (nil input), ErrDimensionMismatch (inner mismatch).
//
// Complexity:
//   - Time O(r*n*c), Space O(r*c).
func Mul(a, b Matrix) (Matrix, error) {
	if err := ValidateMulCompatible(a, b); err != nil {
		return nil, matrixErrorf(opMul, err)
	}

	aRows, aCols, bCols := a.Rows(), a.Cols(), b.Cols()
	// The result buffer may legally receive NaN/Inf from the operands.
	res, err := NewDense(aRows, bCols, WithValidateNaNInf(false))
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	var (
		i, j, k int
		av, bv  float64
		current float64
	)
	// Fast-path for two Dense matrices.
	if da, okA := a.(*Dense); okA {
		if db, okB := b.(*Dense); okB {
			var rowOffsetA, rowOffsetB, rowOffsetR int
			for i = 0; i < aRows; i++ {
				rowOffsetA = i * aCols
				rowOffsetR = i * bCols
				for k = 0; k < aCols; k++ {
					av = da.data[rowOffsetA+k]
					rowOffsetB = k * bCols
					for j = 0; j < bCols; j++ {
						res.data[rowOffsetR+j] += av * db.data[rowOffsetB+j]
					}
				}
			}

			return res, nil
		}
	}

	// Fallback: generic interface triple-loop (i-j-k).
	for i = 0; i < aRows; i++ {
		for j = 0; j < bCols; j++ {
			current = ZeroSum
			for k = 0; k < aCols; k++ {
				if av, err = a.At(i, k); err != nil {
					return nil, matrixErrorf(opMul, err)
				}
				if bv, err = b.At(k, j); err != nil {
					return nil, matrixErrorf(opMul, err)
				}
				current += av * bv
			}
			res.data[i*bCols+j] = current
		}
	}

	return res, nil
}

// Sum returns the sum of all entries, accumulated in row-major order.
// This is the checksum the coordinator reports for A, B and C.
//
// Errors: ErrNilMatrix.
// Complexity: O(r*c).
func Sum(m Matrix) (float64, error) {
	if err := ValidateNotNil(m); err != nil {
		return 0, matrixErrorf(opSum, err)
	}
	if d, ok := m.(*Dense); ok {
		return SumSlice(d.data), nil
	}

	total := ZeroSum
	r, c := m.Rows(), m.Cols()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v, err := m.At(i, j)
			if err != nil {
				return 0, matrixErrorf(opSum, err)
			}
			total += v
		}
	}

	return total, nil
}

// SumSlice sums a flat buffer in index order.
func SumSlice(data []float64) float64 {
	total := ZeroSum
	for _, v := range data {
		total += v
	}

	return total
}

// AllClose checks element-wise |a-b| ≤ atol + rtol*|b| for identical shapes.
// Returns (true,nil) if all elements satisfy the relation; (false,nil) otherwise.
//
// Policy:
//   - a and b must be non-nil and have identical shapes.
//   - rtol, atol are treated as |rtol|, |atol|; NaN/Inf tolerances → ErrNaNInf.
//   - A NaN in either operand never compares close.
//
// Complexity: O(r*c), Space O(1).
func AllClose(a, b Matrix, rtol, atol float64) (bool, error) {
	if math.IsNaN(rtol) || math.IsNaN(atol) || math.IsInf(rtol, 0) || math.IsInf(atol, 0) {
		return false, matrixErrorf(opAllClose, ErrNaNInf)
	}
	rtol, atol = math.Abs(rtol), math.Abs(atol)
	if err := ValidateBinarySameShape(a, b); err != nil {
		return false, matrixErrorf(opAllClose, err)
	}

	// Dense fast-path over flat slices.
	if da, okA := a.(*Dense); okA {
		if db, okB := b.(*Dense); okB {
			for idx := range da.data {
				if !isClose(da.data[idx], db.data[idx], rtol, atol) {
					return false, nil
				}
			}

			return true, nil
		}
	}

	r, c := a.Rows(), a.Cols()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			av, err := a.At(i, j)
			if err != nil {
				return false, matrixErrorf(opAllClose, err)
			}
			bv, err := b.At(i, j)
			if err != nil {
				return false, matrixErrorf(opAllClose, err)
			}
			if !isClose(av, bv, rtol, atol) {
				return false, nil
			}
		}
	}

	return true, nil
}

// Equal reports AllClose(a, b) under the tolerance configured by opts
// (DefaultRelTol/DefaultAbsTol unless WithTolerance is given).
func Equal(a, b Matrix, opts ...Option) (bool, error) {
	o := gatherOptions(opts...)

	return AllClose(a, b, o.rtol, o.atol)
}

// isClose is the scalar relation behind AllClose; NaN on either side is never close.
func isClose(a, b, rtol, atol float64) bool {
	if a == b {
		return true // covers equal infinities
	}
	diff := math.Abs(a - b)

	return diff <= atol+rtol*math.Abs(b)
}

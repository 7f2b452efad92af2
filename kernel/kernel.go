// SPDX-License-Identifier: MIT

package kernel

import (
	"golang.org/x/sync/errgroup"
)

// MulRowBlock writes out = aLocal·b where aLocal holds rows×n and b holds
// n×n elements in row-major order. out must hold rows×n elements; it is
// overwritten. rows may be zero.
func MulRowBlock(aLocal []float64, rows, n int, b, out []float64, opts ...Option) error {
	if rows < 0 || n < 0 {
		return shapeErrorf("rows*n", rows*n, 0)
	}
	if len(aLocal) != rows*n {
		return shapeErrorf("aLocal", len(aLocal), rows*n)
	}
	if len(b) != n*n {
		return shapeErrorf("b", len(b), n*n)
	}
	if len(out) != rows*n {
		return shapeErrorf("out", len(out), rows*n)
	}
	if rows == 0 {
		return nil
	}

	o := gatherOptions(opts...)
	w := o.workers
	if w > rows {
		w = rows
	}
	if w == 1 {
		mulRows(aLocal, 0, rows, n, b, out)

		return nil
	}

	var eg errgroup.Group
	step := (rows + w - 1) / w
	for r0 := 0; r0 < rows; r0 += step {
		r1 := min(r0+step, rows)
		eg.Go(func() error {
			mulRows(aLocal, r0, r1, n, b, out)

			return nil
		})
	}

	return eg.Wait()
}

// mulRows computes rows [r0, r1) of the block.
func mulRows(a []float64, r0, r1, n int, b, out []float64) {
	for i := r0; i < r1; i++ {
		ci := out[i*n : (i+1)*n]
		for j := range ci {
			ci[j] = 0
		}
		ai := a[i*n : (i+1)*n]
		for k, aik := range ai {
			bk := b[k*n : (k+1)*n]
			for j, bkj := range bk {
				ci[j] += aik * bkj
			}
		}
	}
}

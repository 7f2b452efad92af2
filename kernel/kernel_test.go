package kernel_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/lvmatmul/kernel"
	"github.com/katalvlaran/lvmatmul/matrix"
)

func operands(t testing.TB, n int, seed uint64) (*matrix.Dense, *matrix.Dense) {
	t.Helper()
	rng := matrix.NewSource(seed)
	a, err := matrix.NewUniform(n, rng)
	require.NoError(t, err)
	b, err := matrix.NewUniform(n, rng)
	require.NoError(t, err)

	return a, b
}

// TestMulRowBlock_MatchesMul checks every row block reproduces the exact bits
// of the sequential product.
func TestMulRowBlock_MatchesMul(t *testing.T) {
	const n = 12
	a, b := operands(t, n, 7)
	want, err := matrix.Mul(a, b)
	require.NoError(t, err)
	wantData := want.(*matrix.Dense).Data()

	for _, rows := range []int{1, 3, 4, 12} {
		for r0 := 0; r0+rows <= n; r0 += rows {
			block, err := a.RowBlock(r0, rows)
			require.NoError(t, err)
			out := make([]float64, rows*n)
			require.NoError(t, kernel.MulRowBlock(block, rows, n, b.Data(), out))
			for i, v := range out {
				require.Equal(t, math.Float64bits(wantData[r0*n+i]), math.Float64bits(v), "rows=%d r0=%d i=%d", rows, r0, i)
			}
		}
	}
}

// TestMulRowBlock_WorkersBitIdentical compares every worker count to w=1.
func TestMulRowBlock_WorkersBitIdentical(t *testing.T) {
	const n = 17
	a, b := operands(t, n, 99)
	base := make([]float64, n*n)
	require.NoError(t, kernel.MulRowBlock(a.Data(), n, n, b.Data(), base))

	for _, w := range []int{2, 3, 8, 17, 64} {
		out := make([]float64, n*n)
		require.NoError(t, kernel.MulRowBlock(a.Data(), n, n, b.Data(), out, kernel.WithWorkers(w)))
		for i := range out {
			require.Equal(t, math.Float64bits(base[i]), math.Float64bits(out[i]), "w=%d i=%d", w, i)
		}
	}
}

// TestMulRowBlock_Gonum cross-checks against an independent implementation.
func TestMulRowBlock_Gonum(t *testing.T) {
	const n = 20
	a, b := operands(t, n, 2024)
	out := make([]float64, n*n)
	require.NoError(t, kernel.MulRowBlock(a.Data(), n, n, b.Data(), out, kernel.WithWorkers(4)))

	var ref mat.Dense
	ref.Mul(mat.NewDense(n, n, a.Data()), mat.NewDense(n, n, b.Data()))
	assert.InDeltaSlice(t, ref.RawMatrix().Data, out, 1e-12)
}

// TestMulRowBlock_NoZeroSkip checks 0*Inf still poisons the output.
func TestMulRowBlock_NoZeroSkip(t *testing.T) {
	a := []float64{0, 1}
	b := []float64{math.Inf(1), 0, 2, 3}
	out := make([]float64, 2)
	require.NoError(t, kernel.MulRowBlock(a, 1, 2, b, out))
	assert.True(t, math.IsNaN(out[0]))
	assert.Equal(t, 3.0, out[1])
}

// TestMulRowBlock_Overwrites checks stale output content is discarded.
func TestMulRowBlock_Overwrites(t *testing.T) {
	out := []float64{9, 9, 9, 9}
	require.NoError(t, kernel.MulRowBlock([]float64{1, 0, 0, 1}, 2, 2, []float64{1, 2, 3, 4}, out))
	assert.Equal(t, []float64{1, 2, 3, 4}, out)
}

func TestMulRowBlock_Shape(t *testing.T) {
	b := make([]float64, 4)
	tests := []struct {
		name      string
		a, b, out []float64
		rows, n   int
	}{
		{"short a", make([]float64, 3), b, make([]float64, 4), 2, 2},
		{"short b", make([]float64, 4), b[:3], make([]float64, 4), 2, 2},
		{"short out", make([]float64, 4), b, make([]float64, 3), 2, 2},
		{"negative rows", nil, b, nil, -1, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := kernel.MulRowBlock(tc.a, tc.rows, tc.n, tc.b, tc.out)
			require.ErrorIs(t, err, kernel.ErrShape)
		})
	}
}

func TestMulRowBlock_EmptyBlock(t *testing.T) {
	require.NoError(t, kernel.MulRowBlock(nil, 0, 3, make([]float64, 9), nil, kernel.WithWorkers(4)))
}

func TestWithWorkers_Panics(t *testing.T) {
	assert.Panics(t, func() { kernel.WithWorkers(0) })
}

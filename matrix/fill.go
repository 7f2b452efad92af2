// SPDX-License-Identifier: MIT

package matrix

import "math/rand/v2"

// NewSource returns the deterministic generator used for operand
// initialization. Equal seeds yield equal streams on every platform.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// FillUniform overwrites every entry of m with a value drawn uniformly from
// [0,1), walking the buffer in row-major order.
func FillUniform(m *Dense, rng *rand.Rand) error {
	if m == nil {
		return ErrNilMatrix
	}
	for i := range m.data {
		m.data[i] = rng.Float64()
	}

	return nil
}

// NewUniform allocates an n×n Dense and fills it via FillUniform.
func NewUniform(n int, rng *rand.Rand) (*Dense, error) {
	m, err := NewDense(n, n)
	if err != nil {
		return nil, err
	}
	if err = FillUniform(m, rng); err != nil {
		return nil, err
	}

	return m, nil
}

package maths

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLuDenseSolve 验证实数稠密矩阵的 LU 分解和求解。
func TestLuDenseSolve(t *testing.T) {
	// A = [[2, 3, 1],
	//      [1, 2, 3],
	//      [3, 1, 2]]
	// b = [9, 6, 8]
	// 预期解 x = [35/18, 29/18, 5/18]
	a := []float64{
		2, 3, 1,
		1, 2, 3,
		3, 1, 2,
	}
	b := []float64{9, 6, 8}

	lu, err := NewLU[float64](3)
	require.NoError(t, err)
	require.NoError(t, lu.Decompose(a))

	x := make([]float64, 3)
	require.NoError(t, lu.SolveReuse(b, x))

	expected := []float64{35.0 / 18.0, 29.0 / 18.0, 5.0 / 18.0}
	assert.InDeltaSlice(t, expected, x, 1e-9)
	// det(A) = 18
	assert.InDelta(t, 18.0, lu.Determinant(), 1e-9)
}

// TestLuDenseSolveComplex 验证复数稠密矩阵的 LU 分解和求解。
func TestLuDenseSolveComplex(t *testing.T) {
	// A = [[1+2i, 2+3i],
	//      [3+4i, 4+5i]]
	// 取 x = [1+i, 2-i]，构造 b = A x
	a := []complex128{1 + 2i, 2 + 3i, 3 + 4i, 4 + 5i}
	want := []complex128{1 + 1i, 2 - 1i}
	b := []complex128{
		a[0]*want[0] + a[1]*want[1],
		a[2]*want[0] + a[3]*want[1],
	}

	lu, err := NewLU[complex128](2)
	require.NoError(t, err)
	require.NoError(t, lu.Decompose(a))

	x := make([]complex128, 2)
	require.NoError(t, lu.SolveReuse(b, x))
	for i := range x {
		assert.Less(t, Abs(x[i]-want[i]), 1e-12)
	}
}

// TestLuSingular 奇异矩阵应返回错误
func TestLuSingular(t *testing.T) {
	lu, err := NewLU[float32](2)
	require.NoError(t, err)
	assert.Error(t, lu.Decompose([]float32{1, 2, 2, 4}))

	_, err = NewLU[float64](0)
	assert.Error(t, err)
}

// TestLuRandom 随机对角占优矩阵回代残差
func TestLuRandom(t *testing.T) {
	const n = 40
	rng := rand.New(rand.NewSource(7))
	a := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a[i*n+j] = rng.Float64() - 0.5
		}
		a[i*n+i] += n
	}
	want := make([]float64, n)
	for i := range want {
		want[i] = rng.Float64()
	}
	b := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			b[i] += a[i*n+j] * want[j]
		}
	}

	lu, err := NewLU[float64](n)
	require.NoError(t, err)
	require.NoError(t, lu.Decompose(a))
	x := make([]float64, n)
	require.NoError(t, lu.SolveReuse(b, x))
	assert.InDeltaSlice(t, want, x, 1e-10)
}

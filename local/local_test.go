package local

import (
	"testing"

	"github.com/costat/rocALUTION/backend"
	"github.com/costat/rocALUTION/mat"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gpuDescriptor(t *testing.T) backend.Descriptor {
	t.Helper()
	d, err := backend.NewDescriptor(backend.GPU, 8)
	require.NoError(t, err)
	return d
}

// tridiag 三对角测试矩阵
func tridiag(t *testing.T, desc backend.Descriptor, n int) *Matrix[float64] {
	t.Helper()
	var ri, ci []int
	var v []float64
	for i := 0; i < n; i++ {
		ri, ci, v = append(ri, i), append(ci, i), append(v, 4)
		if i > 0 {
			ri, ci, v = append(ri, i), append(ci, i-1), append(v, -1)
		}
		if i < n-1 {
			ri, ci, v = append(ri, i), append(ci, i+1), append(v, -2)
		}
	}
	m := NewMatrix[float64](desc, "A")
	require.NoError(t, m.Assemble(n, n, ri, ci, v))
	return m
}

func applyHost(t *testing.T, m *Matrix[float64], x []float64) []float64 {
	t.Helper()
	in := NewVector[float64](m.Descriptor(), "in")
	in.Allocate(len(x))
	require.NoError(t, in.CopyFromData(x))
	in.CloneBackend(m)
	out := NewVector[float64](m.Descriptor(), "out")
	out.CloneBackend(m)
	out.Allocate(m.Rows())
	require.NoError(t, m.Apply(in, out))
	res := make([]float64, m.Rows())
	require.NoError(t, out.CopyToData(res))
	return res
}

func TestMatrixConvertAndMove(t *testing.T) {
	desc := gpuDescriptor(t)
	m := tridiag(t, desc, 12)
	x := make([]float64, 12)
	for i := range x {
		x[i] = float64(i) - 3
	}
	want := applyHost(t, m, x)

	for _, f := range mat.Formats {
		require.NoError(t, m.ConvertTo(f), f.String())
		assert.Equal(t, f, m.Format())
		assert.InDeltaSlice(t, want, applyHost(t, m, x), 1e-12)

		m.MoveToAccelerator()
		assert.Equal(t, backend.GPU, m.Device())
		assert.Equal(t, f, m.Format())
		assert.InDeltaSlice(t, want, applyHost(t, m, x), 1e-12)
		m.MoveToHost()
		assert.Equal(t, backend.Host, m.Device())
	}

	// 加速器上的转换经主机往返，设备保持不变
	m.MoveToAccelerator()
	require.NoError(t, m.ConvertTo(mat.CSR))
	assert.Equal(t, backend.GPU, m.Device())
	assert.InDeltaSlice(t, want, applyHost(t, m, x), 1e-12)
}

func TestConvertToFailureKeepsState(t *testing.T) {
	m := NewMatrix[float64](backend.Default(), "nodiag")
	require.NoError(t, m.Assemble(2, 2, []int{0, 1}, []int{1, 1}, []float64{1, 2}))
	err := m.ConvertTo(mat.MCSR)
	assert.True(t, errors.Is(err, ErrFormat))
	assert.Equal(t, mat.CSR, m.Format())
	assert.Equal(t, 2, m.Nnz())
}

func TestApplyChecks(t *testing.T) {
	desc := gpuDescriptor(t)
	m := tridiag(t, desc, 4)
	in := NewVector[float64](desc, "in")
	out := NewVector[float64](desc, "out")
	in.Allocate(3)
	out.Allocate(4)
	assert.True(t, errors.Is(m.Apply(in, out), ErrDimensionMismatch))
	in.Allocate(4)
	m.MoveToAccelerator()
	assert.True(t, errors.Is(m.Apply(in, out), ErrDeviceMismatch))
	assert.True(t, errors.Is(m.ApplyAdd(in, 1, out), ErrDeviceMismatch))
	in.MoveToAccelerator()
	out.MoveToAccelerator()
	assert.NoError(t, m.ApplyAdd(in, 1, out))
}

func TestMatrixMultAndRugeStueben(t *testing.T) {
	desc := backend.Default()
	a := tridiag(t, desc, 20)
	p := NewMatrix[float64](desc, "P")
	r := NewMatrix[float64](desc, "R")
	require.NoError(t, a.RugeStueben(0.25, p, r))
	assert.Equal(t, 20, p.Rows())
	assert.Equal(t, p.Cols(), r.Rows())

	ap := NewMatrix[float64](desc, "AP")
	require.NoError(t, ap.MatrixMult(a, p))
	coarse := NewMatrix[float64](desc, "Ac")
	require.NoError(t, coarse.MatrixMult(r, ap))
	assert.Equal(t, p.Cols(), coarse.Rows())
	assert.Equal(t, p.Cols(), coarse.Cols())

	require.NoError(t, a.ConvertTo(mat.ELL))
	assert.True(t, errors.Is(ap.MatrixMult(a, p), ErrFormat))
	assert.True(t, errors.Is(a.RugeStueben(0.25, p, r), ErrFormat))
	assert.Error(t, a.RugeStueben(2, p, r))

	g := gpuDescriptor(t)
	b := tridiag(t, g, 5)
	b.MoveToAccelerator()
	pb, rb := NewMatrix[float64](g, "P"), NewMatrix[float64](g, "R")
	assert.True(t, errors.Is(b.RugeStueben(0.25, pb, rb), ErrDeviceMismatch))
	host := tridiag(t, g, 5)
	assert.True(t, errors.Is(host.MatrixMult(b, b), ErrDeviceMismatch))
}

func TestDiagonalAndRows(t *testing.T) {
	m := tridiag(t, backend.Default(), 5)
	d := NewVector[float64](backend.Default(), "d")
	require.NoError(t, m.ExtractInverseDiagonal(d))
	assert.InDeltaSlice(t, []float64{0.25, 0.25, 0.25, 0.25, 0.25}, d.Values(), 0)

	sub := NewMatrix[float64](backend.Default(), "sub")
	require.NoError(t, m.ExtractRows([]int{1, 3}, true, sub))
	assert.Equal(t, 2, sub.Rows())
	assert.Equal(t, 5, sub.Cols())
	assert.Equal(t, 4, sub.Nnz())
	assert.True(t, errors.Is(m.ExtractRows([]int{9}, true, sub), ErrDimensionMismatch))

	z := NewMatrix[float64](backend.Default(), "z")
	require.NoError(t, z.Assemble(2, 2, []int{0}, []int{0}, []float64{1}))
	assert.True(t, errors.Is(z.ExtractInverseDiagonal(d), ErrZeroDiagonal))
}

func TestAsMatrix(t *testing.T) {
	desc := backend.Default()
	m := NewMatrix[float64](desc, "A")
	got, err := AsMatrix[float64](m)
	require.NoError(t, err)
	assert.Same(t, m, got)

	sh := NewShell[float64](desc, "shell", 3, 3, func(in, out *Vector[float64]) error {
		return out.CopyFrom(in)
	})
	_, err = AsMatrix[float64](sh)
	assert.True(t, errors.Is(err, ErrOperatorKind))
	_, err = AsMatrix[float64](nil)
	assert.True(t, errors.Is(err, ErrOperatorKind))
}

func TestShellApplyAdd(t *testing.T) {
	desc := backend.Default()
	sh := NewShell[float64](desc, "twice", 3, 3, func(in, out *Vector[float64]) error {
		if err := out.CopyFrom(in); err != nil {
			return err
		}
		out.Scale(2)
		return nil
	})
	in := NewVector[float64](desc, "in")
	in.Allocate(3)
	in.Ones()
	out := NewVector[float64](desc, "out")
	out.Allocate(3)
	out.SetValues(1)
	require.NoError(t, sh.ApplyAdd(in, 3, out))
	assert.Equal(t, []float64{7, 7, 7}, out.Values())
	short := NewVector[float64](desc, "short")
	short.Allocate(2)
	assert.True(t, errors.Is(sh.Apply(short, out), ErrDimensionMismatch))
}

func TestConvertPrecision(t *testing.T) {
	desc := gpuDescriptor(t)
	m := tridiag(t, desc, 6)
	require.NoError(t, m.ConvertTo(mat.ELL))
	m.MoveToAccelerator()
	low := NewMatrix[float32](desc, "A32")
	require.NoError(t, ConvertMatrix(m, low))
	assert.Equal(t, mat.ELL, low.Format())
	assert.Equal(t, backend.GPU, low.Device())
	assert.Equal(t, m.Nnz(), low.Nnz())
	assert.Equal(t, float32(-2), low.ExportCSR().Get(0, 1))

	v := NewVector[float64](desc, "v")
	v.Allocate(2)
	require.NoError(t, v.CopyFromData([]float64{1.5, -2}))
	c := NewVector[complex64](desc, "c")
	ConvertVector(v, c)
	assert.Equal(t, []complex64{1.5, -2}, c.Values())
}

func TestObjectIdentity(t *testing.T) {
	a := NewMatrix[float64](backend.Default(), "A")
	b := NewMatrix[float64](backend.Default(), "A")
	assert.NotEqual(t, a.ID(), b.ID())
	a.SetName("B")
	assert.Equal(t, "B", a.Name())
	assert.Contains(t, a.String(), "B/")
}

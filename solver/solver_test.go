package solver

import (
	"testing"

	"github.com/costat/rocALUTION/backend"
	"github.com/costat/rocALUTION/debug"
	"github.com/costat/rocALUTION/local"
	"github.com/costat/rocALUTION/mat"
	"github.com/costat/rocALUTION/maths"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// laplace2D 五点差分 n×n 网格
func laplace2D[T maths.Number](t *testing.T, desc backend.Descriptor, n int) *local.Matrix[T] {
	t.Helper()
	var ri, ci []int
	var v []T
	add := func(i, j int, x float64) {
		ri, ci, v = append(ri, i), append(ci, j), append(v, maths.FromFloat[T](x))
	}
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			k := y*n + x
			add(k, k, 4)
			if x > 0 {
				add(k, k-1, -1)
			}
			if x < n-1 {
				add(k, k+1, -1)
			}
			if y > 0 {
				add(k, k-n, -1)
			}
			if y < n-1 {
				add(k, k+n, -1)
			}
		}
	}
	m := local.NewMatrix[T](desc, "laplace")
	require.NoError(t, m.Assemble(n*n, n*n, ri, ci, v))
	return m
}

// nonsymmetric 非对称三对角 (-1, 4, -2)
func nonsymmetric(t *testing.T, desc backend.Descriptor, n int) *local.Matrix[float64] {
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
	m := local.NewMatrix[float64](desc, "nonsym")
	require.NoError(t, m.Assemble(n, n, ri, ci, v))
	return m
}

// vectors 与算子同放置的全一右端项与零初值
func vectors[T maths.Number](op local.Operator[T]) (rhs, x *local.Vector[T]) {
	rhs = local.NewVector[T](op.Descriptor(), "rhs")
	rhs.CloneBackend(op)
	rhs.Allocate(op.Rows())
	rhs.Ones()
	x = local.NewVector[T](op.Descriptor(), "x")
	x.CloneBackend(op)
	x.Allocate(op.Cols())
	return rhs, x
}

// relResidual ||b - Ax|| / ||b||
func relResidual[T maths.Number](t *testing.T, op local.Operator[T], rhs, x *local.Vector[T]) float64 {
	t.Helper()
	r := local.NewVector[T](op.Descriptor(), "r")
	r.CloneBackend(op)
	r.Allocate(op.Rows())
	require.NoError(t, op.Apply(x, r))
	r.ScaleAdd(maths.FromFloat[T](-1), rhs)
	return r.Norm() / rhs.Norm()
}

func gpu(t *testing.T) backend.Descriptor {
	t.Helper()
	d, err := backend.NewDescriptor(backend.GPU, 4)
	require.NoError(t, err)
	return d
}

func TestLifecycleErrors(t *testing.T) {
	s := NewCG[float64]()
	require.ErrorIs(t, s.Build(), ErrNilOperator)

	rhs, x := vectors[float64](laplace2D[float64](t, backend.Default(), 3))
	_, err := s.Solve(rhs, x)
	require.ErrorIs(t, err, ErrNotBuilt)

	s.SetOperator(local.NewMatrix[float64](backend.Default(), "empty"))
	require.ErrorIs(t, s.Build(), ErrEmptyOperator)

	a := laplace2D[float64](t, backend.Default(), 3)
	s.SetOperator(a)
	require.NoError(t, s.Build())
	require.ErrorIs(t, s.Build(), ErrAlreadyBuilt)

	short := local.NewVector[float64](backend.Default(), "short")
	short.Allocate(4)
	_, err = s.Solve(short, x)
	require.ErrorIs(t, err, local.ErrDimensionMismatch)

	s.Clear()
	assert.False(t, s.IsBuilt())
	require.NoError(t, s.Build())
}

func TestSolveDeviceMismatch(t *testing.T) {
	a := laplace2D[float64](t, gpu(t), 4)
	a.MoveToAccelerator()
	s := NewCG[float64]()
	s.SetOperator(a)
	require.NoError(t, s.Build())
	rhs := local.NewVector[float64](a.Descriptor(), "rhs")
	rhs.Allocate(a.Rows())
	x := local.NewVector[float64](a.Descriptor(), "x")
	x.Allocate(a.Rows())
	_, err := s.Solve(rhs, x)
	require.ErrorIs(t, err, local.ErrDeviceMismatch)
}

func TestCG(t *testing.T) {
	a := laplace2D[float64](t, backend.Default(), 10)
	rhs, x := vectors[float64](a)
	s := NewCG[float64]()
	s.Init(0, 1e-10, 1e8, 500)
	s.SetOperator(a)
	require.NoError(t, s.Build())
	res, err := s.Solve(rhs, x)
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)
	assert.Less(t, res.Iterations, 100)
	assert.Less(t, relResidual[float64](t, a, rhs, x), 1e-9)
}

func TestCGComplex(t *testing.T) {
	a := laplace2D[complex128](t, backend.Default(), 6)
	rhs, x := vectors[complex128](a)
	s := NewCG[complex128]()
	s.Init(0, 1e-10, 1e8, 200)
	s.SetOperator(a)
	require.NoError(t, s.Build())
	res, err := s.Solve(rhs, x)
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)
	assert.Less(t, relResidual[complex128](t, a, rhs, x), 1e-9)
}

func TestPreconditionedCG(t *testing.T) {
	tests := []struct {
		name    string
		precond func() Solver[float64]
	}{
		{"jacobi", func() Solver[float64] { return NewJacobi[float64]() }},
		{"sgs", func() Solver[float64] { return NewMultiColoredSGS[float64]() }},
		{"ilu", func() Solver[float64] { return NewILU[float64]() }},
	}
	plain := NewCG[float64]()
	a := laplace2D[float64](t, backend.Default(), 12)
	plain.Init(0, 1e-10, 1e8, 500)
	plain.SetOperator(a)
	require.NoError(t, plain.Build())
	rhs, x := vectors[float64](a)
	base, err := plain.Solve(rhs, x)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewCG[float64]()
			s.Init(0, 1e-10, 1e8, 500)
			s.SetOperator(a)
			s.SetPreconditioner(tt.precond())
			require.NoError(t, s.Build())
			rhs, x := vectors[float64](a)
			res, err := s.Solve(rhs, x)
			require.NoError(t, err)
			assert.Equal(t, Converged, res.Status)
			assert.LessOrEqual(t, res.Iterations, base.Iterations+1)
			assert.Less(t, relResidual[float64](t, a, rhs, x), 1e-9)
		})
	}
}

func TestBiCGStab(t *testing.T) {
	for _, precond := range []Solver[float64]{nil, NewJacobi[float64](), NewILU[float64]()} {
		a := nonsymmetric(t, backend.Default(), 60)
		rhs, x := vectors[float64](a)
		s := NewBiCGStab[float64]()
		s.Init(0, 1e-10, 1e8, 300)
		s.SetOperator(a)
		if precond != nil {
			s.SetPreconditioner(precond)
		}
		require.NoError(t, s.Build())
		res, err := s.Solve(rhs, x)
		require.NoError(t, err)
		assert.Equal(t, Converged, res.Status, s.String())
		assert.Less(t, relResidual[float64](t, a, rhs, x), 1e-9)
	}
}

// nearIdentity 单位阵加小扰动的对称正定矩阵
func nearIdentity(t *testing.T, n int) *local.Matrix[float64] {
	t.Helper()
	var ri, ci []int
	var v []float64
	for i := 0; i < n; i++ {
		ri, ci, v = append(ri, i), append(ci, i), append(v, 1)
		if i > 0 {
			ri, ci, v = append(ri, i), append(ci, i-1), append(v, 0.05)
		}
		if i < n-1 {
			ri, ci, v = append(ri, i), append(ci, i+1), append(v, 0.05)
		}
	}
	m := local.NewMatrix[float64](backend.Default(), "near-identity")
	require.NoError(t, m.Assemble(n, n, ri, ci, v))
	return m
}

func TestBiCGStablOrderOne(t *testing.T) {
	a := nearIdentity(t, 50)
	rhs, x := vectors[float64](a)
	s := NewBiCGStabl[float64]()
	require.NoError(t, s.SetOrder(1))
	s.Init(0, 1e-10, 1e8, 50)
	s.SetOperator(a)
	require.NoError(t, s.Build())
	res, err := s.Solve(rhs, x)
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)
	assert.Less(t, res.Iterations, 20)
	assert.Less(t, relResidual[float64](t, a, rhs, x), 1e-9)
}

func TestBiCGStablOrderZero(t *testing.T) {
	s := NewBiCGStabl[float64]()
	require.NoError(t, s.SetOrder(0))
	s.SetOperator(nearIdentity(t, 5))
	err := s.Build()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOrder))
	assert.False(t, s.IsBuilt())

	require.NoError(t, s.SetOrder(2))
	require.NoError(t, s.Build())
	require.ErrorIs(t, s.SetOrder(3), ErrAlreadyBuilt)
}

func TestBiCGStablOrders(t *testing.T) {
	for _, l := range []int{1, 2, 4} {
		for _, precond := range []Solver[float64]{nil, NewJacobi[float64](), NewMultiColoredGS[float64]()} {
			a := nonsymmetric(t, backend.Default(), 80)
			rhs, x := vectors[float64](a)
			s := NewBiCGStabl[float64]()
			require.NoError(t, s.SetOrder(l))
			s.Init(0, 1e-10, 1e8, 200)
			s.SetOperator(a)
			if precond != nil {
				s.SetPreconditioner(precond)
			}
			require.NoError(t, s.Build())
			res, err := s.Solve(rhs, x)
			require.NoError(t, err)
			assert.Equal(t, Converged, res.Status, s.String())
			assert.Less(t, relResidual[float64](t, a, rhs, x), 1e-8, s.String())
		}
	}
}

func TestBiCGStablExactIdentity(t *testing.T) {
	n := 8
	ri, ci, v := make([]int, n), make([]int, n), make([]float64, n)
	for i := range ri {
		ri[i], ci[i], v[i] = i, i, 1
	}
	a := local.NewMatrix[float64](backend.Default(), "identity")
	require.NoError(t, a.Assemble(n, n, ri, ci, v))
	rhs, x := vectors[float64](a)
	s := NewBiCGStabl[float64]()
	s.SetOperator(a)
	require.NoError(t, s.Build())
	res, err := s.Solve(rhs, x)
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)
	assert.InDeltaSlice(t, rhs.Values(), x.Values(), 1e-14)
}

func TestClearRebuildTrajectory(t *testing.T) {
	a := nonsymmetric(t, backend.Default(), 40)
	s := NewBiCGStabl[float64]()
	s.Init(0, 1e-12, 1e8, 100)
	s.SetOperator(a)
	s.SetPreconditioner(NewMultiColoredSGS[float64]())

	run := func() []float64 {
		rec := debug.NewRecord("run")
		s.RecordHistory(rec)
		require.NoError(t, s.Build())
		rhs, x := vectors[float64](a)
		_, err := s.Solve(rhs, x)
		require.NoError(t, err)
		return rec.Residual
	}
	first := run()
	s.Clear()
	second := run()
	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestFixedPointJacobi(t *testing.T) {
	a := nonsymmetric(t, backend.Default(), 30)
	rhs, x := vectors[float64](a)
	s := NewFixedPoint[float64]()
	s.Init(0, 1e-8, 1e8, 500)
	s.SetOperator(a)
	s.SetPreconditioner(NewJacobi[float64]())
	require.NoError(t, s.Build())
	res, err := s.Solve(rhs, x)
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)
	assert.Less(t, relResidual[float64](t, a, rhs, x), 1e-7)
}

func TestFixedPointDiverges(t *testing.T) {
	a := laplace2D[float64](t, backend.Default(), 5)
	rhs, x := vectors[float64](a)
	s := NewFixedPoint[float64]()
	s.SetRelaxation(1.9)
	s.Init(0, 1e-8, 1e3, 500)
	s.SetOperator(a)
	s.SetPreconditioner(NewJacobi[float64]())
	require.NoError(t, s.Build())
	res, err := s.Solve(rhs, x)
	require.NoError(t, err)
	assert.Equal(t, Diverged, res.Status)
}

func TestMultiColoredGSFormats(t *testing.T) {
	desc := gpu(t)
	for _, f := range []mat.Format{mat.CSR, mat.ELL, mat.DIA, mat.HYB, mat.COO} {
		a := laplace2D[float64](t, desc, 8)
		a.MoveToAccelerator()
		gs := NewMultiColoredSGS[float64]()
		gs.SetFormat(f)
		s := NewFixedPoint[float64]()
		s.Init(0, 1e-8, 1e8, 300)
		s.SetOperator(a)
		s.SetPreconditioner(gs)
		require.NoError(t, s.Build(), f.String())
		assert.GreaterOrEqual(t, gs.Colors(), 2)
		rhs, x := vectors[float64](a)
		res, err := s.Solve(rhs, x)
		require.NoError(t, err)
		assert.Equal(t, Converged, res.Status, f.String())
		assert.Equal(t, backend.GPU, x.Device())
	}
}

func TestMultiColoredGSZeroDiagonal(t *testing.T) {
	a := local.NewMatrix[float64](backend.Default(), "zero-diag")
	require.NoError(t, a.Assemble(2, 2, []int{0, 0, 1}, []int{0, 1, 0}, []float64{1, 1, 1}))
	gs := NewMultiColoredGS[float64]()
	gs.SetOperator(a)
	require.ErrorIs(t, gs.Build(), local.ErrZeroDiagonal)
	assert.False(t, gs.IsBuilt())
}

func TestShellOperatorRejected(t *testing.T) {
	a := laplace2D[float64](t, backend.Default(), 4)
	shell := local.NewShell[float64](a.Descriptor(), "shell", a.Rows(), a.Cols(), a.Apply)
	for _, p := range []Solver[float64]{NewJacobi[float64](), NewILU[float64](), NewLU[float64](), NewMultiColoredGS[float64]()} {
		p.SetOperator(shell)
		require.ErrorIs(t, p.Build(), local.ErrOperatorKind)
	}

	s := NewCG[float64]()
	s.Init(0, 1e-10, 1e8, 200)
	s.SetOperator(shell)
	require.NoError(t, s.Build())
	rhs, x := vectors[float64](shell)
	res, err := s.Solve(rhs, x)
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)
}

func TestDirect(t *testing.T) {
	desc := gpu(t)
	for _, s := range []Solver[float64]{NewLU[float64](), NewInversion[float64]()} {
		a := nonsymmetric(t, desc, 20)
		a.MoveToAccelerator()
		s.SetOperator(a)
		require.NoError(t, s.Build())
		rhs, x := vectors[float64](a)
		res, err := s.Solve(rhs, x)
		require.NoError(t, err)
		assert.Equal(t, Converged, res.Status)
		assert.Less(t, relResidual[float64](t, a, rhs, x), 1e-12)

		a.MoveToHost()
		s.MoveToHost()
		rhs, x = vectors[float64](a)
		_, err = s.Solve(rhs, x)
		require.NoError(t, err)
		assert.Less(t, relResidual[float64](t, a, rhs, x), 1e-12)
	}
}

func TestDirectSingular(t *testing.T) {
	a := local.NewMatrix[float64](backend.Default(), "singular")
	require.NoError(t, a.Assemble(2, 2, []int{0, 0, 1, 1}, []int{0, 1, 0, 1}, []float64{1, 2, 2, 4}))
	s := NewLU[float64]()
	s.SetOperator(a)
	require.ErrorIs(t, s.Build(), local.ErrSingular)
}

func TestReBuildNumeric(t *testing.T) {
	a := laplace2D[float64](t, backend.Default(), 6)
	s := NewCG[float64]()
	s.Init(0, 1e-10, 1e8, 200)
	s.SetOperator(a)
	s.SetPreconditioner(NewJacobi[float64]())
	require.ErrorIs(t, s.ReBuildNumeric(), ErrNotBuilt)
	require.NoError(t, s.Build())

	require.NoError(t, a.Scale(2))
	require.NoError(t, s.ReBuildNumeric())
	rhs, x := vectors[float64](a)
	res, err := s.Solve(rhs, x)
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)
	assert.Less(t, relResidual[float64](t, a, rhs, x), 1e-9)
}

func TestMixedPrecisionDC(t *testing.T) {
	a := laplace2D[float64](t, backend.Default(), 10)
	inner := NewCG[float32]()
	inner.Init(0, 1e-3, 1e8, 200)
	s := NewMixedPrecisionDC[float64, float32](inner)
	s.Init(0, 1e-12, 1e8, 50)
	s.SetOperator(a)
	require.NoError(t, s.Build())
	rhs, x := vectors[float64](a)
	res, err := s.Solve(rhs, x)
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)
	assert.Less(t, relResidual[float64](t, a, rhs, x), 1e-11)
	assert.Contains(t, s.String(), "CG")

	s.Clear()
	assert.False(t, inner.IsBuilt())
}

func TestControl(t *testing.T) {
	c := NewControl()
	c.Init(1e-10, 1e-3, 10, 5)
	assert.False(t, c.begin(1))
	assert.False(t, c.check(0.5))
	assert.True(t, c.check(1e-4))
	assert.Equal(t, Converged, c.Result().Status)

	assert.False(t, c.begin(1))
	assert.True(t, c.check(20))
	assert.Equal(t, Diverged, c.Result().Status)

	c.InitMinIter(3)
	assert.False(t, c.begin(1))
	assert.False(t, c.check(1e-12))
	assert.False(t, c.check(1e-12))
	assert.True(t, c.check(1e-12))
	assert.Equal(t, 3, c.Result().Iterations)

	c.InitMinIter(0)
	assert.True(t, c.begin(0))
	assert.Equal(t, Converged, c.Result().Status)

	c.SetResidualNorm(LInf)
	v := local.NewVector[float64](backend.Default(), "v")
	v.Allocate(3)
	require.NoError(t, v.CopyFromData([]float64{1, -5, 2}))
	assert.Equal(t, 5.0, norm(c.Norm, v))
	assert.Equal(t, 8.0, norm(L1, v))
}

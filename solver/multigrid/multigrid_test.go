package multigrid

import (
	"testing"

	"github.com/costat/rocALUTION/backend"
	"github.com/costat/rocALUTION/debug"
	"github.com/costat/rocALUTION/local"
	"github.com/costat/rocALUTION/mat"
	"github.com/costat/rocALUTION/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// laplace 五点差分 n×n 网格，对角元可按行加偏移
func laplace(t *testing.T, desc backend.Descriptor, n int, shift func(k int) float64) *local.Matrix[float64] {
	t.Helper()
	var ri, ci []int
	var v []float64
	add := func(i, j int, x float64) {
		ri, ci, v = append(ri, i), append(ci, j), append(v, x)
	}
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			k := y*n + x
			d := 4.0
			if shift != nil {
				d += shift(k)
			}
			add(k, k, d)
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
	m := local.NewMatrix[float64](desc, "laplace")
	require.NoError(t, m.Assemble(n*n, n*n, ri, ci, v))
	return m
}

func vectors(op local.Operator[float64]) (rhs, x *local.Vector[float64]) {
	rhs = local.NewVector[float64](op.Descriptor(), "rhs")
	rhs.CloneBackend(op)
	rhs.Allocate(op.Rows())
	rhs.Ones()
	x = local.NewVector[float64](op.Descriptor(), "x")
	x.CloneBackend(op)
	x.Allocate(op.Cols())
	return rhs, x
}

func relResidual(t *testing.T, op local.Operator[float64], rhs, x *local.Vector[float64]) float64 {
	t.Helper()
	r := local.NewVector[float64](op.Descriptor(), "r")
	r.CloneBackend(op)
	r.Allocate(op.Rows())
	require.NoError(t, op.Apply(x, r))
	r.ScaleAdd(-1, rhs)
	return r.Norm() / rhs.Norm()
}

// checkHierarchy 层级逐层严格变小且转移算子维度衔接
func checkHierarchy(t *testing.T, a *RugeStuebenAMG[float64], fine *local.Matrix[float64], maxLevels int) {
	t.Helper()
	require.GreaterOrEqual(t, a.Levels(), 1)
	require.LessOrEqual(t, a.Levels(), maxLevels)
	rows := fine.Rows()
	for i := 0; i < a.Levels()-1; i++ {
		op := a.LevelOperator(i)
		assert.Less(t, op.Rows(), rows, "level %d", i+1)
		assert.Equal(t, op.Rows(), op.Cols())
		assert.Equal(t, rows, a.Prolongation(i).Rows())
		assert.Equal(t, op.Rows(), a.Prolongation(i).Cols())
		assert.Equal(t, op.Rows(), a.Restriction(i).Rows())
		assert.Equal(t, rows, a.Restriction(i).Cols())
		rows = op.Rows()
	}
}

func TestHierarchyLevels(t *testing.T) {
	for _, maxLevels := range []int{1, 2, 3, 5} {
		fine := laplace(t, backend.Default(), 24, nil)
		a := NewRugeStuebenAMG[float64](WithMaxLevels(maxLevels), WithCoarsestSize(10))
		a.SetOperator(fine)
		require.NoError(t, a.Build())
		checkHierarchy(t, a, fine, maxLevels)
		assert.Len(t, a.Hierarchy(), a.Levels())
		assert.Equal(t, fine.Rows(), a.Hierarchy()[0].Rows)
	}
}

func TestDegenerateCoupling(t *testing.T) {
	for _, eps := range []float64{0, 1} {
		fine := laplace(t, backend.Default(), 16, nil)
		a := NewRugeStuebenAMG[float64](WithCouplingStrength(eps), WithCoarsestSize(4))
		a.SetOperator(fine)
		require.NoError(t, a.Build())
		checkHierarchy(t, a, fine, DefaultMaxLevels)
	}
}

func TestStagnationStopsHierarchy(t *testing.T) {
	n := 50
	ri, ci, v := make([]int, n), make([]int, n), make([]float64, n)
	for i := range ri {
		ri[i], ci[i], v[i] = i, i, float64(i+1)
	}
	diag := local.NewMatrix[float64](backend.Default(), "diag")
	require.NoError(t, diag.Assemble(n, n, ri, ci, v))
	a := NewRugeStuebenAMG[float64](WithCoarsestSize(2))
	a.SetOperator(diag)
	require.NoError(t, a.Build())
	assert.Equal(t, 1, a.Levels())

	rhs, x := vectors(diag)
	res, err := a.Solve(rhs, x)
	require.NoError(t, err)
	assert.Equal(t, solver.Converged, res.Status)
	assert.InDelta(t, 1.0/float64(n), x.Values()[n-1], 1e-14)
}

func TestDensityStopsHierarchy(t *testing.T) {
	fine := laplace(t, backend.Default(), 4, nil)
	a := NewRugeStuebenAMG[float64](WithCoarsestSize(1), WithMaxDensity(0.1))
	a.SetOperator(fine)
	require.NoError(t, a.Build())
	assert.Equal(t, 1, a.Levels())
}

// scenario 三层 Ruge-Stüben AMG 求解全一右端项
func scenario(t *testing.T, desc backend.Descriptor, opts ...Option) (*RugeStuebenAMG[float64], solver.Result, *debug.Record) {
	t.Helper()
	fine := laplace(t, desc, 32, nil)
	fine.MoveToAccelerator()
	a := NewRugeStuebenAMG[float64](append([]Option{WithMaxLevels(3), WithCouplingStrength(0.25)}, opts...)...)
	a.Init(0, 1e-8, 1e8, 100)
	rec := debug.NewRecord("amg")
	a.RecordHistory(rec)
	a.SetOperator(fine)
	require.NoError(t, a.Build())
	rhs, x := vectors(fine)
	res, err := a.Solve(rhs, x)
	require.NoError(t, err)
	assert.Less(t, relResidual(t, fine, rhs, x), 1e-8)
	return a, res, rec
}

func TestThreeLevelLaplace(t *testing.T) {
	a, res, rec := scenario(t, backend.Default())
	assert.Equal(t, 3, a.Levels())
	assert.Equal(t, solver.Converged, res.Status)
	assert.Less(t, res.Iterations, 50)
	assert.Equal(t, res.Iterations+1, rec.Len())
	assert.Less(t, rec.Rate(), 0.5)

	// 回归：同样输入得到同样的循环次数
	_, again, _ := scenario(t, backend.Default())
	assert.Equal(t, res.Iterations, again.Iterations)
}

func TestCyclesAndFormats(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"w-cycle", []Option{WithCycle(WCycle), WithMaxLevels(4), WithCoarsestSize(50)}},
		{"two-sweeps", []Option{WithSmoothingSteps(2, 2)}},
		{"post-only", []Option{WithSmoothingSteps(0, 2)}},
		{"ell", []Option{WithOperatorFormat(mat.ELL), WithSmootherFormat(mat.ELL)}},
		{"hyb", []Option{WithOperatorFormat(mat.HYB), WithSmootherFormat(mat.HYB)}},
		{"relaxation", []Option{WithRelaxation(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, res, _ := scenario(t, backend.Default(), tt.opts...)
			assert.Equal(t, solver.Converged, res.Status)
		})
	}
}

func TestHostLevels(t *testing.T) {
	desc, err := backend.NewDescriptor(backend.GPU, 4)
	require.NoError(t, err)
	a, res, _ := scenario(t, desc, WithHostLevels(1))
	assert.Equal(t, solver.Converged, res.Status)
	require.Equal(t, 3, a.Levels())
	assert.Equal(t, backend.GPU, a.LevelOperator(0).Device())
	assert.Equal(t, backend.Host, a.LevelOperator(1).Device())
	assert.Equal(t, backend.GPU, a.Prolongation(1).Device())

	a.MoveToHost()
	assert.Equal(t, backend.Host, a.LevelOperator(0).Device())
	a.MoveToAccelerator()
	assert.Equal(t, backend.GPU, a.LevelOperator(0).Device())
	assert.Equal(t, backend.Host, a.LevelOperator(1).Device())
}

func TestNonCSROperator(t *testing.T) {
	fine := laplace(t, backend.Default(), 20, nil)
	require.NoError(t, fine.ConvertTo(mat.ELL))
	a := NewRugeStuebenAMG[float64](WithCoarsestSize(20))
	a.Init(0, 1e-8, 1e8, 100)
	a.SetOperator(fine)
	require.NoError(t, a.Build())
	assert.Equal(t, mat.ELL, fine.Format())
	rhs, x := vectors(fine)
	res, err := a.Solve(rhs, x)
	require.NoError(t, err)
	assert.Equal(t, solver.Converged, res.Status)
	require.NoError(t, a.ReBuildNumeric())
}

func TestReBuildNumeric(t *testing.T) {
	fine := laplace(t, backend.Default(), 20, nil)
	a := NewRugeStuebenAMG[float64](WithCoarsestSize(30))
	a.SetOperator(fine)
	require.ErrorIs(t, a.ReBuildNumeric(), solver.ErrNotBuilt)
	require.NoError(t, a.Build())
	require.GreaterOrEqual(t, a.Levels(), 3)

	type structure struct{ rowPtr, colInd []int }
	before := make([]structure, a.Levels()-1)
	for i := range before {
		rp, ci, _ := a.LevelOperator(i).ExportCSR().Data()
		before[i] = structure{rp, ci}
	}

	// 只改数值不改结构
	perturbed := laplace(t, backend.Default(), 20, func(k int) float64 { return 0.01 * float64(k%7) })
	require.NoError(t, fine.SetCSR(perturbed.ExportCSR()))
	require.NoError(t, a.ReBuildNumeric())

	src := fine
	for i := range before {
		op := a.LevelOperator(i)
		rp, ci, val := op.ExportCSR().Data()
		assert.Equal(t, before[i].rowPtr, rp, "level %d", i+1)
		assert.Equal(t, before[i].colInd, ci, "level %d", i+1)

		ap := local.NewMatrix[float64](fine.Descriptor(), "ap")
		require.NoError(t, ap.MatrixMult(src, a.Prolongation(i)))
		want := local.NewMatrix[float64](fine.Descriptor(), "rap")
		require.NoError(t, want.MatrixMult(a.Restriction(i), ap))
		_, _, wantVal := want.ExportCSR().Data()
		assert.InDeltaSlice(t, wantVal, val, 1e-12, "level %d", i+1)
		src = op
	}

	rhs, x := vectors(fine)
	a.Init(0, 1e-8, 1e8, 100)
	res, err := a.Solve(rhs, x)
	require.NoError(t, err)
	assert.Equal(t, solver.Converged, res.Status)
}

func TestClearRebuildTrajectory(t *testing.T) {
	fine := laplace(t, backend.Default(), 16, nil)
	a := NewRugeStuebenAMG[float64](WithCoarsestSize(20))
	a.Init(0, 1e-10, 1e8, 100)
	a.SetOperator(fine)
	run := func() []float64 {
		rec := debug.NewRecord("run")
		a.RecordHistory(rec)
		require.NoError(t, a.Build())
		rhs, x := vectors(fine)
		_, err := a.Solve(rhs, x)
		require.NoError(t, err)
		return rec.Residual
	}
	first := run()
	a.Clear()
	assert.Equal(t, 0, a.Levels())
	second := run()
	assert.Equal(t, first, second)
}

func TestPreconditioner(t *testing.T) {
	fine := laplace(t, backend.Default(), 32, nil)
	amg := NewRugeStuebenAMG[float64](WithCoarsestSize(50))
	amg.Init(0, 0, 1e8, 1)

	s := solver.NewBiCGStabl[float64]()
	s.Init(0, 1e-10, 1e8, 100)
	s.SetOperator(fine)
	s.SetPreconditioner(amg)
	require.NoError(t, s.Build())
	assert.True(t, amg.IsBuilt())
	rhs, x := vectors(fine)
	res, err := s.Solve(rhs, x)
	require.NoError(t, err)
	assert.Equal(t, solver.Converged, res.Status)
	assert.Less(t, res.Iterations, 20)
	assert.Less(t, relResidual(t, fine, rhs, x), 1e-8)
	assert.Contains(t, s.String(), "RugeStuebenAMG")

	s.Clear()
	assert.False(t, amg.IsBuilt())
}

func TestManualSmoothersAndCoarseSolver(t *testing.T) {
	fine := laplace(t, backend.Default(), 16, nil)
	a := NewRugeStuebenAMG[float64](WithMaxLevels(2), WithCoarsestSize(20))
	a.SetOperator(fine)
	a.SetManualSmoothers([]solver.IterativeSolver[float64]{})
	require.ErrorIs(t, a.Build(), ErrSmoothers)
	assert.False(t, a.IsBuilt())

	fp := solver.NewFixedPoint[float64]()
	fp.SetRelaxation(0.8)
	fp.SetPreconditioner(solver.NewJacobi[float64]())
	a.SetManualSmoothers([]solver.IterativeSolver[float64]{fp})
	a.SetCoarseSolver(solver.NewInversion[float64]())
	a.SetSmoothingSteps(2, 2)
	a.Init(0, 1e-8, 1e8, 200)
	require.NoError(t, a.Build())
	assert.Same(t, fp, a.Smoother(0))
	assert.Contains(t, a.CoarseSolver().String(), "Inversion")
	rhs, x := vectors(fine)
	res, err := a.Solve(rhs, x)
	require.NoError(t, err)
	assert.Equal(t, solver.Converged, res.Status)
}

// badCoarsening 返回无矩阵插值算子
type badCoarsening struct{ nilOps bool }

func (b badCoarsening) Coarsen(fine *local.Matrix[float64]) (local.Operator[float64], local.Operator[float64], error) {
	if b.nilOps {
		return nil, nil, nil
	}
	shell := local.NewShell[float64](fine.Descriptor(), "shell", fine.Rows(), 1, func(in, out *local.Vector[float64]) error { return nil })
	return shell, shell, nil
}

func TestTransferCheck(t *testing.T) {
	for _, c := range []badCoarsening{{}, {nilOps: true}} {
		fine := laplace(t, backend.Default(), 20, nil)
		a := NewBaseAMG[float64]("custom", c, WithCoarsestSize(10))
		a.SetOperator(fine)
		require.ErrorIs(t, a.Build(), ErrTransfer)
		assert.False(t, a.IsBuilt())
		assert.Equal(t, 0, a.Levels())
	}
}

func TestOperatorKind(t *testing.T) {
	fine := laplace(t, backend.Default(), 4, nil)
	shell := local.NewShell[float64](fine.Descriptor(), "shell", fine.Rows(), fine.Cols(), fine.Apply)
	a := NewRugeStuebenAMG[float64]()
	a.SetOperator(shell)
	require.ErrorIs(t, a.Build(), local.ErrOperatorKind)

	require.ErrorIs(t, NewBaseAMG[float64]("none", nil).Build(), solver.ErrNilOperator)
}

func TestOptionPanics(t *testing.T) {
	assert.Panics(t, func() { WithCouplingStrength(1.5) })
	assert.Panics(t, func() { WithMaxLevels(0) })
	assert.Panics(t, func() { WithMaxDensity(0) })
	assert.Panics(t, func() { WithRelaxation(-1) })
	assert.Panics(t, func() { WithSmoothingSteps(-1, 1) })
	assert.Panics(t, func() { NewRugeStuebenAMG[float64]().SetHostLevels(-2) })
}

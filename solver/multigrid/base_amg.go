// Package multigrid 代数多重网格层级引擎
// 第0层为外部算子，其后每层由粗化策略给出转移算子，经 Galerkin 乘积 R·A·P 得到粗层算子，
// 最粗层用粗层求解器直接求解，其余各层配备光滑子。
package multigrid

import (
	"fmt"
	"math"
	"strings"

	"github.com/costat/rocALUTION/debug"
	"github.com/costat/rocALUTION/local"
	"github.com/costat/rocALUTION/mat"
	"github.com/costat/rocALUTION/maths"
	"github.com/costat/rocALUTION/solver"
	"github.com/pkg/errors"
)

// Coarsening 粗化策略：由主机CSR细层算子生成插值与限制算子
type Coarsening[T maths.Number] interface {
	Coarsen(fine *local.Matrix[T]) (prolong, restrict local.Operator[T], err error)
}

// level 多重网格的一层
type level[T maths.Number] struct {
	op                *local.Matrix[T] // 本层算子，第0层为外部算子（借用）
	prolong, restrict *local.Matrix[T] // 与下一粗层之间的转移算子，最粗层为空
	b, x              *local.Vector[T] // 本层右端项与解（第0层使用调用方向量）
	r                 *local.Vector[T] // 本层残差
	stage             *local.Vector[T] // 粗层长度的中转向量，相邻层位于不同设备时使用
	smoother          solver.IterativeSolver[T]
	host              bool
}

// BaseAMG 多重网格层级与循环
type BaseAMG[T maths.Number] struct {
	solver.IterativeBase[T]
	cfg        config
	coarsening Coarsening[T]

	levels       []*level[T]
	manual       []solver.IterativeSolver[T]
	coarseSolver solver.Solver[T] // 调用方指定的粗层求解器
	coarse       solver.Solver[T] // 实际使用的粗层求解器
	shim         *local.Matrix[T] // 外部算子非CSR时的CSR副本
	res          *local.Vector[T]
}

// NewBaseAMG 以指定粗化策略创建
func NewBaseAMG[T maths.Number](name string, c Coarsening[T], opts ...Option) *BaseAMG[T] {
	a := newBaseAMG[T](name, opts...)
	a.coarsening = c
	return &a
}

func newBaseAMG[T maths.Number](name string, opts ...Option) BaseAMG[T] {
	cfg := defaults()
	for _, opt := range opts {
		opt(&cfg)
	}
	return BaseAMG[T]{IterativeBase: solver.NewIterativeBase[T](name), cfg: cfg}
}

// SetCouplingStrength 强耦合阈值
func (a *BaseAMG[T]) SetCouplingStrength(eps float64) { WithCouplingStrength(eps)(&a.cfg) }

// SetMaxLevels 最大层数
func (a *BaseAMG[T]) SetMaxLevels(n int) { WithMaxLevels(n)(&a.cfg) }

// SetCoarsestSize 最粗层行数阈值
func (a *BaseAMG[T]) SetCoarsestSize(n int) { WithCoarsestSize(n)(&a.cfg) }

// SetMaxDensity 稠密度上限
func (a *BaseAMG[T]) SetMaxDensity(d float64) { WithMaxDensity(d)(&a.cfg) }

// SetHostLevels 放在主机上的最粗层数
func (a *BaseAMG[T]) SetHostLevels(n int) { WithHostLevels(n)(&a.cfg) }

// SetOperatorFormat 粗层算子工作格式
func (a *BaseAMG[T]) SetOperatorFormat(f mat.Format) { a.cfg.opFormat = f }

// SetSmootherFormat 默认光滑子行块格式
func (a *BaseAMG[T]) SetSmootherFormat(f mat.Format) { a.cfg.smoothFormat = f }

// SetRelaxation 默认光滑子松弛因子
func (a *BaseAMG[T]) SetRelaxation(omega float64) { WithRelaxation(omega)(&a.cfg) }

// SetCycle 循环类型
func (a *BaseAMG[T]) SetCycle(c Cycle) { a.cfg.cycle = c }

// SetSmoothingSteps 前后光滑步数
func (a *BaseAMG[T]) SetSmoothingSteps(pre, post int) { WithSmoothingSteps(pre, post)(&a.cfg) }

// SetCoarseSolver 指定粗层求解器，nil 恢复默认的稠密LU
func (a *BaseAMG[T]) SetCoarseSolver(s solver.Solver[T]) { a.coarseSolver = s }

// SetManualSmoothers 指定各层光滑子（由细到粗），数量须不少于层数-1
func (a *BaseAMG[T]) SetManualSmoothers(s []solver.IterativeSolver[T]) { a.manual = s }

// Levels 层数（含最细层）
func (a *BaseAMG[T]) Levels() int { return len(a.levels) }

// LevelOperator 第 i 个粗层算子，i 取 0..Levels()-2
func (a *BaseAMG[T]) LevelOperator(i int) *local.Matrix[T] { return a.levels[i+1].op }

// Prolongation 第 i 层到细层的插值算子
func (a *BaseAMG[T]) Prolongation(i int) *local.Matrix[T] { return a.levels[i].prolong }

// Restriction 细层到第 i 个粗层的限制算子
func (a *BaseAMG[T]) Restriction(i int) *local.Matrix[T] { return a.levels[i].restrict }

// Smoother 第 i 层光滑子，i 取 0..Levels()-2
func (a *BaseAMG[T]) Smoother(i int) solver.IterativeSolver[T] { return a.levels[i].smoother }

// CoarseSolver 最粗层求解器
func (a *BaseAMG[T]) CoarseSolver() solver.Solver[T] { return a.coarse }

// Hierarchy 各层规模，用于图表
func (a *BaseAMG[T]) Hierarchy() []debug.Level {
	out := make([]debug.Level, len(a.levels))
	for i, lv := range a.levels {
		out[i] = debug.Level{Rows: lv.op.Rows(), Nnz: lv.op.Nnz()}
	}
	return out
}

// Build 构建层级、光滑子与粗层求解器
func (a *BaseAMG[T]) Build() error {
	if err := a.CheckBuild(); err != nil {
		return err
	}
	if a.coarsening == nil {
		return errors.Wrap(ErrCoarsening, a.Name())
	}
	fine, err := local.AsMatrix(a.Operator())
	if err != nil {
		return errors.Wrap(err, a.Name())
	}
	if err = a.build(fine); err != nil {
		a.Clear()
		return err
	}
	a.res = a.NewWork("residual")
	a.MarkBuilt()
	a.report()
	return nil
}

func (a *BaseAMG[T]) build(fine *local.Matrix[T]) error {
	if err := a.buildHierarchy(fine); err != nil {
		return err
	}
	a.place()
	if err := a.convertLevels(); err != nil {
		return err
	}
	a.allocate()
	if err := a.buildSmoothers(); err != nil {
		return err
	}
	return a.buildCoarseSolver()
}

// buildHierarchy 反复粗化直到触发停止条件
func (a *BaseAMG[T]) buildHierarchy(fine *local.Matrix[T]) error {
	a.levels = []*level[T]{{op: fine}}
	src := fine
	if fine.Format() != mat.CSR {
		a.shim = a.csrShim(fine)
		if err := a.shim.ConvertTo(mat.CSR); err != nil {
			return err
		}
		src = a.shim
	}
	log := fine.Descriptor().Log()
	for len(a.levels) < a.cfg.maxLevels {
		n := src.Rows()
		if n <= a.cfg.coarsestSize {
			break
		}
		if density := float64(src.Nnz()) / (float64(n) * float64(n)); density > a.cfg.maxDensity {
			log.Debug("amg stop: density", "solver", a.Name(), "level", len(a.levels)-1, "density", density)
			break
		}
		k := len(a.levels) - 1
		coarse, err := a.aggregate(k, src)
		if err != nil {
			return err
		}
		if coarse == nil {
			break
		}
		a.levels = append(a.levels, &level[T]{op: coarse})
		src = coarse
	}
	return nil
}

// aggregate 粗化第 k 层并做 Galerkin 乘积，粗化停滞时返回 nil
func (a *BaseAMG[T]) aggregate(k int, fine *local.Matrix[T]) (*local.Matrix[T], error) {
	host := local.NewMatrix[T](fine.Descriptor(), a.levelName(k, "host"))
	host.CloneFrom(fine)
	host.MoveToHost()
	pOp, rOp, err := a.coarsening.Coarsen(host)
	host.Clear()
	if err != nil {
		return nil, errors.Wrapf(err, "%s: coarsen level %d", a.Name(), k)
	}
	n := fine.Rows()
	p, r, err := a.transfer(k, pOp, rOp, n)
	if err != nil {
		return nil, err
	}
	if nc := p.Cols(); nc == 0 || nc >= n {
		fine.Descriptor().Log().Debug("amg stop: stagnation", "solver", a.Name(), "level", k, "rows", n, "coarse", nc)
		p.Clear()
		r.Clear()
		return nil, nil
	}
	p.SetName(a.levelName(k, "prolong"))
	r.SetName(a.levelName(k, "restrict"))
	p.CloneBackend(fine)
	r.CloneBackend(fine)
	coarse := local.NewMatrix[T](fine.Descriptor(), a.levelName(k+1, "op"))
	if err = a.galerkin(fine, p, r, coarse); err != nil {
		return nil, err
	}
	lv := a.levels[k]
	lv.prolong, lv.restrict = p, r
	return coarse, nil
}

// transfer 检查转移算子的类型与维度
func (a *BaseAMG[T]) transfer(k int, pOp, rOp local.Operator[T], n int) (p, r *local.Matrix[T], err error) {
	if pOp == nil || rOp == nil {
		return nil, nil, errors.Wrapf(ErrTransfer, "%s: level %d: nil operator", a.Name(), k)
	}
	if p, err = local.AsMatrix(pOp); err != nil {
		return nil, nil, errors.Wrapf(ErrTransfer, "%s: level %d prolongation: %v", a.Name(), k, err)
	}
	if r, err = local.AsMatrix(rOp); err != nil {
		return nil, nil, errors.Wrapf(ErrTransfer, "%s: level %d restriction: %v", a.Name(), k, err)
	}
	if p.Rows() != n || r.Cols() != n || p.Cols() != r.Rows() {
		return nil, nil, errors.Wrapf(ErrTransfer, "%s: level %d: prolong %dx%d, restrict %dx%d, fine %d",
			a.Name(), k, p.Rows(), p.Cols(), r.Rows(), r.Cols(), n)
	}
	if err = p.ConvertTo(mat.CSR); err != nil {
		return nil, nil, err
	}
	if err = r.ConvertTo(mat.CSR); err != nil {
		return nil, nil, err
	}
	return p, r, nil
}

// galerkin dst = R·A·P，A 为CSR，结果为CSR并位于 A 所在设备
func (a *BaseAMG[T]) galerkin(fine, p, r, dst *local.Matrix[T]) error {
	ap := local.NewMatrix[T](fine.Descriptor(), "AP")
	ap.CloneBackend(fine)
	if err := ap.MatrixMult(fine, p); err != nil {
		return err
	}
	dst.CloneBackend(fine)
	if err := dst.MatrixMult(r, ap); err != nil {
		return err
	}
	ap.Clear()
	return nil
}

// csrShim 外部算子的同设备副本
func (a *BaseAMG[T]) csrShim(fine *local.Matrix[T]) *local.Matrix[T] {
	if a.shim == nil {
		a.shim = local.NewMatrix[T](fine.Descriptor(), a.Name()+"/csr")
	}
	a.shim.CloneFrom(fine)
	return a.shim
}

// place 最粗的 hostLevels 层迁移到主机，最细层跟随外部算子
func (a *BaseAMG[T]) place() {
	first := max(1, len(a.levels)-a.cfg.hostLevels)
	for k, lv := range a.levels {
		lv.host = k >= first
		if !lv.host {
			continue
		}
		lv.op.MoveToHost()
		if lv.prolong != nil {
			lv.prolong.MoveToHost()
			lv.restrict.MoveToHost()
		}
	}
}

// convertLevels 粗层算子转换为工作格式
func (a *BaseAMG[T]) convertLevels() error {
	for k, lv := range a.levels[1:] {
		if err := lv.op.ConvertTo(a.cfg.opFormat); err != nil {
			return errors.Wrapf(err, "%s: level %d", a.Name(), k+1)
		}
	}
	return nil
}

// allocate 各层循环向量
func (a *BaseAMG[T]) allocate() {
	last := len(a.levels) - 1
	for k, lv := range a.levels {
		if k > 0 {
			lv.b = a.levelVector(k, "b", lv.op, lv.op.Rows())
			lv.x = a.levelVector(k, "x", lv.op, lv.op.Rows())
		}
		if k < last {
			lv.r = a.levelVector(k, "r", lv.op, lv.op.Rows())
			lv.stage = a.levelVector(k, "stage", lv.op, a.levels[k+1].op.Rows())
		}
	}
}

func (a *BaseAMG[T]) levelVector(k int, name string, ref local.Placement, n int) *local.Vector[T] {
	v := local.NewVector[T](ref.Descriptor(), a.levelName(k, name))
	v.CloneBackend(ref)
	v.Allocate(n)
	return v
}

func (a *BaseAMG[T]) levelName(k int, name string) string {
	return fmt.Sprintf("%s/L%d/%s", a.Name(), k, name)
}

// buildSmoothers 除最粗层外每层一个光滑子，默认为不动点迭代加多色Gauss-Seidel
func (a *BaseAMG[T]) buildSmoothers() error {
	need := len(a.levels) - 1
	if a.manual != nil && len(a.manual) < need {
		return errors.Wrapf(ErrSmoothers, "%s: %d levels need %d smoothers, have %d",
			a.Name(), len(a.levels), need, len(a.manual))
	}
	for k := 0; k < need; k++ {
		lv := a.levels[k]
		var sm solver.IterativeSolver[T]
		if a.manual != nil {
			sm = a.manual[k]
		} else {
			fp := solver.NewFixedPoint[T]()
			fp.SetRelaxation(a.cfg.relax)
			gs := solver.NewMultiColoredGS[T]()
			gs.SetFormat(a.cfg.smoothFormat)
			fp.SetPreconditioner(gs)
			sm = fp
		}
		sm.SetOperator(lv.op)
		if err := sm.Build(); err != nil {
			return errors.Wrapf(err, "%s: level %d smoother", a.Name(), k)
		}
		lv.smoother = sm
	}
	return nil
}

// buildCoarseSolver 最粗层求解器，默认稠密LU
func (a *BaseAMG[T]) buildCoarseSolver() error {
	a.coarse = a.coarseSolver
	if a.coarse == nil {
		a.coarse = solver.NewLU[T]()
	}
	a.coarse.SetOperator(a.levels[len(a.levels)-1].op)
	if err := a.coarse.Build(); err != nil {
		return errors.Wrapf(err, "%s: coarse solver", a.Name())
	}
	return nil
}

// ReBuildNumeric 复用转移算子，按外部算子当前数值重算各粗层算子并刷新光滑子与粗层求解器
func (a *BaseAMG[T]) ReBuildNumeric() error {
	if !a.IsBuilt() {
		return errors.Wrap(solver.ErrNotBuilt, a.Name())
	}
	fine, err := local.AsMatrix(a.Operator())
	if err != nil {
		return errors.Wrap(err, a.Name())
	}
	src := fine
	if fine.Format() != mat.CSR {
		src = a.csrShim(fine)
		if err = src.ConvertTo(mat.CSR); err != nil {
			return err
		}
	}
	for k := 0; k < len(a.levels)-1; k++ {
		lv, next := a.levels[k], a.levels[k+1]
		if err = a.galerkin(src, lv.prolong, lv.restrict, next.op); err != nil {
			return errors.Wrapf(err, "%s: level %d", a.Name(), k+1)
		}
		if next.host {
			next.op.MoveToHost()
		}
		src = next.op
	}
	if err = a.convertLevels(); err != nil {
		return err
	}
	for k, lv := range a.levels[:len(a.levels)-1] {
		if err = lv.smoother.ReBuildNumeric(); err != nil {
			return errors.Wrapf(err, "%s: level %d smoother", a.Name(), k)
		}
	}
	if err = a.coarse.ReBuildNumeric(); err != nil {
		return errors.Wrapf(err, "%s: coarse solver", a.Name())
	}
	return nil
}

// Clear 释放全部层级
func (a *BaseAMG[T]) Clear() {
	for k, lv := range a.levels {
		if k > 0 {
			lv.op.Clear()
		}
		for _, m := range []*local.Matrix[T]{lv.prolong, lv.restrict} {
			if m != nil {
				m.Clear()
			}
		}
		for _, v := range []*local.Vector[T]{lv.b, lv.x, lv.r, lv.stage} {
			if v != nil {
				v.Clear()
			}
		}
		if lv.smoother != nil {
			lv.smoother.Clear()
		}
	}
	a.levels = nil
	if a.coarse != nil {
		a.coarse.Clear()
		a.coarse = nil
	}
	if a.shim != nil {
		a.shim.Clear()
		a.shim = nil
	}
	a.res = nil
	a.IterativeBase.Clear()
}

// mover 可迁移的层级数据
type mover interface {
	MoveToHost()
	MoveToAccelerator()
}

// MoveToHost 全部层级迁移到主机
func (a *BaseAMG[T]) MoveToHost() {
	a.IterativeBase.MoveToHost()
	a.move(true)
}

// MoveToAccelerator 主机层以外的层级迁移到加速器
func (a *BaseAMG[T]) MoveToAccelerator() {
	a.IterativeBase.MoveToAccelerator()
	a.move(false)
}

func (a *BaseAMG[T]) move(toHost bool) {
	last := len(a.levels) - 1
	for k, lv := range a.levels {
		var items []mover
		if k > 0 {
			items = append(items, lv.op, lv.b, lv.x)
		}
		if k < last {
			items = append(items, lv.prolong, lv.restrict, lv.r, lv.stage, lv.smoother)
		} else if a.coarse != nil {
			items = append(items, a.coarse)
		}
		for _, it := range items {
			if toHost || lv.host {
				it.MoveToHost()
			} else {
				it.MoveToAccelerator()
			}
		}
	}
}

// report 构建结果日志
func (a *BaseAMG[T]) report() {
	desc := a.Descriptor()
	if desc.Verbose < 1 {
		return
	}
	last := a.levels[len(a.levels)-1].op
	desc.Log().Info("amg hierarchy", "solver", a.Name(), "levels", len(a.levels),
		"coarsest", last.Rows(), "nnz", last.Nnz(), "cycle", a.cfg.cycle.String())
	for k, lv := range a.levels {
		desc.Log().Debug("amg level", "level", k, "rows", lv.op.Rows(), "nnz", lv.op.Nnz(),
			"format", lv.op.Format(), "device", lv.op.Device())
	}
}

// String 层级摘要
func (a *BaseAMG[T]) String() string {
	var sb strings.Builder
	sb.WriteString(a.IterativeBase.String())
	fmt.Fprintf(&sb, " levels=%d cycle=%s pre=%d post=%d", len(a.levels), a.cfg.cycle, a.cfg.pre, a.cfg.post)
	if n := len(a.levels); n > 0 {
		last := a.levels[n-1].op
		fmt.Fprintf(&sb, " coarsest=%dx%d nnz=%d", last.Rows(), last.Cols(), last.Nnz())
		if n > 1 {
			fmt.Fprintf(&sb, " smoother=[%s]", a.levels[0].smoother.String())
		}
	}
	if a.coarse != nil {
		fmt.Fprintf(&sb, " coarse=[%s]", a.coarse.String())
	}
	return sb.String()
}

// Solve 重复多重网格循环直到满足控制条件
func (a *BaseAMG[T]) Solve(rhs, x *local.Vector[T]) (solver.Result, error) {
	if err := a.CheckSolve(rhs, x); err != nil {
		return solver.Result{}, err
	}
	if err := a.Residual(rhs, x, a.res); err != nil {
		return solver.Result{}, err
	}
	if a.Begin(a.ResidualNorm(a.res)) {
		return a.Finish(), nil
	}
	for {
		if err := a.cycle(0, rhs, x); err != nil {
			return solver.Result{}, err
		}
		if err := a.Residual(rhs, x, a.res); err != nil {
			return solver.Result{}, err
		}
		if a.Check(a.ResidualNorm(a.res)) {
			break
		}
	}
	return a.Finish(), nil
}

// cycle 第 k 层上的一次循环，x 为初值并被原地更新
func (a *BaseAMG[T]) cycle(k int, b, x *local.Vector[T]) error {
	last := len(a.levels) - 1
	if k == last {
		if _, err := a.coarse.Solve(b, x); err != nil {
			return errors.Wrapf(err, "%s: coarse solve", a.Name())
		}
		return nil
	}
	lv, next := a.levels[k], a.levels[k+1]
	if err := a.smooth(k, b, x, a.cfg.pre); err != nil {
		return err
	}
	if err := lv.op.Apply(x, lv.r); err != nil {
		return err
	}
	lv.r.ScaleAdd(maths.FromFloat[T](-1), b)
	if err := a.restrict(lv, lv.r, next.b); err != nil {
		return err
	}
	next.x.Zeros()
	visits := 1
	if a.cfg.cycle == WCycle && k+1 < last {
		visits = 2
	}
	for i := 0; i < visits; i++ {
		if err := a.cycle(k+1, next.b, next.x); err != nil {
			return err
		}
	}
	if err := a.prolong(lv, next.x, x); err != nil {
		return err
	}
	return a.smooth(k, b, x, a.cfg.post)
}

// smooth 第 k 层光滑 steps 步
func (a *BaseAMG[T]) smooth(k int, b, x *local.Vector[T], steps int) error {
	if steps == 0 {
		return nil
	}
	sm := a.levels[k].smoother
	sm.Init(0, 0, math.MaxFloat64, steps)
	if _, err := sm.Solve(b, x); err != nil {
		return errors.Wrapf(err, "%s: level %d smoothing", a.Name(), k)
	}
	return nil
}

// restrict bc = R·r，相邻层位于不同设备时经中转向量拷贝
func (a *BaseAMG[T]) restrict(lv *level[T], r, bc *local.Vector[T]) error {
	if bc.Device() == lv.restrict.Device() {
		return lv.restrict.Apply(r, bc)
	}
	if err := lv.restrict.Apply(r, lv.stage); err != nil {
		return err
	}
	return bc.CopyFrom(lv.stage)
}

// prolong x += P·xc
func (a *BaseAMG[T]) prolong(lv *level[T], xc, x *local.Vector[T]) error {
	one := maths.FromFloat[T](1)
	if xc.Device() == lv.prolong.Device() {
		return lv.prolong.ApplyAdd(xc, one, x)
	}
	if err := lv.stage.CopyFrom(xc); err != nil {
		return err
	}
	return lv.prolong.ApplyAdd(lv.stage, one, x)
}

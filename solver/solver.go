// Package solver 求解器基础协议与具体方法
// 生命周期：未构建 -(Build)-> 已构建 -(Solve)*-> 已构建 -(Clear)-> 未构建；
// ReBuildNumeric 在保持结构的前提下刷新数值。
package solver

import (
	"fmt"

	"github.com/costat/rocALUTION/backend"
	"github.com/costat/rocALUTION/debug"
	"github.com/costat/rocALUTION/local"
	"github.com/costat/rocALUTION/maths"
	"github.com/pkg/errors"
)

// Solver 求解器协议，预条件子实现同一接口，Solve 计算 x = M⁻¹ rhs
type Solver[T maths.Number] interface {
	SetOperator(op local.Operator[T])              // 绑定算子（借用，不拥有）
	SetPreconditioner(p Solver[T])                 // 绑定预条件子，须在 Build 之前
	Build() error                                  // 分配内部状态，递归构建预条件子
	ReBuildNumeric() error                         // 保持结构刷新数值
	Solve(rhs, x *local.Vector[T]) (Result, error) // 原地修改 x
	Clear()                                        // 释放内部状态，回到未构建
	MoveToHost()                                   // 内部数据随算子迁移到主机
	MoveToAccelerator()                            // 内部数据随算子迁移到加速器
	String() string
}

// IterativeSolver 可配置迭代控制的求解器
type IterativeSolver[T maths.Number] interface {
	Solver[T]
	Init(abs, rel, div float64, maxIter int)
	InitMinIter(n int)
	SetResidualNorm(n Norm)
	RecordHistory(r *debug.Record)
}

// Base 求解器公共状态：算子、预条件子、构建标志与自有数据
type Base[T maths.Number] struct {
	name    string
	op      local.Operator[T]
	precond Solver[T]
	built   bool
	work    []*local.Vector[T]
	mats    []*local.Matrix[T]
}

// NewBase 创建指定名称的基础状态
func NewBase[T maths.Number](name string) Base[T] {
	return Base[T]{name: name}
}

// Name 求解器名称
func (b *Base[T]) Name() string { return b.name }

// SetOperator 绑定算子
func (b *Base[T]) SetOperator(op local.Operator[T]) { b.op = op }

// SetPreconditioner 绑定预条件子
func (b *Base[T]) SetPreconditioner(p Solver[T]) { b.precond = p }

// Operator 已绑定的算子
func (b *Base[T]) Operator() local.Operator[T] { return b.op }

// Preconditioner 已绑定的预条件子
func (b *Base[T]) Preconditioner() Solver[T] { return b.precond }

// IsBuilt 是否已构建
func (b *Base[T]) IsBuilt() bool { return b.built }

// MarkBuilt 标记构建完成
func (b *Base[T]) MarkBuilt() { b.built = true }

// Descriptor 算子的后端配置，未绑定时为默认配置
func (b *Base[T]) Descriptor() backend.Descriptor {
	if b.op == nil {
		return backend.Default()
	}
	return b.op.Descriptor()
}

// CheckBuild Build 前置条件
func (b *Base[T]) CheckBuild() error {
	if b.built {
		return errors.Wrap(ErrAlreadyBuilt, b.name)
	}
	if b.op == nil {
		return errors.Wrap(ErrNilOperator, b.name)
	}
	if b.op.Rows() == 0 || b.op.Rows() != b.op.Cols() {
		return errors.Wrapf(ErrEmptyOperator, "%s: operator %dx%d", b.name, b.op.Rows(), b.op.Cols())
	}
	return nil
}

// BuildPreconditioner 将算子传给预条件子并构建
func (b *Base[T]) BuildPreconditioner() error {
	if b.precond == nil {
		return nil
	}
	b.precond.SetOperator(b.op)
	if err := b.precond.Build(); err != nil {
		return errors.Wrapf(err, "%s: build preconditioner", b.name)
	}
	return nil
}

// ReBuildPreconditioner 刷新预条件子数值
func (b *Base[T]) ReBuildPreconditioner() error {
	if !b.built {
		return errors.Wrap(ErrNotBuilt, b.name)
	}
	if b.precond == nil {
		return nil
	}
	if err := b.precond.ReBuildNumeric(); err != nil {
		return errors.Wrapf(err, "%s: rebuild preconditioner", b.name)
	}
	return nil
}

// ApplyPreconditioner z = M⁻¹ r，未绑定预条件子时 z = r
func (b *Base[T]) ApplyPreconditioner(r, z *local.Vector[T]) error {
	if b.precond == nil {
		return z.CopyFrom(r)
	}
	z.Zeros()
	if _, err := b.precond.Solve(r, z); err != nil {
		return errors.Wrapf(err, "%s: apply preconditioner", b.name)
	}
	return nil
}

// CheckSolve Solve 前置条件
func (b *Base[T]) CheckSolve(rhs, x *local.Vector[T]) error {
	if !b.built {
		return errors.Wrap(ErrNotBuilt, b.name)
	}
	if rhs.Len() != b.op.Rows() || x.Len() != b.op.Cols() {
		return errors.Wrapf(local.ErrDimensionMismatch, "%s: operator %dx%d, rhs=%d x=%d",
			b.name, b.op.Rows(), b.op.Cols(), rhs.Len(), x.Len())
	}
	if rhs.Device() != b.op.Device() || x.Device() != b.op.Device() {
		return errors.Wrapf(local.ErrDeviceMismatch, "%s: operator@%s rhs@%s x@%s",
			b.name, b.op.Device(), rhs.Device(), x.Device())
	}
	return nil
}

// NewVector 创建自有向量，放在算子所在设备上
func (b *Base[T]) NewVector(name string, n int) *local.Vector[T] {
	v := local.NewVector[T](b.Descriptor(), b.name+"/"+name)
	v.CloneBackend(b.op)
	v.Allocate(n)
	b.work = append(b.work, v)
	return v
}

// NewWork 创建与算子行数等长的工作向量
func (b *Base[T]) NewWork(name string) *local.Vector[T] {
	return b.NewVector(name, b.op.Rows())
}

// NewMatrix 创建自有矩阵
func (b *Base[T]) NewMatrix(name string) *local.Matrix[T] {
	m := local.NewMatrix[T](b.Descriptor(), b.name+"/"+name)
	b.mats = append(b.mats, m)
	return m
}

// Residual r = rhs - A*x
func (b *Base[T]) Residual(rhs, x, r *local.Vector[T]) error {
	if err := b.op.Apply(x, r); err != nil {
		return err
	}
	r.ScaleAdd(maths.FromFloat[T](-1), rhs)
	return nil
}

// Clear 释放自有数据并递归清理预条件子，预条件子绑定保留
func (b *Base[T]) Clear() {
	for _, v := range b.work {
		v.Clear()
	}
	for _, m := range b.mats {
		m.Clear()
	}
	b.work, b.mats = nil, nil
	if b.precond != nil {
		b.precond.Clear()
	}
	b.built = false
}

// MoveToHost 自有数据与预条件子迁移到主机
func (b *Base[T]) MoveToHost() {
	for _, v := range b.work {
		v.MoveToHost()
	}
	for _, m := range b.mats {
		m.MoveToHost()
	}
	if b.precond != nil {
		b.precond.MoveToHost()
	}
}

// MoveToAccelerator 自有数据与预条件子迁移到加速器
func (b *Base[T]) MoveToAccelerator() {
	for _, v := range b.work {
		v.MoveToAccelerator()
	}
	for _, m := range b.mats {
		m.MoveToAccelerator()
	}
	if b.precond != nil {
		b.precond.MoveToAccelerator()
	}
}

// String 求解器描述
func (b *Base[T]) String() string {
	s := b.name
	if b.op != nil {
		s += fmt.Sprintf(" operator %dx%d@%s", b.op.Rows(), b.op.Cols(), b.op.Device())
	}
	if b.precond != nil {
		s += " preconditioner [" + b.precond.String() + "]"
	}
	return s
}

// IterativeBase 迭代求解器公共状态
type IterativeBase[T maths.Number] struct {
	Base[T]
	ctl Control
}

// NewIterativeBase 使用默认控制参数
func NewIterativeBase[T maths.Number](name string) IterativeBase[T] {
	return IterativeBase[T]{Base: NewBase[T](name), ctl: NewControl()}
}

// Init 设置容差与最大迭代次数
func (it *IterativeBase[T]) Init(abs, rel, div float64, maxIter int) {
	it.ctl.Init(abs, rel, div, maxIter)
}

// InitMinIter 设置最小迭代次数
func (it *IterativeBase[T]) InitMinIter(n int) { it.ctl.InitMinIter(n) }

// SetResidualNorm 设置残差范数
func (it *IterativeBase[T]) SetResidualNorm(n Norm) { it.ctl.SetResidualNorm(n) }

// RecordHistory 记录残差历史
func (it *IterativeBase[T]) RecordHistory(r *debug.Record) { it.ctl.RecordHistory(r) }

// Control 迭代控制
func (it *IterativeBase[T]) Control() *Control { return &it.ctl }

// ResidualNorm 按配置的范数计算
func (it *IterativeBase[T]) ResidualNorm(v *local.Vector[T]) float64 {
	return norm(it.ctl.Norm, v)
}

// Begin 以初始残差开始迭代，返回是否已经结束
func (it *IterativeBase[T]) Begin(res float64) bool {
	desc := it.Descriptor()
	if desc.Verbose >= 1 {
		desc.Log().Info("solve start", "solver", it.name, "residual", res)
	}
	return it.ctl.begin(res)
}

// Check 一次迭代后检查残差，返回是否结束
func (it *IterativeBase[T]) Check(res float64) bool {
	done := it.ctl.check(res)
	if desc := it.Descriptor(); desc.Verbose >= 2 {
		desc.Log().Info("iteration", "solver", it.name, "iter", it.ctl.res.Iterations, "residual", res)
	}
	return done
}

// Fail 数值崩溃
func (it *IterativeBase[T]) Fail() {
	it.ctl.fail()
	desc := it.Descriptor()
	desc.Log().Warn("numerical breakdown", "solver", it.name, "iter", it.ctl.res.Iterations)
}

// Finish 结束迭代并返回结果
func (it *IterativeBase[T]) Finish() Result {
	res := it.ctl.res
	if desc := it.Descriptor(); desc.Verbose >= 1 {
		desc.Log().Info("solve end", "solver", it.name, "status", res.Status.String(),
			"iterations", res.Iterations, "residual", res.Residual)
	}
	return res
}

// direct 单步求解的结果
func direct() Result {
	return Result{Status: Converged, Iterations: 1}
}

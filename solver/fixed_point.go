package solver

import (
	"fmt"

	"github.com/costat/rocALUTION/local"
	"github.com/costat/rocALUTION/maths"
)

// FixedPoint 不动点迭代 x += ω M⁻¹(b - Ax)，配合Jacobi或Gauss-Seidel作为光滑子
type FixedPoint[T maths.Number] struct {
	IterativeBase[T]
	omega float64
	r, z  *local.Vector[T]
}

// NewFixedPoint 创建松弛因子为1的不动点迭代
func NewFixedPoint[T maths.Number]() *FixedPoint[T] {
	return &FixedPoint[T]{IterativeBase: NewIterativeBase[T]("FixedPoint"), omega: 1}
}

// SetRelaxation 设置松弛因子
func (s *FixedPoint[T]) SetRelaxation(omega float64) { s.omega = omega }

// Relaxation 当前松弛因子
func (s *FixedPoint[T]) Relaxation() float64 { return s.omega }

// Build 分配工作向量并构建预条件子
func (s *FixedPoint[T]) Build() error {
	if err := s.CheckBuild(); err != nil {
		return err
	}
	if err := s.BuildPreconditioner(); err != nil {
		return err
	}
	s.r, s.z = s.NewWork("r"), s.NewWork("z")
	s.MarkBuilt()
	return nil
}

// ReBuildNumeric 刷新预条件子
func (s *FixedPoint[T]) ReBuildNumeric() error { return s.ReBuildPreconditioner() }

// String 求解器描述
func (s *FixedPoint[T]) String() string {
	return fmt.Sprintf("%s relaxation=%g", s.IterativeBase.String(), s.omega)
}

// Solve 迭代直到满足控制条件
func (s *FixedPoint[T]) Solve(rhs, x *local.Vector[T]) (Result, error) {
	if err := s.CheckSolve(rhs, x); err != nil {
		return Result{}, err
	}
	if err := s.Residual(rhs, x, s.r); err != nil {
		return Result{}, err
	}
	if s.Begin(s.ResidualNorm(s.r)) {
		return s.Finish(), nil
	}
	omega := maths.FromFloat[T](s.omega)
	for {
		if err := s.ApplyPreconditioner(s.r, s.z); err != nil {
			return Result{}, err
		}
		x.AddScale(s.z, omega)
		if err := s.Residual(rhs, x, s.r); err != nil {
			return Result{}, err
		}
		if s.Check(s.ResidualNorm(s.r)) {
			break
		}
	}
	return s.Finish(), nil
}

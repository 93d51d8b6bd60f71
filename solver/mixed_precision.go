package solver

import (
	"fmt"

	"github.com/costat/rocALUTION/local"
	"github.com/costat/rocALUTION/maths"
	"github.com/pkg/errors"
)

// MixedPrecisionDC 混合精度残差修正
// 外层以高精度 H 计算残差 r = b - Ax，内层求解器以低精度 L 求 A d = r，再 x += d。
type MixedPrecisionDC[H, L maths.Number] struct {
	IterativeBase[H]
	inner Solver[L]

	low        *local.Matrix[L]
	r, d       *local.Vector[H]
	rLow, dLow *local.Vector[L]
}

// NewMixedPrecisionDC 以低精度内层求解器创建
func NewMixedPrecisionDC[H, L maths.Number](inner Solver[L]) *MixedPrecisionDC[H, L] {
	return &MixedPrecisionDC[H, L]{IterativeBase: NewIterativeBase[H]("MixedPrecisionDC"), inner: inner}
}

// Inner 内层求解器
func (s *MixedPrecisionDC[H, L]) Inner() Solver[L] { return s.inner }

// Build 构造低精度算子并构建内层求解器
func (s *MixedPrecisionDC[H, L]) Build() error {
	if err := s.CheckBuild(); err != nil {
		return err
	}
	if s.inner == nil {
		return errors.Wrap(ErrNilOperator, s.Name()+": inner solver")
	}
	a, err := local.AsMatrix(s.Operator())
	if err != nil {
		return errors.Wrap(err, s.Name())
	}
	s.low = local.NewMatrix[L](a.Descriptor(), s.Name()+"/low")
	if err = local.ConvertMatrix(a, s.low); err != nil {
		return err
	}
	s.inner.SetOperator(s.low)
	if err = s.inner.Build(); err != nil {
		return errors.Wrapf(err, "%s: build inner solver", s.Name())
	}
	s.r, s.d = s.NewWork("r"), s.NewWork("d")
	s.rLow = local.NewVector[L](a.Descriptor(), s.Name()+"/r-low")
	s.dLow = local.NewVector[L](a.Descriptor(), s.Name()+"/d-low")
	s.rLow.CloneBackend(a)
	s.dLow.CloneBackend(a)
	s.rLow.Allocate(a.Rows())
	s.dLow.Allocate(a.Rows())
	s.MarkBuilt()
	return nil
}

// ReBuildNumeric 刷新低精度算子的数值并刷新内层求解器
func (s *MixedPrecisionDC[H, L]) ReBuildNumeric() error {
	if !s.IsBuilt() {
		return errors.Wrap(ErrNotBuilt, s.Name())
	}
	a, err := local.AsMatrix(s.Operator())
	if err != nil {
		return errors.Wrap(err, s.Name())
	}
	if err = local.ConvertMatrix(a, s.low); err != nil {
		return err
	}
	return s.inner.ReBuildNumeric()
}

// Clear 释放低精度数据并清理内层求解器
func (s *MixedPrecisionDC[H, L]) Clear() {
	s.IterativeBase.Clear()
	if s.inner != nil {
		s.inner.Clear()
	}
	if s.low != nil {
		s.low.Clear()
		s.rLow.Clear()
		s.dLow.Clear()
	}
	s.low, s.rLow, s.dLow = nil, nil, nil
}

// MoveToHost 连同低精度数据迁移
func (s *MixedPrecisionDC[H, L]) MoveToHost() {
	s.IterativeBase.MoveToHost()
	if s.low != nil {
		s.low.MoveToHost()
		s.rLow.MoveToHost()
		s.dLow.MoveToHost()
		s.inner.MoveToHost()
	}
}

// MoveToAccelerator 连同低精度数据迁移
func (s *MixedPrecisionDC[H, L]) MoveToAccelerator() {
	s.IterativeBase.MoveToAccelerator()
	if s.low != nil {
		s.low.MoveToAccelerator()
		s.rLow.MoveToAccelerator()
		s.dLow.MoveToAccelerator()
		s.inner.MoveToAccelerator()
	}
}

// String 求解器描述
func (s *MixedPrecisionDC[H, L]) String() string {
	if s.inner == nil {
		return s.IterativeBase.String()
	}
	return fmt.Sprintf("%s inner [%s]", s.IterativeBase.String(), s.inner.String())
}

// Solve 残差修正迭代
func (s *MixedPrecisionDC[H, L]) Solve(rhs, x *local.Vector[H]) (Result, error) {
	if err := s.CheckSolve(rhs, x); err != nil {
		return Result{}, err
	}
	if err := s.Residual(rhs, x, s.r); err != nil {
		return Result{}, err
	}
	if s.Begin(s.ResidualNorm(s.r)) {
		return s.Finish(), nil
	}
	one := maths.FromFloat[H](1)
	for {
		local.ConvertVector(s.r, s.rLow)
		s.dLow.Zeros()
		if _, err := s.inner.Solve(s.rLow, s.dLow); err != nil {
			return Result{}, errors.Wrapf(err, "%s: inner solve", s.Name())
		}
		local.ConvertVector(s.dLow, s.d)
		x.AddScale(s.d, one)
		if err := s.Residual(rhs, x, s.r); err != nil {
			return Result{}, err
		}
		if s.Check(s.ResidualNorm(s.r)) {
			break
		}
	}
	return s.Finish(), nil
}

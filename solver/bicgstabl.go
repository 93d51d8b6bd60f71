package solver

import (
	"fmt"

	"github.com/costat/rocALUTION/local"
	"github.com/costat/rocALUTION/maths"
	"github.com/pkg/errors"
)

// BiCGStabl BiCGStab(l)：每次外迭代做 l 步BiCG扩展，再做 l 次最小残差多项式修正
// 绑定预条件子时使用左预条件，收敛判据作用于 M⁻¹(b-Ax)
type BiCGStabl[T maths.Number] struct {
	IterativeBase[T]
	order int

	r, u  []*local.Vector[T]
	r0, z *local.Vector[T]

	tau                   [][]T
	sigma, gamma0, gamma1 []T
	gamma2                []T
}

// NewBiCGStabl 创建阶数为2的BiCGStab(l)求解器
func NewBiCGStabl[T maths.Number]() *BiCGStabl[T] {
	return &BiCGStabl[T]{IterativeBase: NewIterativeBase[T]("BiCGStab(l)"), order: 2}
}

// SetOrder 设置阶数 l，已构建时须先 Clear
func (s *BiCGStabl[T]) SetOrder(l int) error {
	if s.IsBuilt() {
		return errors.Wrapf(ErrAlreadyBuilt, "%s: set order %d", s.Name(), l)
	}
	s.order = l
	return nil
}

// Order 当前阶数
func (s *BiCGStabl[T]) Order() int { return s.order }

// Build 按阶数分配基向量与系数表
func (s *BiCGStabl[T]) Build() error {
	if err := s.CheckBuild(); err != nil {
		return err
	}
	if s.order < 1 {
		return errors.Wrapf(ErrOrder, "%s: order %d, want >= 1", s.Name(), s.order)
	}
	if err := s.BuildPreconditioner(); err != nil {
		return err
	}
	l := s.order
	s.r = make([]*local.Vector[T], l+1)
	s.u = make([]*local.Vector[T], l+1)
	for i := 0; i <= l; i++ {
		s.r[i] = s.NewWork(fmt.Sprintf("r%d", i))
		s.u[i] = s.NewWork(fmt.Sprintf("u%d", i))
	}
	s.r0, s.z = s.NewWork("r0hat"), s.NewWork("z")
	s.tau = make([][]T, l+1)
	for i := range s.tau {
		s.tau[i] = make([]T, l+1)
	}
	s.sigma = make([]T, l+1)
	s.gamma0 = make([]T, l+1)
	s.gamma1 = make([]T, l+1)
	s.gamma2 = make([]T, l+1)
	s.MarkBuilt()
	return nil
}

// ReBuildNumeric 刷新预条件子
func (s *BiCGStabl[T]) ReBuildNumeric() error { return s.ReBuildPreconditioner() }

// Clear 释放基向量与系数表
func (s *BiCGStabl[T]) Clear() {
	s.IterativeBase.Clear()
	s.r, s.u, s.r0, s.z = nil, nil, nil, nil
	s.tau, s.sigma, s.gamma0, s.gamma1, s.gamma2 = nil, nil, nil, nil, nil
}

// String 求解器描述
func (s *BiCGStabl[T]) String() string {
	return fmt.Sprintf("%s order=%d", s.IterativeBase.String(), s.order)
}

// Solve 求解 A*x = rhs
func (s *BiCGStabl[T]) Solve(rhs, x *local.Vector[T]) (Result, error) {
	if err := s.CheckSolve(rhs, x); err != nil {
		return Result{}, err
	}
	if s.Preconditioner() == nil {
		return s.solveNonPrecond(rhs, x)
	}
	return s.solvePrecond(rhs, x)
}

// solveNonPrecond 基向量由 A 扩展
func (s *BiCGStabl[T]) solveNonPrecond(rhs, x *local.Vector[T]) (Result, error) {
	if err := s.Residual(rhs, x, s.r[0]); err != nil {
		return Result{}, err
	}
	return s.iterate(x, s.Operator().Apply)
}

// solvePrecond 基向量由 M⁻¹A 扩展
func (s *BiCGStabl[T]) solvePrecond(rhs, x *local.Vector[T]) (Result, error) {
	if err := s.Residual(rhs, x, s.z); err != nil {
		return Result{}, err
	}
	if err := s.ApplyPreconditioner(s.z, s.r[0]); err != nil {
		return Result{}, err
	}
	op := s.Operator()
	return s.iterate(x, func(in, out *local.Vector[T]) error {
		if err := op.Apply(in, s.z); err != nil {
			return err
		}
		return s.ApplyPreconditioner(s.z, out)
	})
}

// iterate r[0] 已是初始残差
func (s *BiCGStabl[T]) iterate(x *local.Vector[T], apply func(in, out *local.Vector[T]) error) (Result, error) {
	l, r, u := s.order, s.r, s.u
	tau, sigma, gamma0, gamma1, gamma2 := s.tau, s.sigma, s.gamma0, s.gamma1, s.gamma2
	if s.Begin(s.ResidualNorm(r[0])) {
		return s.Finish(), nil
	}
	if err := s.r0.CopyFrom(r[0]); err != nil {
		return Result{}, err
	}
	u[0].Zeros()
	one := maths.FromFloat[T](1)
	var alpha T
	rho0, omega := one, one

outer:
	for {
		rho0 = -omega * rho0

		// BiCG 部分
		for j := 0; j < l; j++ {
			rho1 := s.r0.Dot(r[j])
			if maths.IsZero(rho0) {
				s.stop(r[0])
				break outer
			}
			beta := alpha * rho1 / rho0
			rho0 = rho1
			for i := 0; i <= j; i++ {
				u[i].ScaleAdd(-beta, r[i])
			}
			if err := apply(u[j], u[j+1]); err != nil {
				return Result{}, err
			}
			gamma := s.r0.Dot(u[j+1])
			if maths.IsZero(gamma) {
				s.stop(r[0])
				break outer
			}
			alpha = rho0 / gamma
			for i := 0; i <= j; i++ {
				r[i].AddScale(u[i+1], -alpha)
			}
			if err := apply(r[j], r[j+1]); err != nil {
				return Result{}, err
			}
			x.AddScale(u[0], alpha)
		}

		// 最小残差部分：修正的 Gram-Schmidt
		for j := 1; j <= l; j++ {
			for i := 1; i < j; i++ {
				tau[i][j] = r[i].Dot(r[j]) / sigma[i]
				r[j].AddScale(r[i], -tau[i][j])
			}
			sigma[j] = r[j].Dot(r[j])
			if maths.IsZero(sigma[j]) {
				s.stop(r[0])
				break outer
			}
			gamma1[j] = r[j].Dot(r[0]) / sigma[j]
		}
		gamma0[l] = gamma1[l]
		omega = gamma0[l]
		for j := l - 1; j >= 1; j-- {
			gamma0[j] = gamma1[j]
			for i := j + 1; i <= l; i++ {
				gamma0[j] -= tau[j][i] * gamma0[i]
			}
		}
		for j := 1; j < l; j++ {
			gamma2[j] = gamma0[j+1]
			for i := j + 1; i < l; i++ {
				gamma2[j] += tau[j][i] * gamma0[i+1]
			}
		}

		x.AddScale(r[0], gamma0[1])
		r[0].AddScale(r[l], -gamma1[l])
		u[0].AddScale(u[l], -gamma0[l])
		for j := 1; j < l; j++ {
			u[0].AddScale(u[j], -gamma0[j])
			x.AddScale(r[j], gamma2[j])
			r[0].AddScale(r[j], -gamma1[j])
		}
		if s.Check(s.ResidualNorm(r[0])) {
			break
		}
		if maths.IsZero(omega) {
			s.Fail()
			break
		}
	}
	return s.Finish(), nil
}

// stop 基底退化：残差已满足容差时按收敛结束，否则为数值崩溃
func (s *BiCGStabl[T]) stop(r *local.Vector[T]) {
	if s.Check(s.ResidualNorm(r)) && s.Control().Result().Status == Converged {
		return
	}
	s.Fail()
}

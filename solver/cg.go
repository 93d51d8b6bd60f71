package solver

import (
	"github.com/costat/rocALUTION/local"
	"github.com/costat/rocALUTION/maths"
)

// CG 预条件共轭梯度法，要求算子对称（埃尔米特）正定
type CG[T maths.Number] struct {
	IterativeBase[T]
	r, z, p, q *local.Vector[T]
}

// NewCG 创建CG求解器
func NewCG[T maths.Number]() *CG[T] {
	return &CG[T]{IterativeBase: NewIterativeBase[T]("CG")}
}

// Build 分配工作向量并构建预条件子
func (s *CG[T]) Build() error {
	if err := s.CheckBuild(); err != nil {
		return err
	}
	if err := s.BuildPreconditioner(); err != nil {
		return err
	}
	s.r, s.z, s.p, s.q = s.NewWork("r"), s.NewWork("z"), s.NewWork("p"), s.NewWork("q")
	s.MarkBuilt()
	return nil
}

// ReBuildNumeric 刷新预条件子
func (s *CG[T]) ReBuildNumeric() error { return s.ReBuildPreconditioner() }

// Solve 求解 A*x = rhs
func (s *CG[T]) Solve(rhs, x *local.Vector[T]) (Result, error) {
	if err := s.CheckSolve(rhs, x); err != nil {
		return Result{}, err
	}
	op, r, z, p, q := s.Operator(), s.r, s.z, s.p, s.q
	if err := s.Residual(rhs, x, r); err != nil {
		return Result{}, err
	}
	if s.Begin(s.ResidualNorm(r)) {
		return s.Finish(), nil
	}
	if err := s.ApplyPreconditioner(r, z); err != nil {
		return Result{}, err
	}
	if err := p.CopyFrom(z); err != nil {
		return Result{}, err
	}
	rho := r.Dot(z)
	for {
		if err := op.Apply(p, q); err != nil {
			return Result{}, err
		}
		pq := p.Dot(q)
		if maths.IsZero(pq) || maths.IsZero(rho) {
			s.Fail()
			break
		}
		alpha := rho / pq
		x.AddScale(p, alpha)
		r.AddScale(q, -alpha)
		if s.Check(s.ResidualNorm(r)) {
			break
		}
		if err := s.ApplyPreconditioner(r, z); err != nil {
			return Result{}, err
		}
		next := r.Dot(z)
		p.ScaleAdd(next/rho, z)
		rho = next
	}
	return s.Finish(), nil
}

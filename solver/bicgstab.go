package solver

import (
	"github.com/costat/rocALUTION/local"
	"github.com/costat/rocALUTION/maths"
)

// BiCGStab 右预条件稳定双共轭梯度法
type BiCGStab[T maths.Number] struct {
	IterativeBase[T]
	r, r0, p, v, s, t, ph, sh *local.Vector[T]
}

// NewBiCGStab 创建BiCGStab求解器
func NewBiCGStab[T maths.Number]() *BiCGStab[T] {
	return &BiCGStab[T]{IterativeBase: NewIterativeBase[T]("BiCGStab")}
}

// Build 分配工作向量并构建预条件子
func (s *BiCGStab[T]) Build() error {
	if err := s.CheckBuild(); err != nil {
		return err
	}
	if err := s.BuildPreconditioner(); err != nil {
		return err
	}
	s.r, s.r0, s.p, s.v = s.NewWork("r"), s.NewWork("r0"), s.NewWork("p"), s.NewWork("v")
	s.s, s.t, s.ph, s.sh = s.NewWork("s"), s.NewWork("t"), s.NewWork("phat"), s.NewWork("shat")
	s.MarkBuilt()
	return nil
}

// ReBuildNumeric 刷新预条件子
func (s *BiCGStab[T]) ReBuildNumeric() error { return s.ReBuildPreconditioner() }

// Solve 求解 A*x = rhs
func (s *BiCGStab[T]) Solve(rhs, x *local.Vector[T]) (Result, error) {
	if err := s.CheckSolve(rhs, x); err != nil {
		return Result{}, err
	}
	op := s.Operator()
	r, r0, p, v, sv, t := s.r, s.r0, s.p, s.v, s.s, s.t
	if err := s.Residual(rhs, x, r); err != nil {
		return Result{}, err
	}
	if s.Begin(s.ResidualNorm(r)) {
		return s.Finish(), nil
	}
	if err := r0.CopyFrom(r); err != nil {
		return Result{}, err
	}
	if err := p.CopyFrom(r); err != nil {
		return Result{}, err
	}
	rho := r0.Dot(r)
	for {
		if maths.IsZero(rho) {
			s.Fail()
			break
		}
		if err := s.ApplyPreconditioner(p, s.ph); err != nil {
			return Result{}, err
		}
		if err := op.Apply(s.ph, v); err != nil {
			return Result{}, err
		}
		d := r0.Dot(v)
		if maths.IsZero(d) {
			s.Fail()
			break
		}
		alpha := rho / d
		// s = r - alpha*v
		if err := sv.CopyFrom(r); err != nil {
			return Result{}, err
		}
		sv.AddScale(v, -alpha)
		x.AddScale(s.ph, alpha)

		if err := s.ApplyPreconditioner(sv, s.sh); err != nil {
			return Result{}, err
		}
		if err := op.Apply(s.sh, t); err != nil {
			return Result{}, err
		}
		tt := t.Dot(t)
		if maths.IsZero(tt) {
			// s 已为零
			if err := r.CopyFrom(sv); err != nil {
				return Result{}, err
			}
			s.Check(s.ResidualNorm(r))
			break
		}
		omega := t.Dot(sv) / tt
		x.AddScale(s.sh, omega)
		// r = s - omega*t
		if err := r.CopyFrom(sv); err != nil {
			return Result{}, err
		}
		r.AddScale(t, -omega)
		if s.Check(s.ResidualNorm(r)) {
			break
		}
		if maths.IsZero(omega) {
			s.Fail()
			break
		}
		next := r0.Dot(r)
		beta := (next / rho) * (alpha / omega)
		// p = r + beta*(p - omega*v)
		p.AddScale(v, -omega)
		p.ScaleAdd(beta, r)
		rho = next
	}
	return s.Finish(), nil
}

package solver

import (
	"github.com/costat/rocALUTION/local"
	"github.com/costat/rocALUTION/maths"
	"github.com/pkg/errors"
)

// Jacobi 对角预条件子 x = D⁻¹ rhs
type Jacobi[T maths.Number] struct {
	Base[T]
	dinv *local.Vector[T]
}

// NewJacobi 创建Jacobi预条件子
func NewJacobi[T maths.Number]() *Jacobi[T] {
	return &Jacobi[T]{Base: NewBase[T]("Jacobi")}
}

// Build 提取逆对角
func (p *Jacobi[T]) Build() error {
	if err := p.CheckBuild(); err != nil {
		return err
	}
	if err := p.extract(); err != nil {
		return err
	}
	p.MarkBuilt()
	return nil
}

func (p *Jacobi[T]) extract() error {
	a, err := local.AsMatrix(p.Operator())
	if err != nil {
		return errors.Wrap(err, p.Name())
	}
	if p.dinv == nil || !p.IsBuilt() {
		p.dinv = p.NewWork("inv-diag")
	}
	return a.ExtractInverseDiagonal(p.dinv)
}

// ReBuildNumeric 重新提取逆对角
func (p *Jacobi[T]) ReBuildNumeric() error {
	if !p.IsBuilt() {
		return errors.Wrap(ErrNotBuilt, p.Name())
	}
	return p.extract()
}

// Solve x = D⁻¹ rhs
func (p *Jacobi[T]) Solve(rhs, x *local.Vector[T]) (Result, error) {
	if err := p.CheckSolve(rhs, x); err != nil {
		return Result{}, err
	}
	if err := x.CopyFrom(rhs); err != nil {
		return Result{}, err
	}
	x.PointWiseMult(p.dinv)
	return direct(), nil
}

package solver

import (
	"github.com/costat/rocALUTION/local"
	"github.com/costat/rocALUTION/mat"
	"github.com/costat/rocALUTION/maths"
	"github.com/pkg/errors"
)

// ILU 零填充不完全LU预条件子
// 分解与三角求解都在主机CSR上进行，算子位于加速器时右端项往返主机。
type ILU[T maths.Number] struct {
	Base[T]
	lu      *local.Matrix[T]
	in, out *local.Vector[T]
}

// NewILU 创建ILU(0)预条件子
func NewILU[T maths.Number]() *ILU[T] {
	return &ILU[T]{Base: NewBase[T]("ILU(0)")}
}

// Build 在主机上分解
func (p *ILU[T]) Build() error {
	if err := p.CheckBuild(); err != nil {
		return err
	}
	if err := p.factorize(); err != nil {
		return err
	}
	n := p.Operator().Rows()
	p.in = local.NewVector[T](p.Descriptor(), p.Name()+"/in")
	p.in.Allocate(n)
	p.out = local.NewVector[T](p.Descriptor(), p.Name()+"/out")
	p.out.Allocate(n)
	p.MarkBuilt()
	return nil
}

func (p *ILU[T]) factorize() error {
	a, err := local.AsMatrix(p.Operator())
	if err != nil {
		return errors.Wrap(err, p.Name())
	}
	lu := local.NewMatrix[T](a.Descriptor(), p.Name()+"/lu")
	lu.CloneFrom(a)
	lu.MoveToHost()
	if err = lu.ConvertTo(mat.CSR); err != nil {
		return err
	}
	if err = lu.ILU0Factorize(); err != nil {
		return err
	}
	p.lu = lu
	return nil
}

// ReBuildNumeric 重新分解
func (p *ILU[T]) ReBuildNumeric() error {
	if !p.IsBuilt() {
		return errors.Wrap(ErrNotBuilt, p.Name())
	}
	return p.factorize()
}

// Clear 释放分解结果
func (p *ILU[T]) Clear() {
	p.Base.Clear()
	p.lu, p.in, p.out = nil, nil, nil
}

// Solve x = (LU)⁻¹ rhs
func (p *ILU[T]) Solve(rhs, x *local.Vector[T]) (Result, error) {
	if err := p.CheckSolve(rhs, x); err != nil {
		return Result{}, err
	}
	if err := hostSolve(rhs, x, p.in, p.out, p.lu.ILUSolve); err != nil {
		return Result{}, err
	}
	return direct(), nil
}

// hostSolve 经主机缓冲调用 solve
func hostSolve[T maths.Number](rhs, x, in, out *local.Vector[T], solve func(in, out *local.Vector[T]) error) error {
	if err := in.CopyFrom(rhs); err != nil {
		return err
	}
	if err := solve(in, out); err != nil {
		return err
	}
	return x.CopyFrom(out)
}

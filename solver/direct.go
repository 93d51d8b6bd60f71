package solver

import (
	"github.com/costat/rocALUTION/local"
	"github.com/costat/rocALUTION/mat"
	"github.com/costat/rocALUTION/maths"
	"github.com/pkg/errors"
)

// dense 算子的主机稠密副本
func dense[T maths.Number](name string, op local.Operator[T]) (*local.Matrix[T], error) {
	a, err := local.AsMatrix(op)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}
	d := local.NewMatrix[T](a.Descriptor(), name+"/dense")
	d.CloneFrom(a)
	d.MoveToHost()
	if err = d.ConvertTo(mat.DENSE); err != nil {
		return nil, err
	}
	return d, nil
}

// LU 稠密LU直接求解，常用作AMG最粗层求解器
type LU[T maths.Number] struct {
	Base[T]
	lu      *local.Matrix[T]
	in, out *local.Vector[T]
}

// NewLU 创建LU直接求解器
func NewLU[T maths.Number]() *LU[T] {
	return &LU[T]{Base: NewBase[T]("LU")}
}

// Build 转为稠密并分解
func (s *LU[T]) Build() error {
	if err := s.CheckBuild(); err != nil {
		return err
	}
	if err := s.factorize(); err != nil {
		return err
	}
	n := s.Operator().Rows()
	s.in = local.NewVector[T](s.Descriptor(), s.Name()+"/in")
	s.in.Allocate(n)
	s.out = local.NewVector[T](s.Descriptor(), s.Name()+"/out")
	s.out.Allocate(n)
	s.MarkBuilt()
	return nil
}

func (s *LU[T]) factorize() error {
	d, err := dense(s.Name(), s.Operator())
	if err != nil {
		return err
	}
	if err = d.LUFactorize(); err != nil {
		return err
	}
	s.lu = d
	return nil
}

// ReBuildNumeric 重新分解
func (s *LU[T]) ReBuildNumeric() error {
	if !s.IsBuilt() {
		return errors.Wrap(ErrNotBuilt, s.Name())
	}
	return s.factorize()
}

// Clear 释放分解结果
func (s *LU[T]) Clear() {
	s.Base.Clear()
	s.lu, s.in, s.out = nil, nil, nil
}

// Solve x = A⁻¹ rhs
func (s *LU[T]) Solve(rhs, x *local.Vector[T]) (Result, error) {
	if err := s.CheckSolve(rhs, x); err != nil {
		return Result{}, err
	}
	if err := hostSolve(rhs, x, s.in, s.out, s.lu.LUSolve); err != nil {
		return Result{}, err
	}
	return direct(), nil
}

// Inversion 显式求逆，求解即一次稠密乘法；逆矩阵放在算子所在设备
type Inversion[T maths.Number] struct {
	Base[T]
	inv *local.Matrix[T]
}

// NewInversion 创建求逆求解器
func NewInversion[T maths.Number]() *Inversion[T] {
	return &Inversion[T]{Base: NewBase[T]("Inversion")}
}

// Build 求逆
func (s *Inversion[T]) Build() error {
	if err := s.CheckBuild(); err != nil {
		return err
	}
	s.inv = s.NewMatrix("inverse")
	if err := s.invert(); err != nil {
		s.Base.Clear()
		return err
	}
	s.MarkBuilt()
	return nil
}

func (s *Inversion[T]) invert() error {
	d, err := dense(s.Name(), s.Operator())
	if err != nil {
		return err
	}
	if err = d.Invert(); err != nil {
		return err
	}
	s.inv.CloneFrom(d)
	s.inv.CloneBackend(s.Operator())
	return nil
}

// ReBuildNumeric 重新求逆
func (s *Inversion[T]) ReBuildNumeric() error {
	if !s.IsBuilt() {
		return errors.Wrap(ErrNotBuilt, s.Name())
	}
	return s.invert()
}

// Solve x = A⁻¹ rhs
func (s *Inversion[T]) Solve(rhs, x *local.Vector[T]) (Result, error) {
	if err := s.CheckSolve(rhs, x); err != nil {
		return Result{}, err
	}
	if err := s.inv.Apply(rhs, x); err != nil {
		return Result{}, err
	}
	return direct(), nil
}

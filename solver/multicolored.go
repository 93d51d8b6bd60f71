package solver

import (
	"fmt"

	"github.com/costat/rocALUTION/local"
	"github.com/costat/rocALUTION/mat"
	"github.com/costat/rocALUTION/maths"
	"github.com/pkg/errors"
)

// colorBlock 一种颜色的行集合及其去对角行块
type colorBlock[T maths.Number] struct {
	idx  []int
	off  *local.Matrix[T]
	dinv *local.Vector[T]
	tmp  *local.Vector[T]
}

// MultiColoredGS 多色Gauss-Seidel预条件子
// 同色行互不耦合，逐色更新：x_c = D_c⁻¹ (b_c - R_c x)，R_c 为去掉对角的行块。
// 行块以光滑子格式存放在算子所在设备上，格式无法表示时退回CSR。
type MultiColoredGS[T maths.Number] struct {
	Base[T]
	symmetric bool
	format    mat.Format
	colors    int
	blocks    []colorBlock[T]
}

// NewMultiColoredGS 前向扫描
func NewMultiColoredGS[T maths.Number]() *MultiColoredGS[T] {
	return &MultiColoredGS[T]{Base: NewBase[T]("MultiColoredGS"), format: mat.CSR}
}

// NewMultiColoredSGS 前向后向对称扫描
func NewMultiColoredSGS[T maths.Number]() *MultiColoredGS[T] {
	return &MultiColoredGS[T]{Base: NewBase[T]("MultiColoredSGS"), format: mat.CSR, symmetric: true}
}

// SetFormat 行块存储格式
func (p *MultiColoredGS[T]) SetFormat(f mat.Format) { p.format = f }

// Colors 着色数
func (p *MultiColoredGS[T]) Colors() int { return p.colors }

// Build 着色并拆分行块
func (p *MultiColoredGS[T]) Build() error {
	if err := p.CheckBuild(); err != nil {
		return err
	}
	if err := p.decompose(); err != nil {
		p.Base.Clear()
		return err
	}
	p.MarkBuilt()
	return nil
}

func (p *MultiColoredGS[T]) decompose() error {
	a, err := local.AsMatrix(p.Operator())
	if err != nil {
		return errors.Wrap(err, p.Name())
	}
	host := local.NewMatrix[T](a.Descriptor(), p.Name()+"/host")
	host.CloneFrom(a)
	host.MoveToHost()
	if err = host.ConvertTo(mat.CSR); err != nil {
		return err
	}
	colors, n, err := host.MultiColoring()
	if err != nil {
		return err
	}
	dinv := local.NewVector[T](a.Descriptor(), p.Name()+"/inv-diag")
	if err = host.ExtractInverseDiagonal(dinv); err != nil {
		return err
	}
	dinv.CloneBackend(a)

	groups := make([][]int, n)
	for i, c := range colors {
		groups[c] = append(groups[c], i)
	}
	p.colors = n
	p.blocks = make([]colorBlock[T], n)
	for c, idx := range groups {
		off := p.NewMatrix(fmt.Sprintf("off%d", c))
		if err = host.ExtractRows(idx, true, off); err != nil {
			return err
		}
		if err = off.ConvertTo(p.format); err != nil {
			a.Descriptor().Log().Debug("smoother format fallback", "solver", p.Name(),
				"color", c, "format", p.format, "err", err)
		}
		off.CloneBackend(a)
		d := p.NewVector(fmt.Sprintf("inv-diag%d", c), len(idx))
		d.Gather(dinv, idx)
		p.blocks[c] = colorBlock[T]{
			idx:  idx,
			off:  off,
			dinv: d,
			tmp:  p.NewVector(fmt.Sprintf("tmp%d", c), len(idx)),
		}
	}
	host.Clear()
	dinv.Clear()
	return nil
}

// ReBuildNumeric 重新着色并拆分
func (p *MultiColoredGS[T]) ReBuildNumeric() error {
	if !p.IsBuilt() {
		return errors.Wrap(ErrNotBuilt, p.Name())
	}
	p.Base.Clear()
	return p.Build()
}

// Clear 释放行块
func (p *MultiColoredGS[T]) Clear() {
	p.Base.Clear()
	p.blocks, p.colors = nil, 0
}

// String 预条件子描述
func (p *MultiColoredGS[T]) String() string {
	return fmt.Sprintf("%s colors=%d format=%s", p.Base.String(), p.colors, p.format)
}

// Solve 从 x = 0 出发做一次（对称时两次）逐色扫描
func (p *MultiColoredGS[T]) Solve(rhs, x *local.Vector[T]) (Result, error) {
	if err := p.CheckSolve(rhs, x); err != nil {
		return Result{}, err
	}
	x.Zeros()
	for c := range p.blocks {
		if err := p.sweep(c, rhs, x); err != nil {
			return Result{}, err
		}
	}
	if p.symmetric {
		for c := len(p.blocks) - 1; c >= 0; c-- {
			if err := p.sweep(c, rhs, x); err != nil {
				return Result{}, err
			}
		}
	}
	return direct(), nil
}

// sweep 更新一种颜色
func (p *MultiColoredGS[T]) sweep(c int, rhs, x *local.Vector[T]) error {
	b := &p.blocks[c]
	b.tmp.Gather(rhs, b.idx)
	if err := b.off.ApplyAdd(x, maths.FromFloat[T](-1), b.tmp); err != nil {
		return err
	}
	b.tmp.PointWiseMult(b.dinv)
	b.tmp.Scatter(x, b.idx)
	return nil
}

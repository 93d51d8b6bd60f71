package multigrid

import (
	"fmt"

	"github.com/costat/rocALUTION/local"
	"github.com/costat/rocALUTION/maths"
)

// RugeStuebenAMG 经典 Ruge-Stüben 代数多重网格
// C/F 划分由强耦合阈值 eps 控制，插值为直接插值，限制为插值的转置。
type RugeStuebenAMG[T maths.Number] struct {
	BaseAMG[T]
}

// NewRugeStuebenAMG 创建 Ruge-Stüben AMG
func NewRugeStuebenAMG[T maths.Number](opts ...Option) *RugeStuebenAMG[T] {
	a := &RugeStuebenAMG[T]{BaseAMG: newBaseAMG[T]("RugeStuebenAMG", opts...)}
	a.coarsening = a
	return a
}

// CouplingStrength 当前强耦合阈值
func (a *RugeStuebenAMG[T]) CouplingStrength() float64 { return a.cfg.eps }

// Coarsen 在主机CSR细层算子上做 C/F 划分并生成转移算子
func (a *RugeStuebenAMG[T]) Coarsen(fine *local.Matrix[T]) (local.Operator[T], local.Operator[T], error) {
	p := local.NewMatrix[T](fine.Descriptor(), "prolong")
	r := local.NewMatrix[T](fine.Descriptor(), "restrict")
	if err := fine.RugeStueben(a.cfg.eps, p, r); err != nil {
		return nil, nil, err
	}
	return p, r, nil
}

// String 层级摘要
func (a *RugeStuebenAMG[T]) String() string {
	return fmt.Sprintf("%s eps=%g", a.BaseAMG.String(), a.cfg.eps)
}

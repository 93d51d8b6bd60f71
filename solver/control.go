package solver

import (
	"fmt"
	"math"

	"github.com/costat/rocALUTION/debug"
	"github.com/costat/rocALUTION/local"
	"github.com/costat/rocALUTION/maths"
)

// Status 求解结束状态
type Status int

const (
	Running       Status = iota // 迭代中
	Converged                   // 满足绝对或相对容差
	MaxIterations               // 达到迭代上限
	Diverged                    // 超过发散界或出现非有限值
	Breakdown                   // 数值崩溃（零主元），按发散处理
)

// String 状态名称
func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Converged:
		return "converged"
	case MaxIterations:
		return "max iterations"
	case Diverged:
		return "diverged"
	case Breakdown:
		return "breakdown"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Norm 残差范数类型
type Norm int

const (
	L2   Norm = iota // 二范数
	L1               // 一范数
	LInf             // 无穷范数
)

// Result 一次求解的结果
type Result struct {
	Status          Status
	Iterations      int
	InitialResidual float64
	Residual        float64
}

// String 结果摘要
func (r Result) String() string {
	return fmt.Sprintf("%s after %d iterations, residual %.3e (initial %.3e)",
		r.Status, r.Iterations, r.Residual, r.InitialResidual)
}

// Control 迭代控制：容差、迭代上下限、残差范数与历史记录
type Control struct {
	AbsTol  float64 // 绝对容差
	RelTol  float64 // 相对容差（相对初始残差）
	DivTol  float64 // 发散界（相对初始残差）
	MaxIter int     // 最大迭代次数
	MinIter int     // 最小迭代次数
	Norm    Norm    // 残差范数

	record *debug.Record
	res    Result
}

// NewControl 默认控制参数
func NewControl() Control {
	return Control{AbsTol: 1e-15, RelTol: 1e-6, DivTol: 1e8, MaxIter: 1000}
}

// Init 设置容差与最大迭代次数
func (c *Control) Init(abs, rel, div float64, maxIter int) {
	c.AbsTol, c.RelTol, c.DivTol, c.MaxIter = abs, rel, div, maxIter
}

// InitMinIter 设置最小迭代次数
func (c *Control) InitMinIter(n int) { c.MinIter = n }

// SetResidualNorm 设置残差范数
func (c *Control) SetResidualNorm(n Norm) { c.Norm = n }

// RecordHistory 记录每次迭代的残差，nil 关闭记录
func (c *Control) RecordHistory(r *debug.Record) { c.record = r }

// Result 最近一次求解的结果
func (c *Control) Result() Result { return c.res }

// begin 以初始残差开始迭代，返回是否已经结束
func (c *Control) begin(res float64) bool {
	c.res = Result{Status: Running, InitialResidual: res, Residual: res}
	if c.record != nil {
		c.record.Reset()
		c.record.Update(0, res)
	}
	switch {
	case math.IsNaN(res) || math.IsInf(res, 0):
		c.res.Status = Diverged
	case res == 0:
		c.res.Status = Converged
	case c.MinIter > 0:
	case res <= c.AbsTol:
		c.res.Status = Converged
	case c.MaxIter <= 0:
		c.res.Status = MaxIterations
	}
	return c.res.Status != Running
}

// check 完成一次迭代后检查残差，返回是否结束
func (c *Control) check(res float64) bool {
	c.res.Iterations++
	c.res.Residual = res
	if c.record != nil {
		c.record.Update(c.res.Iterations, res)
	}
	init := c.res.InitialResidual
	switch {
	case math.IsNaN(res) || math.IsInf(res, 0):
		c.res.Status = Diverged
	case c.res.Iterations < c.MinIter:
	case res <= c.AbsTol || res <= c.RelTol*init:
		c.res.Status = Converged
	case res >= c.DivTol*init && init > 0:
		c.res.Status = Diverged
	case c.res.Iterations >= c.MaxIter:
		c.res.Status = MaxIterations
	}
	return c.res.Status != Running
}

// fail 以崩溃结束
func (c *Control) fail() { c.res.Status = Breakdown }

// norm 按配置计算向量范数
func norm[T maths.Number](n Norm, v *local.Vector[T]) float64 {
	switch n {
	case L1:
		return v.Asum()
	case LInf:
		_, a := v.Amax()
		return a
	}
	return v.Norm()
}

// Package debug 求解过程记录与可视化
package debug

import (
	"encoding/json"
	"io"
	"math"
)

// Record 残差历史
type Record struct {
	Name      string    `json:"name"`      // 求解器名称
	Iteration []int     `json:"iteration"` // 迭代序号，0 为初始残差
	Residual  []float64 `json:"residual"`  // 残差范数
}

// NewRecord 创建空记录
func NewRecord(name string) *Record {
	return &Record{Name: name}
}

// Update 记录一次迭代
func (r *Record) Update(iter int, res float64) {
	r.Iteration = append(r.Iteration, iter)
	r.Residual = append(r.Residual, res)
}

// Reset 清空历史
func (r *Record) Reset() {
	r.Iteration = r.Iteration[:0]
	r.Residual = r.Residual[:0]
}

// Len 记录条数
func (r *Record) Len() int { return len(r.Residual) }

// Rate 平均收敛因子 (r_n/r_0)^(1/n)，记录不足两条时返回 NaN
func (r *Record) Rate() float64 {
	n := len(r.Residual)
	if n < 2 || r.Residual[0] == 0 {
		return math.NaN()
	}
	steps := r.Iteration[n-1] - r.Iteration[0]
	if steps <= 0 {
		return math.NaN()
	}
	return math.Pow(r.Residual[n-1]/r.Residual[0], 1/float64(steps))
}

// Render 以JSON输出
func (r *Record) Render(w io.Writer) error { return json.NewEncoder(w).Encode(r) }

// Level 多重网格层信息
type Level struct {
	Rows int `json:"rows"`
	Nnz  int `json:"nnz"`
}

package mat

import (
	"github.com/costat/rocALUTION/maths"
	"github.com/costat/rocALUTION/utils"
)

// MultiColoring 在对称化图 A+A^T 上做贪心着色
// 同色行之间没有耦合，返回每行颜色与颜色数量（仅主机）
func (m *CSRMatrix[T]) MultiColoring() (colors []int, numColors int) {
	if !m.onHost() || m.rows != m.cols {
		panic("csr multicoloring: requires a square host matrix")
	}
	t := &CSRMatrix[T]{base: m.base}
	m.Transpose(t)
	n := m.rows
	maxDeg := 0
	for i := 0; i < n; i++ {
		maxDeg = max(maxDeg, m.rowPtr[i+1]-m.rowPtr[i]+t.rowPtr[i+1]-t.rowPtr[i])
	}
	colors = make([]int, n)
	for i := range colors {
		colors[i] = -1
	}
	forbidden := utils.NewBitmap(maxDeg + 1)
	for i := 0; i < n; i++ {
		forbidden.Reset()
		for _, cols := range [2][]int{
			m.colInd[m.rowPtr[i]:m.rowPtr[i+1]],
			t.colInd[t.rowPtr[i]:t.rowPtr[i+1]],
		} {
			for _, j := range cols {
				if j != i && colors[j] >= 0 {
					forbidden.Set(colors[j], true)
				}
			}
		}
		c := forbidden.FirstClear()
		colors[i] = c
		numColors = max(numColors, c+1)
	}
	return colors, numColors
}

// ILU0Factorize 原地不完全LU(0)分解
// 分解后严格下三角部分为单位下三角L（对角不存），其余为U；缺失或为零的主元返回 false
func (m *CSRMatrix[T]) ILU0Factorize() bool {
	if !m.onHost() || m.rows != m.cols {
		return false
	}
	n := m.rows
	diag := m.diagPos()
	for _, d := range diag {
		if d < 0 {
			return false
		}
	}
	pos := make([]int, n)
	for i := range pos {
		pos[i] = -1
	}
	for i := 0; i < n; i++ {
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			pos[m.colInd[k]] = k
		}
		for k := m.rowPtr[i]; k < diag[i]; k++ {
			c := m.colInd[k]
			pivot := m.val[diag[c]]
			if maths.IsZero(pivot) {
				return false
			}
			m.val[k] /= pivot
			for kk := diag[c] + 1; kk < m.rowPtr[c+1]; kk++ {
				if p := pos[m.colInd[kk]]; p >= 0 {
					m.val[p] -= m.val[k] * m.val[kk]
				}
			}
		}
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			pos[m.colInd[k]] = -1
		}
		if maths.IsZero(m.val[diag[i]]) {
			return false
		}
	}
	return true
}

// LUSolve 使用 ILU0Factorize 的结果求解 L*U*out = in
func (m *CSRMatrix[T]) LUSolve(in, out *Vector[T]) {
	checkApply[T](m, in, out)
	if !m.onHost() {
		panic("csr lu solve: host only")
	}
	diag := m.diagPos()
	x := out.data
	copy(x, in.data)
	for i := 0; i < m.rows; i++ {
		for k := m.rowPtr[i]; k < diag[i]; k++ {
			x[i] -= m.val[k] * x[m.colInd[k]]
		}
	}
	for i := m.rows - 1; i >= 0; i-- {
		for k := diag[i] + 1; k < m.rowPtr[i+1]; k++ {
			x[i] -= m.val[k] * x[m.colInd[k]]
		}
		x[i] /= m.val[diag[i]]
	}
}

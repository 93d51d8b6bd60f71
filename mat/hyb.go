package mat

import (
	"github.com/costat/rocALUTION/maths"
)

// HYBMatrix ELL + COO 混合格式
// ELL 部分宽度为平均每行非零元数，超出部分存入 COO
type HYBMatrix[T maths.Number] struct {
	base
	ell ELLMatrix[T]
	coo COOMatrix[T]
}

// Format 返回 HYB
func (m *HYBMatrix[T]) Format() Format { return HYB }

// Nnz 两部分之和
func (m *HYBMatrix[T]) Nnz() int { return m.ell.Nnz() + m.coo.Nnz() }

// EllWidth ELL 部分宽度
func (m *HYBMatrix[T]) EllWidth() int { return m.ell.width }

// CooNnz COO 部分元素数量
func (m *HYBMatrix[T]) CooNnz() int { return m.coo.Nnz() }

// Clear 释放数据
func (m *HYBMatrix[T]) Clear() {
	m.rows, m.cols = 0, 0
	m.ell.Clear()
	m.coo.Clear()
}

// ConvertFrom 从任意主机格式转换
func (m *HYBMatrix[T]) ConvertFrom(src Matrix[T]) bool {
	if !m.onHost() {
		return false
	}
	return convertViaCSR(src, func(c *CSRMatrix[T]) bool {
		width := 0
		if c.rows > 0 {
			width = len(c.val) / c.rows
		}
		m.rows, m.cols = c.rows, c.cols
		m.ell.base, m.coo.base = m.base, m.base
		m.ell.fromCSR(c, width)
		m.coo.rows, m.coo.cols = c.rows, c.cols
		m.coo.row, m.coo.col, m.coo.val = nil, nil, nil
		for i := 0; i < c.rows; i++ {
			for k := c.rowPtr[i] + width; k < c.rowPtr[i+1]; k++ {
				m.coo.row = append(m.coo.row, i)
				m.coo.col = append(m.coo.col, c.colInd[k])
				m.coo.val = append(m.coo.val, c.val[k])
			}
		}
		return true
	})
}

// CopyFrom 同格式设备拷贝
func (m *HYBMatrix[T]) CopyFrom(src Matrix[T]) bool {
	s, ok := src.(*HYBMatrix[T])
	if !ok {
		return false
	}
	if s != m {
		m.rows, m.cols = s.rows, s.cols
		m.ell.base, m.coo.base = m.base, m.base
		m.ell.CopyFrom(&s.ell)
		m.coo.CopyFrom(&s.coo)
	}
	return true
}

// Clone 副本
func (m *HYBMatrix[T]) Clone() Matrix[T] {
	c := &HYBMatrix[T]{base: m.base}
	c.CopyFrom(m)
	return c
}

// toCSR 导出，合并两部分并保持行内列序
func (m *HYBMatrix[T]) toCSR(dst *CSRMatrix[T]) {
	m.ell.toCSR(dst)
	for k := range m.coo.val {
		dst.Increment(m.coo.row[k], m.coo.col[k], m.coo.val[k])
	}
}

// Apply out = A*in
func (m *HYBMatrix[T]) Apply(in, out *Vector[T]) {
	checkApply[T](m, in, out)
	m.ell.Apply(in, out)
	m.coo.accumulate(in, maths.FromFloat[T](1), out)
}

// ApplyAdd out += scalar*A*in
func (m *HYBMatrix[T]) ApplyAdd(in *Vector[T], scalar T, out *Vector[T]) {
	checkApply[T](m, in, out)
	m.ell.ApplyAdd(in, scalar, out)
	m.coo.accumulate(in, scalar, out)
}

// ExtractDiagonal out = diag(A)
func (m *HYBMatrix[T]) ExtractDiagonal(out *Vector[T]) bool {
	if !m.ell.ExtractDiagonal(out) {
		return false
	}
	for k := range m.coo.val {
		if m.coo.row[k] == m.coo.col[k] {
			out.data[m.coo.row[k]] += m.coo.val[k]
		}
	}
	return true
}

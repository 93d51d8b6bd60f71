package mat

import (
	"github.com/costat/rocALUTION/maths"
)

// ELLMatrix ELLPACK 格式
// 每行固定 width 个槽位，按列优先存储（槽位 el 第 row 行位于 el*rows+row），空槽列号为 -1
type ELLMatrix[T maths.Number] struct {
	base
	width int
	col   []int
	val   []T
}

// Format 返回 ELL
func (m *ELLMatrix[T]) Format() Format { return ELL }

// Nnz 有效元素数量（不含填充）
func (m *ELLMatrix[T]) Nnz() int {
	n := 0
	for _, c := range m.col {
		if c >= 0 {
			n++
		}
	}
	return n
}

// Width 每行槽位数
func (m *ELLMatrix[T]) Width() int { return m.width }

// Clear 释放数据
func (m *ELLMatrix[T]) Clear() {
	m.rows, m.cols, m.width = 0, 0, 0
	m.col, m.val = nil, nil
}

// fromCSR 以给定宽度装入 CSR 每行的前 width 个元素
func (m *ELLMatrix[T]) fromCSR(c *CSRMatrix[T], width int) {
	m.rows, m.cols, m.width = c.rows, c.cols, width
	m.col = make([]int, width*c.rows)
	m.val = make([]T, width*c.rows)
	for i := range m.col {
		m.col[i] = -1
	}
	for i := 0; i < c.rows; i++ {
		for el, k := 0, c.rowPtr[i]; el < width && k < c.rowPtr[i+1]; el, k = el+1, k+1 {
			m.col[el*c.rows+i] = c.colInd[k]
			m.val[el*c.rows+i] = c.val[k]
		}
	}
}

// ConvertFrom 宽度取最长行
func (m *ELLMatrix[T]) ConvertFrom(src Matrix[T]) bool {
	if !m.onHost() {
		return false
	}
	return convertViaCSR(src, func(c *CSRMatrix[T]) bool {
		width := 0
		for i := 0; i < c.rows; i++ {
			width = max(width, c.rowPtr[i+1]-c.rowPtr[i])
		}
		m.fromCSR(c, width)
		return true
	})
}

// CopyFrom 同格式设备拷贝
func (m *ELLMatrix[T]) CopyFrom(src Matrix[T]) bool {
	s, ok := src.(*ELLMatrix[T])
	if !ok {
		return false
	}
	if s != m {
		m.rows, m.cols, m.width = s.rows, s.cols, s.width
		m.col = append([]int(nil), s.col...)
		m.val = append([]T(nil), s.val...)
	}
	return true
}

// Clone 副本
func (m *ELLMatrix[T]) Clone() Matrix[T] {
	c := &ELLMatrix[T]{base: m.base}
	c.CopyFrom(m)
	return c
}

// toCSR 导出
func (m *ELLMatrix[T]) toCSR(dst *CSRMatrix[T]) {
	rowPtr := make([]int, m.rows+1)
	var colInd []int
	var val []T
	for i := 0; i < m.rows; i++ {
		for el := 0; el < m.width; el++ {
			if c := m.col[el*m.rows+i]; c >= 0 {
				colInd = append(colInd, c)
				val = append(val, m.val[el*m.rows+i])
			}
		}
		rowPtr[i+1] = len(val)
	}
	dst.SetData(m.rows, m.cols, rowPtr, colInd, val)
}

func (m *ELLMatrix[T]) row(i int, x []T) T {
	var sum T
	for el := 0; el < m.width; el++ {
		if c := m.col[el*m.rows+i]; c >= 0 {
			sum += m.val[el*m.rows+i] * x[c]
		}
	}
	return sum
}

// Apply out = A*in
func (m *ELLMatrix[T]) Apply(in, out *Vector[T]) {
	checkApply[T](m, in, out)
	m.par.For(m.rows, func(i int) { out.data[i] = m.row(i, in.data) })
}

// ApplyAdd out += scalar*A*in
func (m *ELLMatrix[T]) ApplyAdd(in *Vector[T], scalar T, out *Vector[T]) {
	checkApply[T](m, in, out)
	m.par.For(m.rows, func(i int) { out.data[i] += scalar * m.row(i, in.data) })
}

// ExtractDiagonal out = diag(A)
func (m *ELLMatrix[T]) ExtractDiagonal(out *Vector[T]) bool {
	if m.rows != m.cols || out.Len() != m.rows || out.dev != m.dev {
		return false
	}
	m.par.For(m.rows, func(i int) {
		var d T
		for el := 0; el < m.width; el++ {
			if m.col[el*m.rows+i] == i {
				d = m.val[el*m.rows+i]
			}
		}
		out.data[i] = d
	})
	return true
}

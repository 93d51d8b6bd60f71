package mat

import (
	"github.com/costat/rocALUTION/maths"
)

// COOMatrix 坐标格式，按行、列排序
type COOMatrix[T maths.Number] struct {
	base
	row []int
	col []int
	val []T
}

// Format 返回 COO
func (m *COOMatrix[T]) Format() Format { return COO }

// Nnz 非零元数量
func (m *COOMatrix[T]) Nnz() int { return len(m.val) }

// Clear 释放数据
func (m *COOMatrix[T]) Clear() {
	m.rows, m.cols = 0, 0
	m.row, m.col, m.val = nil, nil, nil
}

// Triplets 返回三元组（主机只读视图）
func (m *COOMatrix[T]) Triplets() (row, col []int, val []T) {
	if !m.onHost() {
		panic("coo: direct access on " + m.dev.String())
	}
	return m.row, m.col, m.val
}

// ConvertFrom 从任意主机格式转换
func (m *COOMatrix[T]) ConvertFrom(src Matrix[T]) bool {
	if !m.onHost() {
		return false
	}
	return convertViaCSR(src, func(c *CSRMatrix[T]) bool {
		m.rows, m.cols = c.rows, c.cols
		m.row = make([]int, len(c.val))
		for i := 0; i < c.rows; i++ {
			for k := c.rowPtr[i]; k < c.rowPtr[i+1]; k++ {
				m.row[k] = i
			}
		}
		m.col = append([]int(nil), c.colInd...)
		m.val = append([]T(nil), c.val...)
		return true
	})
}

// CopyFrom 同格式设备拷贝
func (m *COOMatrix[T]) CopyFrom(src Matrix[T]) bool {
	s, ok := src.(*COOMatrix[T])
	if !ok {
		return false
	}
	if s != m {
		m.rows, m.cols = s.rows, s.cols
		m.row = append([]int(nil), s.row...)
		m.col = append([]int(nil), s.col...)
		m.val = append([]T(nil), s.val...)
	}
	return true
}

// Clone 副本
func (m *COOMatrix[T]) Clone() Matrix[T] {
	c := &COOMatrix[T]{base: m.base}
	c.CopyFrom(m)
	return c
}

// toCSR 导出
func (m *COOMatrix[T]) toCSR(dst *CSRMatrix[T]) {
	rowPtr := make([]int, m.rows+1)
	for _, r := range m.row {
		rowPtr[r+1]++
	}
	for i := 0; i < m.rows; i++ {
		rowPtr[i+1] += rowPtr[i]
	}
	dst.SetData(m.rows, m.cols, rowPtr, append([]int(nil), m.col...), append([]T(nil), m.val...))
}

// Apply out = A*in，按非零元并行，使用原子累加
func (m *COOMatrix[T]) Apply(in, out *Vector[T]) {
	checkApply[T](m, in, out)
	out.Zeros()
	m.accumulate(in, maths.FromFloat[T](1), out)
}

// ApplyAdd out += scalar*A*in
func (m *COOMatrix[T]) ApplyAdd(in *Vector[T], scalar T, out *Vector[T]) {
	checkApply[T](m, in, out)
	m.accumulate(in, scalar, out)
}

func (m *COOMatrix[T]) accumulate(in *Vector[T], scalar T, out *Vector[T]) {
	m.par.ForRange(len(m.val), func(s, e int) {
		for k := s; k < e; k++ {
			maths.AtomicAdd(&out.data[m.row[k]], scalar*m.val[k]*in.data[m.col[k]])
		}
	})
}

// ExtractDiagonal out = diag(A)
func (m *COOMatrix[T]) ExtractDiagonal(out *Vector[T]) bool {
	if m.rows != m.cols || out.Len() != m.rows || out.dev != m.dev {
		return false
	}
	clear(out.data)
	for k := range m.val {
		if m.row[k] == m.col[k] {
			out.data[m.row[k]] = m.val[k]
		}
	}
	return true
}

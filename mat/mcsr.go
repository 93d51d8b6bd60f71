package mat

import (
	"github.com/costat/rocALUTION/maths"
)

// MCSRMatrix 对角线单独存储的CSR
// diag 保存主对角线，rowPtr/colInd/val 只保存非对角元
type MCSRMatrix[T maths.Number] struct {
	base
	diag   []T
	rowPtr []int
	colInd []int
	val    []T
}

// Format 返回 MCSR
func (m *MCSRMatrix[T]) Format() Format { return MCSR }

// Nnz 对角元与非对角元之和
func (m *MCSRMatrix[T]) Nnz() int { return len(m.diag) + len(m.val) }

// Clear 释放数据
func (m *MCSRMatrix[T]) Clear() {
	m.rows, m.cols = 0, 0
	m.diag, m.rowPtr, m.colInd, m.val = nil, nil, nil, nil
}

// ConvertFrom 要求方阵且每行都有显式对角元
func (m *MCSRMatrix[T]) ConvertFrom(src Matrix[T]) bool {
	if !m.onHost() {
		return false
	}
	return convertViaCSR(src, func(c *CSRMatrix[T]) bool {
		if c.rows != c.cols {
			return false
		}
		pos := c.diagPos()
		for _, p := range pos {
			if p < 0 {
				return false
			}
		}
		n := c.rows
		diag := make([]T, n)
		rowPtr := make([]int, n+1)
		colInd := make([]int, 0, len(c.colInd)-n)
		val := make([]T, 0, len(c.val)-n)
		for i := 0; i < n; i++ {
			for k := c.rowPtr[i]; k < c.rowPtr[i+1]; k++ {
				if k == pos[i] {
					diag[i] = c.val[k]
					continue
				}
				colInd = append(colInd, c.colInd[k])
				val = append(val, c.val[k])
			}
			rowPtr[i+1] = len(val)
		}
		m.rows, m.cols = n, n
		m.diag, m.rowPtr, m.colInd, m.val = diag, rowPtr, colInd, val
		return true
	})
}

// CopyFrom 同格式设备拷贝
func (m *MCSRMatrix[T]) CopyFrom(src Matrix[T]) bool {
	s, ok := src.(*MCSRMatrix[T])
	if !ok {
		return false
	}
	if s != m {
		m.rows, m.cols = s.rows, s.cols
		m.diag = append([]T(nil), s.diag...)
		m.rowPtr = append([]int(nil), s.rowPtr...)
		m.colInd = append([]int(nil), s.colInd...)
		m.val = append([]T(nil), s.val...)
	}
	return true
}

// Clone 副本
func (m *MCSRMatrix[T]) Clone() Matrix[T] {
	c := &MCSRMatrix[T]{base: m.base}
	c.CopyFrom(m)
	return c
}

// toCSR 导出，对角元插回有序位置
func (m *MCSRMatrix[T]) toCSR(dst *CSRMatrix[T]) {
	n := m.rows
	rowPtr := make([]int, n+1)
	colInd := make([]int, 0, m.Nnz())
	val := make([]T, 0, m.Nnz())
	for i := 0; i < n; i++ {
		placed := false
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			if !placed && m.colInd[k] > i {
				colInd, val = append(colInd, i), append(val, m.diag[i])
				placed = true
			}
			colInd, val = append(colInd, m.colInd[k]), append(val, m.val[k])
		}
		if !placed {
			colInd, val = append(colInd, i), append(val, m.diag[i])
		}
		rowPtr[i+1] = len(val)
	}
	dst.SetData(n, n, rowPtr, colInd, val)
}

func (m *MCSRMatrix[T]) row(i int, x []T) T {
	sum := m.diag[i] * x[i]
	for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
		sum += m.val[k] * x[m.colInd[k]]
	}
	return sum
}

// Apply out = A*in
func (m *MCSRMatrix[T]) Apply(in, out *Vector[T]) {
	checkApply[T](m, in, out)
	m.par.For(m.rows, func(i int) { out.data[i] = m.row(i, in.data) })
}

// ApplyAdd out += scalar*A*in
func (m *MCSRMatrix[T]) ApplyAdd(in *Vector[T], scalar T, out *Vector[T]) {
	checkApply[T](m, in, out)
	m.par.For(m.rows, func(i int) { out.data[i] += scalar * m.row(i, in.data) })
}

// ExtractDiagonal out = diag(A)
func (m *MCSRMatrix[T]) ExtractDiagonal(out *Vector[T]) bool {
	if out.Len() != m.rows || out.dev != m.dev {
		return false
	}
	copy(out.data, m.diag)
	return true
}

package mat

import (
	"sort"

	"github.com/costat/rocALUTION/maths"
)

// diaFillFactor 对角线格式允许的最大存储膨胀倍数
const diaFillFactor = 5

// DIAMatrix 对角线格式
// offsets 递增，val 按对角线列优先存储：第 d 条对角线第 i 行为 A(i, i+offsets[d])
type DIAMatrix[T maths.Number] struct {
	base
	offsets []int
	val     []T
}

// Format 返回 DIA
func (m *DIAMatrix[T]) Format() Format { return DIA }

// Nnz 存储元素数量（含对角线内的填充）
func (m *DIAMatrix[T]) Nnz() int { return len(m.val) }

// NumDiagonals 对角线数量
func (m *DIAMatrix[T]) NumDiagonals() int { return len(m.offsets) }

// Clear 释放数据
func (m *DIAMatrix[T]) Clear() {
	m.rows, m.cols = 0, 0
	m.offsets, m.val = nil, nil
}

// ConvertFrom 对角线填充超过 diaFillFactor 倍非零元时失败
func (m *DIAMatrix[T]) ConvertFrom(src Matrix[T]) bool {
	if !m.onHost() {
		return false
	}
	return convertViaCSR(src, func(c *CSRMatrix[T]) bool {
		index := make(map[int]int)
		for i := 0; i < c.rows; i++ {
			for k := c.rowPtr[i]; k < c.rowPtr[i+1]; k++ {
				index[c.colInd[k]-i] = 0
			}
		}
		if len(index)*c.rows > diaFillFactor*max(len(c.val), c.rows) {
			return false
		}
		offsets := make([]int, 0, len(index))
		for off := range index {
			offsets = append(offsets, off)
		}
		sort.Ints(offsets)
		for d, off := range offsets {
			index[off] = d
		}
		val := make([]T, len(offsets)*c.rows)
		for i := 0; i < c.rows; i++ {
			for k := c.rowPtr[i]; k < c.rowPtr[i+1]; k++ {
				val[index[c.colInd[k]-i]*c.rows+i] = c.val[k]
			}
		}
		m.rows, m.cols = c.rows, c.cols
		m.offsets, m.val = offsets, val
		return true
	})
}

// CopyFrom 同格式设备拷贝
func (m *DIAMatrix[T]) CopyFrom(src Matrix[T]) bool {
	s, ok := src.(*DIAMatrix[T])
	if !ok {
		return false
	}
	if s != m {
		m.rows, m.cols = s.rows, s.cols
		m.offsets = append([]int(nil), s.offsets...)
		m.val = append([]T(nil), s.val...)
	}
	return true
}

// Clone 副本
func (m *DIAMatrix[T]) Clone() Matrix[T] {
	c := &DIAMatrix[T]{base: m.base}
	c.CopyFrom(m)
	return c
}

// toCSR 导出，对角线内的零填充不导出
func (m *DIAMatrix[T]) toCSR(dst *CSRMatrix[T]) {
	rowPtr := make([]int, m.rows+1)
	var colInd []int
	var val []T
	for i := 0; i < m.rows; i++ {
		for d, off := range m.offsets {
			j := i + off
			if j < 0 || j >= m.cols {
				continue
			}
			if v := m.val[d*m.rows+i]; !maths.IsZero(v) {
				colInd = append(colInd, j)
				val = append(val, v)
			}
		}
		rowPtr[i+1] = len(val)
	}
	dst.SetData(m.rows, m.cols, rowPtr, colInd, val)
}

func (m *DIAMatrix[T]) row(i int, x []T) T {
	var sum T
	for d, off := range m.offsets {
		if j := i + off; j >= 0 && j < m.cols {
			sum += m.val[d*m.rows+i] * x[j]
		}
	}
	return sum
}

// Apply out = A*in
func (m *DIAMatrix[T]) Apply(in, out *Vector[T]) {
	checkApply[T](m, in, out)
	m.par.For(m.rows, func(i int) { out.data[i] = m.row(i, in.data) })
}

// ApplyAdd out += scalar*A*in
func (m *DIAMatrix[T]) ApplyAdd(in *Vector[T], scalar T, out *Vector[T]) {
	checkApply[T](m, in, out)
	m.par.For(m.rows, func(i int) { out.data[i] += scalar * m.row(i, in.data) })
}

// ExtractDiagonal out = diag(A)
func (m *DIAMatrix[T]) ExtractDiagonal(out *Vector[T]) bool {
	if m.rows != m.cols || out.Len() != m.rows || out.dev != m.dev {
		return false
	}
	clear(out.data)
	d := sort.SearchInts(m.offsets, 0)
	if d < len(m.offsets) && m.offsets[d] == 0 {
		copy(out.data, m.val[d*m.rows:(d+1)*m.rows])
	}
	return true
}

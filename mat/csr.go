package mat

import (
	"fmt"
	"sort"

	"github.com/costat/rocALUTION/backend"
	"github.com/costat/rocALUTION/maths"
	"github.com/costat/rocALUTION/utils"
)

// CSRMatrix 压缩稀疏行矩阵
// 每行列索引严格递增，rowPtr 长度为 rows+1
type CSRMatrix[T maths.Number] struct {
	base
	rowPtr []int // 行指针数组
	colInd []int // 列索引数组
	val    []T   // 非零元素值
}

// NewCSR 创建 rows×cols 的空CSR矩阵
func NewCSR[T maths.Number](rows, cols int, dev backend.Device, par utils.Parallel) *CSRMatrix[T] {
	m := &CSRMatrix[T]{base: base{dev: dev, par: par}}
	m.Allocate(rows, cols)
	return m
}

// Format 返回 CSR
func (m *CSRMatrix[T]) Format() Format { return CSR }

// Nnz 非零元数量
func (m *CSRMatrix[T]) Nnz() int { return len(m.val) }

// Allocate 分配 rows×cols 的零矩阵
func (m *CSRMatrix[T]) Allocate(rows, cols int) {
	m.rows, m.cols = rows, cols
	m.rowPtr = make([]int, rows+1)
	m.colInd = m.colInd[:0]
	m.val = m.val[:0]
}

// Clear 释放数据
func (m *CSRMatrix[T]) Clear() {
	m.rows, m.cols = 0, 0
	m.rowPtr, m.colInd, m.val = nil, nil, nil
}

// SetData 接管CSR数组（调用方保证每行列索引递增）
func (m *CSRMatrix[T]) SetData(rows, cols int, rowPtr, colInd []int, val []T) {
	if len(rowPtr) != rows+1 || len(colInd) != len(val) || rowPtr[rows] != len(val) {
		panic("csr: inconsistent data")
	}
	m.rows, m.cols = rows, cols
	m.rowPtr, m.colInd, m.val = rowPtr, colInd, val
}

// Data 返回内部数组（主机端只读视图）
func (m *CSRMatrix[T]) Data() (rowPtr, colInd []int, val []T) {
	if !m.onHost() {
		panic(fmt.Sprintf("csr: direct access on %s", m.dev))
	}
	return m.rowPtr, m.colInd, m.val
}

// Assemble 由COO三元组装配，重复元素累加
func (m *CSRMatrix[T]) Assemble(rows, cols int, ri, ci []int, v []T) {
	if len(ri) != len(ci) || len(ri) != len(v) {
		panic("csr assemble: dimension mismatch")
	}
	m.Allocate(rows, cols)
	for k := range ri {
		m.Increment(ri[k], ci[k], v[k])
	}
}

// search 二分查找 (row, col) 的位置
func (m *CSRMatrix[T]) search(row, col int) (int, bool) {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		panic("index out of range")
	}
	start := m.rowPtr[row]
	end := m.rowPtr[row+1]
	pos := sort.Search(end-start, func(i int) bool {
		return m.colInd[start+i] >= col
	}) + start
	return pos, pos < end && m.colInd[pos] == col
}

// Set 设置矩阵元素，值为零时删除该元素
func (m *CSRMatrix[T]) Set(row, col int, value T) {
	pos, found := m.search(row, col)
	if found {
		if maths.IsZero(value) {
			m.deleteElement(row, pos)
		} else {
			m.val[pos] = value
		}
	} else if !maths.IsZero(value) {
		m.insertElement(row, col, value, pos)
	}
}

// Increment 增量设置矩阵元素
// 与 Set 不同，累加为零的元素保留在结构中，Galerkin 结构不随数值抵消而改变
func (m *CSRMatrix[T]) Increment(row, col int, value T) {
	pos, found := m.search(row, col)
	if found {
		m.val[pos] += value
	} else {
		m.insertElement(row, col, value, pos)
	}
}

// Get 获取矩阵元素
func (m *CSRMatrix[T]) Get(row, col int) T {
	pos, found := m.search(row, col)
	if found {
		return m.val[pos]
	}
	var zero T
	return zero
}

// deleteElement 删除指定位置的元素
func (m *CSRMatrix[T]) deleteElement(row, pos int) {
	m.colInd = append(m.colInd[:pos], m.colInd[pos+1:]...)
	m.val = append(m.val[:pos], m.val[pos+1:]...)
	for i := row + 1; i <= m.rows; i++ {
		m.rowPtr[i]--
	}
}

// insertElement 在指定位置插入元素
func (m *CSRMatrix[T]) insertElement(row, col int, value T, pos int) {
	m.colInd = append(m.colInd, 0)
	copy(m.colInd[pos+1:], m.colInd[pos:])
	m.colInd[pos] = col
	var zero T
	m.val = append(m.val, zero)
	copy(m.val[pos+1:], m.val[pos:])
	m.val[pos] = value
	for i := row + 1; i <= m.rows; i++ {
		m.rowPtr[i]++
	}
}

// copyCSR 拷贝维度与数组
func (m *CSRMatrix[T]) copyCSR(src *CSRMatrix[T]) {
	m.rows, m.cols = src.rows, src.cols
	m.rowPtr = append(make([]int, 0, len(src.rowPtr)), src.rowPtr...)
	m.colInd = append(make([]int, 0, len(src.colInd)), src.colInd...)
	m.val = append(make([]T, 0, len(src.val)), src.val...)
}

// ConvertFrom 从任意主机格式转换
func (m *CSRMatrix[T]) ConvertFrom(src Matrix[T]) bool {
	if !m.onHost() {
		return false
	}
	return convertViaCSR(src, func(c *CSRMatrix[T]) bool {
		if c != m {
			m.copyCSR(c)
		}
		return true
	})
}

// CopyFrom 同格式设备拷贝
func (m *CSRMatrix[T]) CopyFrom(src Matrix[T]) bool {
	c, ok := src.(*CSRMatrix[T])
	if !ok {
		return false
	}
	if c != m {
		m.copyCSR(c)
	}
	return true
}

// Clone 副本
func (m *CSRMatrix[T]) Clone() Matrix[T] {
	c := &CSRMatrix[T]{base: m.base}
	c.copyCSR(m)
	return c
}

// toCSR 导出
func (m *CSRMatrix[T]) toCSR(dst *CSRMatrix[T]) { dst.copyCSR(m) }

// Apply out = A*in
func (m *CSRMatrix[T]) Apply(in, out *Vector[T]) {
	checkApply[T](m, in, out)
	x, y := in.data, out.data
	m.par.ForRange(m.rows, func(s, e int) {
		for i := s; i < e; i++ {
			var sum T
			for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
				sum += m.val[k] * x[m.colInd[k]]
			}
			y[i] = sum
		}
	})
}

// ApplyAdd out += scalar*A*in
func (m *CSRMatrix[T]) ApplyAdd(in *Vector[T], scalar T, out *Vector[T]) {
	checkApply[T](m, in, out)
	x, y := in.data, out.data
	m.par.ForRange(m.rows, func(s, e int) {
		for i := s; i < e; i++ {
			var sum T
			for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
				sum += m.val[k] * x[m.colInd[k]]
			}
			y[i] += scalar * sum
		}
	})
}

// diagPos 每行对角元位置，缺失为 -1
func (m *CSRMatrix[T]) diagPos() []int {
	pos := make([]int, m.rows)
	m.par.For(m.rows, func(i int) {
		pos[i] = -1
		if i >= m.cols {
			return
		}
		start, end := m.rowPtr[i], m.rowPtr[i+1]
		k := sort.Search(end-start, func(j int) bool { return m.colInd[start+j] >= i }) + start
		if k < end && m.colInd[k] == i {
			pos[i] = k
		}
	})
	return pos
}

// ExtractDiagonal out = diag(A)，非方阵返回 false
func (m *CSRMatrix[T]) ExtractDiagonal(out *Vector[T]) bool {
	if m.rows != m.cols || out.Len() != m.rows || out.dev != m.dev {
		return false
	}
	pos := m.diagPos()
	m.par.For(m.rows, func(i int) {
		var d T
		if pos[i] >= 0 {
			d = m.val[pos[i]]
		}
		out.data[i] = d
	})
	return true
}

// ExtractInverseDiagonal out = 1/diag(A)，存在零对角元时返回 false
func (m *CSRMatrix[T]) ExtractInverseDiagonal(out *Vector[T]) bool {
	if !m.ExtractDiagonal(out) {
		return false
	}
	one := maths.FromFloat[T](1)
	for i, d := range out.data {
		if maths.IsZero(d) {
			return false
		}
		out.data[i] = one / d
	}
	return true
}

// Scale 所有非零元乘以 alpha
func (m *CSRMatrix[T]) Scale(alpha T) {
	m.par.ForRange(len(m.val), func(s, e int) {
		for k := s; k < e; k++ {
			m.val[k] *= alpha
		}
	})
}

// ExtractRows 取出指定行组成 len(rows)×cols 的子矩阵
// dropDiagonal 为真时去掉原矩阵的对角元
func (m *CSRMatrix[T]) ExtractRows(rows []int, dropDiagonal bool, dst *CSRMatrix[T]) {
	rowPtr := make([]int, len(rows)+1)
	for k, i := range rows {
		cnt := m.rowPtr[i+1] - m.rowPtr[i]
		if dropDiagonal && i < m.cols {
			if _, found := m.search(i, i); found {
				cnt--
			}
		}
		rowPtr[k+1] = rowPtr[k] + cnt
	}
	colInd := make([]int, rowPtr[len(rows)])
	val := make([]T, rowPtr[len(rows)])
	m.par.For(len(rows), func(k int) {
		i, p := rows[k], rowPtr[k]
		for j := m.rowPtr[i]; j < m.rowPtr[i+1]; j++ {
			if dropDiagonal && m.colInd[j] == i {
				continue
			}
			colInd[p], val[p] = m.colInd[j], m.val[j]
			p++
		}
	})
	dst.SetData(len(rows), m.cols, rowPtr, colInd, val)
}

// Transpose dst = A^T
func (m *CSRMatrix[T]) Transpose(dst *CSRMatrix[T]) {
	rowPtr := make([]int, m.cols+1)
	for _, c := range m.colInd {
		rowPtr[c+1]++
	}
	for j := 0; j < m.cols; j++ {
		rowPtr[j+1] += rowPtr[j]
	}
	next := append([]int(nil), rowPtr[:m.cols]...)
	colInd := make([]int, len(m.colInd))
	val := make([]T, len(m.val))
	for i := 0; i < m.rows; i++ {
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			p := next[m.colInd[k]]
			colInd[p], val[p] = i, m.val[k]
			next[m.colInd[k]]++
		}
	}
	dst.SetData(m.cols, m.rows, rowPtr, colInd, val)
}

// rowSorter 按列索引排序一行
type rowSorter[T maths.Number] struct {
	col []int
	val []T
}

func (r rowSorter[T]) Len() int           { return len(r.col) }
func (r rowSorter[T]) Less(i, j int) bool { return r.col[i] < r.col[j] }
func (r rowSorter[T]) Swap(i, j int) {
	r.col[i], r.col[j] = r.col[j], r.col[i]
	r.val[i], r.val[j] = r.val[j], r.val[i]
}

// MatMatMult 稀疏矩阵乘法 this = A*B（Gustavson 按行累加，两遍扫描）
// A、B 必须与本矩阵位于同一设备
func (m *CSRMatrix[T]) MatMatMult(a, b *CSRMatrix[T]) {
	if a.cols != b.rows {
		panic(fmt.Sprintf("csr matmat: dimension mismatch %dx%d * %dx%d", a.rows, a.cols, b.rows, b.cols))
	}
	if a.dev != m.dev || b.dev != m.dev {
		panic("csr matmat: device mismatch")
	}
	n := a.rows
	rowPtr := make([]int, n+1)
	// 第一遍：每行非零元数量
	m.par.ForRange(n, func(s, e int) {
		marker := make([]int, b.cols)
		for j := range marker {
			marker[j] = -1
		}
		for i := s; i < e; i++ {
			cnt := 0
			for ka := a.rowPtr[i]; ka < a.rowPtr[i+1]; ka++ {
				k := a.colInd[ka]
				for kb := b.rowPtr[k]; kb < b.rowPtr[k+1]; kb++ {
					if c := b.colInd[kb]; marker[c] != i {
						marker[c] = i
						cnt++
					}
				}
			}
			rowPtr[i+1] = cnt
		}
	})
	for i := 0; i < n; i++ {
		rowPtr[i+1] += rowPtr[i]
	}
	colInd := make([]int, rowPtr[n])
	val := make([]T, rowPtr[n])
	// 第二遍：数值累加
	m.par.ForRange(n, func(s, e int) {
		where := make([]int, b.cols)
		for j := range where {
			where[j] = -1
		}
		for i := s; i < e; i++ {
			start, p := rowPtr[i], rowPtr[i]
			for ka := a.rowPtr[i]; ka < a.rowPtr[i+1]; ka++ {
				k, av := a.colInd[ka], a.val[ka]
				for kb := b.rowPtr[k]; kb < b.rowPtr[k+1]; kb++ {
					c := b.colInd[kb]
					if where[c] < start {
						where[c] = p
						colInd[p] = c
						val[p] = av * b.val[kb]
						p++
					} else {
						val[where[c]] += av * b.val[kb]
					}
				}
			}
			sort.Sort(rowSorter[T]{col: colInd[start:p], val: val[start:p]})
		}
	})
	m.rows, m.cols = a.rows, b.cols
	m.rowPtr, m.colInd, m.val = rowPtr, colInd, val
}

// SameStructure 两矩阵稀疏结构是否一致
func (m *CSRMatrix[T]) SameStructure(o *CSRMatrix[T]) bool {
	if m.rows != o.rows || m.cols != o.cols || len(m.colInd) != len(o.colInd) {
		return false
	}
	for i := range m.rowPtr {
		if m.rowPtr[i] != o.rowPtr[i] {
			return false
		}
	}
	for k := range m.colInd {
		if m.colInd[k] != o.colInd[k] {
			return false
		}
	}
	return true
}

// String 字符串表示
func (m *CSRMatrix[T]) String() string {
	return fmt.Sprintf("CSR %dx%d nnz=%d @%s", m.rows, m.cols, len(m.val), m.dev)
}

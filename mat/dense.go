package mat

import (
	"fmt"

	"github.com/costat/rocALUTION/backend"
	"github.com/costat/rocALUTION/maths"
	"github.com/costat/rocALUTION/utils"
	gmat "gonum.org/v1/gonum/mat"
)

// DenseMatrix 行优先稠密矩阵
type DenseMatrix[T maths.Number] struct {
	base
	val []T // rows*cols 行优先

	lu  maths.LU[T] // 通用分解
	glu *gmat.LU    // float64 使用 gonum 分解
}

// NewDense 创建 rows×cols 的零矩阵
func NewDense[T maths.Number](rows, cols int, dev backend.Device, par utils.Parallel) *DenseMatrix[T] {
	m := &DenseMatrix[T]{base: base{dev: dev, par: par}}
	m.Allocate(rows, cols)
	return m
}

// Format 返回 DENSE
func (m *DenseMatrix[T]) Format() Format { return DENSE }

// Nnz 存储元素数量
func (m *DenseMatrix[T]) Nnz() int { return len(m.val) }

// Allocate 分配零矩阵
func (m *DenseMatrix[T]) Allocate(rows, cols int) {
	m.rows, m.cols = rows, cols
	m.val = make([]T, rows*cols)
	m.lu, m.glu = nil, nil
}

// Clear 释放数据
func (m *DenseMatrix[T]) Clear() {
	m.rows, m.cols, m.val = 0, 0, nil
	m.lu, m.glu = nil, nil
}

// Values 行优先数据（主机）
func (m *DenseMatrix[T]) Values() []T {
	if !m.onHost() {
		panic(fmt.Sprintf("dense: direct access on %s", m.dev))
	}
	return m.val
}

// Set 设置元素
func (m *DenseMatrix[T]) Set(row, col int, v T) {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		panic("index out of range")
	}
	m.val[row*m.cols+col] = v
}

// Get 获取元素
func (m *DenseMatrix[T]) Get(row, col int) T {
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		panic("index out of range")
	}
	return m.val[row*m.cols+col]
}

// ConvertFrom 从任意主机格式转换
func (m *DenseMatrix[T]) ConvertFrom(src Matrix[T]) bool {
	if !m.onHost() {
		return false
	}
	if d, ok := src.(*DenseMatrix[T]); ok && src.Device() == backend.Host {
		return m.CopyFrom(d)
	}
	return convertViaCSR(src, func(c *CSRMatrix[T]) bool {
		m.Allocate(c.rows, c.cols)
		for i := 0; i < c.rows; i++ {
			for k := c.rowPtr[i]; k < c.rowPtr[i+1]; k++ {
				m.val[i*m.cols+c.colInd[k]] = c.val[k]
			}
		}
		return true
	})
}

// CopyFrom 同格式设备拷贝
func (m *DenseMatrix[T]) CopyFrom(src Matrix[T]) bool {
	d, ok := src.(*DenseMatrix[T])
	if !ok {
		return false
	}
	if d != m {
		m.rows, m.cols = d.rows, d.cols
		m.val = append(make([]T, 0, len(d.val)), d.val...)
		m.lu, m.glu = nil, nil
	}
	return true
}

// Clone 副本
func (m *DenseMatrix[T]) Clone() Matrix[T] {
	c := &DenseMatrix[T]{base: m.base}
	c.CopyFrom(m)
	return c
}

// toCSR 导出，零元素不存储
func (m *DenseMatrix[T]) toCSR(dst *CSRMatrix[T]) {
	rowPtr := make([]int, m.rows+1)
	var colInd []int
	var val []T
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			if v := m.val[i*m.cols+j]; !maths.IsZero(v) {
				colInd = append(colInd, j)
				val = append(val, v)
			}
		}
		rowPtr[i+1] = len(val)
	}
	dst.SetData(m.rows, m.cols, rowPtr, colInd, val)
}

// Apply out = A*in
func (m *DenseMatrix[T]) Apply(in, out *Vector[T]) {
	checkApply[T](m, in, out)
	m.par.For(m.rows, func(i int) {
		var sum T
		row := m.val[i*m.cols : (i+1)*m.cols]
		for j, a := range row {
			sum += a * in.data[j]
		}
		out.data[i] = sum
	})
}

// ApplyAdd out += scalar*A*in
func (m *DenseMatrix[T]) ApplyAdd(in *Vector[T], scalar T, out *Vector[T]) {
	checkApply[T](m, in, out)
	m.par.For(m.rows, func(i int) {
		var sum T
		row := m.val[i*m.cols : (i+1)*m.cols]
		for j, a := range row {
			sum += a * in.data[j]
		}
		out.data[i] += scalar * sum
	})
}

// ExtractDiagonal out = diag(A)
func (m *DenseMatrix[T]) ExtractDiagonal(out *Vector[T]) bool {
	if m.rows != m.cols || out.Len() != m.rows || out.dev != m.dev {
		return false
	}
	for i := 0; i < m.rows; i++ {
		out.data[i] = m.val[i*m.cols+i]
	}
	return true
}

// MatMatMult this = A*B
func (m *DenseMatrix[T]) MatMatMult(a, b *DenseMatrix[T]) {
	if a.cols != b.rows {
		panic("dense matmat: dimension mismatch")
	}
	if a.dev != m.dev || b.dev != m.dev {
		panic("dense matmat: device mismatch")
	}
	val := make([]T, a.rows*b.cols)
	m.par.For(a.rows, func(i int) {
		for k := 0; k < a.cols; k++ {
			aik := a.val[i*a.cols+k]
			if maths.IsZero(aik) {
				continue
			}
			for j := 0; j < b.cols; j++ {
				val[i*b.cols+j] += aik * b.val[k*b.cols+j]
			}
		}
	})
	m.rows, m.cols, m.val = a.rows, b.cols, val
	m.lu, m.glu = nil, nil
}

// asGonum 转为 gonum 稠密矩阵（仅 float64）
func (m *DenseMatrix[T]) asGonum() (*gmat.Dense, bool) {
	data, ok := any(m.val).([]float64)
	if !ok {
		return nil, false
	}
	return gmat.NewDense(m.rows, m.cols, append([]float64(nil), data...)), true
}

// LUFactorize 部分主元LU分解，结果保存在矩阵内部供 LUSolve 复用
func (m *DenseMatrix[T]) LUFactorize() error {
	if !m.onHost() {
		return fmt.Errorf("dense lu: host only, matrix on %s", m.dev)
	}
	if m.rows != m.cols || m.rows == 0 {
		return fmt.Errorf("dense lu: matrix %dx%d is not a non-empty square", m.rows, m.cols)
	}
	if g, ok := m.asGonum(); ok {
		var lu gmat.LU
		lu.Factorize(g)
		if lu.Det() == 0 {
			return fmt.Errorf("dense lu: matrix is singular")
		}
		m.glu, m.lu = &lu, nil
		return nil
	}
	lu, err := maths.NewLU[T](m.rows)
	if err != nil {
		return err
	}
	if err = lu.Decompose(m.val); err != nil {
		return err
	}
	m.lu, m.glu = lu, nil
	return nil
}

// LUSolve 使用 LUFactorize 的分解求解 A*out = in
func (m *DenseMatrix[T]) LUSolve(in, out *Vector[T]) error {
	checkApply[T](m, in, out)
	switch {
	case m.glu != nil:
		b := gmat.NewVecDense(in.Len(), append([]float64(nil), any(in.data).([]float64)...))
		var x gmat.VecDense
		if err := m.glu.SolveVecTo(&x, false, b); err != nil {
			return fmt.Errorf("dense lu solve: %w", err)
		}
		copy(any(out.data).([]float64), x.RawVector().Data)
		return nil
	case m.lu != nil:
		return m.lu.SolveReuse(in.data, out.data)
	}
	return fmt.Errorf("dense lu solve: matrix not factorized")
}

// Invert 原地求逆
func (m *DenseMatrix[T]) Invert() error {
	if !m.onHost() {
		return fmt.Errorf("dense invert: host only, matrix on %s", m.dev)
	}
	if m.rows != m.cols || m.rows == 0 {
		return fmt.Errorf("dense invert: matrix %dx%d is not a non-empty square", m.rows, m.cols)
	}
	if g, ok := m.asGonum(); ok {
		var inv gmat.Dense
		if err := inv.Inverse(g); err != nil {
			return fmt.Errorf("dense invert: %w", err)
		}
		copy(any(m.val).([]float64), inv.RawMatrix().Data)
		m.lu, m.glu = nil, nil
		return nil
	}
	n := m.rows
	lu, err := maths.NewLU[T](n)
	if err != nil {
		return err
	}
	if err = lu.Decompose(m.val); err != nil {
		return fmt.Errorf("dense invert: %w", err)
	}
	inv := make([]T, n*n)
	e := make([]T, n)
	col := make([]T, n)
	one := maths.FromFloat[T](1)
	for j := 0; j < n; j++ {
		clear(e)
		e[j] = one
		if err = lu.SolveReuse(e, col); err != nil {
			return fmt.Errorf("dense invert: %w", err)
		}
		for i := 0; i < n; i++ {
			inv[i*n+j] = col[i]
		}
	}
	m.val = inv
	m.lu, m.glu = nil, nil
	return nil
}

// ExtractRowVector out = A(row, :)
func (m *DenseMatrix[T]) ExtractRowVector(row int, out *Vector[T]) {
	if out.Len() != m.cols {
		panic("dense extract row: dimension mismatch")
	}
	copy(out.data, m.val[row*m.cols:(row+1)*m.cols])
}

// ExtractColumnVector out = A(:, col)
func (m *DenseMatrix[T]) ExtractColumnVector(col int, out *Vector[T]) {
	if out.Len() != m.rows {
		panic("dense extract column: dimension mismatch")
	}
	for i := 0; i < m.rows; i++ {
		out.data[i] = m.val[i*m.cols+col]
	}
}

// ReplaceRowVector A(row, :) = in
func (m *DenseMatrix[T]) ReplaceRowVector(row int, in *Vector[T]) {
	if in.Len() != m.cols {
		panic("dense replace row: dimension mismatch")
	}
	copy(m.val[row*m.cols:(row+1)*m.cols], in.data)
	m.lu, m.glu = nil, nil
}

// ReplaceColumnVector A(:, col) = in
func (m *DenseMatrix[T]) ReplaceColumnVector(col int, in *Vector[T]) {
	if in.Len() != m.rows {
		panic("dense replace column: dimension mismatch")
	}
	for i := 0; i < m.rows; i++ {
		m.val[i*m.cols+col] = in.data[i]
	}
	m.lu, m.glu = nil, nil
}

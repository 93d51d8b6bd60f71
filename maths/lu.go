package maths

import (
	"errors"
)

// LU 接口定义了 LU 分解和求解线性方程组的操作。
type LU[T Number] interface {
	Dim() int                   // 矩阵维度
	Decompose(matrix []T) error // 对输入方阵（行优先 n×n）执行LU分解（PA=LU）
	SolveReuse(b, x []T) error  // 重用分解结果求解Ax=b
	Determinant() T             // 由分解结果计算行列式
}

// NewLU 创建稠密矩阵LU分解器（输入矩阵维度n）
// 参数:
//
//	n - 矩阵维度（必须为正整数）
//
// 返回:
//
//	LU接口实例，错误信息
func NewLU[T Number](n int) (LU[T], error) {
	if n < 1 {
		return nil, errors.New("lu dimension must be positive")
	}
	return &luDense[T]{
		n:        n,
		LU:       make([]T, n*n),
		Y:        make([]T, n),
		P:        make([]int, n),
		pinverse: make([]int, n),
	}, nil
}

// luDense 稠密矩阵LU分解实现（PA=LU，带部分主元）
// L 与 U 合并存储：严格下三角为消元因子（L对角线为1不存储），上三角为U。
type luDense[T Number] struct {
	n        int   // 矩阵维度（方阵n×n）
	LU       []T   // 合并存储的L和U（行优先）
	Y        []T   // 中间变量：存储前向替换结果Ly=Pb
	P        []int // 置换向量：P[i] = 分解后第i行对应的原始矩阵行索引
	pinverse []int // 逆置换向量：pinverse[i] = 原始第i行对应的分解后行索引
	swaps    int   // 行交换次数（行列式符号）
}

// Dim 获取矩阵维度
func (lu *luDense[T]) Dim() int {
	return lu.n
}

// init 拷贝输入矩阵并初始化置换向量
func (lu *luDense[T]) init(matrix []T) {
	copy(lu.LU, matrix)
	for i := 0; i < lu.n; i++ {
		lu.P[i] = i        // 初始置换：分解后行i对应原始行i
		lu.pinverse[i] = i // 初始逆置换：原始行i对应分解后行i
	}
	lu.swaps = 0
}

// updatePermutation 更新置换向量（交换并同步更新逆置换）
func (lu *luDense[T]) updatePermutation(k, maxRow int) {
	lu.P[k], lu.P[maxRow] = lu.P[maxRow], lu.P[k]
	lu.pinverse[lu.P[k]] = k
	lu.pinverse[lu.P[maxRow]] = maxRow
	lu.swaps++
}

// swapRows 交换两行
func (lu *luDense[T]) swapRows(r1, r2 int) {
	n := lu.n
	a := lu.LU[r1*n : (r1+1)*n]
	b := lu.LU[r2*n : (r2+1)*n]
	for j := range a {
		a[j], b[j] = b[j], a[j]
	}
}

// Decompose 执行稠密矩阵LU分解（核心逻辑：高斯消元+部分主元）
//
// 算法步骤:
//  1. 初始化：拷贝A，初始化P、pinverse
//  2. 对每一列k（0到n-1）:
//     a. 部分主元选择：在当前列k中找[k, n-1]行的模最大值
//     b. 行交换：整行交换（L因子随行移动），更新置换向量
//     c. 高斯消元：计算消元因子存入严格下三角，更新右下子块
func (lu *luDense[T]) Decompose(matrix []T) error {
	n := lu.n
	if len(matrix) != n*n {
		return errors.New("lu dense decompose: matrix dimension mismatch")
	}
	lu.init(matrix)
	a := lu.LU
	for k := 0; k < n; k++ {
		// 部分主元选择
		maxRow := k
		maxAbsVal := Abs(a[k*n+k])
		for i := k + 1; i < n; i++ {
			if v := Abs(a[i*n+k]); v > maxAbsVal {
				maxAbsVal = v
				maxRow = i
			}
		}
		// 检查矩阵是否奇异（主元接近零）
		if maxAbsVal < Epsilon {
			return errors.New("lu dense decompose: matrix is singular or nearly singular")
		}
		if maxRow != k {
			lu.swapRows(k, maxRow)
			lu.updatePermutation(k, maxRow)
		}
		// 高斯消元
		pivotVal := a[k*n+k]
		for i := k + 1; i < n; i++ {
			factor := a[i*n+k] / pivotVal
			a[i*n+k] = factor
			if IsZero(factor) {
				continue
			}
			rowI := a[i*n : (i+1)*n]
			rowK := a[k*n : (k+1)*n]
			for j := k + 1; j < n; j++ {
				rowI[j] -= factor * rowK[j]
			}
		}
	}
	return nil
}

// SolveReuse 利用分解结果求解Ax=b（重用预分配向量）
//
// 数学步骤:
//  1. 前向替换：求解Ly = Pb
//  2. 后向替换：求解Ux = y
func (lu *luDense[T]) SolveReuse(b, x []T) error {
	n := lu.n
	if len(b) != n || len(x) != n {
		return errors.New("lu dense solve: vector dimension mismatch")
	}
	a := lu.LU
	// 前向替换：求解Ly = Pb
	for i := 0; i < n; i++ {
		sum := b[lu.P[i]]
		row := a[i*n : i*n+i]
		for j, l := range row {
			sum -= l * lu.Y[j]
		}
		lu.Y[i] = sum
	}
	// 后向替换：求解Ux = y
	for i := n - 1; i >= 0; i-- {
		sum := lu.Y[i]
		for j := i + 1; j < n; j++ {
			sum -= a[i*n+j] * x[j]
		}
		diagVal := a[i*n+i]
		if Abs(diagVal) < Epsilon {
			return errors.New("lu dense solve: division by zero (U diagonal is zero)")
		}
		x[i] = sum / diagVal
	}
	return nil
}

// Determinant 由分解结果计算行列式
func (lu *luDense[T]) Determinant() T {
	n := lu.n
	det := FromFloat[T](1)
	for i := 0; i < n; i++ {
		det *= lu.LU[i*n+i]
	}
	if lu.swaps%2 == 1 {
		det = -det
	}
	return det
}

// Package mat 存储格式后端
// 每种格式（DENSE、CSR、MCSR、COO、ELL、HYB、DIA）在一个物理设备上实现统一的格式操作契约，
// 由 (格式, 设备) 二元组从注册表中选择具体实现。
package mat

import (
	"fmt"

	"github.com/costat/rocALUTION/backend"
	"github.com/costat/rocALUTION/maths"
	"github.com/costat/rocALUTION/utils"
)

// Format 矩阵存储格式
type Format uint8

const (
	DENSE Format = iota // 稠密（行优先）
	CSR                 // 压缩稀疏行
	MCSR                // 对角线分离的压缩稀疏行
	COO                 // 坐标格式
	ELL                 // ELLPACK
	HYB                 // ELL + COO 混合
	DIA                 // 对角线格式
)

// Formats 全部支持的格式
var Formats = []Format{DENSE, CSR, MCSR, COO, ELL, HYB, DIA}

// String 格式名称
func (f Format) String() string {
	names := [...]string{"DENSE", "CSR", "MCSR", "COO", "ELL", "HYB", "DIA"}
	if int(f) < len(names) {
		return names[f]
	}
	return fmt.Sprintf("FORMAT(%d)", f)
}

// Matrix 格式操作契约
// 所有实现只在自身所在设备上执行内核；跨设备数据只能通过 CopyFrom 设备拷贝。
type Matrix[T maths.Number] interface {
	Format() Format         // 存储格式
	Device() backend.Device // 所在设备
	Rows() int              // 行数
	Cols() int              // 列数
	Nnz() int               // 存储的非零元数量
	Clear()                 // 释放数据，维度归零

	// ConvertFrom 将 src 表示的同一线性映射转换为本格式（仅主机端）
	// 无法表示时返回 false 且自身保持不变
	ConvertFrom(src Matrix[T]) bool
	// CopyFrom 同格式深拷贝，src 可以位于任意设备（设备拷贝）
	CopyFrom(src Matrix[T]) bool
	Clone() Matrix[T] // 同格式同设备的副本

	Apply(in, out *Vector[T])                         // out = A*in
	ApplyAdd(in *Vector[T], scalar T, out *Vector[T]) // out += scalar*A*in
	ExtractDiagonal(out *Vector[T]) bool              // out = diag(A)
}

// csrExporter 可导出为CSR的格式
type csrExporter[T maths.Number] interface {
	toCSR(dst *CSRMatrix[T])
}

// base 各格式公共字段
type base struct {
	rows, cols int
	dev        backend.Device
	par        utils.Parallel
}

// Rows 返回行数
func (b *base) Rows() int { return b.rows }

// Cols 返回列数
func (b *base) Cols() int { return b.cols }

// Device 返回所在设备
func (b *base) Device() backend.Device { return b.dev }

// Parallel 返回内核使用的并行配置
func (b *base) Parallel() utils.Parallel { return b.par }

// onHost 是否位于主机
func (b *base) onHost() bool { return b.dev == backend.Host }

// checkApply 检查乘法参数（内核前置条件，违反即编程错误）
func checkApply[T maths.Number](m Matrix[T], in, out *Vector[T]) {
	if in.Len() != m.Cols() || out.Len() != m.Rows() {
		panic(fmt.Sprintf("%s apply: dimension mismatch %dx%d in=%d out=%d",
			m.Format(), m.Rows(), m.Cols(), in.Len(), out.Len()))
	}
	if in.Device() != m.Device() || out.Device() != m.Device() {
		panic(fmt.Sprintf("%s apply: device mismatch matrix=%s in=%s out=%s",
			m.Format(), m.Device(), in.Device(), out.Device()))
	}
}

// New 按 (格式, 设备) 创建空矩阵
func New[T maths.Number](f Format, dev backend.Device, par utils.Parallel) Matrix[T] {
	b := base{dev: dev, par: par}
	switch f {
	case DENSE:
		return &DenseMatrix[T]{base: b}
	case CSR:
		return &CSRMatrix[T]{base: b}
	case MCSR:
		return &MCSRMatrix[T]{base: b}
	case COO:
		return &COOMatrix[T]{base: b}
	case ELL:
		return &ELLMatrix[T]{base: b}
	case HYB:
		return &HYBMatrix[T]{base: b}
	case DIA:
		return &DIAMatrix[T]{base: b}
	}
	panic(fmt.Sprintf("mat: unknown format %v", f))
}

// convertViaCSR 通用转换：src 导出为主机CSR后交给 fromCSR
func convertViaCSR[T maths.Number](src Matrix[T], fromCSR func(*CSRMatrix[T]) bool) bool {
	if src.Device() != backend.Host {
		return false
	}
	if c, ok := src.(*CSRMatrix[T]); ok {
		return fromCSR(c)
	}
	ex, ok := src.(csrExporter[T])
	if !ok {
		return false
	}
	tmp := &CSRMatrix[T]{base: base{dev: backend.Host, par: utils.Serial()}}
	ex.toCSR(tmp)
	return fromCSR(tmp)
}

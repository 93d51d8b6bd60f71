// Package maths 数值基元层
// 提供实数/复数标量的逐元素运算（绝对值、共轭、开方、幂）、原子累加以及稠密LU分解。
package maths

// Epsilon 浮点精度阈值
const Epsilon = 1e-16

// Number 是一个约束，允许任何浮点或复数类型
type Number interface {
	~float32 | ~float64 | ~complex64 | ~complex128
}

// Real 实数标量约束
type Real interface {
	~float32 | ~float64
}

// Kind 标量类型
type Kind int

const (
	KindFloat32    Kind = iota // 单精度实数
	KindFloat64                // 双精度实数
	KindComplex64              // 单精度复数
	KindComplex128             // 双精度复数
)

// String 返回标量类型名称
func (k Kind) String() string {
	switch k {
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindComplex64:
		return "complex64"
	case KindComplex128:
		return "complex128"
	default:
		return "unknown"
	}
}

// IsComplex 是否为复数类型
func (k Kind) IsComplex() bool {
	return k == KindComplex64 || k == KindComplex128
}

// KindOf 推断泛型T的标量类型
func KindOf[T Number]() Kind {
	var zero T
	switch any(zero).(type) {
	case float32:
		return KindFloat32
	case float64:
		return KindFloat64
	case complex64:
		return KindComplex64
	case complex128:
		return KindComplex128
	}
	panic("unsupported scalar type")
}

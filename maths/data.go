package maths

import (
	"math"
	"math/cmplx"
)

// Abs 是一个泛型函数，返回任何支持的 Number 类型的绝对值（复数为模）。
func Abs[T Number](v T) float64 {
	// 通过类型断言检查具体类型
	switch x := any(v).(type) {
	case float32:
		return math.Abs(float64(x))
	case float64:
		return math.Abs(x)
	case complex64:
		return cmplx.Abs(complex128(x))
	case complex128:
		return cmplx.Abs(x)
	}
	return 0
}

// Conj 返回共轭值，实数返回自身
func Conj[T Number](v T) T {
	switch x := any(v).(type) {
	case complex64:
		return any(complex(real(x), -imag(x))).(T)
	case complex128:
		return any(cmplx.Conj(x)).(T)
	}
	return v
}

// RealPart 返回实部
func RealPart[T Number](v T) float64 {
	switch x := any(v).(type) {
	case float32:
		return float64(x)
	case float64:
		return x
	case complex64:
		return float64(real(x))
	case complex128:
		return real(x)
	}
	return 0
}

// ImagPart 返回虚部，实数恒为0
func ImagPart[T Number](v T) float64 {
	switch x := any(v).(type) {
	case complex64:
		return float64(imag(x))
	case complex128:
		return imag(x)
	}
	return 0
}

// FromFloat 由实数构造标量
func FromFloat[T Number](f float64) T {
	var zero T
	switch any(zero).(type) {
	case float32:
		return any(float32(f)).(T)
	case float64:
		return any(f).(T)
	case complex64:
		return any(complex(float32(f), 0)).(T)
	case complex128:
		return any(complex(f, 0)).(T)
	}
	panic("unsupported scalar type")
}

// toComplex128 统一提升为双精度复数
func toComplex128[T Number](v T) complex128 {
	switch x := any(v).(type) {
	case float32:
		return complex(float64(x), 0)
	case float64:
		return complex(x, 0)
	case complex64:
		return complex128(x)
	case complex128:
		return x
	}
	panic("unsupported scalar type")
}

// fromComplex128 由双精度复数降级，实数类型丢弃虚部
func fromComplex128[T Number](c complex128) T {
	var zero T
	switch any(zero).(type) {
	case float32:
		return any(float32(real(c))).(T)
	case float64:
		return any(real(c)).(T)
	case complex64:
		return any(complex64(c)).(T)
	case complex128:
		return any(c).(T)
	}
	panic("unsupported scalar type")
}

// Cast 标量精度/类型转换（复数转实数时取实部）
func Cast[From, To Number](v From) To {
	return fromComplex128[To](toComplex128(v))
}

// Sqrt 开方，复数取主值
func Sqrt[T Number](v T) T {
	switch x := any(v).(type) {
	case float32:
		return any(float32(math.Sqrt(float64(x)))).(T)
	case float64:
		return any(math.Sqrt(x)).(T)
	case complex64:
		return any(complex64(cmplx.Sqrt(complex128(x)))).(T)
	case complex128:
		return any(cmplx.Sqrt(x)).(T)
	}
	panic("unsupported scalar type")
}

// Pow 幂运算 v^p
func Pow[T Number](v T, p float64) T {
	switch x := any(v).(type) {
	case float32:
		return any(float32(math.Pow(float64(x), p))).(T)
	case float64:
		return any(math.Pow(x, p)).(T)
	case complex64:
		return any(complex64(cmplx.Pow(complex128(x), complex(p, 0)))).(T)
	case complex128:
		return any(cmplx.Pow(x, complex(p, 0))).(T)
	}
	panic("unsupported scalar type")
}

// IsZero 判断是否为零
func IsZero[T Number](v T) bool {
	var zero T
	return v == zero
}

// MachineEpsilon 返回T精度对应的机器精度
func MachineEpsilon[T Number]() float64 {
	switch KindOf[T]() {
	case KindFloat32, KindComplex64:
		return 1.1920929e-07
	}
	return 2.220446049250313e-16
}

// IsFinite 检查标量是否为有限值
func IsFinite[T Number](v T) bool {
	c := toComplex128(v)
	return !cmplx.IsInf(c) && !cmplx.IsNaN(c)
}

package local

import "github.com/pkg/errors"

// 本包返回的错误均包装以下哨兵错误，调用方通过 errors.Is 判断类别。
var (
	// ErrDeviceMismatch 参与运算的对象不在同一设备
	ErrDeviceMismatch = errors.New("local: device mismatch")

	// ErrDimensionMismatch 维度不兼容
	ErrDimensionMismatch = errors.New("local: dimension mismatch")

	// ErrFormat 目标格式无法表示当前结构，或运算不支持当前格式
	ErrFormat = errors.New("local: unsupported format")

	// ErrOperatorKind 算子的具体类型与期望不符
	ErrOperatorKind = errors.New("local: unexpected operator kind")

	// ErrZeroDiagonal 存在零对角元
	ErrZeroDiagonal = errors.New("local: zero on diagonal")

	// ErrSingular 分解失败
	ErrSingular = errors.New("local: singular matrix")
)

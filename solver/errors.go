package solver

import "github.com/pkg/errors"

// 使用错误：立即返回给调用方，不重试。数值不收敛不属于错误，见 Status。
var (
	// ErrNotBuilt 未 Build 即 Solve
	ErrNotBuilt = errors.New("solver: not built")

	// ErrAlreadyBuilt 未 Clear 重复 Build
	ErrAlreadyBuilt = errors.New("solver: already built")

	// ErrNilOperator 未设置算子
	ErrNilOperator = errors.New("solver: operator not set")

	// ErrEmptyOperator 算子维度为零或非方阵
	ErrEmptyOperator = errors.New("solver: degenerate operator")

	// ErrOrder BiCGStab(l) 阶数非法
	ErrOrder = errors.New("solver: invalid order")
)

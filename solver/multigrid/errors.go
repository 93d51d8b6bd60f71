package multigrid

import "github.com/pkg/errors"

var (
	// ErrTransfer 粗化策略给出的插值或限制算子为空、类型不符或维度不衔接
	ErrTransfer = errors.New("multigrid: invalid transfer operator")

	// ErrSmoothers 手动光滑子数量与层数不符
	ErrSmoothers = errors.New("multigrid: smoother count mismatch")

	// ErrCoarsening 未设置粗化策略
	ErrCoarsening = errors.New("multigrid: coarsening strategy not set")
)

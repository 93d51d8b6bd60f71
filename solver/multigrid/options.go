package multigrid

import (
	"math"

	"github.com/costat/rocALUTION/mat"
)

// Cycle 多重网格循环类型
type Cycle int

const (
	VCycle Cycle = iota // 每层下降一次
	WCycle              // 每层下降两次
)

// String 循环名称
func (c Cycle) String() string {
	if c == WCycle {
		return "W"
	}
	return "V"
}

// 默认配置
const (
	DefaultCouplingStrength = 0.25
	DefaultMaxLevels        = 20
	DefaultCoarsestSize     = 300
	DefaultMaxDensity       = 0.5
	DefaultRelaxation       = 1.3
)

// 选项构造中的非法取值属于编程错误，直接 panic
const (
	panicCoupling  = "multigrid: WithCouplingStrength: eps must be in [0,1]"
	panicLevels    = "multigrid: WithMaxLevels: need at least one level"
	panicCoarsest  = "multigrid: WithCoarsestSize: size must be positive"
	panicDensity   = "multigrid: WithMaxDensity: density must be in (0,1]"
	panicHost      = "multigrid: WithHostLevels: count must be non-negative"
	panicRelax     = "multigrid: WithRelaxation: relaxation must be finite and positive"
	panicSmoothing = "multigrid: WithSmoothingSteps: steps must be non-negative"
)

// Option 修改层级构建配置
type Option func(*config)

// config 层级构建与循环配置
type config struct {
	eps          float64    // 强耦合阈值
	maxLevels    int        // 最大层数（含最细层）
	coarsestSize int        // 行数不超过该值时停止粗化
	maxDensity   float64    // 稠密度超过该值时停止粗化
	hostLevels   int        // 放在主机上的最粗层数
	opFormat     mat.Format // 粗层算子工作格式
	smoothFormat mat.Format // 光滑子行块格式
	relax        float64    // 光滑子松弛因子
	cycle        Cycle      // 循环类型
	pre, post    int        // 前后光滑步数
}

func defaults() config {
	return config{
		eps:          DefaultCouplingStrength,
		maxLevels:    DefaultMaxLevels,
		coarsestSize: DefaultCoarsestSize,
		maxDensity:   DefaultMaxDensity,
		opFormat:     mat.CSR,
		smoothFormat: mat.CSR,
		relax:        DefaultRelaxation,
		cycle:        VCycle,
		pre:          1,
		post:         1,
	}
}

// WithCouplingStrength 强耦合阈值 eps，取值 [0,1]
func WithCouplingStrength(eps float64) Option {
	if math.IsNaN(eps) || eps < 0 || eps > 1 {
		panic(panicCoupling)
	}
	return func(c *config) { c.eps = eps }
}

// WithMaxLevels 最大层数（含最细层），1 表示直接用粗层求解器求解
func WithMaxLevels(n int) Option {
	if n < 1 {
		panic(panicLevels)
	}
	return func(c *config) { c.maxLevels = n }
}

// WithCoarsestSize 最粗层行数阈值
func WithCoarsestSize(n int) Option {
	if n < 1 {
		panic(panicCoarsest)
	}
	return func(c *config) { c.coarsestSize = n }
}

// WithMaxDensity 稠密度上限 nnz/n²
func WithMaxDensity(d float64) Option {
	if math.IsNaN(d) || d <= 0 || d > 1 {
		panic(panicDensity)
	}
	return func(c *config) { c.maxDensity = d }
}

// WithHostLevels 最粗的 n 层放在主机上，最细层始终跟随外部算子
func WithHostLevels(n int) Option {
	if n < 0 {
		panic(panicHost)
	}
	return func(c *config) { c.hostLevels = n }
}

// WithOperatorFormat 粗层算子工作格式
func WithOperatorFormat(f mat.Format) Option {
	return func(c *config) { c.opFormat = f }
}

// WithSmootherFormat 默认光滑子的行块格式
func WithSmootherFormat(f mat.Format) Option {
	return func(c *config) { c.smoothFormat = f }
}

// WithRelaxation 默认光滑子松弛因子
func WithRelaxation(omega float64) Option {
	if math.IsNaN(omega) || math.IsInf(omega, 0) || omega <= 0 {
		panic(panicRelax)
	}
	return func(c *config) { c.relax = omega }
}

// WithCycle 循环类型
func WithCycle(cy Cycle) Option {
	return func(c *config) { c.cycle = cy }
}

// WithSmoothingSteps 前后光滑步数
func WithSmoothingSteps(pre, post int) Option {
	if pre < 0 || post < 0 {
		panic(panicSmoothing)
	}
	return func(c *config) { c.pre, c.post = pre, post }
}

package backend

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/costat/rocALUTION/utils"
)

// Descriptor 后端配置
// 随矩阵/向量一同传递，决定可迁移的加速器、各设备的并行度以及日志输出。
type Descriptor struct {
	Accelerator Device         // MoveToAccelerator 的目标设备，Host 表示无加速器
	Host        utils.Parallel // 主机端数据并行配置
	Compute     utils.Parallel // 加速器端并行配置（计算单元）
	Logger      *slog.Logger   // 日志输出，nil 时丢弃
	Verbose     int            // 0 静默，1 求解起止，2 逐次迭代
}

// Default 仅主机的默认配置
func Default() Descriptor {
	return Descriptor{
		Accelerator: Host,
		Host:        utils.DefaultParallel(),
		Compute:     utils.DefaultParallel(),
	}
}

// NewDescriptor 创建指定加速器的配置
// computeUnits 为加速器端并行宽度，<=0 时取 CPU 数量的四倍
func NewDescriptor(accelerator Device, computeUnits int) (Descriptor, error) {
	if !accelerator.Valid() {
		return Descriptor{}, fmt.Errorf("backend: unknown device %v", accelerator)
	}
	d := Default()
	d.Accelerator = accelerator
	if computeUnits <= 0 {
		computeUnits = 4 * runtime.NumCPU()
	}
	d.Compute = utils.Parallel{
		Enabled:      computeUnits > 1,
		NumWorkers:   computeUnits,
		MinChunkSize: 64,
	}
	return d, nil
}

// Exec 返回指定设备上内核执行使用的并行配置
func (d Descriptor) Exec(dev Device) utils.Parallel {
	if dev.IsAccelerator() {
		return d.Compute
	}
	return d.Host
}

// Log 返回可用的日志实例
func (d Descriptor) Log() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Logger
}

// WithLogger 设置日志与输出级别
func (d Descriptor) WithLogger(logger *slog.Logger, verbose int) Descriptor {
	d.Logger = logger
	d.Verbose = verbose
	return d
}

// HasAccelerator 是否配置了加速器
func (d Descriptor) HasAccelerator() bool {
	return d.Accelerator.IsAccelerator()
}

// String 输出后端信息
func (d Descriptor) String() string {
	return fmt.Sprintf("backend: accelerator=%s host-threads=%d compute-units=%d %s",
		d.Accelerator, d.Host.NumWorkers, d.Compute.NumWorkers, HostInfo())
}

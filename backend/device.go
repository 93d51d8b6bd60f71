// Package backend 计算后端描述
// 设备标签（主机、GPU、OpenCL、众核协处理器）与显式后端配置，
// 替代进程级的全局后端选择与日志状态。
package backend

import "fmt"

// Device 数据所在的物理设备
type Device uint8

const (
	Host   Device = iota // 主机内存
	GPU                  // GPU加速器
	OpenCL               // OpenCL设备
	MIC                  // 众核协处理器
)

// String 设备名称
func (d Device) String() string {
	names := [...]string{"host", "gpu", "opencl", "mic"}
	if int(d) < len(names) {
		return names[d]
	}
	return fmt.Sprintf("device(%d)", d)
}

// IsAccelerator 是否为加速器设备
func (d Device) IsAccelerator() bool {
	return d != Host && d <= MIC
}

// Valid 设备标签是否有效
func (d Device) Valid() bool {
	return d <= MIC
}

// Package local 算子/向量抽象层
// 设备无关的句柄持有一个具体的存储格式实例，负责格式转换与跨设备迁移。
package local

import (
	"github.com/costat/rocALUTION/backend"
	"github.com/costat/rocALUTION/utils"
	"github.com/google/uuid"
)

// Placement 设备放置信息，CloneBackend 只复制放置而不复制数值
type Placement interface {
	Device() backend.Device
	Descriptor() backend.Descriptor
}

// object 矩阵与向量的公共标识
type object struct {
	id   uuid.UUID
	name string
	desc backend.Descriptor
}

func newObject(desc backend.Descriptor, name string) object {
	return object{id: uuid.New(), name: name, desc: desc}
}

// ID 对象标识
func (o *object) ID() uuid.UUID { return o.id }

// Name 对象名称
func (o *object) Name() string { return o.name }

// SetName 修改名称
func (o *object) SetName(name string) { o.name = name }

// Descriptor 后端配置
func (o *object) Descriptor() backend.Descriptor { return o.desc }

// label 日志中的对象标识 name/id
func (o *object) label() string {
	return o.name + "/" + o.id.String()[:8]
}

// exec 指定设备上的并行配置
func (o *object) exec(dev backend.Device) utils.Parallel {
	return o.desc.Exec(dev)
}

// target MoveToAccelerator 的目标设备，无加速器时为主机
func (o *object) target() backend.Device {
	if o.desc.HasAccelerator() {
		return o.desc.Accelerator
	}
	return backend.Host
}

package local

import (
	"github.com/costat/rocALUTION/backend"
	"github.com/costat/rocALUTION/mat"
	"github.com/costat/rocALUTION/maths"
	"github.com/pkg/errors"
)

// Vector 设备无关的稠密向量句柄
// 代数运算要求两端设备与长度一致，违反属于编程错误（panic）。
type Vector[T maths.Number] struct {
	object
	vec *mat.Vector[T]
}

// NewVector 在主机上创建空向量
func NewVector[T maths.Number](desc backend.Descriptor, name string) *Vector[T] {
	return &Vector[T]{
		object: newObject(desc, name),
		vec:    mat.NewVector[T](0, backend.Host, desc.Host),
	}
}

// Allocate 在当前设备上分配长度 n 的零向量
func (v *Vector[T]) Allocate(n int) { v.vec.Allocate(n) }

// Clear 释放数据
func (v *Vector[T]) Clear() { v.vec.Clear() }

// Len 长度
func (v *Vector[T]) Len() int { return v.vec.Len() }

// Device 所在设备
func (v *Vector[T]) Device() backend.Device { return v.vec.Device() }

// Values 主机端原始数据
func (v *Vector[T]) Values() []T { return v.vec.Values() }

// Backend 底层存储
func (v *Vector[T]) Backend() *mat.Vector[T] { return v.vec }

// MoveToHost 迁移到主机
func (v *Vector[T]) MoveToHost() { v.moveTo(backend.Host) }

// MoveToAccelerator 迁移到配置的加速器，未配置时不做任何事
func (v *Vector[T]) MoveToAccelerator() { v.moveTo(v.target()) }

func (v *Vector[T]) moveTo(dev backend.Device) {
	if dev == v.Device() {
		return
	}
	v.desc.Log().Debug("move vector", "object", v.label(), "from", v.Device(), "to", dev)
	v.vec.MoveTo(dev, v.exec(dev))
}

// CloneBackend 复制 ref 的设备放置
func (v *Vector[T]) CloneBackend(ref Placement) {
	v.desc = ref.Descriptor()
	v.moveTo(ref.Device())
	v.vec.MoveTo(v.Device(), v.exec(v.Device()))
}

// CopyFrom 拷贝数值，src 可以位于任意设备
func (v *Vector[T]) CopyFrom(src *Vector[T]) error {
	if src.Len() != v.Len() {
		return errors.Wrapf(ErrDimensionMismatch, "%s: copy from %s (%d != %d)", v.label(), src.label(), v.Len(), src.Len())
	}
	v.vec.CopyFrom(src.vec)
	return nil
}

// CloneFrom 复制放置、长度与数值
func (v *Vector[T]) CloneFrom(src *Vector[T]) {
	v.CloneBackend(src)
	v.vec.Allocate(src.Len())
	v.vec.CopyFrom(src.vec)
}

// CopyFromData 从主机数组拷贝
func (v *Vector[T]) CopyFromData(data []T) error {
	if len(data) != v.Len() {
		return errors.Wrapf(ErrDimensionMismatch, "%s: copy from data (%d != %d)", v.label(), v.Len(), len(data))
	}
	v.vec.CopyFromData(data)
	return nil
}

// CopyToData 拷贝到主机数组
func (v *Vector[T]) CopyToData(data []T) error {
	if len(data) != v.Len() {
		return errors.Wrapf(ErrDimensionMismatch, "%s: copy to data (%d != %d)", v.label(), v.Len(), len(data))
	}
	v.vec.CopyToData(data)
	return nil
}

// Zeros 置零
func (v *Vector[T]) Zeros() { v.vec.Zeros() }

// Ones 置一
func (v *Vector[T]) Ones() { v.vec.Ones() }

// SetValues 全部置为 val
func (v *Vector[T]) SetValues(val T) { v.vec.SetValues(val) }

// Dot 内积，第一个参数取共轭
func (v *Vector[T]) Dot(x *Vector[T]) T { return v.vec.Dot(x.vec) }

// Norm 二范数
func (v *Vector[T]) Norm() float64 { return v.vec.Norm() }

// Asum 一范数
func (v *Vector[T]) Asum() float64 { return v.vec.Asum() }

// Amax 最大模元素
func (v *Vector[T]) Amax() (int, float64) { return v.vec.Amax() }

// AddScale v += alpha*x
func (v *Vector[T]) AddScale(x *Vector[T], alpha T) { v.vec.AddScale(x.vec, alpha) }

// ScaleAdd v = alpha*v + x
func (v *Vector[T]) ScaleAdd(alpha T, x *Vector[T]) { v.vec.ScaleAdd(alpha, x.vec) }

// ScaleAddScale v = alpha*v + beta*x
func (v *Vector[T]) ScaleAddScale(alpha T, x *Vector[T], beta T) {
	v.vec.ScaleAddScale(alpha, x.vec, beta)
}

// Scale v = alpha*v
func (v *Vector[T]) Scale(alpha T) { v.vec.Scale(alpha) }

// PointWiseMult v_i *= x_i
func (v *Vector[T]) PointWiseMult(x *Vector[T]) { v.vec.PointWiseMult(x.vec) }

// Gather v_k = src[idx_k]
func (v *Vector[T]) Gather(src *Vector[T], idx []int) { v.vec.Gather(src.vec, idx) }

// Scatter dst[idx_k] = v_k
func (v *Vector[T]) Scatter(dst *Vector[T], idx []int) { v.vec.Scatter(dst.vec, idx) }

// String 描述
func (v *Vector[T]) String() string {
	return v.label() + " " + v.vec.String()
}

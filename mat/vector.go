package mat

import (
	"fmt"
	"math"
	"strings"

	"github.com/costat/rocALUTION/backend"
	"github.com/costat/rocALUTION/maths"
	"github.com/costat/rocALUTION/utils"
	"gonum.org/v1/gonum/floats"
)

// Vector 设备驻留的稠密向量
// 内核只在自身设备上执行，二元运算要求两端设备与长度一致。
type Vector[T maths.Number] struct {
	dev  backend.Device
	par  utils.Parallel
	data []T
}

// NewVector 在指定设备上创建长度为 n 的零向量
func NewVector[T maths.Number](n int, dev backend.Device, par utils.Parallel) *Vector[T] {
	return &Vector[T]{dev: dev, par: par, data: make([]T, n)}
}

// Len 向量长度
func (v *Vector[T]) Len() int { return len(v.data) }

// Device 所在设备
func (v *Vector[T]) Device() backend.Device { return v.dev }

// Parallel 内核并行配置
func (v *Vector[T]) Parallel() utils.Parallel { return v.par }

// Allocate 重新分配为长度 n 的零向量
func (v *Vector[T]) Allocate(n int) {
	if cap(v.data) >= n {
		v.data = v.data[:n]
		clear(v.data)
		return
	}
	v.data = make([]T, n)
}

// Clear 释放数据
func (v *Vector[T]) Clear() { v.data = nil }

// Values 主机端原始数据（只在主机上可直接访问）
func (v *Vector[T]) Values() []T {
	if v.dev != backend.Host {
		panic(fmt.Sprintf("vector: direct access on %s", v.dev))
	}
	return v.data
}

// CopyFromData 从主机数组拷贝（设备拷贝）
func (v *Vector[T]) CopyFromData(src []T) {
	if len(src) != len(v.data) {
		panic("vector dimension mismatch")
	}
	copy(v.data, src)
}

// CopyToData 拷贝到主机数组（设备拷贝）
func (v *Vector[T]) CopyToData(dst []T) {
	if len(dst) != len(v.data) {
		panic("vector dimension mismatch")
	}
	copy(dst, v.data)
}

// CopyFrom 从任意设备上的同长度向量拷贝数据
func (v *Vector[T]) CopyFrom(src *Vector[T]) {
	if src.Len() != v.Len() {
		panic("vector dimension mismatch")
	}
	copy(v.data, src.data)
}

// MoveTo 迁移到其他设备，数据保持不变
func (v *Vector[T]) MoveTo(dev backend.Device, par utils.Parallel) {
	if dev == v.dev {
		v.par = par
		return
	}
	moved := make([]T, len(v.data))
	copy(moved, v.data)
	v.dev, v.par, v.data = dev, par, moved
}

// check 二元运算前置条件
func (v *Vector[T]) check(x *Vector[T]) {
	if x.Len() != v.Len() {
		panic(fmt.Sprintf("vector dimension mismatch %d != %d", v.Len(), x.Len()))
	}
	if x.dev != v.dev {
		panic(fmt.Sprintf("vector device mismatch %s != %s", v.dev, x.dev))
	}
}

// Zeros 置零
func (v *Vector[T]) Zeros() {
	v.par.ForRange(len(v.data), func(s, e int) { clear(v.data[s:e]) })
}

// Ones 全部置一
func (v *Vector[T]) Ones() { v.SetValues(maths.FromFloat[T](1)) }

// SetValues 全部置为 val
func (v *Vector[T]) SetValues(val T) {
	v.par.ForRange(len(v.data), func(s, e int) {
		for i := s; i < e; i++ {
			v.data[i] = val
		}
	})
}

// Dot 内积 Σ conj(v_i)·x_i
func (v *Vector[T]) Dot(x *Vector[T]) T {
	v.check(x)
	if a, ok := any(v.data).([]float64); ok {
		b := any(x.data).([]float64)
		res := utils.Reduce(v.par, len(a), func(s, e int) float64 {
			return floats.Dot(a[s:e], b[s:e])
		}, func(p, q float64) float64 { return p + q })
		return any(res).(T)
	}
	return utils.Reduce(v.par, len(v.data), func(s, e int) T {
		var acc T
		for i := s; i < e; i++ {
			acc += maths.Conj(v.data[i]) * x.data[i]
		}
		return acc
	}, func(p, q T) T { return p + q })
}

// Norm 二范数
func (v *Vector[T]) Norm() float64 {
	if a, ok := any(v.data).([]float64); ok {
		sq := utils.Reduce(v.par, len(a), func(s, e int) float64 {
			n := floats.Norm(a[s:e], 2)
			return n * n
		}, func(p, q float64) float64 { return p + q })
		return math.Sqrt(sq)
	}
	sq := utils.Reduce(v.par, len(v.data), func(s, e int) float64 {
		acc := 0.0
		for i := s; i < e; i++ {
			a := maths.Abs(v.data[i])
			acc += a * a
		}
		return acc
	}, func(p, q float64) float64 { return p + q })
	return math.Sqrt(sq)
}

// Asum 一范数
func (v *Vector[T]) Asum() float64 {
	return utils.Reduce(v.par, len(v.data), func(s, e int) float64 {
		if a, ok := any(v.data).([]float64); ok {
			return floats.Norm(a[s:e], 1)
		}
		acc := 0.0
		for i := s; i < e; i++ {
			acc += maths.Abs(v.data[i])
		}
		return acc
	}, func(p, q float64) float64 { return p + q })
}

// Amax 最大模元素的下标和模，空向量返回 (-1, 0)
func (v *Vector[T]) Amax() (int, float64) {
	type best struct {
		idx int
		val float64
	}
	r := utils.Reduce(v.par, len(v.data), func(s, e int) best {
		b := best{idx: -1}
		for i := s; i < e; i++ {
			if a := maths.Abs(v.data[i]); b.idx < 0 || a > b.val {
				b = best{i, a}
			}
		}
		return b
	}, func(p, q best) best {
		if p.idx < 0 || q.val > p.val {
			return q
		}
		return p
	})
	if len(v.data) == 0 {
		return -1, 0
	}
	return r.idx, r.val
}

// AddScale v = v + alpha*x
func (v *Vector[T]) AddScale(x *Vector[T], alpha T) {
	v.check(x)
	if a, ok := any(v.data).([]float64); ok {
		b, s := any(x.data).([]float64), any(alpha).(float64)
		v.par.ForRange(len(a), func(lo, hi int) { floats.AddScaled(a[lo:hi], s, b[lo:hi]) })
		return
	}
	v.par.ForRange(len(v.data), func(s, e int) {
		for i := s; i < e; i++ {
			v.data[i] += alpha * x.data[i]
		}
	})
}

// ScaleAdd v = alpha*v + x
func (v *Vector[T]) ScaleAdd(alpha T, x *Vector[T]) {
	v.check(x)
	v.par.ForRange(len(v.data), func(s, e int) {
		for i := s; i < e; i++ {
			v.data[i] = alpha*v.data[i] + x.data[i]
		}
	})
}

// ScaleAddScale v = alpha*v + beta*x
func (v *Vector[T]) ScaleAddScale(alpha T, x *Vector[T], beta T) {
	v.check(x)
	v.par.ForRange(len(v.data), func(s, e int) {
		for i := s; i < e; i++ {
			v.data[i] = alpha*v.data[i] + beta*x.data[i]
		}
	})
}

// Scale v = alpha*v
func (v *Vector[T]) Scale(alpha T) {
	if a, ok := any(v.data).([]float64); ok {
		s := any(alpha).(float64)
		v.par.ForRange(len(a), func(lo, hi int) { floats.Scale(s, a[lo:hi]) })
		return
	}
	v.par.ForRange(len(v.data), func(s, e int) {
		for i := s; i < e; i++ {
			v.data[i] *= alpha
		}
	})
}

// PointWiseMult v_i = v_i * x_i
func (v *Vector[T]) PointWiseMult(x *Vector[T]) {
	v.check(x)
	v.par.ForRange(len(v.data), func(s, e int) {
		for i := s; i < e; i++ {
			v.data[i] *= x.data[i]
		}
	})
}

// Gather v_k = src[idx_k]
func (v *Vector[T]) Gather(src *Vector[T], idx []int) {
	if len(idx) != v.Len() || src.dev != v.dev {
		panic("vector gather: mismatch")
	}
	v.par.For(len(idx), func(k int) { v.data[k] = src.data[idx[k]] })
}

// Scatter dst[idx_k] = v_k
func (v *Vector[T]) Scatter(dst *Vector[T], idx []int) {
	if len(idx) != v.Len() || dst.dev != v.dev {
		panic("vector scatter: mismatch")
	}
	v.par.For(len(idx), func(k int) { dst.data[idx[k]] = v.data[k] })
}

// String 字符串表示
func (v *Vector[T]) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "vector[%d]@%s", len(v.data), v.dev)
	if len(v.data) <= 16 {
		for _, x := range v.data {
			fmt.Fprintf(&sb, " %v", x)
		}
	}
	return sb.String()
}

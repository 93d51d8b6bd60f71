package maths

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// AtomicAdd 原子累加 *addr += v
// 实数使用位模式CAS，复数对实部和虚部分别原子累加（分量各自原子，整体非原子）。
func AtomicAdd[T Number](addr *T, v T) {
	switch x := any(v).(type) {
	case float32:
		atomicAddFloat32((*float32)(unsafe.Pointer(addr)), x)
	case float64:
		atomicAddFloat64((*float64)(unsafe.Pointer(addr)), x)
	case complex64:
		parts := (*[2]float32)(unsafe.Pointer(addr))
		atomicAddFloat32(&parts[0], real(x))
		atomicAddFloat32(&parts[1], imag(x))
	case complex128:
		parts := (*[2]float64)(unsafe.Pointer(addr))
		atomicAddFloat64(&parts[0], real(x))
		atomicAddFloat64(&parts[1], imag(x))
	default:
		panic("unsupported scalar type")
	}
}

func atomicAddFloat64(addr *float64, v float64) {
	bits := (*uint64)(unsafe.Pointer(addr))
	for {
		old := atomic.LoadUint64(bits)
		next := math.Float64bits(math.Float64frombits(old) + v)
		if atomic.CompareAndSwapUint64(bits, old, next) {
			return
		}
	}
}

func atomicAddFloat32(addr *float32, v float32) {
	bits := (*uint32)(unsafe.Pointer(addr))
	for {
		old := atomic.LoadUint32(bits)
		next := math.Float32bits(math.Float32frombits(old) + v)
		if atomic.CompareAndSwapUint32(bits, old, next) {
			return
		}
	}
}

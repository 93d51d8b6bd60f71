package utils

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestBitmap 位图基本操作
func TestBitmap(t *testing.T) {
	b := NewBitmap(130)
	assert.Equal(t, 130, b.Size())
	assert.Equal(t, 0, b.FirstClear())
	for i := 0; i < 70; i++ {
		b.Set(i, true)
	}
	assert.True(t, b.Get(69))
	assert.False(t, b.Get(70))
	assert.Equal(t, 70, b.FirstClear())
	assert.Equal(t, 70, b.FlagCount(true))
	assert.Equal(t, 60, b.FlagCount(false))
	b.Set(200, true) // 越界忽略
	b.Set(3, false)
	assert.Equal(t, 3, b.FirstClear())
	b.Reset()
	assert.Equal(t, 0, b.FlagCount(true))

	full := NewBitmap(2)
	full.Set(0, true)
	full.Set(1, true)
	assert.Equal(t, -1, full.FirstClear())
}

// TestParallelFor 并行循环覆盖全部下标且只执行一次
func TestParallelFor(t *testing.T) {
	for _, p := range []Parallel{Serial(), DefaultParallel(), {Enabled: true, NumWorkers: 7, MinChunkSize: 3}} {
		const n = 1000
		hits := make([]int32, n)
		p.For(n, func(i int) { atomic.AddInt32(&hits[i], 1) })
		for i := range hits {
			assert.Equal(t, int32(1), hits[i])
		}
	}
}

// TestReduce 归约结果与串行一致
func TestReduce(t *testing.T) {
	p := Parallel{Enabled: true, NumWorkers: 4, MinChunkSize: 10}
	sum := Reduce(p, 1000, func(s, e int) int {
		acc := 0
		for i := s; i < e; i++ {
			acc += i
		}
		return acc
	}, func(a, b int) int { return a + b })
	assert.Equal(t, 999*1000/2, sum)
	assert.Equal(t, 0, Reduce(p, 0, func(s, e int) int { return 1 }, func(a, b int) int { return a + b }))
}

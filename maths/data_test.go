package maths

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestPrimitives 测试逐元素基元
func TestPrimitives(t *testing.T) {
	assert.Equal(t, 3.0, Abs(float32(-3)))
	assert.Equal(t, 5.0, Abs(complex(3.0, 4.0)))
	assert.Equal(t, complex64(1-2i), Conj(complex64(1+2i)))
	assert.Equal(t, -4.0, Conj(-4.0))
	assert.Equal(t, 2.0, RealPart(complex128(2+7i)))
	assert.Equal(t, 7.0, ImagPart(complex128(2+7i)))
	assert.Equal(t, 0.0, ImagPart(float32(1)))
	assert.Equal(t, complex64(2), FromFloat[complex64](2))
	assert.Equal(t, float32(1.5), Cast[float64, float32](1.5))
	assert.Equal(t, 3.0, Cast[complex128, float64](3+9i))
	assert.Equal(t, 4.0, Sqrt(16.0))
	assert.InDelta(t, 0, Abs(Sqrt(complex128(-4))-2i), 1e-15)
	assert.InDelta(t, 8.0, Pow(2.0, 3), 1e-15)
	assert.InDelta(t, 0, Abs(Pow(complex128(1i), 2)+1), 1e-12)
	assert.True(t, IsZero(complex64(0)))
	assert.False(t, IsFinite(math.Inf(1)))
	assert.True(t, IsFinite(complex64(1+1i)))
	assert.Equal(t, KindComplex64, KindOf[complex64]())
	assert.True(t, KindOf[complex128]().IsComplex())
	assert.Equal(t, "float32", KindOf[float32]().String())
	assert.Greater(t, MachineEpsilon[float32](), MachineEpsilon[float64]())
}

// TestAtomicAdd 并发原子累加
func TestAtomicAdd(t *testing.T) {
	const workers, rounds = 8, 1000
	var f64 float64
	var f32 float32
	var c128 complex128
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				AtomicAdd(&f64, 1)
				AtomicAdd(&f32, 1)
				AtomicAdd(&c128, 1+2i)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, float64(workers*rounds), f64)
	assert.Equal(t, float32(workers*rounds), f32)
	assert.Equal(t, complex(float64(workers*rounds), float64(2*workers*rounds)), c128)
}

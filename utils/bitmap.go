package utils

import "math/bits"

// Bitmap 位图标记实现
// @ 通过位图标记实现对点集状态的管理（着色、粗细点划分）
type Bitmap interface {
	Set(bit int, flag bool)  // 设置标记
	Get(bit int) (flag bool) // 获取标记
	Size() int               // 位图大小
	FlagCount(flag bool) int // 标记数量
	Reset()                  // 清空全部标记
	FirstClear() int         // 第一个未标记位，全部已标记返回-1
}

// bitmapImpl 实现Bitmap接口
type bitmapImpl struct {
	bits   []uint64
	length int
}

// NewBitmap 创建新的位图实例
func NewBitmap(size int) Bitmap {
	bitCount := (size + 63) / 64 // 计算需要的uint64数量
	return &bitmapImpl{
		bits:   make([]uint64, bitCount),
		length: size,
	}
}

func (b *bitmapImpl) Set(bit int, flag bool) {
	if bit < 0 || bit >= b.length {
		return
	}
	index := bit / 64
	offset := uint(bit % 64)
	if flag {
		b.bits[index] |= (1 << offset)
	} else {
		b.bits[index] &^= (1 << offset)
	}
}

func (b *bitmapImpl) Get(bit int) bool {
	if bit < 0 || bit >= b.length {
		return false
	}
	index := bit / 64
	offset := uint(bit % 64)
	return (b.bits[index] & (1 << offset)) != 0
}

func (b *bitmapImpl) Size() int {
	return b.length
}

func (b *bitmapImpl) FlagCount(flag bool) int {
	count := 0
	for _, w := range b.bits {
		count += bits.OnesCount64(w)
	}
	if flag {
		return count
	}
	return b.length - count
}

func (b *bitmapImpl) Reset() {
	clear(b.bits)
}

func (b *bitmapImpl) FirstClear() int {
	for i, w := range b.bits {
		if w == ^uint64(0) {
			continue
		}
		bit := i*64 + bits.TrailingZeros64(^w)
		if bit < b.length {
			return bit
		}
		return -1
	}
	return -1
}

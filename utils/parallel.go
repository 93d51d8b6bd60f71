package utils

import (
	"runtime"
	"sync"
)

// Parallel 控制数据并行循环
type Parallel struct {
	Enabled      bool // 是否启用并行
	NumWorkers   int  // 工作协程数量
	MinChunkSize int  // 每个协程最少处理的元素数量
}

// DefaultParallel 按CPU数量给出默认并行配置
func DefaultParallel() Parallel {
	n := runtime.NumCPU()
	return Parallel{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 256,
	}
}

// Serial 串行配置
func Serial() Parallel {
	return Parallel{NumWorkers: 1, MinChunkSize: 1}
}

// For 对 [0, n) 执行 f(i)，规模过小或未启用并行时退化为串行
func (p Parallel) For(n int, f func(i int)) {
	p.ForRange(n, func(start, end int) {
		for i := start; i < end; i++ {
			f(i)
		}
	})
}

// ForRange 将 [0, n) 切分为连续区间并行执行 f(start, end)
// 返回时所有区间均已完成（同步阻塞）
func (p Parallel) ForRange(n int, f func(start, end int)) {
	if n <= 0 {
		return
	}
	workers := max(p.NumWorkers, 1)
	if !p.Enabled || workers == 1 || n < 2*max(p.MinChunkSize, 1) {
		f(0, n)
		return
	}
	chunkSize := max((n+workers-1)/workers, p.MinChunkSize)
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			f(s, e)
		}(start, end)
	}
	wg.Wait()
}

// Reduce 分块并行归约：每块调用 partial 得到部分结果，最后按块顺序用 merge 合并
// 块顺序固定，结果与协程调度无关
func Reduce[R any](p Parallel, n int, partial func(start, end int) R, merge func(a, b R) R) R {
	var zero R
	if n <= 0 {
		return zero
	}
	workers := max(p.NumWorkers, 1)
	if !p.Enabled || workers == 1 || n < 2*max(p.MinChunkSize, 1) {
		return partial(0, n)
	}
	chunkSize := max((n+workers-1)/workers, p.MinChunkSize)
	chunks := (n + chunkSize - 1) / chunkSize
	results := make([]R, chunks)
	var wg sync.WaitGroup
	for c := 0; c < chunks; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			start := c * chunkSize
			results[c] = partial(start, min(start+chunkSize, n))
		}(c)
	}
	wg.Wait()
	acc := results[0]
	for _, r := range results[1:] {
		acc = merge(acc, r)
	}
	return acc
}

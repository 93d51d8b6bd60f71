package mat

import (
	"container/heap"

	"github.com/costat/rocALUTION/maths"
)

// 点分类
const (
	rsUndecided = iota
	rsCoarse
	rsFine
)

// rsItem 候选粗点
type rsItem struct {
	lambda, idx int
}

// rsHeap 按影响度最大优先、下标最小优先的堆，过期条目在弹出时跳过
type rsHeap []rsItem

func (h rsHeap) Len() int { return len(h) }
func (h rsHeap) Less(i, j int) bool {
	if h[i].lambda != h[j].lambda {
		return h[i].lambda > h[j].lambda
	}
	return h[i].idx < h[j].idx
}
func (h rsHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *rsHeap) Push(x any)   { *h = append(*h, x.(rsItem)) }
func (h *rsHeap) Pop() any {
	old := *h
	it := old[len(old)-1]
	*h = old[:len(old)-1]
	return it
}

// strength 强连接图 S：j∈S_i 当且仅当 -Re(a_ij) >= eps*max_k(-Re(a_ik)) 且 -Re(a_ij) > 0
// 以布尔数组与 colInd 对齐返回
func (m *CSRMatrix[T]) strength(eps float64) []bool {
	strong := make([]bool, len(m.colInd))
	m.par.For(m.rows, func(i int) {
		amax := 0.0
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			if m.colInd[k] != i {
				amax = max(amax, -maths.RealPart(m.val[k]))
			}
		}
		if amax <= 0 {
			return
		}
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			if v := -maths.RealPart(m.val[k]); m.colInd[k] != i && v > 0 && v >= eps*amax {
				strong[k] = true
			}
		}
	})
	return strong
}

// RugeStueben 经典 Ruge-Stüben 粗化与直接插值（仅主机方阵）
// prolong 得到 n×nc 的插值算子，restrict 为其转置，返回粗点数量 nc
func (m *CSRMatrix[T]) RugeStueben(eps float64, prolong, restrict *CSRMatrix[T]) int {
	if !m.onHost() || m.rows != m.cols {
		panic("csr ruge-stueben: requires a square host matrix")
	}
	n := m.rows
	strong := m.strength(eps)

	// S^T：点 i 强影响的点集合
	stPtr := make([]int, n+1)
	for k, s := range strong {
		if s {
			stPtr[m.colInd[k]+1]++
		}
	}
	for i := 0; i < n; i++ {
		stPtr[i+1] += stPtr[i]
	}
	stInd := make([]int, stPtr[n])
	next := append([]int(nil), stPtr[:n]...)
	for i := 0; i < n; i++ {
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			if strong[k] {
				j := m.colInd[k]
				stInd[next[j]] = i
				next[j]++
			}
		}
	}

	state := make([]int, n)
	lambda := make([]int, n)
	h := make(rsHeap, 0, n)
	for i := 0; i < n; i++ {
		lambda[i] = stPtr[i+1] - stPtr[i]
		nS := 0
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			if strong[k] {
				nS++
			}
		}
		if lambda[i] == 0 && nS == 0 {
			state[i] = rsFine
			continue
		}
		h = append(h, rsItem{lambda[i], i})
	}
	heap.Init(&h)

	// 第一遍：贪心选择粗点
	for h.Len() > 0 {
		it := heap.Pop(&h).(rsItem)
		i := it.idx
		if state[i] != rsUndecided || it.lambda != lambda[i] {
			continue
		}
		state[i] = rsCoarse
		for _, j := range stInd[stPtr[i]:stPtr[i+1]] {
			if state[j] != rsUndecided {
				continue
			}
			state[j] = rsFine
			for k := m.rowPtr[j]; k < m.rowPtr[j+1]; k++ {
				if l := m.colInd[k]; strong[k] && state[l] == rsUndecided {
					lambda[l]++
					heap.Push(&h, rsItem{lambda[l], l})
				}
			}
		}
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			if j := m.colInd[k]; strong[k] && state[j] == rsUndecided {
				lambda[j]--
				heap.Push(&h, rsItem{lambda[j], j})
			}
		}
	}

	// 第二遍：强耦合的细点对必须共享一个粗点
	mark := make([]int, n)
	for i := range mark {
		mark[i] = -1
	}
	for i := 0; i < n; i++ {
		if state[i] != rsFine {
			continue
		}
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			if c := m.colInd[k]; strong[k] && state[c] == rsCoarse {
				mark[c] = i
			}
		}
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			j := m.colInd[k]
			if !strong[k] || state[j] != rsFine {
				continue
			}
			shared := false
			for kk := m.rowPtr[j]; kk < m.rowPtr[j+1]; kk++ {
				if strong[kk] && mark[m.colInd[kk]] == i {
					shared = true
					break
				}
			}
			if !shared {
				state[j] = rsCoarse
				mark[j] = i
			}
		}
	}

	coarse := make([]int, n)
	nc := 0
	for i := 0; i < n; i++ {
		coarse[i] = -1
		if state[i] == rsCoarse {
			coarse[i] = nc
			nc++
		}
	}

	m.directInterpolation(strong, state, coarse, nc, prolong)
	prolong.Transpose(restrict)
	return nc
}

// directInterpolation 直接插值，正负元素分别按比例分配
// 没有正粗邻点时正元素之和并入对角
func (m *CSRMatrix[T]) directInterpolation(strong []bool, state, coarse []int, nc int, p *CSRMatrix[T]) {
	n := m.rows
	rowPtr := make([]int, n+1)
	for i := 0; i < n; i++ {
		switch state[i] {
		case rsCoarse:
			rowPtr[i+1] = 1
		default:
			for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
				if interpolates(m, strong, state, i, k) {
					rowPtr[i+1]++
				}
			}
		}
	}
	for i := 0; i < n; i++ {
		rowPtr[i+1] += rowPtr[i]
	}
	colInd := make([]int, rowPtr[n])
	val := make([]T, rowPtr[n])
	one := maths.FromFloat[T](1)

	m.par.For(n, func(i int) {
		q := rowPtr[i]
		if state[i] == rsCoarse {
			colInd[q], val[q] = coarse[i], one
			return
		}
		var diag, sumNeg, sumPos, negC, posC T
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			j, a := m.colInd[k], m.val[k]
			if j == i {
				diag += a
				continue
			}
			neg := maths.RealPart(a) < 0
			if neg {
				sumNeg += a
			} else {
				sumPos += a
			}
			if !interpolates(m, strong, state, i, k) {
				continue
			}
			if neg {
				negC += a
			} else {
				posC += a
			}
		}
		var alpha, beta T
		if !maths.IsZero(negC) {
			alpha = sumNeg / negC
		}
		if maths.IsZero(posC) {
			diag += sumPos
		} else {
			beta = sumPos / posC
		}
		if maths.IsZero(diag) {
			diag = one
		}
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			if !interpolates(m, strong, state, i, k) {
				continue
			}
			a := m.val[k]
			w := beta
			if maths.RealPart(a) < 0 {
				w = alpha
			}
			colInd[q] = coarse[m.colInd[k]]
			val[q] = -w * a / diag
			q++
		}
	})
	p.SetData(n, nc, rowPtr, colInd, val)
}

// interpolates 细点 i 的第 k 个元素是否参与插值
// 负元素取强连接粗点，正元素取任意粗点
func interpolates[T maths.Number](m *CSRMatrix[T], strong []bool, state []int, i, k int) bool {
	j := m.colInd[k]
	if j == i || state[j] != rsCoarse {
		return false
	}
	if maths.RealPart(m.val[k]) < 0 {
		return strong[k]
	}
	return true
}

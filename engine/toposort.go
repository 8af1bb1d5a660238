package engine

import "container/heap"

// kahnSort orders nodes 0..n-1 so every edge from -> to keeps from first
// Ties break on the lower index, making the order a pure function of registration order
// Returns the sorted order and, on a cycle, the nodes left unsorted
func kahnSort(n int, edges [][]int) (order []int, stuck []int) {
	inDegree := make([]int, n)
	for _, outs := range edges {
		for _, to := range outs {
			inDegree[to]++
		}
	}

	ready := &intHeap{}
	for i := 0; i < n; i++ {
		if inDegree[i] == 0 {
			heap.Push(ready, i)
		}
	}

	order = make([]int, 0, n)
	for ready.Len() > 0 {
		node := heap.Pop(ready).(int)
		order = append(order, node)
		for _, to := range edges[node] {
			inDegree[to]--
			if inDegree[to] == 0 {
				heap.Push(ready, to)
			}
		}
	}

	if len(order) != n {
		for i := 0; i < n; i++ {
			if inDegree[i] > 0 {
				stuck = append(stuck, i)
			}
		}
	}
	return order, stuck
}

type intHeap []int

func (h intHeap) Len() int           { return len(h) }
func (h intHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}

package tokenizer

import "container/heap"

// mergeCand is a pending merge of the pair starting at slot pos.
type mergeCand struct {
	rank  int   // lower wins
	pos   int32 // left slot; lower wins on tie to enforce leftmost
	left  int32
	right int32
	verL  uint32
	verR  uint32
}

type mergeQueue []mergeCand

func (h mergeQueue) Len() int { return len(h) }
func (h mergeQueue) Less(i, j int) bool {
	if h[i].rank != h[j].rank {
		return h[i].rank < h[j].rank
	}
	return h[i].pos < h[j].pos
}
func (h mergeQueue) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *mergeQueue) Push(x any)   { *h = append(*h, x.(mergeCand)) }
func (h *mergeQueue) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

var _ heap.Interface = (*mergeQueue)(nil)

// scratch holds the per-call buffers of an encode; pooled per tokenizer.
type scratch struct {
	syms  []int32
	prev  []int32
	next  []int32
	live  []uint32
	queue mergeQueue
}

func (sc *scratch) prepare(n int) {
	sc.syms = ensureCap(sc.syms, n)
	sc.prev = ensureCap(sc.prev, n)
	sc.next = ensureCap(sc.next, n)
	if cap(sc.live) < n {
		sc.live = make([]uint32, n)
	}
	sc.live = sc.live[:n]
	clear(sc.live)
	sc.queue = sc.queue[:0]
}

func ensureCap(buf []int32, n int) []int32 {
	if cap(buf) < n {
		return make([]int32, n)
	}
	return buf[:n]
}

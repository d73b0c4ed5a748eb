package stats

import (
	"container/heap"

	"github.com/born-ml/bpe/internal/vocab"
)

type candidate struct {
	pair  vocab.Pair
	count int64
}

// countHeap is a max-heap on count; ties go to the smallest pair so
// selection never depends on map iteration order.
type countHeap []candidate

func (h countHeap) Len() int { return len(h) }
func (h countHeap) Less(i, j int) bool {
	if h[i].count != h[j].count {
		return h[i].count > h[j].count
	}
	return h[i].pair.Less(h[j].pair)
}
func (h countHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *countHeap) Push(x any)   { *h = append(*h, x.(candidate)) }
func (h *countHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

var _ heap.Interface = (*countHeap)(nil)

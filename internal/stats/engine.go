package stats

import (
	"container/heap"
	"context"
	"fmt"
	"slices"

	"github.com/born-ml/bpe/internal/parallel"
	"github.com/born-ml/bpe/internal/vocab"
)

// occNode is one entry of a pair's occurrence list.
type occNode struct {
	pos  int32 // left slot of the occurrence
	next int32 // next node in the list, noSlot at the tail
}

type pairStat struct {
	count int64
	head  int32
	tail  int32
}

// Engine tracks adjacent pair counts over a Corpus and applies merges
// incrementally. It is not safe for concurrent use.
type Engine struct {
	corpus  *Corpus
	version uint64
	stats   map[vocab.Pair]*pairStat
	arena   []occNode
	free    int32
	queue   countHeap
	touched map[vocab.Pair]struct{}
}

// partial is the per-chunk result of the initial scan.
type partial struct {
	order []vocab.Pair
	pairs map[vocab.Pair]*partialStat
}

type partialStat struct {
	count     int64
	positions []int32
}

// ComputeInitial scans every adjacent pair of every sequence once. The scan
// is split across sequence chunks and reduced in chunk order, which keeps
// each pair's occurrence list in ascending slot order.
func ComputeInitial(ctx context.Context, c *Corpus, cfg parallel.Config) (*Engine, error) {
	chunks := parallel.Chunks(c.NumSequences(), cfg)
	partials := make([]partial, len(chunks))

	err := parallel.ForChunks(ctx, c.NumSequences(), func(ctx context.Context, idx int, r parallel.Range) error {
		p := partial{pairs: make(map[vocab.Pair]*partialStat)}
		for seq := r.Start; seq < r.End; seq++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			w := c.weights[seq]
			for s := c.starts[seq]; s != noSlot && c.next[s] != noSlot; s = c.next[s] {
				key := vocab.Pair{Left: c.syms[s], Right: c.syms[c.next[s]]}
				ps, ok := p.pairs[key]
				if !ok {
					ps = &partialStat{}
					p.pairs[key] = ps
					p.order = append(p.order, key)
				}
				ps.count += w
				ps.positions = append(ps.positions, s)
			}
		}
		partials[idx] = p
		return nil
	}, cfg)
	if err != nil {
		return nil, fmt.Errorf("initial pair count: %w", err)
	}

	e := &Engine{
		corpus:  c,
		version: c.version,
		stats:   make(map[vocab.Pair]*pairStat),
		free:    noSlot,
		touched: make(map[vocab.Pair]struct{}),
	}
	for _, p := range partials {
		for _, key := range p.order {
			ps := p.pairs[key]
			st := e.stat(key)
			st.count += ps.count
			for _, pos := range ps.positions {
				e.push(st, pos)
			}
		}
	}

	e.queue = make(countHeap, 0, len(e.stats))
	for key, st := range e.stats {
		e.queue = append(e.queue, candidate{pair: key, count: st.count})
	}
	heap.Init(&e.queue)

	return e, nil
}

// Corpus returns the corpus the engine owns.
func (e *Engine) Corpus() *Corpus {
	return e.corpus
}

// Count returns the weighted occurrence count of a pair.
func (e *Engine) Count(p vocab.Pair) int64 {
	if st, ok := e.stats[p]; ok {
		return st.count
	}
	return 0
}

// Pairs returns a snapshot of every pair with a positive count.
func (e *Engine) Pairs() map[vocab.Pair]int64 {
	out := make(map[vocab.Pair]int64, len(e.stats))
	for p, st := range e.stats {
		if st.count > 0 {
			out[p] = st.count
		}
	}
	return out
}

// Best returns the pair with the highest count, ties broken by the smallest
// (Left, Right). It reports false when no pair reaches minFreq.
// Best does not change the statistics; calling it twice returns the same pair.
func (e *Engine) Best(minFreq int64) (vocab.Pair, int64, bool) {
	minFreq = max(minFreq, 1)
	for e.queue.Len() > 0 {
		top := e.queue[0]
		if top.count != e.Count(top.pair) {
			heap.Pop(&e.queue) // stale; a fresh entry was pushed when the count changed
			continue
		}
		if top.count < minFreq {
			return vocab.Pair{}, 0, false
		}
		return top.pair, top.count, true
	}
	return vocab.Pair{}, 0, false
}

// ApplyMerge rewrites every non-overlapping occurrence of rule's pair, left
// to right, into rule.Result and updates the counts of the neighbouring
// pairs. It returns the number of (unweighted) occurrences merged.
//
//nolint:gocognit // The neighbour bookkeeping is inherently branchy.
func (e *Engine) ApplyMerge(rule vocab.MergeRule) (int, error) {
	c := e.corpus
	if c.version != e.version {
		return 0, ErrStaleCorpus
	}

	key := rule.Pair()
	st, ok := e.stats[key]
	if !ok {
		return 0, nil
	}

	positions := e.drain(st)
	delete(e.stats, key)
	slices.Sort(positions)
	positions = slices.Compact(positions)

	a, b, merged := rule.Left, rule.Right, rule.Result
	n := 0
	for _, i := range positions {
		if c.syms[i] != a {
			continue
		}
		j := c.next[i]
		if j == noSlot || c.syms[j] != b {
			continue
		}

		w := c.weightAt(i)
		p := c.prev[i]
		nx := c.next[j]

		if p != noSlot {
			e.add(vocab.Pair{Left: c.syms[p], Right: a}, -w, noSlot)
			e.add(vocab.Pair{Left: c.syms[p], Right: merged}, w, p)
		}
		if nx != noSlot {
			e.add(vocab.Pair{Left: b, Right: c.syms[nx]}, -w, noSlot)
			e.add(vocab.Pair{Left: merged, Right: c.syms[nx]}, w, i)
		}

		c.syms[i] = merged
		c.syms[j] = deadSlot
		c.next[i] = nx
		if nx != noSlot {
			c.prev[nx] = i
		}
		c.prev[j], c.next[j] = noSlot, noSlot
		c.live--
		n++
	}

	// The merged pair itself may have been re-added by an overlapping
	// neighbour update (e.g. "aaa"); its occurrences are all consumed now.
	if st, ok := e.stats[key]; ok {
		e.drain(st)
		delete(e.stats, key)
	}
	delete(e.touched, key)

	for p := range e.touched {
		if cnt := e.Count(p); cnt > 0 {
			heap.Push(&e.queue, candidate{pair: p, count: cnt})
		}
	}
	clear(e.touched)

	if n > 0 {
		c.version++
		e.version = c.version
	}
	return n, nil
}

// add changes a pair's count by delta and, when pos is a slot, records a new
// occurrence at pos.
func (e *Engine) add(p vocab.Pair, delta int64, pos int32) {
	st := e.stat(p)
	st.count += delta
	if pos != noSlot {
		e.push(st, pos)
	}
	e.touched[p] = struct{}{}
}

func (e *Engine) stat(p vocab.Pair) *pairStat {
	st, ok := e.stats[p]
	if !ok {
		st = &pairStat{head: noSlot, tail: noSlot}
		e.stats[p] = st
	}
	return st
}

// push appends pos to the pair's occurrence list, reusing a freed node when
// one is available.
func (e *Engine) push(st *pairStat, pos int32) {
	var idx int32
	if e.free != noSlot {
		idx = e.free
		e.free = e.arena[idx].next
		e.arena[idx] = occNode{pos: pos, next: noSlot}
	} else {
		idx = int32(len(e.arena)) //nolint:gosec // G115: arena size tracks corpus size.
		e.arena = append(e.arena, occNode{pos: pos, next: noSlot})
	}

	if st.tail == noSlot {
		st.head = idx
	} else {
		e.arena[st.tail].next = idx
	}
	st.tail = idx
}

// drain returns every recorded position of a list and releases its nodes.
func (e *Engine) drain(st *pairStat) []int32 {
	var out []int32
	for idx := st.head; idx != noSlot; {
		node := e.arena[idx]
		out = append(out, node.pos)
		e.arena[idx].next = e.free
		e.free = idx
		idx = node.next
	}
	st.head, st.tail = noSlot, noSlot
	return out
}

// CountPairs counts adjacent pairs of plain sequences with a full scan.
// It is the reference the incremental engine must agree with.
func CountPairs(seqs [][]int32) map[vocab.Pair]int64 {
	out := make(map[vocab.Pair]int64)
	for _, s := range seqs {
		for i := 0; i+1 < len(s); i++ {
			out[vocab.Pair{Left: s[i], Right: s[i+1]}]++
		}
	}
	return out
}

// MergeSequence replaces every non-overlapping occurrence of rule's pair in
// seq, scanning left to right. The input is not modified.
func MergeSequence(seq []int32, rule vocab.MergeRule) []int32 {
	out := make([]int32, 0, len(seq))
	for i := 0; i < len(seq); i++ {
		if i+1 < len(seq) && seq[i] == rule.Left && seq[i+1] == rule.Right {
			out = append(out, rule.Result)
			i++
			continue
		}
		out = append(out, seq[i])
	}
	return out
}

package stats

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrEmptyCorpus = errors.New("empty corpus: no documents to train on")
	ErrStaleCorpus = errors.New("corpus was modified outside its statistics engine")
)

const (
	noSlot   int32 = -1
	deadSlot int32 = -2
)

// Corpus is the training buffer: every sequence laid out contiguously in one
// arena. It is owned by exactly one Engine while training.
type Corpus struct {
	syms    []int32 // slot -> symbol, deadSlot once merged away
	prev    []int32
	next    []int32
	seqOf   []int32 // slot -> sequence index
	starts  []int32 // sequence -> first slot, noSlot when empty
	weights []int64 // sequence -> multiplicity
	live    int
	version uint64
}

// NewCorpus builds a corpus where every sequence has weight 1.
func NewCorpus(seqs [][]int32) (*Corpus, error) {
	return NewWeightedCorpus(seqs, nil)
}

// NewWeightedCorpus builds a corpus from sequences and their multiplicities.
// A nil weights slice means weight 1 for every sequence.
func NewWeightedCorpus(seqs [][]int32, weights []int64) (*Corpus, error) {
	if len(seqs) == 0 {
		return nil, ErrEmptyCorpus
	}
	if weights != nil && len(weights) != len(seqs) {
		return nil, fmt.Errorf("got %d weights for %d sequences", len(weights), len(seqs))
	}

	total := 0
	for _, s := range seqs {
		total += len(s)
	}

	c := &Corpus{
		syms:    make([]int32, 0, total),
		prev:    make([]int32, 0, total),
		next:    make([]int32, 0, total),
		seqOf:   make([]int32, 0, total),
		starts:  make([]int32, len(seqs)),
		weights: make([]int64, len(seqs)),
		live:    total,
	}

	for i, s := range seqs {
		w := int64(1)
		if weights != nil {
			w = weights[i]
		}
		if w <= 0 {
			return nil, fmt.Errorf("sequence %d has non-positive weight %d", i, w)
		}
		c.weights[i] = w

		if len(s) == 0 {
			c.starts[i] = noSlot
			continue
		}

		base := int32(len(c.syms)) //nolint:gosec // G115: corpus slots are addressed with int32.
		c.starts[i] = base
		for k, sym := range s {
			if sym < 0 {
				return nil, fmt.Errorf("sequence %d holds negative symbol %d", i, sym)
			}
			slot := base + int32(k) //nolint:gosec // G115: see above.
			c.syms = append(c.syms, sym)
			c.prev = append(c.prev, slot-1)
			c.next = append(c.next, slot+1)
			c.seqOf = append(c.seqOf, int32(i)) //nolint:gosec // G115: see above.
		}
		c.prev[base] = noSlot
		c.next[len(c.next)-1] = noSlot
	}

	return c, nil
}

// NumSequences returns the number of sequences.
func (c *Corpus) NumSequences() int {
	return len(c.starts)
}

// Len returns the number of live symbols, unweighted.
func (c *Corpus) Len() int {
	return c.live
}

// WeightedLen returns the number of live symbols counting multiplicities.
func (c *Corpus) WeightedLen() int64 {
	var n int64
	for i, start := range c.starts {
		for s := start; s != noSlot; s = c.next[s] {
			n += c.weights[i]
		}
	}
	return n
}

// Version increases every time a merge rewrites the corpus.
func (c *Corpus) Version() uint64 {
	return c.version
}

// Sequence returns a copy of the i-th sequence.
func (c *Corpus) Sequence(i int) []int32 {
	var out []int32
	for s := c.starts[i]; s != noSlot; s = c.next[s] {
		out = append(out, c.syms[s])
	}
	return out
}

// Sequences returns a copy of every sequence.
func (c *Corpus) Sequences() [][]int32 {
	out := make([][]int32, len(c.starts))
	for i := range c.starts {
		out[i] = c.Sequence(i)
	}
	return out
}

// weightAt returns the multiplicity of the sequence owning a slot.
func (c *Corpus) weightAt(slot int32) int64 {
	return c.weights[c.seqOf[slot]]
}

package tokenizer

import (
	"container/heap"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/born-ml/bpe/internal/parallel"
	"github.com/born-ml/bpe/internal/pretok"
	"github.com/born-ml/bpe/internal/stats"
	"github.com/born-ml/bpe/internal/vocab"
)

var _ Tokenizer = (*BPETokenizer)(nil)

// EncodeStats describes one Encode call.
type EncodeStats struct {
	Bytes   int // input bytes after normalization
	Pieces  int // pre-tokenized pieces
	Unknown int // bytes mapped to UNK
}

// BPETokenizer implements Byte-Pair Encoding over a trained Vocabulary.
// It holds no mutable shared state and is safe for concurrent use.
type BPETokenizer struct {
	vocab *vocab.Vocabulary
	prep  *pretok.Preparer
	pool  sync.Pool
}

// NewBPETokenizer creates a tokenizer that prepares text with the
// normalization and pattern recorded in the vocabulary.
func NewBPETokenizer(v *vocab.Vocabulary) (*BPETokenizer, error) {
	meta := v.Meta()
	prep, err := pretok.New(meta.Normalization, meta.Pattern)
	if err != nil {
		return nil, fmt.Errorf("vocabulary text settings: %w", err)
	}

	return &BPETokenizer{
		vocab: v,
		prep:  prep,
		pool: sync.Pool{New: func() any {
			return &scratch{}
		}},
	}, nil
}

// Vocabulary returns the underlying vocabulary.
func (b *BPETokenizer) Vocabulary() *vocab.Vocabulary {
	return b.vocab
}

// Encode converts text to symbol IDs. Bytes that were not atoms at training
// time become UNK; that is not an error.
func (b *BPETokenizer) Encode(text string) ([]int32, error) {
	ids, _, err := b.EncodeWithStats(text)
	return ids, err
}

// EncodeWithStats is Encode plus per-call counters.
func (b *BPETokenizer) EncodeWithStats(text string) ([]int32, EncodeStats, error) {
	pieces, err := b.prep.Pieces(text)
	if err != nil {
		return nil, EncodeStats{}, err
	}

	st := EncodeStats{Pieces: len(pieces)}
	out := make([]int32, 0, len(text))
	for _, p := range pieces {
		var unknown int
		out, unknown = b.encodePiece(out, p)
		st.Unknown += unknown
		st.Bytes += len(p)
	}
	return out, st, nil
}

// EncodeBytes encodes raw bytes as a single piece, skipping normalization
// and pre-splitting.
func (b *BPETokenizer) EncodeBytes(data []byte) []int32 {
	out, _ := b.encodePiece(make([]int32, 0, len(data)), string(data))
	return out
}

// EncodeBatch encodes independent texts in parallel. Results keep the input
// order.
func (b *BPETokenizer) EncodeBatch(ctx context.Context, texts []string, cfg parallel.Config) ([][]int32, error) {
	out := make([][]int32, len(texts))
	err := parallel.ForContext(ctx, len(texts), func(_ context.Context, i int) error {
		ids, err := b.Encode(texts[i])
		if err != nil {
			return fmt.Errorf("text %d: %w", i, err)
		}
		out[i] = ids
		return nil
	}, cfg)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Atoms maps every byte of piece to its atom, or UNK.
func (b *BPETokenizer) Atoms(piece string) ([]int32, int) {
	out := make([]int32, len(piece))
	unknown := 0
	for i := range len(piece) {
		id, ok := b.vocab.Atom(piece[i])
		if !ok {
			id = b.vocab.Unknown()
			unknown++
		}
		out[i] = id
	}
	return out, unknown
}

// encodePiece appends the encoding of one piece to dst.
//
// Symbols live in a doubly linked list over slots. Candidate merges sit in
// a queue ordered by (rank, slot); every slot carries a version so entries
// made stale by a neighbouring merge are skipped when popped. A merge
// always collapses into the left slot.
//
//nolint:gocognit // Linked-list merge loop.
func (b *BPETokenizer) encodePiece(dst []int32, piece string) ([]int32, int) {
	n := len(piece)
	if n == 0 {
		return dst, 0
	}

	sc, _ := b.pool.Get().(*scratch)
	defer b.pool.Put(sc)
	sc.prepare(n)

	syms, prev, next, live := sc.syms, sc.prev, sc.next, sc.live
	unknown := 0
	for i := range n {
		id, ok := b.vocab.Atom(piece[i])
		if !ok {
			id = b.vocab.Unknown()
			unknown++
		}
		syms[i] = id
		prev[i] = int32(i - 1) //nolint:gosec // G115: pieces are far below 2^31 bytes.
		next[i] = int32(i + 1) //nolint:gosec // G115: see above.
	}
	next[n-1] = -1

	pushIfMergeable := func(i int32) {
		if i < 0 {
			return
		}
		j := next[i]
		if j < 0 {
			return
		}
		rule, ok := b.vocab.Rule(vocab.Pair{Left: syms[i], Right: syms[j]})
		if !ok {
			return
		}
		heap.Push(&sc.queue, mergeCand{
			rank:  rule.Rank,
			pos:   i,
			left:  syms[i],
			right: syms[j],
			verL:  live[i],
			verR:  live[j],
		})
	}

	for i := int32(0); i >= 0 && next[i] >= 0; i = next[i] {
		pushIfMergeable(i)
	}

	for sc.queue.Len() > 0 {
		c := heap.Pop(&sc.queue).(mergeCand)
		i := c.pos
		j := next[i]
		if j < 0 || live[i] != c.verL || live[j] != c.verR {
			continue
		}
		if syms[i] != c.left || syms[j] != c.right {
			continue
		}

		rule, _ := b.vocab.Rule(vocab.Pair{Left: c.left, Right: c.right})
		syms[i] = rule.Result

		nj := next[j]
		next[i] = nj
		if nj >= 0 {
			prev[nj] = i
		}
		prev[j], next[j] = -1, -1
		live[i]++
		live[j]++

		pushIfMergeable(prev[i])
		pushIfMergeable(i)
	}

	// Slot 0 never dies: merges collapse into the left slot.
	for i := int32(0); i >= 0; i = next[i] {
		dst = append(dst, syms[i])
	}
	return dst, unknown
}

// ApplyRules replays rules in the given order over ids, replacing every
// non-overlapping occurrence of each rule left to right. With the
// vocabulary's rules in rank order this equals encoding.
func ApplyRules(ids []int32, rules []vocab.MergeRule) []int32 {
	out := append([]int32(nil), ids...)
	for _, r := range rules {
		if len(out) < 2 {
			break
		}
		out = stats.MergeSequence(out, r)
	}
	return out
}

// Decode converts symbol IDs back to text. The result is byte-exact; use
// DecodeLossy for display.
func (b *BPETokenizer) Decode(tokens []int32) (string, error) {
	data, err := b.DecodeBytes(tokens)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeBytes expands every symbol to its bytes. An ID outside the
// vocabulary fails the whole call with vocab.ErrUnknownSymbol.
func (b *BPETokenizer) DecodeBytes(tokens []int32) ([]byte, error) {
	if len(tokens) == 0 {
		return []byte{}, nil
	}

	total := 0
	for i, id := range tokens {
		exp, err := b.vocab.Expand(id)
		if err != nil {
			return nil, fmt.Errorf("decode position %d: %w", i, err)
		}
		total += len(exp)
	}

	out := make([]byte, 0, total)
	for _, id := range tokens {
		exp, _ := b.vocab.Expand(id)
		out = append(out, exp...)
	}
	return out, nil
}

// DecodeLossy decodes and replaces invalid UTF-8 sequences with U+FFFD.
func (b *BPETokenizer) DecodeLossy(tokens []int32) (string, error) {
	s, err := b.Decode(tokens)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(s, "�"), nil
}

// VocabSize returns the total vocabulary size.
func (b *BPETokenizer) VocabSize() int {
	return b.vocab.Size()
}

// UnkToken returns the UNK ID, or -1 for a full byte alphabet.
func (b *BPETokenizer) UnkToken() int32 {
	return b.vocab.Unknown()
}

// IsSpecialToken reports whether token is UNK.
func (b *BPETokenizer) IsSpecialToken(token int32) bool {
	return token != vocab.NoSymbol && token == b.vocab.Unknown()
}

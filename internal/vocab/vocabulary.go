package vocab

import (
	"fmt"
	"strconv"
)

// MergeRule replaces the adjacent pair (Left, Right) with Result.
// Rank is the learning order; lower ranks are applied first.
type MergeRule struct {
	Left   int32
	Right  int32
	Result int32
	Rank   int
}

// Pair returns the rule's input pair.
func (r MergeRule) Pair() Pair {
	return Pair{Left: r.Left, Right: r.Right}
}

// Alphabet names the atom layout of a vocabulary.
type Alphabet string

const (
	// AlphabetObserved interns only bytes seen at training time and reserves UNK.
	AlphabetObserved Alphabet = "observed"
	// AlphabetBytes interns all 256 byte values with ID == byte value.
	AlphabetBytes Alphabet = "bytes"
)

// Meta carries the text preparation settings that encoding must reproduce.
type Meta struct {
	Normalization string // "", "none", "nfc" or "nfkc"
	Pattern       string // pre-tokenizer regexp; empty means no pre-split
}

// Vocabulary is the trained, read-only BPE model. It is safe for
// concurrent use.
type Vocabulary struct {
	atoms     []byte
	byUnit    [256]int32
	unk       int32
	merges    []MergeRule
	ranks     map[Pair]int
	expansion [][]byte
	meta      Meta
}

// New validates the layout and builds a Vocabulary.
//
// Atoms must be strictly ascending byte values and take IDs 0..len(atoms)-1.
// UNK, when present, takes the next ID and is only allowed when the
// alphabet does not cover all 256 bytes. Merge i must have Rank i and
// Result firstMergeID+i, and may only reference smaller, non-UNK IDs.
//
//nolint:gocyclo,cyclop // Layout validation is a flat list of checks.
func New(atoms []byte, withUnknown bool, merges []MergeRule, meta Meta) (*Vocabulary, error) {
	if withUnknown && len(atoms) == 256 {
		return nil, fmt.Errorf("%w: UNK is not allowed with a full byte alphabet", ErrInvalidLayout)
	}
	if !withUnknown && len(atoms) < 256 {
		return nil, fmt.Errorf("%w: alphabet of %d bytes requires UNK", ErrInvalidLayout, len(atoms))
	}

	v := &Vocabulary{
		atoms: append([]byte(nil), atoms...),
		unk:   NoSymbol,
		ranks: make(map[Pair]int, len(merges)),
		meta:  meta,
	}
	for i := range v.byUnit {
		v.byUnit[i] = NoSymbol
	}

	size := len(atoms) + len(merges)
	if withUnknown {
		size++
	}
	v.expansion = make([][]byte, 0, size)

	for i, b := range atoms {
		if i > 0 && atoms[i-1] >= b {
			return nil, fmt.Errorf("%w: atoms must be strictly ascending (0x%02x after 0x%02x)", ErrInvalidLayout, b, atoms[i-1])
		}
		v.byUnit[b] = int32(i) //nolint:gosec // G115: at most 256 atoms.
		v.expansion = append(v.expansion, []byte{b})
	}

	if withUnknown {
		v.unk = int32(len(v.expansion)) //nolint:gosec // G115: at most 256 atoms.
		v.expansion = append(v.expansion, replacementChar)
	}

	first := int32(len(v.expansion)) //nolint:gosec // G115: at most 257 IDs so far.
	for i, r := range merges {
		want := first + int32(i) //nolint:gosec // G115: merge count bounded by int32 IDs.
		switch {
		case r.Rank != i:
			return nil, fmt.Errorf("%w: rule %d has rank %d", ErrInvalidRule, i, r.Rank)
		case r.Result != want:
			return nil, fmt.Errorf("%w: rule %d produces %d, expected %d", ErrInvalidRule, i, r.Result, want)
		case r.Left < 0 || r.Left >= want || r.Right < 0 || r.Right >= want:
			return nil, fmt.Errorf("%w: rule %d %s references an ID not smaller than %d", ErrInvalidRule, i, r.Pair(), want)
		case r.Left == v.unk || r.Right == v.unk:
			return nil, fmt.Errorf("%w: rule %d merges UNK", ErrInvalidRule, i)
		}
		if prev, dup := v.ranks[r.Pair()]; dup {
			return nil, fmt.Errorf("%w: pair %s learned twice (ranks %d and %d)", ErrInvalidRule, r.Pair(), prev, i)
		}

		v.ranks[r.Pair()] = i
		exp := make([]byte, 0, len(v.expansion[r.Left])+len(v.expansion[r.Right]))
		exp = append(exp, v.expansion[r.Left]...)
		exp = append(exp, v.expansion[r.Right]...)
		v.expansion = append(v.expansion, exp)
	}
	v.merges = append([]MergeRule(nil), merges...)

	return v, nil
}

// Size returns the total number of symbol IDs (atoms, UNK and merges).
func (v *Vocabulary) Size() int {
	return len(v.expansion)
}

// NumAtoms returns the number of atomic symbols.
func (v *Vocabulary) NumAtoms() int {
	return len(v.atoms)
}

// Atoms returns the atom bytes in ID order. The slice must not be modified.
func (v *Vocabulary) Atoms() []byte {
	return v.atoms
}

// Alphabet reports the atom layout.
func (v *Vocabulary) Alphabet() Alphabet {
	if len(v.atoms) == 256 {
		return AlphabetBytes
	}
	return AlphabetObserved
}

// Unknown returns the UNK ID, or NoSymbol when every byte is an atom.
func (v *Vocabulary) Unknown() int32 {
	return v.unk
}

// Atom returns the ID of a single-byte unit.
func (v *Vocabulary) Atom(unit byte) (int32, bool) {
	id := v.byUnit[unit]
	return id, id != NoSymbol
}

// Merges returns the rules in rank order. The slice must not be modified.
func (v *Vocabulary) Merges() []MergeRule {
	return v.merges
}

// FirstMergeID is the ID assigned to the rank-0 merge.
func (v *Vocabulary) FirstMergeID() int32 {
	return int32(len(v.expansion) - len(v.merges)) //nolint:gosec // G115: bounded by int32 IDs.
}

// Rule returns the merge rule for a pair, if one was learned.
func (v *Vocabulary) Rule(p Pair) (MergeRule, bool) {
	rank, ok := v.ranks[p]
	if !ok {
		return MergeRule{}, false
	}
	return v.merges[rank], true
}

// Contains reports whether id is a valid symbol.
func (v *Vocabulary) Contains(id int32) bool {
	return id >= 0 && int(id) < len(v.expansion)
}

// Expand returns the raw bytes of a symbol. UNK expands to U+FFFD.
// The returned slice must not be modified.
func (v *Vocabulary) Expand(id int32) ([]byte, error) {
	if !v.Contains(id) {
		return nil, unknownSymbol(id)
	}
	return v.expansion[id], nil
}

// Token returns a printable form of a symbol.
func (v *Vocabulary) Token(id int32) string {
	switch {
	case id == v.unk && id != NoSymbol:
		return "<unk>"
	case !v.Contains(id):
		return "<invalid>"
	default:
		return strconv.Quote(string(v.expansion[id]))
	}
}

// Meta returns the text preparation settings.
func (v *Vocabulary) Meta() Meta {
	return v.meta
}

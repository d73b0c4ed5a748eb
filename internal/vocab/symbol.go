package vocab

import "fmt"

// NoSymbol marks an absent symbol (e.g. UNK in a full byte alphabet).
const NoSymbol int32 = -1

// replacementChar is what UNK expands to when decoded.
var replacementChar = []byte("�")

// Pair is an ordered pair of adjacent symbols.
type Pair struct {
	Left  int32
	Right int32
}

// Less orders pairs by Left, then Right.
func (p Pair) Less(o Pair) bool {
	if p.Left != o.Left {
		return p.Left < o.Left
	}
	return p.Right < o.Right
}

// String implements fmt.Stringer.
func (p Pair) String() string {
	return fmt.Sprintf("(%d,%d)", p.Left, p.Right)
}

// SymbolTable is the growing, bidirectional symbol <-> unit mapping used
// while training. It never shrinks and never reuses an ID.
type SymbolTable struct {
	expansion [][]byte // id -> raw bytes
	byUnit    [256]int32
	atoms     []byte
	unk       int32
	sealed    bool
	merges    []MergeRule
}

// NewSymbolTable creates an empty table.
func NewSymbolTable() *SymbolTable {
	t := &SymbolTable{unk: NoSymbol}
	for i := range t.byUnit {
		t.byUnit[i] = NoSymbol
	}
	return t
}

// Intern returns the ID of the atomic unit, assigning the next ID the first
// time the unit is seen. Interning fails once UNK or a merge has been added.
func (t *SymbolTable) Intern(unit byte) (int32, error) {
	if id := t.byUnit[unit]; id != NoSymbol {
		return id, nil
	}
	if t.sealed {
		return NoSymbol, fmt.Errorf("%w: byte 0x%02x", ErrAlphabetSealed, unit)
	}

	id := int32(len(t.expansion)) //nolint:gosec // G115: table size is bounded by int32 IDs.
	t.expansion = append(t.expansion, []byte{unit})
	t.byUnit[unit] = id
	t.atoms = append(t.atoms, unit)
	return id, nil
}

// ID returns the atom ID for a unit.
func (t *SymbolTable) ID(unit byte) (int32, bool) {
	id := t.byUnit[unit]
	return id, id != NoSymbol
}

// ReserveUnknown adds the UNK symbol (idempotent) and seals the alphabet.
func (t *SymbolTable) ReserveUnknown() int32 {
	if t.unk != NoSymbol {
		return t.unk
	}
	t.sealed = true
	t.unk = int32(len(t.expansion)) //nolint:gosec // G115: bounded by int32 IDs.
	t.expansion = append(t.expansion, replacementChar)
	return t.unk
}

// Unknown returns the UNK ID or NoSymbol.
func (t *SymbolTable) Unknown() int32 {
	return t.unk
}

// AddMerge appends a composite symbol for (left, right) and records the
// merge rule with the next rank.
func (t *SymbolTable) AddMerge(left, right int32) (MergeRule, error) {
	if !t.valid(left) || !t.valid(right) {
		return MergeRule{}, fmt.Errorf("%w: pair (%d,%d) references an unknown symbol", ErrInvalidRule, left, right)
	}
	if left == t.unk || right == t.unk {
		return MergeRule{}, fmt.Errorf("%w: UNK cannot be merged", ErrInvalidRule)
	}
	t.sealed = true

	id := int32(len(t.expansion)) //nolint:gosec // G115: bounded by int32 IDs.
	exp := make([]byte, 0, len(t.expansion[left])+len(t.expansion[right]))
	exp = append(exp, t.expansion[left]...)
	exp = append(exp, t.expansion[right]...)
	t.expansion = append(t.expansion, exp)

	rule := MergeRule{Left: left, Right: right, Result: id, Rank: len(t.merges)}
	t.merges = append(t.merges, rule)
	return rule, nil
}

// Lookup returns the raw bytes a symbol stands for.
func (t *SymbolTable) Lookup(id int32) ([]byte, error) {
	if !t.valid(id) {
		return nil, unknownSymbol(id)
	}
	return t.expansion[id], nil
}

// Len returns the number of assigned IDs.
func (t *SymbolTable) Len() int {
	return len(t.expansion)
}

// NumAtoms returns the number of atomic symbols.
func (t *SymbolTable) NumAtoms() int {
	return len(t.atoms)
}

// Merges returns the rules in rank order. The slice must not be modified.
func (t *SymbolTable) Merges() []MergeRule {
	return t.merges
}

// Freeze builds the immutable Vocabulary from the table.
func (t *SymbolTable) Freeze(meta Meta) (*Vocabulary, error) {
	merges := make([]MergeRule, len(t.merges))
	copy(merges, t.merges)
	return New(t.atoms, t.unk != NoSymbol, merges, meta)
}

func (t *SymbolTable) valid(id int32) bool {
	return id >= 0 && int(id) < len(t.expansion)
}

// Package vocab holds the symbol table, merge rules and the immutable
// vocabulary produced by BPE training.
//
// Symbols are int32 IDs. Atomic symbols stand for single raw bytes of the
// UTF-8 input; composite symbols stand for the concatenation of two older
// symbols and always carry a larger ID than either constituent.
//
// Two alphabet layouts are supported:
//
//	bytes:    IDs 0..255 are the byte values themselves, merges start at 256.
//	observed: only bytes seen at training time, in ascending byte order,
//	          followed by the reserved UNK symbol, then merges.
//
// Example usage:
//
//	table := vocab.NewSymbolTable()
//	a, _ := table.Intern('a')
//	unk := table.ReserveUnknown()
//	aa, _ := table.AddMerge(a, a)
//	v, err := table.Freeze(vocab.Meta{})
package vocab

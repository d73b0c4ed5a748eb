// Package serialization stores trained vocabularies as line-oriented text.
//
// The vocabulary file is UTF-8 text with LF line endings:
//
//	File Structure:
//	  bpe-vocab 1
//	  normalize <none|nfc|nfkc>
//	  pattern <Go-quoted regexp, or ->
//	  atoms <n>
//	  <id> <byte as 2 hex digits>      n lines, id == line index
//	  unk <id, or ->
//	  merges <m>
//	  <left> <right> <result>          m lines, rank == line index
//	  checksum <SHA-256 hex of every preceding byte>
//
// Ranks are positional, so a file is only valid when merge i produces
// first-merge-ID + i. Writing the same vocabulary twice yields identical
// bytes.
//
// Example usage:
//
//	// Save a vocabulary
//	if err := serialization.SaveFile("hindi.bpe", v); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Load it back
//	v, err := serialization.LoadFile("hindi.bpe")
//	if err != nil {
//	    log.Fatal(err)
//	}
package serialization

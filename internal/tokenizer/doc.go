// Package tokenizer encodes text with a trained BPE vocabulary and decodes
// symbol IDs back to text.
//
// Encoding prepares the text the same way training did (normalization and
// optional pre-split), maps every byte to its atom (unknown bytes become
// UNK) and then merges, lowest rank first and left to right within a rank,
// until no learned pair is left. Decoding concatenates the byte expansion
// of every symbol, so decode(encode(text)) == text whenever every byte of
// text was an atom at training time.
//
// Example usage:
//
//	tok, err := tokenizer.NewBPETokenizer(v)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ids, err := tok.Encode("हरि तुम हरो जन की भीर।")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(tokenizer.FormatIDs(ids))
//
//	text, err := tok.Decode(ids)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Baseline wraps a pretrained tiktoken encoding and is used as the point of
// comparison when reporting compression.
package tokenizer

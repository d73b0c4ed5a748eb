package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultBaseline is the encoding compression reports compare against.
const DefaultBaseline = "cl100k_base"

// Baseline wraps a pretrained tiktoken encoding so a learned vocabulary can
// be compared with a general-purpose one on the same text.
//
// Encodings are fetched by tiktoken-go on first use and cached on disk;
// offline hosts may fail to load them.
type Baseline struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// NewBaseline loads the named tiktoken encoding ("cl100k_base", "o200k_base",
// "p50k_base", "r50k_base").
func NewBaseline(encodingName string) (*Baseline, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("load baseline encoding %q: %w", encodingName, err)
	}

	return &Baseline{encoding: encoding, name: encodingName}, nil
}

// Encode converts text to baseline token IDs. Special-token text is encoded
// as ordinary text.
func (t *Baseline) Encode(text string) ([]int32, error) {
	tokens := t.encoding.EncodeOrdinary(text)

	result := make([]int32, len(tokens))
	for i, tok := range tokens {
		result[i] = int32(tok) //nolint:gosec // G115: baseline vocabularies are below 2^31.
	}
	return result, nil
}

// Count returns the number of baseline tokens for text.
func (t *Baseline) Count(text string) int {
	return len(t.encoding.EncodeOrdinary(text))
}

// Decode converts baseline token IDs back to text.
func (t *Baseline) Decode(tokens []int32) (string, error) {
	ints := make([]int, len(tokens))
	for i, tok := range tokens {
		ints[i] = int(tok)
	}
	return t.encoding.Decode(ints), nil
}

// Name returns the encoding name.
func (t *Baseline) Name() string {
	return t.name
}

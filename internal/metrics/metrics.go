// Package metrics measures how well a vocabulary compresses text.
package metrics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/born-ml/bpe/internal/tokenizer"
)

// ErrEmptyEncoding is returned when the encoded length is zero.
var ErrEmptyEncoding = errors.New("encoded length is zero")

// CompressionRatio returns original/encoded.
func CompressionRatio(original, encoded int) (float64, error) {
	if encoded <= 0 {
		return 0, fmt.Errorf("%w (original %d)", ErrEmptyEncoding, original)
	}
	if original < 0 {
		return 0, fmt.Errorf("original length must not be negative, got %d", original)
	}
	return float64(original) / float64(encoded), nil
}

// Encoder is the part of a tokenizer Measure needs.
type Encoder interface {
	Encode(text string) ([]int32, error)
}

// statsEncoder also reports bytes mapped to UNK.
type statsEncoder interface {
	EncodeWithStats(text string) ([]int32, tokenizer.EncodeStats, error)
}

// Counter counts tokens of a reference encoding.
type Counter interface {
	Count(text string) int
	Name() string
}

// Baseline is the token count of a reference encoding on the same text.
type Baseline struct {
	Name   string
	Tokens int
	Ratio  float64 // OriginalTokens / Tokens
}

// Report summarizes one measurement. OriginalTokens counts UTF-8 bytes,
// the atoms the vocabulary starts from, after the vocabulary's
// normalization when the encoder reports it.
type Report struct {
	OriginalTokens int
	EncodedTokens  int
	Ratio          float64
	Unknown        int
	Baseline       *Baseline
}

// Measure encodes text with enc and, when baseline is not nil, counts the
// same text with the reference encoding.
func Measure(enc Encoder, text string, baseline Counter) (Report, error) {
	var (
		ids      []int32
		original = len(text)
		unknown  int
		err      error
	)
	if se, ok := enc.(statsEncoder); ok {
		var st tokenizer.EncodeStats
		ids, st, err = se.EncodeWithStats(text)
		original, unknown = st.Bytes, st.Unknown
	} else {
		ids, err = enc.Encode(text)
	}
	if err != nil {
		return Report{}, fmt.Errorf("encode: %w", err)
	}

	rep := Report{OriginalTokens: original, EncodedTokens: len(ids), Unknown: unknown}
	if len(ids) > 0 {
		rep.Ratio, err = CompressionRatio(rep.OriginalTokens, rep.EncodedTokens)
		if err != nil {
			return Report{}, err
		}
	}

	if baseline != nil && len(text) > 0 {
		n := baseline.Count(text)
		b := &Baseline{Name: baseline.Name(), Tokens: n}
		if n > 0 {
			b.Ratio = float64(rep.OriginalTokens) / float64(n)
		}
		rep.Baseline = b
	}

	return rep, nil
}

// String renders the report the way the CLI prints it.
func (r Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Original tokens: %d\n", r.OriginalTokens)
	fmt.Fprintf(&sb, "BPE IDs length: %d\n", r.EncodedTokens)
	if r.Unknown > 0 {
		fmt.Fprintf(&sb, "Unknown bytes: %d\n", r.Unknown)
	}
	fmt.Fprintf(&sb, "Compression ratio: %.2fX\n", r.Ratio)
	if r.Baseline != nil {
		fmt.Fprintf(&sb, "Baseline %s: %d tokens (%.2fX)\n", r.Baseline.Name, r.Baseline.Tokens, r.Baseline.Ratio)
	}
	return sb.String()
}

// Package pretok prepares raw text before byte-level BPE: Unicode
// normalization and an optional regexp pre-split so merges never cross
// word, number or punctuation boundaries.
package pretok

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/unicode/norm"
)

// Normalization names a Unicode normalization form.
type Normalization string

const (
	NormNone Normalization = "none"
	NormNFC  Normalization = "nfc"
	NormNFKC Normalization = "nfkc"
)

// IndicPattern splits text into words of letters and combining marks (so
// Devanagari matras and virama stay with their consonant), digit runs,
// punctuation runs and whitespace. Each word carries its leading space.
const IndicPattern = `'(?i:[sdmt]|ll|ve|re)| ?[\p{L}\p{M}]+| ?\p{N}+| ?[^\s\p{L}\p{M}\p{N}]+|\s+(?!\S)|\s+`

// ParseNormalization accepts "", "none", "nfc" and "nfkc" in any case.
func ParseNormalization(s string) (Normalization, error) {
	switch Normalization(strings.ToLower(strings.TrimSpace(s))) {
	case "", NormNone:
		return NormNone, nil
	case NormNFC:
		return NormNFC, nil
	case NormNFKC:
		return NormNFKC, nil
	default:
		return "", fmt.Errorf("unknown normalization %q (want none, nfc or nfkc)", s)
	}
}

// Apply normalizes text. Invalid UTF-8 is returned unchanged.
func (n Normalization) Apply(text string) string {
	if !utf8.ValidString(text) {
		return text
	}
	switch n {
	case NormNFC:
		return norm.NFC.String(text)
	case NormNFKC:
		return norm.NFKC.String(text)
	default:
		return text
	}
}

// Preparer normalizes and splits text. It is safe for concurrent use.
type Preparer struct {
	norm    Normalization
	pattern string
	re      *regexp2.Regexp
}

// New builds a Preparer. An empty pattern disables splitting.
func New(normalization, pattern string) (*Preparer, error) {
	n, err := ParseNormalization(normalization)
	if err != nil {
		return nil, err
	}

	p := &Preparer{norm: n, pattern: pattern}
	if pattern != "" {
		re, err := regexp2.Compile(pattern, regexp2.None)
		if err != nil {
			return nil, fmt.Errorf("error compiling pre-tokenizer pattern: %w", err)
		}
		p.re = re
	}
	return p, nil
}

// Normalization returns the configured form.
func (p *Preparer) Normalization() Normalization {
	return p.norm
}

// Pattern returns the split pattern, empty when splitting is off.
func (p *Preparer) Pattern() string {
	return p.pattern
}

// Pieces normalizes text and splits it. Concatenating the pieces yields the
// normalized text exactly: characters no alternative matches are emitted as
// their own pieces, and invalid UTF-8 input is never split.
func (p *Preparer) Pieces(text string) ([]string, error) {
	text = p.norm.Apply(text)
	if text == "" {
		return nil, nil
	}
	if p.re == nil || !utf8.ValidString(text) {
		return []string{text}, nil
	}

	runes := []rune(text)
	var out []string
	last := 0

	m, err := p.re.FindRunesMatch(runes)
	for m != nil {
		if err != nil {
			return nil, fmt.Errorf("pre-tokenizer match: %w", err)
		}
		if m.Index > last {
			out = append(out, string(runes[last:m.Index]))
		}
		if m.Length > 0 {
			out = append(out, string(runes[m.Index:m.Index+m.Length]))
		}
		last = m.Index + m.Length
		m, err = p.re.FindNextMatch(m)
	}
	if err != nil {
		return nil, fmt.Errorf("pre-tokenizer match: %w", err)
	}
	if last < len(runes) {
		out = append(out, string(runes[last:]))
	}

	return out, nil
}

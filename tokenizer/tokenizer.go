// Package tokenizer is the public API for training byte-level BPE
// vocabularies and encoding text with them.
//
// This package wraps the internal implementations and provides a small,
// stable surface for the common tasks.
//
// Example usage:
//
//	import "github.com/born-ml/bpe/tokenizer"
//
//	// Train on a corpus, one document per line
//	cfg := tokenizer.DefaultConfig()
//	cfg.VocabSize = 5000
//	res, err := tokenizer.TrainFile(ctx, "hindi.txt", cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := tokenizer.Save("hindi.bpe", res.Vocabulary); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Encode and decode
//	tok, err := tokenizer.New(res.Vocabulary)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ids, err := tok.Encode("हरि तुम हरो जन की भीर।")
//	text, err := tok.Decode(ids)
package tokenizer

import (
	"context"
	"fmt"
	"os"

	"github.com/born-ml/bpe/internal/metrics"
	"github.com/born-ml/bpe/internal/pretok"
	"github.com/born-ml/bpe/internal/serialization"
	"github.com/born-ml/bpe/internal/tokenizer"
	"github.com/born-ml/bpe/internal/trainer"
	"github.com/born-ml/bpe/internal/vocab"
)

// Tokenizer is the core interface for text tokenization.
type Tokenizer = tokenizer.Tokenizer

// BPE encodes and decodes with a trained vocabulary.
type BPE = tokenizer.BPETokenizer

// Vocabulary is a trained, read-only BPE model.
type Vocabulary = vocab.Vocabulary

// MergeRule is one learned merge.
type MergeRule = vocab.MergeRule

// Config controls training.
type Config = trainer.Config

// Result is the outcome of a training run.
type Result = trainer.Result

// Report summarizes a compression measurement.
type Report = metrics.Report

// Alphabet layouts.
const (
	AlphabetBytes    = vocab.AlphabetBytes
	AlphabetObserved = vocab.AlphabetObserved
)

// IndicPattern keeps Devanagari combining marks with their consonant.
const IndicPattern = pretok.IndicPattern

// Errors callers may match with errors.Is.
var (
	ErrUnknownSymbol       = vocab.ErrUnknownSymbol
	ErrEmptyCorpus         = trainer.ErrEmptyCorpus
	ErrMalformedVocabulary = serialization.ErrMalformedVocabulary
)

// DefaultConfig returns the default training settings.
func DefaultConfig() Config {
	return trainer.DefaultConfig()
}

// Train learns a vocabulary from docs.
func Train(ctx context.Context, docs []string, cfg Config) (*Result, error) {
	tr, err := trainer.New(cfg)
	if err != nil {
		return nil, err
	}
	return tr.Train(ctx, docs)
}

// TrainFile learns a vocabulary from a file with one document per line.
func TrainFile(ctx context.Context, path string, cfg Config) (*Result, error) {
	tr, err := trainer.New(cfg)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // G304: corpus path comes from the caller.
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	return tr.TrainReader(ctx, f)
}

// Load reads a vocabulary file with strict validation.
func Load(path string) (*Vocabulary, error) {
	return serialization.LoadFile(path)
}

// Save writes a vocabulary file.
func Save(path string, v *Vocabulary) error {
	return serialization.SaveFile(path, v)
}

// New returns an encoder/decoder for v.
func New(v *Vocabulary) (*BPE, error) {
	return tokenizer.NewBPETokenizer(v)
}

// ParseIDs parses comma and/or whitespace separated IDs.
func ParseIDs(s string) ([]int32, error) {
	return tokenizer.ParseIDs(s)
}

// FormatIDs joins IDs with ", ".
func FormatIDs(ids []int32) string {
	return tokenizer.FormatIDs(ids)
}

// CompressionRatio returns original/encoded.
func CompressionRatio(original, encoded int) (float64, error) {
	return metrics.CompressionRatio(original, encoded)
}

// Measure reports how well tok compresses text.
func Measure(tok *BPE, text string) (Report, error) {
	return metrics.Measure(tok, text, nil)
}

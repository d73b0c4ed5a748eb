package trainer

import (
	"errors"
	"fmt"

	"github.com/born-ml/bpe/internal/parallel"
	"github.com/born-ml/bpe/internal/vocab"
)

// ErrVocabSizeTooSmall is returned when VocabSize cannot even hold the
// alphabet.
var ErrVocabSizeTooSmall = errors.New("vocab size is smaller than the alphabet")

// Config controls a training run.
type Config struct {
	// VocabSize is the target number of symbol IDs, atoms and UNK included.
	// Zero means no size limit.
	VocabSize int
	// NumMerges caps the number of merges. Zero means no cap.
	NumMerges int
	// MinFrequency is the smallest pair count that is still merged.
	MinFrequency int64
	// Alphabet selects the atom layout.
	Alphabet vocab.Alphabet
	// Normalization is "none", "nfc" or "nfkc".
	Normalization string
	// Pattern is the pre-tokenizer regexp; empty disables pre-splitting.
	Pattern string
	// Parallel controls the initial pair scan.
	Parallel parallel.Config
}

// DefaultConfig returns the settings used for the Hindi corpus runs.
func DefaultConfig() Config {
	return Config{
		VocabSize:     5000,
		MinFrequency:  2,
		Alphabet:      vocab.AlphabetBytes,
		Normalization: "none",
		Parallel:      parallel.DefaultConfig(),
	}
}

// Validate checks the config for values that can never work.
func (c Config) Validate() error {
	switch {
	case c.VocabSize < 0:
		return fmt.Errorf("vocab size must not be negative, got %d", c.VocabSize)
	case c.NumMerges < 0:
		return fmt.Errorf("merge count must not be negative, got %d", c.NumMerges)
	case c.MinFrequency < 1:
		return fmt.Errorf("min frequency must be at least 1, got %d", c.MinFrequency)
	}

	switch c.Alphabet {
	case vocab.AlphabetBytes, vocab.AlphabetObserved:
	default:
		return fmt.Errorf("unknown alphabet %q (want %s or %s)", c.Alphabet, vocab.AlphabetBytes, vocab.AlphabetObserved)
	}

	return nil
}

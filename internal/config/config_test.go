package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/bpe/internal/logging"
	"github.com/born-ml/bpe/internal/pretok"
	"github.com/born-ml/bpe/internal/vocab"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	tc, err := cfg.Train.Trainer()
	require.NoError(t, err)
	assert.Equal(t, 5000, tc.VocabSize)
	assert.Equal(t, int64(2), tc.MinFrequency)
	assert.Equal(t, vocab.AlphabetBytes, tc.Alphabet)
	assert.Empty(t, tc.Pattern)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
train:
  vocab-size: 300
  alphabet: observed
  normalization: NFC
  pattern: indic
  workers: 1
log:
  level: debug
  format: json
`))
	require.NoError(t, err)

	assert.Equal(t, 300, cfg.Train.VocabSize)
	assert.Equal(t, int64(2), cfg.Train.MinFrequency, "unset keys keep defaults")
	assert.Equal(t, logging.FormatJSON, cfg.Log.Format)

	tc, err := cfg.Train.Trainer()
	require.NoError(t, err)
	assert.Equal(t, vocab.AlphabetObserved, tc.Alphabet)
	assert.Equal(t, "nfc", tc.Normalization)
	assert.Equal(t, pretok.IndicPattern, tc.Pattern)
	assert.False(t, tc.Parallel.Enabled)
}

func TestTrain_Workers(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		enabled bool
		n       int
	}{
		{"sequential", 1, false, 1},
		{"explicit count", 3, true, 3},
		{"explicit two", 2, true, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			train := Default().Train
			train.Workers = tt.workers
			tc, err := train.Trainer()
			require.NoError(t, err)
			assert.Equal(t, tt.enabled, tc.Parallel.Enabled)
			assert.Equal(t, tt.n, tc.Parallel.NumWorkers)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "train:\n  vocab_size: 10\n"},
		{"bad alphabet", "train:\n  alphabet: runes\n"},
		{"bad normalization", "train:\n  normalization: nfd\n"},
		{"bad pattern", "train:\n  pattern: '(['\n"},
		{"negative workers", "train:\n  workers: -2\n"},
		{"zero min frequency", "train:\n  min-frequency: 0\n"},
		{"bad log level", "log:\n  level: loud\n"},
		{"bad log format", "log:\n  format: xml\n"},
		{"not yaml", "train: [1, 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bpe.yaml")

	want := Default()
	want.Train.VocabSize = 1234
	data, err := want.Marshal()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

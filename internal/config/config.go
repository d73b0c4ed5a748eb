// Package config loads training and logging settings from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/bpe/internal/logging"
	"github.com/born-ml/bpe/internal/parallel"
	"github.com/born-ml/bpe/internal/pretok"
	"github.com/born-ml/bpe/internal/trainer"
	"github.com/born-ml/bpe/internal/vocab"
)

// Config is the file layout:
//
//	train:
//	  vocab-size: 5000
//	  min-frequency: 2
//	  alphabet: bytes
//	  normalization: nfc
//	  pattern: indic
//	  workers: 0
//	log:
//	  level: info
//	  format: text
type Config struct {
	Train Train `yaml:"train"`
	Log   Log   `yaml:"log"`
}

// Train mirrors trainer.Config.
type Train struct {
	VocabSize     int    `yaml:"vocab-size"`
	NumMerges     int    `yaml:"num-merges,omitempty"`
	MinFrequency  int64  `yaml:"min-frequency"`
	Alphabet      string `yaml:"alphabet"`
	Normalization string `yaml:"normalization"`
	// Pattern is a regexp, "indic" for pretok.IndicPattern, or empty for
	// no pre-splitting.
	Pattern string `yaml:"pattern,omitempty"`
	// Workers bounds the initial pair scan; 0 uses GOMAXPROCS and 1 runs
	// sequentially.
	Workers int `yaml:"workers,omitempty"`
}

// Log selects the logger.
type Log struct {
	Level  string         `yaml:"level"`
	Format logging.Format `yaml:"format"`
}

// PatternIndic names pretok.IndicPattern in config files.
const PatternIndic = "indic"

// Default returns the settings used when no file is given.
func Default() Config {
	def := trainer.DefaultConfig()
	return Config{
		Train: Train{
			VocabSize:     def.VocabSize,
			MinFrequency:  def.MinFrequency,
			Alphabet:      string(def.Alphabet),
			Normalization: def.Normalization,
		},
		Log: Log{
			Level:  "info",
			Format: logging.FormatText,
		},
	}
}

// Load reads path on top of Default. Unknown keys are rejected.
func Load(path string) (Config, error) {
	//nolint:gosec // G304: config path comes from the command line.
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if _, err := c.Train.Trainer(); err != nil {
		return err
	}
	if _, err := logging.New(c.Log.Level, c.Log.Format, io.Discard); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// Trainer converts the section to a validated trainer.Config.
func (t Train) Trainer() (trainer.Config, error) {
	norm, err := pretok.ParseNormalization(t.Normalization)
	if err != nil {
		return trainer.Config{}, fmt.Errorf("train: %w", err)
	}
	if t.Workers < 0 {
		return trainer.Config{}, fmt.Errorf("train: workers must not be negative, got %d", t.Workers)
	}

	pattern := t.Pattern
	if pattern == PatternIndic {
		pattern = pretok.IndicPattern
	}

	par := parallel.DefaultConfig()
	switch t.Workers {
	case 0:
	case 1:
		par = parallel.Sequential()
	default:
		par.Enabled = true
		par.NumWorkers = t.Workers
	}

	cfg := trainer.Config{
		VocabSize:     t.VocabSize,
		NumMerges:     t.NumMerges,
		MinFrequency:  t.MinFrequency,
		Alphabet:      vocab.Alphabet(t.Alphabet),
		Normalization: string(norm),
		Pattern:       pattern,
		Parallel:      par,
	}
	if err := cfg.Validate(); err != nil {
		return trainer.Config{}, fmt.Errorf("train: %w", err)
	}
	if _, err := pretok.New(cfg.Normalization, cfg.Pattern); err != nil {
		return trainer.Config{}, fmt.Errorf("train: %w", err)
	}
	return cfg, nil
}

// Marshal renders the config as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Package main provides the bpe command: train, encode, decode and report.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/born-ml/bpe/internal/config"
	"github.com/born-ml/bpe/internal/logging"
	"github.com/born-ml/bpe/internal/metrics"
	"github.com/born-ml/bpe/internal/serialization"
	"github.com/born-ml/bpe/internal/tokenizer"
	"github.com/born-ml/bpe/internal/trainer"
)

const version = "v0.1.0"

const usage = `Byte-level BPE tokenizer

Usage:
  bpe train   --corpus FILE --out FILE [--config FILE] [--vocab-size N] ...
  bpe encode  --vocab FILE [--text S]      (reads stdin without --text)
  bpe decode  --vocab FILE [--ids "1, 2"]  (reads stdin without --ids)
  bpe report  --vocab FILE [--baseline cl100k_base] [--text S]
  bpe version
`

// errUsage marks command-line mistakes; they exit with status 2.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command and returns the exit status.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cmd := &command{stdin: stdin, stdout: stdout, stderr: stderr}
	var err error
	switch args[0] {
	case "train":
		err = cmd.train(ctx, args[1:])
	case "encode":
		err = cmd.encode(args[1:])
	case "decode":
		err = cmd.decode(args[1:])
	case "report":
		err = cmd.report(args[1:])
	case "version":
		fmt.Fprintf(stdout, "bpe %s\n", version)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
	default:
		err = fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, pflag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "bpe: %v\n\n%s", err, usage)
		return 2
	default:
		fmt.Fprintf(stderr, "bpe: %v\n", err)
		return 1
	}
}

type command struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (c *command) flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments %q", errUsage, fs.Args())
	}
	return nil
}

//nolint:funlen // Flag plumbing.
func (c *command) train(ctx context.Context, args []string) error {
	fs := c.flags("train")
	cfgPath := fs.StringP("config", "c", "", "YAML config file")
	corpus := fs.String("corpus", "", "training corpus, one document per line")
	out := fs.StringP("out", "o", "", "vocabulary file to write")
	vocabSize := fs.Int("vocab-size", 0, "total vocabulary size, atoms included")
	merges := fs.Int("merges", 0, "maximum number of merges")
	minFreq := fs.Int64("min-frequency", 0, "smallest pair count that is merged")
	alphabet := fs.String("alphabet", "", "atom layout: bytes or observed")
	normalize := fs.String("normalize", "", "none, nfc or nfkc")
	pattern := fs.String("pattern", "", `pre-tokenizer regexp, or "indic"`)
	workers := fs.Int("workers", 0, "workers for the initial pair scan (1 = sequential)")
	logLevel := fs.String("log-level", "", "debug, info, warn or error")
	logFormat := fs.String("log-format", "", "text or json")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *corpus == "" || *out == "" {
		return fmt.Errorf("%w: train needs --corpus and --out", errUsage)
	}

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			return err
		}
	}

	overrides := map[string]func(){
		"vocab-size":    func() { cfg.Train.VocabSize = *vocabSize },
		"merges":        func() { cfg.Train.NumMerges = *merges },
		"min-frequency": func() { cfg.Train.MinFrequency = *minFreq },
		"alphabet":      func() { cfg.Train.Alphabet = *alphabet },
		"normalize":     func() { cfg.Train.Normalization = *normalize },
		"pattern":       func() { cfg.Train.Pattern = *pattern },
		"workers":       func() { cfg.Train.Workers = *workers },
		"log-level":     func() { cfg.Log.Level = *logLevel },
		"log-format":    func() { cfg.Log.Format = logging.Format(*logFormat) },
	}
	fs.Visit(func(f *pflag.Flag) {
		if set, ok := overrides[f.Name]; ok {
			set()
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, c.stderr)
	if err != nil {
		return err
	}
	entry := log.WithFields(logrus.Fields{
		"run_id": uuid.NewString(),
		"corpus": *corpus,
	})

	tc, err := cfg.Train.Trainer()
	if err != nil {
		return err
	}
	tr, err := trainer.New(tc, trainer.WithLogger(entry))
	if err != nil {
		return err
	}

	//nolint:gosec // G304: corpus path comes from the command line.
	f, err := os.Open(*corpus)
	if err != nil {
		return fmt.Errorf("failed to open corpus: %w", err)
	}
	res, err := tr.TrainReader(ctx, f)
	_ = f.Close()
	if err != nil {
		return err
	}

	if err := serialization.SaveFile(*out, res.Vocabulary); err != nil {
		return err
	}
	entry.WithFields(logrus.Fields{
		"merges":     res.Merges,
		"vocab_size": res.Vocabulary.Size(),
		"out":        *out,
	}).Info("vocabulary saved")

	rep := metrics.Report{
		OriginalTokens: int(res.InitialLen),
		EncodedTokens:  int(res.FinalLen),
		Ratio:          res.CompressionRatio(),
	}
	fmt.Fprintf(c.stdout, "Vocabulary size: %d (%d merges)\n", res.Vocabulary.Size(), res.Merges)
	fmt.Fprint(c.stdout, rep.String())
	return nil
}

// load opens a vocabulary and builds its tokenizer.
func load(path string) (*tokenizer.BPETokenizer, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: --vocab is required", errUsage)
	}
	v, err := serialization.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return tokenizer.NewBPETokenizer(v)
}

// input returns the flag value when set, stdin otherwise. One trailing
// line ending is dropped from stdin.
func (c *command) input(fs *pflag.FlagSet, name, value string) (string, error) {
	if fs.Changed(name) {
		return value, nil
	}
	data, err := io.ReadAll(c.stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	in, ok := strings.CutSuffix(string(data), "\n")
	if ok {
		in = strings.TrimSuffix(in, "\r")
	}
	return in, nil
}

func (c *command) encode(args []string) error {
	fs := c.flags("encode")
	vocabPath := fs.StringP("vocab", "v", "", "vocabulary file")
	text := fs.StringP("text", "t", "", "text to encode (default: stdin)")
	if err := parse(fs, args); err != nil {
		return err
	}

	tok, err := load(*vocabPath)
	if err != nil {
		return err
	}
	in, err := c.input(fs, "text", *text)
	if err != nil {
		return err
	}

	ids, err := tok.Encode(in)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, tokenizer.FormatIDs(ids))
	return nil
}

func (c *command) decode(args []string) error {
	fs := c.flags("decode")
	vocabPath := fs.StringP("vocab", "v", "", "vocabulary file")
	idsText := fs.StringP("ids", "i", "", `IDs such as "1, 2, 3" (default: stdin)`)
	lossy := fs.Bool("lossy", false, "replace invalid UTF-8 with U+FFFD")
	if err := parse(fs, args); err != nil {
		return err
	}

	tok, err := load(*vocabPath)
	if err != nil {
		return err
	}
	in, err := c.input(fs, "ids", *idsText)
	if err != nil {
		return err
	}
	ids, err := tokenizer.ParseIDs(in)
	if err != nil {
		return err
	}

	var text string
	if *lossy {
		text, err = tok.DecodeLossy(ids)
	} else {
		text, err = tok.Decode(ids)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, text)
	return nil
}

func (c *command) report(args []string) error {
	fs := c.flags("report")
	vocabPath := fs.StringP("vocab", "v", "", "vocabulary file")
	text := fs.StringP("text", "t", "", "text to measure (default: stdin)")
	baseline := fs.String("baseline", "", `tiktoken encoding to compare with, e.g. "`+tokenizer.DefaultBaseline+`"`)
	if err := parse(fs, args); err != nil {
		return err
	}

	tok, err := load(*vocabPath)
	if err != nil {
		return err
	}
	in, err := c.input(fs, "text", *text)
	if err != nil {
		return err
	}

	var counter metrics.Counter
	if *baseline != "" {
		b, err := tokenizer.NewBaseline(*baseline)
		if err != nil {
			return err
		}
		counter = b
	}

	rep, err := metrics.Measure(tok, in, counter)
	if err != nil {
		return err
	}
	fmt.Fprint(c.stdout, rep.String())
	return nil
}

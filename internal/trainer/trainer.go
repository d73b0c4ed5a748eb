// Package trainer learns an ordered BPE merge list from a corpus.
package trainer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/born-ml/bpe/internal/logging"
	"github.com/born-ml/bpe/internal/parallel"
	"github.com/born-ml/bpe/internal/pretok"
	"github.com/born-ml/bpe/internal/stats"
	"github.com/born-ml/bpe/internal/vocab"
)

// ErrEmptyCorpus is returned when there is nothing to train on.
var ErrEmptyCorpus = stats.ErrEmptyCorpus

// maxLineSize bounds a single corpus line read by TrainReader.
const maxLineSize = 64 * 1024 * 1024

// Result describes a finished training run.
type Result struct {
	Vocabulary *vocab.Vocabulary
	Documents  int
	Sequences  int   // distinct pre-tokenized pieces
	Merges     int   // merges learned
	InitialLen int64 // corpus length in atoms
	FinalLen   int64 // corpus length in symbols after all merges
	Duration   time.Duration
}

// CompressionRatio is InitialLen / FinalLen on the training corpus.
func (r *Result) CompressionRatio() float64 {
	if r.FinalLen == 0 {
		return 0
	}
	return float64(r.InitialLen) / float64(r.FinalLen)
}

// Option configures a Trainer.
type Option func(*Trainer)

// WithLogger sets the progress logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(t *Trainer) {
		t.log = log
	}
}

// Trainer runs BPE training. A Trainer may be reused; runs do not share state.
type Trainer struct {
	cfg  Config
	prep *pretok.Preparer
	log  logrus.FieldLogger
}

// New validates cfg and returns a Trainer.
func New(cfg Config, opts ...Option) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prep, err := pretok.New(cfg.Normalization, cfg.Pattern)
	if err != nil {
		return nil, err
	}

	t := &Trainer{
		cfg:  cfg,
		prep: prep,
		log:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// TrainReader trains on r, one document per line.
func (t *Trainer) TrainReader(ctx context.Context, r io.Reader) (*Result, error) {
	docs, err := ReadLines(r)
	if err != nil {
		return nil, err
	}
	return t.Train(ctx, docs)
}

// Train learns merges from docs until the vocabulary size or merge cap is
// reached, or no pair reaches the minimum frequency.
func (t *Trainer) Train(ctx context.Context, docs []string) (*Result, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyCorpus
	}
	start := time.Now()

	pieces, weights, err := t.collect(ctx, docs)
	if err != nil {
		return nil, err
	}

	table, err := t.alphabet(pieces)
	if err != nil {
		return nil, err
	}

	limit, err := t.mergeLimit(table.Len())
	if err != nil {
		return nil, err
	}

	seqs := make([][]int32, len(pieces))
	for i, p := range pieces {
		seq := make([]int32, len(p))
		for k := range len(p) {
			id, _ := table.ID(p[k])
			seq[k] = id
		}
		seqs[i] = seq
	}

	corpus, err := stats.NewWeightedCorpus(seqs, weights)
	if err != nil {
		return nil, err
	}
	if corpus.Len() == 0 {
		return nil, fmt.Errorf("%w: all %d documents are empty", ErrEmptyCorpus, len(docs))
	}
	initialLen := corpus.WeightedLen()

	engine, err := stats.ComputeInitial(ctx, corpus, t.cfg.Parallel)
	if err != nil {
		return nil, err
	}

	t.log.WithFields(logrus.Fields{
		"documents": len(docs),
		"sequences": len(seqs),
		"atoms":     table.NumAtoms(),
		"symbols":   initialLen,
		"limit":     limit,
	}).Info("training started")

	merges, err := t.learn(ctx, NewLearner(table, engine, t.cfg.MinFrequency), limit)
	if err != nil {
		return nil, err
	}

	v, err := table.Freeze(vocab.Meta{
		Normalization: string(t.prep.Normalization()),
		Pattern:       t.prep.Pattern(),
	})
	if err != nil {
		return nil, err
	}

	res := &Result{
		Vocabulary: v,
		Documents:  len(docs),
		Sequences:  len(seqs),
		Merges:     merges,
		InitialLen: initialLen,
		FinalLen:   corpus.WeightedLen(),
		Duration:   time.Since(start),
	}

	t.log.WithFields(logrus.Fields{
		"merges":     res.Merges,
		"vocab_size": v.Size(),
		"ratio":      fmt.Sprintf("%.2f", res.CompressionRatio()),
		"elapsed":    res.Duration.Round(time.Millisecond),
	}).Info("training finished")

	return res, nil
}

// learn runs learner steps until limit merges (negative: unlimited) or no
// eligible pair remains. Cancellation is checked between merges.
func (t *Trainer) learn(ctx context.Context, l *Learner, limit int) (int, error) {
	done := 0
	lastPercent := -1
	for limit < 0 || done < limit {
		if err := ctx.Err(); err != nil {
			return done, err
		}

		rule, count, ok, err := l.Step()
		if err != nil {
			return done, err
		}
		if !ok {
			break
		}
		done++

		entry := t.log.WithFields(logrus.Fields{
			"rank":  rule.Rank,
			"pair":  rule.Pair().String(),
			"id":    rule.Result,
			"count": count,
		})
		if limit > 0 {
			if percent := done * 100 / limit; percent > lastPercent {
				lastPercent = percent
				entry.WithField("progress", fmt.Sprintf("%d%%", percent)).Info("merge learned")
				continue
			}
		}
		entry.Debug("merge learned")
	}
	return done, nil
}

// collect normalizes and splits every document, then folds identical pieces
// into one weighted sequence. Pieces are returned in sorted order so the
// corpus layout never depends on map iteration.
func (t *Trainer) collect(ctx context.Context, docs []string) ([]string, []int64, error) {
	split := make([][]string, len(docs))
	err := parallel.ForContext(ctx, len(docs), func(_ context.Context, i int) error {
		pieces, err := t.prep.Pieces(docs[i])
		if err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
		split[i] = pieces
		return nil
	}, t.cfg.Parallel)
	if err != nil {
		return nil, nil, err
	}

	counts := make(map[string]int64)
	for _, pieces := range split {
		for _, p := range pieces {
			counts[p]++
		}
	}

	pieces := make([]string, 0, len(counts))
	for p := range counts {
		pieces = append(pieces, p)
	}
	slices.Sort(pieces)

	weights := make([]int64, len(pieces))
	for i, p := range pieces {
		weights[i] = counts[p]
	}
	return pieces, weights, nil
}

// alphabet interns the atoms in ascending byte order and reserves UNK when
// the alphabet does not cover every byte.
func (t *Trainer) alphabet(pieces []string) (*vocab.SymbolTable, error) {
	var seen [256]bool
	switch t.cfg.Alphabet {
	case vocab.AlphabetBytes:
		for i := range seen {
			seen[i] = true
		}
	default:
		for _, p := range pieces {
			for k := range len(p) {
				seen[p[k]] = true
			}
		}
	}

	table := vocab.NewSymbolTable()
	for b, ok := range seen {
		if !ok {
			continue
		}
		if _, err := table.Intern(byte(b)); err != nil {
			return nil, err
		}
	}
	if table.NumAtoms() < 256 {
		table.ReserveUnknown()
	}
	return table, nil
}

// mergeLimit turns VocabSize and NumMerges into a merge budget; -1 means
// unlimited.
func (t *Trainer) mergeLimit(base int) (int, error) {
	limit := -1
	if t.cfg.VocabSize > 0 {
		if t.cfg.VocabSize < base {
			return 0, fmt.Errorf("%w: %d < %d", ErrVocabSizeTooSmall, t.cfg.VocabSize, base)
		}
		limit = t.cfg.VocabSize - base
	}
	if t.cfg.NumMerges > 0 && (limit < 0 || t.cfg.NumMerges < limit) {
		limit = t.cfg.NumMerges
	}
	return limit, nil
}

// ReadLines reads one document per line. Line terminators are stripped.
func ReadLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var docs []string
	for sc.Scan() {
		docs = append(docs, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	return docs, nil
}

package trainer

import (
	"fmt"

	"github.com/born-ml/bpe/internal/stats"
	"github.com/born-ml/bpe/internal/vocab"
)

// Learner performs single greedy merge steps. Selection is strictly
// sequential: each step observes every earlier merge.
type Learner struct {
	table   *vocab.SymbolTable
	engine  *stats.Engine
	minFreq int64
}

// NewLearner couples a symbol table with the statistics of its corpus.
func NewLearner(table *vocab.SymbolTable, engine *stats.Engine, minFreq int64) *Learner {
	return &Learner{table: table, engine: engine, minFreq: minFreq}
}

// Step selects the most frequent pair (ties to the smallest pair), assigns
// it a new symbol, records the rule and rewrites the corpus. It returns the
// rule, the pair's count before the merge, and false when no pair reaches
// the minimum frequency.
func (l *Learner) Step() (vocab.MergeRule, int64, bool, error) {
	p, count, ok := l.engine.Best(l.minFreq)
	if !ok {
		return vocab.MergeRule{}, 0, false, nil
	}

	rule, err := l.table.AddMerge(p.Left, p.Right)
	if err != nil {
		return vocab.MergeRule{}, 0, false, err
	}
	if _, err := l.engine.ApplyMerge(rule); err != nil {
		return vocab.MergeRule{}, 0, false, fmt.Errorf("apply merge %s -> %d: %w", p, rule.Result, err)
	}

	return rule, count, true, nil
}

package serialization

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/born-ml/bpe/internal/vocab"
)

// ReadMergesJSON imports a merge table stored as a JSON object mapping
// "left,right" to the result ID, with byte atoms 0..255 implied and results
// numbered from 256 in learning order. The result is a bytes-alphabet
// vocabulary without normalization or pre-splitting.
func ReadMergesJSON(r io.Reader) (*vocab.Vocabulary, error) {
	var raw map[string]int64
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedVocabulary, &ValidationError{
			Type: "json", Details: err.Error(), Err: err,
		})
	}

	merges := make([]vocab.MergeRule, 0, len(raw))
	for key, result := range raw {
		l, r, ok := strings.Cut(key, ",")
		left, errL := strconv.ParseInt(strings.TrimSpace(l), 10, 32)
		right, errR := strconv.ParseInt(strings.TrimSpace(r), 10, 32)
		if !ok || errL != nil || errR != nil {
			return nil, malformed(0, "json", nil, "bad pair key %q", key)
		}
		if result < 256 || result > MaxMerges+256 {
			return nil, malformed(0, "json", nil, "pair %q has result %d outside the merge range", key, result)
		}
		merges = append(merges, vocab.MergeRule{
			Left:   int32(left),
			Right:  int32(right),
			Result: int32(result), //nolint:gosec // G115: range checked above.
		})
	}

	sort.Slice(merges, func(i, j int) bool {
		return merges[i].Result < merges[j].Result
	})
	for i := range merges {
		merges[i].Rank = i
	}

	atoms := make([]byte, 256)
	for i := range atoms {
		atoms[i] = byte(i)
	}

	v, err := vocab.New(atoms, false, merges, vocab.Meta{Normalization: "none"})
	if err != nil {
		return nil, malformed(0, "layout", err, "%v", err)
	}
	return v, nil
}

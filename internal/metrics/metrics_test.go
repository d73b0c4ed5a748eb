package metrics

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/bpe/internal/tokenizer"
	"github.com/born-ml/bpe/internal/vocab"
)

func TestCompressionRatio(t *testing.T) {
	ratio, err := CompressionRatio(49513, 5803)
	require.NoError(t, err)
	assert.InDelta(t, 8.53, ratio, 0.005)

	ratio, err = CompressionRatio(9, 3)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, ratio, 1e-12)

	_, err = CompressionRatio(10, 0)
	assert.ErrorIs(t, err, ErrEmptyEncoding)

	_, err = CompressionRatio(-1, 3)
	assert.Error(t, err)
}

type fakeCounter struct{ n int }

func (f fakeCounter) Count(string) int { return f.n }
func (f fakeCounter) Name() string     { return "fake" }

type failingEncoder struct{}

func (failingEncoder) Encode(string) ([]int32, error) { return nil, errors.New("boom") }

func scenarioTokenizer(t *testing.T) *tokenizer.BPETokenizer {
	t.Helper()
	v, err := vocab.New([]byte("abc"), true, []vocab.MergeRule{
		{Left: 0, Right: 0, Result: 4, Rank: 0},
		{Left: 0, Right: 1, Result: 5, Rank: 1},
		{Left: 4, Right: 5, Result: 6, Rank: 2},
	}, vocab.Meta{})
	require.NoError(t, err)
	tok, err := tokenizer.NewBPETokenizer(v)
	require.NoError(t, err)
	return tok
}

func TestMeasure(t *testing.T) {
	tok := scenarioTokenizer(t)

	rep, err := Measure(tok, "aaabaaabcx", fakeCounter{n: 5})
	require.NoError(t, err)

	assert.Equal(t, 10, rep.OriginalTokens)
	assert.Equal(t, 4, rep.EncodedTokens) // aaab aaab c <unk>
	assert.Equal(t, 1, rep.Unknown)
	assert.InDelta(t, 2.5, rep.Ratio, 1e-12)
	require.NotNil(t, rep.Baseline)
	assert.Equal(t, Baseline{Name: "fake", Tokens: 5, Ratio: 2}, *rep.Baseline)
}

func TestMeasure_CountsNormalizedBytes(t *testing.T) {
	atoms := make([]byte, 256)
	for i := range atoms {
		atoms[i] = byte(i)
	}
	v, err := vocab.New(atoms, false, nil, vocab.Meta{Normalization: "nfkc"})
	require.NoError(t, err)
	tok, err := tokenizer.NewBPETokenizer(v)
	require.NoError(t, err)

	// U+FB01 is three bytes and folds to "fi" under NFKC.
	rep, err := Measure(tok, "\ufb01", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.OriginalTokens)
	assert.Equal(t, 2, rep.EncodedTokens)
	assert.InDelta(t, 1.0, rep.Ratio, 1e-12)
}

func TestMeasure_Empty(t *testing.T) {
	rep, err := Measure(scenarioTokenizer(t), "", fakeCounter{n: 0})
	require.NoError(t, err)
	assert.Zero(t, rep.Ratio)
	assert.Nil(t, rep.Baseline)
}

func TestMeasure_EncodeError(t *testing.T) {
	_, err := Measure(failingEncoder{}, "x", nil)
	assert.ErrorContains(t, err, "boom")
}

func TestReport_String(t *testing.T) {
	rep := Report{OriginalTokens: 49513, EncodedTokens: 5803, Ratio: 49513.0 / 5803.0}
	out := rep.String()

	assert.Contains(t, out, "Original tokens: 49513\n")
	assert.Contains(t, out, "BPE IDs length: 5803\n")
	assert.Contains(t, out, "Compression ratio: 8.53X\n")
	assert.NotContains(t, out, "Baseline")
	assert.NotContains(t, out, "Unknown")

	rep.Unknown = 2
	rep.Baseline = &Baseline{Name: "cl100k_base", Tokens: 20000, Ratio: 2.47565}
	out = rep.String()
	assert.True(t, strings.HasSuffix(out, "Baseline cl100k_base: 20000 tokens (2.48X)\n"), out)
	assert.Contains(t, out, "Unknown bytes: 2\n")
}

package tokenizer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/bpe/internal/parallel"
	"github.com/born-ml/bpe/internal/pretok"
	"github.com/born-ml/bpe/internal/trainer"
	"github.com/born-ml/bpe/internal/vocab"
)

var hindiCorpus = []string{
	"हरि तुम हरो जन की भीर।",
	"नैना निपट बंकट छबि अटके।",
	"हरि तुम हरो जन की भीर, द्रोपदी की लाज राखी।",
	"मेरे तो गिरधर गोपाल दूसरो न कोई।",
	"जाके सिर मोर मुकुट मेरो पति सोई।",
}

// scenarioVocab has atoms a=0 b=1 c=2, UNK=3 and rules
// (a,a)->4, (a,b)->5, (4,5)->6.
func scenarioVocab(t *testing.T) *vocab.Vocabulary {
	t.Helper()
	v, err := vocab.New([]byte("abc"), true, []vocab.MergeRule{
		{Left: 0, Right: 0, Result: 4, Rank: 0},
		{Left: 0, Right: 1, Result: 5, Rank: 1},
		{Left: 4, Right: 5, Result: 6, Rank: 2},
	}, vocab.Meta{})
	require.NoError(t, err)
	return v
}

func newTokenizer(t *testing.T, v *vocab.Vocabulary) *BPETokenizer {
	t.Helper()
	tok, err := NewBPETokenizer(v)
	require.NoError(t, err)
	return tok
}

func train(t *testing.T, cfg trainer.Config, docs []string) *vocab.Vocabulary {
	t.Helper()
	tr, err := trainer.New(cfg)
	require.NoError(t, err)
	res, err := tr.Train(context.Background(), docs)
	require.NoError(t, err)
	return res.Vocabulary
}

func TestBPE_EncodeScenario(t *testing.T) {
	tok := newTokenizer(t, scenarioVocab(t))

	tests := []struct {
		name string
		text string
		want []int32
	}{
		{"full merge", "aaab", []int32{6}},
		{"trailing atom", "aaabc", []int32{6, 2}},
		{"unknown byte", "aaad", []int32{4, 0, 3}},
		{"no rule applies", "cba", []int32{2, 1, 0}},
		{"leftmost first", "aaaa", []int32{4, 4}},
		{"empty", "", []int32{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tok.Encode(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, append([]int32{}, got...))
		})
	}
}

func TestBPE_EncodeWithStats(t *testing.T) {
	tok := newTokenizer(t, scenarioVocab(t))

	ids, st, err := tok.EncodeWithStats("aaxdd")
	require.NoError(t, err)
	assert.Equal(t, []int32{4, 3, 3, 3}, ids)
	assert.Equal(t, EncodeStats{Bytes: 5, Pieces: 1, Unknown: 3}, st)
}

func TestBPE_Decode(t *testing.T) {
	tok := newTokenizer(t, scenarioVocab(t))

	tests := []struct {
		name   string
		tokens []int32
		want   string
	}{
		{"merged", []int32{6, 2}, "aaabc"},
		{"unk", []int32{4, 0, 3}, "aaa�"},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tok.Decode(tt.tokens)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBPE_DecodeInvalidID(t *testing.T) {
	tok := newTokenizer(t, scenarioVocab(t))

	for _, ids := range [][]int32{{0, 7}, {-1}, {1 << 20}} {
		_, err := tok.Decode(ids)
		assert.ErrorIs(t, err, vocab.ErrUnknownSymbol, "ids %v", ids)
	}
}

func TestBPE_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		cfg  trainer.Config
		text string
	}{
		{
			name: "observed alphabet, whole lines",
			cfg: trainer.Config{
				NumMerges: 40, MinFrequency: 2,
				Alphabet: vocab.AlphabetObserved, Parallel: parallel.Sequential(),
			},
			text: "हरि तुम हरो जन की भीर।",
		},
		{
			name: "byte alphabet, indic pattern",
			cfg: trainer.Config{
				NumMerges: 60, MinFrequency: 2,
				Alphabet: vocab.AlphabetBytes, Pattern: pretok.IndicPattern,
				Parallel: parallel.Sequential(),
			},
			text: "मेरे तो गिरधर गोपाल, abc 123!",
		},
		{
			name: "byte alphabet, invalid utf-8",
			cfg: trainer.Config{
				NumMerges: 20, MinFrequency: 2,
				Alphabet: vocab.AlphabetBytes, Pattern: pretok.IndicPattern,
				Parallel: parallel.Sequential(),
			},
			text: "\xff\xfeहरि\x80",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := newTokenizer(t, train(t, tt.cfg, hindiCorpus))

			ids, err := tok.Encode(tt.text)
			require.NoError(t, err)
			got, err := tok.Decode(ids)
			require.NoError(t, err)
			assert.Equal(t, tt.text, got)
		})
	}
}

func TestBPE_RoundTripTrainingCorpus(t *testing.T) {
	cfg := trainer.Config{
		VocabSize: 300, MinFrequency: 1,
		Alphabet: vocab.AlphabetObserved, Pattern: pretok.IndicPattern,
		Parallel: parallel.Sequential(),
	}
	tok := newTokenizer(t, train(t, cfg, hindiCorpus))

	for _, doc := range hindiCorpus {
		ids, st, err := tok.EncodeWithStats(doc)
		require.NoError(t, err)
		assert.Zero(t, st.Unknown)
		assert.Less(t, len(ids), len(doc))

		got, err := tok.Decode(ids)
		require.NoError(t, err)
		assert.Equal(t, doc, got)
	}
}

func TestBPE_EncodeMatchesRankOrderReplay(t *testing.T) {
	cfg := trainer.Config{
		NumMerges: 120, MinFrequency: 1,
		Alphabet: vocab.AlphabetObserved, Parallel: parallel.Sequential(),
	}
	v := train(t, cfg, hindiCorpus)
	tok := newTokenizer(t, v)

	texts := append([]string{"aaaa", "हरि हरि हरि", "नैना नैना"}, hindiCorpus...)
	for _, text := range texts {
		atoms, _ := tok.Atoms(text)
		want := ApplyRules(atoms, v.Merges())

		got, err := tok.Encode(text)
		require.NoError(t, err)
		assert.Equal(t, want, got, "text %q", text)
	}
}

func TestApplyRules_OrderMatters(t *testing.T) {
	v := scenarioVocab(t)
	atoms := []int32{0, 0, 0, 1} // aaab

	assert.Equal(t, []int32{6}, ApplyRules(atoms, v.Merges()))

	rules := v.Merges()
	reversed := []vocab.MergeRule{rules[2], rules[1], rules[0]}
	assert.Equal(t, []int32{4, 5}, ApplyRules(atoms, reversed))
	assert.Equal(t, []int32{0, 0, 0, 1}, atoms, "input must not be modified")
}

func TestBPE_Deterministic(t *testing.T) {
	cfg := trainer.Config{
		NumMerges: 50, MinFrequency: 2,
		Alphabet: vocab.AlphabetBytes, Pattern: pretok.IndicPattern,
		Parallel: parallel.Sequential(),
	}
	tok := newTokenizer(t, train(t, cfg, hindiCorpus))

	text := strings.Join(hindiCorpus, "\n")
	first, err := tok.Encode(text)
	require.NoError(t, err)
	for range 5 {
		again, err := tok.Encode(text)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestBPE_MoreMergesNeverLonger(t *testing.T) {
	text := strings.Join(hindiCorpus, " ")

	prev := -1
	for _, merges := range []int{0, 10, 40, 80, 160} {
		cfg := trainer.Config{
			VocabSize: 256 + merges, MinFrequency: 1,
			Alphabet: vocab.AlphabetBytes, Parallel: parallel.Sequential(),
		}
		tok := newTokenizer(t, train(t, cfg, hindiCorpus))

		ids, err := tok.Encode(text)
		require.NoError(t, err)
		if prev >= 0 {
			assert.LessOrEqual(t, len(ids), prev, "merges=%d", merges)
		}
		prev = len(ids)
	}
}

func TestBPE_EncodeBatch(t *testing.T) {
	tok := newTokenizer(t, scenarioVocab(t))
	texts := []string{"aaab", "", "abc", "aaaa", "zz"}

	got, err := tok.EncodeBatch(context.Background(), texts, parallel.Config{
		Enabled: true, NumWorkers: 3, MinChunkSize: 1,
	})
	require.NoError(t, err)
	require.Len(t, got, len(texts))

	for i, text := range texts {
		want, err := tok.Encode(text)
		require.NoError(t, err)
		assert.Equal(t, want, got[i], "text %q", text)
	}
}

func TestBPE_EncodeBatchCanceled(t *testing.T) {
	tok := newTokenizer(t, scenarioVocab(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tok.EncodeBatch(ctx, []string{"a", "b"}, parallel.Sequential())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBPE_UnknownToken(t *testing.T) {
	observed := newTokenizer(t, scenarioVocab(t))
	assert.Equal(t, int32(3), observed.UnkToken())
	assert.True(t, observed.IsSpecialToken(3))
	assert.False(t, observed.IsSpecialToken(4))
	assert.Equal(t, 7, observed.VocabSize())

	bytes := newTokenizer(t, train(t, trainer.Config{
		VocabSize: 256, MinFrequency: 2,
		Alphabet: vocab.AlphabetBytes, Parallel: parallel.Sequential(),
	}, []string{"ab"}))
	assert.Equal(t, vocab.NoSymbol, bytes.UnkToken())
	assert.False(t, bytes.IsSpecialToken(vocab.NoSymbol))
	assert.Equal(t, 256, bytes.VocabSize())
}

func TestBPE_DecodeLossy(t *testing.T) {
	v, err := vocab.New(allBytes(), false, nil, vocab.Meta{})
	require.NoError(t, err)
	tok := newTokenizer(t, v)

	got, err := tok.DecodeLossy([]int32{0x61, 0xff, 0x62})
	require.NoError(t, err)
	assert.Equal(t, "a�b", got)

	raw, err := tok.Decode([]int32{0x61, 0xff, 0x62})
	require.NoError(t, err)
	assert.Equal(t, "a\xffb", raw)
}

func TestBPE_EncodeBytes(t *testing.T) {
	tok := newTokenizer(t, scenarioVocab(t))
	assert.Equal(t, []int32{6, 6}, tok.EncodeBytes([]byte("aaabaaab")))
	assert.Empty(t, tok.EncodeBytes(nil))
}

func TestNewBPETokenizer_BadMeta(t *testing.T) {
	v, err := vocab.New([]byte("a"), true, nil, vocab.Meta{Normalization: "nfd"})
	require.NoError(t, err)
	_, err = NewBPETokenizer(v)
	assert.Error(t, err)
}

func allBytes() []byte {
	out := make([]byte, 256)
	for i := range out {
		out[i] = byte(i)
	}
	return out
}

func BenchmarkBPE_Encode(b *testing.B) {
	tr, err := trainer.New(trainer.Config{
		NumMerges: 200, MinFrequency: 1,
		Alphabet: vocab.AlphabetBytes, Pattern: pretok.IndicPattern,
		Parallel: parallel.Sequential(),
	})
	require.NoError(b, err)
	res, err := tr.Train(context.Background(), hindiCorpus)
	require.NoError(b, err)
	tok, err := NewBPETokenizer(res.Vocabulary)
	require.NoError(b, err)

	text := strings.Repeat(strings.Join(hindiCorpus, "\n"), 20)
	b.SetBytes(int64(len(text)))
	b.ResetTimer()
	for b.Loop() {
		_, _ = tok.Encode(text)
	}
}

package pretok

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNormalization(t *testing.T) {
	tests := []struct {
		in      string
		want    Normalization
		wantErr bool
	}{
		{in: "", want: NormNone},
		{in: "none", want: NormNone},
		{in: "NFC", want: NormNFC},
		{in: " nfkc ", want: NormNFKC},
		{in: "nfd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseNormalization(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalization_Apply(t *testing.T) {
	// U+0958 is a composition exclusion: NFC yields consonant + nukta.
	assert.Equal(t, "\u0915\u093c", NormNFC.Apply("\u0958"))
	assert.Equal(t, "\u0958", NormNone.Apply("\u0958"))

	assert.Equal(t, "\u00e9", NormNFC.Apply("e\u0301"))
	assert.Equal(t, "e\u0301", NormNone.Apply("e\u0301"))
	assert.Equal(t, "fi", NormNFKC.Apply("\ufb01"))

	invalid := "a\xffb"
	assert.Equal(t, invalid, NormNFC.Apply(invalid))
}

func TestPreparer_Pieces(t *testing.T) {
	p, err := New("none", IndicPattern)
	require.NoError(t, err)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "hindi",
			text: "हरि तुम हरो जन की भीर।",
			want: []string{"हरि", " तुम", " हरो", " जन", " की", " भीर", "।"},
		},
		{
			name: "mixed",
			text: "abc 123, ok!",
			want: []string{"abc", " 123", ",", " ok", "!"},
		},
		{
			name: "trailing space",
			text: "a  b  ",
			want: []string{"a", " ", " b", "  "},
		},
		{
			name: "empty",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Pieces(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.text, strings.Join(got, ""))
		})
	}
}

func TestPreparer_NoPattern(t *testing.T) {
	p, err := New("", "")
	require.NoError(t, err)

	got, err := p.Pieces("one two")
	require.NoError(t, err)
	assert.Equal(t, []string{"one two"}, got)
	assert.Equal(t, NormNone, p.Normalization())
	assert.Empty(t, p.Pattern())
}

func TestPreparer_InvalidUTF8NotSplit(t *testing.T) {
	p, err := New("nfc", IndicPattern)
	require.NoError(t, err)

	text := "ab \xff cd"
	got, err := p.Pieces(text)
	require.NoError(t, err)
	assert.Equal(t, []string{text}, got)
}

func TestPreparer_UncoveredRunesKept(t *testing.T) {
	p, err := New("none", `[a-z]+`)
	require.NoError(t, err)

	got, err := p.Pieces("ab-cd  e")
	require.NoError(t, err)
	assert.Equal(t, []string{"ab", "-", "cd", "  ", "e"}, got)
}

func TestNew_Errors(t *testing.T) {
	_, err := New("bogus", "")
	require.Error(t, err)

	_, err = New("none", `(unclosed`)
	require.Error(t, err)
}

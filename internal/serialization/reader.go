package serialization

import (
	"bufio"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/born-ml/bpe/internal/pretok"
	"github.com/born-ml/bpe/internal/vocab"
)

// ReaderOptions configures ReadVocabulary.
type ReaderOptions struct {
	ValidationLevel ValidationLevel // Validation strictness level
}

// LoadFile reads a vocabulary file with strict validation.
func LoadFile(path string) (*vocab.Vocabulary, error) {
	return LoadFileWithOptions(path, ReaderOptions{ValidationLevel: ValidationStrict})
}

// LoadFileWithOptions reads a vocabulary file with custom options.
func LoadFileWithOptions(path string, opts ReaderOptions) (*vocab.Vocabulary, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for vocabulary loading
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	v, err := ReadVocabulary(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// ReadVocabulary parses and validates a vocabulary. Nothing is returned
// unless the whole file is valid.
func ReadVocabulary(r io.Reader, opts ReaderOptions) (*vocab.Vocabulary, error) {
	p := &parser{
		br:   bufio.NewReader(r),
		hash: sha256.New(),
		opts: opts,
	}
	return p.parse()
}

// parser reads one line at a time and hashes every line before the
// checksum line.
type parser struct {
	br   *bufio.Reader
	hash hash.Hash
	opts ReaderOptions
	line int
}

// next returns the next line without its LF. io.EOF is returned only when
// no bytes remain.
func (p *parser) next() (string, error) {
	var sb strings.Builder
	for {
		chunk, err := p.br.ReadSlice('\n')
		sb.Write(chunk)
		if sb.Len() > MaxLineLen {
			return "", malformed(p.line+1, "syntax", ErrLineTooLong, "more than %d bytes", MaxLineLen)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && (!errors.Is(err, io.EOF) || sb.Len() == 0) {
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			return "", fmt.Errorf("failed to read line %d: %w", p.line+1, err)
		}
		break
	}

	p.line++
	raw := sb.String()
	if !strings.HasSuffix(raw, "\n") {
		return "", malformed(p.line, "syntax", nil, "missing line terminator")
	}
	return raw[:len(raw)-1], nil
}

// body reads a line that is covered by the checksum.
func (p *parser) body() (string, error) {
	s, err := p.next()
	if errors.Is(err, io.EOF) {
		return "", malformed(p.line+1, "truncated", nil, "unexpected end of file")
	}
	if err != nil {
		return "", err
	}
	_, _ = p.hash.Write([]byte(s))
	_, _ = p.hash.Write([]byte{'\n'})
	return s, nil
}

// keyed reads "<key> <value>" and returns value.
func (p *parser) keyed(key string) (string, error) {
	s, err := p.body()
	if err != nil {
		return "", err
	}
	k, v, ok := strings.Cut(s, " ")
	if !ok || k != key || v == "" {
		return "", malformed(p.line, "syntax", nil, "expected %q line, got %q", key, s)
	}
	return v, nil
}

// count reads "<key> <n>" with 0 <= n <= limit.
func (p *parser) count(key string, limit int) (int, error) {
	v, err := p.keyed(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > limit {
		return 0, malformed(p.line, "syntax", nil, "%s count %q out of range [0, %d]", key, v, limit)
	}
	return n, nil
}

// ints splits a line into exactly n non-negative integers.
func (p *parser) ints(s string, n int) ([]int32, error) {
	fields := strings.Split(s, " ")
	if len(fields) != n {
		return nil, malformed(p.line, "syntax", nil, "expected %d fields, got %q", n, s)
	}
	out := make([]int32, n)
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 32)
		if err != nil || v < 0 {
			return nil, malformed(p.line, "syntax", nil, "bad integer %q", f)
		}
		out[i] = int32(v)
	}
	return out, nil
}

//nolint:gocognit,gocyclo,cyclop,funlen // One pass over a fixed line grammar.
func (p *parser) parse() (*vocab.Vocabulary, error) {
	head, err := p.body()
	if err != nil {
		return nil, err
	}
	magic, ver, _ := strings.Cut(head, " ")
	if magic != MagicWord {
		return nil, malformed(p.line, "magic", ErrInvalidMagic, "got %q, expected %q", magic, MagicWord)
	}
	if ver != strconv.Itoa(FormatVersion) {
		return nil, malformed(p.line, "version", ErrUnsupportedVersion, "got %q, expected %d", ver, FormatVersion)
	}

	var meta vocab.Meta
	normText, err := p.keyed(keyNormalize)
	if err != nil {
		return nil, err
	}
	norm, err := pretok.ParseNormalization(normText)
	if err != nil {
		return nil, malformed(p.line, "normalize", err, "%v", err)
	}
	meta.Normalization = string(norm)

	patText, err := p.keyed(keyPattern)
	if err != nil {
		return nil, err
	}
	if patText != none {
		pat, err := strconv.Unquote(patText)
		if err != nil || pat == "" {
			return nil, malformed(p.line, "pattern", nil, "pattern must be a quoted string or %q", none)
		}
		meta.Pattern = pat
	}

	numAtoms, err := p.count(keyAtoms, 256)
	if err != nil {
		return nil, err
	}
	if numAtoms == 0 {
		return nil, malformed(p.line, "atoms", nil, "vocabulary has no atoms")
	}

	atoms := make([]byte, numAtoms)
	for i := range numAtoms {
		s, err := p.body()
		if err != nil {
			return nil, err
		}
		idText, hexText, ok := strings.Cut(s, " ")
		if !ok || idText != strconv.Itoa(i) {
			return nil, malformed(p.line, "atoms", nil, "expected atom %d, got %q", i, s)
		}
		b, err := strconv.ParseUint(hexText, 16, 8)
		if err != nil || len(hexText) != 2 {
			return nil, malformed(p.line, "atoms", nil, "bad byte %q", hexText)
		}
		atoms[i] = byte(b)
		if i > 0 && atoms[i-1] >= atoms[i] {
			return nil, malformed(p.line, "atoms", nil, "byte %02x not above %02x", atoms[i], atoms[i-1])
		}
	}

	unkText, err := p.keyed(keyUnk)
	if err != nil {
		return nil, err
	}
	withUnknown := unkText != none
	switch {
	case withUnknown && numAtoms == 256:
		return nil, malformed(p.line, "unk", nil, "full byte alphabet must not reserve UNK")
	case !withUnknown && numAtoms < 256:
		return nil, malformed(p.line, "unk", nil, "alphabet of %d bytes requires UNK", numAtoms)
	case withUnknown && unkText != strconv.Itoa(numAtoms):
		return nil, malformed(p.line, "unk", nil, "UNK must be %d, got %q", numAtoms, unkText)
	}

	first := int32(numAtoms) //nolint:gosec // G115: at most 256.
	if withUnknown {
		first++
	}

	numMerges, err := p.count(keyMerges, MaxMerges)
	if err != nil {
		return nil, err
	}

	merges := make([]vocab.MergeRule, 0, min(numMerges, 1<<16))
	for i := range numMerges {
		s, err := p.body()
		if err != nil {
			return nil, err
		}
		f, err := p.ints(s, 3)
		if err != nil {
			return nil, err
		}
		want := first + int32(i) //nolint:gosec // G115: bounded by MaxMerges.
		rule := vocab.MergeRule{Left: f[0], Right: f[1], Result: f[2], Rank: i}
		switch {
		case rule.Result != want:
			return nil, malformed(p.line, "merge", vocab.ErrInvalidRule,
				"rank %d produces %d, expected %d (ranks must be contiguous and ascending)", i, rule.Result, want)
		case rule.Left >= want || rule.Right >= want:
			return nil, malformed(p.line, "merge", vocab.ErrInvalidRule,
				"rank %d references an ID not yet defined", i)
		case withUnknown && (rule.Left == first-1 || rule.Right == first-1):
			return nil, malformed(p.line, "merge", vocab.ErrInvalidRule, "rank %d merges UNK", i)
		}
		merges = append(merges, rule)
	}

	computed := p.hash.Sum(nil)
	if err := p.checksum([32]byte(computed)); err != nil {
		return nil, err
	}

	v, err := vocab.New(atoms, withUnknown, merges, meta)
	if err != nil {
		return nil, malformed(0, "layout", err, "%v", err)
	}
	return v, nil
}

// checksum reads the trailer according to the validation level.
func (p *parser) checksum(computed [32]byte) error {
	s, err := p.next()
	if errors.Is(err, io.EOF) {
		if p.opts.ValidationLevel == ValidationStrict {
			return malformed(p.line+1, "checksum", ErrMissingChecksum, "file ends before the checksum line")
		}
		return nil
	}
	if err != nil {
		return err
	}

	k, v, ok := strings.Cut(s, " ")
	if !ok || k != keyChecksum {
		return malformed(p.line, "syntax", nil, "expected %q line, got %q", keyChecksum, s)
	}
	stored, ok := ParseChecksum(v)
	if !ok {
		return malformed(p.line, "checksum", nil, "bad checksum %q", v)
	}
	if p.opts.ValidationLevel != ValidationNone {
		if err := ValidateChecksum(computed, stored); err != nil {
			return malformed(p.line, "checksum", err, "stored %s, computed %s", v, FormatChecksum(computed))
		}
	}

	if _, err := p.next(); !errors.Is(err, io.EOF) {
		if err != nil {
			return err
		}
		return malformed(p.line, "trailing", nil, "content after checksum line")
	}
	return nil
}

package serialization

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/born-ml/bpe/internal/pretok"
	"github.com/born-ml/bpe/internal/vocab"
)

// WriteVocabulary writes v in the vocabulary file format. The output is a
// pure function of v.
func WriteVocabulary(w io.Writer, v *vocab.Vocabulary) error {
	body, err := encode(v)
	if err != nil {
		return err
	}

	sum := ComputeChecksum(body)
	body = fmt.Appendf(body, "%s %s\n", keyChecksum, FormatChecksum(sum))

	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("failed to write vocabulary: %w", err)
	}
	return nil
}

// encode renders everything up to, not including, the checksum line.
func encode(v *vocab.Vocabulary) ([]byte, error) {
	meta := v.Meta()
	norm, err := pretok.ParseNormalization(meta.Normalization)
	if err != nil {
		return nil, fmt.Errorf("failed to encode vocabulary: %w", err)
	}

	atoms := v.Atoms()
	merges := v.Merges()

	var buf bytes.Buffer
	buf.Grow(64 + 8*len(atoms) + 24*len(merges) + len(meta.Pattern))

	fmt.Fprintf(&buf, "%s %d\n", MagicWord, FormatVersion)
	fmt.Fprintf(&buf, "%s %s\n", keyNormalize, norm)
	if meta.Pattern == "" {
		fmt.Fprintf(&buf, "%s %s\n", keyPattern, none)
	} else {
		fmt.Fprintf(&buf, "%s %s\n", keyPattern, strconv.Quote(meta.Pattern))
	}

	fmt.Fprintf(&buf, "%s %d\n", keyAtoms, len(atoms))
	for i, b := range atoms {
		fmt.Fprintf(&buf, "%d %02x\n", i, b)
	}

	if unk := v.Unknown(); unk == vocab.NoSymbol {
		fmt.Fprintf(&buf, "%s %s\n", keyUnk, none)
	} else {
		fmt.Fprintf(&buf, "%s %d\n", keyUnk, unk)
	}

	fmt.Fprintf(&buf, "%s %d\n", keyMerges, len(merges))
	for _, r := range merges {
		fmt.Fprintf(&buf, "%d %d %d\n", r.Left, r.Right, r.Result)
	}

	return buf.Bytes(), nil
}

// SaveFile writes v to path. The file is written next to path and renamed
// into place, so readers never observe a partial vocabulary.
func SaveFile(path string, v *vocab.Vocabulary) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name()) // no-op after a successful rename
	}()

	if err := WriteVocabulary(tmp, v); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

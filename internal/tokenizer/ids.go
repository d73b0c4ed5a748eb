package tokenizer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidID is returned by ParseIDs for a field that is not an integer.
var ErrInvalidID = errors.New("invalid symbol ID")

// ParseIDs parses IDs separated by commas and/or whitespace, as printed by
// FormatIDs. Surrounding brackets are accepted.
func ParseIDs(s string) ([]int32, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})

	out := make([]int32, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.ParseInt(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w %q", ErrInvalidID, f)
		}
		out = append(out, int32(n))
	}
	return out, nil
}

// FormatIDs joins IDs with ", ".
func FormatIDs(ids []int32) string {
	var sb strings.Builder
	for i, id := range ids {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.FormatInt(int64(id), 10))
	}
	return sb.String()
}

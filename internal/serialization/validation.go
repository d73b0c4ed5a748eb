package serialization

// Validation limits for resource protection.
const (
	MaxLineLen = 1 << 20   // longest accepted line, the quoted pattern included
	MaxMerges  = 1<<31 - 1 - 257
)

// ValidationLevel controls the strictness of validation. The structural
// layout (IDs, ranks, references) is always checked; levels only differ in
// how the checksum is treated.
type ValidationLevel int

const (
	// ValidationStrict requires a matching checksum line (default).
	ValidationStrict ValidationLevel = iota
	// ValidationNormal verifies the checksum when present, so hand-written
	// files may omit it.
	ValidationNormal
	// ValidationNone ignores the checksum. Use only with trusted input.
	ValidationNone
)

// String returns the level name.
func (l ValidationLevel) String() string {
	switch l {
	case ValidationStrict:
		return "strict"
	case ValidationNormal:
		return "normal"
	case ValidationNone:
		return "none"
	default:
		return "unknown"
	}
}

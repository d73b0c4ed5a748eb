package serialization

// Format constants.
const (
	MagicWord     = "bpe-vocab"
	FormatVersion = 1

	FileExtension = ".bpe"
)

// Line keywords, in file order.
const (
	keyNormalize = "normalize"
	keyPattern   = "pattern"
	keyAtoms     = "atoms"
	keyUnk       = "unk"
	keyMerges    = "merges"
	keyChecksum  = "checksum"

	// none marks an absent pattern or UNK.
	none = "-"
)

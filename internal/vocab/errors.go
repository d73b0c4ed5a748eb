package vocab

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrUnknownSymbol  = errors.New("unknown symbol")
	ErrAlphabetSealed = errors.New("alphabet is sealed: atoms must be interned before UNK and merges")
	ErrInvalidRule    = errors.New("invalid merge rule")
	ErrInvalidLayout  = errors.New("invalid vocabulary layout")
)

// unknownSymbol wraps ErrUnknownSymbol with the offending ID.
func unknownSymbol(id int32) error {
	return fmt.Errorf("%w: %d", ErrUnknownSymbol, id)
}

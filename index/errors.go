package index

import "github.com/pkg/errors"

var (
	// ErrInvalidDepthLevels is returned by builds whose number of depth levels is zero, negative or exceeds
	// common.MaxDepth.
	ErrInvalidDepthLevels = errors.New("invalid number of depth levels")

	// ErrCorruptIndex is returned when loading a malformed or truncated serialized index.
	ErrCorruptIndex = errors.New("corrupt covering index")
)

package rule

import "errors"

// Sentinel errors returned by Store implementations.
var (
	// ErrInvalidRule is returned for an empty pattern or an
	// out-of-range major/minor action code.
	ErrInvalidRule = errors.New("rule: invalid rule")
	// ErrBusy is returned when the store is in Draining mode.
	ErrBusy = errors.New("rule: store is draining")
	// ErrOutOfMemory is returned when allocation fails during insert.
	ErrOutOfMemory = errors.New("rule: out of memory")
)

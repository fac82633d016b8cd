package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// so the registry can translate them into coded domain errors:
// - ErrNotFound: no record exists under the key
// - ErrAlreadyUsed: the key is already taken
// - ErrUnavailable: backing store temporarily unavailable
//
// Validation and authorization failures never use these; they are decided by
// the registry and expressed with pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrUnavailable = errors.New("unavailable")
)

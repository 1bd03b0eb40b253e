package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally wrapped)
// so services can translate them into domain errors.
//
// These represent factual states about records, not validation failures:
//   - ErrNotFound: record does not exist in store
//   - ErrConflict: a guarded write lost to a concurrent writer (status moved)
//   - ErrAlreadyUsed: a unique value (check-in code, active registration) is taken
//   - ErrInvalidState: record is in the wrong state for the requested write
//   - ErrUnavailable: backend temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)

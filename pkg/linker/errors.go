package linker

import "errors"

var (
	// ErrNoBody is returned when asked to link a method known only by its
	// verdicts.
	ErrNoBody = errors.New("method has no body")
	// ErrInvariantViolation wraps logic faults found while evaluating a body.
	ErrInvariantViolation = errors.New("invariant violation")
)

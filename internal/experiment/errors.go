package experiment

import "errors"

// Typed failure kinds returned by the engine. Callers match with errors.Is;
// the HTTP and CLI layers translate them into actionable messages.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state transition")
	ErrValidation   = errors.New("validation failed")
	ErrRegression   = errors.New("counts would decrease")
)

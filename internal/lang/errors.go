package lang

import "errors"

var (
	// ErrInvalidArgument reports a caller-supplied value that fails a
	// precondition, such as an empty or malformed rename target.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotImplemented reports an optional capability invoked on a
	// construct kind (or grammar) that does not support it. Callers can
	// distinguish it from an empty result.
	ErrNotImplemented = errors.New("not implemented")
)

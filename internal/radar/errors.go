package radar

import "errors"

var (
	// ErrInvalidArgument is returned when an argument has the wrong shape
	// (empty filepath, empty sequence where one is required, ...).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidValue is returned for malformed or inconsistent values:
	// bad time text, reversed intervals, non-UTC zones, unknown keys,
	// mutually exclusive options.
	ErrInvalidValue = errors.New("invalid value")

	// ErrNoPatternMatch is returned when a filename matches none of the
	// network's filename patterns. It wraps ErrInvalidValue.
	ErrNoPatternMatch = newValueError("filename does not match any pattern")

	// ErrKeyNotFound is returned when a valid key is absent from a parsed result.
	ErrKeyNotFound = errors.New("key not found")

	// ErrNotImplemented is returned for unsupported protocols and directory granularities.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnknownNetwork and ErrUnknownRadar are returned by registry lookups.
	ErrUnknownNetwork = errors.New("unknown network")
	ErrUnknownRadar   = errors.New("unknown radar")
)

// wrappedValueError lets ErrNoPatternMatch satisfy errors.Is(err, ErrInvalidValue).
type wrappedValueError struct{ msg string }

func (e *wrappedValueError) Error() string { return e.msg }
func (e *wrappedValueError) Unwrap() error { return ErrInvalidValue }

func newValueError(msg string) error { return &wrappedValueError{msg: msg} }

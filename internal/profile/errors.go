package profile

import "errors"

var (
	// ErrInsufficientData means fewer than two usable (t, z) points survived cleaning.
	// It is an expected outcome for quiet files: no profiles, input left unassigned.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrMalformedInput rejects a whole table: mismatched column lengths,
	// timestamps running backwards, or values that cannot be parsed.
	ErrMalformedInput = errors.New("malformed input")

	ErrInvalidWindow = errors.New("window size must be a positive integer")
	ErrEmptySeries   = errors.New("series is empty")
)

package proxyparse

import "errors"

// These sentinel errors classify why a request head could not be parsed, mirroring
// the taxonomy from spec.md §4.1 / §7.
var (
	// ErrEmpty is returned when the input buffer is empty.
	ErrEmpty = errors.New("proxyparse: empty input")

	// ErrMalformed is returned when the request line has fewer than three
	// space-separated tokens.
	ErrMalformed = errors.New("proxyparse: malformed request line")

	// ErrHeadTooLarge is returned when no blank line terminates the header
	// block before the configured ceiling is reached.
	ErrHeadTooLarge = errors.New("proxyparse: head exceeds size limit")
)

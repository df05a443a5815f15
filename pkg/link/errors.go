package link

import "errors"

var (
	// ErrClosed indicates the underlying stream is closed.
	ErrClosed = errors.New("link closed")
)

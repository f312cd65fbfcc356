package transport

import "errors"

// ErrReadTimeout is returned (wrapped) when a serial read does not
// complete a line within the port's configured timeout.
var ErrReadTimeout = errors.New("transport: read timeout")

// ErrClosed is returned by operations attempted after the transport
// has been stopped.
var ErrClosed = errors.New("transport: closed")

package session

import "errors"

// Error taxonomy for the session layer. Transport/protocol failures
// surfacing from lower layers are wrapped into these as they cross the
// session boundary, so callers can type-switch on the taxonomy
// regardless of which layer actually failed.
var (
	ErrTransport = errors.New("session: transport error")
	ErrProtocol  = errors.New("session: protocol error")
	ErrDevice    = errors.New("session: device error")
	ErrImage     = errors.New("session: image error")
	ErrState     = errors.New("session: state error")
)

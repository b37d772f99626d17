package tunnel

import "errors"

var (
	ErrSessionClosed   = errors.New("TCP session is closed")
	ErrMarkInUse       = errors.New("mark already in use")
	ErrTooManySessions = errors.New("too many sessions")
	ErrIdleTimeout     = errors.New("session idle timeout")
	ErrDisconnected    = errors.New("disconnected by client")
	ErrShutdown        = errors.New("tunnel shutting down")
)

// Messages carried in the ERROR field of FAIL replies.
const (
	msgMissingTarget = "Missing IP or PORT"
	msgConnectFailed = "Failed connecting to target"
	msgSessionClosed = "TCP session is closed"
	msgEmptyForward  = "POST data parse error"
	msgMarkInUse     = "Mark already in use"
	msgTooMany       = "Too many sessions"
	msgShutdown      = "Server shutting down"
)

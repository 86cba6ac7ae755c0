package comport

import "errors"

// ErrWouldBlock is returned by Read when no data is currently available
// and the port is operating in non-blocking mode.
var ErrWouldBlock = errors.New("comport: read would block")

// ErrTimedOut is returned by Read when the underlying driver's own read
// timeout elapses with no data available. This is not a fatal condition:
// the bridge engine treats it the same as ErrWouldBlock (spec §7).
var ErrTimedOut = errors.New("comport: read timed out")

package gateway

import "errors"

var (
	// ErrConnectionUnavailable means there is no open transport, either
	// because the gateway was never connected or the reconnect budget is
	// exhausted.
	ErrConnectionUnavailable = errors.New("gateway connection unavailable")

	// ErrDisconnected rejects a request that was pending when the connection
	// closed.
	ErrDisconnected = errors.New("gateway disconnected while request pending")

	// ErrRequestTimeout evicts a request whose response did not arrive within
	// its timeout.
	ErrRequestTimeout = errors.New("gateway request timed out")
)

package exception

import "errors"

// WS errors
var (
	ErrWebSocketConnectionClose = errors.New("websocket: connection closed")
	ErrWebSocketProtocol        = errors.New("websocket: protocol error")
	ErrWebSocketNilDialer       = errors.New("websocket: nil dialer")
	ErrWebSocketEmptyURL        = errors.New("websocket: empty url")
)

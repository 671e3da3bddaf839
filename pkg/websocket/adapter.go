package websocket

import "context"

// Conn is a minimal interface for a WebSocket connection.
// Read returns one complete message. Write is safe for concurrent use.
type Conn interface {
	Read(ctx context.Context) (MessageType, []byte, error)
	Write(ctx context.Context, msgType MessageType, payload []byte) error
	Close(code CloseCode, reason string) error
}

// Dialer creates new connections.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

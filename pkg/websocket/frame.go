package websocket

import "time"

// Frame is one routed notification. Consumers share it read-only.
type Frame struct {
	// Channel is the subscription channel the payload was published on.
	Channel string
	// Payload is the notification data.
	Payload []byte
	// Received is when the reader goroutine took the message off the wire.
	Received time.Time
}

package mqtt

import "errors"

// Errors reported by the paho transport.
// They never reach Publisher callers, which only see booleans; they are logged at debug level.
var (
	// ErrNotConnected is returned when publishing without an open connection.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrPacketTooLarge is returned when topic and payload do not fit the send buffer.
	ErrPacketTooLarge = errors.New("mqtt: packet exceeds send buffer")

	// ErrPublishTimeout is returned when the broker write does not finish within the socket timeout.
	ErrPublishTimeout = errors.New("mqtt: publish timed out")

	// ErrPublishFailed wraps errors reported by the client library on publish.
	ErrPublishFailed = errors.New("mqtt: publish failed")
)

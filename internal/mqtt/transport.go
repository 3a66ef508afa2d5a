package mqtt

// Transport is the MQTT client library as seen by the Publisher.
// All calls are synchronous and bounded by the implementation's socket timeout.
type Transport interface {
	SetServer(host string, port int)
	SetBufferSize(n int)
	SetWill(topic, payload string)
	// Connect performs one connection attempt. An empty username means no credentials.
	Connect(clientID, username, password string) bool
	Connected() bool
	Publish(topic string, payload []byte) bool
	// PublishRetained publishes a message the broker keeps for late subscribers.
	PublishRetained(topic string, payload []byte) bool
	Disconnect()
	// State returns the last connection state code.
	State() int
}

// Connection state codes returned by Transport.State.
// Positive values are CONNACK refusal codes from the broker.
const (
	StateConnectionTimeout = -4
	StateConnectionLost    = -3
	StateConnectFailed     = -2
	StateDisconnected      = -1
	StateConnected         = 0
	StateBadProtocol       = 1
	StateBadClientID       = 2
	StateUnavailable       = 3
	StateBadCredentials    = 4
	StateUnauthorized      = 5
)

// minSendBufferSize is the smallest send buffer the Publisher configures.
const minSendBufferSize = 500

// publishOverhead is the fixed header plus topic length prefix of a PUBLISH packet.
const publishOverhead = 5 + 2

// packetSize returns the bytes a QoS 0 PUBLISH of topic and payload occupies.
func packetSize(topic string, payload []byte) int {
	return publishOverhead + len(topic) + len(payload)
}

// StateText describes a connection state code for logs.
func StateText(state int) string {
	switch state {
	case StateConnectionTimeout:
		return "connection timeout"
	case StateConnectionLost:
		return "connection lost"
	case StateConnectFailed:
		return "connect failed"
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateBadProtocol:
		return "bad protocol"
	case StateBadClientID:
		return "client id rejected"
	case StateUnavailable:
		return "server unavailable"
	case StateBadCredentials:
		return "bad credentials"
	case StateUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

package mqtt

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"

	"github.com/diversit/esp8266-dsmr/internal/config"
	"github.com/diversit/esp8266-dsmr/internal/log"
)

// PahoTransport implements Transport on top of eclipse/paho.mqtt.golang.
// Retry is owned by the Publisher, so paho's auto-reconnect stays off and
// every Connect builds a fresh client.
type PahoTransport struct {
	host              string
	port              int
	bufferSize        int
	willTopic         string
	willPayload       string
	socketTimeout     time.Duration
	keepAlive         time.Duration
	disconnectTimeout uint

	client pahomqtt.Client
	state  atomic.Int32

	// newClient is swapped in tests
	newClient func(*pahomqtt.ClientOptions) pahomqtt.Client
	log       *log.Logger
}

var _ Transport = (*PahoTransport)(nil)

// NewPahoTransport creates a disconnected transport using the timeouts from cfg
func NewPahoTransport(cfg *config.MQTTConfig, logger *log.Logger) *PahoTransport {
	t := &PahoTransport{
		bufferSize:        minSendBufferSize,
		socketTimeout:     cfg.SocketTimeout,
		keepAlive:         cfg.KeepAlive,
		disconnectTimeout: cfg.DisconnectTimeout,
		newClient:         pahomqtt.NewClient,
		log:               logger,
	}
	t.state.Store(StateDisconnected)
	return t
}

// SetServer sets the broker address used by the next Connect
func (t *PahoTransport) SetServer(host string, port int) {
	t.host = host
	t.port = port
}

// SetBufferSize sets the largest PUBLISH packet the transport will send
func (t *PahoTransport) SetBufferSize(n int) {
	t.bufferSize = n
}

// SetWill registers the last will published by the broker if the connection drops
func (t *PahoTransport) SetWill(topic, payload string) {
	t.willTopic = topic
	t.willPayload = payload
}

// Connect replaces any previous client and performs one connection attempt
func (t *PahoTransport) Connect(clientID, username, password string) bool {
	if t.client != nil {
		t.client.Disconnect(0)
		t.client = nil
	}

	client := t.newClient(t.clientOptions(clientID, username, password))
	t.client = client

	token := client.Connect()
	if !token.WaitTimeout(t.socketTimeout) {
		// Abort the pending attempt; paho keeps dialing otherwise
		client.Disconnect(0)
		t.state.Store(StateConnectionTimeout)
		return false
	}
	if err := token.Error(); err != nil {
		state := connectState(err)
		t.state.Store(int32(state)) // #nosec G115 - state codes are small constants
		t.log.Debug("MQTT connect to %s failed: %v", t.brokerURL(), err)
		return false
	}

	t.state.Store(StateConnected)
	return true
}

func (t *PahoTransport) clientOptions(clientID, username, password string) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(t.brokerURL())
	opts.SetClientID(clientID)
	if username != "" {
		opts.SetUsername(username)
		opts.SetPassword(password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(t.socketTimeout)
	opts.SetWriteTimeout(t.socketTimeout)
	opts.SetPingTimeout(t.socketTimeout)
	opts.SetKeepAlive(t.keepAlive)

	if t.willTopic != "" {
		opts.SetWill(t.willTopic, t.willPayload, 0, false)
	}

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		t.state.Store(StateConnectionLost)
		t.log.Warn("MQTT connection lost: %v", err)
	})
	return opts
}

func (t *PahoTransport) brokerURL() string {
	return "tcp://" + net.JoinHostPort(t.host, strconv.Itoa(t.port))
}

// Connected reports whether the current client has an open connection
func (t *PahoTransport) Connected() bool {
	return t.client != nil && t.client.IsConnectionOpen()
}

// Publish sends payload with QoS 0 and reports whether the write completed
func (t *PahoTransport) Publish(topic string, payload []byte) bool {
	return t.send(topic, payload, false)
}

// PublishRetained sends payload with QoS 0 and the retained flag set
func (t *PahoTransport) PublishRetained(topic string, payload []byte) bool {
	return t.send(topic, payload, true)
}

func (t *PahoTransport) send(topic string, payload []byte, retained bool) bool {
	if err := t.publish(topic, payload, retained); err != nil {
		t.log.Debug("MQTT publish to %s failed: %v", topic, err)
		return false
	}
	return true
}

func (t *PahoTransport) publish(topic string, payload []byte, retained bool) error {
	if !t.Connected() {
		return ErrNotConnected
	}
	if size := packetSize(topic, payload); size > t.bufferSize {
		return fmt.Errorf("%w: %d > %d bytes", ErrPacketTooLarge, size, t.bufferSize)
	}

	token := t.client.Publish(topic, 0, retained, payload)
	if !token.WaitTimeout(t.socketTimeout) {
		return ErrPublishTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Disconnect closes the connection, waiting up to the disconnect timeout for pending work
func (t *PahoTransport) Disconnect() {
	if t.client != nil {
		t.client.Disconnect(t.disconnectTimeout)
	}
	t.state.Store(StateDisconnected)
}

// State returns the last connection state code
func (t *PahoTransport) State() int {
	return int(t.state.Load())
}

// connectState maps a paho connect error to a state code
func connectState(err error) int {
	for code := byte(packets.ErrRefusedBadProtocolVersion); code <= packets.ErrRefusedNotAuthorised; code++ {
		if refused := packets.ConnErrors[code]; refused != nil && errors.Is(err, refused) {
			return int(code)
		}
	}
	return StateConnectFailed
}

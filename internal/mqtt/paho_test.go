package mqtt

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diversit/esp8266-dsmr/internal/config"
	"github.com/diversit/esp8266-dsmr/internal/log"
)

// fakeToken completes immediately unless pending is set
type fakeToken struct {
	pending bool
	err     error
}

func (t *fakeToken) Wait() bool { return !t.pending }

func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.pending }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if !t.pending {
		close(ch)
	}
	return ch
}

func (t *fakeToken) Error() error { return t.err }

// fakePahoClient implements the subset of pahomqtt.Client used by PahoTransport
type fakePahoClient struct {
	opts         *pahomqtt.ClientOptions
	connectToken *fakeToken
	publishToken *fakeToken
	open         bool
	published    []string
	retained     []bool
	disconnects  []uint
}

func (c *fakePahoClient) IsConnected() bool      { return c.open }
func (c *fakePahoClient) IsConnectionOpen() bool { return c.open }

func (c *fakePahoClient) Connect() pahomqtt.Token {
	if !c.connectToken.pending && c.connectToken.err == nil {
		c.open = true
	}
	return c.connectToken
}

func (c *fakePahoClient) Disconnect(quiesce uint) {
	c.disconnects = append(c.disconnects, quiesce)
	c.open = false
}

func (c *fakePahoClient) Publish(topic string, _ byte, retained bool, payload interface{}) pahomqtt.Token {
	c.published = append(c.published, fmt.Sprintf("%s=%s", topic, payload))
	c.retained = append(c.retained, retained)
	return c.publishToken
}

func (c *fakePahoClient) Subscribe(string, byte, pahomqtt.MessageHandler) pahomqtt.Token {
	return &fakeToken{}
}

func (c *fakePahoClient) SubscribeMultiple(map[string]byte, pahomqtt.MessageHandler) pahomqtt.Token {
	return &fakeToken{}
}

func (c *fakePahoClient) Unsubscribe(...string) pahomqtt.Token { return &fakeToken{} }

func (c *fakePahoClient) AddRoute(string, pahomqtt.MessageHandler) {}

func (c *fakePahoClient) OptionsReader() pahomqtt.ClientOptionsReader {
	return pahomqtt.ClientOptionsReader{}
}

func newTestTransport(t *testing.T, client *fakePahoClient) *PahoTransport {
	t.Helper()
	cfg := &config.MQTTConfig{
		SocketTimeout:     5 * time.Second,
		KeepAlive:         15 * time.Second,
		DisconnectTimeout: 250,
	}
	transport := NewPahoTransport(cfg, log.Discard())
	transport.newClient = func(opts *pahomqtt.ClientOptions) pahomqtt.Client {
		client.opts = opts
		return client
	}
	transport.SetServer("broker.local", 1883)
	return transport
}

func newFakePahoClient() *fakePahoClient {
	return &fakePahoClient{connectToken: &fakeToken{}, publishToken: &fakeToken{}}
}

func TestPahoTransport_InitialState(t *testing.T) {
	transport := newTestTransport(t, newFakePahoClient())

	assert.Equal(t, StateDisconnected, transport.State())
	assert.False(t, transport.Connected())
	assert.False(t, transport.Publish("t", []byte("x")))
}

func TestPahoTransport_ConnectOptions(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		client := newFakePahoClient()
		transport := newTestTransport(t, client)
		transport.SetWill("esp-dsmr/ESP-DSMR/status", StatusOffline)

		require.True(t, transport.Connect("ESP-DSMR", "", ""))

		opts := client.opts
		require.Len(t, opts.Servers, 1)
		assert.Equal(t, "tcp://broker.local:1883", opts.Servers[0].String())
		assert.Equal(t, "ESP-DSMR", opts.ClientID)
		assert.Empty(t, opts.Username)
		assert.False(t, opts.AutoReconnect)
		assert.True(t, opts.CleanSession)
		assert.Equal(t, 5*time.Second, opts.ConnectTimeout)
		assert.True(t, opts.WillEnabled)
		assert.Equal(t, "esp-dsmr/ESP-DSMR/status", opts.WillTopic)
		assert.Equal(t, []byte(StatusOffline), opts.WillPayload)
		assert.Equal(t, StateConnected, transport.State())
		assert.True(t, transport.Connected())
	})

	t.Run("credentials", func(t *testing.T) {
		client := newFakePahoClient()
		transport := newTestTransport(t, client)

		require.True(t, transport.Connect("ESP-DSMR", "u", "p"))

		assert.Equal(t, "u", client.opts.Username)
		assert.Equal(t, "p", client.opts.Password)
		assert.False(t, client.opts.WillEnabled)
	})
}

func TestPahoTransport_ConnectFailures(t *testing.T) {
	tests := []struct {
		name  string
		token *fakeToken
		want  int
	}{
		{"timeout", &fakeToken{pending: true}, StateConnectionTimeout},
		{"network error", &fakeToken{err: errors.New("dial tcp: connection refused")}, StateConnectFailed},
		{"bad credentials", &fakeToken{err: fmt.Errorf("%w : %w", packets.ErrorRefusedBadUsernameOrPassword, errors.New("eof"))}, StateBadCredentials},
		{"not authorised", &fakeToken{err: packets.ErrorRefusedNotAuthorised}, StateUnauthorized},
		{"id rejected", &fakeToken{err: packets.ErrorRefusedIDRejected}, StateBadClientID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakePahoClient()
			client.connectToken = tt.token
			transport := newTestTransport(t, client)

			assert.False(t, transport.Connect("ESP-DSMR", "", ""))
			assert.Equal(t, tt.want, transport.State())
			assert.False(t, transport.Connected())
		})
	}
}

func TestPahoTransport_ConnectReplacesClient(t *testing.T) {
	first := newFakePahoClient()
	transport := newTestTransport(t, first)
	require.True(t, transport.Connect("ESP-DSMR", "", ""))

	second := newFakePahoClient()
	transport.newClient = func(opts *pahomqtt.ClientOptions) pahomqtt.Client {
		second.opts = opts
		return second
	}
	require.True(t, transport.Connect("ESP-DSMR", "", ""))

	assert.Equal(t, []uint{0}, first.disconnects)
	assert.False(t, first.open)
	assert.True(t, second.open)
}

func TestPahoTransport_Publish(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client := newFakePahoClient()
		transport := newTestTransport(t, client)
		require.True(t, transport.Connect("ESP-DSMR", "", ""))

		assert.True(t, transport.Publish("esp-dsmr/ESP-DSMR/status", []byte("online")))
		assert.Equal(t, []string{"esp-dsmr/ESP-DSMR/status=online"}, client.published)
		assert.Equal(t, []bool{false}, client.retained)
	})

	t.Run("retained", func(t *testing.T) {
		client := newFakePahoClient()
		transport := newTestTransport(t, client)
		require.True(t, transport.Connect("ESP-DSMR", "", ""))

		topic := "homeassistant/sensor/esp-dsmr-ESP-DSMR/power_delivered/config"
		assert.True(t, transport.PublishRetained(topic, []byte(`{"name":"Power delivered"}`)))
		assert.Equal(t, []bool{true}, client.retained)
		assert.False(t, transport.PublishRetained(topic, []byte(strings.Repeat("x", 600))))
	})

	t.Run("not connected", func(t *testing.T) {
		transport := newTestTransport(t, newFakePahoClient())
		err := transport.publish("t", []byte("x"), false)
		assert.True(t, errors.Is(err, ErrNotConnected))
	})

	t.Run("too large", func(t *testing.T) {
		client := newFakePahoClient()
		transport := newTestTransport(t, client)
		transport.SetBufferSize(500)
		require.True(t, transport.Connect("ESP-DSMR", "", ""))

		topic := "esp-dsmr/ESP-DSMR/telegram"
		fits := []byte(strings.Repeat("x", 500-publishOverhead-len(topic)))
		assert.NoError(t, transport.publish(topic, fits, false))

		err := transport.publish(topic, append(fits, 'x'), false)
		assert.True(t, errors.Is(err, ErrPacketTooLarge))
		assert.Len(t, client.published, 1)
	})

	t.Run("timeout", func(t *testing.T) {
		client := newFakePahoClient()
		client.publishToken = &fakeToken{pending: true}
		transport := newTestTransport(t, client)
		require.True(t, transport.Connect("ESP-DSMR", "", ""))

		assert.True(t, errors.Is(transport.publish("t", []byte("x"), false), ErrPublishTimeout))
	})

	t.Run("library error", func(t *testing.T) {
		client := newFakePahoClient()
		client.publishToken = &fakeToken{err: errors.New("write: broken pipe")}
		transport := newTestTransport(t, client)
		require.True(t, transport.Connect("ESP-DSMR", "", ""))

		err := transport.publish("t", []byte("x"), false)
		assert.True(t, errors.Is(err, ErrPublishFailed))
		assert.False(t, transport.Publish("t", []byte("x")))
	})
}

func TestPahoTransport_Disconnect(t *testing.T) {
	client := newFakePahoClient()
	transport := newTestTransport(t, client)
	require.True(t, transport.Connect("ESP-DSMR", "", ""))

	transport.Disconnect()

	assert.Equal(t, []uint{250}, client.disconnects)
	assert.Equal(t, StateDisconnected, transport.State())
	assert.False(t, transport.Connected())
}

func TestPahoTransport_DisconnectWithoutClient(t *testing.T) {
	transport := newTestTransport(t, newFakePahoClient())
	transport.Disconnect()
	assert.Equal(t, StateDisconnected, transport.State())
}

func TestPahoTransport_ConnectionLost(t *testing.T) {
	client := newFakePahoClient()
	transport := newTestTransport(t, client)
	require.True(t, transport.Connect("ESP-DSMR", "", ""))

	client.open = false
	client.opts.OnConnectionLost(client, errors.New("keepalive timeout"))

	assert.Equal(t, StateConnectionLost, transport.State())
	assert.False(t, transport.Connected())
}

func TestConnectState(t *testing.T) {
	assert.Equal(t, StateBadProtocol, connectState(packets.ErrorRefusedBadProtocolVersion))
	assert.Equal(t, StateUnavailable, connectState(packets.ErrorRefusedServerUnavailable))
	assert.Equal(t, StateConnectFailed, connectState(errors.New("network Error")))
}

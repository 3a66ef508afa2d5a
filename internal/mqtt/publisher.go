// Package mqtt publishes device readings and connection status to a single MQTT broker.
package mqtt

import (
	"runtime"
	"time"

	"github.com/diversit/esp8266-dsmr/internal/config"
	"github.com/diversit/esp8266-dsmr/internal/log"
	"github.com/diversit/esp8266-dsmr/pkg/jsonfast"
	"github.com/sirupsen/logrus"
)

// Publisher manages one broker connection with throttled reconnects and
// publishes under a fixed topic namespace.
//
// A Publisher is driven by a single control loop goroutine and is not safe
// for concurrent use. Call Close on every exit path.
type Publisher struct {
	host     string
	port     int
	username string
	password string
	clientID string

	topics           Topics
	reconnectTimeout time.Duration
	jsonBuf          []byte

	started     bool
	closed      bool
	lastAttempt time.Time

	transport    Transport
	connectivity *Connectivity
	now          func() time.Time
	yield        func()
	log          *log.Logger
}

// Option configures optional Publisher collaborators.
type Option func(*Publisher)

// WithClock replaces time.Now as the source of reconnect timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) { p.now = now }
}

// WithYield replaces the hook invoked after every publish.
func WithYield(yield func()) Option {
	return func(p *Publisher) { p.yield = yield }
}

// WithConnectivity shares a connectivity status with other components.
func WithConnectivity(c *Connectivity) Option {
	return func(p *Publisher) { p.connectivity = c }
}

// NewPublisher creates a Publisher for the broker described by cfg.
// The transport is configured but no connection is attempted until Start.
func NewPublisher(cfg *config.MQTTConfig, transport Transport, logger *log.Logger, opts ...Option) *Publisher {
	p := &Publisher{
		host:             cfg.Host,
		port:             cfg.Port,
		username:         cfg.Username,
		password:         cfg.Password,
		clientID:         cfg.ClientID,
		topics:           Topics{Prefix: cfg.Prefix, ClientID: cfg.ClientID},
		reconnectTimeout: cfg.ReconnectTimeout,
		jsonBuf:          make([]byte, cfg.JSONBufferSize),
		transport:        transport,
		connectivity:     &Connectivity{},
		now:              time.Now,
		yield:            runtime.Gosched,
		log:              logger,
	}
	for _, opt := range opts {
		opt(p)
	}

	transport.SetBufferSize(max(cfg.SendBufferSize, minSendBufferSize))
	transport.SetWill(p.topics.Status(), StatusOffline)
	return p
}

// Connectivity returns the status shared with other components.
func (p *Publisher) Connectivity() *Connectivity {
	return p.connectivity
}

// Start makes the first connection attempt and enables retries from Handle.
// Without a host or port MQTT is disabled and Start does nothing.
func (p *Publisher) Start() {
	if p.host == "" || p.port == 0 {
		p.log.Warn("MQTT disabled: no broker host or port configured")
		return
	}

	p.log.Info("Connecting to MQTT broker %s:%d as %s", p.host, p.port, p.clientID)
	p.transport.SetServer(p.host, p.port)
	p.reconnect()
	p.started = true
}

// Stop pauses Handle. The session is left as is; Close tears it down.
func (p *Publisher) Stop() {
	p.started = false
	p.connectivity.setMQTT(false)
}

// Started reports whether Start enabled the publisher.
func (p *Publisher) Started() bool {
	return p.started
}

// IsConnected reports whether the publisher is started and the last (re)connect succeeded.
func (p *Publisher) IsConnected() bool {
	return p.started && p.connectivity.MQTT()
}

// LastConnectionAttempt returns the time of the most recent connection attempt.
func (p *Publisher) LastConnectionAttempt() time.Time {
	return p.lastAttempt
}

// Handle retries the connection when it is down, at most once per reconnect timeout.
// It must be called once per control loop cycle.
func (p *Publisher) Handle() {
	if !p.started {
		return
	}
	if p.transport.Connected() {
		return
	}
	if p.now().Sub(p.lastAttempt) < p.reconnectTimeout {
		return
	}

	p.connectivity.setMQTT(false)
	p.reconnect()
}

// reconnect performs one connection attempt and announces the device on success.
func (p *Publisher) reconnect() bool {
	// The stored timestamp never moves backwards, even if the clock does
	if now := p.now(); now.After(p.lastAttempt) {
		p.lastAttempt = now
	}

	var ok bool
	if p.username != "" {
		ok = p.transport.Connect(p.clientID, p.username, p.password)
	} else {
		ok = p.transport.Connect(p.clientID, "", "")
	}

	if !ok {
		state := p.transport.State()
		p.log.WarnWithFields(logrus.Fields{"rc": state}, "MQTT connection failed, rc=%d (%s)", state, StateText(state))
		return false
	}

	p.connectivity.setMQTT(true)
	p.log.Info("MQTT connected to %s:%d", p.host, p.port)
	p.PublishOnMQTT(p.topics.Status(), StatusOnline)
	return true
}

// Topic returns {prefix}/{clientId}/{name}.
func (p *Publisher) Topic(name string) string {
	return p.topics.Topic(name)
}

// ConfigTopic returns {autoDiscoveryPrefix}/sensor/{prefix}-{clientId}/{name}/config.
func (p *Publisher) ConfigTopic(autoDiscoveryPrefix, name string) string {
	return p.topics.Config(autoDiscoveryPrefix, name)
}

// PublishOnMQTT publishes message to topic as is. Failed publishes are dropped.
func (p *Publisher) PublishOnMQTT(topic, message string) bool {
	ok := p.transport.Publish(topic, []byte(message))
	p.yield()
	return ok
}

// PublishJSON serializes document into the fixed JSON buffer and publishes it.
// Documents larger than the buffer are rejected without publishing.
func (p *Publisher) PublishJSON(topic string, document any) bool {
	return p.publishJSON(topic, document, p.transport.Publish)
}

// PublishRetainedJSON is PublishJSON with the retained flag set, so the broker
// replays the document to subscribers that connect later.
func (p *Publisher) PublishRetainedJSON(topic string, document any) bool {
	return p.publishJSON(topic, document, p.transport.PublishRetained)
}

func (p *Publisher) publishJSON(topic string, document any, send func(string, []byte) bool) bool {
	n, err := jsonfast.Serialize(document, p.jsonBuf)
	if err != nil {
		p.log.WarnWithFields(logrus.Fields{"topic": topic}, "MQTT JSON document rejected: %v", err)
		return false
	}

	ok := send(topic, p.jsonBuf[:n])
	p.yield()
	return ok
}

// Close announces the device offline and disconnects. Delivery of the
// offline status is best effort. Later calls do nothing.
func (p *Publisher) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	if !p.transport.Publish(p.topics.Status(), []byte(StatusOffline)) {
		p.log.Debug("MQTT offline status not delivered")
	}
	p.transport.Disconnect()

	p.started = false
	p.connectivity.setMQTT(false)
	return nil
}

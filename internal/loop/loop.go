// Package loop runs the control loop that drives the MQTT publisher and forwards meter telegrams.
package loop

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/diversit/esp8266-dsmr/internal/config"
	"github.com/diversit/esp8266-dsmr/internal/log"
	"github.com/diversit/esp8266-dsmr/internal/message"
	"github.com/diversit/esp8266-dsmr/internal/mqtt"
	"github.com/diversit/esp8266-dsmr/pkg/jsonfast"
)

// TelegramTopic receives a JSON summary of the values forwarded per telegram
const TelegramTopic = "telegram"

// Publisher is the part of mqtt.Publisher driven by the loop
type Publisher interface {
	Handle()
	IsConnected() bool
	LastConnectionAttempt() time.Time
	Topic(name string) string
	PublishOnMQTT(topic, message string) bool
	PublishJSON(topic string, document any) bool
}

// Announcer publishes the discovery documents
type Announcer interface {
	Announce() int
}

// Source delivers telegrams from the reading stream
type Source interface {
	ReadBatch(ctx context.Context) (message.Batch[message.Telegram], error)
	ClaimIdle(ctx context.Context) (message.Batch[message.Telegram], error)
	Ack(ctx context.Context, id string) error
	CleanupDeadConsumers(ctx context.Context, idleTimeout time.Duration) (int, error)
}

// Loop owns the publisher: every publish happens on the goroutine running Run
type Loop struct {
	publisher Publisher
	announcer Announcer
	source    Source

	pollInterval  time.Duration
	claimInterval time.Duration
	deadConsumer  time.Duration
	schedule      string
	onlyNew       bool

	lastAttempt     time.Time
	announcePending bool
	refresh         chan struct{}
	last            map[string]string
	sent            []string
	part            []string
	jsonCapacity    int
	summary         *jsonfast.Builder
	field           *jsonfast.Builder
	log             *log.Logger
}

// New creates a control loop. A nil source disables telegram forwarding and
// a nil announcer disables discovery.
func New(cfg *config.Config, publisher Publisher, announcer Announcer, source Source, logger *log.Logger) *Loop {
	return &Loop{
		publisher:     publisher,
		announcer:     announcer,
		source:        source,
		pollInterval:  cfg.Loop.PollInterval,
		claimInterval: cfg.Loop.ClaimInterval,
		deadConsumer:  cfg.Redis.DeadConsumer,
		schedule:      cfg.Loop.DiscoverySchedule,
		onlyNew:       cfg.MQTT.OnlySendNewValues,
		refresh:       make(chan struct{}, 1),
		last:          make(map[string]string),
		jsonCapacity:  cfg.MQTT.JSONBufferSize,
		summary:       jsonfast.New(cfg.MQTT.JSONBufferSize),
		field:         jsonfast.New(64),
		log:           logger,
	}
}

// RequestAnnounce asks the loop to republish discovery on its next cycle.
// It never blocks and may be called from any goroutine.
func (l *Loop) RequestAnnounce() {
	select {
	case l.refresh <- struct{}{}:
	default:
	}
}

// Run drives the loop until ctx is canceled and then returns ctx.Err()
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("Starting control loop (poll every %s)", l.pollInterval)

	if l.schedule != "" && l.announcer != nil {
		scheduler := cron.New()
		if _, err := scheduler.AddFunc(l.schedule, l.RequestAnnounce); err != nil {
			return fmt.Errorf("invalid discovery schedule %q: %w", l.schedule, err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	poll := time.NewTicker(l.pollInterval)
	defer poll.Stop()

	var claimC <-chan time.Time
	if l.source != nil {
		claim := time.NewTicker(l.claimInterval)
		defer claim.Stop()
		claimC = claim.C
	}

	l.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			l.log.Info("Shutting down control loop")
			return ctx.Err()
		case <-l.refresh:
			l.announcePending = true
		case <-poll.C:
			l.cycle(ctx)
		case <-claimC:
			l.claim(ctx)
		}
	}
}

// cycle performs one pass: connection upkeep, discovery, then forwarding
func (l *Loop) cycle(ctx context.Context) {
	l.publisher.Handle()

	// Every successful (re)connect starts a new session that needs discovery
	if at := l.publisher.LastConnectionAttempt(); !at.Equal(l.lastAttempt) {
		l.lastAttempt = at
		l.announcePending = true
	}
	if !l.publisher.IsConnected() {
		return
	}

	if l.announcePending && l.announcer != nil {
		if l.announcer.Announce() > 0 {
			l.announcePending = false
		}
	}

	if l.source == nil {
		return
	}
	batch, err := l.source.ReadBatch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			l.log.Error("Failed to read telegrams: %v", err)
		}
		return
	}
	l.forwardBatch(ctx, batch)
}

// claim takes over stale telegrams and removes consumers that stopped reading
func (l *Loop) claim(ctx context.Context) {
	if !l.publisher.IsConnected() {
		return
	}

	batch, err := l.source.ClaimIdle(ctx)
	if err != nil {
		l.log.Error("Failed to claim idle telegrams: %v", err)
	} else if batch.Len() > 0 {
		l.log.Info("Claimed %d idle telegrams", batch.Len())
		l.forwardBatch(ctx, batch)
	}

	if _, err := l.source.CleanupDeadConsumers(ctx, l.deadConsumer); err != nil {
		l.log.Error("Failed to cleanup dead consumers: %v", err)
	}
}

func (l *Loop) forwardBatch(ctx context.Context, batch message.Batch[message.Telegram]) {
	for _, entry := range batch.Items {
		if !l.forward(entry.Body) {
			// Left pending; ClaimIdle hands it back after the claim idle time
			l.log.DebugWithFields(logrus.Fields{"id": entry.ID}, "Telegram not fully published")
			continue
		}
		if err := l.source.Ack(ctx, entry.ID); err != nil {
			l.log.ErrorWithFields(logrus.Fields{"id": entry.ID}, "Failed to ack telegram: %v", err)
		}
	}
}

// reserved reports whether a field name collides with a topic the device
// publishes itself
func reserved(key string) bool {
	return key == TelegramTopic || key == mqtt.StatusTopic
}

// forward publishes every field of telegram and a JSON summary of what was sent.
// It reports whether all field publishes succeeded; the summary is best effort.
func (l *Loop) forward(telegram message.Telegram) bool {
	ok := true
	l.sent = l.sent[:0]
	for _, key := range telegram.Keys() {
		if reserved(key) {
			l.log.DebugWithFields(logrus.Fields{"field": key}, "Skipping telegram field with a reserved topic name")
			continue
		}
		value := telegram[key]
		if prev, seen := l.last[key]; l.onlyNew && seen && prev == value {
			continue
		}
		if !l.publisher.PublishOnMQTT(l.publisher.Topic(key), value) {
			ok = false
			continue
		}
		l.last[key] = value
		if key != message.TimestampField {
			l.sent = append(l.sent, key)
		}
	}

	parts := l.publishSummary(telegram, l.sent)
	l.log.Trace("Forwarded %d of %d telegram fields in %d summary documents", len(l.sent), len(telegram), parts)
	return ok
}

// publishSummary publishes the values of keys as {"timestamp":..,"values":{..}}
// documents. Values are split over as many documents as needed to keep each
// one within the JSON buffer. It returns the number of documents published.
func (l *Loop) publishSummary(telegram message.Telegram, keys []string) int {
	if len(keys) == 0 {
		return 0
	}
	ts := telegram[message.TimestampField]

	l.buildSummary(ts, telegram, nil)
	base := l.summary.Len()

	published := 0
	part, size := l.part[:0], base
	for _, key := range keys {
		n := l.fieldSize(key, telegram[key])
		if base+n > l.jsonCapacity {
			l.log.DebugWithFields(logrus.Fields{"field": key}, "Telegram field does not fit a summary document")
			continue
		}
		if len(part) > 0 && size+1+n > l.jsonCapacity {
			published += l.publishPart(ts, telegram, part)
			part, size = part[:0], base
		}
		if len(part) > 0 {
			size++
		}
		part = append(part, key)
		size += n
	}
	if len(part) > 0 {
		published += l.publishPart(ts, telegram, part)
	}
	l.part = part
	return published
}

func (l *Loop) publishPart(ts string, telegram message.Telegram, keys []string) int {
	l.buildSummary(ts, telegram, keys)
	if !l.publisher.PublishJSON(l.publisher.Topic(TelegramTopic), l.summary) {
		l.log.Debug("Telegram summary not published")
		return 0
	}
	return 1
}

// fieldSize returns the encoded length of "key":"value"
func (l *Loop) fieldSize(key, value string) int {
	l.field.Reset()
	l.field.BeginObject()
	l.field.AddStringField(key, value)
	return l.field.Len() - 1
}

// buildSummary writes {"timestamp":"...","values":{...}} for keys into the reused builder
func (l *Loop) buildSummary(ts string, telegram message.Telegram, keys []string) {
	l.summary.Reset()
	l.summary.BeginObject()
	if ts != "" {
		l.summary.AddStringField(message.TimestampField, ts)
	}
	l.summary.BeginObjectField("values")
	for _, key := range keys {
		l.summary.AddStringField(key, telegram[key])
	}
	l.summary.EndObject()
	l.summary.EndObject()
}

// Package redis reads parsed meter telegrams from a Redis stream consumer group.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/diversit/esp8266-dsmr/internal/config"
	"github.com/diversit/esp8266-dsmr/internal/log"
	"github.com/diversit/esp8266-dsmr/internal/message"
)

const busyGroup = "BUSYGROUP"

// Client consumes the telegram stream as one member of the stream's consumer group
type Client struct {
	rdb          *redis.Client
	stream       string
	group        string
	consumer     string
	batchSize    int64
	blockTimeout time.Duration
	claimIdle    time.Duration
	log          *log.Logger
}

// NewClient connects to Redis and joins (or creates) the consumer group of cfg.Stream
func NewClient(cfg *config.RedisConfig, logger *log.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PingTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	client := newClient(rdb, cfg, logger)
	if err := client.ensureGroup(ctx); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	logger.Info("Consuming telegrams from stream '%s' as '%s'", client.stream, client.consumer)
	return client, nil
}

func newClient(rdb *redis.Client, cfg *config.RedisConfig, logger *log.Logger) *Client {
	return &Client{
		rdb:          rdb,
		stream:       cfg.Stream,
		group:        groupName(cfg.Stream),
		consumer:     cfg.Consumer,
		batchSize:    int64(cfg.BatchSize),
		blockTimeout: cfg.BlockTimeout,
		claimIdle:    cfg.ClaimIdle,
		log:          logger,
	}
}

func groupName(stream string) string {
	return "group-" + stream
}

func (c *Client) ensureGroup(ctx context.Context) error {
	err := c.rdb.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil {
		if strings.HasPrefix(err.Error(), busyGroup) {
			c.log.Info("Consumer group '%s' already exists for stream '%s', joining existing group", c.group, c.stream)
			return nil
		}
		return fmt.Errorf("failed to create consumer group for stream %s: %w", c.stream, err)
	}
	c.log.Info("Created consumer group '%s' for stream '%s'", c.group, c.stream)
	return nil
}

// ReadBatch fetches up to BatchSize new telegrams, blocking at most BlockTimeout.
// An empty batch means nothing arrived in time.
func (c *Client) ReadBatch(ctx context.Context) (message.Batch[message.Telegram], error) {
	result, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    c.batchSize,
		Block:    c.blockTimeout,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return message.Batch[message.Telegram]{}, nil
		}
		return message.Batch[message.Telegram]{}, fmt.Errorf("xreadgroup failed: %w", err)
	}

	var batch message.Batch[message.Telegram]
	for _, stream := range result {
		batch.Items = append(batch.Items, toEntries(stream.Stream, stream.Messages)...)
	}
	return batch, nil
}

// ClaimIdle takes over telegrams left pending by other consumers for longer than ClaimIdle
func (c *Client) ClaimIdle(ctx context.Context) (message.Batch[message.Telegram], error) {
	pending, err := c.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.stream,
		Group:  c.group,
		Idle:   c.claimIdle,
		Start:  "-",
		End:    "+",
		Count:  c.batchSize,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return message.Batch[message.Telegram]{}, nil
		}
		return message.Batch[message.Telegram]{}, fmt.Errorf("xpending failed: %w", err)
	}
	if len(pending) == 0 {
		return message.Batch[message.Telegram]{}, nil
	}

	ids := make([]string, len(pending))
	for i, p := range pending {
		ids[i] = p.ID
	}

	claimed, err := c.rdb.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.stream,
		Group:    c.group,
		Consumer: c.consumer,
		MinIdle:  c.claimIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return message.Batch[message.Telegram]{}, fmt.Errorf("xclaim failed: %w", err)
	}

	if len(claimed) > 0 {
		c.log.Debug("Claimed %d idle telegrams on stream %s", len(claimed), c.stream)
	}
	return message.Batch[message.Telegram]{Items: toEntries(c.stream, claimed)}, nil
}

// Ack acknowledges a forwarded telegram and removes it from the stream
func (c *Client) Ack(ctx context.Context, id string) error {
	if err := c.rdb.XAck(ctx, c.stream, c.group, id).Err(); err != nil {
		return fmt.Errorf("xack failed for telegram %s: %w", id, err)
	}
	if err := c.rdb.XDel(ctx, c.stream, id).Err(); err != nil {
		return fmt.Errorf("xdel failed for telegram %s: %w", id, err)
	}
	return nil
}

func toEntries(stream string, messages []redis.XMessage) []message.Entry[message.Telegram] {
	entries := make([]message.Entry[message.Telegram], 0, len(messages))
	for _, msg := range messages {
		entries = append(entries, message.Entry[message.Telegram]{
			ID:     msg.ID,
			Stream: stream,
			Body:   decodeTelegram(msg.Values),
		})
	}
	return entries
}

// decodeTelegram keeps the string valued fields of a stream entry
func decodeTelegram(values map[string]interface{}) message.Telegram {
	telegram := make(message.Telegram, len(values))
	for k, v := range values {
		if s, ok := v.(string); ok {
			telegram[k] = s
		}
	}
	return telegram
}

// Close closes the Redis client connection
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

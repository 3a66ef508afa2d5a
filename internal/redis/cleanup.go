package redis

import (
	"context"
	"fmt"
	"time"
)

// CleanupDeadConsumers removes other consumers that have been idle longer than idleTimeout.
// Restarts with a unique client ID leave one stale consumer behind each time.
// It returns the number of consumers removed.
func (c *Client) CleanupDeadConsumers(ctx context.Context, idleTimeout time.Duration) (int, error) {
	consumers, err := c.rdb.XInfoConsumers(ctx, c.stream, c.group).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get consumers info: %w", err)
	}

	removed := 0
	for _, consumer := range consumers {
		if !isDead(consumer.Name, consumer.Idle, c.consumer, idleTimeout) {
			continue
		}

		c.log.Info("Removing dead consumer %s (idle for %s, %d pending)", consumer.Name, consumer.Idle, consumer.Pending)
		if err := c.rdb.XGroupDelConsumer(ctx, c.stream, c.group, consumer.Name).Err(); err != nil {
			c.log.Error("Failed to delete consumer %s: %v", consumer.Name, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		c.log.Info("Cleaned up %d dead consumers at %s", removed, time.Now().Format(time.RFC3339))
	}
	return removed, nil
}

func isDead(name string, idle time.Duration, self string, idleTimeout time.Duration) bool {
	return name != self && idle > idleTimeout
}

// Package message provides shared data structures for meter telegrams read from Redis and batch processing.
package message

import "sort"

// TimestampField is the telegram field holding the meter's own timestamp
const TimestampField = "timestamp"

// Telegram maps DSMR field names (power_delivered, gas_delivered, ...) to their textual values
type Telegram map[string]string

// Keys returns the field names in sorted order so publishing is deterministic
func (t Telegram) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Entry is a strongly typed representation of a Redis stream entry
type Entry[T any] struct {
	ID     string
	Stream string // Stream name (required for ACK/delete operations)
	Body   T
}

// Batch is an envelope returned by Redis fetchers
type Batch[T any] struct {
	Items []Entry[T]
}

// Len returns the number of entries in the batch
func (b Batch[T]) Len() int {
	return len(b.Items)
}

/*
Package jsonfast offers a minimal JSON builder optimized for low-allocation encoding paths,
plus a bounded serializer writing into fixed-capacity buffers.
*/
package jsonfast

import (
	"errors"
	"fmt"
	"sort"
	"time"

	json "github.com/goccy/go-json"
)

// ErrCapacityExceeded is returned by Serialize when the encoded document does not fit the destination.
var ErrCapacityExceeded = errors.New("jsonfast: document exceeds buffer capacity")

// Appender is implemented by documents that already know their JSON encoding.
type Appender interface {
	AppendJSON(dst []byte) []byte
}

// Serialize writes the JSON encoding of document into dst and returns the number of bytes written.
// Appender documents and raw []byte are copied as-is; anything else is marshaled.
// When the encoding is larger than len(dst), nothing is written and ErrCapacityExceeded is returned.
func Serialize(document any, dst []byte) (int, error) {
	var data []byte
	switch d := document.(type) {
	case Appender:
		data = d.AppendJSON(nil)
	case []byte:
		data = d
	default:
		encoded, err := json.Marshal(document)
		if err != nil {
			return 0, fmt.Errorf("jsonfast: marshal document: %w", err)
		}
		data = encoded
	}

	if len(data) > len(dst) {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrCapacityExceeded, len(data), len(dst))
	}
	return copy(dst, data), nil
}

// Builder is a minimal JSON builder that operates on a reusable byte slice.
// It avoids allocations by appending directly into the buffer.
// Not a fully general-purpose JSON writer; tailored for known field sets.
type Builder struct {
	buf   []byte
	depth int
	first bool
}

var _ Appender = (*Builder)(nil)

// New creates a new builder with initial capacity.
func New(capacity int) *Builder {
	if capacity <= 0 {
		capacity = 256
	}
	return &Builder{
		buf:   make([]byte, 0, capacity),
		first: true,
	}
}

// Reset clears the builder for reuse.
func (b *Builder) Reset() {
	b.buf = b.buf[:0]
	b.depth = 0
	b.first = true
}

// Bytes returns the underlying buffer (do not modify after use).
func (b *Builder) Bytes() []byte {
	return b.buf
}

// Len returns the number of bytes written so far.
func (b *Builder) Len() int {
	return len(b.buf)
}

// AppendJSON appends the built document to dst.
func (b *Builder) AppendJSON(dst []byte) []byte {
	return append(dst, b.buf...)
}

// BeginObject starts a JSON object.
func (b *Builder) BeginObject() {
	b.buf = append(b.buf, '{')
	b.depth++
	b.first = true
}

// EndObject ends the innermost open JSON object.
func (b *Builder) EndObject() {
	b.buf = append(b.buf, '}')
	if b.depth > 0 {
		b.depth--
	}
	b.first = false
}

// BeginObjectField starts a "name":{ nested object. Close it with EndObject.
func (b *Builder) BeginObjectField(name string) {
	b.key(name)
	b.BeginObject()
}

// AddStringField adds a "name":"value" string field with escaping.
func (b *Builder) AddStringField(name, value string) {
	b.key(name)
	b.quoted(value)
}

// AddRawJSONField adds a "name":<raw json> field without escaping.
// The value must be valid JSON.
func (b *Builder) AddRawJSONField(name string, rawJSON []byte) {
	b.key(name)
	b.buf = append(b.buf, rawJSON...)
}

// AddIntField adds a "name":int field.
func (b *Builder) AddIntField(name string, v int) {
	b.key(name)
	b.buf = append(b.buf, itoa(v)...)
}

// AddBoolField adds a "name":true|false field.
func (b *Builder) AddBoolField(name string, v bool) {
	b.key(name)
	if v {
		b.buf = append(b.buf, "true"...)
		return
	}
	b.buf = append(b.buf, "false"...)
}

// AddStringArrayField adds a "name":["a","b"] field.
func (b *Builder) AddStringArrayField(name string, values []string) {
	b.key(name)
	b.buf = append(b.buf, '[')
	for i, v := range values {
		if i > 0 {
			b.buf = append(b.buf, ',')
		}
		b.quoted(v)
	}
	b.buf = append(b.buf, ']')
}

// AddStringMapField adds a "name":{"k":"v",...} field with keys in sorted order.
// Empty maps are skipped.
func (b *Builder) AddStringMapField(name string, m map[string]string) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.BeginObjectField(name)
	for _, k := range keys {
		b.sep()
		b.quoted(k)
		b.buf = append(b.buf, ':')
		b.quoted(m[k])
	}
	b.EndObject()
}

// AddTimeRFC3339Field adds a "name":"RFC3339" field without using time.Format.
func (b *Builder) AddTimeRFC3339Field(name string, t time.Time) {
	b.key(name)
	b.buf = append(b.buf, '"')
	// Use UTC for deterministic formatting
	t = t.UTC()
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()
	b.append4(year)
	b.buf = append(b.buf, '-')
	b.append2(int(month))
	b.buf = append(b.buf, '-')
	b.append2(day)
	b.buf = append(b.buf, 'T')
	b.append2(hour)
	b.buf = append(b.buf, ':')
	b.append2(minute)
	b.buf = append(b.buf, ':')
	b.append2(sec)
	b.buf = append(b.buf, 'Z', '"')
}

// key writes the separator and "name":, opening the root object when needed.
func (b *Builder) key(name string) {
	b.sep()
	b.quoted(name)
	b.buf = append(b.buf, ':')
}

func (b *Builder) sep() {
	if b.depth == 0 {
		b.BeginObject()
	}
	if b.first {
		b.first = false
		return
	}
	b.buf = append(b.buf, ',')
}

func (b *Builder) quoted(s string) {
	b.buf = append(b.buf, '"')
	b.escapeString(s)
	b.buf = append(b.buf, '"')
}

// escapeString escapes JSON special characters.
func (b *Builder) escapeString(s string) {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\', '"':
			b.buf = append(b.buf, '\\', c)
		case '\b':
			b.buf = append(b.buf, '\\', 'b')
		case '\f':
			b.buf = append(b.buf, '\\', 'f')
		case '\n':
			b.buf = append(b.buf, '\\', 'n')
		case '\r':
			b.buf = append(b.buf, '\\', 'r')
		case '\t':
			b.buf = append(b.buf, '\\', 't')
		default:
			if c < 0x20 {
				b.buf = append(b.buf, '\\', 'u', '0', '0', hex[c>>4], hex[c&0x0f])
			} else {
				b.buf = append(b.buf, c)
			}
		}
	}
}

func (b *Builder) append2(v int) {
	b.buf = append(b.buf, byte('0'+(v/10)%10), byte('0'+v%10))
}

func (b *Builder) append4(v int) {
	b.buf = append(b.buf,
		byte('0'+(v/1000)%10),
		byte('0'+(v/100)%10),
		byte('0'+(v/10)%10),
		byte('0'+v%10),
	)
}

// itoa converts a small int to ascii without allocation.
func itoa(x int) []byte {
	if x == 0 {
		return []byte{'0'}
	}
	var tmp [20]byte
	i := len(tmp)
	neg := x < 0
	u := uint64(x)
	if neg {
		u = uint64(-x)
	}
	for u > 0 {
		i--
		tmp[i] = byte('0' + u%10)
		u /= 10
	}
	if neg {
		i--
		tmp[i] = '-'
	}
	return tmp[i:]
}

var hex = "0123456789abcdef"

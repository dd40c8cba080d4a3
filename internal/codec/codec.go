// Package codec holds the JSON and timestamp conventions used on the wire.
// A Codec is immutable once built and is handed to the Fiber app and the handlers
// instead of living in package-level state.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// TimestampLayout renders millisecond precision with a numeric zone offset.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

var ErrEmptyTimestamp = errors.New("empty timestamp")

type Codec struct {
	layout     string
	loc        *time.Location
	escapeHTML bool
}

type Option func(*Codec)

// WithLocation renders timestamps in loc instead of UTC.
func WithLocation(loc *time.Location) Option {
	return func(c *Codec) {
		if loc != nil {
			c.loc = loc
		}
	}
}

func WithHTMLEscaping(enabled bool) Option {
	return func(c *Codec) { c.escapeHTML = enabled }
}

func New(opts ...Option) *Codec {
	c := &Codec{layout: TimestampLayout, loc: time.UTC}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Codec) FormatTime(t time.Time) string {
	return t.In(c.loc).Format(c.layout)
}

// FormatTimePtr returns nil for a nil time so optional timestamps stay null on the wire.
func (c *Codec) FormatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := c.FormatTime(*t)
	return &s
}

// ParseTime accepts ISO-8601 timestamps with an offset, with or without fractional seconds.
func (c *Codec) ParseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrEmptyTimestamp
	}
	t, err := time.Parse(c.layout, value)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

// Marshal matches json.Marshal except that HTML escaping is off by default.
func (c *Codec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(c.escapeHTML)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (c *Codec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

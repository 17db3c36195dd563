package record

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"
)

// Kind tells whether a record stores a value or marks the key as deleted
type Kind string

const (
	KindPut    Kind = "put"
	KindDelete Kind = "delete"
)

// Record represents a single log entry. Each record is encoded as one JSON object and occupies a single line
// in a segment file.
//
// KeySize and ValueSize are written for inspection only, the decoder never uses them to find the end of a record.
// A record with Kind set to KindDelete is a tombstone, and its Value is always empty.
type Record struct {
	Key       string    `json:"key"`
	KeySize   int       `json:"keysize"`
	Value     string    `json:"value"`
	ValueSize int       `json:"value_size"`
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"kind"`
}

// NewPut returns a record that sets key to value
func NewPut(key, value string, ts time.Time) *Record {
	return &Record{
		Key:       key,
		KeySize:   len(key),
		Value:     value,
		ValueSize: len(value),
		Timestamp: ts,
		Kind:      KindPut,
	}
}

// NewTombstone returns a record that deletes key
func NewTombstone(key string, ts time.Time) *Record {
	return &Record{
		Key:       key,
		KeySize:   len(key),
		Timestamp: ts,
		Kind:      KindDelete,
	}
}

func (r *Record) IsTombstone() bool {
	return r.Kind == KindDelete
}

// Encode serializes the record. The returned bytes never contain a newline, so the caller can
// use '\n' as the record separator. Keys and values must be valid UTF-8, since JSON strings cannot
// carry arbitrary bytes without altering them.
func Encode(r *Record) ([]byte, error) {
	if !utf8.ValidString(r.Key) || !utf8.ValidString(r.Value) {
		return nil, ErrInvalidUTF8
	}
	// Monotonic clock readings are not serialized, strip them so that the in-memory value
	// matches what is read back
	rec := *r
	rec.Timestamp = rec.Timestamp.Round(0)
	return json.Marshal(&rec)
}

// Decode parses a single encoded record (without the line terminator)
func Decode(data []byte) (*Record, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: invalid utf-8", ErrDecode)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	switch rec.Kind {
	case KindPut:
	case KindDelete:
		rec.Value = ""
	default:
		return nil, fmt.Errorf("%w: unknown record kind %q", ErrDecode, rec.Kind)
	}
	if rec.Timestamp.IsZero() {
		return nil, fmt.Errorf("%w: missing timestamp", ErrDecode)
	}
	return &rec, nil
}

package decsync

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

var (
	ErrSyntax       = errors.New("invalid json")
	ErrNotArray     = errors.New("record is not a json array")
	ErrShortRecord  = errors.New("record has fewer than 3 elements")
	ErrKeyNotScalar = errors.New("record key is not a scalar")
	ErrNullValue    = errors.New("record value is null")
)

// RecordError describes a snapshot line that was skipped.
type RecordError struct {
	Line int
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Record is one line of a snapshot entry: [stamp, key, value, extra...].
type Record struct {
	Stamp json.RawMessage
	Key   string
	Value string
	Extra []json.RawMessage
}

// ParseRecord validates a single JSON line against the record shape.
// Keys must be JSON scalars; strings yield their contents, numbers and
// booleans their literal text. Values that are strings yield their contents,
// anything but null yields compact JSON text. A null value is rejected.
func ParseRecord(line []byte) (Record, error) {
	return parseRecord(line, false)
}

// ParseEntryRecord is ParseRecord for item entries, whose key may be null.
// A null key yields an empty Key.
func ParseEntryRecord(line []byte) (Record, error) {
	return parseRecord(line, true)
}

func parseRecord(line []byte, nullKey bool) (Record, error) {
	line = bytes.TrimSpace(line)
	if !json.Valid(line) {
		return Record{}, ErrSyntax
	}
	if line[0] != '[' {
		return Record{}, ErrNotArray
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(line, &elems); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	if len(elems) < 3 {
		return Record{}, ErrShortRecord
	}

	var key string
	if !nullKey || !isNull(elems[1]) {
		var err error
		if key, err = scalarText(elems[1]); err != nil {
			return Record{}, err
		}
	}

	rec := Record{
		Stamp: elems[0],
		Key:   key,
		Extra: elems[3:],
	}

	value := bytes.TrimSpace(elems[2])
	switch value[0] {
	case 'n':
		return Record{}, ErrNullValue
	case '"':
		if err := json.Unmarshal(value, &rec.Value); err != nil {
			return Record{}, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, value); err != nil {
			return Record{}, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		rec.Value = buf.String()
	}

	return rec, nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

func scalarText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		return s, nil
	case '{', '[', 'n':
		return "", ErrKeyNotScalar
	default:
		return string(raw), nil
	}
}

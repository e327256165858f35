package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/Masterminds/squirrel"
)

// TimeLayout is the fixed-width UTC layout used for stored timestamps, so that stored
// timestamps order correctly as strings.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var (
	// ErrNotFound is returned when a partial update targets a document that does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidField is returned for filter fields that are not plain identifiers.
	ErrInvalidField = errors.New("invalid field name")
	// ErrInvalidOp is returned for unsupported filter operators.
	ErrInvalidOp = errors.New("invalid filter operator")
	// ErrClosed is returned when subscribing to a closed database.
	ErrClosed = errors.New("database is closed")
)

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type serverTimestamp struct{}

// ServerTimestamp can be used as a field value; the store replaces it with its own commit time.
var ServerTimestamp = serverTimestamp{}

// Fields holds the named values of a document.
type Fields map[string]any

// Document is a stored record: a store-assigned id plus its fields.
type Document struct {
	ID     string
	Fields Fields
}

// String returns the named field as a string, or "" if it is missing or not a string.
func (d Document) String(key string) string {
	s, _ := d.Fields[key].(string)

	return s
}

// Bool returns the named field as a bool, or false if it is missing or not a bool.
func (d Document) Bool(key string) bool {
	b, _ := d.Fields[key].(bool)

	return b
}

// Time returns the named field parsed as a stored timestamp.
func (d Document) Time(key string) (time.Time, bool) {
	s, ok := d.Fields[key].(string)
	if !ok {
		return time.Time{}, false
	}

	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}

// SnapshotFunc receives the full matching set of documents, or an error if the query failed.
type SnapshotFunc func(docs []Document, err error)

// Op is a filter comparison operator.
type Op string

// These constants are the supported filter operators.
const (
	OpEqual          Op = "=="
	OpNotEqual       Op = "!="
	OpLess           Op = "<"
	OpLessOrEqual    Op = "<="
	OpGreater        Op = ">"
	OpGreaterOrEqual Op = ">="
)

// Filter constrains a query to documents whose field compares to a value.
// The zero Filter matches every document in the collection.
type Filter struct {
	Field string
	Op    Op
	Value any
}

func (f Filter) sqlizer() (squirrel.Sqlizer, error) {
	if !fieldPattern.MatchString(f.Field) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidField, f.Field)
	}

	column := fmt.Sprintf("json_extract(data, '$.%s')", f.Field)
	value := encodeValue(f.Value, time.Time{})

	switch f.Op {
	case OpEqual:
		return squirrel.Eq{column: value}, nil
	case OpNotEqual:
		return squirrel.NotEq{column: value}, nil
	case OpLess:
		return squirrel.Lt{column: value}, nil
	case OpLessOrEqual:
		return squirrel.LtOrEq{column: value}, nil
	case OpGreater:
		return squirrel.Gt{column: value}, nil
	case OpGreaterOrEqual:
		return squirrel.GtOrEq{column: value}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrInvalidOp, f.Op)
}

func encodeValue(value any, now time.Time) any {
	switch v := value.(type) {
	case serverTimestamp:
		return now.UTC().Format(TimeLayout)
	case time.Time:
		return v.UTC().Format(TimeLayout)
	case *time.Time:
		if v == nil {
			return nil
		}

		return v.UTC().Format(TimeLayout)
	}

	return value
}

func encodeFields(fields Fields, now time.Time) (string, error) {
	encoded := make(map[string]any, len(fields))
	for k, v := range fields {
		if !fieldPattern.MatchString(k) {
			return "", fmt.Errorf("%w: %q", ErrInvalidField, k)
		}

		encoded[k] = encodeValue(v, now)
	}

	data, err := json.Marshal(encoded)
	if err != nil {
		return "", fmt.Errorf("error encoding fields: %w", err)
	}

	return string(data), nil
}

type documentRow struct {
	ID   string `db:"id"`
	Data string `db:"data"`
}

func (r documentRow) decode() (Document, error) {
	fields := Fields{}
	if err := json.Unmarshal([]byte(r.Data), &fields); err != nil {
		return Document{}, fmt.Errorf("error decoding document %s: %w", r.ID, err)
	}

	return Document{ID: r.ID, Fields: fields}, nil
}

package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrNotRecordArray is returned when the body is valid JSON but not an array of objects
var ErrNotRecordArray = errors.New("response is not a JSON array of objects")

// DecodeJSON builds a table from a JSON array of objects, keeping the key
// order of the records. An empty array yields an empty table.
func DecodeJSON(r io.Reader) (*FlightRecordTable, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("%w: starts with %v", ErrNotRecordArray, tok)
	}

	table := NewFlightRecordTable()
	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to read record %d: %w", table.Len(), err)
		}
		fields, err := decodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", table.Len(), err)
		}
		table.AddRecord(fields)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to read end of array: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after array", ErrNotRecordArray)
	}

	return table, nil
}

// decodeRecord walks one JSON object in key order
func decodeRecord(raw json.RawMessage) ([]Field, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, ErrNotRecordArray
	}

	var fields []Field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		text, err := cellText(value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		fields = append(fields, Field{Name: name, Value: text})
	}

	return fields, nil
}

// cellText renders a JSON value the way it appears in the CSV export:
// strings verbatim, numbers as written, booleans as True/False, null as empty
// and nested values as compact JSON.
func cellText(value json.RawMessage) (string, error) {
	value = bytes.TrimSpace(value)
	if len(value) == 0 {
		return "", nil
	}

	switch value[0] {
	case '"':
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return "", err
		}
		return s, nil
	case 'n':
		return "", nil
	case 't':
		return "True", nil
	case 'f':
		return "False", nil
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, value); err != nil {
			return "", err
		}
		return buf.String(), nil
	default:
		return string(value), nil
	}
}

package sensor

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ParseJSONBatch decodes a JSON body into a Batch. Numbers are kept as
// json.Number so integral sensor ids survive exactly.
func ParseJSONBatch(data []byte) (Batch, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrMalformedBody)
	}
	return BatchFromValue(v)
}

// BatchFromValue builds a Batch from an already decoded value: a map is a
// Single, a slice is Many. Map keys must be strings. Anything else is
// ErrMalformedBody.
func BatchFromValue(v any) (Batch, error) {
	switch t := v.(type) {
	case map[string]any:
		return Single{Record: t}, nil
	case map[any]any:
		rec, ok := stringKeyed(t)
		if !ok {
			return nil, fmt.Errorf("%w: object keys must be strings", ErrMalformedBody)
		}
		return Single{Record: rec}, nil
	case []any:
		many := make(Many, 0, len(t))
		for _, elem := range t {
			many = append(many, asRecord(elem))
		}
		return many, nil
	default:
		return nil, fmt.Errorf("%w: expected object or array, got %T", ErrMalformedBody, v)
	}
}

// asRecord returns elem as a Record, or nil when it is not an object.
func asRecord(elem any) Record {
	switch t := elem.(type) {
	case map[string]any:
		return t
	case map[any]any:
		if rec, ok := stringKeyed(t); ok {
			return rec
		}
	}
	return nil
}

func stringKeyed(m map[any]any) (Record, bool) {
	rec := make(Record, len(m))
	for k, v := range m {
		ks, ok := k.(string)
		if !ok {
			return nil, false
		}
		rec[ks] = v
	}
	return rec, true
}

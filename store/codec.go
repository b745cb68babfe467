package store

import (
	"bytes"
	"encoding/json"
	"fmt"
)

func encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return data, nil
}

func decode(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return ErrNoData
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return nil
}

// emptyValue is {} decoded into T, or the zero T when T cannot hold an object.
func emptyValue[T any]() T {
	var v T
	if err := json.Unmarshal([]byte("{}"), &v); err != nil {
		var zero T
		return zero
	}
	return v
}

// toJSONValue converts v into the generic form encoding/json decodes into.
func toJSONValue(v any) (any, error) {
	data, err := encode(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return out, nil
}

// fields splits v into its top-level JSON object members. null counts as an
// empty object.
func fields(v any) (map[string]json.RawMessage, error) {
	data, err := encode(v)
	if err != nil {
		return nil, err
	}
	if bytes.Equal(data, []byte("null")) {
		return map[string]json.RawMessage{}, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotObject, firstByte(data))
	}
	if m == nil {
		m = map[string]json.RawMessage{}
	}
	return m, nil
}

func firstByte(data []byte) string {
	switch {
	case len(data) == 0:
		return "empty"
	case data[0] == '[':
		return "array"
	case data[0] == '"':
		return "string"
	default:
		return "scalar"
	}
}

// merge overlays the top-level members of partial onto current. Nested
// objects are replaced, not merged.
func merge[T any](current T, partial any) (T, error) {
	var out T
	base, err := fields(current)
	if err != nil {
		return out, err
	}
	patch, err := fields(partial)
	if err != nil {
		return out, err
	}
	for k, v := range patch {
		base[k] = v
	}
	data, err := json.Marshal(base)
	if err != nil {
		return out, fmt.Errorf("failed to encode merged document: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return out, nil
}

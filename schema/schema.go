// Package schema validates decoded JSON documents against a JSON Schema
// (draft-07 subset).
//
// Supported keywords:
//   - type (string, number, integer, boolean, object, array, null)
//   - properties, required, additionalProperties
//   - items
//   - minimum, maximum, exclusiveMinimum, exclusiveMaximum
//   - minLength, maxLength
//   - minItems, maxItems
//   - enum
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Schema is a decoded JSON Schema document.
type Schema map[string]any

// ValidationError reports the first rule a value broke.
type ValidationError struct {
	Path   string // JSONPath-like location, "$" for the root
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Path + ": " + e.Reason
}

func fail(path, format string, args ...any) error {
	return &ValidationError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// Parse decodes a schema written as JSON.
func Parse(data []byte) (Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return s, nil
}

// LoadFile reads a schema from a .json, .yaml or .yml file.
func LoadFile(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var s Schema
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to parse schema %s: %w", path, err)
		}
		return s, nil
	default:
		return Parse(data)
	}
}

// Validate checks value, as produced by encoding/json decoding into any.
// A nil schema accepts everything.
func (s Schema) Validate(value any) error {
	if s == nil {
		return nil
	}
	return check(s, value, "$")
}

func check(s map[string]any, value any, path string) error {
	if t, ok := s["type"].(string); ok {
		if !typeMatches(t, value) {
			return fail(path, "expected type %q, got %q", t, typeOf(value))
		}
	}
	if allowed, ok := s["enum"].([]any); ok && !inEnum(allowed, value) {
		return fail(path, "value not in enum %v", allowed)
	}

	switch v := value.(type) {
	case map[string]any:
		return checkObject(s, v, path)
	case []any:
		return checkArray(s, v, path)
	case string:
		return checkString(s, v, path)
	default:
		if n, ok := number(value); ok {
			return checkNumber(s, n, path)
		}
	}
	return nil
}

func typeOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int64:
		return "integer"
	case float64, json.Number:
		return "number"
	default:
		return reflect.TypeOf(v).String()
	}
}

func typeMatches(expected string, v any) bool {
	actual := typeOf(v)
	switch expected {
	case "integer":
		if n, ok := number(v); ok {
			return n == float64(int64(n))
		}
		return false
	case "number":
		return actual == "number" || actual == "integer"
	default:
		return actual == expected
	}
}

func inEnum(allowed []any, v any) bool {
	for _, a := range allowed {
		if reflect.DeepEqual(a, v) {
			return true
		}
		if an, ok := number(a); ok {
			if vn, ok := number(v); ok && an == vn {
				return true
			}
		}
	}
	return false
}

func checkObject(s map[string]any, obj map[string]any, path string) error {
	if required, ok := s["required"].([]any); ok {
		for _, r := range required {
			field, ok := r.(string)
			if !ok {
				continue
			}
			if _, present := obj[field]; !present {
				return fail(path, "missing required field %q", field)
			}
		}
	}

	props, _ := s["properties"].(map[string]any)
	names := make([]string, 0, len(obj))
	for name := range obj {
		names = append(names, name)
	}
	sort.Strings(names)

	var extra []string
	for _, name := range names {
		sub, declared := props[name]
		if !declared {
			extra = append(extra, name)
			continue
		}
		if subSchema, ok := sub.(map[string]any); ok {
			if err := check(subSchema, obj[name], path+"."+name); err != nil {
				return err
			}
		}
	}

	if allow, ok := s["additionalProperties"].(bool); ok && !allow && len(extra) > 0 {
		return fail(path, "additional properties not allowed: %s", strings.Join(extra, ", "))
	}
	return nil
}

func checkArray(s map[string]any, arr []any, path string) error {
	if n, ok := number(s["minItems"]); ok && float64(len(arr)) < n {
		return fail(path, "array length %d is less than minItems %v", len(arr), n)
	}
	if n, ok := number(s["maxItems"]); ok && float64(len(arr)) > n {
		return fail(path, "array length %d is greater than maxItems %v", len(arr), n)
	}
	items, ok := s["items"].(map[string]any)
	if !ok {
		return nil
	}
	for i, elem := range arr {
		if err := check(items, elem, fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func checkString(s map[string]any, str string, path string) error {
	length := utf8.RuneCountInString(str)
	if n, ok := number(s["minLength"]); ok && float64(length) < n {
		return fail(path, "string length %d is less than minLength %v", length, n)
	}
	if n, ok := number(s["maxLength"]); ok && float64(length) > n {
		return fail(path, "string length %d is greater than maxLength %v", length, n)
	}
	return nil
}

func checkNumber(s map[string]any, n float64, path string) error {
	if v, ok := number(s["minimum"]); ok && n < v {
		return fail(path, "%v is less than minimum %v", n, v)
	}
	if v, ok := number(s["maximum"]); ok && n > v {
		return fail(path, "%v is greater than maximum %v", n, v)
	}
	if v, ok := number(s["exclusiveMinimum"]); ok && n <= v {
		return fail(path, "%v is not greater than exclusiveMinimum %v", n, v)
	}
	if v, ok := number(s["exclusiveMaximum"]); ok && n >= v {
		return fail(path, "%v is not less than exclusiveMaximum %v", n, v)
	}
	return nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

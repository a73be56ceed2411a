package provider

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Helpers for pulling typed values out of decoded JSON without failing on
// malformed fields. Each returns nil or the zero value when the input does
// not have the expected shape.

// AsMap returns v as a JSON object.
func AsMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// AsList returns v as a JSON array.
func AsList(v any) []any {
	l, _ := v.([]any)
	return l
}

// AsMaps returns the object entries of a JSON array, skipping anything else.
func AsMaps(v any) []map[string]any {
	list := AsList(v)
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// Field walks nested objects along path.
func Field(v any, path ...string) any {
	for _, key := range path {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = m[key]
	}
	return v
}

// AsString returns v when it is a JSON string.
func AsString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// StringPtr returns v as a string pointer when it is a JSON string.
func StringPtr(v any) *string {
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}

// NonEmptyString returns v when it is a non-empty JSON string.
func NonEmptyString(v any) *string {
	if s, ok := v.(string); ok && s != "" {
		return &s
	}
	return nil
}

// AsInt coerces integral numbers and base-10 digit strings. Booleans,
// fractional numbers and anything else yield nil.
func AsInt(v any) *int {
	switch n := v.(type) {
	case nil, bool:
		return nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return nil
		}
		return &i
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return nil
		}
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return nil
		}
		out := int(i)
		return &out
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return nil
	}
	return &i
}

// AsFloat coerces numbers and numeric strings.
func AsFloat(v any) *float64 {
	switch n := v.(type) {
	case nil, bool:
		return nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		return &f
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil
	}
	return &f
}

// ParseImdbID parses "tt0123456" or "0123456" into 123456.
func ParseImdbID(s string) *int {
	s = strings.TrimPrefix(strings.TrimSpace(s), "tt")
	if s == "" {
		return nil
	}
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return nil
	}
	return &i
}

// FormatImdbID renders an IMDb id as "tt%07d".
func FormatImdbID(id int) string {
	return fmt.Sprintf("tt%07d", id)
}

// cloneJSON deep copies a decoded JSON value.
func cloneJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneJSON(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneJSON(e)
		}
		return out
	}
	return v
}

// Package maputil reads loosely typed venue payload maps. Venues and
// decoders disagree on value types (numbers arrive as float64 or
// string, flags as bool or "true"), so every accessor coerces instead
// of asserting.
package maputil

import (
	"fmt"
	"strconv"
	"strings"
)

// Has reports whether the key is present at all, regardless of value.
func Has(params map[string]any, key string) bool {
	if params == nil {
		return false
	}
	_, ok := params[key]
	return ok
}

// String renders the value under key as a trimmed string; absent keys
// yield "".
func String(params map[string]any, key string) string {
	if !Has(params, key) {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", params[key]))
}

// ID renders the value under key as an order-id string. JSON decoding
// hands numeric ids over as float64, which %v would print in scientific
// notation past 21 digits of magnitude, so numbers are formatted
// explicitly.
func ID(params map[string]any, key string) string {
	if !Has(params, key) {
		return ""
	}
	switch v := params[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// Float reads the value under key as float64, parsing strings when
// needed; anything unparseable yields 0.
func Float(params map[string]any, key string) float64 {
	if !Has(params, key) {
		return 0
	}
	switch v := params[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		f, _ := strconv.ParseFloat(String(params, key), 64)
		return f
	}
}

// Nested returns the sub-map stored under key, or nil when absent or of
// another type.
func Nested(params map[string]any, key string) map[string]any {
	if m, ok := params[key].(map[string]any); ok {
		return m
	}
	return nil
}

// Clone makes a shallow copy so callers can merge derived keys without
// mutating the source payload.
func Clone(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}

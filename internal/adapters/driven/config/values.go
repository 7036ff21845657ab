// Package config holds the value conversions shared by the config store
// adapters. Values arrive as whatever the backing format decoded: TOML gives
// int64 integers and []any arrays, callers of Set may pass int or []string.
package config

import "sort"

// String returns v as a string, or "" when it is not one.
func String(v any) string {
	s, _ := v.(string)
	return s
}

// Int returns v as an int. Floats are not converted.
func Int(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}

// Float returns any numeric v as a float64, so "rate = 2" and "rate = 2.0"
// read the same.
func Float(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

// Bool returns v as a bool, or false when it is not one.
func Bool(v any) bool {
	b, _ := v.(bool)
	return b
}

// StringSlice returns the string elements of v. Non-string elements of a
// decoded array are skipped.
func StringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

// SortedKeys returns the keys of m in order.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

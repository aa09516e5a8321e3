package extract

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Float coerces a decoded JSON value into a float, null, empty strings and
// placeholder strings like "." or "n/a" are treated as missing.
func Float(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return t, true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "", ".", "n/a", "na", "nan", "null", "no data":
			return 0, false
		}
		return ParseNumber(t)
	}
	return 0, false
}

// Lookup walks nested objects by key.
func Lookup(v any, path ...string) (any, bool) {
	current := v
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// String looks up a string field, non-string values are missing.
func String(v any, path ...string) (string, bool) {
	found, ok := Lookup(v, path...)
	if !ok {
		return "", false
	}
	s, ok := found.(string)
	return s, ok
}

// Year parses a year key such as "2024".
func Year(raw string) (int, bool) {
	year, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || year < 1000 || year > 9999 {
		return 0, false
	}
	return year, true
}

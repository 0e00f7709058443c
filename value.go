package sift

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Cell value plumbing shared by schema inference and evaluation. Rows come
// from spreadsheets and JSON imports, so the same logical list can arrive
// as a native array, a JSON-array-encoded string, or "a,b;c".

func stringifyValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case []string:
		return strings.Join(t, ",")
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, stringifyValue(item))
		}
		return strings.Join(parts, ",")
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return strings.Trim(string(data), `"`)
	}
}

// parseNumber extracts a finite float from a cell or literal of any shape.
func parseNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case float32:
		f := float64(t)
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case bool, nil, []any, []string:
		return 0, false
	}
	s := strings.TrimSpace(stringifyValue(v))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseBoolWord(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// looksJSONArray is a cheap shape check; callers still strict-parse.
func looksJSONArray(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) >= 2 && strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]")
}

func parseJSONArray(s string) ([]any, bool) {
	if !looksJSONArray(s) {
		return nil, false
	}
	var items []any
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &items); err != nil {
		return nil, false
	}
	return items, true
}

// tokenizeCell splits a cell into its logical members: native arrays
// as-is, JSON-array strings parsed, anything else split on comma or
// semicolon. Scalars yield a single token.
func tokenizeCell(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		return t
	case []any:
		tokens := make([]string, 0, len(t))
		for _, item := range t {
			tokens = append(tokens, stringifyValue(item))
		}
		return tokens
	case string:
		if items, ok := parseJSONArray(t); ok {
			tokens := make([]string, 0, len(items))
			for _, item := range items {
				tokens = append(tokens, stringifyValue(item))
			}
			return tokens
		}
		return splitDelimited(t)
	default:
		return []string{stringifyValue(v)}
	}
}

func splitDelimited(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';'
	})
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// normValue is the comparison normal form: trimmed and lowercased.
func normValue(v any) string {
	return strings.ToLower(strings.TrimSpace(stringifyValue(v)))
}

func isArrayShaped(v any) bool {
	switch t := v.(type) {
	case []any, []string:
		return true
	case string:
		_, ok := parseJSONArray(t)
		return ok
	}
	return false
}

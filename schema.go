package sift

import (
	"sort"
	"strings"
	"time"
)

// DefaultMaxSamples bounds the per-field sample set carried in a schema.
const DefaultMaxSamples = 12

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

// InferSchema derives a per-field type and sample profile from a row
// sample. Columns are emitted in sorted name order so the result doubles
// as a stable schema signature. Empty input yields nil.
//
// Type priority is deliberately asymmetric: a single array-like value is
// strong evidence of a multi-valued column, while number and boolean
// require full consensus because one exception invalidates them.
func InferSchema(rows []Row, maxSamples int) []FieldSchema {
	if len(rows) == 0 {
		return nil
	}
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}

	names := make([]string, 0)
	seen := make(map[string]struct{})
	for _, row := range rows {
		for name := range row {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)

	schema := make([]FieldSchema, 0, len(names))
	for _, name := range names {
		schema = append(schema, inferField(name, rows, maxSamples))
	}
	return schema
}

func inferField(name string, rows []Row, maxSamples int) FieldSchema {
	var (
		values    []any
		anyArray  bool
		anyDate   bool
		allNumber = true
		allBool   = true
	)

	for _, row := range rows {
		v, ok := row[name]
		if !ok || v == nil {
			continue
		}
		if strings.TrimSpace(stringifyValue(v)) == "" {
			continue
		}
		values = append(values, v)

		if isArrayShaped(v) {
			anyArray = true
		}
		if _, ok := parseNumber(v); !ok {
			allNumber = false
		}
		if _, ok := parseBoolWord(v); !ok {
			allBool = false
		}
		if !anyDate && parsesAsDate(v) {
			anyDate = true
		}
	}

	f := FieldSchema{Name: name, Type: FieldString}
	switch {
	case len(values) == 0:
		f.Type = FieldUnknown
	case anyArray:
		f.Type = FieldArray
	case allNumber:
		f.Type = FieldNumber
	case allBool:
		f.Type = FieldBoolean
	case anyDate:
		f.Type = FieldDate
	}

	f.Samples = sampleValues(values, maxSamples)
	return f
}

// sampleValues deduplicates by normalized value, keeping first-seen
// originals up to the cap.
func sampleValues(values []any, maxSamples int) []string {
	var samples []string
	seen := make(map[string]struct{})
	for _, v := range values {
		s := strings.TrimSpace(stringifyValue(v))
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		samples = append(samples, s)
		if len(samples) >= maxSamples {
			break
		}
	}
	return samples
}

func parsesAsDate(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// Columns returns the ordered column-name list of a schema.
func Columns(schema []FieldSchema) []string {
	names := make([]string, 0, len(schema))
	for _, f := range schema {
		names = append(names, f.Name)
	}
	return names
}

// SchemaSignature joins the ordered column names into a cache-key
// component. A dataset change that adds or removes columns changes the
// signature, turning stale cache entries into natural misses.
func SchemaSignature(schema []FieldSchema) string {
	return strings.Join(Columns(schema), "\x1f")
}

// FieldByName looks a column up by exact name.
func FieldByName(schema []FieldSchema, name string) (FieldSchema, bool) {
	for _, f := range schema {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSchema{}, false
}

// ListLike reports whether a column is semantically multi-valued: typed
// as array, or carrying samples that contain delimiters or look like
// JSON arrays. Equality against such columns silently fails, so repair
// upgrades those operators to includes.
func ListLike(f FieldSchema) bool {
	if f.Type == FieldArray {
		return true
	}
	for _, s := range f.Samples {
		if strings.ContainsAny(s, ",;") || looksJSONArray(s) {
			return true
		}
	}
	return false
}

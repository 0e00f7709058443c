package internal

import (
	"regexp"
	"strings"

	"github.com/lychee-technology/sift"
)

// Two narrow pattern matchers flank the main translator: QuickPreview
// gives the caller an instant optimistic filter while the authoritative
// pipeline runs, and FallbackTranslate is the last resort when both the
// deterministic and AI tiers come up empty.

var (
	previewSymbolicRe = regexp.MustCompile(`^\s*([A-Za-z][\w ]*?)\s*(>=|<=|==|!=|>|<|=)\s*([\w.-]+)`)
	fallbackInclRe    = regexp.MustCompile(`(?i)([A-Za-z][\w ]*?)\s+includes?\s+([\w.-]+)`)
)

// QuickPreview recognizes a single leading "<field> <op> <value>" or bare
// "<field> <value>" expression. It trades coverage for speed and returns
// nil the moment the text does not lead with something field-shaped.
func QuickPreview(text string, entity sift.Entity, fields []sift.FieldSchema) sift.Node {
	table := synonymsFor(entity)

	if m := previewSymbolicRe.FindStringSubmatch(text); m != nil {
		if field, ok := resolveFieldPhrase(m[1], fields, table, false); ok {
			cmp := sift.Cmp(m[2])
			if cmp == "=" {
				cmp = sift.CmpEq
			}
			return &sift.Leaf{Op: sift.OpCmp, Cmp: cmp, Field: field, Value: castValue(m[3])}
		}
	}

	words := strings.Fields(text)
	if len(words) == 2 {
		if field, ok := resolveFieldPhrase(words[0], fields, table, false); ok {
			value := castValue(words[1])
			if fieldListLike(fields, field) {
				return &sift.Leaf{Op: sift.OpIncludes, Field: field, Value: value}
			}
			return &sift.Leaf{Op: sift.OpCmp, Cmp: sift.CmpEq, Field: field, Value: value}
		}
	}
	return nil
}

// FallbackTranslate is the terminal tier. It collects every symbolic
// comparison and "includes" phrase it can find, and as a final gambit
// matches a short query against schema sample values to guess the column
// being talked about.
func FallbackTranslate(text string, entity sift.Entity, fields []sift.FieldSchema) sift.Node {
	table := synonymsFor(entity)
	var children []sift.Node

	for _, m := range previewSymbolicRe.FindAllStringSubmatch(text, -1) {
		if field, ok := resolveFieldPhrase(m[1], fields, table, false); ok {
			cmp := sift.Cmp(m[2])
			if cmp == "=" {
				cmp = sift.CmpEq
			}
			children = append(children, &sift.Leaf{Op: sift.OpCmp, Cmp: cmp, Field: field, Value: castValue(m[3])})
		}
	}

	for _, m := range fallbackInclRe.FindAllStringSubmatch(text, -1) {
		if field, ok := resolveFieldPhrase(m[1], fields, table, false); ok {
			children = append(children, &sift.Leaf{Op: sift.OpIncludes, Field: field, Value: castValue(m[2])})
		}
	}

	if len(children) == 0 {
		if leaf := sampleValueMatch(text, fields); leaf != nil {
			children = append(children, leaf)
		}
	}

	switch len(children) {
	case 0:
		return nil
	case 1:
		return children[0]
	default:
		return &sift.Composite{Op: sift.OpAnd, Children: children}
	}
}

// sampleValueMatch handles one- or two-word queries like "coding" by
// finding a column whose sampled values contain the token.
func sampleValueMatch(text string, fields []sift.FieldSchema) sift.Node {
	token := strings.ToLower(strings.TrimSpace(text))
	if token == "" || len(strings.Fields(token)) > 2 {
		return nil
	}
	for _, f := range fields {
		for _, sample := range f.Samples {
			if strings.Contains(strings.ToLower(sample), token) {
				return &sift.Leaf{Op: sift.OpIncludes, Field: f.Name, Value: strings.TrimSpace(text)}
			}
		}
	}
	return nil
}

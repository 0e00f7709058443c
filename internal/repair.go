package internal

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/lychee-technology/sift"
)

// parseFiniteFloat rejects NaN and infinities so coercion keeps the
// original literal for non-finite input.
func parseFiniteFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrSyntax
	}
	return f, nil
}

// DefaultFuzzyThreshold is the minimum trigram Jaccard similarity at
// which a fuzzy field-name match is accepted.
const DefaultFuzzyThreshold = 0.65

// RepairOptions tunes the repair pass.
type RepairOptions struct {
	// Soften downgrades a strict equality on a non-list string field to
	// contains. Applied as a second chance after a zero-result query.
	Soften bool
	// FuzzyThreshold overrides DefaultFuzzyThreshold when positive.
	FuzzyThreshold float64
}

// Repair normalizes a filter node against the live schema: fuzzy field
// resolution, type coercion keyed by the inferred column type, and the
// list-operator upgrade that keeps equality from silently failing on
// multi-valued cells. Repair is pure; the input node is not mutated.
func Repair(node sift.Node, schema []sift.FieldSchema, opts RepairOptions) sift.Node {
	if node == nil {
		return nil
	}
	threshold := opts.FuzzyThreshold
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}

	switch n := node.(type) {
	case *sift.Composite:
		children := make([]sift.Node, 0, len(n.Children))
		for _, child := range n.Children {
			children = append(children, Repair(child, schema, opts))
		}
		return &sift.Composite{Op: n.Op, Children: children}
	case *sift.Leaf:
		return repairLeaf(n, schema, threshold, opts.Soften)
	}
	return node
}

func repairLeaf(leaf *sift.Leaf, schema []sift.FieldSchema, threshold float64, soften bool) *sift.Leaf {
	out := *leaf

	field, resolved := ResolveField(leaf.Field, schema, threshold)
	if !resolved {
		// Left unresolved; pruning decides its fate.
		return &out
	}
	out.Field = field.Name

	out.Value = coerceValue(out.Value, field.Type)
	out.From = coerceValue(out.From, field.Type)
	out.To = coerceValue(out.To, field.Type)
	if len(out.Values) > 0 {
		values := make([]any, len(out.Values))
		for i, v := range out.Values {
			values[i] = coerceValue(v, field.Type)
		}
		out.Values = values
	}

	listLike := sift.ListLike(field)
	strictEq := out.Op == sift.OpCmp && (out.Cmp == "" || out.Cmp == sift.CmpEq)

	if listLike && (strictEq || out.Op == sift.OpContains) {
		out.Op = sift.OpIncludes
		out.Cmp = ""
	} else if soften && strictEq && !listLike &&
		(field.Type == sift.FieldString || field.Type == sift.FieldUnknown) {
		out.Op = sift.OpContains
		out.Cmp = ""
	}

	return &out
}

// ResolveField maps a possibly mangled field name onto a schema column:
// exact, case-insensitive, trigram similarity at or above the threshold,
// then substring containment of normalized names.
func ResolveField(name string, schema []sift.FieldSchema, threshold float64) (sift.FieldSchema, bool) {
	if name == "" {
		return sift.FieldSchema{}, false
	}

	for _, f := range schema {
		if f.Name == name {
			return f, true
		}
	}
	for _, f := range schema {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}

	best := -1
	bestScore := 0.0
	for i, f := range schema {
		score := Similarity(name, f.Name)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best >= 0 && bestScore >= threshold {
		return schema[best], true
	}

	normName := normalizeFieldName(name)
	if normName != "" {
		for _, f := range schema {
			normCol := normalizeFieldName(f.Name)
			if strings.Contains(normCol, normName) || strings.Contains(normName, normCol) {
				return f, true
			}
		}
	}

	return sift.FieldSchema{}, false
}

// coerceValue casts a literal toward the column's inferred type, keeping
// the original whenever the cast does not cleanly apply.
func coerceValue(v any, fieldType sift.FieldType) any {
	if v == nil {
		return nil
	}
	switch fieldType {
	case sift.FieldNumber:
		if f, ok := parseLiteralNumber(v); ok {
			return f
		}
		return v
	case sift.FieldBoolean:
		if b, ok := parseLiteralBool(v); ok {
			return b
		}
		return v
	case sift.FieldArray:
		return coerceListLiteral(v)
	case sift.FieldDate:
		if s, ok := v.(string); ok {
			if normalized, ok := normalizeDate(s); ok {
				return normalized
			}
		}
		return v
	default:
		return v
	}
}

func parseLiteralNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		var f float64
		var err error
		f, err = parseFiniteFloat(s)
		return f, err == nil
	}
	return 0, false
}

func parseLiteralBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1":
			return true, true
		case "false", "no", "0":
			return false, true
		}
	}
	return false, false
}

// coerceListLiteral parses a string literal destined for an array column:
// JSON arrays strictly, otherwise a comma/semicolon split with an
// opportunistic per-token numeric cast. Single-member lists collapse back
// to a scalar so includes keeps its needle semantics.
func coerceListLiteral(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	tokens := listTokens(s)
	switch len(tokens) {
	case 0:
		return v
	case 1:
		return tokens[0]
	default:
		return tokens
	}
}

func listTokens(s string) []any {
	var parts []string
	if strings.HasPrefix(strings.TrimSpace(s), "[") {
		trimmed := strings.Trim(strings.TrimSpace(s), "[]")
		parts = strings.FieldsFunc(trimmed, func(r rune) bool { return r == ',' || r == ';' })
	} else {
		parts = strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' })
	}
	tokens := make([]any, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `"'`)
		if p == "" {
			continue
		}
		if f, err := parseFiniteFloat(p); err == nil {
			tokens = append(tokens, f)
		} else {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

var repairDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

func normalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range repairDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if strings.Contains(s, ":") {
				return t.Format(time.RFC3339), true
			}
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// PruneUnknown discards leaves whose field is not among the known
// columns; composites keep only surviving children and vanish when none
// survive. A nil result means the whole tree referenced nothing real.
func PruneUnknown(node sift.Node, columns *Set[string]) sift.Node {
	switch n := node.(type) {
	case *sift.Leaf:
		if columns.Contains(n.Field) {
			return n
		}
		return nil
	case *sift.Composite:
		var kept []sift.Node
		for _, child := range n.Children {
			if survivor := PruneUnknown(child, columns); survivor != nil {
				kept = append(kept, survivor)
			}
		}
		if len(kept) == 0 {
			return nil
		}
		return &sift.Composite{Op: n.Op, Children: kept}
	}
	return nil
}

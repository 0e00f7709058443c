package internal

import (
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/lychee-technology/sift"
)

// Translator is the deterministic tier: it splits free text into clauses
// and tries each clause against a fixed ladder of pattern families.
// Partial understanding beats total rejection, so clauses that resolve to
// nothing are silently dropped and the survivors are combined under and.
type Translator struct {
	synonyms map[sift.Entity]map[string]string
}

// NewTranslator creates a translator with the built-in synonym tables.
func NewTranslator() *Translator {
	merged := make(map[sift.Entity]map[string]string, len(defaultSynonyms))
	for entity, table := range defaultSynonyms {
		copied := make(map[string]string, len(table))
		for phrase, column := range table {
			copied[phrase] = column
		}
		merged[entity] = copied
	}
	return &Translator{synonyms: merged}
}

// LoadOverrides overlays phrase mappings from a YAML file onto the
// built-in tables.
func (t *Translator) LoadOverrides(path string) error {
	overrides, err := LoadSynonymOverrides(path)
	if err != nil {
		return err
	}
	for entity, table := range overrides {
		if t.synonyms[entity] == nil {
			t.synonyms[entity] = make(map[string]string, len(table))
		}
		for phrase, column := range table {
			t.synonyms[entity][phrase] = column
		}
		zap.S().Debugw("synonym overrides merged",
			"entity", entity,
			"phrases", SortedKeys(table))
	}
	return nil
}

var (
	clauseSplitRe = regexp.MustCompile(`(?i)\s+and\s+|[,;]+`)

	includesRe = regexp.MustCompile(`(?i)^(.+?)\s+(?:must\s+include|includes|include|contains|contain|has|have|having|with)\s+(.+)$`)
	equalityRe = regexp.MustCompile(`(?i)^(.+?)\s+(?:must\s+be|should\s+be|is|are|equals|equal to)\s+(.+)$`)
	symbolicRe = regexp.MustCompile(`^(.+?)\s*(>=|<=|==|!=|>|<|=)\s*(.+)$`)
	wordedRe   = regexp.MustCompile(`(?i)^(.+?)\s+(?:is\s+|are\s+)?(greater than or equal to|less than or equal to|not equal to|greater than|less than|more than|fewer than|at least|no less than|at most|no more than|over|above|under|below|not)\s+(.+)$`)
	phaseRe    = regexp.MustCompile(`(?i)^(?:in\s+|during\s+)?phase\s+(\S+)$`)
	skillRe    = regexp.MustCompile(`(?i)^(?:with\s+|has\s+|need\s+|needs\s+)?skill\s+(.+)$`)
)

var wordedCmp = map[string]sift.Cmp{
	"greater than or equal to": sift.CmpGte,
	"less than or equal to":    sift.CmpLte,
	"not equal to":             sift.CmpNeq,
	"not":                      sift.CmpNeq,
	"greater than":             sift.CmpGt,
	"more than":                sift.CmpGt,
	"over":                     sift.CmpGt,
	"above":                    sift.CmpGt,
	"less than":                sift.CmpLt,
	"fewer than":               sift.CmpLt,
	"under":                    sift.CmpLt,
	"below":                    sift.CmpLt,
	"at least":                 sift.CmpGte,
	"no less than":             sift.CmpGte,
	"at most":                  sift.CmpLte,
	"no more than":             sift.CmpLte,
}

// NLToDSL translates free text into a filter node, or nil when no clause
// resolved at all.
func (t *Translator) NLToDSL(text string, entity sift.Entity, fields []sift.FieldSchema) sift.Node {
	var children []sift.Node
	for _, clause := range clauseSplitRe.Split(text, -1) {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		if node := t.translateClause(clause, entity, fields); node != nil {
			children = append(children, node)
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

// translateClause tries the pattern families in fixed order.
func (t *Translator) translateClause(clause string, entity sift.Entity, fields []sift.FieldSchema) sift.Node {
	table := t.synonyms[entity]

	if m := includesRe.FindStringSubmatch(clause); m != nil {
		if field, ok := resolveFieldPhrase(m[1], fields, table, true); ok {
			op := sift.OpContains
			if fieldListLike(fields, field) {
				op = sift.OpIncludes
			}
			return &sift.Leaf{Op: op, Field: field, Value: castValue(m[2])}
		}
	}

	if m := equalityRe.FindStringSubmatch(clause); m != nil && !startsWithComparator(m[2]) {
		if field, ok := resolveFieldPhrase(m[1], fields, table, true); ok {
			return &sift.Leaf{Op: sift.OpCmp, Cmp: sift.CmpEq, Field: field, Value: castValue(m[2])}
		}
	}

	if m := symbolicRe.FindStringSubmatch(clause); m != nil {
		if field, ok := resolveFieldPhrase(m[1], fields, table, true); ok {
			cmp := sift.Cmp(m[2])
			if cmp == "=" {
				cmp = sift.CmpEq
			}
			return &sift.Leaf{Op: sift.OpCmp, Cmp: cmp, Field: field, Value: castValue(m[3])}
		}
	}

	if m := wordedRe.FindStringSubmatch(clause); m != nil {
		if cmp, known := wordedCmp[strings.ToLower(m[2])]; known {
			if field, ok := resolveFieldPhrase(m[1], fields, table, true); ok {
				return &sift.Leaf{Op: sift.OpCmp, Cmp: cmp, Field: field, Value: castValue(m[3])}
			}
		}
	}

	if m := phaseRe.FindStringSubmatch(clause); m != nil {
		if field, ok := resolveFieldPhrase("phase", fields, table, false); ok {
			return &sift.Leaf{Op: sift.OpIncludes, Field: field, Value: castValue(m[1])}
		}
	}

	if m := skillRe.FindStringSubmatch(clause); m != nil {
		if field, ok := resolveFieldPhrase("skill", fields, table, false); ok {
			return &sift.Leaf{Op: sift.OpIncludes, Field: field, Value: castValue(m[1])}
		}
	}

	return t.translateBare(clause, entity, fields)
}

// startsWithComparator lets "X is more than 3" fall through from the
// equality family to the worded-comparison family.
func startsWithComparator(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	for phrase := range wordedCmp {
		if strings.HasPrefix(v, phrase+" ") {
			return true
		}
	}
	return false
}

// translateBare handles "<field> <value>" with no connective: the longest
// resolvable leading phrase wins. Guessing is disabled here since clause
// structure gives no hint of where the field ends.
func (t *Translator) translateBare(clause string, entity sift.Entity, fields []sift.FieldSchema) sift.Node {
	words := strings.Fields(clause)
	if len(words) < 2 {
		return nil
	}
	table := t.synonyms[entity]
	for cut := len(words) - 1; cut >= 1; cut-- {
		phrase := strings.Join(words[:cut], " ")
		field, ok := resolveFieldPhrase(phrase, fields, table, false)
		if !ok {
			continue
		}
		value := castValue(strings.Join(words[cut:], " "))
		if fieldListLike(fields, field) {
			return &sift.Leaf{Op: sift.OpIncludes, Field: field, Value: value}
		}
		return &sift.Leaf{Op: sift.OpCmp, Cmp: sift.CmpEq, Field: field, Value: value}
	}
	return nil
}

// resolveFieldPhrase maps a spoken field phrase to a column name, in
// order: synonym table, exact case-insensitive header, whitespace-
// collapsed header, and (when allowGuess) a title-cased guess that repair
// may still have to resolve or prune.
func resolveFieldPhrase(phrase string, fields []sift.FieldSchema, synonyms map[string]string, allowGuess bool) (string, bool) {
	np := normalizePhrase(phrase)
	np = strings.TrimPrefix(np, "the ")
	np = strings.TrimPrefix(np, "a ")
	np = strings.TrimPrefix(np, "an ")
	if np == "" {
		return "", false
	}

	if canonical, ok := synonyms[np]; ok {
		if header, found := headerByNameFold(fields, canonical); found {
			return header, true
		}
		return canonical, true
	}

	if header, found := headerByNameFold(fields, np); found {
		return header, true
	}

	collapsed := strings.ReplaceAll(np, " ", "")
	for _, f := range fields {
		if strings.ReplaceAll(strings.ToLower(f.Name), " ", "") == collapsed {
			return f.Name, true
		}
	}

	if allowGuess {
		return titleCaseGuess(np), true
	}
	return "", false
}

func headerByNameFold(fields []sift.FieldSchema, name string) (string, bool) {
	for _, f := range fields {
		if strings.EqualFold(f.Name, name) {
			return f.Name, true
		}
	}
	return "", false
}

func fieldListLike(fields []sift.FieldSchema, name string) bool {
	for _, f := range fields {
		if strings.EqualFold(f.Name, name) {
			return sift.ListLike(f)
		}
	}
	return false
}

func titleCaseGuess(phrase string) string {
	words := strings.Fields(phrase)
	var b strings.Builder
	for _, w := range words {
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(w[1:])
	}
	return b.String()
}

// castValue turns a surface token into a typed literal: finite numbers
// become float64, bare true/false become bool, everything else stays a
// trimmed unquoted string.
func castValue(s string) any {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

package sift

import (
	"regexp"
	"strings"
)

// Apply filters rows through a node, preserving input order. A nil node
// selects everything. Apply never errors: evaluation-time faults (bad
// regex, non-finite operands) count as "no match".
func Apply(rows []Row, node Node) []Row {
	if node == nil {
		return rows
	}
	matched := make([]Row, 0, len(rows))
	for _, row := range rows {
		if node.Matches(row) {
			matched = append(matched, row)
		}
	}
	return matched
}

// Matches implements Node for logical combinators. An empty and is true,
// an empty or is false, and not without children is false.
func (c *Composite) Matches(row Row) bool {
	switch c.Op {
	case OpAnd:
		for _, child := range c.Children {
			if !child.Matches(row) {
				return false
			}
		}
		return true
	case OpOr:
		for _, child := range c.Children {
			if child.Matches(row) {
				return true
			}
		}
		return false
	case OpNot:
		if len(c.Children) == 0 {
			return false
		}
		// Only the first child is negated; see the type comment.
		return !c.Children[0].Matches(row)
	}
	return false
}

// Matches implements Node for field predicates.
func (l *Leaf) Matches(row Row) bool {
	cell, present := row[l.Field]

	switch l.Op {
	case OpExists:
		return present && cellPresent(cell)
	case OpNotExists:
		return !present || !cellPresent(cell)
	case OpCmp:
		return matchCmp(cell, l.Cmp, l.Value)
	case OpIncludes:
		return matchIncludes(cell, l.Value)
	case OpContains:
		return strings.Contains(normValue(cell), normValue(l.Value))
	case OpStartsWith:
		return strings.HasPrefix(normValue(cell), normValue(l.Value))
	case OpEndsWith:
		return strings.HasSuffix(normValue(cell), normValue(l.Value))
	case OpIn:
		return matchIn(cell, l.Values)
	case OpNin:
		return !matchIn(cell, l.Values)
	case OpRegex:
		return matchRegex(cell, l.Value)
	case OpBetween:
		return matchBetween(cell, l.From, l.To)
	}
	return false
}

func cellPresent(cell any) bool {
	if cell == nil {
		return false
	}
	return strings.TrimSpace(stringifyValue(cell)) != ""
}

// matchCmp compares numerically when both operands parse as finite
// numbers, otherwise falls back to case-insensitive trimmed lexical
// comparison. Ordering operators participate in both modes so the one
// grammar serves numeric and free-text columns alike.
func matchCmp(cell any, cmp Cmp, value any) bool {
	if cmp == "" {
		cmp = CmpEq
	}
	ln, lok := parseNumber(cell)
	rn, rok := parseNumber(value)
	if lok && rok {
		switch cmp {
		case CmpEq:
			return ln == rn
		case CmpNeq:
			return ln != rn
		case CmpGt:
			return ln > rn
		case CmpGte:
			return ln >= rn
		case CmpLt:
			return ln < rn
		case CmpLte:
			return ln <= rn
		}
		return false
	}

	ls, rs := normValue(cell), normValue(value)
	switch cmp {
	case CmpEq:
		return ls == rs
	case CmpNeq:
		return ls != rs
	case CmpGt:
		return ls > rs
	case CmpGte:
		return ls >= rs
	case CmpLt:
		return ls < rs
	case CmpLte:
		return ls <= rs
	}
	return false
}

// matchIncludes tests membership against the tokenized cell. A token
// matches on case-insensitive equality or substring containment in
// either direction, so "phase 3" finds [2,3,4] and "cod" finds
// "coding,analysis".
func matchIncludes(cell, value any) bool {
	needle := normValue(value)
	if needle == "" {
		return false
	}
	for _, token := range tokenizeCell(cell) {
		nt := strings.ToLower(strings.TrimSpace(token))
		if nt == "" {
			continue
		}
		if nt == needle || strings.Contains(nt, needle) || strings.Contains(needle, nt) {
			return true
		}
	}
	return false
}

func matchIn(cell any, values []any) bool {
	target := normValue(cell)
	for _, v := range values {
		if normValue(v) == target {
			return true
		}
	}
	return false
}

func matchRegex(cell, pattern any) bool {
	expr := strings.TrimSpace(stringifyValue(pattern))
	if expr == "" {
		return false
	}
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return false
	}
	return re.MatchString(stringifyValue(cell))
}

// matchBetween is an inclusive range. Numeric when the cell and both
// bounds parse as numbers, with bounds min/max-normalized regardless of
// the order they were written; lexical over normalized strings otherwise.
func matchBetween(cell, from, to any) bool {
	cn, cok := parseNumber(cell)
	fn, fok := parseNumber(from)
	tn, tok := parseNumber(to)
	if cok && fok && tok {
		lo, hi := fn, tn
		if lo > hi {
			lo, hi = hi, lo
		}
		return cn >= lo && cn <= hi
	}

	cs := normValue(cell)
	lo, hi := normValue(from), normValue(to)
	if lo > hi {
		lo, hi = hi, lo
	}
	return cs >= lo && cs <= hi
}

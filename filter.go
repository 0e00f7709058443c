package sift

import (
	"encoding/json"
	"fmt"
)

// Op names a filter operator. Composite operators own children; leaf
// operators own a field plus one of value, values, or from/to.
type Op string

const (
	OpAnd Op = "and"
	OpOr  Op = "or"
	OpNot Op = "not"

	OpCmp        Op = "cmp"
	OpIncludes   Op = "includes"
	OpContains   Op = "contains"
	OpIn         Op = "in"
	OpNin        Op = "nin"
	OpStartsWith Op = "startsWith"
	OpEndsWith   Op = "endsWith"
	OpRegex      Op = "regex"
	OpExists     Op = "exists"
	OpNotExists  Op = "notExists"
	OpBetween    Op = "between"
)

// Cmp is the comparison operator carried by a cmp leaf.
type Cmp string

const (
	CmpEq  Cmp = "=="
	CmpNeq Cmp = "!="
	CmpGt  Cmp = ">"
	CmpGte Cmp = ">="
	CmpLt  Cmp = "<"
	CmpLte Cmp = "<="
)

// Node is a filter tree node: either a logical combinator or a
// single-field predicate. The split into Composite and Leaf makes
// "leaves need a field, composites need children" a compile-time
// property instead of a runtime convention.
type Node interface {
	IsLeaf() bool

	// Matches evaluates the node against a single row. It is total:
	// malformed operands and invalid patterns evaluate to false rather
	// than erroring, so one bad clause cannot void a compound filter.
	Matches(row Row) bool
}

// Composite combines child nodes under and/or/not.
//
// not evaluates only its first child when given several; extra children
// are ignored. This mirrors the behavior callers already depend on and
// is deliberate (see DESIGN.md).
type Composite struct {
	Op       Op     `json:"op"`
	Children []Node `json:"children"`
}

func (c *Composite) IsLeaf() bool { return false }

// Leaf is a single-field predicate. Field may reference a column that
// does not exist yet; repair resolves or prunes it before evaluation.
type Leaf struct {
	Op     Op     `json:"op"`
	Field  string `json:"field"`
	Cmp    Cmp    `json:"cmp,omitempty"`
	Value  any    `json:"value,omitempty"`
	Values []any  `json:"values,omitempty"`
	From   any    `json:"from,omitempty"`
	To     any    `json:"to,omitempty"`
}

func (l *Leaf) IsLeaf() bool { return true }

func compositeOp(op Op) bool {
	return op == OpAnd || op == OpOr || op == OpNot
}

func leafOp(op Op) bool {
	switch op {
	case OpCmp, OpIncludes, OpContains, OpIn, OpNin, OpStartsWith,
		OpEndsWith, OpRegex, OpExists, OpNotExists, OpBetween:
		return true
	}
	return false
}

// DecodeNode inspects the payload's "op" discriminator and instantiates
// the matching concrete node, decoding nested children recursively.
func DecodeNode(data []byte) (Node, error) {
	var discriminator struct {
		Op Op `json:"op"`
	}
	if err := json.Unmarshal(data, &discriminator); err != nil {
		return nil, err
	}

	switch {
	case compositeOp(discriminator.Op):
		var c Composite
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, err
		}
		return &c, nil
	case leafOp(discriminator.Op):
		var l Leaf
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, err
		}
		if l.Field == "" {
			return nil, fmt.Errorf("leaf node %q missing field", l.Op)
		}
		return &l, nil
	default:
		return nil, fmt.Errorf("unknown filter op: %q", discriminator.Op)
	}
}

// UnmarshalJSON decodes composite children into concrete node types.
func (c *Composite) UnmarshalJSON(data []byte) error {
	type alias struct {
		Op       Op                `json:"op"`
		Children []json.RawMessage `json:"children"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if !compositeOp(a.Op) {
		return fmt.Errorf("not a composite op: %q", a.Op)
	}
	c.Op = a.Op
	c.Children = nil
	for _, raw := range a.Children {
		child, err := DecodeNode(raw)
		if err != nil {
			return err
		}
		c.Children = append(c.Children, child)
	}
	return nil
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"fmt"
	"strings"
)

// Operator is a comparison or logical operator of a condition.
type Operator string

const (
	OpAnd Operator = "AND"
	OpOr  Operator = "OR"
	OpNot Operator = "NOT"

	OpEq      Operator = "EQ"
	OpGt      Operator = "GT"
	OpGte     Operator = "GTE"
	OpLt      Operator = "LT"
	OpLte     Operator = "LTE"
	OpLike    Operator = "LIKE"    // SQL-style pattern, % and _ wildcards
	OpBetween Operator = "BETWEEN" // value is a two element []any, inclusive
	OpIn      Operator = "IN"      // value is a []any
)

// IsLogical reports whether op combines child conditions.
func (op Operator) IsLogical() bool {
	return op == OpAnd || op == OpOr || op == OpNot
}

// Condition is a node of an immutable predicate tree: either a leaf
// comparing one attribute to a value, or a logical composite.
type Condition struct {
	attribute string
	operator  Operator
	value     any
	children  []*Condition
}

// Attribute returns the attribute name of a leaf, "" for composites.
func (c *Condition) Attribute() string { return c.attribute }

// Operator returns the node operator.
func (c *Condition) Operator() Operator { return c.operator }

// Value returns the comparison value of a leaf. BETWEEN and IN operands
// are returned as a copy.
func (c *Condition) Value() any {
	if vs, ok := c.value.([]any); ok && (c.operator == OpBetween || c.operator == OpIn) {
		out := make([]any, len(vs))
		copy(out, vs)
		return out
	}
	return c.value
}

// Children returns a copy of the child conditions of a composite.
func (c *Condition) Children() []*Condition {
	if len(c.children) == 0 {
		return nil
	}
	out := make([]*Condition, len(c.children))
	copy(out, c.children)
	return out
}

// IsLeaf reports whether c compares an attribute.
func (c *Condition) IsLeaf() bool {
	return !c.operator.IsLogical()
}

// Values returns the operands of BETWEEN and IN leaves, or the single value
// of other leaves.
func (c *Condition) Values() []any {
	if vs, ok := c.Value().([]any); ok && (c.operator == OpBetween || c.operator == OpIn) {
		return vs
	}
	return []any{c.value}
}

func leaf(attribute string, op Operator, value any) *Condition {
	return &Condition{attribute: attribute, operator: op, value: value}
}

func Eq(attribute string, value any) *Condition   { return leaf(attribute, OpEq, value) }
func Gt(attribute string, value any) *Condition   { return leaf(attribute, OpGt, value) }
func Gte(attribute string, value any) *Condition  { return leaf(attribute, OpGte, value) }
func Lt(attribute string, value any) *Condition   { return leaf(attribute, OpLt, value) }
func Lte(attribute string, value any) *Condition  { return leaf(attribute, OpLte, value) }
func Like(attribute string, value any) *Condition { return leaf(attribute, OpLike, value) }

// Between matches values in the inclusive range [low, high].
func Between(attribute string, low, high any) *Condition {
	return leaf(attribute, OpBetween, []any{low, high})
}

// In matches any of values.
func In(attribute string, values ...any) *Condition {
	vs := make([]any, len(values))
	copy(vs, values)
	return leaf(attribute, OpIn, vs)
}

// And combines conditions; nested AND composites are flattened.
func And(conditions ...*Condition) *Condition {
	return compose(OpAnd, conditions)
}

// Or combines conditions; nested OR composites are flattened.
func Or(conditions ...*Condition) *Condition {
	return compose(OpOr, conditions)
}

// Not negates c.
func Not(c *Condition) *Condition {
	return &Condition{operator: OpNot, children: []*Condition{c}}
}

// And returns c AND others. When c already is an AND the result extends it.
func (c *Condition) And(others ...*Condition) *Condition {
	return compose(OpAnd, append([]*Condition{c}, others...))
}

// Or returns c OR others. When c already is an OR the result extends it.
func (c *Condition) Or(others ...*Condition) *Condition {
	return compose(OpOr, append([]*Condition{c}, others...))
}

// Negate returns NOT c.
func (c *Condition) Negate() *Condition {
	return Not(c)
}

func compose(op Operator, conditions []*Condition) *Condition {
	children := make([]*Condition, 0, len(conditions))
	for _, cond := range conditions {
		if cond == nil {
			continue
		}
		if cond.operator == op {
			children = append(children, cond.children...)
			continue
		}
		children = append(children, cond)
	}
	if len(children) == 1 {
		return children[0]
	}
	return &Condition{operator: op, children: children}
}

func (c *Condition) String() string {
	if c == nil {
		return ""
	}
	switch c.operator {
	case OpNot:
		return fmt.Sprintf("NOT %s", c.children[0])
	case OpAnd, OpOr:
		parts := make([]string, len(c.children))
		for i, child := range c.children {
			parts[i] = child.String()
		}
		return "(" + strings.Join(parts, " "+string(c.operator)+" ") + ")"
	case OpBetween:
		vs := c.Values()
		return fmt.Sprintf("%s BETWEEN %v AND %v", c.attribute, vs[0], vs[1])
	default:
		return fmt.Sprintf("%s %s %v", c.attribute, c.operator, c.value)
	}
}

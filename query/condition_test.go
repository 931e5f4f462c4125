/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComposeFlattensSameOperator(t *testing.T) {
	a, b, c, d := Eq("a", 1), Eq("b", 2), Eq("c", 3), Eq("d", 4)

	assert.Equal(t, And(a, b, c), And(a, b).And(c))
	assert.Equal(t, Or(a, b, c, d), Or(a, b).Or(Or(c, d)))
	assert.Len(t, And(Or(a, b), c).Children(), 2, "different operators nest")
}

func TestComposeSingleChild(t *testing.T) {
	a := Eq("a", 1)
	assert.Same(t, a, And(a))
	assert.Same(t, a, Or(nil, a))
}

func TestComposeDoesNotMutateOperands(t *testing.T) {
	ab := And(Eq("a", 1), Eq("b", 2))
	_ = ab.And(Eq("c", 3))
	assert.Len(t, ab.Children(), 2)
}

func TestConditionString(t *testing.T) {
	c := And(Between("age", 10, 20), Not(Like("name", "A%")), In("x", 1, 2))
	assert.Equal(t, "(age BETWEEN 10 AND 20 AND NOT name LIKE A% AND x IN [1 2])", c.String())
}

func TestOperatorIsLogical(t *testing.T) {
	for _, op := range []Operator{OpAnd, OpOr, OpNot} {
		assert.True(t, op.IsLogical(), op)
	}
	for _, op := range []Operator{OpEq, OpGt, OpGte, OpLt, OpLte, OpLike, OpBetween, OpIn} {
		assert.False(t, op.IsLogical(), op)
	}
}

func TestConditionOperandsAreCopied(t *testing.T) {
	q, err := Select().From("Person").Where("age").Between(10, 20).And("id").In(1, 2).Build()
	assert.NoError(t, err)
	cond, ok := q.Condition()
	assert.True(t, ok)
	between, in := cond.Children()[0], cond.Children()[1]

	between.Value().([]any)[0] = 99
	between.Values()[1] = 99
	in.Value().([]any)[0] = 99

	assert.Equal(t, []any{10, 20}, between.Value())
	assert.Equal(t, []any{1, 2}, in.Values())
	assert.Equal(t, "(age BETWEEN 10 AND 20 AND id IN [1 2])", cond.String())
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/entitymapper/errors"
)

func TestSelectSimpleCondition(t *testing.T) {
	q, err := Select().From("Person").Where("_id").Eq(int64(10)).Build()
	require.NoError(t, err)

	assert.Equal(t, KindSelect, q.Kind())
	assert.Equal(t, "Person", q.Entity())
	assert.Nil(t, q.Fields())

	cond, ok := q.Condition()
	require.True(t, ok)
	assert.True(t, cond.IsLeaf())
	assert.Equal(t, "_id", cond.Attribute())
	assert.Equal(t, OpEq, cond.Operator())
	assert.Equal(t, int64(10), cond.Value())
}

func TestSelectNotLike(t *testing.T) {
	q, err := Select().From("Person").Where("name").Not().Like("Ada").Build()
	require.NoError(t, err)

	cond, _ := q.Condition()
	assert.Equal(t, Not(Like("name", "Ada")), cond)
	assert.Equal(t, OpNot, cond.Operator())
	require.Len(t, cond.Children(), 1)
	assert.Equal(t, OpLike, cond.Children()[0].Operator())
}

func TestSelectBetweenAnd(t *testing.T) {
	q, err := Select().From("Person").Where("age").Between(10, 20).And("name").Eq("Ada").Build()
	require.NoError(t, err)

	cond, _ := q.Condition()
	require.Equal(t, OpAnd, cond.Operator())
	children := cond.Children()
	require.Len(t, children, 2)
	assert.Equal(t, "age", children[0].Attribute())
	assert.Equal(t, []any{10, 20}, children[0].Values())
	assert.Equal(t, "name", children[1].Attribute())
}

func TestConsecutiveConnectorsExtendComposite(t *testing.T) {
	q, err := Select().From("Person").
		Where("a").Eq(1).
		And("b").Eq(2).
		And("c").Eq(3).
		Build()
	require.NoError(t, err)

	cond, _ := q.Condition()
	assert.Equal(t, And(Eq("a", 1), Eq("b", 2), Eq("c", 3)), cond)
	assert.Len(t, cond.Children(), 3)
}

func TestConnectorsAreLeftAssociative(t *testing.T) {
	q, err := Select().From("Person").
		Where("a").Eq(1).
		Or("b").Eq(2).
		And("c").Eq(3).
		Build()
	require.NoError(t, err)

	cond, _ := q.Condition()
	want := And(Or(Eq("a", 1), Eq("b", 2)), Eq("c", 3))
	assert.Equal(t, want, cond)
	assert.Equal(t, "((a EQ 1 OR b EQ 2) AND c EQ 3)", cond.String())
}

func TestNegatedConnector(t *testing.T) {
	q, err := Select().From("Person").Where("age").Gt(18).And("name").Not().Eq("Bob").Build()
	require.NoError(t, err)

	cond, _ := q.Condition()
	assert.Equal(t, And(Gt("age", 18), Not(Eq("name", "Bob"))), cond)
}

func TestAllOperators(t *testing.T) {
	tests := []struct {
		name  string
		apply func(*SelectBuilder) *SelectBuilder
		want  *Condition
	}{
		{"eq", func(b *SelectBuilder) *SelectBuilder { return b.Eq(1) }, Eq("x", 1)},
		{"gt", func(b *SelectBuilder) *SelectBuilder { return b.Gt(1) }, Gt("x", 1)},
		{"gte", func(b *SelectBuilder) *SelectBuilder { return b.Gte(1) }, Gte("x", 1)},
		{"lt", func(b *SelectBuilder) *SelectBuilder { return b.Lt(1) }, Lt("x", 1)},
		{"lte", func(b *SelectBuilder) *SelectBuilder { return b.Lte(1) }, Lte("x", 1)},
		{"like", func(b *SelectBuilder) *SelectBuilder { return b.Like("a%") }, Like("x", "a%")},
		{"between", func(b *SelectBuilder) *SelectBuilder { return b.Between(1, 5) }, Between("x", 1, 5)},
		{"in", func(b *SelectBuilder) *SelectBuilder { return b.In(1, 2, 3) }, In("x", 1, 2, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := tt.apply(Select().From("E").Where("x")).Build()
			require.NoError(t, err)
			cond, _ := q.Condition()
			assert.Equal(t, tt.want, cond)
		})
	}
}

func TestSelectProjectionSortingAndPaging(t *testing.T) {
	q, err := Select("name", "age").From("Person").
		Where("age").Gte(18).
		OrderBy("name").Asc().
		OrderBy("age").Desc().
		Skip(5).
		Limit(10).
		Build()
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "age"}, q.Fields())
	assert.Equal(t, []Sort{{"name", Asc}, {"age", Desc}}, q.Sorts())
	assert.Equal(t, int64(10), q.Limit())
	assert.Equal(t, int64(5), q.Skip())
	assert.Equal(t, "SELECT name, age FROM Person WHERE age GTE 18 ORDER BY name ASC, age DESC SKIP 5 LIMIT 10", q.String())
}

func TestSelectWithoutCondition(t *testing.T) {
	q, err := Select().From("Person").Limit(3).Build()
	require.NoError(t, err)
	_, ok := q.Condition()
	assert.False(t, ok)
	assert.Equal(t, "SELECT FROM Person LIMIT 3", q.String())
}

func TestDeleteBuilder(t *testing.T) {
	q, err := Delete().From("Worker").Where("money").Eq("USD 10").Or("name").In("a", "b").Build()
	require.NoError(t, err)

	assert.Equal(t, KindDelete, q.Kind())
	cond, _ := q.Condition()
	assert.Equal(t, Or(Eq("money", "USD 10"), In("name", "a", "b")), cond)
	assert.Equal(t, `DELETE FROM Worker WHERE (money EQ USD 10 OR name IN [a b])`, q.String())
}

func TestBuilderStateErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func() (*Query, error)
	}{
		{"eq before where", func() (*Query, error) { return Select().From("E").Eq(1).Build() }},
		{"where before from", func() (*Query, error) { return Select().Where("x").Eq(1).Build() }},
		{"build before from", func() (*Query, error) { return Select().Build() }},
		{"and before condition", func() (*Query, error) { return Select().From("E").And("x").Eq(1).Build() }},
		{"build while awaiting operator", func() (*Query, error) { return Select().From("E").Where("x").Build() }},
		{"asc without order by", func() (*Query, error) { return Select().From("E").Asc().Build() }},
		{"from twice", func() (*Query, error) { return Delete().From("E").From("F").Build() }},
		{"where after order by", func() (*Query, error) {
			return Select().From("E").OrderBy("x").Asc().Where("y").Eq(1).Build()
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := tt.build()
			assert.Nil(t, q)
			assert.True(t, errors.IsInvalidState(err), "got %v", err)
		})
	}
}

func TestBuilderValidation(t *testing.T) {
	_, err := Select().From("").Build()
	assert.True(t, errors.IsValidationError(err))

	_, err = Select().From("E").Where("").Eq(1).Build()
	assert.True(t, errors.IsValidationError(err))

	_, err = Select().From("E").Limit(-1).Build()
	assert.True(t, errors.IsValidationError(err))

	_, err = Select().From("E").Skip(-1).Build()
	assert.True(t, errors.IsValidationError(err))
}

func TestBuilderErrorIsSticky(t *testing.T) {
	b := Select().From("E").Eq(1)
	first := b.Err()
	require.Error(t, first)

	b.Where("x").Eq(2).Limit(-5)
	assert.Same(t, first, b.Err())

	_, err := b.Build()
	assert.Same(t, first, err)
}

func TestFailRecordsExternalError(t *testing.T) {
	cause := fmt.Errorf("boom")
	b := Delete().From("E").Where("x").Fail(cause).Eq(1)
	_, err := b.Build()
	assert.Same(t, cause, err)
}

func TestMutatorAfterBuild(t *testing.T) {
	b := Select().From("E").Where("x").Eq(1)
	q, err := b.Build()
	require.NoError(t, err)

	again, err := b.Build()
	require.NoError(t, err)
	assert.Same(t, q, again)

	b.And("y").Eq(2)
	assert.True(t, errors.IsInvalidState(b.Err()))
	_, err = b.Build()
	assert.True(t, errors.IsInvalidState(err))

	cond, _ := q.Condition()
	assert.Equal(t, Eq("x", 1), cond, "built query is unchanged")
}

func TestQueryGettersReturnCopies(t *testing.T) {
	q, err := Select("a").From("E").Where("x").In(1, 2).OrderBy("a").Asc().Build()
	require.NoError(t, err)

	q.Fields()[0] = "changed"
	q.Sorts()[0].Attribute = "changed"
	cond, _ := q.Condition()
	cond.Values()[0] = 99

	assert.Equal(t, []string{"a"}, q.Fields())
	assert.Equal(t, "a", q.Sorts()[0].Attribute)
	assert.Equal(t, []any{1, 2}, cond.Values())
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"github.com/suparena/entitymapper/errors"
)

type state string

const (
	stateFrom      state = "FROM"
	stateReady     state = "READY"
	stateWhere     state = "WHERE"
	stateCondition state = "CONDITION"
	stateOrder     state = "ORDER"
	stateSorted    state = "SORTED"
	stateBuilt     state = "BUILT"
)

// builder accumulates a query. The first error is sticky: later calls are
// ignored and Build returns it.
type builder struct {
	kind   Kind
	fields []string
	entity string

	state     state
	condition *Condition
	attribute string
	negate    bool
	connector Operator

	sorts []Sort
	limit int64
	skip  int64

	built *Query
	err   error
}

func (b *builder) recordError(err error) {
	if err != nil && b.err == nil {
		b.err = err
	}
}

// expect records an InvalidStateError unless the builder is in one of the
// allowed states. It returns false when the call must be ignored.
func (b *builder) expect(operation string, allowed ...state) bool {
	if b.err != nil {
		return false
	}
	for _, s := range allowed {
		if b.state == s {
			return true
		}
	}
	b.recordError(errors.NewInvalidStateError(operation, string(b.state)))
	return false
}

func (b *builder) from(entity string) {
	if !b.expect("From", stateFrom) {
		return
	}
	if entity == "" {
		b.recordError(errors.NewValidationError("entity", "entity name is required"))
		return
	}
	b.entity = entity
	b.state = stateReady
}

func (b *builder) where(attribute string) {
	if !b.expect("Where", stateReady) {
		return
	}
	b.startCondition(attribute, "")
}

func (b *builder) connect(op Operator, attribute string) {
	if !b.expect(string(op), stateCondition) {
		return
	}
	b.startCondition(attribute, op)
}

func (b *builder) startCondition(attribute string, connector Operator) {
	if attribute == "" {
		b.recordError(errors.NewValidationError("attribute", "attribute name is required"))
		return
	}
	b.attribute = attribute
	b.connector = connector
	b.negate = false
	b.state = stateWhere
}

func (b *builder) not() {
	if !b.expect("Not", stateWhere) {
		return
	}
	b.negate = !b.negate
}

func (b *builder) compare(op Operator, value any) {
	if !b.expect(string(op), stateWhere) {
		return
	}
	b.apply(leaf(b.attribute, op, value))
}

func (b *builder) apply(c *Condition) {
	if b.negate {
		c = Not(c)
	}
	switch {
	case b.condition == nil:
		b.condition = c
	case b.connector == OpOr:
		b.condition = b.condition.Or(c)
	default:
		b.condition = b.condition.And(c)
	}
	b.attribute = ""
	b.negate = false
	b.connector = ""
	b.state = stateCondition
}

func (b *builder) orderBy(attribute string) {
	if !b.expect("OrderBy", stateReady, stateCondition, stateSorted) {
		return
	}
	if attribute == "" {
		b.recordError(errors.NewValidationError("attribute", "attribute name is required"))
		return
	}
	b.sorts = append(b.sorts, Sort{Attribute: attribute})
	b.state = stateOrder
}

func (b *builder) direction(d Direction) {
	if !b.expect(string(d), stateOrder) {
		return
	}
	b.sorts[len(b.sorts)-1].Direction = d
	b.state = stateSorted
}

func (b *builder) setLimit(n int64) {
	if !b.expect("Limit", stateReady, stateCondition, stateSorted) {
		return
	}
	if n < 0 {
		b.recordError(errors.NewValidationError("limit", "limit must not be negative"))
		return
	}
	b.limit = n
}

func (b *builder) setSkip(n int64) {
	if !b.expect("Skip", stateReady, stateCondition, stateSorted) {
		return
	}
	if n < 0 {
		b.recordError(errors.NewValidationError("skip", "skip must not be negative"))
		return
	}
	b.skip = n
}

func (b *builder) build() (*Query, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.state == stateBuilt {
		return b.built, nil
	}
	if !b.expect("Build", stateReady, stateCondition, stateSorted) {
		return nil, b.err
	}
	q := &Query{
		kind:      b.kind,
		entity:    b.entity,
		condition: b.condition,
		limit:     b.limit,
		skip:      b.skip,
	}
	if len(b.fields) > 0 {
		q.fields = append([]string(nil), b.fields...)
	}
	if len(b.sorts) > 0 {
		q.sorts = append([]Sort(nil), b.sorts...)
	}
	b.built = q
	b.state = stateBuilt
	return q, nil
}

// SelectBuilder builds select queries. It is not safe for concurrent use.
type SelectBuilder struct {
	b builder
}

// Select starts a select query projecting fields, or every attribute when
// none are given.
func Select(fields ...string) *SelectBuilder {
	s := &SelectBuilder{b: builder{kind: KindSelect, state: stateFrom}}
	if len(fields) > 0 {
		s.b.fields = append([]string(nil), fields...)
	}
	return s
}

func (s *SelectBuilder) From(entity string) *SelectBuilder     { s.b.from(entity); return s }
func (s *SelectBuilder) Where(attribute string) *SelectBuilder { s.b.where(attribute); return s }
func (s *SelectBuilder) And(attribute string) *SelectBuilder {
	s.b.connect(OpAnd, attribute)
	return s
}
func (s *SelectBuilder) Or(attribute string) *SelectBuilder {
	s.b.connect(OpOr, attribute)
	return s
}

// Not negates the next comparison.
func (s *SelectBuilder) Not() *SelectBuilder { s.b.not(); return s }

func (s *SelectBuilder) Eq(value any) *SelectBuilder   { s.b.compare(OpEq, value); return s }
func (s *SelectBuilder) Gt(value any) *SelectBuilder   { s.b.compare(OpGt, value); return s }
func (s *SelectBuilder) Gte(value any) *SelectBuilder  { s.b.compare(OpGte, value); return s }
func (s *SelectBuilder) Lt(value any) *SelectBuilder   { s.b.compare(OpLt, value); return s }
func (s *SelectBuilder) Lte(value any) *SelectBuilder  { s.b.compare(OpLte, value); return s }
func (s *SelectBuilder) Like(value any) *SelectBuilder { s.b.compare(OpLike, value); return s }

func (s *SelectBuilder) Between(low, high any) *SelectBuilder {
	s.b.compare(OpBetween, []any{low, high})
	return s
}

func (s *SelectBuilder) In(values ...any) *SelectBuilder {
	s.b.compare(OpIn, append([]any{}, values...))
	return s
}

func (s *SelectBuilder) OrderBy(attribute string) *SelectBuilder {
	s.b.orderBy(attribute)
	return s
}
func (s *SelectBuilder) Asc() *SelectBuilder  { s.b.direction(Asc); return s }
func (s *SelectBuilder) Desc() *SelectBuilder { s.b.direction(Desc); return s }

func (s *SelectBuilder) Limit(n int64) *SelectBuilder { s.b.setLimit(n); return s }
func (s *SelectBuilder) Skip(n int64) *SelectBuilder  { s.b.setSkip(n); return s }

// Fail records err as the builder error unless one is already recorded.
// Wrapping builders use it to report their own failures.
func (s *SelectBuilder) Fail(err error) *SelectBuilder {
	s.b.recordError(err)
	return s
}

// Err returns the first recorded error.
func (s *SelectBuilder) Err() error { return s.b.err }

// Build returns the query. Calling Build again returns the same query; any
// other call after Build fails with an InvalidStateError.
func (s *SelectBuilder) Build() (*Query, error) { return s.b.build() }

// DeleteBuilder builds delete queries. It is not safe for concurrent use.
type DeleteBuilder struct {
	b builder
}

// Delete starts a delete query.
func Delete() *DeleteBuilder {
	return &DeleteBuilder{b: builder{kind: KindDelete, state: stateFrom}}
}

func (d *DeleteBuilder) From(entity string) *DeleteBuilder     { d.b.from(entity); return d }
func (d *DeleteBuilder) Where(attribute string) *DeleteBuilder { d.b.where(attribute); return d }
func (d *DeleteBuilder) And(attribute string) *DeleteBuilder {
	d.b.connect(OpAnd, attribute)
	return d
}
func (d *DeleteBuilder) Or(attribute string) *DeleteBuilder {
	d.b.connect(OpOr, attribute)
	return d
}
func (d *DeleteBuilder) Not() *DeleteBuilder { d.b.not(); return d }

func (d *DeleteBuilder) Eq(value any) *DeleteBuilder   { d.b.compare(OpEq, value); return d }
func (d *DeleteBuilder) Gt(value any) *DeleteBuilder   { d.b.compare(OpGt, value); return d }
func (d *DeleteBuilder) Gte(value any) *DeleteBuilder  { d.b.compare(OpGte, value); return d }
func (d *DeleteBuilder) Lt(value any) *DeleteBuilder   { d.b.compare(OpLt, value); return d }
func (d *DeleteBuilder) Lte(value any) *DeleteBuilder  { d.b.compare(OpLte, value); return d }
func (d *DeleteBuilder) Like(value any) *DeleteBuilder { d.b.compare(OpLike, value); return d }

func (d *DeleteBuilder) Between(low, high any) *DeleteBuilder {
	d.b.compare(OpBetween, []any{low, high})
	return d
}

func (d *DeleteBuilder) In(values ...any) *DeleteBuilder {
	d.b.compare(OpIn, append([]any{}, values...))
	return d
}

func (d *DeleteBuilder) Fail(err error) *DeleteBuilder {
	d.b.recordError(err)
	return d
}

func (d *DeleteBuilder) Err() error { return d.b.err }

func (d *DeleteBuilder) Build() (*Query, error) { return d.b.build() }

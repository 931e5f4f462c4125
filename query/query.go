/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package query

import (
	"fmt"
	"strings"
)

// Kind tells a backend what to do with the matched records.
type Kind int

const (
	KindSelect Kind = iota
	KindDelete
)

func (k Kind) String() string {
	if k == KindDelete {
		return "DELETE"
	}
	return "SELECT"
}

// Direction is a sort order.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Sort orders results by one attribute.
type Sort struct {
	Attribute string
	Direction Direction
}

// Query is a backend-neutral select or delete. It is immutable once built.
type Query struct {
	kind      Kind
	entity    string
	fields    []string
	condition *Condition
	sorts     []Sort
	limit     int64
	skip      int64
}

func (q *Query) Kind() Kind { return q.kind }

// Entity returns the target entity name.
func (q *Query) Entity() string { return q.entity }

// Fields returns the projected attributes of a select; nil selects all.
func (q *Query) Fields() []string {
	if len(q.fields) == 0 {
		return nil
	}
	out := make([]string, len(q.fields))
	copy(out, q.fields)
	return out
}

// Condition returns the predicate tree and whether the query has one.
func (q *Query) Condition() (*Condition, bool) {
	return q.condition, q.condition != nil
}

func (q *Query) Sorts() []Sort {
	if len(q.sorts) == 0 {
		return nil
	}
	out := make([]Sort, len(q.sorts))
	copy(out, q.sorts)
	return out
}

// Limit returns the maximum number of results, 0 for no limit.
func (q *Query) Limit() int64 { return q.limit }

// Skip returns the number of leading results to drop.
func (q *Query) Skip() int64 { return q.skip }

func (q *Query) String() string {
	var sb strings.Builder
	sb.WriteString(q.kind.String())
	if q.kind == KindSelect && len(q.fields) > 0 {
		sb.WriteString(" " + strings.Join(q.fields, ", "))
	}
	sb.WriteString(" FROM " + q.entity)
	if q.condition != nil {
		sb.WriteString(" WHERE " + q.condition.String())
	}
	if len(q.sorts) > 0 {
		parts := make([]string, len(q.sorts))
		for i, s := range q.sorts {
			parts[i] = s.Attribute + " " + string(s.Direction)
		}
		sb.WriteString(" ORDER BY " + strings.Join(parts, ", "))
	}
	if q.skip > 0 {
		sb.WriteString(fmt.Sprintf(" SKIP %d", q.skip))
	}
	if q.limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", q.limit))
	}
	return sb.String()
}

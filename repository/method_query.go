/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package repository

import (
	"context"
	"fmt"
	"reflect"

	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/query"
)

// MethodQuery invokes a compiled method against its repository.
type MethodQuery[T any] struct {
	repo   *Repository[T]
	method *Method
}

// Method returns the compiled template.
func (q *MethodQuery[T]) Method() *Method { return q.method }

// Find runs a FindBy method.
func (q *MethodQuery[T]) Find(ctx context.Context, args ...any) ([]*T, error) {
	if err := q.expect(VerbFind); err != nil {
		return nil, err
	}
	built, err := q.selectQuery(args, 0)
	if err != nil {
		return nil, err
	}
	return q.repo.Select(ctx, built)
}

// Exists runs an ExistsBy method.
func (q *MethodQuery[T]) Exists(ctx context.Context, args ...any) (bool, error) {
	if err := q.expect(VerbExists); err != nil {
		return false, err
	}
	built, err := q.selectQuery(args, 1)
	if err != nil {
		return false, err
	}
	found, err := q.repo.store.Select(ctx, built)
	if err != nil {
		return false, err
	}
	return len(found) > 0, nil
}

// Count runs a CountBy method.
func (q *MethodQuery[T]) Count(ctx context.Context, args ...any) (int64, error) {
	if err := q.expect(VerbCount); err != nil {
		return 0, err
	}
	built, err := q.selectQuery(args, 0)
	if err != nil {
		return 0, err
	}
	found, err := q.repo.store.Select(ctx, built)
	if err != nil {
		return 0, err
	}
	return int64(len(found)), nil
}

// Delete runs a DeleteBy method.
func (q *MethodQuery[T]) Delete(ctx context.Context, args ...any) error {
	if err := q.expect(VerbDelete); err != nil {
		return err
	}
	if err := q.checkArgs(args); err != nil {
		return err
	}
	b := bind(q.repo.DeleteQuery(), q.method.Terms, args)
	built, err := b.Build()
	if err != nil {
		return err
	}
	return q.repo.store.Delete(ctx, built)
}

func (q *MethodQuery[T]) selectQuery(args []any, limit int64) (*query.Query, error) {
	if err := q.checkArgs(args); err != nil {
		return nil, err
	}
	b := bind(q.repo.SelectQuery(), q.method.Terms, args)
	for _, s := range q.method.Sorts {
		b.OrderBy(s.Attribute)
		if s.Direction == query.Desc {
			b.Desc()
		} else {
			b.Asc()
		}
	}
	if limit > 0 {
		b.Limit(limit)
	}
	return b.Build()
}

func (q *MethodQuery[T]) expect(v Verb) error {
	if q.method.Verb != v {
		return errors.NewInvalidStateError(string(v), string(q.method.Verb))
	}
	return nil
}

func (q *MethodQuery[T]) checkArgs(args []any) error {
	if want := q.method.Arity(); len(args) != want {
		return errors.NewValidationError("arguments", fmt.Sprintf("%s takes %d arguments, got %d", q.method.Name, want, len(args)))
	}
	for i, a := range args {
		if isNil(a) {
			return errors.NewValidationError("arguments", fmt.Sprintf("%s: argument %d is nil", q.method.Name, i))
		}
	}
	return nil
}

// conditionBuilder is the part of the mapper select and delete builders a
// method binds its terms to.
type conditionBuilder[B any] interface {
	Where(field string) B
	And(field string) B
	Or(field string) B
	Eq(value any) B
	Gt(value any) B
	Gte(value any) B
	Lt(value any) B
	Lte(value any) B
	Like(value any) B
	Between(low, high any) B
	In(values ...any) B
}

// bind applies terms to b, consuming args positionally. Errors surface
// from the builder's Build.
func bind[B conditionBuilder[B]](b B, terms []Term, args []any) B {
	next := 0
	for _, t := range terms {
		switch t.Connector {
		case query.OpAnd:
			b = b.And(t.Field)
		case query.OpOr:
			b = b.Or(t.Field)
		default:
			b = b.Where(t.Field)
		}
		switch t.Operator {
		case query.OpGt:
			b = b.Gt(args[next])
		case query.OpGte:
			b = b.Gte(args[next])
		case query.OpLt:
			b = b.Lt(args[next])
		case query.OpLte:
			b = b.Lte(args[next])
		case query.OpLike:
			b = b.Like(args[next])
		case query.OpBetween:
			b = b.Between(args[next], args[next+1])
		case query.OpIn:
			b = b.In(spread(args[next])...)
		default:
			b = b.Eq(args[next])
		}
		next += t.arity()
	}
	return b
}

// spread expands a slice argument of an In term into its elements.
func spread(arg any) []any {
	rv := reflect.ValueOf(arg)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{arg}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

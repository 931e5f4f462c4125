/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/query"
	"github.com/suparena/entitymapper/storagemodels"
)

// Match evaluates cond against rec. Stores without server-side filtering use
// it to apply queries in memory. A nil condition matches every record.
// Paths crossing a collection of records match when any element matches.
func Match(cond *query.Condition, rec storagemodels.Record) (bool, error) {
	if cond == nil {
		return true, nil
	}
	switch cond.Operator() {
	case query.OpAnd:
		for _, c := range cond.Children() {
			ok, err := Match(c, rec)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case query.OpOr:
		for _, c := range cond.Children() {
			ok, err := Match(c, rec)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case query.OpNot:
		ok, err := Match(cond.Children()[0], rec)
		return !ok, err
	}

	for _, v := range valuesAt(rec, strings.Split(cond.Attribute(), ".")) {
		ok, err := matchLeaf(cond, v)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func valuesAt(rec storagemodels.Record, path []string) []any {
	for i := len(path); i > 0; i-- {
		a, ok := rec.Find(strings.Join(path[:i], "."))
		if !ok {
			continue
		}
		if i == len(path) {
			return []any{a.Value}
		}
		rest := path[i:]
		if nested, ok := storagemodels.AsRecord(a.Value); ok {
			return valuesAt(nested, rest)
		}
		if nested, ok := storagemodels.AsRecords(a.Value); ok {
			var out []any
			for _, n := range nested {
				out = append(out, valuesAt(n, rest)...)
			}
			return out
		}
	}
	return nil
}

func matchLeaf(cond *query.Condition, actual any) (bool, error) {
	switch cond.Operator() {
	case query.OpEq:
		return equal(actual, cond.Value()), nil
	case query.OpGt, query.OpGte, query.OpLt, query.OpLte:
		c, ok := Compare(actual, cond.Value())
		if !ok {
			return false, nil
		}
		switch cond.Operator() {
		case query.OpGt:
			return c > 0, nil
		case query.OpGte:
			return c >= 0, nil
		case query.OpLt:
			return c < 0, nil
		default:
			return c <= 0, nil
		}
	case query.OpBetween:
		vs := cond.Values()
		if len(vs) != 2 {
			return false, errors.NewValidationError(cond.Attribute(), "BETWEEN needs two values")
		}
		lo, ok1 := Compare(actual, vs[0])
		hi, ok2 := Compare(actual, vs[1])
		return ok1 && ok2 && lo >= 0 && hi <= 0, nil
	case query.OpIn:
		for _, v := range cond.Values() {
			if equal(actual, v) {
				return true, nil
			}
		}
		return false, nil
	case query.OpLike:
		pattern, err := LikePattern(cast.ToString(cond.Value()))
		if err != nil {
			return false, err
		}
		s, err := cast.ToStringE(actual)
		if err != nil {
			return false, nil
		}
		return pattern.MatchString(s), nil
	default:
		return false, errors.NewUnsupportedError("memory", fmt.Sprintf("operator %s", cond.Operator()))
	}
}

// equal compares stored and literal values. Numbers compare by value across
// types and a list attribute equals any of its elements.
func equal(actual, expected any) bool {
	if c, ok := Compare(actual, expected); ok {
		return c == 0
	}
	if ar, ok := storagemodels.AsRecord(actual); ok {
		if er, ok := storagemodels.AsRecord(expected); ok {
			return reflect.DeepEqual(ar.Map(), er.Map())
		}
	}
	av := reflect.ValueOf(actual)
	if av.Kind() == reflect.Slice || av.Kind() == reflect.Array {
		ev := reflect.ValueOf(expected)
		if ev.Kind() != reflect.Slice && ev.Kind() != reflect.Array {
			for i := 0; i < av.Len(); i++ {
				if equal(av.Index(i).Interface(), expected) {
					return true
				}
			}
			return false
		}
	}
	return reflect.DeepEqual(actual, expected)
}

// Compare orders two scalar values: numbers numerically, times
// chronologically, strings lexically. ok is false when the values are not
// comparable.
func Compare(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	if isNumber(a) && isNumber(b) {
		x, y := cast.ToFloat64(a), cast.ToFloat64(b)
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	}
	if ta, ok := a.(time.Time); ok {
		if tb, err := cast.ToTimeE(b); err == nil {
			return ta.Compare(tb), true
		}
		return 0, false
	}
	sa, aok := a.(string)
	sb, bok := b.(string)
	if aok && bok {
		return strings.Compare(sa, sb), true
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok && ba == bb {
			return 0, true
		}
	}
	return 0, false
}

func isNumber(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// LikePattern compiles a LIKE pattern: % matches any run of characters, _
// exactly one, everything else literally.
func LikePattern(like string) (*regexp.Regexp, error) {
	return regexp.Compile("(?s)^" + LikeToRegex(like) + "$")
}

// LikeToRegex translates a LIKE pattern into an unanchored regular expression.
func LikeToRegex(like string) string {
	var sb strings.Builder
	for _, r := range like {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return sb.String()
}

// Apply runs the non-filter parts of q over already matched records: sort,
// skip, limit and projection.
func Apply(q *query.Query, records []storagemodels.Record) []storagemodels.Record {
	out := records
	if sorts := q.Sorts(); len(sorts) > 0 {
		out = append([]storagemodels.Record(nil), records...)
		sort.SliceStable(out, func(i, j int) bool {
			for _, s := range sorts {
				a, _ := out[i].Lookup(s.Attribute)
				b, _ := out[j].Lookup(s.Attribute)
				c, ok := Compare(a, b)
				if !ok || c == 0 {
					continue
				}
				if s.Direction == query.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	if skip := q.Skip(); skip > 0 {
		if skip >= int64(len(out)) {
			return nil
		}
		out = out[skip:]
	}
	if limit := q.Limit(); limit > 0 && limit < int64(len(out)) {
		out = out[:limit]
	}
	if fields := q.Fields(); len(fields) > 0 {
		projected := make([]storagemodels.Record, len(out))
		for i, rec := range out {
			projected[i] = Project(rec, fields)
		}
		out = projected
	}
	return out
}

// Project keeps the listed attributes of rec, in the listed order. Dotted
// names select nested values. No fields means the whole record.
func Project(rec storagemodels.Record, fields []string) storagemodels.Record {
	if len(fields) == 0 {
		return rec
	}
	p := make(storagemodels.Record, 0, len(fields))
	for _, f := range fields {
		if v, ok := rec.Lookup(f); ok {
			p = append(p, storagemodels.Of(f, v))
		}
	}
	return p
}

// IDOf returns the id of rec as a string key.
func IDOf(rec storagemodels.Record, idAttribute string) (string, error) {
	a, ok := rec.Find(idAttribute)
	if !ok || a.Value == nil {
		return "", errors.NewValidationError(idAttribute, "record has no id")
	}
	id, err := cast.ToStringE(a.Value)
	if err != nil {
		return "", errors.NewValidationError(idAttribute, fmt.Sprintf("id is not a scalar: %v", err))
	}
	return id, nil
}

// IDsOf returns the ids a condition pins down when it is an EQ or IN on the
// identity attribute, so key-value stores can avoid scanning.
func IDsOf(cond *query.Condition, idAttribute string) ([]string, bool) {
	if cond == nil || !cond.IsLeaf() || cond.Attribute() != idAttribute {
		return nil, false
	}
	switch cond.Operator() {
	case query.OpEq:
		id, err := cast.ToStringE(cond.Value())
		if err != nil {
			return nil, false
		}
		return []string{id}, true
	case query.OpIn:
		ids := make([]string, 0, len(cond.Values()))
		for _, v := range cond.Values() {
			id, err := cast.ToStringE(v)
			if err != nil {
				return nil, false
			}
			ids = append(ids, id)
		}
		return ids, true
	}
	return nil, false
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package document

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/suparena/entitymapper/datastore"
	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/query"
	"github.com/suparena/entitymapper/storagemodels"
)

// BuildFilter translates a condition tree into a MongoDB filter. Dotted
// attribute paths are native, so embedded records and collections of
// embedded records need no special handling. A nil condition matches every
// document.
func BuildFilter(cond *query.Condition) (bson.D, error) {
	if cond == nil {
		return bson.D{}, nil
	}

	switch cond.Operator() {
	case query.OpAnd, query.OpOr, query.OpNot:
		children := cond.Children()
		list := make(bson.A, 0, len(children))
		for _, child := range children {
			f, err := BuildFilter(child)
			if err != nil {
				return nil, err
			}
			list = append(list, f)
		}
		switch cond.Operator() {
		case query.OpAnd:
			return bson.D{{Key: "$and", Value: list}}, nil
		case query.OpOr:
			return bson.D{{Key: "$or", Value: list}}, nil
		default:
			return bson.D{{Key: "$nor", Value: list}}, nil
		}
	}

	field := cond.Attribute()
	value := toBSON(cond.Value())
	switch cond.Operator() {
	case query.OpEq:
		return bson.D{{Key: field, Value: bson.D{{Key: "$eq", Value: value}}}}, nil
	case query.OpGt:
		return bson.D{{Key: field, Value: bson.D{{Key: "$gt", Value: value}}}}, nil
	case query.OpGte:
		return bson.D{{Key: field, Value: bson.D{{Key: "$gte", Value: value}}}}, nil
	case query.OpLt:
		return bson.D{{Key: field, Value: bson.D{{Key: "$lt", Value: value}}}}, nil
	case query.OpLte:
		return bson.D{{Key: field, Value: bson.D{{Key: "$lte", Value: value}}}}, nil
	case query.OpBetween:
		bounds := cond.Values()
		return bson.D{{Key: field, Value: bson.D{
			{Key: "$gte", Value: toBSON(bounds[0])},
			{Key: "$lte", Value: toBSON(bounds[1])},
		}}}, nil
	case query.OpIn:
		values := cond.Values()
		array := make(bson.A, len(values))
		for i, v := range values {
			array[i] = toBSON(v)
		}
		return bson.D{{Key: field, Value: bson.D{{Key: "$in", Value: array}}}}, nil
	case query.OpLike:
		pattern, ok := cond.Value().(string)
		if !ok {
			return nil, errors.NewValidationError(field, fmt.Sprintf("LIKE pattern must be a string, got %T", cond.Value()))
		}
		return bson.D{{Key: field, Value: primitive.Regex{Pattern: "^" + datastore.LikeToRegex(pattern) + "$", Options: "s"}}}, nil
	}
	return nil, errors.NewUnsupportedError(backendName, "operator "+string(cond.Operator()))
}

// SortDocument renders the query sorts as a MongoDB sort specification.
func SortDocument(sorts []query.Sort) bson.D {
	if len(sorts) == 0 {
		return nil
	}
	doc := make(bson.D, 0, len(sorts))
	for _, s := range sorts {
		direction := 1
		if s.Direction == query.Desc {
			direction = -1
		}
		doc = append(doc, bson.E{Key: s.Attribute, Value: direction})
	}
	return doc
}

// ProjectionDocument includes only the listed fields.
func ProjectionDocument(fields []string) bson.D {
	if len(fields) == 0 {
		return nil
	}
	doc := make(bson.D, 0, len(fields))
	for _, f := range fields {
		doc = append(doc, bson.E{Key: f, Value: 1})
	}
	return doc
}

// toBSON converts record values used as literals (embedded records in
// equality conditions) into ordered documents.
func toBSON(v any) any {
	switch tv := v.(type) {
	case storagemodels.Record:
		return ToDocument(tv)
	case []storagemodels.Record:
		array := make(bson.A, len(tv))
		for i, r := range tv {
			if r != nil {
				array[i] = ToDocument(r)
			}
		}
		return array
	case []any:
		array := make(bson.A, len(tv))
		for i, e := range tv {
			array[i] = toBSON(e)
		}
		return array
	default:
		return v
	}
}

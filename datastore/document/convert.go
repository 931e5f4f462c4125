/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package document

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/suparena/entitymapper/storagemodels"
)

// ToDocument converts a record into an ordered BSON document. Nested records
// become sub-documents and collections of records become arrays of them.
func ToDocument(rec storagemodels.Record) bson.D {
	doc := make(bson.D, 0, len(rec))
	for _, a := range rec {
		doc = append(doc, bson.E{Key: a.Name, Value: toBSON(a.Value)})
	}
	return doc
}

// FromDocument converts a decoded BSON document back into a record, keeping
// the document's field order.
func FromDocument(doc bson.D) storagemodels.Record {
	rec := make(storagemodels.Record, 0, len(doc))
	for _, e := range doc {
		rec = append(rec, storagemodels.Of(e.Key, fromBSON(e.Value)))
	}
	return rec
}

func fromBSON(v any) any {
	switch tv := v.(type) {
	case bson.D:
		return FromDocument(tv)
	case bson.M:
		m := make(map[string]any, len(tv))
		for k, e := range tv {
			m[k] = fromBSON(e)
		}
		return storagemodels.RecordFromMap(m)
	case bson.A:
		return fromArray(tv)
	case primitive.DateTime:
		return tv.Time().UTC()
	case primitive.ObjectID:
		return tv.Hex()
	case primitive.Decimal128:
		return tv.String()
	case primitive.Binary:
		return tv.Data
	default:
		return v
	}
}

// fromArray returns []Record when every element is a document or null and
// at least one is a document.
func fromArray(a bson.A) any {
	if len(a) == 0 {
		return []any{}
	}
	records := make([]storagemodels.Record, 0, len(a))
	docs := 0
	for _, e := range a {
		switch doc := e.(type) {
		case nil:
			records = append(records, nil)
			continue
		case bson.D:
			records = append(records, FromDocument(doc))
		case bson.M:
			records = append(records, fromBSON(doc).(storagemodels.Record))
		default:
			out := make([]any, len(a))
			for i, e := range a {
				out[i] = fromBSON(e)
			}
			return out
		}
		docs++
	}
	if docs == 0 {
		return []any(a)
	}
	return records
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mapping

import (
	"reflect"

	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/metadata"
	"github.com/suparena/entitymapper/storagemodels"
)

// FieldValue pairs one field of an entity instance with its metadata.
type FieldValue struct {
	Value any
	Field *metadata.FieldMetadata
}

// IsNotEmpty reports whether the field holds a value. Nil pointers, slices,
// maps and interfaces are empty; zero scalars are not.
func (v FieldValue) IsNotEmpty() bool {
	return !isEmpty(v.Value)
}

// ToAttributes renders the field as record attributes. Embedded fields
// yield one attribute holding a nested Record, collections of embedded
// values one attribute holding []Record (nil elements stay nil records so
// positions survive), flattened fields the nested
// attributes themselves. Fields with a converter store the converted value.
// The source value is never modified.
func (v FieldValue) ToAttributes(conv *EntityConverter) ([]storagemodels.Attribute, error) {
	f := v.Field
	if !v.IsNotEmpty() {
		return nil, nil
	}

	switch f.Kind {
	case metadata.Embedded:
		rec, err := conv.recordOf(f.Embedded, reflect.ValueOf(v.Value))
		if err != nil {
			return nil, err
		}
		return []storagemodels.Attribute{storagemodels.Of(f.Name, rec)}, nil

	case metadata.CollectionOfEmbedded:
		rv := reflect.ValueOf(v.Value)
		records := make([]storagemodels.Record, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			elem := rv.Index(i)
			if elem.Kind() == reflect.Ptr && elem.IsNil() {
				records = append(records, nil)
				continue
			}
			rec, err := conv.recordOf(f.Embedded, elem)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
		return []storagemodels.Attribute{storagemodels.Of(f.Name, records)}, nil

	case metadata.Flattened:
		return conv.recordOf(f.Embedded, reflect.ValueOf(v.Value))
	}

	if f.HasConverter() {
		c, err := conv.converters.Get(f.Converter)
		if err != nil {
			return nil, errors.NewMappingError(f.Entity, f.Name, err)
		}
		stored, err := c.ToStorage(v.Value)
		if err != nil {
			return nil, errors.NewMappingError(f.Entity, f.Name, err)
		}
		if stored == nil {
			return nil, nil
		}
		return []storagemodels.Attribute{storagemodels.Of(f.Name, stored)}, nil
	}
	return []storagemodels.Attribute{storagemodels.Of(f.Name, deref(v.Value))}, nil
}

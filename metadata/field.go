/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package metadata

import (
	"fmt"
	"reflect"
)

// FieldKind classifies how a field is laid out in a record.
type FieldKind int

const (
	// Plain fields map to a single attribute holding a scalar or opaque value.
	Plain FieldKind = iota
	// Embedded fields hold a structure without identity, stored as a nested record.
	Embedded
	// CollectionOfEmbedded fields hold a slice of embedded structures.
	CollectionOfEmbedded
	// Flattened fields hold a sub-entity whose attributes are stored inline
	// in the owner's record.
	Flattened
)

func (k FieldKind) String() string {
	switch k {
	case Plain:
		return "PLAIN"
	case Embedded:
		return "EMBEDDED"
	case CollectionOfEmbedded:
		return "COLLECTION_OF_EMBEDDED"
	case Flattened:
		return "FLATTENED"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

// FieldMetadata describes one persistable field of an entity.
type FieldMetadata struct {
	// Name is the attribute name used in records and queries.
	Name string
	// GoName is the struct field name.
	GoName string
	// Property is GoName with its first letter lower-cased ("zipCode").
	Property string
	// Entity is the name of the entity the field belongs to.
	Entity string
	Kind   FieldKind
	Type   reflect.Type
	// ElementType is the struct type of the elements of a CollectionOfEmbedded field.
	ElementType reflect.Type
	// Converter is the attribute converter type, nil when none is declared.
	Converter reflect.Type
	IsID      bool
	// Embedded is the metadata of the nested type for Embedded, Flattened
	// and CollectionOfEmbedded fields.
	Embedded *EntityMetadata

	index []int
}

// HasConverter reports whether the field declares an attribute converter.
func (f *FieldMetadata) HasConverter() bool {
	return f.Converter != nil
}

// Get returns the field of the given struct value. Pointers are followed;
// ok is false when a nil pointer is met along the way.
func (f *FieldMetadata) Get(entity reflect.Value) (reflect.Value, bool) {
	v := entity
	for _, i := range f.index {
		for v.Kind() == reflect.Ptr {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	return v, true
}

// Value returns the field value of entity (a struct or a pointer to one) as
// an interface, or nil when unreachable.
func (f *FieldMetadata) Value(entity any) any {
	v, ok := f.Get(reflect.ValueOf(entity))
	if !ok {
		return nil
	}
	return v.Interface()
}

// Set assigns value to the field of the addressable struct entity, allocating
// intermediate pointers of promoted structs.
func (f *FieldMetadata) Set(entity reflect.Value, value reflect.Value) {
	f.Target(entity).Set(value)
}

// Target returns the settable field of the addressable struct entity.
func (f *FieldMetadata) Target(entity reflect.Value) reflect.Value {
	v := entity
	for _, i := range f.index {
		for v.Kind() == reflect.Ptr {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	return v
}

func (f *FieldMetadata) String() string {
	return fmt.Sprintf("%s(%s %s)", f.GoName, f.Name, f.Kind)
}

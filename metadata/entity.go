/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package metadata

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/suparena/entitymapper/errors"
)

// Namer lets an entity type choose the name it is registered under.
type Namer interface {
	EntityName() string
}

// EntityMetadata is the immutable description of one struct type.
type EntityMetadata struct {
	Name string
	Type reflect.Type

	fields []*FieldMetadata
	id     *FieldMetadata

	lookup     map[string]*FieldMetadata
	lookupFold map[string]*FieldMetadata
	attributes map[string]*FieldMetadata
}

// Fields returns the fields in declaration order. Fields of anonymous
// embedded structs appear at the position of the embedding field.
func (m *EntityMetadata) Fields() []*FieldMetadata {
	out := make([]*FieldMetadata, len(m.fields))
	copy(out, m.fields)
	return out
}

// ID returns the id field and whether the type declares one.
func (m *EntityMetadata) ID() (*FieldMetadata, bool) {
	return m.id, m.id != nil
}

// IDOrErr returns the id field or a NotFoundError.
func (m *EntityMetadata) IDOrErr() (*FieldMetadata, error) {
	if m.id == nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("id field of %s", m.Name), "")
	}
	return m.id, nil
}

// Field looks up a field by property name, Go name or attribute name.
// An exact match wins over a case-insensitive one.
func (m *EntityMetadata) Field(name string) (*FieldMetadata, bool) {
	if f, ok := m.lookup[name]; ok {
		return f, true
	}
	f, ok := m.lookupFold[strings.ToLower(name)]
	return f, ok
}

// FieldByAttribute returns the field stored under the attribute name.
// Attributes contributed by flattened fields resolve to the flattened field.
func (m *EntityMetadata) FieldByAttribute(name string) (*FieldMetadata, bool) {
	f, ok := m.attributes[name]
	return f, ok
}

// New allocates a zero instance and returns a pointer to it.
func (m *EntityMetadata) New() reflect.Value {
	return reflect.New(m.Type)
}

func (m *EntityMetadata) String() string {
	names := make([]string, 0, len(m.fields))
	for _, f := range m.fields {
		names = append(names, f.Name)
	}
	return fmt.Sprintf("%s[%s]", m.Name, strings.Join(names, ","))
}

func (m *EntityMetadata) index() {
	m.lookup = make(map[string]*FieldMetadata, len(m.fields)*3)
	m.lookupFold = make(map[string]*FieldMetadata, len(m.fields)*3)
	m.attributes = make(map[string]*FieldMetadata, len(m.fields))

	add := func(key string, f *FieldMetadata) {
		if _, exists := m.lookup[key]; !exists {
			m.lookup[key] = f
		}
		folded := strings.ToLower(key)
		if _, exists := m.lookupFold[folded]; !exists {
			m.lookupFold[folded] = f
		}
	}
	for _, f := range m.fields {
		add(f.Property, f)
	}
	for _, f := range m.fields {
		add(f.GoName, f)
	}
	for _, f := range m.fields {
		add(f.Name, f)
		if f.Kind == Flattened {
			for name := range f.Embedded.attributes {
				m.attributes[name] = f
			}
			continue
		}
		m.attributes[f.Name] = f
	}
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mapping

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/metadata"
	"github.com/suparena/entitymapper/query"
	"github.com/suparena/entitymapper/storagemodels"
)

// QueryMapper starts query builders keyed by entity field names.
type QueryMapper struct {
	conv *EntityConverter
}

// NewQueryMapper creates a query mapper resolving names through conv.
func NewQueryMapper(conv *EntityConverter) *QueryMapper {
	return &QueryMapper{conv: conv}
}

// SelectFrom starts a select over entity, given as a reflect.Type, an
// instance or a registered entity name. Projected fields are field names.
func (m *QueryMapper) SelectFrom(entity any, fields ...string) *SelectQuery {
	s := &SelectQuery{}
	meta, err := m.entityMetadata(entity)
	if err != nil {
		s.b = query.Select().Fail(err)
		return s
	}
	s.resolver = resolver{conv: m.conv, meta: meta}

	attrs := make([]string, 0, len(fields))
	for _, name := range fields {
		attr, _, err := s.resolve(name)
		if err != nil {
			s.b = query.Select().Fail(err)
			return s
		}
		attrs = append(attrs, attr)
	}
	s.b = query.Select(attrs...).From(meta.Name)
	return s
}

// DeleteFrom starts a delete over entity.
func (m *QueryMapper) DeleteFrom(entity any) *DeleteQuery {
	d := &DeleteQuery{}
	meta, err := m.entityMetadata(entity)
	if err != nil {
		d.b = query.Delete().Fail(err)
		return d
	}
	d.resolver = resolver{conv: m.conv, meta: meta}
	d.b = query.Delete().From(meta.Name)
	return d
}

// SelectFrom starts a select over T.
func SelectFrom[T any](m *QueryMapper, fields ...string) *SelectQuery {
	return m.SelectFrom(reflect.TypeOf((*T)(nil)).Elem(), fields...)
}

// DeleteFrom starts a delete over T.
func DeleteFrom[T any](m *QueryMapper) *DeleteQuery {
	return m.DeleteFrom(reflect.TypeOf((*T)(nil)).Elem())
}

func (m *QueryMapper) entityMetadata(entity any) (*metadata.EntityMetadata, error) {
	switch e := entity.(type) {
	case nil:
		return nil, errors.NewValidationError("entity", "entity is required")
	case string:
		return m.conv.meta.FindByName(e)
	case reflect.Type:
		return m.conv.meta.Get(e)
	case *metadata.EntityMetadata:
		return e, nil
	default:
		return m.conv.meta.Get(reflect.TypeOf(entity))
	}
}

// resolver translates field paths and literals of one entity.
type resolver struct {
	conv  *EntityConverter
	meta  *metadata.EntityMetadata
	field *metadata.FieldMetadata
	// built is set once Build succeeded; later calls go straight to the
	// native builder, which rejects them.
	built bool
}

// resolve maps a dotted field path to its attribute name. Embedded segments
// are joined with dots, flattened segments contribute nothing and the id
// field maps to the identity attribute.
func (r *resolver) resolve(path string) (string, *metadata.FieldMetadata, error) {
	if r.meta == nil {
		return "", nil, errors.NewInvalidStateError("Where", "FROM")
	}
	segments := strings.Split(path, ".")
	current := r.meta
	parts := make([]string, 0, len(segments))
	var f *metadata.FieldMetadata
	for i, seg := range segments {
		var ok bool
		f, ok = current.Field(seg)
		if !ok {
			return "", nil, errors.NewUnknownFieldError(current.Name, seg)
		}
		if i == len(segments)-1 {
			parts = append(parts, f.Name)
			break
		}
		switch f.Kind {
		case metadata.Embedded, metadata.CollectionOfEmbedded:
			parts = append(parts, f.Name)
		case metadata.Flattened:
		default:
			return "", nil, errors.NewUnknownFieldError(current.Name, strings.Join(segments[:i+2], "."))
		}
		current = f.Embedded
	}
	return strings.Join(parts, "."), f, nil
}

// value converts a literal compared against the current field into its
// stored form.
func (r *resolver) value(literal any) (any, error) {
	f := r.field
	if f == nil || literal == nil {
		return literal, nil
	}
	switch f.Kind {
	case metadata.Embedded:
		return r.nestedValue(f, literal)
	case metadata.CollectionOfEmbedded:
		lt := reflect.TypeOf(literal)
		if lt.Kind() != reflect.Slice && lt.Kind() != reflect.Array {
			// a single element matches collections containing it
			return r.nestedValue(f, literal)
		}
		if indirect(lt.Elem()) != f.ElementType {
			return nil, errors.NewMappingError(f.Entity, f.Name, fmt.Errorf("cannot compare %T with %s", literal, f.Type))
		}
		attrs, err := FieldValue{Value: literal, Field: f}.ToAttributes(r.conv)
		if err != nil || len(attrs) == 0 {
			return nil, err
		}
		return attrs[0].Value, nil
	case metadata.Flattened:
		return nil, errors.NewMappingError(f.Entity, f.Name, fmt.Errorf("flattened field cannot be compared as a whole"))
	}

	if f.HasConverter() {
		c, err := r.conv.converters.Get(f.Converter)
		if err != nil {
			return nil, errors.NewMappingError(f.Entity, f.Name, err)
		}
		stored, err := c.ToStorage(literal)
		if err != nil {
			return nil, errors.NewMappingError(f.Entity, f.Name, err)
		}
		return stored, nil
	}

	t := indirect(f.Type)
	lt := reflect.TypeOf(literal)
	if (t.Kind() == reflect.Slice || t.Kind() == reflect.Array) && lt.Kind() != reflect.Slice && lt.Kind() != reflect.Array {
		// scalar compared against a list attribute matches an element
		t = indirect(t.Elem())
	}
	v, err := coerce(literal, t)
	if err != nil {
		return nil, errors.NewMappingError(f.Entity, f.Name, err)
	}
	return v, nil
}

func (r *resolver) nestedValue(f *metadata.FieldMetadata, literal any) (any, error) {
	if rec, ok := storagemodels.AsRecord(literal); ok {
		return rec, nil
	}
	if indirect(reflect.TypeOf(literal)) != f.Embedded.Type {
		return nil, errors.NewMappingError(f.Entity, f.Name, fmt.Errorf("cannot compare %T with %s", literal, f.Embedded.Type))
	}
	return r.conv.recordOf(f.Embedded, reflect.ValueOf(literal))
}

func (r *resolver) values(literals []any) ([]any, error) {
	out := make([]any, len(literals))
	for i, l := range literals {
		v, err := r.value(l)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// SelectQuery is a select builder keyed by field names. Like the
// native builder it records the first error and Build returns it.
type SelectQuery struct {
	resolver
	b *query.SelectBuilder
}

func (s *SelectQuery) Where(field string) *SelectQuery {
	return s.start(field, s.b.Where)
}

func (s *SelectQuery) And(field string) *SelectQuery {
	return s.start(field, s.b.And)
}

func (s *SelectQuery) Or(field string) *SelectQuery {
	return s.start(field, s.b.Or)
}

func (s *SelectQuery) start(field string, next func(string) *query.SelectBuilder) *SelectQuery {
	if s.b.Err() != nil {
		return s
	}
	if s.built {
		next(field)
		return s
	}
	attr, f, err := s.resolve(field)
	if err != nil {
		s.b.Fail(err)
		return s
	}
	s.field = f
	next(attr)
	return s
}

func (s *SelectQuery) Not() *SelectQuery { s.b.Not(); return s }

func (s *SelectQuery) Eq(value any) *SelectQuery   { return s.compare(s.b.Eq, value) }
func (s *SelectQuery) Gt(value any) *SelectQuery   { return s.compare(s.b.Gt, value) }
func (s *SelectQuery) Gte(value any) *SelectQuery  { return s.compare(s.b.Gte, value) }
func (s *SelectQuery) Lt(value any) *SelectQuery   { return s.compare(s.b.Lt, value) }
func (s *SelectQuery) Lte(value any) *SelectQuery  { return s.compare(s.b.Lte, value) }
func (s *SelectQuery) Like(value any) *SelectQuery {
	// string patterns are matched as written, whatever the field type
	if pattern, ok := value.(string); ok {
		s.b.Like(pattern)
		return s
	}
	return s.compare(s.b.Like, value)
}

func (s *SelectQuery) compare(op func(any) *query.SelectBuilder, value any) *SelectQuery {
	if s.b.Err() != nil {
		return s
	}
	if s.built {
		op(value)
		return s
	}
	v, err := s.value(value)
	if err != nil {
		s.b.Fail(err)
		return s
	}
	op(v)
	return s
}

func (s *SelectQuery) Between(low, high any) *SelectQuery {
	if s.b.Err() != nil {
		return s
	}
	if s.built {
		s.b.Between(low, high)
		return s
	}
	vs, err := s.values([]any{low, high})
	if err != nil {
		s.b.Fail(err)
		return s
	}
	s.b.Between(vs[0], vs[1])
	return s
}

func (s *SelectQuery) In(values ...any) *SelectQuery {
	if s.b.Err() != nil {
		return s
	}
	if s.built {
		s.b.In(values...)
		return s
	}
	vs, err := s.values(values)
	if err != nil {
		s.b.Fail(err)
		return s
	}
	s.b.In(vs...)
	return s
}

func (s *SelectQuery) OrderBy(field string) *SelectQuery {
	if s.b.Err() != nil {
		return s
	}
	if s.built {
		s.b.OrderBy(field)
		return s
	}
	attr, _, err := s.resolve(field)
	if err != nil {
		s.b.Fail(err)
		return s
	}
	s.b.OrderBy(attr)
	return s
}

func (s *SelectQuery) Asc() *SelectQuery  { s.b.Asc(); return s }
func (s *SelectQuery) Desc() *SelectQuery { s.b.Desc(); return s }

func (s *SelectQuery) Limit(n int64) *SelectQuery { s.b.Limit(n); return s }
func (s *SelectQuery) Skip(n int64) *SelectQuery  { s.b.Skip(n); return s }

// Err returns the first recorded error.
func (s *SelectQuery) Err() error { return s.b.Err() }

// Build returns the query; see query.SelectBuilder.Build.
func (s *SelectQuery) Build() (*query.Query, error) {
	q, err := s.b.Build()
	if err == nil {
		s.built = true
	}
	return q, err
}

// DeleteQuery is a delete builder keyed by field names.
type DeleteQuery struct {
	resolver
	b *query.DeleteBuilder
}

func (d *DeleteQuery) Where(field string) *DeleteQuery {
	return d.start(field, d.b.Where)
}

func (d *DeleteQuery) And(field string) *DeleteQuery {
	return d.start(field, d.b.And)
}

func (d *DeleteQuery) Or(field string) *DeleteQuery {
	return d.start(field, d.b.Or)
}

func (d *DeleteQuery) start(field string, next func(string) *query.DeleteBuilder) *DeleteQuery {
	if d.b.Err() != nil {
		return d
	}
	if d.built {
		next(field)
		return d
	}
	attr, f, err := d.resolve(field)
	if err != nil {
		d.b.Fail(err)
		return d
	}
	d.field = f
	next(attr)
	return d
}

func (d *DeleteQuery) Not() *DeleteQuery { d.b.Not(); return d }

func (d *DeleteQuery) Eq(value any) *DeleteQuery   { return d.compare(d.b.Eq, value) }
func (d *DeleteQuery) Gt(value any) *DeleteQuery   { return d.compare(d.b.Gt, value) }
func (d *DeleteQuery) Gte(value any) *DeleteQuery  { return d.compare(d.b.Gte, value) }
func (d *DeleteQuery) Lt(value any) *DeleteQuery   { return d.compare(d.b.Lt, value) }
func (d *DeleteQuery) Lte(value any) *DeleteQuery  { return d.compare(d.b.Lte, value) }
func (d *DeleteQuery) Like(value any) *DeleteQuery {
	if pattern, ok := value.(string); ok {
		d.b.Like(pattern)
		return d
	}
	return d.compare(d.b.Like, value)
}

func (d *DeleteQuery) compare(op func(any) *query.DeleteBuilder, value any) *DeleteQuery {
	if d.b.Err() != nil {
		return d
	}
	if d.built {
		op(value)
		return d
	}
	v, err := d.value(value)
	if err != nil {
		d.b.Fail(err)
		return d
	}
	op(v)
	return d
}

func (d *DeleteQuery) Between(low, high any) *DeleteQuery {
	if d.b.Err() != nil {
		return d
	}
	if d.built {
		d.b.Between(low, high)
		return d
	}
	vs, err := d.values([]any{low, high})
	if err != nil {
		d.b.Fail(err)
		return d
	}
	d.b.Between(vs[0], vs[1])
	return d
}

func (d *DeleteQuery) In(values ...any) *DeleteQuery {
	if d.b.Err() != nil {
		return d
	}
	if d.built {
		d.b.In(values...)
		return d
	}
	vs, err := d.values(values)
	if err != nil {
		d.b.Fail(err)
		return d
	}
	d.b.In(vs...)
	return d
}

func (d *DeleteQuery) Err() error { return d.b.Err() }

// Build returns the query; see query.DeleteBuilder.Build.
func (d *DeleteQuery) Build() (*query.Query, error) {
	q, err := d.b.Build()
	if err == nil {
		d.built = true
	}
	return q, err
}

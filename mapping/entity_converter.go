/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mapping

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/suparena/entitymapper/converter"
	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/metadata"
	"github.com/suparena/entitymapper/storagemodels"
)

// EntityConverter converts entities to ordered attribute records and back.
// It is safe for concurrent use.
type EntityConverter struct {
	meta       *metadata.Registry
	converters *converter.Registry
	strict     bool
	logger     *zap.Logger
}

// Option configures an EntityConverter.
type Option func(*EntityConverter)

// WithStrictAttributes makes ToEntity fail on attributes the entity does
// not declare instead of ignoring them.
func WithStrictAttributes() Option {
	return func(c *EntityConverter) {
		c.strict = true
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *EntityConverter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewEntityConverter creates a converter backed by the given registries.
func NewEntityConverter(meta *metadata.Registry, converters *converter.Registry, opts ...Option) *EntityConverter {
	c := &EntityConverter{meta: meta, converters: converters, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Metadata returns the metadata registry.
func (c *EntityConverter) Metadata() *metadata.Registry { return c.meta }

// Converters returns the attribute converter registry.
func (c *EntityConverter) Converters() *converter.Registry { return c.converters }

// ToRecord converts entity, a struct or a pointer to one, into a record
// ordered by field declaration.
func (c *EntityConverter) ToRecord(entity any) (storagemodels.Record, error) {
	rv, err := structValue(entity)
	if err != nil {
		return nil, err
	}
	meta, err := c.meta.Get(rv.Type())
	if err != nil {
		return nil, err
	}
	return c.recordOf(meta, rv)
}

func (c *EntityConverter) recordOf(meta *metadata.EntityMetadata, rv reflect.Value) (storagemodels.Record, error) {
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	fields := meta.Fields()
	rec := make(storagemodels.Record, 0, len(fields))
	for _, f := range fields {
		fv, ok := f.Get(rv)
		if !ok {
			continue
		}
		attrs, err := FieldValue{Value: fv.Interface(), Field: f}.ToAttributes(c)
		if err != nil {
			return nil, err
		}
		rec = append(rec, attrs...)
	}
	return rec, nil
}

// ToEntity builds a new instance of t from rec and returns a pointer to it.
func (c *EntityConverter) ToEntity(t reflect.Type, rec storagemodels.Record) (any, error) {
	meta, err := c.meta.Get(t)
	if err != nil {
		return nil, err
	}
	ptr := meta.New()
	if err := c.fill(meta, ptr.Elem(), rec); err != nil {
		return nil, err
	}
	return ptr.Interface(), nil
}

// ToEntityOf is the typed form of ToEntity.
func ToEntityOf[T any](c *EntityConverter, rec storagemodels.Record) (*T, error) {
	var entity T
	if err := c.Fill(&entity, rec); err != nil {
		return nil, err
	}
	return &entity, nil
}

// Fill sets the fields of the struct ptr points to from rec. Fields without
// a matching attribute keep their value.
func (c *EntityConverter) Fill(ptr any, rec storagemodels.Record) error {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return errors.NewValidationError("entity", fmt.Sprintf("expected a non-nil pointer to a struct, got %T", ptr))
	}
	meta, err := c.meta.Get(rv.Type())
	if err != nil {
		return err
	}
	return c.fill(meta, rv.Elem(), rec)
}

func (c *EntityConverter) fill(meta *metadata.EntityMetadata, target reflect.Value, rec storagemodels.Record) error {
	var flattened map[*metadata.FieldMetadata]storagemodels.Record

	for _, attr := range rec {
		f, ok := meta.FieldByAttribute(attr.Name)
		if !ok {
			if c.strict {
				return errors.NewMappingError(meta.Name, attr.Name, errors.NewUnknownFieldError(meta.Name, attr.Name))
			}
			c.logger.Debug("ignoring unknown attribute",
				zap.String("entity", meta.Name),
				zap.String("attribute", attr.Name))
			continue
		}
		if f.Kind == metadata.Flattened {
			if flattened == nil {
				flattened = make(map[*metadata.FieldMetadata]storagemodels.Record)
			}
			flattened[f] = append(flattened[f], attr)
			continue
		}
		if err := c.setField(f, target, attr.Value); err != nil {
			return err
		}
	}

	for _, f := range meta.Fields() {
		sub, ok := flattened[f]
		if !ok {
			continue
		}
		dst := f.Target(target)
		if dst.Kind() == reflect.Ptr {
			if dst.IsNil() {
				dst.Set(reflect.New(dst.Type().Elem()))
			}
			dst = dst.Elem()
		}
		if err := c.fill(f.Embedded, dst, sub); err != nil {
			return err
		}
	}
	return nil
}

func (c *EntityConverter) setField(f *metadata.FieldMetadata, target reflect.Value, raw any) error {
	dst := f.Target(target)

	switch f.Kind {
	case metadata.Embedded:
		if raw == nil {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		nested, err := c.nested(f, f.Embedded, raw)
		if err != nil {
			return err
		}
		setStruct(dst, nested)
		return nil

	case metadata.CollectionOfEmbedded:
		if raw == nil {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		records, ok := storagemodels.AsRecords(raw)
		if !ok {
			return errors.NewMappingError(f.Entity, f.Name, fmt.Errorf("expected a collection of records, got %T", raw))
		}
		var out reflect.Value
		if dst.Kind() == reflect.Array {
			out = reflect.New(dst.Type()).Elem()
			if len(records) > out.Len() {
				return errors.NewMappingError(f.Entity, f.Name, fmt.Errorf("%d elements do not fit %s", len(records), dst.Type()))
			}
		} else {
			out = reflect.MakeSlice(dst.Type(), len(records), len(records))
		}
		for i, rec := range records {
			if rec == nil {
				continue
			}
			nested, err := c.nested(f, f.Embedded, rec)
			if err != nil {
				return err
			}
			setStruct(out.Index(i), nested)
		}
		dst.Set(out)
		return nil
	}

	value := raw
	if f.HasConverter() {
		conv, err := c.converters.Get(f.Converter)
		if err != nil {
			return errors.NewMappingError(f.Entity, f.Name, err)
		}
		if value, err = conv.ToEntity(raw); err != nil {
			return errors.NewMappingError(f.Entity, f.Name, err)
		}
	}
	if err := assign(dst, value); err != nil {
		return errors.NewMappingError(f.Entity, f.Name, err)
	}
	return nil
}

// nested builds a pointer to a new instance of meta's type from raw.
func (c *EntityConverter) nested(f *metadata.FieldMetadata, meta *metadata.EntityMetadata, raw any) (reflect.Value, error) {
	rec, ok := storagemodels.AsRecord(raw)
	if !ok {
		return reflect.Value{}, errors.NewMappingError(f.Entity, f.Name, fmt.Errorf("expected a record, got %T", raw))
	}
	ptr := meta.New()
	if err := c.fill(meta, ptr.Elem(), rec); err != nil {
		return reflect.Value{}, err
	}
	return ptr, nil
}

// setStruct stores the struct ptr points to into dst, which holds either
// the struct or a pointer to it.
func setStruct(dst reflect.Value, ptr reflect.Value) {
	if dst.Kind() == reflect.Ptr {
		dst.Set(ptr)
		return
	}
	dst.Set(ptr.Elem())
}

// IDValue returns the id of entity with pointers followed. It fails with a
// NotFoundError when the type declares no id.
func (c *EntityConverter) IDValue(entity any) (any, error) {
	rv, err := structValue(entity)
	if err != nil {
		return nil, err
	}
	meta, err := c.meta.Get(rv.Type())
	if err != nil {
		return nil, err
	}
	id, err := meta.IDOrErr()
	if err != nil {
		return nil, err
	}
	v, ok := id.Get(rv)
	if !ok {
		return nil, nil
	}
	return deref(v.Interface()), nil
}

func structValue(entity any) (reflect.Value, error) {
	if entity == nil {
		return reflect.Value{}, errors.NewValidationError("entity", "entity is required")
	}
	rv := reflect.ValueOf(entity)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return reflect.Value{}, errors.NewValidationError("entity", "entity is required")
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, errors.NewValidationError("entity", fmt.Sprintf("expected a struct, got %T", entity))
	}
	return rv, nil
}

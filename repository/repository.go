/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package repository

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/suparena/entitymapper/datastore"
	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/mapping"
	"github.com/suparena/entitymapper/metadata"
	"github.com/suparena/entitymapper/query"
	"github.com/suparena/entitymapper/storagemodels"
)

// Repository is the CRUD facade of entity type T over one datastore.
// It is safe for concurrent use.
type Repository[T any] struct {
	store   datastore.DataStore
	conv    *mapping.EntityConverter
	queries *mapping.QueryMapper
	meta    *metadata.EntityMetadata
	id      *metadata.FieldMetadata
	methods sync.Map // method name -> *Method
	logger  *zap.Logger
}

// Option configures a Repository.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the repository logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates the repository of T. T must declare an id field.
func New[T any](store datastore.DataStore, conv *mapping.EntityConverter, opts ...Option) (*Repository[T], error) {
	if store == nil {
		return nil, errors.NewValidationError("store", "datastore is required")
	}
	if conv == nil {
		return nil, errors.NewValidationError("converter", "entity converter is required")
	}
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	meta, err := metadata.For[T](conv.Metadata())
	if err != nil {
		return nil, err
	}
	id, err := meta.IDOrErr()
	if err != nil {
		return nil, err
	}
	return &Repository[T]{
		store:   store,
		conv:    conv,
		queries: mapping.NewQueryMapper(conv),
		meta:    meta,
		id:      id,
		logger:  o.logger.With(zap.String("entity", meta.Name)),
	}, nil
}

// Metadata returns the metadata of T.
func (r *Repository[T]) Metadata() *metadata.EntityMetadata { return r.meta }

// SelectQuery starts a select over T keyed by field names.
func (r *Repository[T]) SelectQuery(fields ...string) *mapping.SelectQuery {
	return r.queries.SelectFrom(r.meta, fields...)
}

// DeleteQuery starts a delete over T keyed by field names.
func (r *Repository[T]) DeleteQuery() *mapping.DeleteQuery {
	return r.queries.DeleteFrom(r.meta)
}

// Save inserts entity, or updates it when an entity with the same id is
// already stored.
func (r *Repository[T]) Save(ctx context.Context, entity *T) error {
	id, rec, err := r.recordOf(entity)
	if err != nil {
		return err
	}
	exists, err := r.ExistsByID(ctx, id)
	if err != nil {
		return err
	}
	if exists {
		r.logger.Debug("save updates existing entity")
		return r.store.Update(ctx, r.meta.Name, rec)
	}
	r.logger.Debug("save inserts new entity")
	return r.store.Insert(ctx, r.meta.Name, rec)
}

// SaveAll saves each entity in order, stopping at the first failure.
func (r *Repository[T]) SaveAll(ctx context.Context, entities ...*T) error {
	for i, entity := range entities {
		if err := r.Save(ctx, entity); err != nil {
			return fmt.Errorf("save entity %d: %w", i, err)
		}
	}
	return nil
}

// Insert stores a new entity.
func (r *Repository[T]) Insert(ctx context.Context, entity *T) error {
	_, rec, err := r.recordOf(entity)
	if err != nil {
		return err
	}
	return r.store.Insert(ctx, r.meta.Name, rec)
}

// Update replaces the stored entity with the same id.
func (r *Repository[T]) Update(ctx context.Context, entity *T) error {
	_, rec, err := r.recordOf(entity)
	if err != nil {
		return err
	}
	return r.store.Update(ctx, r.meta.Name, rec)
}

// DeleteByID removes the entity with the given id, if any.
func (r *Repository[T]) DeleteByID(ctx context.Context, id any) error {
	if isNil(id) {
		return errors.NewValidationError("id", "id is required")
	}
	q, err := r.DeleteQuery().Where(r.id.GoName).Eq(id).Build()
	if err != nil {
		return err
	}
	return r.store.Delete(ctx, q)
}

// DeleteByIDs removes the entities with the given ids.
func (r *Repository[T]) DeleteByIDs(ctx context.Context, ids ...any) error {
	for _, id := range ids {
		if err := r.DeleteByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes entity by its id.
func (r *Repository[T]) Delete(ctx context.Context, entity *T) error {
	if entity == nil {
		return errors.NewValidationError("entity", "entity is required")
	}
	id, err := r.conv.IDValue(entity)
	if err != nil {
		return err
	}
	return r.DeleteByID(ctx, id)
}

// DeleteAll removes each entity by its id.
func (r *Repository[T]) DeleteAll(ctx context.Context, entities ...*T) error {
	for _, entity := range entities {
		if err := r.Delete(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

// FindByID returns the entity with the given id, or nil when none is stored.
func (r *Repository[T]) FindByID(ctx context.Context, id any) (*T, error) {
	if isNil(id) {
		return nil, errors.NewValidationError("id", "id is required")
	}
	q, err := r.SelectQuery().Where(r.id.GoName).Eq(id).Build()
	if err != nil {
		return nil, err
	}
	found, err := r.Select(ctx, q)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

// FindByIDs returns the stored entities in the order of ids. Missing ids are
// skipped.
func (r *Repository[T]) FindByIDs(ctx context.Context, ids ...any) ([]*T, error) {
	out := make([]*T, 0, len(ids))
	for _, id := range ids {
		entity, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if entity != nil {
			out = append(out, entity)
		}
	}
	return out, nil
}

// ExistsByID reports whether an entity with the given id is stored.
func (r *Repository[T]) ExistsByID(ctx context.Context, id any) (bool, error) {
	entity, err := r.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	return entity != nil, nil
}

// Select runs q and converts every record into T.
func (r *Repository[T]) Select(ctx context.Context, q *query.Query) ([]*T, error) {
	if q == nil {
		return nil, errors.NewValidationError("query", "query is required")
	}
	records, err := r.store.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(records))
	for _, rec := range records {
		entity, err := mapping.ToEntityOf[T](r.conv, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

// DeleteWhere runs a delete query.
func (r *Repository[T]) DeleteWhere(ctx context.Context, q *query.Query) error {
	if q == nil {
		return errors.NewValidationError("query", "query is required")
	}
	return r.store.Delete(ctx, q)
}

// Stream pages through the results of q. The datastore must implement
// datastore.Streamer.
func (r *Repository[T]) Stream(ctx context.Context, q *query.Query, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[*T] {
	out := make(chan storagemodels.StreamResult[*T], 1)
	streamer, ok := r.store.(datastore.Streamer)
	if !ok {
		out <- storagemodels.StreamResult[*T]{Error: errors.NewUnsupportedError(fmt.Sprintf("%T", r.store), "streaming")}
		close(out)
		return out
	}

	go func() {
		defer close(out)
		for result := range streamer.Stream(ctx, q, opts...) {
			typed := storagemodels.StreamResult[*T]{Raw: result.Raw, Error: result.Error, Meta: result.Meta}
			if result.Error == nil {
				typed.Item, typed.Error = mapping.ToEntityOf[T](r.conv, result.Item)
			}
			select {
			case <-ctx.Done():
				return
			case out <- typed:
			}
		}
	}()
	return out
}

// Method compiles name once and returns an invoker for it.
func (r *Repository[T]) Method(name string) (*MethodQuery[T], error) {
	if m, ok := r.methods.Load(name); ok {
		return &MethodQuery[T]{repo: r, method: m.(*Method)}, nil
	}
	m, err := Compile(r.meta, name)
	if err != nil {
		return nil, err
	}
	actual, _ := r.methods.LoadOrStore(name, m)
	r.logger.Debug("repository method compiled", zap.String("method", name), zap.Int("arity", m.Arity()))
	return &MethodQuery[T]{repo: r, method: actual.(*Method)}, nil
}

func (r *Repository[T]) recordOf(entity *T) (any, storagemodels.Record, error) {
	if entity == nil {
		return nil, nil, errors.NewValidationError("entity", "entity is required")
	}
	id, err := r.conv.IDValue(entity)
	if err != nil {
		return nil, nil, err
	}
	if isNil(id) {
		return nil, nil, errors.NewValidationError(r.id.GoName, "id value is required")
	}
	rec, err := r.conv.ToRecord(entity)
	if err != nil {
		return nil, nil, err
	}
	return id, rec, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package document

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mopt "go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/suparena/entitymapper/datastore"
	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/query"
	"github.com/suparena/entitymapper/storagemodels"
)

const backendName = "mongodb"

// MongoDataStore keeps each entity in the collection of the same name. The
// default identity attribute "_id" is MongoDB's own primary key.
type MongoDataStore struct {
	db          *mongo.Database
	idAttribute string
	logger      *zap.Logger
}

var (
	_ datastore.DataStore = (*MongoDataStore)(nil)
	_ datastore.Streamer  = (*MongoDataStore)(nil)
)

// Option configures a MongoDataStore.
type Option func(*MongoDataStore)

// WithIDAttribute sets the record attribute holding the id.
func WithIDAttribute(name string) Option {
	return func(m *MongoDataStore) {
		if name != "" {
			m.idAttribute = name
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *MongoDataStore) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Connect opens a client for uri, checks it with a ping and returns a store
// over database.
func Connect(ctx context.Context, uri, database string, opts ...Option) (*MongoDataStore, error) {
	clientOpts := mopt.Client().ApplyURI(uri)
	clientOpts.SetConnectTimeout(10 * time.Second).SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	store := New(client.Database(database), opts...)
	store.logger.Info("mongodb datastore connected", zap.String("database", database))
	return store, nil
}

// New creates a store over an existing database handle.
func New(db *mongo.Database, opts ...Option) *MongoDataStore {
	m := &MongoDataStore{
		db:          db,
		idAttribute: datastore.DefaultIDAttribute,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Close disconnects the underlying client.
func (m *MongoDataStore) Close(ctx context.Context) error {
	return m.db.Client().Disconnect(ctx)
}

// Insert adds rec; a duplicate id fails with AlreadyExistsError.
func (m *MongoDataStore) Insert(ctx context.Context, entity string, rec storagemodels.Record) error {
	id, err := datastore.IDOf(rec, m.idAttribute)
	if err != nil {
		return err
	}
	if _, err := m.db.Collection(entity).InsertOne(ctx, ToDocument(rec)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.NewAlreadyExistsError(entity, id)
		}
		return fmt.Errorf("mongodb insert failed: %w", err)
	}
	return nil
}

// Update replaces the document with the same id.
func (m *MongoDataStore) Update(ctx context.Context, entity string, rec storagemodels.Record) error {
	id, err := datastore.IDOf(rec, m.idAttribute)
	if err != nil {
		return err
	}
	filter := bson.D{{Key: m.idAttribute, Value: rec.Value(m.idAttribute)}}
	res, err := m.db.Collection(entity).ReplaceOne(ctx, filter, ToDocument(rec))
	if err != nil {
		return fmt.Errorf("mongodb replace failed: %w", err)
	}
	if res.MatchedCount == 0 {
		return errors.NewNotFoundError(entity, id)
	}
	return nil
}

// Select runs q on the server: filter, sort, skip, limit and projection.
func (m *MongoDataStore) Select(ctx context.Context, q *query.Query) ([]storagemodels.Record, error) {
	cursor, err := m.find(ctx, q, 0)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []storagemodels.Record
	for cursor.Next(ctx) {
		rec, err := decode(cursor, q)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongodb cursor failed: %w", err)
	}
	return records, nil
}

// Delete removes every document matching q.
func (m *MongoDataStore) Delete(ctx context.Context, q *query.Query) error {
	if q == nil {
		return errors.NewValidationError("query", "query is required")
	}
	cond, _ := q.Condition()
	filter, err := BuildFilter(cond)
	if err != nil {
		return err
	}
	res, err := m.db.Collection(q.Entity()).DeleteMany(ctx, filter)
	if err != nil {
		return fmt.Errorf("mongodb delete failed: %w", err)
	}
	m.logger.Debug("records deleted", zap.String("entity", q.Entity()), zap.Int64("count", res.DeletedCount))
	return nil
}

// Stream iterates the cursor of q, fetching PageSize documents per batch.
func (m *MongoDataStore) Stream(ctx context.Context, q *query.Query, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[storagemodels.Record] {
	options := storagemodels.DefaultStreamOptions()
	for _, opt := range opts {
		opt(&options)
	}
	resultCh := make(chan storagemodels.StreamResult[storagemodels.Record], options.BufferSize)

	go func() {
		defer close(resultCh)

		startTime := time.Now()
		var index int64
		send := func(result storagemodels.StreamResult[storagemodels.Record]) bool {
			select {
			case <-ctx.Done():
				return false
			case resultCh <- result:
				return true
			}
		}

		cursor, err := m.find(ctx, q, options.PageSize)
		if err != nil {
			send(storagemodels.StreamResult[storagemodels.Record]{Error: err, Meta: storagemodels.StreamMeta{Timestamp: time.Now()}})
			return
		}
		defer cursor.Close(ctx)

		for cursor.Next(ctx) {
			meta := storagemodels.StreamMeta{
				Index:      index,
				PageNumber: pageOf(index, options.PageSize),
				Timestamp:  time.Now(),
			}
			rec, err := decode(cursor, q)
			result := storagemodels.StreamResult[storagemodels.Record]{Item: rec, Error: err, Raw: append(bson.Raw(nil), cursor.Current...), Meta: meta}
			if !send(result) {
				return
			}
			index++
			if err != nil && (options.ErrorHandler == nil || !options.ErrorHandler(err)) {
				return
			}
		}
		if err := cursor.Err(); err != nil {
			send(storagemodels.StreamResult[storagemodels.Record]{Error: fmt.Errorf("mongodb cursor failed: %w", err), Meta: storagemodels.StreamMeta{Index: index, Timestamp: time.Now()}})
			return
		}

		if options.ProgressHandler != nil {
			progress := storagemodels.StreamProgress{
				ItemsProcessed: index,
				PagesProcessed: pageOf(index-1, options.PageSize),
				StartTime:      startTime,
			}
			if elapsed := time.Since(startTime).Seconds(); elapsed > 0 {
				progress.CurrentRate = float64(index) / elapsed
			}
			options.ProgressHandler(progress)
		}
	}()

	return resultCh
}

func (m *MongoDataStore) find(ctx context.Context, q *query.Query, batchSize int32) (*mongo.Cursor, error) {
	if q == nil {
		return nil, errors.NewValidationError("query", "query is required")
	}
	cond, _ := q.Condition()
	filter, err := BuildFilter(cond)
	if err != nil {
		return nil, err
	}

	findOpts := mopt.Find()
	if sort := SortDocument(q.Sorts()); sort != nil {
		findOpts.SetSort(sort)
	}
	if q.Skip() > 0 {
		findOpts.SetSkip(q.Skip())
	}
	if q.Limit() > 0 {
		findOpts.SetLimit(q.Limit())
	}
	if projection := ProjectionDocument(q.Fields()); projection != nil {
		findOpts.SetProjection(projection)
	}
	if batchSize > 0 {
		findOpts.SetBatchSize(batchSize)
	}

	cursor, err := m.db.Collection(q.Entity()).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find failed: %w", err)
	}
	return cursor, nil
}

// decode reads the current document; projections drop the _id MongoDB
// always returns unless it was asked for.
func decode(cursor *mongo.Cursor, q *query.Query) (storagemodels.Record, error) {
	var doc bson.D
	if err := cursor.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return datastore.Project(FromDocument(doc), q.Fields()), nil
}

func pageOf(index int64, pageSize int32) int {
	if pageSize <= 0 {
		return 1
	}
	return int(index/int64(pageSize)) + 1
}

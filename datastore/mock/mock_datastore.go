/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory implementation of datastore.DataStore for testing
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/suparena/entitymapper/datastore"
	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/query"
	"github.com/suparena/entitymapper/storagemodels"
)

// DataStore is an in-memory datastore.DataStore. Records are kept per
// entity name and keyed by their id; queries are evaluated with
// datastore.Match.
type DataStore struct {
	mu          sync.RWMutex
	data        map[string]map[string]storagemodels.Record
	idAttribute string
	selectFunc  func(ctx context.Context, q *query.Query) ([]storagemodels.Record, error)
	insertError error
	updateError error
	selectError error
	deleteError error
	calls       []string
}

var (
	_ datastore.DataStore = (*DataStore)(nil)
	_ datastore.Streamer  = (*DataStore)(nil)
)

// New creates a new mock DataStore
func New() *DataStore {
	return &DataStore{
		data:        make(map[string]map[string]storagemodels.Record),
		idAttribute: datastore.DefaultIDAttribute,
	}
}

// WithIDAttribute sets the attribute records are keyed by
func (m *DataStore) WithIDAttribute(name string) *DataStore {
	m.idAttribute = name
	return m
}

// WithSelectFunc replaces query evaluation for testing
func (m *DataStore) WithSelectFunc(f func(ctx context.Context, q *query.Query) ([]storagemodels.Record, error)) *DataStore {
	m.selectFunc = f
	return m
}

// WithInsertError makes Insert operations return an error
func (m *DataStore) WithInsertError(err error) *DataStore {
	m.insertError = err
	return m
}

// WithUpdateError makes Update operations return an error
func (m *DataStore) WithUpdateError(err error) *DataStore {
	m.updateError = err
	return m
}

// WithSelectError makes Select operations return an error
func (m *DataStore) WithSelectError(err error) *DataStore {
	m.selectError = err
	return m
}

// WithDeleteError makes Delete operations return an error
func (m *DataStore) WithDeleteError(err error) *DataStore {
	m.deleteError = err
	return m
}

// Insert stores a new record
func (m *DataStore) Insert(ctx context.Context, entity string, rec storagemodels.Record) error {
	m.record("Insert")
	if m.insertError != nil {
		return m.insertError
	}
	id, err := datastore.IDOf(rec, m.idAttribute)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	table := m.table(entity)
	if _, exists := table[id]; exists {
		return errors.NewAlreadyExistsError(entity, id)
	}
	table[id] = clone(rec)
	return nil
}

// Update replaces an existing record
func (m *DataStore) Update(ctx context.Context, entity string, rec storagemodels.Record) error {
	m.record("Update")
	if m.updateError != nil {
		return m.updateError
	}
	id, err := datastore.IDOf(rec, m.idAttribute)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	table := m.table(entity)
	if _, exists := table[id]; !exists {
		return errors.NewNotFoundError(entity, id)
	}
	table[id] = clone(rec)
	return nil
}

// Select returns the records matching q, ordered by id unless q sorts
func (m *DataStore) Select(ctx context.Context, q *query.Query) ([]storagemodels.Record, error) {
	m.record("Select")
	if m.selectError != nil {
		return nil, m.selectError
	}
	if m.selectFunc != nil {
		return m.selectFunc(ctx, q)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matched, _, err := m.match(q)
	if err != nil {
		return nil, err
	}
	return datastore.Apply(q, matched), nil
}

// Delete removes the records matching q
func (m *DataStore) Delete(ctx context.Context, q *query.Query) error {
	m.record("Delete")
	if m.deleteError != nil {
		return m.deleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, ids, err := m.match(q)
	if err != nil {
		return err
	}
	table := m.data[q.Entity()]
	for _, id := range ids {
		delete(table, id)
	}
	return nil
}

// Stream returns a channel of the records matching q
func (m *DataStore) Stream(ctx context.Context, q *query.Query, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[storagemodels.Record] {
	options := storagemodels.DefaultStreamOptions()
	for _, opt := range opts {
		opt(&options)
	}
	resultChan := make(chan storagemodels.StreamResult[storagemodels.Record], options.BufferSize)

	go func() {
		defer close(resultChan)

		records, err := m.Select(ctx, q)
		if err != nil {
			select {
			case resultChan <- storagemodels.StreamResult[storagemodels.Record]{Error: err}:
			case <-ctx.Done():
			}
			return
		}

		for i, rec := range records {
			select {
			case <-ctx.Done():
				return
			case resultChan <- storagemodels.StreamResult[storagemodels.Record]{
				Item: rec,
				Meta: storagemodels.StreamMeta{
					Index:      int64(i),
					PageNumber: 1,
					Timestamp:  time.Now(),
				},
			}:
			}
		}
	}()

	return resultChan
}

func (m *DataStore) match(q *query.Query) ([]storagemodels.Record, []string, error) {
	cond, _ := q.Condition()
	table := m.data[q.Entity()]

	ids := make([]string, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var matched []storagemodels.Record
	var matchedIDs []string
	for _, id := range ids {
		ok, err := datastore.Match(cond, table[id])
		if err != nil {
			return nil, nil, err
		}
		if ok {
			matched = append(matched, clone(table[id]))
			matchedIDs = append(matchedIDs, id)
		}
	}
	return matched, matchedIDs, nil
}

func (m *DataStore) table(entity string) map[string]storagemodels.Record {
	table, ok := m.data[entity]
	if !ok {
		table = make(map[string]storagemodels.Record)
		m.data[entity] = table
	}
	return table
}

func (m *DataStore) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

// Helper methods for testing

// SetData directly sets the records of an entity (for testing)
func (m *DataStore) SetData(entity string, records ...storagemodels.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	table := make(map[string]storagemodels.Record, len(records))
	for _, rec := range records {
		id, err := datastore.IDOf(rec, m.idAttribute)
		if err != nil {
			return err
		}
		table[id] = clone(rec)
	}
	m.data[entity] = table
	return nil
}

// GetData returns a copy of the records of an entity keyed by id (for testing)
func (m *DataStore) GetData(entity string) map[string]storagemodels.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]storagemodels.Record, len(m.data[entity]))
	for k, v := range m.data[entity] {
		result[k] = clone(v)
	}
	return result
}

// Count returns the number of stored records of an entity
func (m *DataStore) Count(entity string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data[entity])
}

// Calls returns the names of the operations invoked so far
func (m *DataStore) Calls() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.calls...)
}

// Clear removes all data and recorded calls
func (m *DataStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]map[string]storagemodels.Record)
	m.calls = nil
}

// clone copies the attribute slice so callers cannot alias stored records.
func clone(rec storagemodels.Record) storagemodels.Record {
	return append(storagemodels.Record(nil), rec...)
}

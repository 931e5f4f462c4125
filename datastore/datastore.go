/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/entitymapper/query"
	"github.com/suparena/entitymapper/storagemodels"
)

// DefaultIDAttribute is the record attribute holding the entity id.
const DefaultIDAttribute = "_id"

// DataStore is the contract between the mapping layer and a backend. Records
// carry the id under the store's identity attribute.
type DataStore interface {
	// Insert stores a new record; an existing id fails with AlreadyExistsError.
	Insert(ctx context.Context, entity string, rec storagemodels.Record) error

	// Update replaces the stored record with the same id; a missing id fails
	// with NotFoundError.
	Update(ctx context.Context, entity string, rec storagemodels.Record) error

	// Select returns the records matching q.
	Select(ctx context.Context, q *query.Query) ([]storagemodels.Record, error)

	// Delete removes the records matching q.
	Delete(ctx context.Context, q *query.Query) error
}

// Streamer is implemented by stores able to page through large results.
type Streamer interface {
	Stream(ctx context.Context, q *query.Query, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[storagemodels.Record]
}

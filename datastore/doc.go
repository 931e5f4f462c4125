/*
Package datastore defines the contract between the mapping layer and NoSQL backends.

A backend receives generic records and backend-neutral queries:

	type DataStore interface {
	    Insert(ctx context.Context, entity string, rec storagemodels.Record) error
	    Update(ctx context.Context, entity string, rec storagemodels.Record) error
	    Select(ctx context.Context, q *query.Query) ([]storagemodels.Record, error)
	    Delete(ctx context.Context, q *query.Query) error
	}

Stores that can page through large results also implement Streamer.

Implementations:
  - ddb: DynamoDB, one table holding every entity under templated keys
  - document: MongoDB, one collection per entity
  - kv: Redis, one JSON value per record keyed by entity and id
  - mock: In-memory implementation for testing

Match, Compare and Apply evaluate queries in memory for backends without
server-side filtering.
*/
package datastore

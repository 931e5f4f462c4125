/*
Package ddb provides a DynamoDB implementation of datastore.DataStore.

All entities share one table (single-table design). Each item carries:
  - PK and SK built from per-entity key templates
  - EntityType holding the entity name
  - the record attributes, marshaled with attributevalue

Key Templates:
Templates use macros that are replaced with record attribute values:

	store.RegisterKeys("User", ddb.Keys{
	    "PK":     "USER#{_id}",       // Becomes "USER#123"
	    "SK":     "PROFILE",          // Static value
	    "GSI1PK": "EMAIL#{email}",    // Omitted when email is empty
	})

Entities without registered templates use "<Entity>#{<id attribute>}" for
both PK and SK.

Queries:
Conditions pinned to ids resolve with GetItem. Other conditions scan the
table with a filter expression when DynamoDB can express the condition and
are matched again in memory, so results never depend on what the filter
could express. Ordering, paging and projection run in memory.

Streaming:

	results := store.Stream(ctx, q,
	    storagemodels.WithPageSize(25),
	    storagemodels.WithMaxRetries(3),
	    storagemodels.WithProgressHandler(func(p storagemodels.StreamProgress) {
	        logger.Info("progress", zap.Int64("items", p.ItemsProcessed))
	    }),
	)

Secondary indexes are queried directly with QueryIndex.
*/
package ddb

/*
Package storagemodels defines the data structures shared by the mapping engine
and every backend.

Key Types:

Record:
The generic, ordered representation of an entity. Attribute order follows the
declaration order of the entity fields:

	rec := storagemodels.Record{
	    storagemodels.Of("_id", int64(10)),
	    storagemodels.Of("name", "Ada"),
	    storagemodels.Of("job", storagemodels.Record{
	        storagemodels.Of("city", "Salvador"),
	    }),
	}

	city, _ := rec.Lookup("job.city")

Embedded structures are nested records; collections of embedded structures are
[]Record values. Map and RecordFromMap convert to and from plain documents.

StreamResult:
Results from streaming operations with metadata:

	type StreamResult[T any] struct {
	    Item  T          // The converted item
	    Raw   any        // Backend-native item
	    Error error      // Item-specific error, if any
	    Meta  StreamMeta // Metadata about this item
	}

StreamOptions:
Configuration for streaming behavior:

	opts := []StreamOption{
	    WithBufferSize(100),
	    WithPageSize(25),
	    WithMaxRetries(3),
	    WithProgressHandler(progressFunc),
	}
*/
package storagemodels

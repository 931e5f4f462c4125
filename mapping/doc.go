/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mapping moves data between entities and attribute records, and
// translates field-keyed queries into attribute-keyed ones.
//
// EntityConverter renders an entity as a storagemodels.Record in field
// declaration order and rebuilds entities from records, applying attribute
// converters both ways and coercing stored scalars to the field type.
//
// QueryMapper starts builders whose Where, And, Or and OrderBy take field
// names or dotted paths ("job.city"). Names are translated to attribute
// names, the id field to the identity attribute, and every literal passes
// through the field's converter or is coerced to the field's type:
//
//	q, err := mapping.DeleteFrom[Worker](mapper).
//		Where("salary").Eq(Money{Currency: "USD", Amount: 10}).
//		Build()
//	// DELETE FROM Worker WHERE money EQ USD 10
package mapping

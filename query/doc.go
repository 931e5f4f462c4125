/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package query defines the backend-neutral query model: an immutable
// Query holding an optional Condition tree, and fluent builders keyed by
// attribute names.
//
//	q, err := query.Select().From("Person").
//		Where("age").Between(10, 20).
//		And("name").Eq("Ada").
//		Build()
//
// Builders record the first error and ignore every later call; Build
// returns that error. Consecutive connectors of the same kind extend the
// current composite, so a AND b AND c yields one AND node with three
// children, while a OR b AND c yields AND(OR(a, b), c).
package query

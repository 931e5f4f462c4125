// Package repository provides Repository, a typed CRUD facade over a
// datastore.DataStore, and a dispatcher for query methods named after
// entity fields.
//
// Save checks for an existing entity with FindByID and then updates or
// inserts. Method names such as FindByNameAndAgeGreaterThan are parsed once
// with Compile and cached per repository:
//
//	m, err := people.Method("FindByAgeGreaterThanOrderByNameDesc")
//	adults, err := m.Find(ctx, 18)
//
// Terms combine left to right. Supported operator suffixes are GreaterThan,
// GreaterThanEqual, LessThan, LessThanEqual, Between, Like and In; a term
// without a suffix compares for equality.
package repository

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package metadata discovers the persistable structure of entity types.
//
// Discovery reads the "mapping" struct tag:
//
//	type Worker struct {
//		ID     int64  `mapping:",id"`
//		Name   string `mapping:"name"`
//		Job    Job    `mapping:"job,embedded"`
//		Salary Money  `mapping:"money,convert=money"`
//	}
//
// Options are id, embedded, flatten and convert=<name>, where name was
// declared with converter.Declare. A tag of "-" skips the field. Without a
// name the json tag name is used, then the lower-camel field name. Untagged
// anonymous structs contribute their fields to the owner.
//
// Metadata is computed once per type and cached by type and by the
// lower-cased entity name; concurrent first requests may compute the same
// entry twice but all callers observe the stored one.
package metadata

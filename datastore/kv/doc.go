/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package kv stores records in Redis, one JSON value per record keyed by
// entity name and id.
package kv

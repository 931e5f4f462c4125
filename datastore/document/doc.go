/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package document stores records in MongoDB, one collection per entity.
//
// Conditions translate to native filters: dotted attribute paths address
// embedded records, LIKE patterns become anchored regular expressions and
// sorting, paging and projection run on the server.
package document

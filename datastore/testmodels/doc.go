/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package testmodels holds entities shared by the tests of the mapping,
// repository and datastore packages.
package testmodels

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitymapper

import (
	"sort"
	"sync"

	"github.com/suparena/entitymapper/datastore"
	"github.com/suparena/entitymapper/errors"
)

// Storage is a named collection of DataStore instances, for example one per
// backend ("dynamodb", "redis") or one per bounded context.
type Storage interface {
	// RegisterDataStore registers a DataStore under a given key.
	RegisterDataStore(key string, ds datastore.DataStore) error
	// GetDataStore retrieves the DataStore registered under key.
	GetDataStore(key string) (datastore.DataStore, error)
	// RemoveDataStore unregisters key.
	RemoveDataStore(key string) error
	// Keys lists the registered keys in sorted order.
	Keys() []string
}

// storageManager is a thread-safe implementation of the Storage interface.
type storageManager struct {
	mu     sync.RWMutex
	stores map[string]datastore.DataStore
}

// NewStorageManager creates and returns a new Storage implementation.
func NewStorageManager() Storage {
	return &storageManager{
		stores: make(map[string]datastore.DataStore),
	}
}

func (sm *storageManager) RegisterDataStore(key string, ds datastore.DataStore) error {
	if key == "" {
		return errors.NewValidationError("key", "datastore key is required")
	}
	if ds == nil {
		return errors.NewValidationError("datastore", "datastore is required")
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.stores[key]; exists {
		return errors.NewAlreadyExistsError("datastore", key)
	}
	sm.stores[key] = ds
	return nil
}

func (sm *storageManager) GetDataStore(key string) (datastore.DataStore, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	ds, exists := sm.stores[key]
	if !exists {
		return nil, errors.NewNotFoundError("datastore", key)
	}
	return ds, nil
}

func (sm *storageManager) RemoveDataStore(key string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.stores[key]; !exists {
		return errors.NewNotFoundError("datastore", key)
	}
	delete(sm.stores, key)
	return nil
}

func (sm *storageManager) Keys() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	keys := make([]string, 0, len(sm.stores))
	for k := range sm.stores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

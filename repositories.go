/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitymapper

import (
	"reflect"
	"sort"
	"sync"

	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/repository"
)

// TypedRepositories holds the repositories of entity type T, keyed by the
// datastore they use.
type TypedRepositories[T any] struct {
	mu    sync.RWMutex
	repos map[string]*repository.Repository[T]
}

// NewTypedRepositories creates an empty TypedRepositories for T.
func NewTypedRepositories[T any]() *TypedRepositories[T] {
	return &TypedRepositories[T]{
		repos: make(map[string]*repository.Repository[T]),
	}
}

// Register adds a repository under key.
func (tr *TypedRepositories[T]) Register(key string, repo *repository.Repository[T]) error {
	if repo == nil {
		return errors.NewValidationError("repository", "repository is required")
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if _, exists := tr.repos[key]; exists {
		return errors.NewAlreadyExistsError("repository", key)
	}
	tr.repos[key] = repo
	return nil
}

// Get retrieves the repository registered under key.
func (tr *TypedRepositories[T]) Get(key string) (*repository.Repository[T], error) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	repo, exists := tr.repos[key]
	if !exists {
		return nil, errors.NewNotFoundError("repository", key)
	}
	return repo, nil
}

// Remove deletes the repository registered under key.
func (tr *TypedRepositories[T]) Remove(key string) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if _, exists := tr.repos[key]; !exists {
		return errors.NewNotFoundError("repository", key)
	}
	delete(tr.repos, key)
	return nil
}

// List returns the registered keys in sorted order.
func (tr *TypedRepositories[T]) List() []string {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	keys := make([]string, 0, len(tr.repos))
	for k := range tr.repos {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MultiTypeRepositories manages TypedRepositories instances for different
// entity types.
type MultiTypeRepositories struct {
	mu    sync.Mutex
	types map[reflect.Type]any
}

// NewMultiTypeRepositories creates a new MultiTypeRepositories.
func NewMultiTypeRepositories() *MultiTypeRepositories {
	return &MultiTypeRepositories{
		types: make(map[reflect.Type]any),
	}
}

// GetTypedRepositories returns the TypedRepositories of T, creating it if
// necessary.
func GetTypedRepositories[T any](mr *MultiTypeRepositories) *TypedRepositories[T] {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	typ := reflect.TypeOf((*T)(nil)).Elem()
	if repos, exists := mr.types[typ]; exists {
		return repos.(*TypedRepositories[T])
	}
	repos := NewTypedRepositories[T]()
	mr.types[typ] = repos
	return repos
}

// RegisterRepository registers repo for T under key.
func RegisterRepository[T any](mr *MultiTypeRepositories, key string, repo *repository.Repository[T]) error {
	return GetTypedRepositories[T](mr).Register(key, repo)
}

// GetRepository returns the repository of T registered under key.
func GetRepository[T any](mr *MultiTypeRepositories, key string) (*repository.Repository[T], error) {
	return GetTypedRepositories[T](mr).Get(key)
}

// RemoveRepository unregisters the repository of T under key.
func RemoveRepository[T any](mr *MultiTypeRepositories, key string) error {
	return GetTypedRepositories[T](mr).Remove(key)
}

// ListRepositories lists the keys T has repositories under.
func ListRepositories[T any](mr *MultiTypeRepositories) []string {
	return GetTypedRepositories[T](mr).List()
}

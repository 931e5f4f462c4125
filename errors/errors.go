/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when an entity, its id or its metadata is not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when attempting to insert a record whose id already exists
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrInvalidInput is returned when a precondition on an argument fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConditionFailed is returned when a conditional write is rejected by the backend
	ErrConditionFailed = errors.New("condition check failed")

	// ErrUnknownField is returned when a query references a field the entity does not declare
	ErrUnknownField = errors.New("unknown field")

	// ErrMapping is returned when a value cannot be moved between an entity and a record
	ErrMapping = errors.New("mapping failed")

	// ErrInvalidState is returned when a builder is used out of order or after Build
	ErrInvalidState = errors.New("invalid builder state")

	// ErrUnsupported is returned when a backend cannot express a query
	ErrUnsupported = errors.New("unsupported by backend")
)

// NotFoundError represents an error when an entity, id field or metadata is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Type)
	}
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError represents an error when an entity already exists
type AlreadyExistsError struct {
	Type string
	Key  string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with key %q already exists", e.Type, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConditionFailedError represents a failed conditional operation
type ConditionFailedError struct {
	Operation string
	Condition string
}

func (e *ConditionFailedError) Error() string {
	return fmt.Sprintf("condition check failed for %s operation: %s", e.Operation, e.Condition)
}

func (e *ConditionFailedError) Is(target error) bool {
	return target == ErrConditionFailed
}

// UnknownFieldError is returned when a field name, or one segment of a dotted
// path, is absent from the entity metadata.
type UnknownFieldError struct {
	Entity string
	Field  string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("entity %s has no field %q", e.Entity, e.Field)
}

func (e *UnknownFieldError) Is(target error) bool {
	return target == ErrUnknownField
}

// MappingError wraps a failure while converting between an entity and a record.
type MappingError struct {
	Entity string
	Field  string
	Err    error
}

func (e *MappingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("cannot map field %q of %s", e.Field, e.Entity)
	}
	return fmt.Sprintf("cannot map field %q of %s: %v", e.Field, e.Entity, e.Err)
}

func (e *MappingError) Is(target error) bool {
	return target == ErrMapping
}

func (e *MappingError) Unwrap() error {
	return e.Err
}

// InvalidStateError is returned when a builder method is called in a state
// that does not accept it.
type InvalidStateError struct {
	Operation string
	State     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot call %s in state %s", e.Operation, e.State)
}

func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

// UnsupportedError is returned when a backend cannot execute a query shape.
type UnsupportedError struct {
	Backend string
	Feature string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s backend does not support %s", e.Backend, e.Feature)
}

func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(entityType, key string) error {
	return &NotFoundError{Type: entityType, Key: key}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(entityType, key string) error {
	return &AlreadyExistsError{Type: entityType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConditionFailedError creates a new ConditionFailedError
func NewConditionFailedError(operation, condition string) error {
	return &ConditionFailedError{Operation: operation, Condition: condition}
}

// NewUnknownFieldError creates a new UnknownFieldError
func NewUnknownFieldError(entity, field string) error {
	return &UnknownFieldError{Entity: entity, Field: field}
}

// NewMappingError creates a new MappingError wrapping cause
func NewMappingError(entity, field string, cause error) error {
	return &MappingError{Entity: entity, Field: field, Err: cause}
}

// NewInvalidStateError creates a new InvalidStateError
func NewInvalidStateError(operation, state string) error {
	return &InvalidStateError{Operation: operation, State: state}
}

// NewUnsupportedError creates a new UnsupportedError
func NewUnsupportedError(backend, feature string) error {
	return &UnsupportedError{Backend: backend, Feature: feature}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConditionFailed checks if an error is a condition failed error
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}

// IsUnknownField checks if an error is an unknown field error
func IsUnknownField(err error) bool {
	return errors.Is(err, ErrUnknownField)
}

// IsMapping checks if an error is a mapping error
func IsMapping(err error) bool {
	return errors.Is(err, ErrMapping)
}

// IsInvalidState checks if an error is an invalid builder state error
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsUnsupported checks if an error is an unsupported backend feature error
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupported)
}

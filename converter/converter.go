/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package converter

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/suparena/entitymapper/errors"
)

// AttributeConverter transforms a field value into its stored representation
// and back.
type AttributeConverter interface {
	// ToStorage converts an entity field value into the value written to the backend.
	ToStorage(value any) (any, error)
	// ToEntity converts a stored value back into the entity field value.
	ToEntity(value any) (any, error)
}

var converterInterface = reflect.TypeOf((*AttributeConverter)(nil)).Elem()

// catalog maps tag names (mapping:"money,convert=money") to converter types.
var (
	catalog   = make(map[string]reflect.Type)
	catalogMu sync.RWMutex
)

// Declare makes a converter type available under name for struct tags.
// It is meant to be called from init functions; declaring the same name
// twice panics to prevent accidental overrides.
func Declare(name string, prototype AttributeConverter) {
	if prototype == nil {
		panic("converter: Declare called with nil prototype")
	}
	t := typeOf(reflect.TypeOf(prototype))

	catalogMu.Lock()
	defer catalogMu.Unlock()
	if existing, exists := catalog[name]; exists {
		panic(fmt.Sprintf("converter: name %q already declared for %s", name, existing))
	}
	catalog[name] = t
}

// Lookup returns the converter type declared under name.
func Lookup(name string) (reflect.Type, error) {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	t, ok := catalog[name]
	if !ok {
		return nil, errors.NewNotFoundError("converter", name)
	}
	return t, nil
}

// Registry holds exactly one instance per converter type. Instances are
// created on first use and never released.
type Registry struct {
	instances sync.Map // map[reflect.Type]AttributeConverter
	logger    *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for instantiation events.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty converter registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the singleton for the converter type t, creating it if needed.
// Concurrent first calls may each build an instance; only the first stored
// one is ever returned.
func (r *Registry) Get(t reflect.Type) (AttributeConverter, error) {
	if t == nil {
		return nil, errors.NewValidationError("converterType", "converter type is required")
	}
	t = typeOf(t)
	if cached, ok := r.instances.Load(t); ok {
		return cached.(AttributeConverter), nil
	}

	instance, err := newInstance(t)
	if err != nil {
		return nil, err
	}
	actual, loaded := r.instances.LoadOrStore(t, instance)
	if !loaded {
		r.logger.Debug("attribute converter created", zap.Stringer("type", t))
	}
	return actual.(AttributeConverter), nil
}

// Len reports how many converter instances have been created.
func (r *Registry) Len() int {
	n := 0
	r.instances.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Get is the generic form of Registry.Get.
func Get[C AttributeConverter](r *Registry) (AttributeConverter, error) {
	var zero C
	t := reflect.TypeOf(zero)
	if t == nil {
		t = reflect.TypeOf((*C)(nil)).Elem()
	}
	return r.Get(t)
}

func (r *Registry) String() string {
	return fmt.Sprintf("converter.Registry{instances=%d}", r.Len())
}

// typeOf normalizes pointer converter types to their element type; the
// instance is then built as a pointer when only *T implements the interface.
func typeOf(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Ptr {
		return t.Elem()
	}
	return t
}

func newInstance(t reflect.Type) (AttributeConverter, error) {
	ptr := reflect.New(t)
	if ptr.Type().Implements(converterInterface) {
		return ptr.Interface().(AttributeConverter), nil
	}
	if t.Implements(converterInterface) {
		return ptr.Elem().Interface().(AttributeConverter), nil
	}
	return nil, errors.NewValidationError("converterType", fmt.Sprintf("%s does not implement AttributeConverter", t))
}

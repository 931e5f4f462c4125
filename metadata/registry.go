/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package metadata

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/suparena/entitymapper/converter"
	"github.com/suparena/entitymapper/errors"
)

// DefaultIDAttribute is the attribute name the id field is stored under
// unless its tag names one.
const DefaultIDAttribute = "_id"

// TagName is the struct tag read during discovery.
const TagName = "mapping"

var namerType = reflect.TypeOf((*Namer)(nil)).Elem()

// Registry discovers entity metadata once per type and caches it by type
// and by lower-cased entity name. It is safe for concurrent use.
type Registry struct {
	byType sync.Map // map[reflect.Type]*EntityMetadata
	byName sync.Map // map[string]*EntityMetadata

	idAttribute string
	logger      *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithIDAttribute sets the attribute name id fields are stored under.
func WithIDAttribute(name string) Option {
	return func(r *Registry) {
		if name != "" {
			r.idAttribute = name
		}
	}
}

// WithLogger sets the logger used for discovery events.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{idAttribute: DefaultIDAttribute, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IDAttribute returns the attribute name used for id fields.
func (r *Registry) IDAttribute() string {
	return r.idAttribute
}

// Get returns the metadata of t, discovering it on first use. Pointer types
// are dereferenced.
func (r *Registry) Get(t reflect.Type) (*EntityMetadata, error) {
	return r.get(t, nil)
}

// Of returns the metadata of the dynamic type of entity.
func (r *Registry) Of(entity any) (*EntityMetadata, error) {
	if entity == nil {
		return nil, errors.NewValidationError("entity", "entity is required")
	}
	return r.Get(reflect.TypeOf(entity))
}

// For returns the metadata of T.
func For[T any](r *Registry) (*EntityMetadata, error) {
	return r.Get(reflect.TypeOf((*T)(nil)).Elem())
}

// Load discovers all given types up front. Values and types are accepted.
func (r *Registry) Load(types ...any) error {
	for _, v := range types {
		t, ok := v.(reflect.Type)
		if !ok {
			t = reflect.TypeOf(v)
		}
		if _, err := r.Get(t); err != nil {
			return err
		}
	}
	return nil
}

// FindByName returns the metadata registered under name, ignoring case.
func (r *Registry) FindByName(name string) (*EntityMetadata, error) {
	if m, ok := r.byName.Load(strings.ToLower(name)); ok {
		return m.(*EntityMetadata), nil
	}
	return nil, errors.NewNotFoundError("entity metadata", name)
}

// Len reports the number of discovered types.
func (r *Registry) Len() int {
	n := 0
	r.byType.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (r *Registry) get(t reflect.Type, visiting []reflect.Type) (*EntityMetadata, error) {
	if t == nil {
		return nil, errors.NewValidationError("type", "type is required")
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := r.byType.Load(t); ok {
		return cached.(*EntityMetadata), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, errors.NewValidationError("type", fmt.Sprintf("%s is not a struct", t))
	}
	for _, v := range visiting {
		if v == t {
			return nil, errors.NewValidationError("type", fmt.Sprintf("%s embeds itself", t))
		}
	}

	meta, err := r.build(t, append(visiting, t))
	if err != nil {
		return nil, err
	}
	actual, loaded := r.byType.LoadOrStore(t, meta)
	stored := actual.(*EntityMetadata)
	if !loaded {
		r.byName.Store(strings.ToLower(stored.Name), stored)
		r.logger.Debug("entity metadata discovered",
			zap.String("entity", stored.Name),
			zap.Stringer("type", t),
			zap.Int("fields", len(stored.fields)))
	}
	return stored, nil
}

func (r *Registry) build(t reflect.Type, visiting []reflect.Type) (*EntityMetadata, error) {
	meta := &EntityMetadata{Name: entityName(t), Type: t}
	if err := r.collect(t, meta, nil, visiting); err != nil {
		return nil, err
	}
	for _, f := range meta.fields {
		f.Entity = meta.Name
		if !f.IsID {
			continue
		}
		if meta.id != nil {
			return nil, errors.NewValidationError(f.GoName,
				fmt.Sprintf("%s declares more than one id field (%s, %s)", meta.Name, meta.id.GoName, f.GoName))
		}
		meta.id = f
	}
	meta.index()
	return meta, nil
}

// collect appends the fields of t to meta. Untagged anonymous structs have
// their fields promoted into the owner at the embedding position.
func (r *Registry) collect(t reflect.Type, meta *EntityMetadata, prefix []int, visiting []reflect.Type) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		idx := append(append([]int(nil), prefix...), i)
		tag, hasTag := sf.Tag.Lookup(TagName)
		if tag == "-" {
			continue
		}
		opts := parseTag(tag)

		if sf.Anonymous && !hasTag {
			if !sf.IsExported() && sf.Type.Kind() == reflect.Ptr {
				continue
			}
			ft := sf.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if err := r.collect(ft, meta, idx, visiting); err != nil {
					return err
				}
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}

		f, err := r.field(sf, opts, idx, visiting)
		if err != nil {
			return err
		}
		meta.fields = append(meta.fields, f)
	}
	return nil
}

func (r *Registry) field(sf reflect.StructField, opts tagOptions, idx []int, visiting []reflect.Type) (*FieldMetadata, error) {
	f := &FieldMetadata{
		GoName:   sf.Name,
		Property: lowerFirst(sf.Name),
		Type:     sf.Type,
		IsID:     opts.id,
		index:    idx,
	}
	f.Name = opts.name
	if f.Name == "" && f.IsID {
		f.Name = r.idAttribute
	}
	if f.Name == "" {
		f.Name = jsonName(sf)
	}
	if f.Name == "" {
		f.Name = f.Property
	}

	if opts.converter != "" {
		ct, err := converter.Lookup(opts.converter)
		if err != nil {
			return nil, errors.NewValidationError(sf.Name, fmt.Sprintf("unknown converter %q", opts.converter))
		}
		f.Converter = ct
	}

	switch {
	case opts.embedded:
		if elem, ok := structElem(sf.Type); ok {
			nested, err := r.get(elem, visiting)
			if err != nil {
				return nil, err
			}
			f.Kind = CollectionOfEmbedded
			f.ElementType = elem
			f.Embedded = nested
			break
		}
		nested, err := r.get(sf.Type, visiting)
		if err != nil {
			return nil, err
		}
		f.Kind = Embedded
		f.Embedded = nested
	case opts.flatten:
		nested, err := r.get(sf.Type, visiting)
		if err != nil {
			return nil, err
		}
		f.Kind = Flattened
		f.Embedded = nested
	default:
		f.Kind = Plain
	}

	if f.Kind != Plain && f.Converter != nil {
		return nil, errors.NewValidationError(sf.Name, fmt.Sprintf("%s field cannot declare a converter", f.Kind))
	}
	return f, nil
}

type tagOptions struct {
	name      string
	id        bool
	embedded  bool
	flatten   bool
	converter string
}

func parseTag(tag string) tagOptions {
	var opts tagOptions
	parts := strings.Split(tag, ",")
	opts.name = strings.TrimSpace(parts[0])
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		switch {
		case p == "id":
			opts.id = true
		case p == "embedded":
			opts.embedded = true
		case p == "flatten":
			opts.flatten = true
		case strings.HasPrefix(p, "convert="):
			opts.converter = strings.TrimPrefix(p, "convert=")
		}
	}
	return opts
}

func jsonName(sf reflect.StructField) string {
	jt, ok := sf.Tag.Lookup("json")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(jt, ",")
	if name == "-" {
		return ""
	}
	return name
}

// structElem returns the struct element type of a slice or array of structs
// (or struct pointers).
func structElem(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() != reflect.Slice && t.Kind() != reflect.Array {
		return nil, false
	}
	elem := t.Elem()
	if elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}
	return elem, elem.Kind() == reflect.Struct
}

func entityName(t reflect.Type) string {
	if t.Implements(namerType) {
		if n := reflect.Zero(t).Interface().(Namer).EntityName(); n != "" {
			return n
		}
	}
	if reflect.PointerTo(t).Implements(namerType) {
		if n := reflect.New(t).Interface().(Namer).EntityName(); n != "" {
			return n
		}
	}
	return t.Name()
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	// Leading acronyms lower as a block: ID -> id, URLPath -> urlPath.
	upper := 0
	for _, c := range s {
		if !unicode.IsUpper(c) {
			break
		}
		upper++
	}
	if upper > 1 {
		if upper == utf8.RuneCountInString(s) {
			return strings.ToLower(s)
		}
		runes := []rune(s)
		return strings.ToLower(string(runes[:upper-1])) + string(runes[upper-1:])
	}
	return string(unicode.ToLower(r)) + s[size:]
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"fmt"
	"reflect"
	"sort"
)

// Attribute is one named value of a record. Value holds a scalar, a nested
// Record for embedded structures, or a []Record for collections of them.
type Attribute struct {
	Name  string
	Value any
}

// Of creates an Attribute.
func Of(name string, value any) Attribute {
	return Attribute{Name: name, Value: value}
}

func (a Attribute) String() string {
	return fmt.Sprintf("%s=%v", a.Name, a.Value)
}

// Record is the generic, ordered representation of an entity in a backend.
type Record []Attribute

// Find returns the first attribute with the given name.
func (r Record) Find(name string) (Attribute, bool) {
	for _, a := range r {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// Value returns the value of the named attribute, or nil.
func (r Record) Value(name string) any {
	if a, ok := r.Find(name); ok {
		return a.Value
	}
	return nil
}

// Names lists the attribute names in record order.
func (r Record) Names() []string {
	names := make([]string, len(r))
	for i, a := range r {
		names[i] = a.Name
	}
	return names
}

// Lookup resolves a dotted path ("job.city") through nested records.
func (r Record) Lookup(path string) (any, bool) {
	if a, ok := r.Find(path); ok {
		return a.Value, true
	}
	for i := 0; i < len(path); i++ {
		if path[i] != '.' {
			continue
		}
		head, ok := r.Find(path[:i])
		if !ok {
			continue
		}
		if nested, ok := AsRecord(head.Value); ok {
			if v, found := nested.Lookup(path[i+1:]); found {
				return v, true
			}
		}
	}
	return nil, false
}

// Map converts the record, recursively, into plain maps and slices.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r))
	for _, a := range r {
		m[a.Name] = plain(a.Value)
	}
	return m
}

func plain(v any) any {
	switch tv := v.(type) {
	case Record:
		return tv.Map()
	case []Record:
		out := make([]any, len(tv))
		for i, r := range tv {
			if r != nil {
				out[i] = r.Map()
			}
		}
		return out
	default:
		return v
	}
}

// RecordFromMap builds a record from a decoded document. Keys are sorted
// when order is unknown, nested maps become nested records.
func RecordFromMap(m map[string]any, order ...string) Record {
	keys := order
	if len(keys) == 0 {
		keys = sortedKeys(m)
	}
	r := make(Record, 0, len(m))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		v, ok := m[k]
		if !ok || seen[k] {
			continue
		}
		seen[k] = true
		r = append(r, Of(k, fromPlain(v)))
	}
	for _, k := range sortedKeys(m) {
		if !seen[k] {
			r = append(r, Of(k, fromPlain(m[k])))
		}
	}
	return r
}

func fromPlain(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return RecordFromMap(tv)
	case []any:
		records := make([]Record, 0, len(tv))
		maps := 0
		for _, e := range tv {
			if e == nil {
				records = append(records, nil)
				continue
			}
			m, ok := e.(map[string]any)
			if !ok {
				return tv
			}
			records = append(records, RecordFromMap(m))
			maps++
		}
		if maps == 0 {
			return tv
		}
		return records
	default:
		return v
	}
}

// AsRecord interprets v as a nested record. It accepts Record, []Attribute
// and any map type keyed by string (driver-specific document types included).
func AsRecord(v any) (Record, bool) {
	switch tv := v.(type) {
	case Record:
		return tv, true
	case []Attribute:
		return Record(tv), true
	case map[string]any:
		return RecordFromMap(tv), true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return RecordFromMap(m), true
	}
	return nil, false
}

// AsRecords interprets v as a collection of nested records. Nil elements
// become nil records.
func AsRecords(v any) ([]Record, bool) {
	if rs, ok := v.([]Record); ok {
		return rs, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]Record, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		e := rv.Index(i).Interface()
		if e == nil {
			out = append(out, nil)
			continue
		}
		r, ok := AsRecord(e)
		if !ok {
			return nil, false
		}
		out = append(out, r)
	}
	return out, true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

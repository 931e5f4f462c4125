/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mapping

import (
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cast"
)

var timeType = reflect.TypeOf(time.Time{})

// coerce converts value to type t, widening numbers and converting between
// strings and scalars where needed.
func coerce(value any, t reflect.Type) (any, error) {
	dst := reflect.New(t).Elem()
	if err := assign(dst, value); err != nil {
		return nil, err
	}
	return dst.Interface(), nil
}

// assign stores value into the settable dst, coercing it to dst's type.
func assign(dst reflect.Value, value any) error {
	if value == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	v := reflect.ValueOf(value)
	t := dst.Type()

	if v.Type().AssignableTo(t) {
		dst.Set(v)
		return nil
	}
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			dst.Set(reflect.Zero(t))
			return nil
		}
		return assign(dst, v.Elem().Interface())
	}
	if t.Kind() == reflect.Ptr {
		elem := reflect.New(t.Elem())
		if err := assign(elem.Elem(), value); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}
	if v.Kind() == t.Kind() && v.Type().ConvertibleTo(t) && t.Kind() != reflect.Slice && t.Kind() != reflect.Map {
		dst.Set(v.Convert(t))
		return nil
	}

	switch t.Kind() {
	case reflect.String:
		s, err := cast.ToStringE(value)
		if err != nil {
			return err
		}
		dst.SetString(s)
	case reflect.Bool:
		b, err := cast.ToBoolE(value)
		if err != nil {
			return err
		}
		dst.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if t == reflect.TypeOf(time.Duration(0)) {
			if s, ok := value.(string); ok {
				d, err := time.ParseDuration(s)
				if err != nil {
					return err
				}
				dst.SetInt(int64(d))
				return nil
			}
		}
		n, err := cast.ToInt64E(value)
		if err != nil {
			return err
		}
		if dst.OverflowInt(n) {
			return fmt.Errorf("value %d overflows %s", n, t)
		}
		dst.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := cast.ToUint64E(value)
		if err != nil {
			return err
		}
		if dst.OverflowUint(n) {
			return fmt.Errorf("value %d overflows %s", n, t)
		}
		dst.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(value)
		if err != nil {
			return err
		}
		dst.SetFloat(f)
	case reflect.Slice:
		return assignSlice(dst, v)
	case reflect.Map:
		return assignMap(dst, v)
	case reflect.Struct:
		if t == timeType || t.ConvertibleTo(timeType) {
			tm, err := cast.ToTimeE(value)
			if err != nil {
				return err
			}
			dst.Set(reflect.ValueOf(tm).Convert(t))
			return nil
		}
		if v.Type().ConvertibleTo(t) {
			dst.Set(v.Convert(t))
			return nil
		}
		return fmt.Errorf("cannot convert %T to %s", value, t)
	default:
		return fmt.Errorf("cannot convert %T to %s", value, t)
	}
	return nil
}

func assignSlice(dst reflect.Value, v reflect.Value) error {
	t := dst.Type()
	if t.Elem().Kind() == reflect.Uint8 && v.Kind() == reflect.String {
		dst.SetBytes([]byte(v.String()))
		return nil
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return fmt.Errorf("cannot convert %s to %s", v.Type(), t)
	}
	out := reflect.MakeSlice(t, v.Len(), v.Len())
	for i := 0; i < v.Len(); i++ {
		if err := assign(out.Index(i), v.Index(i).Interface()); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	dst.Set(out)
	return nil
}

func assignMap(dst reflect.Value, v reflect.Value) error {
	t := dst.Type()
	if v.Kind() != reflect.Map {
		return fmt.Errorf("cannot convert %s to %s", v.Type(), t)
	}
	out := reflect.MakeMapWithSize(t, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key := reflect.New(t.Key()).Elem()
		if err := assign(key, iter.Key().Interface()); err != nil {
			return fmt.Errorf("key %v: %w", iter.Key(), err)
		}
		val := reflect.New(t.Elem()).Elem()
		if err := assign(val, iter.Value().Interface()); err != nil {
			return fmt.Errorf("key %v: %w", iter.Key(), err)
		}
		out.SetMapIndex(key, val)
	}
	dst.Set(out)
	return nil
}

// isEmpty reports whether v holds no value: nil, or a nil pointer, slice,
// map or interface.
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// deref follows pointers; a nil pointer yields nil.
func deref(v any) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package converter

import (
	"fmt"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/goccy/go-json"
)

func init() {
	Declare("datetime", DateTimeConverter{})
	Declare("duration", DurationConverter{})
	Declare("json", JSONConverter{})
}

// DateTimeConverter stores strfmt.DateTime and time.Time values as RFC3339 strings.
type DateTimeConverter struct{}

func (DateTimeConverter) ToStorage(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case strfmt.DateTime:
		return v.String(), nil
	case *strfmt.DateTime:
		if v == nil {
			return nil, nil
		}
		return v.String(), nil
	case time.Time:
		return strfmt.DateTime(v).String(), nil
	case string:
		// Already stored form, e.g. a query literal.
		if _, err := strfmt.ParseDateTime(v); err != nil {
			return nil, fmt.Errorf("datetime: %w", err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("datetime: unsupported type %T", value)
	}
}

func (DateTimeConverter) ToEntity(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		dt, err := strfmt.ParseDateTime(v)
		if err != nil {
			return nil, fmt.Errorf("datetime: %w", err)
		}
		return dt, nil
	case strfmt.DateTime:
		return v, nil
	case time.Time:
		return strfmt.DateTime(v), nil
	default:
		return nil, fmt.Errorf("datetime: unsupported stored type %T", value)
	}
}

// DurationConverter stores time.Duration values as strings such as "1h30m0s".
type DurationConverter struct{}

func (DurationConverter) ToStorage(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Duration:
		return v.String(), nil
	case string:
		if _, err := time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("duration: %w", err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("duration: unsupported type %T", value)
	}
}

func (DurationConverter) ToEntity(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("duration: %w", err)
		}
		return d, nil
	case time.Duration:
		return v, nil
	default:
		return nil, fmt.Errorf("duration: unsupported stored type %T", value)
	}
}

// JSONConverter stores any value as its JSON text. ToEntity returns the
// generic decoded form, so it suits map[string]any, []any and any fields.
type JSONConverter struct{}

func (JSONConverter) ToStorage(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	return string(b), nil
}

func (JSONConverter) ToEntity(value any) (any, error) {
	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return nil, fmt.Errorf("json: unsupported stored type %T", value)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	return out, nil
}

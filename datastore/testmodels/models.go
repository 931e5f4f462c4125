/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package testmodels

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/suparena/entitymapper/converter"
)

func init() {
	converter.Declare("money", MoneyConverter{})
}

// Person is a flat entity with a numeric id.
type Person struct {
	ID     int64    `mapping:",id"`
	Name   string   `mapping:"name"`
	Age    int      `mapping:"age"`
	Phones []string `mapping:"phones"`
	Notes  string   `mapping:"-"`
}

// Job is embedded in Worker as a nested record.
type Job struct {
	Description string `mapping:"description"`
	City        string `mapping:"city"`
}

// Worker stores its salary through MoneyConverter under the money attribute.
type Worker struct {
	ID     string `mapping:",id"`
	Name   string `mapping:"name"`
	Job    Job    `mapping:"job,embedded"`
	Salary Money  `mapping:"money,convert=money"`
}

// ZipCode is a sub-entity flattened into Address.
type ZipCode struct {
	Zip      string `mapping:"zip"`
	PlusFour string `mapping:"plusFour"`
}

type Address struct {
	ID      string  `mapping:",id"`
	Street  string  `mapping:"street"`
	City    string  `mapping:"city"`
	ZipCode ZipCode `mapping:"zipCode,flatten"`
}

type Movie struct {
	Title  string   `mapping:"title"`
	Year   int      `mapping:"year"`
	Actors []string `mapping:"actors"`
}

// Director holds a collection of embedded movies.
type Director struct {
	ID     int64   `mapping:",id"`
	Name   string  `mapping:"name"`
	Movies []Movie `mapping:"movies,embedded"`
}

// Timestamps is embedded anonymously; its fields are promoted.
type Timestamps struct {
	CreatedAt time.Time     `mapping:"createdAt,convert=datetime"`
	TTL       time.Duration `mapping:"ttl,convert=duration"`
}

// Session exercises promoted fields, a renamed entity and a json converter.
type Session struct {
	Timestamps
	Token string         `mapping:",id"`
	User  *string        `mapping:"user"`
	Data  map[string]any `mapping:"data,convert=json"`
}

func (Session) EntityName() string { return "sessions" }

// Money is an amount in a currency, stored as "USD 10".
type Money struct {
	Currency string
	Amount   float64
}

func (m Money) String() string {
	return m.Currency + " " + strconv.FormatFloat(m.Amount, 'f', -1, 64)
}

// ParseMoney parses the stored form produced by Money.String.
func ParseMoney(s string) (Money, error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return Money{}, fmt.Errorf("money: invalid value %q", s)
	}
	amount, err := cast.ToFloat64E(parts[1])
	if err != nil {
		return Money{}, fmt.Errorf("money: invalid amount %q: %w", parts[1], err)
	}
	return Money{Currency: parts[0], Amount: amount}, nil
}

// MoneyConverter stores Money as its string form.
type MoneyConverter struct{}

func (MoneyConverter) ToStorage(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case Money:
		return v.String(), nil
	case *Money:
		if v == nil {
			return nil, nil
		}
		return v.String(), nil
	case string:
		m, err := ParseMoney(v)
		if err != nil {
			return nil, err
		}
		return m.String(), nil
	default:
		return nil, fmt.Errorf("money: unsupported type %T", value)
	}
}

func (MoneyConverter) ToEntity(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return ParseMoney(v)
	case Money:
		return v, nil
	default:
		return nil, fmt.Errorf("money: unsupported stored type %T", value)
	}
}

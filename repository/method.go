/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package repository

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/metadata"
	"github.com/suparena/entitymapper/query"
)

// Verb is the action a repository method performs.
type Verb string

const (
	VerbFind   Verb = "FindBy"
	VerbDelete Verb = "DeleteBy"
	VerbExists Verb = "ExistsBy"
	VerbCount  Verb = "CountBy"
)

var verbs = []Verb{VerbFind, VerbDelete, VerbExists, VerbCount}

// Term is one comparison of a compiled method. Terms are combined left to
// right with their connector, the first term has none.
type Term struct {
	Connector query.Operator
	Field     string
	Operator  query.Operator
}

// arity is the number of arguments the term consumes.
func (t Term) arity() int {
	if t.Operator == query.OpBetween {
		return 2
	}
	return 1
}

// Method is a repository method name parsed against the metadata of one
// entity. It is immutable and safe to share.
type Method struct {
	Name   string
	Verb   Verb
	Entity string
	Terms  []Term
	Sorts  []query.Sort
}

// Arity is the number of arguments an invocation must supply.
func (m *Method) Arity() int {
	n := 0
	for _, t := range m.Terms {
		n += t.arity()
	}
	return n
}

// operator suffixes, longest first so GreaterThanEqual wins over GreaterThan.
var suffixes = []struct {
	words []string
	op    query.Operator
}{
	{[]string{"Greater", "Than", "Equal"}, query.OpGte},
	{[]string{"Less", "Than", "Equal"}, query.OpLte},
	{[]string{"Greater", "Than"}, query.OpGt},
	{[]string{"Less", "Than"}, query.OpLt},
	{[]string{"Between"}, query.OpBetween},
	{[]string{"Like"}, query.OpLike},
	{[]string{"In"}, query.OpIn},
	{[]string{"Equals"}, query.OpEq},
}

// Compile parses a method name such as FindByNameAndAgeGreaterThan or
// DeleteByCity. Properties are matched against meta field names, ignoring
// case. Find methods may end with OrderBy<Property>[Asc|Desc], repeated.
func Compile(meta *metadata.EntityMetadata, name string) (*Method, error) {
	if meta == nil {
		return nil, errors.NewValidationError("metadata", "entity metadata is required")
	}
	m := &Method{Name: name, Entity: meta.Name}
	body := ""
	for _, v := range verbs {
		if rest, ok := cutPrefixFold(name, string(v)); ok {
			m.Verb = v
			body = rest
			break
		}
	}
	if m.Verb == "" {
		return nil, errors.NewValidationError("method", fmt.Sprintf("%q must start with FindBy, DeleteBy, ExistsBy or CountBy", name))
	}

	words := splitWords(body)
	if i := indexPair(words, "Order", "By"); i >= 0 {
		if m.Verb != VerbFind {
			return nil, errors.NewValidationError("method", fmt.Sprintf("%q: OrderBy is only allowed on FindBy methods", name))
		}
		sorts, err := parseSorts(meta, name, words[i+2:])
		if err != nil {
			return nil, err
		}
		m.Sorts = sorts
		words = words[:i]
	}
	if len(words) == 0 {
		return nil, errors.NewValidationError("method", fmt.Sprintf("%q names no property", name))
	}

	terms, err := parseTerms(meta, name, words)
	if err != nil {
		return nil, err
	}
	m.Terms = terms
	return m, nil
}

// parseTerms splits on And/Or only where the words collected so far name a
// property, so properties containing those words still resolve.
func parseTerms(meta *metadata.EntityMetadata, name string, words []string) ([]Term, error) {
	var terms []Term
	var connector query.Operator
	var part []string
	for _, w := range words {
		if (w == "And" || w == "Or") && len(part) > 0 {
			if t, ok := parseTerm(meta, part); ok {
				t.Connector = connector
				terms = append(terms, t)
				connector = query.OpAnd
				if w == "Or" {
					connector = query.OpOr
				}
				part = nil
				continue
			}
		}
		part = append(part, w)
	}
	t, ok := parseTerm(meta, part)
	if !ok {
		return nil, errors.NewUnknownFieldError(meta.Name, fmt.Sprintf("%s (in %s)", lowerFirst(strings.Join(part, "")), name))
	}
	t.Connector = connector
	return append(terms, t), nil
}

func parseTerm(meta *metadata.EntityMetadata, words []string) (Term, bool) {
	op := query.OpEq
	for _, s := range suffixes {
		if len(words) > len(s.words) && hasSuffix(words, s.words) {
			if _, ok := meta.Field(lowerFirst(strings.Join(words, ""))); ok {
				break
			}
			op = s.op
			words = words[:len(words)-len(s.words)]
			break
		}
	}
	f, ok := meta.Field(lowerFirst(strings.Join(words, "")))
	if !ok {
		return Term{}, false
	}
	return Term{Field: f.GoName, Operator: op}, true
}

func parseSorts(meta *metadata.EntityMetadata, name string, words []string) ([]query.Sort, error) {
	var sorts []query.Sort
	var part []string
	flush := func(d query.Direction) error {
		if len(part) == 0 {
			return errors.NewValidationError("method", fmt.Sprintf("%q: OrderBy names no property", name))
		}
		f, ok := meta.Field(lowerFirst(strings.Join(part, "")))
		if !ok {
			return errors.NewUnknownFieldError(meta.Name, lowerFirst(strings.Join(part, "")))
		}
		sorts = append(sorts, query.Sort{Attribute: f.GoName, Direction: d})
		part = nil
		return nil
	}
	for _, w := range words {
		switch w {
		case "Asc":
			if err := flush(query.Asc); err != nil {
				return nil, err
			}
		case "Desc":
			if err := flush(query.Desc); err != nil {
				return nil, err
			}
		default:
			part = append(part, w)
		}
	}
	if len(part) > 0 {
		if err := flush(query.Asc); err != nil {
			return nil, err
		}
	}
	if len(sorts) == 0 {
		return nil, errors.NewValidationError("method", fmt.Sprintf("%q: OrderBy names no property", name))
	}
	return sorts, nil
}

// splitWords splits a camel-case identifier into words. Runs of upper-case
// letters stay together ("ID", "URLPath" -> "URL", "Path").
func splitWords(s string) []string {
	runes := []rune(s)
	var words []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := unicode.IsUpper(cur) && !unicode.IsUpper(prev)
		if unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			boundary = true
		}
		if boundary {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	if start < len(runes) {
		words = append(words, string(runes[start:]))
	}
	return words
}

func indexPair(words []string, a, b string) int {
	for i := 0; i+1 < len(words); i++ {
		if words[i] == a && words[i+1] == b {
			return i
		}
	}
	return -1
}

func hasSuffix(words, suffix []string) bool {
	off := len(words) - len(suffix)
	for i, w := range suffix {
		if words[off+i] != w {
			return false
		}
	}
	return true
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	return s[len(prefix):], true
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/query"
)

const backendName = "dynamodb"

// maxInOperands is the DynamoDB limit on the right side of IN.
const maxInOperands = 100

// filterExpression is a rendered condition with its placeholder maps.
type filterExpression struct {
	Expression string
	Names      map[string]string
	Values     map[string]types.AttributeValue
}

// filterBuilder renders a condition tree into a DynamoDB filter expression.
// Attribute names always go through #n placeholders so reserved words such
// as "name" or "year" are safe.
type filterBuilder struct {
	names   map[string]string
	aliases map[string]string
	values  map[string]types.AttributeValue
}

func newFilterBuilder() *filterBuilder {
	return &filterBuilder{
		names:   make(map[string]string),
		aliases: make(map[string]string),
		values:  make(map[string]types.AttributeValue),
	}
}

// renderFilter translates cond. Shapes DynamoDB cannot filter on exactly
// (nested paths, LIKE patterns other than prefix/infix, oversized IN) fail
// with UnsupportedError so the caller can filter in memory instead.
func renderFilter(cond *query.Condition) (*filterExpression, error) {
	b := newFilterBuilder()
	expr, err := b.render(cond)
	if err != nil {
		return nil, err
	}
	return &filterExpression{Expression: expr, Names: b.names, Values: b.values}, nil
}

func (b *filterBuilder) render(c *query.Condition) (string, error) {
	switch c.Operator() {
	case query.OpAnd, query.OpOr:
		children := c.Children()
		parts := make([]string, 0, len(children))
		for _, child := range children {
			p, err := b.render(child)
			if err != nil {
				return "", err
			}
			parts = append(parts, p)
		}
		return "(" + strings.Join(parts, " "+string(c.Operator())+" ") + ")", nil
	case query.OpNot:
		p, err := b.render(c.Children()[0])
		if err != nil {
			return "", err
		}
		return "(NOT " + p + ")", nil
	}

	path, err := b.name(c.Attribute())
	if err != nil {
		return "", err
	}

	switch c.Operator() {
	case query.OpEq:
		return b.compare(path, "=", c.Value())
	case query.OpGt:
		return b.compare(path, ">", c.Value())
	case query.OpGte:
		return b.compare(path, ">=", c.Value())
	case query.OpLt:
		return b.compare(path, "<", c.Value())
	case query.OpLte:
		return b.compare(path, "<=", c.Value())
	case query.OpBetween:
		bounds := c.Values()
		low, err := b.value(bounds[0])
		if err != nil {
			return "", err
		}
		high, err := b.value(bounds[1])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", path, low, high), nil
	case query.OpIn:
		values := c.Values()
		if len(values) == 0 || len(values) > maxInOperands {
			return "", errors.NewUnsupportedError(backendName, fmt.Sprintf("IN with %d operands", len(values)))
		}
		placeholders := make([]string, len(values))
		for i, v := range values {
			p, err := b.value(v)
			if err != nil {
				return "", err
			}
			placeholders[i] = p
		}
		return fmt.Sprintf("%s IN (%s)", path, strings.Join(placeholders, ", ")), nil
	case query.OpLike:
		return b.like(path, c.Value())
	}
	return "", errors.NewUnsupportedError(backendName, "operator "+string(c.Operator()))
}

func (b *filterBuilder) compare(path, op string, v any) (string, error) {
	p, err := b.value(v)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", path, op, p), nil
}

// like maps "abc" to equality, "abc%" to begins_with and "%abc%" to contains.
func (b *filterBuilder) like(path string, v any) (string, error) {
	pattern, ok := v.(string)
	if !ok {
		return "", errors.NewUnsupportedError(backendName, fmt.Sprintf("LIKE on %T", v))
	}
	if strings.Contains(pattern, "_") {
		return "", errors.NewUnsupportedError(backendName, "LIKE pattern "+pattern)
	}
	core := strings.Trim(pattern, "%")
	if strings.Contains(core, "%") {
		return "", errors.NewUnsupportedError(backendName, "LIKE pattern "+pattern)
	}
	leading := strings.HasPrefix(pattern, "%")
	trailing := strings.HasSuffix(pattern, "%") && len(pattern) > 1

	switch {
	case core == "" && pattern != "":
		return fmt.Sprintf("attribute_type(%s, %s)", path, b.raw(&types.AttributeValueMemberS{Value: "S"})), nil
	case !leading && !trailing:
		return b.compare(path, "=", core)
	case !leading && trailing:
		p, err := b.value(core)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("begins_with(%s, %s)", path, p), nil
	case leading && trailing:
		p, err := b.value(core)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("contains(%s, %s)", path, p), nil
	}
	// suffix matches have no DynamoDB function
	return "", errors.NewUnsupportedError(backendName, "LIKE pattern "+pattern)
}

func (b *filterBuilder) name(attribute string) (string, error) {
	if strings.Contains(attribute, ".") {
		return "", errors.NewUnsupportedError(backendName, "nested attribute path "+attribute)
	}
	if alias, ok := b.aliases[attribute]; ok {
		return alias, nil
	}
	alias := fmt.Sprintf("#n%d", len(b.aliases))
	b.aliases[attribute] = alias
	b.names[alias] = attribute
	return alias, nil
}

func (b *filterBuilder) value(v any) (string, error) {
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal filter value: %w", err)
	}
	return b.raw(av), nil
}

func (b *filterBuilder) raw(av types.AttributeValue) string {
	p := fmt.Sprintf(":v%d", len(b.values))
	b.values[p] = av
	return p
}

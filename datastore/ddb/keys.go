/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/storagemodels"
)

// Table layout attributes.
const (
	PartitionKey        = "PK"
	SortKey             = "SK"
	EntityTypeAttribute = "EntityType"
)

// Keys maps table attributes to templates built from record attributes, for
// example {"PK": "USER#{_id}", "SK": "PROFILE", "GSI1PK": "EMAIL#{email}"}.
// PK and SK are required; other entries populate secondary indexes and are
// omitted from an item when one of their macros has no value.
type Keys map[string]string

var macroPattern = regexp.MustCompile(`{([^}]+)}`)

// DefaultKeys stores every entity under "<entity>#<id>" in both PK and SK.
func DefaultKeys(entity, idAttribute string) Keys {
	key := entity + "#{" + idAttribute + "}"
	return Keys{PartitionKey: key, SortKey: key}
}

func (k Keys) validate() error {
	for _, name := range []string{PartitionKey, SortKey} {
		if strings.TrimSpace(k[name]) == "" {
			return errors.NewValidationError(name, "key template is required")
		}
	}
	return nil
}

// expandMacros resolves every template against rec. Macros may use dotted
// paths into embedded records.
func expandMacros(keys Keys, rec storagemodels.Record) (map[string]string, error) {
	res := make(map[string]string, len(keys))
	for fieldName, template := range keys {
		missing := false
		expanded := macroPattern.ReplaceAllStringFunc(template, func(macro string) string {
			// macro is something like "{_id}"
			v, ok := rec.Lookup(strings.Trim(macro, "{}"))
			if !ok {
				missing = true
				return ""
			}
			s, ok, err := macroValue(v)
			if err != nil || !ok {
				missing = true
				return ""
			}
			return s
		})
		if missing {
			if fieldName == PartitionKey || fieldName == SortKey {
				return nil, errors.NewValidationError(fieldName, fmt.Sprintf("cannot expand key template %q", template))
			}
			continue
		}
		res[fieldName] = expanded
	}
	return res, nil
}

// expandID resolves the PK and SK templates from an id alone. It reports
// false when a template needs any attribute other than the id.
func expandID(keys Keys, idAttribute, id string) (map[string]string, bool) {
	expanded := make(map[string]string, 2)
	for _, name := range []string{PartitionKey, SortKey} {
		ok := true
		expanded[name] = macroPattern.ReplaceAllStringFunc(keys[name], func(macro string) string {
			if strings.Trim(macro, "{}") != idAttribute {
				ok = false
			}
			return id
		})
		if !ok {
			return nil, false
		}
	}
	return expanded, true
}

// macroValue renders a scalar the way DynamoDB would store it.
func macroValue(v any) (string, bool, error) {
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return "", false, fmt.Errorf("failed to marshal key value: %w", err)
	}
	switch tv := av.(type) {
	case *types.AttributeValueMemberS:
		return tv.Value, tv.Value != "", nil
	case *types.AttributeValueMemberN:
		return tv.Value, true, nil
	case *types.AttributeValueMemberBOOL:
		return fmt.Sprintf("%v", tv.Value), true, nil
	default:
		// NULL, binary, sets, lists and maps cannot be part of a key
		return "", false, nil
	}
}

// keyOf builds the primary key from an expanded key map.
func keyOf(expanded map[string]string) (map[string]types.AttributeValue, error) {
	pk, okPK := expanded[PartitionKey]
	sk, okSK := expanded[SortKey]
	if !okPK || !okSK || pk == "" || sk == "" {
		return nil, errors.NewValidationError("key", "expanded keys missing valid PK or SK")
	}
	return map[string]types.AttributeValue{
		PartitionKey: &types.AttributeValueMemberS{Value: pk},
		SortKey:      &types.AttributeValueMemberS{Value: sk},
	}, nil
}

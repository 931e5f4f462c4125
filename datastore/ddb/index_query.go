/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-openapi/strfmt"

	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/storagemodels"
)

// IndexConfig holds the key attribute names of a secondary index.
type IndexConfig struct {
	// IndexName is the GSI name in DynamoDB (e.g., "GSI1")
	IndexName string
	// PartitionKeyName is the partition key attribute of the index (e.g., "GSI1PK")
	PartitionKeyName string
	// SortKeyName is the sort key attribute of the index (e.g., "GSI1SK")
	SortKeyName string
}

// DefaultIndexConfigs holds the indexes known without registration.
var DefaultIndexConfigs = map[string]IndexConfig{
	"GSI1": {
		IndexName:        "GSI1",
		PartitionKeyName: "GSI1PK",
		SortKeyName:      "GSI1SK",
	},
}

// GetIndexConfig returns the configuration of indexName.
func GetIndexConfig(indexName string) (IndexConfig, bool) {
	cfg, ok := DefaultIndexConfigs[indexName]
	return cfg, ok
}

// IndexQuery is a key-condition query against a secondary index. Values
// passed to the key methods fill the single macro of the matching template
// in the entity Keys, so "EMAIL#{email}" with "a@b.c" becomes "EMAIL#a@b.c".
type IndexQuery struct {
	store      *DynamodbDataStore
	entity     string
	index      IndexConfig
	pkValue    string
	skValue    string
	skValue2   string
	skOperator string // "=", "begins_with", ">", "<", ">=", "<=", "BETWEEN"
	limit      int32
	forward    *bool
	err        error
}

// QueryIndex starts a query on indexName for entity records.
func (d *DynamodbDataStore) QueryIndex(entity, indexName string) *IndexQuery {
	q := &IndexQuery{store: d, entity: entity}
	cfg, ok := GetIndexConfig(indexName)
	if !ok {
		q.err = errors.NewNotFoundError("index", indexName)
	}
	q.index = cfg
	return q
}

// WithPartitionKey sets the index partition key value
func (q *IndexQuery) WithPartitionKey(value string) *IndexQuery {
	q.pkValue = value
	return q
}

// WithSortKey matches the sort key exactly
func (q *IndexQuery) WithSortKey(value string) *IndexQuery {
	return q.sortKey("=", value)
}

// WithSortKeyPrefix matches sort keys starting with prefix
func (q *IndexQuery) WithSortKeyPrefix(prefix string) *IndexQuery {
	return q.sortKey("begins_with", prefix)
}

// WithSortKeyGreaterThan matches sort keys after value
func (q *IndexQuery) WithSortKeyGreaterThan(value string) *IndexQuery {
	return q.sortKey(">", value)
}

// WithSortKeyLessThan matches sort keys before value
func (q *IndexQuery) WithSortKeyLessThan(value string) *IndexQuery {
	return q.sortKey("<", value)
}

// WithSortKeyBetween matches sort keys in [start, end]
func (q *IndexQuery) WithSortKeyBetween(start, end string) *IndexQuery {
	q.skValue2 = end
	return q.sortKey("BETWEEN", start)
}

func (q *IndexQuery) sortKey(op, value string) *IndexQuery {
	q.skOperator = op
	q.skValue = value
	return q
}

// After matches sort keys holding a timestamp later than t.
func (q *IndexQuery) After(t time.Time) *IndexQuery {
	return q.WithSortKeyGreaterThan(strfmt.DateTime(t).String())
}

// Before matches sort keys holding a timestamp earlier than t.
func (q *IndexQuery) Before(t time.Time) *IndexQuery {
	return q.WithSortKeyLessThan(strfmt.DateTime(t).String())
}

// Between matches sort keys holding a timestamp in [start, end].
func (q *IndexQuery) Between(start, end time.Time) *IndexQuery {
	return q.WithSortKeyBetween(strfmt.DateTime(start).String(), strfmt.DateTime(end).String())
}

// InLast matches timestamps within d of now.
func (q *IndexQuery) InLast(d time.Duration) *IndexQuery {
	return q.After(time.Now().Add(-d))
}

// WithLimit caps the number of records returned.
func (q *IndexQuery) WithLimit(limit int32) *IndexQuery {
	q.limit = limit
	return q
}

// Latest returns results in descending sort key order.
func (q *IndexQuery) Latest() *IndexQuery {
	q.forward = aws.Bool(false)
	return q
}

// Oldest returns results in ascending sort key order.
func (q *IndexQuery) Oldest() *IndexQuery {
	q.forward = aws.Bool(true)
	return q
}

// Build constructs the QueryInput.
func (q *IndexQuery) Build() (*sdk.QueryInput, error) {
	if q.err != nil {
		return nil, q.err
	}
	if q.pkValue == "" {
		return nil, errors.NewValidationError("partitionKey", "index partition key value is required")
	}

	keys := q.store.KeysFor(q.entity)
	pkTemplate, ok := keys[q.index.PartitionKeyName]
	if !ok {
		return nil, errors.NewNotFoundError("key template", q.index.PartitionKeyName)
	}
	pk, err := fillTemplate(pkTemplate, q.pkValue)
	if err != nil {
		return nil, err
	}

	names := map[string]string{"#pk": q.index.PartitionKeyName, "#et": EntityTypeAttribute}
	values := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: pk},
		":et": &types.AttributeValueMemberS{Value: q.entity},
	}
	keyConditions := []string{"#pk = :pk"}

	if q.skOperator != "" {
		skTemplate, ok := keys[q.index.SortKeyName]
		if !ok {
			return nil, errors.NewNotFoundError("key template", q.index.SortKeyName)
		}
		sk, err := fillTemplate(skTemplate, q.skValue)
		if err != nil {
			return nil, err
		}
		names["#sk"] = q.index.SortKeyName
		values[":sk"] = &types.AttributeValueMemberS{Value: sk}

		switch q.skOperator {
		case "begins_with":
			keyConditions = append(keyConditions, "begins_with(#sk, :sk)")
		case "BETWEEN":
			sk2, err := fillTemplate(skTemplate, q.skValue2)
			if err != nil {
				return nil, err
			}
			values[":sk2"] = &types.AttributeValueMemberS{Value: sk2}
			keyConditions = append(keyConditions, "#sk BETWEEN :sk AND :sk2")
		default:
			keyConditions = append(keyConditions, fmt.Sprintf("#sk %s :sk", q.skOperator))
		}
	}

	input := &sdk.QueryInput{
		TableName:                 &q.store.tableName,
		IndexName:                 aws.String(q.index.IndexName),
		KeyConditionExpression:    aws.String(strings.Join(keyConditions, " AND ")),
		FilterExpression:          aws.String("#et = :et"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ScanIndexForward:          q.forward,
	}
	return input, nil
}

// Execute runs the query across pages and returns the decoded records.
func (q *IndexQuery) Execute(ctx context.Context) ([]storagemodels.Record, error) {
	input, err := q.Build()
	if err != nil {
		return nil, err
	}

	var records []storagemodels.Record
	paginator := sdk.NewQueryPaginator(q.store.client, input)
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query error: %w", err)
		}
		for _, item := range out.Items {
			rec, err := q.store.toRecord(q.entity, item)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
			if q.limit > 0 && int32(len(records)) >= q.limit {
				return records, nil
			}
		}
	}
	return records, nil
}

// fillTemplate substitutes value for the single macro of template. Static
// templates are returned unchanged.
func fillTemplate(template, value string) (string, error) {
	switch n := len(macroPattern.FindAllStringIndex(template, -1)); n {
	case 0:
		return template, nil
	case 1:
		return macroPattern.ReplaceAllLiteralString(template, value), nil
	default:
		return "", errors.NewValidationError("template", fmt.Sprintf("%q has %d macros", template, n))
	}
}

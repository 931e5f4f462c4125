/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeClient is a single-table, in-memory stand-in for DynamoDB. Scan only
// honours the entity type filter; the store re-matches records itself.
type fakeClient struct {
	mu        sync.Mutex
	items     map[string]map[string]types.AttributeValue
	scans     []*sdk.ScanInput
	scanErrs  []error
	scanCalls int
}

func newFakeClient() *fakeClient {
	return &fakeClient{items: make(map[string]map[string]types.AttributeValue)}
}

func itemKey(key map[string]types.AttributeValue) string {
	return str(key[PartitionKey]) + "|" + str(key[SortKey])
}

func str(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (f *fakeClient) GetItem(_ context.Context, in *sdk.GetItemInput, _ ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &sdk.GetItemOutput{Item: f.items[itemKey(in.Key)]}, nil
}

func (f *fakeClient) PutItem(_ context.Context, in *sdk.PutItemInput, _ ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := itemKey(in.Item)
	_, exists := f.items[k]
	switch aws.ToString(in.ConditionExpression) {
	case "attribute_not_exists(#pk)":
		if exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")}
		}
	case "attribute_exists(#pk)":
		if !exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("missing")}
		}
	}
	f.items[k] = in.Item
	return &sdk.PutItemOutput{}, nil
}

func (f *fakeClient) DeleteItem(_ context.Context, in *sdk.DeleteItemInput, _ ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, itemKey(in.Key))
	return &sdk.DeleteItemOutput{}, nil
}

func (f *fakeClient) Query(_ context.Context, in *sdk.QueryInput, _ ...func(*sdk.Options)) (*sdk.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	attr := in.ExpressionAttributeNames["#pk"]
	pk := str(in.ExpressionAttributeValues[":pk"])
	et := str(in.ExpressionAttributeValues[":et"])
	out := &sdk.QueryOutput{}
	for _, k := range f.sortedKeys() {
		item := f.items[k]
		if str(item[attr]) == pk && str(item[EntityTypeAttribute]) == et {
			out.Items = append(out.Items, item)
		}
	}
	return out, nil
}

func (f *fakeClient) Scan(_ context.Context, in *sdk.ScanInput, _ ...func(*sdk.Options)) (*sdk.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans = append(f.scans, in)
	f.scanCalls++
	if len(f.scanErrs) > 0 {
		err := f.scanErrs[0]
		f.scanErrs = f.scanErrs[1:]
		return nil, err
	}

	et := str(in.ExpressionAttributeValues[":et"])
	start := ""
	if in.ExclusiveStartKey != nil {
		start = itemKey(in.ExclusiveStartKey)
	}
	out := &sdk.ScanOutput{}
	for _, k := range f.sortedKeys() {
		if start != "" && k <= start {
			continue
		}
		if in.Limit != nil && int32(len(out.Items)) == *in.Limit {
			last := out.Items[len(out.Items)-1]
			out.LastEvaluatedKey = map[string]types.AttributeValue{
				PartitionKey: last[PartitionKey],
				SortKey:      last[SortKey],
			}
			break
		}
		item := f.items[k]
		if et == "" || str(item[EntityTypeAttribute]) == et {
			out.Items = append(out.Items, item)
		}
	}
	return out, nil
}

func (f *fakeClient) sortedKeys() []string {
	keys := make([]string, 0, len(f.items))
	for k := range f.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (f *fakeClient) lastScan() *sdk.ScanInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.scans) == 0 {
		return nil
	}
	return f.scans[len(f.scans)-1]
}

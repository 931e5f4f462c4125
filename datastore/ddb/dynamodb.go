/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/suparena/entitymapper/datastore"
	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/query"
	"github.com/suparena/entitymapper/storagemodels"
)

// API is the subset of the DynamoDB client the store uses.
type API interface {
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	Query(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error)
	Scan(ctx context.Context, params *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error)
}

// DynamodbDataStore implements datastore.DataStore on a single DynamoDB
// table. Every entity shares the table; items carry the entity name in
// EntityType and their primary key is built from per-entity Keys.
type DynamodbDataStore struct {
	client      API
	tableName   string
	idAttribute string
	keys        sync.Map // entity name -> Keys
	logger      *zap.Logger
}

var (
	_ datastore.DataStore = (*DynamodbDataStore)(nil)
	_ datastore.Streamer  = (*DynamodbDataStore)(nil)
)

// Option configures a DynamodbDataStore.
type Option func(*DynamodbDataStore)

// WithIDAttribute sets the record attribute holding the id.
func WithIDAttribute(name string) Option {
	return func(d *DynamodbDataStore) {
		if name != "" {
			d.idAttribute = name
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *DynamodbDataStore) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// ClientConfig holds what is needed to reach DynamoDB. Empty credentials
// fall back to the default AWS credential chain; Endpoint targets DynamoDB
// Local or another compatible service.
type ClientConfig struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string
}

// NewDynamoDBClient initializes a DynamoDB client from cfg.
func NewDynamoDBClient(ctx context.Context, cfg ClientConfig, logger *zap.Logger) (*sdk.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := sdk.NewFromConfig(awsCfg, func(o *sdk.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	logger.Info("dynamodb client initialized",
		zap.String("region", cfg.Region),
		zap.String("endpoint", cfg.Endpoint))
	return client, nil
}

// New creates a store over an existing client.
func New(client API, tableName string, opts ...Option) (*DynamodbDataStore, error) {
	if client == nil {
		return nil, errors.NewValidationError("client", "dynamodb client is required")
	}
	if tableName == "" {
		return nil, errors.NewValidationError("tableName", "table name is required")
	}
	d := &DynamodbDataStore{
		client:      client,
		tableName:   tableName,
		idAttribute: datastore.DefaultIDAttribute,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// NewDynamodbDataStore builds the client from cfg and wraps it in a store.
func NewDynamodbDataStore(ctx context.Context, cfg ClientConfig, tableName string, opts ...Option) (*DynamodbDataStore, error) {
	defaults := &DynamodbDataStore{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(defaults)
	}
	client, err := NewDynamoDBClient(ctx, cfg, defaults.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create DynamoDB client: %w", err)
	}
	return New(client, tableName, opts...)
}

// TableName returns the backing table.
func (d *DynamodbDataStore) TableName() string { return d.tableName }

// RegisterKeys sets the key templates of entity, replacing DefaultKeys.
func (d *DynamodbDataStore) RegisterKeys(entity string, keys Keys) error {
	if entity == "" {
		return errors.NewValidationError("entity", "entity name is required")
	}
	if err := keys.validate(); err != nil {
		return err
	}
	cp := make(Keys, len(keys))
	for k, v := range keys {
		cp[k] = v
	}
	d.keys.Store(entity, cp)
	return nil
}

// KeysFor returns the key templates used for entity.
func (d *DynamodbDataStore) KeysFor(entity string) Keys {
	if k, ok := d.keys.Load(entity); ok {
		return k.(Keys)
	}
	return DefaultKeys(entity, d.idAttribute)
}

// Insert puts rec unless an item with the same key exists.
func (d *DynamodbDataStore) Insert(ctx context.Context, entity string, rec storagemodels.Record) error {
	err := d.put(ctx, entity, rec, "attribute_not_exists(#pk)")
	var cfe *types.ConditionalCheckFailedException
	if stderrors.As(err, &cfe) {
		id, _ := datastore.IDOf(rec, d.idAttribute)
		return errors.NewAlreadyExistsError(entity, id)
	}
	return err
}

// Update replaces the item with the same key; it must already exist.
func (d *DynamodbDataStore) Update(ctx context.Context, entity string, rec storagemodels.Record) error {
	err := d.put(ctx, entity, rec, "attribute_exists(#pk)")
	var cfe *types.ConditionalCheckFailedException
	if stderrors.As(err, &cfe) {
		id, _ := datastore.IDOf(rec, d.idAttribute)
		return errors.NewNotFoundError(entity, id)
	}
	return err
}

func (d *DynamodbDataStore) put(ctx context.Context, entity string, rec storagemodels.Record, condition string) error {
	if _, err := datastore.IDOf(rec, d.idAttribute); err != nil {
		return err
	}
	item, err := d.toItem(entity, rec)
	if err != nil {
		return err
	}
	_, err = d.client.PutItem(ctx, &sdk.PutItemInput{
		TableName:                &d.tableName,
		Item:                     item,
		ConditionExpression:      aws.String(condition),
		ExpressionAttributeNames: map[string]string{"#pk": PartitionKey},
	})
	if err != nil {
		return fmt.Errorf("PutItem failed: %w", err)
	}
	return nil
}

// Select returns the records of q's entity matching its condition. Lookups
// pinned to ids use GetItem; everything else scans the table filtered by
// entity type. Ordering, paging and projection are applied in memory.
func (d *DynamodbDataStore) Select(ctx context.Context, q *query.Query) ([]storagemodels.Record, error) {
	if q == nil {
		return nil, errors.NewValidationError("query", "query is required")
	}
	records, err := d.find(ctx, q)
	if err != nil {
		return nil, err
	}
	return datastore.Apply(q, records), nil
}

// Delete removes every item matching q.
func (d *DynamodbDataStore) Delete(ctx context.Context, q *query.Query) error {
	if q == nil {
		return errors.NewValidationError("query", "query is required")
	}
	records, err := d.find(ctx, q)
	if err != nil {
		return err
	}
	for _, rec := range records {
		expanded, err := expandMacros(d.KeysFor(q.Entity()), rec)
		if err != nil {
			return err
		}
		key, err := keyOf(expanded)
		if err != nil {
			return err
		}
		if _, err := d.client.DeleteItem(ctx, &sdk.DeleteItemInput{
			TableName: &d.tableName,
			Key:       key,
		}); err != nil {
			return fmt.Errorf("failed to delete item in DynamoDB: %w", err)
		}
	}
	d.logger.Debug("records deleted", zap.String("entity", q.Entity()), zap.Int("count", len(records)))
	return nil
}

func (d *DynamodbDataStore) find(ctx context.Context, q *query.Query) ([]storagemodels.Record, error) {
	cond, _ := q.Condition()
	if ids, ok := datastore.IDsOf(cond, d.idAttribute); ok {
		if records, ok, err := d.getByIDs(ctx, q.Entity(), ids); ok || err != nil {
			return records, err
		}
	}
	return d.scan(ctx, q.Entity(), cond)
}

// getByIDs fetches items by primary key. It reports false when the key
// templates need more than the id.
func (d *DynamodbDataStore) getByIDs(ctx context.Context, entity string, ids []string) ([]storagemodels.Record, bool, error) {
	keys := d.KeysFor(entity)
	records := make([]storagemodels.Record, 0, len(ids))
	for _, id := range ids {
		expanded, ok := expandID(keys, d.idAttribute, id)
		if !ok {
			return nil, false, nil
		}
		key, err := keyOf(expanded)
		if err != nil {
			return nil, true, err
		}
		out, err := d.client.GetItem(ctx, &sdk.GetItemInput{
			TableName: &d.tableName,
			Key:       key,
		})
		if err != nil {
			return nil, true, fmt.Errorf("GetItem error: %w", err)
		}
		if out.Item == nil {
			continue
		}
		rec, err := d.toRecord(entity, out.Item)
		if err != nil {
			return nil, true, err
		}
		records = append(records, rec)
	}
	return records, true, nil
}

func (d *DynamodbDataStore) scan(ctx context.Context, entity string, cond *query.Condition) ([]storagemodels.Record, error) {
	input := d.scanInput(entity, cond)
	paginator := sdk.NewScanPaginator(d.client, input)

	var records []storagemodels.Record
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		for _, item := range out.Items {
			rec, err := d.toRecord(entity, item)
			if err != nil {
				return nil, err
			}
			ok, err := datastore.Match(cond, rec)
			if err != nil {
				return nil, err
			}
			if ok {
				records = append(records, rec)
			}
		}
	}
	return records, nil
}

// scanInput filters on the entity type and, when it can be expressed, on
// cond. Records are matched again in memory either way.
func (d *DynamodbDataStore) scanInput(entity string, cond *query.Condition) *sdk.ScanInput {
	input := &sdk.ScanInput{
		TableName:        &d.tableName,
		FilterExpression: aws.String("#et = :et"),
		ExpressionAttributeNames: map[string]string{
			"#et": EntityTypeAttribute,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":et": &types.AttributeValueMemberS{Value: entity},
		},
	}
	if cond == nil {
		return input
	}
	filter, err := renderFilter(cond)
	if err != nil {
		d.logger.Debug("condition filtered in memory", zap.String("entity", entity), zap.Error(err))
		return input
	}
	input.FilterExpression = aws.String("#et = :et AND " + filter.Expression)
	for k, v := range filter.Names {
		input.ExpressionAttributeNames[k] = v
	}
	for k, v := range filter.Values {
		input.ExpressionAttributeValues[k] = v
	}
	return input
}

// toItem marshals rec and adds the expanded keys and the entity type.
func (d *DynamodbDataStore) toItem(entity string, rec storagemodels.Record) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(rec.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	expanded, err := expandMacros(d.KeysFor(entity), rec)
	if err != nil {
		return nil, err
	}
	for k, v := range expanded {
		item[k] = &types.AttributeValueMemberS{Value: v}
	}
	item[EntityTypeAttribute] = &types.AttributeValueMemberS{Value: entity}
	return item, nil
}

// toRecord strips table attributes and decodes the rest of item.
func (d *DynamodbDataStore) toRecord(entity string, item map[string]types.AttributeValue) (storagemodels.Record, error) {
	attrs := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		attrs[k] = v
	}
	delete(attrs, EntityTypeAttribute)
	for k := range d.KeysFor(entity) {
		delete(attrs, k)
	}

	var m map[string]any
	if err := attributevalue.UnmarshalMap(attrs, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return storagemodels.RecordFromMap(m), nil
}

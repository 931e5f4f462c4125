/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package kv

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/suparena/entitymapper/datastore"
	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/query"
	"github.com/suparena/entitymapper/storagemodels"
)

// DefaultPrefix is prepended to every key the store writes.
const DefaultPrefix = "entitymapper:"

// RedisDataStore keeps one JSON document per record under
// "<prefix><entity>:<id>". Conditions on the id resolve to direct key reads;
// anything else scans the entity's keys and matches in memory.
type RedisDataStore struct {
	client      *redis.Client
	prefix      string
	idAttribute string
	ttl         time.Duration
	logger      *zap.Logger
}

var _ datastore.DataStore = (*RedisDataStore)(nil)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	// Addr is the Redis server address (host:port)
	Addr string
	// Password is the Redis password (empty if no auth)
	Password string
	// DB is the Redis database number
	DB int
	// KeyPrefix is the prefix for all record keys
	KeyPrefix string
}

// DefaultRedisConfig returns a configuration for a local server.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: DefaultPrefix,
	}
}

// Option configures a RedisDataStore.
type Option func(*RedisDataStore)

// WithIDAttribute sets the record attribute holding the id.
func WithIDAttribute(name string) Option {
	return func(r *RedisDataStore) {
		if name != "" {
			r.idAttribute = name
		}
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(r *RedisDataStore) {
		r.prefix = prefix
	}
}

// WithTTL expires every written record after ttl. Zero keeps records forever.
func WithTTL(ttl time.Duration) Option {
	return func(r *RedisDataStore) {
		r.ttl = ttl
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *RedisDataStore) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRedisDataStoreWithConfig connects to Redis and checks the connection.
func NewRedisDataStoreWithConfig(ctx context.Context, config RedisConfig, opts ...Option) (*RedisDataStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.Addr, err)
	}

	if config.KeyPrefix != "" {
		opts = append([]Option{WithPrefix(config.KeyPrefix)}, opts...)
	}
	store := NewRedisDataStoreFromClient(client, opts...)
	store.logger.Info("redis datastore connected", zap.String("addr", config.Addr), zap.Int("db", config.DB))
	return store, nil
}

// NewRedisDataStoreFromClient creates a store over an existing client.
func NewRedisDataStoreFromClient(client *redis.Client, opts ...Option) *RedisDataStore {
	r := &RedisDataStore{
		client:      client,
		prefix:      DefaultPrefix,
		idAttribute: datastore.DefaultIDAttribute,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Insert stores rec unless its id is taken.
func (r *RedisDataStore) Insert(ctx context.Context, entity string, rec storagemodels.Record) error {
	id, value, err := r.encode(rec)
	if err != nil {
		return err
	}
	ok, err := r.client.SetNX(ctx, r.key(entity, id), value, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis SETNX failed: %w", err)
	}
	if !ok {
		return errors.NewAlreadyExistsError(entity, id)
	}
	return nil
}

// Update replaces the record with the same id; it must already exist.
func (r *RedisDataStore) Update(ctx context.Context, entity string, rec storagemodels.Record) error {
	id, value, err := r.encode(rec)
	if err != nil {
		return err
	}
	ok, err := r.client.SetXX(ctx, r.key(entity, id), value, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis SETXX failed: %w", err)
	}
	if !ok {
		return errors.NewNotFoundError(entity, id)
	}
	return nil
}

// Select returns the records matching q.
func (r *RedisDataStore) Select(ctx context.Context, q *query.Query) ([]storagemodels.Record, error) {
	if q == nil {
		return nil, errors.NewValidationError("query", "query is required")
	}
	records, _, err := r.find(ctx, q)
	if err != nil {
		return nil, err
	}
	return datastore.Apply(q, records), nil
}

// Delete removes the records matching q.
func (r *RedisDataStore) Delete(ctx context.Context, q *query.Query) error {
	if q == nil {
		return errors.NewValidationError("query", "query is required")
	}
	_, keys, err := r.find(ctx, q)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis DEL failed: %w", err)
	}
	r.logger.Debug("records deleted", zap.String("entity", q.Entity()), zap.Int("count", len(keys)))
	return nil
}

// Close closes the Redis connection
func (r *RedisDataStore) Close() error {
	return r.client.Close()
}

// find returns the matching records with their keys.
func (r *RedisDataStore) find(ctx context.Context, q *query.Query) ([]storagemodels.Record, []string, error) {
	cond, _ := q.Condition()

	var keys []string
	if ids, ok := datastore.IDsOf(cond, r.idAttribute); ok {
		for _, id := range ids {
			keys = append(keys, r.key(q.Entity(), id))
		}
	} else {
		scanned, err := r.scanKeys(ctx, q.Entity())
		if err != nil {
			return nil, nil, err
		}
		keys = scanned
	}
	if len(keys) == 0 {
		return nil, nil, nil
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("redis MGET failed: %w", err)
	}

	var records []storagemodels.Record
	var matchedKeys []string
	for i, v := range values {
		if v == nil {
			// missing id or expired between SCAN and MGET
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected redis value %T for %s", v, keys[i])
		}
		rec, err := decode(s)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to decode %s: %w", keys[i], err)
		}
		ok, err = datastore.Match(cond, rec)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			records = append(records, rec)
			matchedKeys = append(matchedKeys, keys[i])
		}
	}
	return records, matchedKeys, nil
}

func (r *RedisDataStore) scanKeys(ctx context.Context, entity string) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, r.key(entity, "*"), 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil && !stderrors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis SCAN failed: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *RedisDataStore) key(entity, id string) string {
	return r.prefix + entity + ":" + id
}

func (r *RedisDataStore) encode(rec storagemodels.Record) (string, []byte, error) {
	id, err := datastore.IDOf(rec, r.idAttribute)
	if err != nil {
		return "", nil, err
	}
	if strings.ContainsAny(id, "*?[") {
		return "", nil, errors.NewValidationError(r.idAttribute, "id contains key pattern characters")
	}
	value, err := json.Marshal(rec.Map())
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return id, value, nil
}

func decode(s string) (storagemodels.Record, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return storagemodels.RecordFromMap(m), nil
}

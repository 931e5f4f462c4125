/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitymapper

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/suparena/entitymapper/config"
	"github.com/suparena/entitymapper/converter"
	"github.com/suparena/entitymapper/datastore"
	"github.com/suparena/entitymapper/datastore/ddb"
	"github.com/suparena/entitymapper/datastore/document"
	"github.com/suparena/entitymapper/datastore/kv"
	"github.com/suparena/entitymapper/mapping"
	"github.com/suparena/entitymapper/metadata"
	"github.com/suparena/entitymapper/repository"
	"github.com/suparena/entitymapper/storagemodels"
)

// Datastore keys used by Connect.
const (
	DynamoDBStore = "dynamodb"
	RedisStore    = "redis"
	MongoStore    = "mongo"
)

// Mapper wires the metadata registry, the attribute converter registry, the
// entity converter and the query mapper together, and keeps the datastores
// and repositories built on them. It is safe for concurrent use.
type Mapper struct {
	meta       *metadata.Registry
	converters *converter.Registry
	conv       *mapping.EntityConverter
	queries    *mapping.QueryMapper
	stores     Storage
	repos      *MultiTypeRepositories
	idAttr     string
	logger     *zap.Logger
}

// Option configures a Mapper.
type Option func(*settings)

type settings struct {
	idAttribute string
	strict      bool
	entities    []any
	logger      *zap.Logger
}

// WithIDAttribute sets the record attribute id fields are stored under.
func WithIDAttribute(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.idAttribute = name
		}
	}
}

// WithStrictAttributes makes conversions into entities fail on unknown
// attributes.
func WithStrictAttributes(strict bool) Option {
	return func(s *settings) { s.strict = strict }
}

// WithEntities discovers the metadata of the given types (values or
// reflect.Types) up front.
func WithEntities(types ...any) Option {
	return func(s *settings) { s.entities = append(s.entities, types...) }
}

// WithLogger sets the logger shared by all components.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds a Mapper.
func New(opts ...Option) (*Mapper, error) {
	s := settings{idAttribute: metadata.DefaultIDAttribute, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&s)
	}

	meta := metadata.NewRegistry(metadata.WithIDAttribute(s.idAttribute), metadata.WithLogger(s.logger))
	if err := meta.Load(s.entities...); err != nil {
		return nil, err
	}
	converters := converter.NewRegistry(converter.WithLogger(s.logger))
	convOpts := []mapping.Option{mapping.WithLogger(s.logger)}
	if s.strict {
		convOpts = append(convOpts, mapping.WithStrictAttributes())
	}
	conv := mapping.NewEntityConverter(meta, converters, convOpts...)

	return &Mapper{
		meta:       meta,
		converters: converters,
		conv:       conv,
		queries:    mapping.NewQueryMapper(conv),
		stores:     NewStorageManager(),
		repos:      NewMultiTypeRepositories(),
		idAttr:     s.idAttribute,
		logger:     s.logger,
	}, nil
}

// NewFromConfig builds a Mapper from the mapping section of cfg. Options
// given after cfg take precedence.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Mapper, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := []Option{
		WithIDAttribute(cfg.Mapping.IDAttribute),
		WithStrictAttributes(cfg.Mapping.StrictAttributes),
	}
	return New(append(base, opts...)...)
}

// Metadata returns the entity metadata registry.
func (m *Mapper) Metadata() *metadata.Registry { return m.meta }

// Converters returns the attribute converter registry.
func (m *Mapper) Converters() *converter.Registry { return m.converters }

// EntityConverter returns the entity converter.
func (m *Mapper) EntityConverter() *mapping.EntityConverter { return m.conv }

// Queries returns the query mapper.
func (m *Mapper) Queries() *mapping.QueryMapper { return m.queries }

// Storage returns the datastore registry.
func (m *Mapper) Storage() Storage { return m.stores }

// Repositories returns the repository registry.
func (m *Mapper) Repositories() *MultiTypeRepositories { return m.repos }

// ToRecord converts an entity into its record.
func (m *Mapper) ToRecord(entity any) (storagemodels.Record, error) {
	return m.conv.ToRecord(entity)
}

// ToEntity converts a record into a new instance of t.
func (m *Mapper) ToEntity(t reflect.Type, rec storagemodels.Record) (any, error) {
	return m.conv.ToEntity(t, rec)
}

// SelectFrom starts a select over entity keyed by field names.
func (m *Mapper) SelectFrom(entity any, fields ...string) *mapping.SelectQuery {
	return m.queries.SelectFrom(entity, fields...)
}

// DeleteFrom starts a delete over entity keyed by field names.
func (m *Mapper) DeleteFrom(entity any) *mapping.DeleteQuery {
	return m.queries.DeleteFrom(entity)
}

// RepositoryFor returns the repository of T over the datastore registered
// under storeKey, creating and registering it on first use.
func RepositoryFor[T any](m *Mapper, storeKey string, opts ...repository.Option) (*repository.Repository[T], error) {
	if repo, err := GetRepository[T](m.repos, storeKey); err == nil {
		return repo, nil
	}
	ds, err := m.stores.GetDataStore(storeKey)
	if err != nil {
		return nil, err
	}
	if len(opts) == 0 {
		opts = []repository.Option{repository.WithLogger(m.logger)}
	}
	repo, err := repository.New[T](ds, m.conv, opts...)
	if err != nil {
		return nil, err
	}
	if err := RegisterRepository(m.repos, storeKey, repo); err != nil {
		// lost a race with another caller
		return GetRepository[T](m.repos, storeKey)
	}
	return repo, nil
}

// Connect opens every backend enabled in cfg and registers it under
// DynamoDBStore, RedisStore or MongoStore. Backends use the mapper's id
// attribute.
func (m *Mapper) Connect(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return nil
	}
	if cfg.DynamoDB.Enabled() {
		store, err := ddb.NewDynamodbDataStore(ctx, ddb.ClientConfig{
			AccessKey: cfg.DynamoDB.AccessKey,
			SecretKey: cfg.DynamoDB.SecretKey,
			Region:    cfg.DynamoDB.Region,
			Endpoint:  cfg.DynamoDB.Endpoint,
		}, cfg.DynamoDB.Table, ddb.WithIDAttribute(m.idAttr), ddb.WithLogger(m.logger))
		if err != nil {
			return fmt.Errorf("connect dynamodb: %w", err)
		}
		if err := m.register(DynamoDBStore, store); err != nil {
			return err
		}
	}
	if cfg.Redis.Enabled() {
		store, err := kv.NewRedisDataStoreWithConfig(ctx, kv.RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.Prefix,
		}, kv.WithIDAttribute(m.idAttr), kv.WithLogger(m.logger))
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		if err := m.register(RedisStore, store); err != nil {
			return err
		}
	}
	if cfg.Mongo.Enabled() {
		store, err := document.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database,
			document.WithIDAttribute(m.idAttr), document.WithLogger(m.logger))
		if err != nil {
			return fmt.Errorf("connect mongodb: %w", err)
		}
		if err := m.register(MongoStore, store); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mapper) register(key string, ds datastore.DataStore) error {
	if err := m.stores.RegisterDataStore(key, ds); err != nil {
		return err
	}
	m.logger.Info("datastore registered", zap.String("key", key))
	return nil
}

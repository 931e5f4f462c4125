/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/suparena/entitymapper/errors"
)

// EnvPrefix prefixes every environment variable read by Load, for example
// ENTITYMAPPER_DYNAMODB_TABLE.
const EnvPrefix = "ENTITYMAPPER"

// FileName is the configuration file name searched for, without extension.
const FileName = "entitymapper"

// Config is the resolved entitymapper configuration.
type Config struct {
	Mapping  MappingConfig  `mapstructure:"mapping" yaml:"mapping"`
	DynamoDB DynamoDBConfig `mapstructure:"dynamodb" yaml:"dynamodb"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
	Mongo    MongoConfig    `mapstructure:"mongo" yaml:"mongo"`
}

// MappingConfig controls the mapping engine.
type MappingConfig struct {
	IDAttribute      string `mapstructure:"id_attribute" yaml:"id_attribute"`
	StrictAttributes bool   `mapstructure:"strict_attributes" yaml:"strict_attributes"`
}

// DynamoDBConfig configures the DynamoDB datastore. Empty credentials fall
// back to the default AWS credential chain.
type DynamoDBConfig struct {
	Region    string `mapstructure:"region" yaml:"region,omitempty"`
	Table     string `mapstructure:"table" yaml:"table,omitempty"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key,omitempty"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key,omitempty"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
}

// Enabled reports whether a table is configured.
func (c DynamoDBConfig) Enabled() bool { return c.Table != "" }

// RedisConfig configures the Redis datastore.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr,omitempty"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
}

// Enabled reports whether an address is configured.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// MongoConfig configures the MongoDB datastore.
type MongoConfig struct {
	URI      string `mapstructure:"uri" yaml:"uri,omitempty"`
	Database string `mapstructure:"database" yaml:"database,omitempty"`
}

// Enabled reports whether a connection URI is configured.
func (c MongoConfig) Enabled() bool { return c.URI != "" }

func setDefaults(v *viper.Viper) {
	v.SetDefault("mapping.id_attribute", "_id")
	v.SetDefault("mapping.strict_attributes", false)
	v.SetDefault("dynamodb.region", "us-east-1")
	v.SetDefault("dynamodb.table", "")
	v.SetDefault("dynamodb.access_key", "")
	v.SetDefault("dynamodb.secret_key", "")
	v.SetDefault("dynamodb.endpoint", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "entitymapper:")
	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "entitymapper")
}

// Load resolves the configuration. A .env file in the first directory is
// loaded into the environment when present, then entitymapper.yaml is read
// from the given directories (default ".") and ENTITYMAPPER_* variables
// override both.
func Load(dirs ...string) (*Config, error) {
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	if err := godotenv.Load(filepath.Join(dirs[0], ".env")); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration Load resolves with no file and no
// environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Mapping.IDAttribute) == "" {
		return errors.NewValidationError("mapping.id_attribute", "must not be empty")
	}
	if (c.DynamoDB.AccessKey == "") != (c.DynamoDB.SecretKey == "") {
		return errors.NewValidationError("dynamodb.access_key", "access_key and secret_key must be set together")
	}
	if c.Redis.DB < 0 {
		return errors.NewValidationError("redis.db", "must not be negative")
	}
	if c.Mongo.Enabled() && c.Mongo.Database == "" {
		return errors.NewValidationError("mongo.database", "required when mongo.uri is set")
	}
	return nil
}

// YAML renders the configuration with secrets masked.
func (c *Config) YAML() (string, error) {
	masked := *c
	if masked.DynamoDB.SecretKey != "" {
		masked.DynamoDB.SecretKey = "****"
	}
	if masked.Redis.Password != "" {
		masked.Redis.Password = "****"
	}
	out, err := yaml.Marshal(&masked)
	if err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}
	return string(out), nil
}

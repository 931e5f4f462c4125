// Package config resolves entitymapper settings from an optional .env file,
// an optional entitymapper.yaml and ENTITYMAPPER_* environment variables, in
// increasing order of precedence.
package config

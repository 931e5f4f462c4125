/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Command entitymapper prints the resolved configuration and checks that the
// configured datastores are reachable.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/suparena/entitymapper"
	"github.com/suparena/entitymapper/config"
)

var (
	versionFlag = flag.Bool("version", false, "Show version information")
	vFlag       = flag.Bool("v", false, "Show version information (short)")
	configDir   = flag.String("config", ".", "Directory holding entitymapper.yaml and .env")
	checkFlag   = flag.Bool("check", false, "Connect to every configured datastore")
	timeout     = flag.Duration("timeout", 15*time.Second, "Connection timeout for -check")
	verbose     = flag.Bool("verbose", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	if *versionFlag || *vFlag {
		out, _ := yaml.Marshal(entitymapper.GetVersionInfo())
		fmt.Print(string(out))
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "entitymapper: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger, err := newLogger(*verbose)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := config.Load(*configDir)
	if err != nil {
		return err
	}
	out, err := cfg.YAML()
	if err != nil {
		return err
	}
	fmt.Print(out)

	if !*checkFlag {
		return nil
	}
	m, err := entitymapper.NewFromConfig(cfg, entitymapper.WithLogger(logger))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := m.Connect(ctx, cfg); err != nil {
		return err
	}
	keys := m.Storage().Keys()
	if len(keys) == 0 {
		fmt.Println("no datastores configured")
		return nil
	}
	for _, key := range keys {
		fmt.Printf("%s: ok\n", key)
	}
	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

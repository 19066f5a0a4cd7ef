/*
 * Copyright 2025 Oleg Pimenov.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// migrate brings a network-topology store to the current schema version.
// It must not run concurrently with another migrate instance against the
// same store, and the server must not start until it reports success.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pimenovoleg/network-topology/pkg/db"
	"github.com/pimenovoleg/network-topology/pkg/logger"
	"github.com/pimenovoleg/network-topology/pkg/models"
)

type migrateConfig struct {
	host             string
	port             int
	database         string
	username         string
	password         string
	passwordFile     string
	sslMode          string
	appName          string
	statementTimeout time.Duration
	maxConns         int
	minConns         int
	debug            bool
	verify           bool
}

var (
	errHostRequired     = errors.New("database host is required")
	errDatabaseRequired = errors.New("database name is required")
	errInvalidPort      = errors.New("invalid database port")
)

func main() {
	cfg := parseFlags()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cfg)
	cancel()

	if err != nil {
		log.Fatalf("migrate: %v", err)
	}
}

func run(ctx context.Context, cfg *migrateConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}

	if err := cfg.resolvePassword(); err != nil {
		return err
	}

	logCfg := &logger.Config{
		Level:  "info",
		Debug:  cfg.debug,
		Output: "stdout",
	}

	appLogger, err := logger.NewComponentLogger("migrate", logCfg)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	database := &models.Database{
		Host:             cfg.host,
		Port:             cfg.port,
		Database:         cfg.database,
		Username:         cfg.username,
		Password:         cfg.password,
		SSLMode:          cfg.sslMode,
		ApplicationName:  cfg.appName,
		StatementTimeout: cfg.statementTimeout,
	}

	if cfg.maxConns > 0 {
		database.MaxConnections = int32(cfg.maxConns)
	}

	if cfg.minConns > 0 {
		database.MinConnections = int32(cfg.minConns)
	}

	store, err := db.New(ctx, database, appLogger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer store.Close()

	appLogger.Info().Msg("applying migrations")

	if err := store.RunMigrations(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	appLogger.Info().Msg("migrations finished successfully")

	if cfg.verify {
		return verify(ctx, store, appLogger)
	}

	return nil
}

// verify logs the post-migration invariants worth eyeballing after a
// production run.
func verify(ctx context.Context, store *db.DB, appLogger logger.Logger) error {
	legacy, err := store.CountLegacyUsers(ctx)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	users, err := store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	daemons, err := store.ListDaemons(ctx)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	runs, err := store.ListDiscoveryRuns(ctx)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	appLogger.Info().
		Int("users", len(users)).
		Int("legacy_users", legacy).
		Int("daemons", len(daemons)).
		Int("discovery_runs", len(runs)).
		Msg("post-migration state")

	if legacy > 1 {
		appLogger.Warn().Int("legacy_users", legacy).Msg("more than one credential-less user remains")
	}

	return nil
}

func (cfg *migrateConfig) validate() error {
	if strings.TrimSpace(cfg.host) == "" {
		return errHostRequired
	}

	if strings.TrimSpace(cfg.database) == "" {
		return errDatabaseRequired
	}

	if cfg.port <= 0 || cfg.port > 65535 {
		return fmt.Errorf("%w: %d", errInvalidPort, cfg.port)
	}

	return nil
}

func (cfg *migrateConfig) resolvePassword() error {
	if cfg.password != "" || cfg.passwordFile == "" {
		return nil
	}

	data, err := os.ReadFile(cfg.passwordFile)
	if err != nil {
		return fmt.Errorf("read password file: %w", err)
	}

	cfg.password = strings.TrimSpace(string(data))

	return nil
}

func parseFlags() *migrateConfig {
	cfg := &migrateConfig{}

	flag.StringVar(&cfg.host, "host", envString("DATABASE_HOST", "127.0.0.1"), "Database host or IP address")
	flag.IntVar(&cfg.port, "port", envInt("DATABASE_PORT", 5432), "Database port")
	flag.StringVar(&cfg.database, "database", envString("DATABASE_NAME", "network_topology"), "Target database name")
	flag.StringVar(&cfg.username, "username", envString("DATABASE_USER", "postgres"), "Database username")
	flag.StringVar(&cfg.password, "password", envString("DATABASE_PASSWORD", ""), "Database password (prefer env or --password-file)")
	flag.StringVar(&cfg.passwordFile, "password-file", envString("DATABASE_PASSWORD_FILE", ""), "Path to a file that contains the database password")
	flag.StringVar(&cfg.sslMode, "sslmode", envString("DATABASE_SSLMODE", "disable"), "Postgres sslmode")
	flag.StringVar(&cfg.appName, "app-name", envString("DATABASE_APP_NAME", "network-topology-migrate"), "Application name recorded in pg_stat_activity")
	flag.DurationVar(&cfg.statementTimeout, "statement-timeout", 0, "Optional statement timeout (e.g. 30s)")
	flag.IntVar(&cfg.maxConns, "max-conns", 4, "Maximum pgx connections")
	flag.IntVar(&cfg.minConns, "min-conns", 0, "Minimum pgx connections")
	flag.BoolVar(&cfg.debug, "debug", envBool("MIGRATE_DEBUG", false), "Enable debug logging")
	flag.BoolVar(&cfg.verify, "verify", false, "Log post-migration invariant counts")

	flag.Parse()

	return cfg
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}

	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}

	return fallback
}

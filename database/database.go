// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/crowdfund/database/kv"
	"github.com/blinklabs-io/crowdfund/database/models"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"
)

const (
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMysql    = "mysql"
)

// Config holds the storage configuration. An empty DataDir with the sqlite
// driver keeps everything in memory, which is useful for tests
type Config struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	DataDir      string
	Driver       string
	DSN          string
	// Disables the gorm tracing plugin
	DisableTracing bool
}

type Database struct {
	logger     *slog.Logger
	metadata   *gorm.DB
	kv         *kv.Store
	metrics    databaseMetrics
	config     Config
	writeMutex sync.Mutex
}

// New creates a new database instance and applies schema migrations
func New(cfg Config) (*Database, error) {
	db := &Database{
		logger: cfg.Logger,
		config: cfg,
	}
	if db.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		db.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	metadataDb, err := openMetadata(cfg)
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}
	db.metadata = metadataDb
	kvOpts := []kv.StoreOptionFunc{
		kv.WithLogger(db.logger),
		kv.WithDataDir(cfg.DataDir),
	}
	if cfg.PromRegistry != nil {
		kvOpts = append(kvOpts, kv.WithPromRegistry(cfg.PromRegistry))
	}
	kvStore, err := kv.New(kvOpts...)
	if err != nil {
		return nil, errors.Join(
			fmt.Errorf("open kv store: %w", err),
			closeGorm(metadataDb),
		)
	}
	db.kv = kvStore
	if err := db.init(); err != nil {
		// Database is available for recovery, so return it with error
		return db, err
	}
	return db, nil
}

func (d *Database) init() error {
	if d.config.PromRegistry != nil {
		d.metrics.init(d.config.PromRegistry)
	}
	// Configure tracing for GORM
	if !d.config.DisableTracing {
		if err := d.metadata.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return err
		}
	}
	for _, model := range models.MigrateModels {
		d.logger.Debug(
			fmt.Sprintf("creating table: %T", model),
			"component", "database",
		)
		if err := d.metadata.AutoMigrate(model); err != nil {
			return err
		}
	}
	return nil
}

// Metadata returns the underlying gorm handle. It must not be used from
// inside an Update or View callback
func (d *Database) Metadata() *gorm.DB {
	return d.metadata
}

// KV returns the key/value store
func (d *Database) KV() *kv.Store {
	return d.kv
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction(ctx context.Context, readWrite bool) *Txn {
	return NewTxn(ctx, d, readWrite)
}

// Update runs fn in a read-write transaction. Read-write transactions are
// serialized process-wide, and the transaction is committed only if fn returns
// nil. Hooks registered with Txn.OnCommit run after a successful commit
func (d *Database) Update(ctx context.Context, fn func(*Txn) error) error {
	d.writeMutex.Lock()
	defer d.writeMutex.Unlock()
	txn := d.Transaction(ctx, true)
	err := txn.Do(fn)
	d.metrics.observeTxn(err)
	return err
}

// View runs fn in a read-only transaction
func (d *Database) View(ctx context.Context, fn func(*Txn) error) error {
	txn := d.Transaction(ctx, false)
	defer txn.Release()
	return fn(txn)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	if d.metadata != nil {
		err = errors.Join(err, closeGorm(d.metadata))
	}
	if d.kv != nil {
		err = errors.Join(err, d.kv.Close())
	}
	return err
}

func closeGorm(db *gorm.DB) error {
	sqlDb, err := db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	return sqlDb.Close()
}

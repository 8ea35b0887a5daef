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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/crowdfund/database/types"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openMetadata(cfg Config) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
	switch cfg.Driver {
	case "", DriverSqlite:
		return openSqlite(cfg, gormConfig)
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, errors.New("postgres driver requires a DSN")
		}
		return gorm.Open(postgres.Open(cfg.DSN), gormConfig)
	case DriverMysql:
		if cfg.DSN == "" {
			return nil, errors.New("mysql driver requires a DSN")
		}
		return gorm.Open(mysql.Open(cfg.DSN), gormConfig)
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrUnsupportedDriver, cfg.Driver)
	}
}

func openSqlite(cfg Config, gormConfig *gorm.Config) (*gorm.DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		if cfg.DataDir == "" {
			// Each in-memory database gets a unique name so that instances
			// don't share state. cache=shared lets pooled connections see the
			// same database
			dsn = fmt.Sprintf(
				"file:%s?mode=memory&cache=shared",
				uuid.NewString(),
			)
		} else {
			// Make sure that we can read data dir, and create if it doesn't exist
			if _, err := os.Stat(cfg.DataDir); err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					return nil, fmt.Errorf("failed to read data dir: %w", err)
				}
				if err := os.MkdirAll(cfg.DataDir, fs.ModePerm); err != nil {
					return nil, fmt.Errorf("failed to create data dir: %w", err)
				}
			}
			// WAL journal mode, wait on a locked database rather than failing
			dsn = fmt.Sprintf(
				"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
				filepath.Join(cfg.DataDir, "crowdfund.sqlite"),
			)
		}
	}
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		return nil, err
	}
	sqlDb, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer, and an in-memory database disappears
	// when its last connection is closed
	sqlDb.SetMaxOpenConns(1)
	sqlDb.SetConnMaxLifetime(0)
	sqlDb.SetConnMaxIdleTime(0)
	return db, nil
}

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

package kv

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blinklabs-io/crowdfund/database/types"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/prometheus/client_golang/prometheus"
)

// Store is a badger-backed key/value store. Data is not persisted when no data
// directory is configured
type Store struct {
	promRegistry   prometheus.Registerer
	db             *badger.DB
	logger         *slog.Logger
	gcTicker       *time.Ticker
	gcStopCh       chan struct{}
	metrics        storeMetrics
	dataDir        string
	gcWg           sync.WaitGroup
	closeOnce      sync.Once
	blockCacheSize uint64
	indexCacheSize uint64
	gcEnabled      bool
}

// New creates a new key/value store
func New(opts ...StoreOptionFunc) (*Store, error) {
	s := &Store{
		// Set defaults
		gcEnabled:      true,
		blockCacheSize: DefaultBlockCacheSize,
		indexCacheSize: DefaultIndexCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	var badgerOpts badger.Options
	if s.dataDir == "" {
		badgerOpts = badger.DefaultOptions("").
			WithLogger(NewBadgerLogger(s.logger)).
			// The default INFO logging is a bit verbose
			WithLoggingLevel(badger.WARNING).
			WithInMemory(true)
		// Value log GC is not supported for in-memory stores
		s.gcEnabled = false
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(s.dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		badgerOpts = badger.DefaultOptions(filepath.Join(s.dataDir, "kv")).
			WithLogger(NewBadgerLogger(s.logger)).
			WithLoggingLevel(badger.WARNING).
			WithBlockCacheSize(int64(s.blockCacheSize)). //nolint:gosec // blockCacheSize is controlled and reasonable
			WithIndexCacheSize(int64(s.indexCacheSize)). //nolint:gosec // indexCacheSize is controlled and reasonable
			WithCompression(options.Snappy)
	}
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}
	s.db = db
	if err := s.init(); err != nil {
		return s, err
	}
	return s, nil
}

func (d *Store) init() error {
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if d.promRegistry != nil {
		d.registerMetrics()
	}
	if d.gcEnabled {
		d.gcTicker = time.NewTicker(5 * time.Minute)
		d.gcStopCh = make(chan struct{})
		d.gcWg.Add(1)
		go d.valueLogGc(d.gcTicker, d.gcStopCh)
	}
	return nil
}

func (d *Store) valueLogGc(t *time.Ticker, stop <-chan struct{}) {
	defer d.gcWg.Done()
	for {
		select {
		case <-t.C:
			for {
				err := d.db.RunValueLogGC(0.5)
				if err == nil {
					// Run it again if it just rewrote a file
					continue
				}
				if !errors.Is(err, badger.ErrNoRewrite) {
					d.logger.Warn(
						fmt.Sprintf("kv: GC failure: %s", err),
						"component", "kv",
					)
				}
				break
			}
		case <-stop:
			return
		}
	}
}

// Close stops background GC and closes the underlying badger database
func (d *Store) Close() error {
	var err error
	d.closeOnce.Do(func() {
		if d.gcTicker != nil {
			d.gcTicker.Stop()
			close(d.gcStopCh)
			d.gcWg.Wait()
		}
		err = d.db.Close()
	})
	return err
}

// DB returns the database handle
func (d *Store) DB() *badger.DB {
	return d.db
}

// View runs fn in a read-only transaction
func (d *Store) View(fn func(*badger.Txn) error) error {
	return d.db.View(fn)
}

// Update runs fn in a read-write transaction and commits it. A write conflict
// with a concurrently committed transaction is returned as badger.ErrConflict
func (d *Store) Update(fn func(*badger.Txn) error) error {
	err := d.db.Update(fn)
	if d.metrics.txnsTotal != nil {
		switch {
		case err == nil:
			d.metrics.txnsTotal.Inc()
		case errors.Is(err, badger.ErrConflict):
			d.metrics.conflictsTotal.Inc()
		}
	}
	return err
}

// Get returns a copy of the value stored under key
func Get(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, types.ErrKeyNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

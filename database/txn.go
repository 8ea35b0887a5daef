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
	"fmt"
	"sync"

	"github.com/blinklabs-io/crowdfund/database/types"
	"gorm.io/gorm"
)

// Txn wraps a gorm transaction and tracks hooks to run once it commits
type Txn struct {
	db        *Database
	metadata  *gorm.DB
	beginErr  error
	onCommit  []func()
	lock      sync.Mutex
	finished  bool
	readWrite bool
}

func NewTxn(ctx context.Context, db *Database, readWrite bool) *Txn {
	t := &Txn{db: db, readWrite: readWrite}
	tx := db.metadata.WithContext(ctx).Begin()
	if tx.Error != nil {
		t.beginErr = tx.Error
		t.finished = true
		return t
	}
	t.metadata = tx
	return t
}

func (t *Txn) DB() *Database {
	return t.db
}

// Metadata returns the underlying gorm transaction handle
func (t *Txn) Metadata() *gorm.DB {
	return t.metadata
}

// ReadWrite reports whether the transaction may be committed
func (t *Txn) ReadWrite() bool {
	return t.readWrite
}

// OnCommit registers fn to be called after the transaction commits
// successfully. Hooks are dropped on rollback
func (t *Txn) OnCommit(fn func()) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.onCommit = append(t.onCommit, fn)
}

// Do executes the specified function in the context of the transaction. Any errors returned will result
// in the transaction being rolled back
func (t *Txn) Do(fn func(*Txn) error) error {
	if t.beginErr != nil {
		return fmt.Errorf("begin transaction: %w", t.beginErr)
	}
	if err := fn(t); err != nil {
		if err2 := t.Rollback(); err2 != nil {
			return fmt.Errorf(
				"rollback failed: %w: original error: %w",
				err2,
				err,
			)
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

func (t *Txn) Commit() error {
	t.lock.Lock()
	if t.finished {
		t.lock.Unlock()
		return t.beginErr
	}
	// No need to commit for read-only, but we do want to free up resources
	if !t.readWrite {
		err := t.rollback()
		t.lock.Unlock()
		return err
	}
	if result := t.metadata.Commit(); result.Error != nil {
		t.finished = true
		t.onCommit = nil
		t.lock.Unlock()
		return result.Error
	}
	t.finished = true
	hooks := t.onCommit
	t.onCommit = nil
	t.lock.Unlock()
	for _, hook := range hooks {
		hook()
	}
	return nil
}

func (t *Txn) Rollback() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.rollback()
}

func (t *Txn) rollback() error {
	if t.finished {
		return nil
	}
	t.finished = true
	t.onCommit = nil
	if result := t.metadata.Rollback(); result.Error != nil {
		return fmt.Errorf("metadata rollback: %w", result.Error)
	}
	return nil
}

// Release releases transaction resources. For read-only transactions, this
// releases locks and resources. For read-write transactions, this is equivalent
// to Rollback. Use this in defer statements for clean resource cleanup.
// Errors are logged but not returned, making this safe for deferred calls.
func (t *Txn) Release() {
	if err := t.Rollback(); err != nil {
		t.db.logger.Debug(
			"transaction release failed",
			"error", err,
			"read_write", t.readWrite,
		)
	}
}

// checkWritable returns the gorm handle for a write, or an error if the
// transaction is not usable for writes
func (t *Txn) checkWritable() (*gorm.DB, error) {
	if t == nil {
		return nil, types.ErrNilTxn
	}
	if !t.readWrite {
		return nil, types.ErrTxnReadOnly
	}
	if t.beginErr != nil {
		return nil, t.beginErr
	}
	return t.metadata, nil
}

// reader returns the gorm handle for reads, falling back to the database
// handle when no transaction is provided
func (d *Database) reader(txn *Txn) (*gorm.DB, error) {
	if txn == nil {
		return d.metadata, nil
	}
	if txn.beginErr != nil {
		return nil, txn.beginErr
	}
	return txn.metadata, nil
}

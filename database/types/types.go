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

package types

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
)

// Uint64 stores a uint64 as a decimal string. SQL drivers reject uint64 values
// with the high bit set, and lovelace amounts can use the full range.
//
//nolint:recvcheck
type Uint64 uint64

func (u Uint64) Value() (driver.Value, error) {
	return strconv.FormatUint(uint64(u), 10), nil
}

func (u *Uint64) Scan(val any) error {
	var v string
	switch tmpVal := val.(type) {
	case string:
		v = tmpVal
	case []byte:
		v = string(tmpVal)
	case int64:
		if tmpVal < 0 {
			return fmt.Errorf("negative value cannot be stored as Uint64: %d", tmpVal)
		}
		*u = Uint64(tmpVal)
		return nil
	case nil:
		*u = 0
		return nil
	default:
		return fmt.Errorf(
			"value was not expected type, wanted string, got %T",
			val,
		)
	}
	tmpUint, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return err
	}
	*u = Uint64(tmpUint)
	return nil
}

// GormDataType stores the value in a string column so the full range is kept
// exactly on every dialect
func (Uint64) GormDataType() string {
	return "string"
}

// ErrNilTxn is returned when a nil transaction is provided where a valid transaction is required
var ErrNilTxn = errors.New("nil transaction")

// ErrTxnReadOnly is returned when a write is attempted in a read-only transaction
var ErrTxnReadOnly = errors.New("read-only transaction")

// ErrStaleRecord is returned when a guarded update finds that the record was
// changed by a transaction that committed first
var ErrStaleRecord = errors.New("record changed by a concurrent transaction")

// ErrKeyNotFound is returned by key/value operations when a key is missing
var ErrKeyNotFound = errors.New("key not found")

// ErrUnsupportedDriver is returned for an unknown SQL driver name
var ErrUnsupportedDriver = errors.New("unsupported database driver")

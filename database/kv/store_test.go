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

package kv_test

import (
	"errors"
	"testing"

	"github.com/blinklabs-io/crowdfund/database/kv"
	"github.com/blinklabs-io/crowdfund/database/types"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreInMemory(t *testing.T) {
	store, err := kv.New()
	require.NoError(t, err)
	defer store.Close()

	err = store.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("key"), []byte("value"))
	})
	require.NoError(t, err)

	err = store.View(func(txn *badger.Txn) error {
		val, err := kv.Get(txn, []byte("key"))
		if err != nil {
			return err
		}
		assert.Equal(t, []byte("value"), val)
		_, err = kv.Get(txn, []byte("missing"))
		assert.ErrorIs(t, err, types.ErrKeyNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestStorePersistent(t *testing.T) {
	dataDir := t.TempDir()
	store, err := kv.New(kv.WithDataDir(dataDir))
	require.NoError(t, err)
	require.NoError(t, store.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("persist"), []byte("yes"))
	}))
	require.NoError(t, store.Close())
	// A second close is a no-op
	require.NoError(t, store.Close())

	store, err = kv.New(kv.WithDataDir(dataDir), kv.WithGc(false))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.View(func(txn *badger.Txn) error {
		val, err := kv.Get(txn, []byte("persist"))
		require.NoError(t, err)
		assert.Equal(t, "yes", string(val))
		return nil
	}))
}

func TestStoreMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	store, err := kv.New(kv.WithPromRegistry(reg))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("a"), []byte("1"))
	}))
	testErr := errors.New("abort")
	require.ErrorIs(t, store.Update(func(txn *badger.Txn) error {
		return testErr
	}), testErr)

	count, err := testutil.GatherAndCount(reg, "crowdfund_kv_txns_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "crowdfund_kv_txns_total" {
			assert.InDelta(t, 1.0, mf.GetMetric()[0].GetCounter().GetValue(), 0)
		}
	}
}

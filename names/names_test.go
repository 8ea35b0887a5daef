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

package names_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/blinklabs-io/crowdfund/database/kv"
	"github.com/blinklabs-io/crowdfund/identity"
	"github.com/blinklabs-io/crowdfund/internal/test/testutil"
	"github.com/blinklabs-io/crowdfund/ledger"
	"github.com/blinklabs-io/crowdfund/names"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *names.Registry {
	t.Helper()
	store, err := kv.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return names.New(store, nil)
}

func TestRegisterAndGetName(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	alice := testutil.Principal(t, 1)
	require.NoError(t, r.RegisterName(ctx, alice, "alice"))
	name, found, err := r.GetName(ctx, alice)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "alice", name)
	owner, found, err := r.Owner(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, alice, owner)
}

func TestGetNameUnregistered(t *testing.T) {
	r := newTestRegistry(t)
	name, found, err := r.GetName(context.Background(), testutil.Principal(t, 1))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, name)
}

func TestRegisterNameConflicts(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	alice := testutil.Principal(t, 1)
	bob := testutil.Principal(t, 2)
	require.NoError(t, r.RegisterName(ctx, alice, "alice"))
	require.ErrorIs(t, r.RegisterName(ctx, alice, "other"), names.ErrAlreadyRegistered)
	require.ErrorIs(t, r.RegisterName(ctx, bob, "alice"), names.ErrNameTaken)
	// The failed attempts must not leave partial bindings
	_, found, err := r.Owner(ctx, "other")
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = r.GetName(ctx, bob)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRegisterNameValidation(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	alice := testutil.Principal(t, 1)
	testDefs := []struct {
		name string
	}{
		{name: ""},
		{name: strings.Repeat("a", names.MaxNameLength+1)},
		{name: "bad\nname"},
		{name: string([]byte{0xff, 0xfe})},
	}
	for _, testDef := range testDefs {
		err := r.RegisterName(ctx, alice, testDef.name)
		assert.ErrorIs(t, err, ledger.ErrInvalidArgument, "name %q", testDef.name)
	}
	require.NoError(t, r.RegisterName(ctx, alice, strings.Repeat("a", names.MaxNameLength)))
	require.ErrorIs(
		t,
		r.RegisterName(ctx, "", "nobody"),
		ledger.ErrUnauthorized,
	)
}

func TestRegisterNameConcurrent(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	const workers = 8
	principals := make([]identity.Principal, workers)
	for i := range workers {
		principals[i] = testutil.Principal(t, byte(i+1))
	}
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			errs[idx] = r.RegisterName(ctx, principals[idx], "shared")
		}(i)
	}
	wg.Wait()
	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		}
	}
	// Conflicts that exhaust retries surface as errors, so at most one wins
	assert.LessOrEqual(t, winners, 1)
	owner, found, err := r.Owner(ctx, "shared")
	require.NoError(t, err)
	if winners == 1 {
		assert.True(t, found)
		assert.False(t, owner.IsZero())
	}
}

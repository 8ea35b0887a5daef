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

package testutil

import (
	"bytes"
	"testing"

	"github.com/blinklabs-io/crowdfund/identity"
	"github.com/stretchr/testify/require"
)

// TestNetworkId is the Cardano testnet network ID
const TestNetworkId uint8 = 0

// Principal returns a deterministic testnet enterprise address principal.
// Different seeds give different principals
func Principal(t testing.TB, seed byte) identity.Principal {
	t.Helper()
	p, err := identity.PrincipalFromKeyHashes(
		TestNetworkId,
		bytes.Repeat([]byte{seed}, 28),
		nil,
	)
	require.NoError(t, err)
	return p
}

// SignerSet returns a signer set made of the principals for the given seeds
func SignerSet(t testing.TB, seeds ...byte) *identity.SignerSet {
	t.Helper()
	signers := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		signers = append(signers, Principal(t, seed).String())
	}
	s, err := identity.NewSignerSet(signers...)
	require.NoError(t, err)
	return s
}

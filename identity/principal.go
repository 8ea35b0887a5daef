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

// Package identity resolves the calling principal of ledger operations and
// holds the fixed set of trusted signers that authorize fund releases.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
)

var ErrInvalidPrincipal = errors.New("invalid principal")

// Principal is the stable identity of a calling party. It is the canonical
// bech32 encoding of a Cardano address, so it is derived from the party's
// public key (or script) credential.
type Principal string

// ParsePrincipal validates a bech32 address and returns its canonical form
func ParsePrincipal(addr string) (Principal, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", fmt.Errorf("%w: empty address", ErrInvalidPrincipal)
	}
	tmpAddr, err := lcommon.NewAddress(addr)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPrincipal, err)
	}
	return Principal(tmpAddr.String()), nil
}

// PrincipalFromKeyHashes builds a principal from raw payment and staking key
// hashes (28 bytes each) for the given network ID
func PrincipalFromKeyHashes(
	networkId uint8,
	paymentKeyHash []byte,
	stakingKeyHash []byte,
) (Principal, error) {
	var addrType uint8
	if len(stakingKeyHash) > 0 {
		addrType = lcommon.AddressTypeKeyKey
	} else {
		addrType = lcommon.AddressTypeKeyNone
	}
	tmpAddr, err := lcommon.NewAddressFromParts(
		addrType,
		networkId,
		paymentKeyHash,
		stakingKeyHash,
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidPrincipal, err)
	}
	return Principal(tmpAddr.String()), nil
}

// PrincipalFromPublicKey derives an enterprise address principal from a
// payment verification key
func PrincipalFromPublicKey(
	networkId uint8,
	pubKey []byte,
) (Principal, error) {
	keyHash := lcommon.Blake2b224Hash(pubKey)
	return PrincipalFromKeyHashes(networkId, keyHash[:], nil)
}

// String returns the principal as a bech32 string
func (p Principal) String() string {
	return string(p)
}

// IsZero reports whether the principal is unset
func (p Principal) IsZero() bool {
	return p == ""
}

type ctxKey string

const principalContextKey ctxKey = "crowdfund.principal"

// WithPrincipal returns a copy of ctx carrying the authenticated caller
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext returns the authenticated caller established at the
// system boundary, if any
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(Principal)
	if !ok || p.IsZero() {
		return "", false
	}
	return p, true
}

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

package identity

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrEmptySignerSet    = errors.New("signer set is empty")
	ErrDuplicateSigner   = errors.New("duplicate signer")
	ErrRequiredApprovals = errors.New("required approvals must equal signer count")
)

// SignerSet is the fixed set of principals allowed to approve fund releases.
// It is established once at startup and never changes afterward.
type SignerSet struct {
	members []Principal
	index   map[Principal]struct{}
}

// NewSignerSet builds a signer set from the given principals. Each address is
// validated and canonicalized.
func NewSignerSet(signers ...string) (*SignerSet, error) {
	if len(signers) == 0 {
		return nil, ErrEmptySignerSet
	}
	s := &SignerSet{
		members: make([]Principal, 0, len(signers)),
		index:   make(map[Principal]struct{}, len(signers)),
	}
	for _, signer := range signers {
		p, err := ParsePrincipal(signer)
		if err != nil {
			return nil, fmt.Errorf("signer %q: %w", signer, err)
		}
		if _, ok := s.index[p]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSigner, p)
		}
		s.index[p] = struct{}{}
		s.members = append(s.members, p)
	}
	return s, nil
}

// NewSignerSetWithQuorum builds a signer set and checks that the configured
// required approval count matches its size
func NewSignerSetWithQuorum(
	requiredApprovals int,
	signers ...string,
) (*SignerSet, error) {
	s, err := NewSignerSet(signers...)
	if err != nil {
		return nil, err
	}
	if requiredApprovals != s.Size() {
		return nil, fmt.Errorf(
			"%w: required=%d, signers=%d",
			ErrRequiredApprovals,
			requiredApprovals,
			s.Size(),
		)
	}
	return s, nil
}

// IsTrustedSigner returns true if p is a member of the signer set
func (s *SignerSet) IsTrustedSigner(p Principal) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[p]
	return ok
}

// Size returns the number of signers, which is also the number of approvals
// required to release an increment
func (s *SignerSet) Size() int {
	if s == nil {
		return 0
	}
	return len(s.members)
}

// Members returns a copy of the signers in configuration order
func (s *SignerSet) Members() []Principal {
	if s == nil {
		return nil
	}
	return slices.Clone(s.members)
}

// RequiredApprovals returns the number of distinct signer approvals needed to
// release an increment
func (s *SignerSet) RequiredApprovals() int {
	return s.Size()
}

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

// Package names binds principals to unique display names.
package names

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"unicode"
	"unicode/utf8"

	"github.com/blinklabs-io/crowdfund/database/kv"
	"github.com/blinklabs-io/crowdfund/database/types"
	"github.com/blinklabs-io/crowdfund/identity"
	"github.com/blinklabs-io/crowdfund/ledger"
	badger "github.com/dgraph-io/badger/v4"
)

const (
	MaxNameLength = 64

	// Maximum attempts when a registration collides with a concurrent one
	maxConflictRetries = 5
)

var (
	ErrAlreadyRegistered = errors.New("principal already has a name")
	ErrNameTaken         = errors.New("name already taken")
)

type Registry struct {
	logger *slog.Logger
	store  *kv.Store
}

func New(store *kv.Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Registry{
		logger: logger.With("component", "names"),
		store:  store,
	}
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("empty name: %w", ledger.ErrInvalidArgument)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf(
			"name is %d bytes, maximum is %d: %w",
			len(name),
			MaxNameLength,
			ledger.ErrInvalidArgument,
		)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("name is not valid UTF-8: %w", ledger.ErrInvalidArgument)
	}
	for _, r := range name {
		if !unicode.IsPrint(r) {
			return fmt.Errorf("name contains unprintable character %q: %w", r, ledger.ErrInvalidArgument)
		}
	}
	return nil
}

// RegisterName binds name to principal. Both the principal and the name can
// be bound at most once
func (r *Registry) RegisterName(
	ctx context.Context,
	principal identity.Principal,
	name string,
) error {
	if principal.IsZero() {
		return fmt.Errorf("no caller principal: %w", ledger.ErrUnauthorized)
	}
	if err := validateName(name); err != nil {
		return err
	}
	nameKey := types.NameKey(name)
	principalKey := types.PrincipalNameKey(principal.String())
	var err error
	for range maxConflictRetries {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = r.store.Update(func(txn *badger.Txn) error {
			if _, err := kv.Get(txn, principalKey); err == nil {
				return ErrAlreadyRegistered
			} else if !errors.Is(err, types.ErrKeyNotFound) {
				return err
			}
			if _, err := kv.Get(txn, nameKey); err == nil {
				return ErrNameTaken
			} else if !errors.Is(err, types.ErrKeyNotFound) {
				return err
			}
			if err := txn.Set(nameKey, []byte(principal.String())); err != nil {
				return err
			}
			return txn.Set(principalKey, []byte(name))
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
		r.logger.Debug(
			"name registration conflict, retrying",
			"principal", principal.String(),
		)
	}
	if err != nil {
		return err
	}
	r.logger.Info(
		"name registered",
		"principal", principal.String(),
		"name", name,
	)
	return nil
}

// GetName returns the name bound to principal
func (r *Registry) GetName(
	_ context.Context,
	principal identity.Principal,
) (string, bool, error) {
	var ret string
	var found bool
	err := r.store.View(func(txn *badger.Txn) error {
		val, err := kv.Get(txn, types.PrincipalNameKey(principal.String()))
		if err != nil {
			if errors.Is(err, types.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		ret = string(val)
		found = true
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return ret, found, nil
}

// Owner returns the principal that registered name
func (r *Registry) Owner(
	_ context.Context,
	name string,
) (identity.Principal, bool, error) {
	var ret identity.Principal
	var found bool
	err := r.store.View(func(txn *badger.Txn) error {
		val, err := kv.Get(txn, types.NameKey(name))
		if err != nil {
			if errors.Is(err, types.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		ret = identity.Principal(val)
		found = true
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return ret, found, nil
}

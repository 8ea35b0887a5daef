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

// Package secret loads and protects the API signing secret. Secret files may
// be stored in plain text or encrypted with SOPS.
package secret

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	sopsapi "github.com/getsops/sops/v3"
	"github.com/getsops/sops/v3/aes"
	scommon "github.com/getsops/sops/v3/cmd/sops/common"
	"github.com/getsops/sops/v3/config"
	"github.com/getsops/sops/v3/decrypt"
	"github.com/getsops/sops/v3/gcpkms"
	skeys "github.com/getsops/sops/v3/keys"
	awskms "github.com/getsops/sops/v3/kms"
	jsonstore "github.com/getsops/sops/v3/stores/json"
	"github.com/getsops/sops/v3/version"
)

const (
	EnvGcpKmsResourceId = "CROWDFUND_GCP_KMS_RESOURCE_ID"
	EnvAwsKmsKeyArns    = "CROWDFUND_AWS_KMS_KEY_ARNS"
	EnvAwsKmsProfile    = "CROWDFUND_AWS_KMS_PROFILE"
)

var (
	ErrEmptySecret      = errors.New("secret is empty")
	ErrAlreadyEncrypted = errors.New("already encrypted")
)

// LoadFile reads a secret from path, decrypting it first if it is a SOPS
// document. Surrounding whitespace is removed
func LoadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read secret file: %w", err)
	}
	if IsEncrypted(data) {
		data, err = Decrypt(data)
		if err != nil {
			return nil, fmt.Errorf("decrypt secret file %s: %w", path, err)
		}
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptySecret
	}
	return data, nil
}

// IsEncrypted reports whether data is a SOPS encrypted binary document
func IsEncrypted(data []byte) bool {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return false
	}
	_, ok := doc["sops"]
	return ok
}

func Decrypt(data []byte) ([]byte, error) {
	ret, err := decrypt.Data(data, "binary")
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Encrypt wraps data in a SOPS binary document using the KMS master keys
// named by the environment
func Encrypt(data []byte) ([]byte, error) {
	if IsEncrypted(data) {
		return nil, ErrAlreadyEncrypted
	}
	storeConfig := &config.JSONBinaryStoreConfig{}
	input := jsonstore.NewBinaryStore(storeConfig)
	output := jsonstore.NewBinaryStore(storeConfig)
	branches, err := input.LoadPlainFile(data)
	if err != nil {
		return nil, fmt.Errorf("error loading data: %w", err)
	}
	keyGroups, err := masterKeyGroupsFromEnv()
	if err != nil {
		return nil, err
	}
	tree := sopsapi.Tree{
		Branches: branches,
		Metadata: sopsapi.Metadata{
			KeyGroups: keyGroups,
			Version:   version.Version,
		},
	}
	dataKey, errs := tree.GenerateDataKey()
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed generating data key: %v", errs)
	}
	if err := scommon.EncryptTree(scommon.EncryptTreeOpts{
		DataKey: dataKey,
		Tree:    &tree,
		Cipher:  aes.NewCipher(),
	}); err != nil {
		return nil, fmt.Errorf("failed encrypt: %w", err)
	}
	encrypted, err := output.EmitEncryptedFile(tree)
	if err != nil {
		return nil, fmt.Errorf("failed output: %w", err)
	}
	return encrypted, nil
}

func masterKeyGroupsFromEnv() ([]sopsapi.KeyGroup, error) {
	keyGroups := []sopsapi.KeyGroup{}
	if rid := os.Getenv(EnvGcpKmsResourceId); rid != "" {
		keys := []skeys.MasterKey{}
		for _, k := range gcpkms.MasterKeysFromResourceIDString(rid) {
			keys = append(keys, k)
		}
		if len(keys) > 0 {
			keyGroups = append(keyGroups, keys)
		}
	}
	if arns := os.Getenv(EnvAwsKmsKeyArns); arns != "" {
		keys := []skeys.MasterKey{}
		profile := os.Getenv(EnvAwsKmsProfile)
		for _, k := range awskms.MasterKeysFromArnString(arns, nil, profile) {
			keys = append(keys, k)
		}
		if len(keys) > 0 {
			keyGroups = append(keyGroups, keys)
		}
	}
	if len(keyGroups) == 0 {
		return nil, fmt.Errorf(
			"SOPS requires at least one master key to encrypt: set %s and/or %s",
			EnvGcpKmsResourceId,
			EnvAwsKmsKeyArns,
		)
	}
	return keyGroups, nil
}

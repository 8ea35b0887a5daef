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

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blinklabs-io/crowdfund/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "crowdfund.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0o600))
	return tmpFile
}

func TestLoad_CompareFullStruct(t *testing.T) {
	yamlContent := `
databasePath: "/var/lib/crowdfund"
databaseDriver: "postgres"
databaseDsn: "host=localhost user=crowdfund dbname=crowdfund"
bindAddr: "127.0.0.1"
apiPort: 9000
metricsPort: 9001
signers:
  - addr_test1signera
  - addr_test1signerb
requiredApprovals: 2
authSecret: "inline-secret"
tokenTtl: 1h
shutdownTimeout: 10s
outboxPollInterval: 250ms
pointsPerReferral: 25
maxTitleLength: 64
maxDescriptionLength: 1024
maxCommentLength: 140
minFundingGoal: 30
tracing: true
tracingStdout: true
`
	expected := &Config{
		DatabasePath:         "/var/lib/crowdfund",
		DatabaseDriver:       "postgres",
		DatabaseDsn:          "host=localhost user=crowdfund dbname=crowdfund",
		BindAddr:             "127.0.0.1",
		ApiPort:              9000,
		MetricsPort:          9001,
		Signers:              []string{"addr_test1signera", "addr_test1signerb"},
		RequiredApprovals:    2,
		AuthSecret:           "inline-secret",
		TokenTtl:             time.Hour,
		ShutdownTimeout:      10 * time.Second,
		OutboxPollInterval:   250 * time.Millisecond,
		PointsPerReferral:    25,
		MaxTitleLength:       64,
		MaxDescriptionLength: 1024,
		MaxCommentLength:     140,
		MinFundingGoal:       30,
		Tracing:              true,
		TracingStdout:        true,
	}
	actual, err := LoadConfig(writeConfigFile(t, yamlContent))
	require.NoError(t, err)
	assert.Equal(t, expected, actual)
}

func TestLoad_ConfigSection(t *testing.T) {
	yamlContent := `
config:
  apiPort: 9100
  signers: [addr_test1signera]
  requiredApprovals: 1
  tokenTtl: 1h
`
	cfg, err := LoadConfig(writeConfigFile(t, yamlContent))
	require.NoError(t, err)
	assert.Equal(t, uint(9100), cfg.ApiPort)
	assert.Equal(t, []string{"addr_test1signera"}, cfg.Signers)
	assert.Equal(t, 1, cfg.RequiredApprovals)
	assert.Equal(t, time.Hour, cfg.TokenTtl)
	// Unset values keep their defaults
	assert.Equal(t, ".crowdfund", cfg.DatabasePath)
	assert.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)
}

func TestLoad_WithoutConfigFile_UsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_DefaultsAreNotMutated(t *testing.T) {
	_, err := LoadConfig(writeConfigFile(t, "apiPort: 9200\n"))
	require.NoError(t, err)
	assert.Equal(t, uint(8080), DefaultConfig().ApiPort)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	t.Setenv("CROWDFUND_API_PORT", "9300")
	t.Setenv("CROWDFUND_SIGNERS", "addr_test1x,addr_test1y")
	t.Setenv("CROWDFUND_TOKEN_TTL", "15m")
	cfg, err := LoadConfig(writeConfigFile(t, "apiPort: 9200\n"))
	require.NoError(t, err)
	assert.Equal(t, uint(9300), cfg.ApiPort)
	assert.Equal(t, []string{"addr_test1x", "addr_test1y"}, cfg.Signers)
	assert.Equal(t, 15*time.Minute, cfg.TokenTtl)
}

func TestLoad_Errors(t *testing.T) {
	testDefs := []struct {
		name    string
		content string
	}{
		{name: "bad yaml", content: "apiPort: [\n"},
		{name: "unknown driver", content: "databaseDriver: oracle\n"},
		{name: "postgres without dsn", content: "databaseDriver: postgres\n"},
		{name: "api port out of range", content: "apiPort: 70000\n"},
		{name: "negative approvals", content: "requiredApprovals: -1\n"},
		{name: "bad duration", content: "tokenTtl: soon\n"},
		{name: "title limit over column size", content: "maxTitleLength: 2000\n"},
		{name: "comment limit over column size", content: "maxCommentLength: 2000\n"},
		{name: "negative title limit", content: "maxTitleLength: -1\n"},
		{name: "nested section error", content: "config:\n  apiPort: 70000\n"},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfigFile(t, testDef.content))
			require.Error(t, err)
		})
	}
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate_LimitsAtColumnSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTitleLength = models.TitleColumnSize
	cfg.MaxCommentLength = models.CommentColumnSize
	require.NoError(t, cfg.Validate())
	cfg.MaxTitleLength = models.TitleColumnSize + 1
	require.Error(t, cfg.Validate())
	cfg.MaxTitleLength = 0
	cfg.MaxCommentLength = models.CommentColumnSize + 1
	require.Error(t, cfg.Validate())
}

func TestListenAddresses(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "0.0.0.0:8080", cfg.ApiListenAddress())
	assert.Equal(t, "0.0.0.0:12799", cfg.MetricsListenAddress())
	cfg.MetricsPort = 0
	assert.Empty(t, cfg.MetricsListenAddress())
}

func TestRequiredApprovalCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Signers = []string{"a", "b", "c"}
	assert.Equal(t, 3, cfg.RequiredApprovalCount())
	cfg.RequiredApprovals = 2
	assert.Equal(t, 2, cfg.RequiredApprovalCount())
}

func TestLoadAuthSecret(t *testing.T) {
	cfg := DefaultConfig()
	_, err := cfg.LoadAuthSecret()
	require.ErrorIs(t, err, ErrNoAuthSecret)

	cfg.AuthSecret = "inline"
	secretBytes, err := cfg.LoadAuthSecret()
	require.NoError(t, err)
	assert.Equal(t, []byte("inline"), secretBytes)

	secretFile := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(secretFile, []byte("from-file\n"), 0o600))
	cfg.AuthSecretFile = secretFile
	secretBytes, err = cfg.LoadAuthSecret()
	require.NoError(t, err)
	assert.Equal(t, []byte("from-file"), secretBytes)
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	cfg := DefaultConfig()
	ctx := WithContext(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
}

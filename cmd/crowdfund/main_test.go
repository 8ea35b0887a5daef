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

package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/blinklabs-io/crowdfund/api"
	"github.com/blinklabs-io/crowdfund/internal/config"
	"github.com/blinklabs-io/crowdfund/internal/test/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCommand(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AuthSecret = "cli-secret"
	principal := testutil.Principal(t, 9)

	cmd := tokenCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--principal", principal.String()})
	require.NoError(t, cmd.ExecuteContext(
		config.WithContext(context.Background(), cfg),
	))

	parsed, err := api.ParseToken(
		[]byte("cli-secret"),
		strings.TrimSpace(out.String()),
	)
	require.NoError(t, err)
	assert.Equal(t, principal, parsed)
}

func TestTokenCommandErrors(t *testing.T) {
	cfg := config.DefaultConfig()
	ctx := config.WithContext(context.Background(), cfg)

	cmd := tokenCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})
	require.Error(t, cmd.ExecuteContext(ctx))

	// No secret configured
	cmd = tokenCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--principal", testutil.Principal(t, 9).String()})
	require.ErrorIs(t, cmd.ExecuteContext(ctx), config.ErrNoAuthSecret)
}

func TestVersionCommand(t *testing.T) {
	cmd := versionCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), programName+" "))
}

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
	"errors"
	"fmt"
	"time"

	"github.com/blinklabs-io/crowdfund/api"
	"github.com/blinklabs-io/crowdfund/identity"
	"github.com/spf13/cobra"
)

func tokenCommand() *cobra.Command {
	var principal string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API bearer token for a principal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFromCmd(cmd)
			if principal == "" {
				return errors.New("--principal is required")
			}
			p, err := identity.ParsePrincipal(principal)
			if err != nil {
				return err
			}
			secret, err := cfg.LoadAuthSecret()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.TokenTtl
			}
			tok, err := api.IssueToken(secret, p, ttl, time.Now())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVarP(&principal, "principal", "p", "", "principal address to issue the token for")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to tokenTtl from config)")
	return cmd
}

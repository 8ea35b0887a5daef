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
	"os"

	"github.com/blinklabs-io/crowdfund/internal/secret"
	"github.com/spf13/cobra"
)

func secretCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage the API signing secret",
	}
	cmd.AddCommand(secretEncryptCommand())
	return cmd
}

func secretEncryptCommand() *cobra.Command {
	var inFile string
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a secret with SOPS for use as authSecretFile",
		Long: "Reads a plain secret and writes a SOPS encrypted document to stdout. " +
			"Master keys are taken from " + secret.EnvGcpKmsResourceId +
			" and " + secret.EnvAwsKmsKeyArns + ".",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if inFile == "" {
				return errors.New("--in is required")
			}
			data, err := os.ReadFile(inFile)
			if err != nil {
				return err
			}
			encrypted, err := secret.Encrypt(data)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(encrypted)
			return err
		},
	}
	cmd.Flags().StringVar(&inFile, "in", "", "file holding the plain secret")
	return cmd
}

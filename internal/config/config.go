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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/crowdfund/database"
	"github.com/blinklabs-io/crowdfund/database/models"
	"github.com/blinklabs-io/crowdfund/internal/secret"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "crowdfund.config"

const (
	envPrefix              = "crowdfund"
	DefaultShutdownTimeout = 30 * time.Second
)

var ErrNoAuthSecret = errors.New(
	"no auth secret configured: set authSecret or authSecretFile",
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type tempConfig struct {
	Config yaml.Node `yaml:"config,omitempty"`
}

type Config struct {
	DatabasePath       string        `yaml:"databasePath"       split_words:"true"`
	DatabaseDriver     string        `yaml:"databaseDriver"     split_words:"true"`
	DatabaseDsn        string        `yaml:"databaseDsn"        split_words:"true"`
	BindAddr           string        `yaml:"bindAddr"           split_words:"true"`
	ApiPort            uint          `yaml:"apiPort"            split_words:"true"`
	MetricsPort        uint          `yaml:"metricsPort"        split_words:"true"`
	Signers            []string      `yaml:"signers"`
	RequiredApprovals  int           `yaml:"requiredApprovals"  split_words:"true"`
	AuthSecret         string        `yaml:"authSecret"         split_words:"true"`
	AuthSecretFile     string        `yaml:"authSecretFile"     split_words:"true"`
	TokenTtl           time.Duration `yaml:"tokenTtl"           split_words:"true"`
	ShutdownTimeout    time.Duration `yaml:"shutdownTimeout"    split_words:"true"`
	OutboxPollInterval time.Duration `yaml:"outboxPollInterval" split_words:"true"`
	PointsPerReferral  uint64        `yaml:"pointsPerReferral"  split_words:"true"`
	// Input limits (0 = use default)
	MaxTitleLength       int    `yaml:"maxTitleLength"       split_words:"true"`
	MaxDescriptionLength int    `yaml:"maxDescriptionLength" split_words:"true"`
	MaxCommentLength     int    `yaml:"maxCommentLength"     split_words:"true"`
	MinFundingGoal       uint64 `yaml:"minFundingGoal"       split_words:"true"`
	// Tracing exports spans over OTLP/HTTP, or to stdout with TracingStdout
	Tracing       bool `yaml:"tracing"`
	TracingStdout bool `yaml:"tracingStdout" split_words:"true"`
}

var defaultConfig = Config{
	DatabasePath:       ".crowdfund",
	DatabaseDriver:     database.DriverSqlite,
	BindAddr:           "0.0.0.0",
	ApiPort:            8080,
	MetricsPort:        12799,
	TokenTtl:           24 * time.Hour,
	ShutdownTimeout:    DefaultShutdownTimeout,
	OutboxPollInterval: time.Second,
}

// DefaultConfig returns a copy of the built-in defaults
func DefaultConfig() *Config {
	cfg := defaultConfig
	return &cfg
}

// LoadConfig builds the configuration from the defaults, then the YAML file
// (if any), then CROWDFUND_* environment variables. When configFile is empty,
// ~/.crowdfund/crowdfund.yaml and /etc/crowdfund/crowdfund.yaml are tried in
// that order
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()
	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := cfg.overlayYaml(buf); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(homeDir, ".crowdfund", "crowdfund.yaml")
		if _, err := os.Stat(userPath); err == nil {
			return userPath
		}
	}
	systemPath := "/etc/crowdfund/crowdfund.yaml"
	if _, err := os.Stat(systemPath); err == nil {
		return systemPath
	}
	return ""
}

// overlayYaml accepts either a flat document or one nested under a top-level
// "config" key
func (c *Config) overlayYaml(buf []byte) error {
	var tempCfg tempConfig
	if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	if tempCfg.Config.Kind != 0 {
		if err := tempCfg.Config.Decode(c); err != nil {
			return fmt.Errorf("error parsing config section: %w", err)
		}
		return nil
	}
	if err := yaml.Unmarshal(buf, c); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "", database.DriverSqlite:
	case database.DriverPostgres, database.DriverMysql:
		if c.DatabaseDsn == "" {
			return fmt.Errorf(
				"databaseDsn is required for driver %q",
				c.DatabaseDriver,
			)
		}
	default:
		return fmt.Errorf("invalid databaseDriver: %q", c.DatabaseDriver)
	}
	if c.ApiPort > 65535 {
		return fmt.Errorf("invalid apiPort: %d", c.ApiPort)
	}
	if c.MetricsPort > 65535 {
		return fmt.Errorf("invalid metricsPort: %d", c.MetricsPort)
	}
	if c.RequiredApprovals < 0 {
		return fmt.Errorf(
			"invalid requiredApprovals: %d",
			c.RequiredApprovals,
		)
	}
	if c.MaxTitleLength < 0 || c.MaxTitleLength > models.TitleColumnSize {
		return fmt.Errorf(
			"invalid maxTitleLength: %d (must be between 0 and %d)",
			c.MaxTitleLength,
			models.TitleColumnSize,
		)
	}
	if c.MaxCommentLength < 0 || c.MaxCommentLength > models.CommentColumnSize {
		return fmt.Errorf(
			"invalid maxCommentLength: %d (must be between 0 and %d)",
			c.MaxCommentLength,
			models.CommentColumnSize,
		)
	}
	if c.MaxDescriptionLength < 0 {
		return fmt.Errorf(
			"invalid maxDescriptionLength: %d",
			c.MaxDescriptionLength,
		)
	}
	if c.TokenTtl < 0 || c.ShutdownTimeout < 0 || c.OutboxPollInterval < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}

// ApiListenAddress returns the host:port the API server binds to
func (c *Config) ApiListenAddress() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.ApiPort)
}

// MetricsListenAddress returns the host:port of the metrics listener, or an
// empty string when metrics are disabled
func (c *Config) MetricsListenAddress() string {
	if c.MetricsPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.BindAddr, c.MetricsPort)
}

// RequiredApprovalCount returns the configured quorum, defaulting to the
// number of signers
func (c *Config) RequiredApprovalCount() int {
	if c.RequiredApprovals == 0 {
		return len(c.Signers)
	}
	return c.RequiredApprovals
}

// LoadAuthSecret returns the token signing secret. A secret file takes
// precedence over an inline secret and may be SOPS encrypted
func (c *Config) LoadAuthSecret() ([]byte, error) {
	if c.AuthSecretFile != "" {
		return secret.LoadFile(c.AuthSecretFile)
	}
	if c.AuthSecret == "" {
		return nil, ErrNoAuthSecret
	}
	return []byte(c.AuthSecret), nil
}

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

package crowdfund

import (
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/crowdfund/ledger"
	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	promRegistry       prometheus.Registerer
	logger             *slog.Logger
	clock              func() time.Time
	dataDir            string
	databaseDriver     string
	databaseDsn        string
	apiListenAddress   string
	authSecret         []byte
	signers            []string
	requiredApprovals  int
	limits             ledger.Limits
	pointsPerReferral  uint64
	outboxPollInterval time.Duration
	shutdownTimeout    time.Duration
	tracing            bool
	tracingStdout      bool
}

// ConfigOptionFunc is a type that represents functions that modify the node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new node config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. Metrics are not collected by default
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithDatabaseDriver selects the relational store dialect (sqlite, postgres or mysql)
func WithDatabaseDriver(driver string) ConfigOptionFunc {
	return func(c *Config) {
		c.databaseDriver = driver
	}
}

// WithDatabaseDsn specifies the connection string for the postgres and mysql drivers
func WithDatabaseDsn(dsn string) ConfigOptionFunc {
	return func(c *Config) {
		c.databaseDsn = dsn
	}
}

// WithSigners specifies the trusted signer set and the number of approvals
// required to release a milestone. The set cannot be changed later
func WithSigners(requiredApprovals int, signers ...string) ConfigOptionFunc {
	return func(c *Config) {
		c.requiredApprovals = requiredApprovals
		c.signers = signers
	}
}

// WithAuthSecret specifies the HMAC key used to verify API bearer tokens
func WithAuthSecret(secret []byte) ConfigOptionFunc {
	return func(c *Config) {
		c.authSecret = secret
	}
}

// WithApiListenAddress specifies the API listen address. The API is disabled when empty
func WithApiListenAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.apiListenAddress = addr
	}
}

func WithLimits(limits ledger.Limits) ConfigOptionFunc {
	return func(c *Config) {
		c.limits = limits
	}
}

func WithPointsPerReferral(points uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.pointsPerReferral = points
	}
}

// WithOutboxPollInterval specifies how often the outbox dispatcher checks for
// undelivered notifications
func WithOutboxPollInterval(interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.outboxPollInterval = interval
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithClock overrides the time source used for deadlines and timestamps
func WithClock(clock func() time.Time) ConfigOptionFunc {
	return func(c *Config) {
		c.clock = clock
	}
}

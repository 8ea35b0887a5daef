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

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/crowdfund"
	"github.com/blinklabs-io/crowdfund/internal/config"
	"github.com/blinklabs-io/crowdfund/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewNode builds a node from the loaded configuration
func NewNode(
	cfg *config.Config,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*crowdfund.Node, error) {
	authSecret, err := cfg.LoadAuthSecret()
	if err != nil {
		return nil, err
	}
	return crowdfund.New(
		crowdfund.NewConfig(
			crowdfund.WithLogger(logger),
			crowdfund.WithPrometheusRegistry(promRegistry),
			crowdfund.WithDatabasePath(cfg.DatabasePath),
			crowdfund.WithDatabaseDriver(cfg.DatabaseDriver),
			crowdfund.WithDatabaseDsn(cfg.DatabaseDsn),
			crowdfund.WithSigners(
				cfg.RequiredApprovalCount(),
				cfg.Signers...,
			),
			crowdfund.WithAuthSecret(authSecret),
			crowdfund.WithApiListenAddress(cfg.ApiListenAddress()),
			crowdfund.WithLimits(ledger.Limits{
				MaxTitleLength:       cfg.MaxTitleLength,
				MaxDescriptionLength: cfg.MaxDescriptionLength,
				MaxCommentLength:     cfg.MaxCommentLength,
				MinFundingGoal:       cfg.MinFundingGoal,
			}),
			crowdfund.WithPointsPerReferral(cfg.PointsPerReferral),
			crowdfund.WithOutboxPollInterval(cfg.OutboxPollInterval),
			crowdfund.WithShutdownTimeout(cfg.ShutdownTimeout),
			crowdfund.WithTracing(cfg.Tracing),
			crowdfund.WithTracingStdout(cfg.TracingStdout),
		),
	)
}

// Run starts the node and a metrics listener, then blocks until SIGINT or
// SIGTERM is received or the node fails
func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(
		fmt.Sprintf(
			"config: databasePath=%s databaseDriver=%s api=%s signers=%d",
			cfg.DatabasePath,
			cfg.DatabaseDriver,
			cfg.ApiListenAddress(),
			len(cfg.Signers),
		),
		"component", "node",
	)
	n, err := NewNode(cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = config.DefaultShutdownTimeout
	}

	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	// Metrics listener
	var metricsServer *http.Server
	metricsErrChan := make(chan error, 1)
	if addr := cfg.MetricsListenAddress(); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 60 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		logger.Info(
			"serving prometheus metrics on "+addr,
			"component", "node",
		)
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				metricsErrChan <- fmt.Errorf(
					"failed to start metrics listener: %w",
					err,
				)
			}
		}()
	}

	// Run node in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- n.Run(signalCtx)
	}()

	var runErr error
	select {
	case <-signalCtx.Done():
		logger.Info("signal received, initiating graceful shutdown", "component", "node")
	case runErr = <-errChan:
		if runErr != nil {
			logger.Error("node error", "component", "node", "error", runErr)
		}
	case runErr = <-metricsErrChan:
		logger.Error("metrics listener error", "component", "node", "error", runErr)
	}
	signalCtxStop()

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		shutdownTimeout,
	)
	defer cancel()
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "component", "node", "error", err)
		}
	}
	if err := n.Stop(); err != nil {
		logger.Error("shutdown errors occurred", "component", "node", "error", err)
		return errors.Join(runErr, err)
	}
	logger.Info("shutdown complete", "component", "node")
	return runErr
}

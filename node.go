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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/blinklabs-io/crowdfund/api"
	"github.com/blinklabs-io/crowdfund/approval"
	"github.com/blinklabs-io/crowdfund/database"
	"github.com/blinklabs-io/crowdfund/event"
	"github.com/blinklabs-io/crowdfund/identity"
	"github.com/blinklabs-io/crowdfund/ledger"
	"github.com/blinklabs-io/crowdfund/names"
	"github.com/blinklabs-io/crowdfund/outbox"
	"github.com/blinklabs-io/crowdfund/referral"
)

const defaultShutdownTimeout = 30 * time.Second

var ErrAlreadyStarted = errors.New("node already started")

type Node struct {
	config        Config
	signers       *identity.SignerSet
	eventBus      *event.EventBus
	db            *database.Database
	outbox        *outbox.Outbox
	ledger        *ledger.Ledger
	approvals     *approval.Engine
	referrals     *referral.Ledger
	names         *names.Registry
	api           *api.Server
	shutdownFuncs []func(context.Context) error
	done          chan struct{}
	startOnce     sync.Once
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	n := &Node{
		config: cfg,
		done:   make(chan struct{}),
	}
	if err := n.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	signers, err := identity.NewSignerSetWithQuorum(
		cfg.requiredApprovals,
		cfg.signers...,
	)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	n.signers = signers
	return n, nil
}

func (n *Node) configValidate() error {
	if n.config.apiListenAddress != "" && len(n.config.authSecret) == 0 {
		return errors.New("an auth secret is required when the API is enabled")
	}
	switch n.config.databaseDriver {
	case "", database.DriverSqlite, database.DriverPostgres, database.DriverMysql:
	default:
		return fmt.Errorf("unknown database driver: %s", n.config.databaseDriver)
	}
	return nil
}

// Start opens storage and starts every component. The API listener is only
// started when a listen address is configured
func (n *Node) Start(ctx context.Context) error {
	err := ErrAlreadyStarted
	n.startOnce.Do(func() {
		err = n.start(ctx)
	})
	return err
}

func (n *Node) start(ctx context.Context) error {
	logger := n.config.logger
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(ctx); err != nil {
			return err
		}
	}
	n.eventBus = event.NewEventBus(n.config.promRegistry, logger)
	// Load database
	db, err := database.New(database.Config{
		Logger:         logger,
		PromRegistry:   n.config.promRegistry,
		DataDir:        n.config.dataDir,
		Driver:         n.config.databaseDriver,
		DSN:            n.config.databaseDsn,
		DisableTracing: !n.config.tracing,
	})
	if db != nil {
		n.db = db
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	n.outbox, err = outbox.New(outbox.OutboxConfig{
		Logger:       logger,
		Database:     n.db,
		EventBus:     n.eventBus,
		PromRegistry: n.config.promRegistry,
		PollInterval: n.config.outboxPollInterval,
	})
	if err != nil {
		return fmt.Errorf("failed to create outbox: %w", err)
	}
	n.ledger, err = ledger.New(ledger.LedgerConfig{
		Logger:       logger,
		Database:     n.db,
		Outbox:       n.outbox,
		PromRegistry: n.config.promRegistry,
		Clock:        n.config.clock,
		Limits:       n.config.limits,
	})
	if err != nil {
		return fmt.Errorf("failed to create ledger: %w", err)
	}
	n.approvals, err = approval.New(approval.EngineConfig{
		Logger:       logger,
		Database:     n.db,
		Ledger:       n.ledger,
		Outbox:       n.outbox,
		Signers:      n.signers,
		PromRegistry: n.config.promRegistry,
		Clock:        n.config.clock,
	})
	if err != nil {
		return fmt.Errorf("failed to create approval engine: %w", err)
	}
	n.referrals, err = referral.New(referral.LedgerConfig{
		Logger:            logger,
		Database:          n.db,
		Outbox:            n.outbox,
		EventBus:          n.eventBus,
		PromRegistry:      n.config.promRegistry,
		Clock:             n.config.clock,
		PointsPerReferral: n.config.pointsPerReferral,
	})
	if err != nil {
		return fmt.Errorf("failed to create referral ledger: %w", err)
	}
	// Subscribe before the dispatcher runs so that no Funded event is missed
	if err := n.referrals.Start(); err != nil {
		return fmt.Errorf("failed to start referral ledger: %w", err)
	}
	n.names = names.New(n.db.KV(), logger)
	if err := n.outbox.Start(ctx); err != nil {
		return fmt.Errorf("failed to start outbox: %w", err)
	}
	if n.config.apiListenAddress != "" {
		n.api, err = api.New(
			api.ServerConfig{
				ListenAddress: n.config.apiListenAddress,
				AuthSecret:    n.config.authSecret,
			},
			api.Services{
				Ledger:    n.ledger,
				Approvals: n.approvals,
				Referrals: n.referrals,
				Names:     n.names,
			},
			logger,
		)
		if err != nil {
			return fmt.Errorf("failed to create API server: %w", err)
		}
		if err := n.api.Start(ctx); err != nil {
			return err
		}
	}
	logger.Info(
		"node started",
		"component", "node",
		"signers", n.signers.Size(),
	)
	return nil
}

// Run starts the node and blocks until ctx is cancelled or Stop is called
func (n *Node) Run(ctx context.Context) error {
	if err := n.Start(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-n.done:
	}
	return nil
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	shutdownTimeout := defaultShutdownTimeout
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown", "component", "node")

	// Phase 1: Stop accepting new work
	if n.api != nil {
		if stopErr := n.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}

	// Phase 2: Stop delivering notifications
	if n.outbox != nil {
		n.outbox.Stop()
	}
	if n.referrals != nil {
		n.referrals.Stop()
	}
	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	// Phase 3: Close storage
	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	// Phase 4: Cleanup resources
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	n.config.logger.Debug("graceful shutdown complete", "component", "node")
	close(n.done)
	return err
}

// ApiAddr returns the bound API address, or nil when the API is not running
func (n *Node) ApiAddr() net.Addr {
	if n.api == nil {
		return nil
	}
	return n.api.Addr()
}

func (n *Node) Signers() *identity.SignerSet {
	return n.signers
}

func (n *Node) Ledger() *ledger.Ledger {
	return n.ledger
}

func (n *Node) Approvals() *approval.Engine {
	return n.approvals
}

func (n *Node) Referrals() *referral.Ledger {
	return n.referrals
}

func (n *Node) Names() *names.Registry {
	return n.names
}

func (n *Node) Outbox() *outbox.Outbox {
	return n.outbox
}

func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

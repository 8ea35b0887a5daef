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

// Package ledger holds the authoritative campaign state: campaigns,
// contributions and the withdrawals that release escrowed funds to campaign
// creators.
package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/crowdfund/database"
	"github.com/blinklabs-io/crowdfund/outbox"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/blinklabs-io/crowdfund/ledger"

// ApprovalChecker reports whether a milestone increment has the approvals it
// needs. It is called inside the withdrawing transaction
type ApprovalChecker interface {
	IsFullyApprovedTxn(
		txn *database.Txn,
		campaignId uint64,
		milestoneIndex int,
	) (bool, error)
}

type LedgerConfig struct {
	Logger       *slog.Logger
	Database     *database.Database
	Outbox       *outbox.Outbox
	PromRegistry prometheus.Registerer
	// Clock returns the current time. It defaults to time.Now
	Clock  func() time.Time
	Limits Limits
}

type Ledger struct {
	config      LedgerConfig
	logger      *slog.Logger
	db          *database.Database
	outbox      *outbox.Outbox
	approvals   ApprovalChecker
	tracer      trace.Tracer
	metrics     ledgerMetrics
	approvalsMu sync.RWMutex
}

func New(cfg LedgerConfig) (*Ledger, error) {
	if cfg.Database == nil {
		return nil, errors.New("ledger requires a database")
	}
	if cfg.Outbox == nil {
		return nil, errors.New("ledger requires an outbox")
	}
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	cfg.Limits = cfg.Limits.withDefaults()
	l := &Ledger{
		config: cfg,
		logger: cfg.Logger.With("component", "ledger"),
		db:     cfg.Database,
		outbox: cfg.Outbox,
		tracer: otel.Tracer(tracerName),
	}
	l.metrics.init(cfg.PromRegistry)
	registerEvents(cfg.Outbox)
	return l, nil
}

// SetApprovalChecker sets the approval source consulted by Withdraw
func (l *Ledger) SetApprovalChecker(checker ApprovalChecker) {
	l.approvalsMu.Lock()
	defer l.approvalsMu.Unlock()
	l.approvals = checker
}

func (l *Ledger) approvalChecker() ApprovalChecker {
	l.approvalsMu.RLock()
	defer l.approvalsMu.RUnlock()
	return l.approvals
}

// Limits returns the effective input limits
func (l *Ledger) Limits() Limits {
	return l.config.Limits
}

func (l *Ledger) now() time.Time {
	return l.config.Clock()
}

func (l *Ledger) startSpan(
	ctx context.Context,
	name string,
	attrs ...attribute.KeyValue,
) (context.Context, trace.Span) {
	return l.tracer.Start(
		ctx,
		"ledger."+name,
		trace.WithAttributes(attrs...),
	)
}

// finishSpan records the outcome of an operation on its span and metrics
func (l *Ledger) finishSpan(span trace.Span, operation string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.metrics.operationsRejected.WithLabelValues(operation).Inc()
	}
	span.End()
}

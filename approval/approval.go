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

// Package approval records trusted signer approvals for milestone increments
// and answers whether an increment may be released.
package approval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/crowdfund/database"
	"github.com/blinklabs-io/crowdfund/database/models"
	"github.com/blinklabs-io/crowdfund/escrow"
	"github.com/blinklabs-io/crowdfund/event"
	"github.com/blinklabs-io/crowdfund/identity"
	"github.com/blinklabs-io/crowdfund/ledger"
	"github.com/blinklabs-io/crowdfund/outbox"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const MilestoneApprovedEventType event.EventType = "approval.milestone_approved"

// MilestoneApprovedEvent is published the first time a signer approves an
// increment
type MilestoneApprovedEvent struct {
	Signer         identity.Principal
	CampaignID     uint64
	MilestoneIndex int
}

type EngineConfig struct {
	Logger       *slog.Logger
	Database     *database.Database
	Ledger       *ledger.Ledger
	Outbox       *outbox.Outbox
	Signers      *identity.SignerSet
	PromRegistry prometheus.Registerer
	Clock        func() time.Time
}

type Engine struct {
	config            EngineConfig
	logger            *slog.Logger
	tracer            trace.Tracer
	approvalsRecorded prometheus.Counter
}

// Status describes the approvals collected for the earliest unclaimed
// increment of a campaign
type Status struct {
	Approvers      []identity.Principal
	CampaignID     uint64
	MilestoneIndex int
	Approved       int
	Required       int
	Claimed        int
	Unlocked       int
}

// New creates an approval engine and registers it as the ledger's approval
// source
func New(cfg EngineConfig) (*Engine, error) {
	if cfg.Database == nil || cfg.Ledger == nil || cfg.Outbox == nil {
		return nil, errors.New("approval engine requires a database, ledger and outbox")
	}
	if cfg.Signers.Size() == 0 {
		return nil, identity.ErrEmptySignerSet
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	e := &Engine{
		config: cfg,
		logger: cfg.Logger.With("component", "approval"),
		tracer: otel.Tracer("github.com/blinklabs-io/crowdfund/approval"),
		approvalsRecorded: promauto.With(cfg.PromRegistry).NewCounter(
			prometheus.CounterOpts{
				Name: "crowdfund_approval_recorded_total",
				Help: "number of distinct milestone approvals recorded",
			},
		),
	}
	outbox.Register[MilestoneApprovedEvent](cfg.Outbox, MilestoneApprovedEventType)
	cfg.Ledger.SetApprovalChecker(e)
	return e, nil
}

// Signers returns the trusted signer set
func (e *Engine) Signers() *identity.SignerSet {
	return e.config.Signers
}

func checkMilestoneIndex(milestoneIndex int) error {
	if milestoneIndex < 0 || milestoneIndex >= escrow.Milestones {
		return fmt.Errorf(
			"milestone index %d out of range: %w",
			milestoneIndex,
			ledger.ErrInvalidArgument,
		)
	}
	return nil
}

// ApproveIncrement records caller's approval of a milestone increment. The
// increment must be unlocked and not yet claimed. Approving twice is a no-op
func (e *Engine) ApproveIncrement(
	ctx context.Context,
	caller identity.Principal,
	campaignId uint64,
	milestoneIndex int,
) (err error) {
	ctx, span := e.tracer.Start(
		ctx,
		"approval.ApproveIncrement",
		trace.WithAttributes(
			attribute.Int64("campaign.id", int64(campaignId)), //nolint:gosec
			attribute.Int("milestone.index", milestoneIndex),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	if !e.config.Signers.IsTrustedSigner(caller) {
		return fmt.Errorf("%s is not a trusted signer: %w", caller, ledger.ErrUnauthorized)
	}
	if err := checkMilestoneIndex(milestoneIndex); err != nil {
		return err
	}
	var created bool
	err = e.config.Database.Update(ctx, func(txn *database.Txn) error {
		claimed, unlocked, err := e.config.Ledger.MilestoneWindow(txn, campaignId)
		if err != nil {
			return err
		}
		if milestoneIndex < claimed || milestoneIndex >= unlocked {
			return fmt.Errorf(
				"increment %d of campaign %d is not awaiting approval (claimed %d, unlocked %d): %w",
				milestoneIndex,
				campaignId,
				claimed,
				unlocked,
				ledger.ErrInvalidArgument,
			)
		}
		created, err = txn.DB().AddMilestoneApproval(&models.MilestoneApproval{
			CampaignID:     campaignId,
			MilestoneIndex: uint8(milestoneIndex), //nolint:gosec // checked above
			Signer:         caller.String(),
			CreatedAt:      e.config.Clock().UTC(),
		}, txn)
		if err != nil {
			return err
		}
		if !created {
			return nil
		}
		return e.config.Outbox.Enqueue(
			txn,
			MilestoneApprovedEventType,
			campaignId,
			MilestoneApprovedEvent{
				CampaignID:     campaignId,
				MilestoneIndex: milestoneIndex,
				Signer:         caller,
			},
		)
	})
	if err != nil {
		return err
	}
	if created {
		e.approvalsRecorded.Inc()
		e.logger.Info(
			"milestone approved",
			"campaign_id", campaignId,
			"milestone_index", milestoneIndex,
			"signer", caller.String(),
		)
	}
	return nil
}

// trustedApprovers returns the trusted signers that approved an increment, in
// approval order
func (e *Engine) trustedApprovers(
	txn *database.Txn,
	campaignId uint64,
	milestoneIndex int,
) ([]identity.Principal, error) {
	approvals, err := txn.DB().GetMilestoneApprovals(
		campaignId,
		uint8(milestoneIndex), //nolint:gosec // callers check the range
		txn,
	)
	if err != nil {
		return nil, err
	}
	ret := make([]identity.Principal, 0, len(approvals))
	for _, tmpApproval := range approvals {
		signer := identity.Principal(tmpApproval.Signer)
		if e.config.Signers.IsTrustedSigner(signer) {
			ret = append(ret, signer)
		}
	}
	return ret, nil
}

// IsFullyApprovedTxn reports whether every trusted signer approved an
// increment, as seen by txn
func (e *Engine) IsFullyApprovedTxn(
	txn *database.Txn,
	campaignId uint64,
	milestoneIndex int,
) (bool, error) {
	if err := checkMilestoneIndex(milestoneIndex); err != nil {
		return false, err
	}
	approvers, err := e.trustedApprovers(txn, campaignId, milestoneIndex)
	if err != nil {
		return false, err
	}
	return len(approvers) >= e.config.Signers.RequiredApprovals(), nil
}

// IsFullyApproved reports whether every trusted signer approved an increment
func (e *Engine) IsFullyApproved(
	ctx context.Context,
	campaignId uint64,
	milestoneIndex int,
) (bool, error) {
	var ret bool
	err := e.config.Database.View(ctx, func(txn *database.Txn) error {
		if _, _, err := e.config.Ledger.MilestoneWindow(txn, campaignId); err != nil {
			return err
		}
		var err error
		ret, err = e.IsFullyApprovedTxn(txn, campaignId, milestoneIndex)
		return err
	})
	return ret, err
}

// Approvers returns the trusted signers that approved an increment
func (e *Engine) Approvers(
	ctx context.Context,
	campaignId uint64,
	milestoneIndex int,
) ([]identity.Principal, error) {
	if err := checkMilestoneIndex(milestoneIndex); err != nil {
		return nil, err
	}
	var ret []identity.Principal
	err := e.config.Database.View(ctx, func(txn *database.Txn) error {
		if _, _, err := e.config.Ledger.MilestoneWindow(txn, campaignId); err != nil {
			return err
		}
		var err error
		ret, err = e.trustedApprovers(txn, campaignId, milestoneIndex)
		return err
	})
	return ret, err
}

// ApprovalStatus reports approval progress for the earliest unclaimed
// increment. Once every increment is claimed the status refers to index 3
// and reports the approval requirement as met
func (e *Engine) ApprovalStatus(
	ctx context.Context,
	campaignId uint64,
) (Status, error) {
	required := e.config.Signers.RequiredApprovals()
	ret := Status{
		CampaignID: campaignId,
		Required:   required,
	}
	err := e.config.Database.View(ctx, func(txn *database.Txn) error {
		claimed, unlocked, err := e.config.Ledger.MilestoneWindow(txn, campaignId)
		if err != nil {
			return err
		}
		ret.Claimed = claimed
		ret.Unlocked = unlocked
		ret.MilestoneIndex = claimed
		if claimed >= escrow.Milestones {
			ret.Approved = required
			ret.Approvers = []identity.Principal{}
			return nil
		}
		ret.Approvers, err = e.trustedApprovers(txn, campaignId, claimed)
		if err != nil {
			return err
		}
		ret.Approved = len(ret.Approvers)
		return nil
	})
	return ret, err
}

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

package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blinklabs-io/crowdfund/database"
	"github.com/blinklabs-io/crowdfund/database/models"
	"github.com/blinklabs-io/crowdfund/escrow"
	"github.com/blinklabs-io/crowdfund/identity"
	"go.opentelemetry.io/otel/attribute"
)

// Campaign is a funding request as seen by readers. IsOpen and
// UnlockedIncrements are derived at read time
type Campaign struct {
	Deadline           time.Time
	CreatedAt          time.Time
	Creator            identity.Principal
	Title              string
	Description        string
	ID                 uint64
	FundingGoal        uint64
	TotalRaised        uint64
	AmountReleased     uint64
	MilestonesClaimed  int
	UnlockedIncrements int
	IsOpen             bool
}

type CreateCampaignParams struct {
	Deadline    time.Time
	Title       string
	Description string
	FundingGoal uint64
}

func (l *Ledger) campaignFromModel(c models.Campaign) Campaign {
	return Campaign{
		ID:                 c.ID,
		Creator:            identity.Principal(c.Creator),
		Title:              c.Title,
		Description:        c.Description,
		FundingGoal:        uint64(c.FundingGoal),
		TotalRaised:        uint64(c.TotalRaised),
		AmountReleased:     uint64(c.AmountReleased),
		Deadline:           c.Deadline,
		CreatedAt:          c.CreatedAt,
		MilestonesClaimed:  int(c.MilestonesClaimed),
		UnlockedIncrements: escrow.UnlockedIncrements(uint64(c.TotalRaised), uint64(c.FundingGoal)),
		IsOpen:             c.IsOpen(l.now()),
	}
}

// loadCampaign fetches a campaign row and maps a missing row to ErrNotFound
func (l *Ledger) loadCampaign(
	txn *database.Txn,
	id uint64,
	forUpdate bool,
) (models.Campaign, error) {
	campaign, err := l.db.GetCampaign(id, forUpdate, txn)
	if err != nil {
		if errors.Is(err, database.ErrCampaignNotFound) {
			return campaign, fmt.Errorf("campaign %d: %w", id, ErrNotFound)
		}
		return campaign, fmt.Errorf("load campaign %d: %w", id, err)
	}
	return campaign, nil
}

// CreateCampaign stores a new campaign owned by caller and returns its ID
func (l *Ledger) CreateCampaign(
	ctx context.Context,
	caller identity.Principal,
	params CreateCampaignParams,
) (uint64, error) {
	ctx, span := l.startSpan(ctx, "CreateCampaign")
	var err error
	defer func() { l.finishSpan(span, "create_campaign", err) }()
	if caller.IsZero() {
		err = fmt.Errorf("no caller principal: %w", ErrUnauthorized)
		return 0, err
	}
	if err = l.validateCampaignParams(params); err != nil {
		return 0, err
	}
	tmpCampaign := &models.Campaign{
		Creator:     caller.String(),
		Title:       params.Title,
		Description: params.Description,
		FundingGoal: toDbAmount(params.FundingGoal),
		Deadline:    params.Deadline.UTC(),
		CreatedAt:   l.now().UTC(),
	}
	err = l.db.Update(ctx, func(txn *database.Txn) error {
		if err := l.db.CreateCampaign(tmpCampaign, txn); err != nil {
			return err
		}
		return l.outbox.Enqueue(
			txn,
			CampaignCreatedEventType,
			tmpCampaign.ID,
			CampaignCreatedEvent{
				CampaignID:  tmpCampaign.ID,
				Creator:     caller,
				FundingGoal: params.FundingGoal,
			},
		)
	})
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int64("campaign.id", int64(tmpCampaign.ID))) //nolint:gosec
	l.metrics.campaignsCreated.Inc()
	l.logger.Info(
		"campaign created",
		"campaign_id", tmpCampaign.ID,
		"creator", caller.String(),
		"funding_goal", params.FundingGoal,
	)
	return tmpCampaign.ID, nil
}

func (l *Ledger) validateCampaignParams(params CreateCampaignParams) error {
	limits := l.config.Limits
	switch {
	case strings.TrimSpace(params.Title) == "":
		return fmt.Errorf("empty title: %w", ErrInvalidArgument)
	case len(params.Title) > limits.MaxTitleLength:
		return fmt.Errorf(
			"title longer than %d bytes: %w",
			limits.MaxTitleLength,
			ErrInvalidArgument,
		)
	case strings.TrimSpace(params.Description) == "":
		return fmt.Errorf("empty description: %w", ErrInvalidArgument)
	case len(params.Description) > limits.MaxDescriptionLength:
		return fmt.Errorf(
			"description longer than %d bytes: %w",
			limits.MaxDescriptionLength,
			ErrInvalidArgument,
		)
	case params.FundingGoal == 0 || params.FundingGoal < limits.MinFundingGoal:
		return fmt.Errorf(
			"funding goal must be at least %d: %w",
			limits.MinFundingGoal,
			ErrInvalidArgument,
		)
	case !params.Deadline.After(l.now()):
		return fmt.Errorf("deadline must be in the future: %w", ErrInvalidArgument)
	}
	return nil
}

// GetCampaign returns the campaign with the given ID
func (l *Ledger) GetCampaign(ctx context.Context, id uint64) (Campaign, error) {
	var ret Campaign
	err := l.db.View(ctx, func(txn *database.Txn) error {
		campaign, err := l.loadCampaign(txn, id, false)
		if err != nil {
			return err
		}
		ret = l.campaignFromModel(campaign)
		return nil
	})
	return ret, err
}

// ListCampaigns returns every campaign in creation order
func (l *Ledger) ListCampaigns(ctx context.Context) ([]Campaign, error) {
	var ret []Campaign
	err := l.db.View(ctx, func(txn *database.Txn) error {
		campaigns, err := l.db.GetCampaigns(txn)
		if err != nil {
			return err
		}
		ret = make([]Campaign, 0, len(campaigns))
		for _, campaign := range campaigns {
			ret = append(ret, l.campaignFromModel(campaign))
		}
		return nil
	})
	return ret, err
}

// UnlockedIncrements returns how many release increments the amount raised
// so far has unlocked
func (l *Ledger) UnlockedIncrements(ctx context.Context, id uint64) (int, error) {
	campaign, err := l.GetCampaign(ctx, id)
	if err != nil {
		return 0, err
	}
	return campaign.UnlockedIncrements, nil
}

// MilestoneWindow returns the number of claimed and unlocked increments for a
// campaign as seen by txn. Increment indexes in [claimed, unlocked) are the
// ones waiting for release
func (l *Ledger) MilestoneWindow(
	txn *database.Txn,
	id uint64,
) (int, int, error) {
	campaign, err := l.loadCampaign(txn, id, false)
	if err != nil {
		return 0, 0, err
	}
	unlocked := escrow.UnlockedIncrements(
		uint64(campaign.TotalRaised),
		uint64(campaign.FundingGoal),
	)
	return int(campaign.MilestonesClaimed), unlocked, nil
}

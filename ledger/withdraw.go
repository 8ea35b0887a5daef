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
	"math/bits"
	"time"

	"github.com/blinklabs-io/crowdfund/database"
	"github.com/blinklabs-io/crowdfund/database/models"
	"github.com/blinklabs-io/crowdfund/database/types"
	"github.com/blinklabs-io/crowdfund/escrow"
	"github.com/blinklabs-io/crowdfund/identity"
	"go.opentelemetry.io/otel/attribute"
)

// Withdrawal records funds released to a campaign creator
type Withdrawal struct {
	CreatedAt     time.Time
	Recipient     identity.Principal
	ID            uint64
	CampaignID    uint64
	Amount        uint64
	FromMilestone int
	ToMilestone   int
}

func withdrawalFromModel(w models.Withdrawal) Withdrawal {
	return Withdrawal{
		ID:            w.ID,
		CampaignID:    w.CampaignID,
		Recipient:     identity.Principal(w.Recipient),
		Amount:        uint64(w.Amount),
		FromMilestone: int(w.FromMilestone),
		ToMilestone:   int(w.ToMilestone),
		CreatedAt:     w.CreatedAt,
	}
}

// Withdraw releases every unlocked increment that has not been claimed yet
// to the campaign creator and returns the amount released. All pending
// increments must be fully approved
func (l *Ledger) Withdraw(
	ctx context.Context,
	caller identity.Principal,
	campaignId uint64,
) (uint64, error) {
	ctx, span := l.startSpan(
		ctx,
		"Withdraw",
		attribute.Int64("campaign.id", int64(campaignId)), //nolint:gosec
	)
	var err error
	defer func() { l.finishSpan(span, "withdraw", err) }()
	checker := l.approvalChecker()
	if checker == nil {
		err = errors.New("no approval checker configured")
		return 0, err
	}
	var released uint64
	var fromMilestone, toMilestone int
	err = l.db.Update(ctx, func(txn *database.Txn) error {
		campaign, err := l.loadCampaign(txn, campaignId, true)
		if err != nil {
			return err
		}
		if caller.IsZero() || caller.String() != campaign.Creator {
			return fmt.Errorf(
				"only the creator may withdraw from campaign %d: %w",
				campaign.ID,
				ErrUnauthorized,
			)
		}
		claimed := int(campaign.MilestonesClaimed)
		unlocked := escrow.UnlockedIncrements(
			uint64(campaign.TotalRaised),
			uint64(campaign.FundingGoal),
		)
		if unlocked <= claimed {
			return fmt.Errorf(
				"campaign %d has %d of %d unlocked increments claimed: %w",
				campaign.ID,
				claimed,
				unlocked,
				ErrNothingToClaim,
			)
		}
		for idx := claimed; idx < unlocked; idx++ {
			approved, err := checker.IsFullyApprovedTxn(txn, campaign.ID, idx)
			if err != nil {
				return err
			}
			if !approved {
				return fmt.Errorf(
					"campaign %d increment %d: %w",
					campaign.ID,
					idx,
					ErrNotYetApproved,
				)
			}
		}
		amount := escrow.ReleaseAmount(uint64(campaign.FundingGoal), claimed, unlocked)
		newReleased, carry := bits.Add64(uint64(campaign.AmountReleased), amount, 0)
		if carry != 0 || newReleased > uint64(campaign.TotalRaised) {
			return fmt.Errorf(
				"campaign %d release of %d exceeds funds raised: %w",
				campaign.ID,
				amount,
				ErrOverflow,
			)
		}
		if err := l.db.AdvanceCampaignMilestones(
			campaign.ID,
			campaign.MilestonesClaimed,
			uint8(unlocked), //nolint:gosec // at most escrow.Milestones
			toDbAmount(newReleased),
			txn,
		); err != nil {
			if errors.Is(err, types.ErrStaleRecord) {
				return fmt.Errorf(
					"campaign %d was withdrawn concurrently: %w",
					campaign.ID,
					ErrNothingToClaim,
				)
			}
			return err
		}
		if err := l.db.AddWithdrawal(&models.Withdrawal{
			CampaignID:    campaign.ID,
			Recipient:     campaign.Creator,
			Amount:        toDbAmount(amount),
			FromMilestone: campaign.MilestonesClaimed,
			ToMilestone:   uint8(unlocked), //nolint:gosec // at most escrow.Milestones
			CreatedAt:     l.now().UTC(),
		}, txn); err != nil {
			return err
		}
		released = amount
		fromMilestone = claimed
		toMilestone = unlocked
		return l.outbox.Enqueue(
			txn,
			FundsWithdrawnEventType,
			campaign.ID,
			FundsWithdrawnEvent{
				CampaignID:    campaign.ID,
				Recipient:     caller,
				Amount:        amount,
				FromMilestone: claimed,
				ToMilestone:   unlocked,
			},
		)
	})
	if err != nil {
		return 0, err
	}
	l.metrics.withdrawals.Inc()
	l.metrics.lovelaceReleased.Add(float64(released))
	l.logger.Info(
		"funds withdrawn",
		"campaign_id", campaignId,
		"recipient", caller.String(),
		"amount", released,
		"from_milestone", fromMilestone,
		"to_milestone", toMilestone,
	)
	return released, nil
}

// ListWithdrawals returns the withdrawals made from a campaign in order
func (l *Ledger) ListWithdrawals(
	ctx context.Context,
	campaignId uint64,
) ([]Withdrawal, error) {
	var ret []Withdrawal
	err := l.db.View(ctx, func(txn *database.Txn) error {
		if _, err := l.loadCampaign(txn, campaignId, false); err != nil {
			return err
		}
		withdrawals, err := l.db.GetWithdrawals(campaignId, txn)
		if err != nil {
			return err
		}
		ret = make([]Withdrawal, 0, len(withdrawals))
		for _, withdrawal := range withdrawals {
			ret = append(ret, withdrawalFromModel(withdrawal))
		}
		return nil
	})
	return ret, err
}

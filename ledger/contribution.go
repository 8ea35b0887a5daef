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
	"fmt"
	"math/bits"
	"slices"
	"time"

	"github.com/blinklabs-io/crowdfund/database"
	"github.com/blinklabs-io/crowdfund/database/models"
	"github.com/blinklabs-io/crowdfund/database/types"
	"github.com/blinklabs-io/crowdfund/identity"
	"go.opentelemetry.io/otel/attribute"
)

type Contribution struct {
	CreatedAt   time.Time
	Contributor identity.Principal
	Referrer    identity.Principal
	Comment     string
	ID          uint64
	CampaignID  uint64
	Amount      uint64
}

type ContributeParams struct {
	Comment    string
	Referrer   identity.Principal
	CampaignID uint64
	Amount     uint64
}

// PageParams selects a page of records in insertion order
type PageParams struct {
	Count      int
	Page       int
	Descending bool
}

func toDbAmount(amount uint64) types.Uint64 {
	return types.Uint64(amount)
}

func contributionFromModel(c models.Contribution) Contribution {
	return Contribution{
		ID:          c.ID,
		CampaignID:  c.CampaignID,
		Contributor: identity.Principal(c.Contributor),
		Referrer:    identity.Principal(c.Referrer),
		Comment:     c.Comment,
		Amount:      uint64(c.Amount),
		CreatedAt:   c.CreatedAt,
	}
}

// Contribute adds funds from caller to an open campaign. Contributions past
// the funding goal are accepted
func (l *Ledger) Contribute(
	ctx context.Context,
	caller identity.Principal,
	params ContributeParams,
) error {
	ctx, span := l.startSpan(
		ctx,
		"Contribute",
		attribute.Int64("campaign.id", int64(params.CampaignID)), //nolint:gosec
	)
	var err error
	defer func() { l.finishSpan(span, "contribute", err) }()
	if caller.IsZero() {
		err = fmt.Errorf("no caller principal: %w", ErrUnauthorized)
		return err
	}
	switch {
	case params.Amount == 0:
		err = fmt.Errorf("amount must be positive: %w", ErrInvalidArgument)
	case len(params.Comment) > l.config.Limits.MaxCommentLength:
		err = fmt.Errorf(
			"comment longer than %d bytes: %w",
			l.config.Limits.MaxCommentLength,
			ErrInvalidArgument,
		)
	case !params.Referrer.IsZero() && params.Referrer == caller:
		err = fmt.Errorf("contributor cannot refer themselves: %w", ErrInvalidArgument)
	}
	if err != nil {
		return err
	}
	err = l.db.Update(ctx, func(txn *database.Txn) error {
		campaign, err := l.loadCampaign(txn, params.CampaignID, true)
		if err != nil {
			return err
		}
		now := l.now()
		if !campaign.IsOpen(now) {
			return fmt.Errorf(
				"campaign %d closed at %s: %w",
				campaign.ID,
				campaign.Deadline.Format(time.RFC3339),
				ErrInvalidArgument,
			)
		}
		newTotal, carry := bits.Add64(
			uint64(campaign.TotalRaised),
			params.Amount,
			0,
		)
		if carry != 0 {
			return fmt.Errorf("campaign %d total raised: %w", campaign.ID, ErrOverflow)
		}
		if err := l.db.AddContribution(&models.Contribution{
			CampaignID:  campaign.ID,
			Contributor: caller.String(),
			Referrer:    params.Referrer.String(),
			Comment:     params.Comment,
			Amount:      toDbAmount(params.Amount),
			CreatedAt:   now.UTC(),
		}, txn); err != nil {
			return err
		}
		if err := l.db.SetCampaignTotalRaised(
			campaign.ID,
			campaign.TotalRaised,
			toDbAmount(newTotal),
			txn,
		); err != nil {
			return fmt.Errorf("update campaign %d total: %w", campaign.ID, err)
		}
		return l.outbox.Enqueue(
			txn,
			FundedEventType,
			campaign.ID,
			FundedEvent{
				CampaignID:  campaign.ID,
				Contributor: caller,
				Referrer:    params.Referrer,
				Amount:      params.Amount,
			},
		)
	})
	if err != nil {
		return err
	}
	l.metrics.contributions.Inc()
	l.metrics.lovelaceRaised.Add(float64(params.Amount))
	l.logger.Debug(
		"contribution accepted",
		"campaign_id", params.CampaignID,
		"contributor", caller.String(),
		"amount", params.Amount,
	)
	return nil
}

// ListContributions returns a campaign's contributions sorted by amount,
// largest first. Equal amounts keep their insertion order
func (l *Ledger) ListContributions(
	ctx context.Context,
	campaignId uint64,
) ([]Contribution, error) {
	var ret []Contribution
	err := l.db.View(ctx, func(txn *database.Txn) error {
		if _, err := l.loadCampaign(txn, campaignId, false); err != nil {
			return err
		}
		contributions, err := l.db.GetContributions(campaignId, txn)
		if err != nil {
			return err
		}
		ret = make([]Contribution, 0, len(contributions))
		for _, contribution := range contributions {
			ret = append(ret, contributionFromModel(contribution))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(ret, func(a, b Contribution) int {
		switch {
		case a.Amount > b.Amount:
			return -1
		case a.Amount < b.Amount:
			return 1
		}
		return 0
	})
	return ret, nil
}

// TopContributors returns the n largest contributions to a campaign. A
// non-positive n selects the default of three
func (l *Ledger) TopContributors(
	ctx context.Context,
	campaignId uint64,
	n int,
) ([]Contribution, error) {
	if n <= 0 {
		n = DefaultTopContributors
	}
	contributions, err := l.ListContributions(ctx, campaignId)
	if err != nil {
		return nil, err
	}
	if len(contributions) > n {
		contributions = contributions[:n]
	}
	return contributions, nil
}

// ContributionHistory returns a page of a campaign's contributions in the
// order they were made, along with the total number of contributions
func (l *Ledger) ContributionHistory(
	ctx context.Context,
	campaignId uint64,
	page PageParams,
) ([]Contribution, int64, error) {
	if page.Count <= 0 || page.Page <= 0 {
		return nil, 0, fmt.Errorf("invalid page selection: %w", ErrInvalidArgument)
	}
	var ret []Contribution
	var total int64
	err := l.db.View(ctx, func(txn *database.Txn) error {
		if _, err := l.loadCampaign(txn, campaignId, false); err != nil {
			return err
		}
		contributions, count, err := l.db.GetContributionsPage(
			campaignId,
			page.Count,
			(page.Page-1)*page.Count,
			page.Descending,
			txn,
		)
		if err != nil {
			return err
		}
		total = count
		ret = make([]Contribution, 0, len(contributions))
		for _, contribution := range contributions {
			ret = append(ret, contributionFromModel(contribution))
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return ret, total, nil
}

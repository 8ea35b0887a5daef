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

package api

import (
	"strconv"
	"time"

	"github.com/blinklabs-io/crowdfund/approval"
	"github.com/blinklabs-io/crowdfund/escrow"
	"github.com/blinklabs-io/crowdfund/identity"
	"github.com/blinklabs-io/crowdfund/ledger"
)

// Amounts are encoded as decimal strings so that they survive JSON clients
// that use floating point numbers

type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

type HealthResponse struct {
	IsHealthy bool `json:"is_healthy"`
}

type CampaignResponse struct {
	Deadline           time.Time `json:"deadline"`
	CreatedAt          time.Time `json:"created_at"`
	Creator            string    `json:"creator"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	FundingGoal        string    `json:"funding_goal"`
	TotalRaised        string    `json:"total_raised"`
	AmountReleased     string    `json:"amount_released"`
	ID                 uint64    `json:"id"`
	MilestonesClaimed  int       `json:"milestones_claimed"`
	UnlockedIncrements int       `json:"unlocked_increments"`
	IsOpen             bool      `json:"is_open"`
}

type CreateCampaignRequest struct {
	Deadline    time.Time `json:"deadline"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	FundingGoal string    `json:"funding_goal"`
}

type CreateCampaignResponse struct {
	ID uint64 `json:"id"`
}

type ContributionResponse struct {
	CreatedAt   time.Time `json:"created_at"`
	Contributor string    `json:"contributor"`
	Referrer    string    `json:"referrer,omitempty"`
	Comment     string    `json:"comment"`
	Amount      string    `json:"amount"`
	ID          uint64    `json:"id"`
}

type ContributeRequest struct {
	Amount   string `json:"amount"`
	Comment  string `json:"comment"`
	Referrer string `json:"referrer"`
}

type MilestonesResponse struct {
	Approvers          []string `json:"approvers"`
	IncrementAmounts   []string `json:"increment_amounts"`
	MilestoneIndex     int      `json:"milestone_index"`
	Approved           int      `json:"approved"`
	Required           int      `json:"required"`
	MilestonesClaimed  int      `json:"milestones_claimed"`
	UnlockedIncrements int      `json:"unlocked_increments"`
}

type ApprovalsResponse struct {
	Approvers      []string `json:"approvers"`
	MilestoneIndex int      `json:"milestone_index"`
	Required       int      `json:"required"`
	FullyApproved  bool     `json:"fully_approved"`
}

type WithdrawalResponse struct {
	CreatedAt     time.Time `json:"created_at"`
	Recipient     string    `json:"recipient"`
	Amount        string    `json:"amount"`
	ID            uint64    `json:"id"`
	FromMilestone int       `json:"from_milestone"`
	ToMilestone   int       `json:"to_milestone"`
}

type WithdrawResponse struct {
	Amount string `json:"amount"`
}

type RecordReferralRequest struct {
	Referrer string `json:"referrer"`
}

type RecordReferralResponse struct {
	Recorded bool `json:"recorded"`
}

type ClaimRewardsResponse struct {
	Points string `json:"points"`
}

type ReferralsResponse struct {
	Principal string `json:"principal"`
	Referrer  string `json:"referrer,omitempty"`
	Points    string `json:"points"`
	Count     uint64 `json:"count"`
}

type RegisterNameRequest struct {
	Name string `json:"name"`
}

type NameResponse struct {
	Principal string `json:"principal"`
	Name      string `json:"name"`
}

func formatAmount(amount uint64) string {
	return strconv.FormatUint(amount, 10)
}

func principalStrings(principals []identity.Principal) []string {
	ret := make([]string, 0, len(principals))
	for _, p := range principals {
		ret = append(ret, p.String())
	}
	return ret
}

func campaignResponse(c ledger.Campaign) CampaignResponse {
	return CampaignResponse{
		ID:                 c.ID,
		Creator:            c.Creator.String(),
		Title:              c.Title,
		Description:        c.Description,
		FundingGoal:        formatAmount(c.FundingGoal),
		TotalRaised:        formatAmount(c.TotalRaised),
		AmountReleased:     formatAmount(c.AmountReleased),
		Deadline:           c.Deadline,
		CreatedAt:          c.CreatedAt,
		MilestonesClaimed:  c.MilestonesClaimed,
		UnlockedIncrements: c.UnlockedIncrements,
		IsOpen:             c.IsOpen,
	}
}

func contributionResponses(contributions []ledger.Contribution) []ContributionResponse {
	ret := make([]ContributionResponse, 0, len(contributions))
	for _, c := range contributions {
		ret = append(ret, ContributionResponse{
			ID:          c.ID,
			Contributor: c.Contributor.String(),
			Referrer:    c.Referrer.String(),
			Comment:     c.Comment,
			Amount:      formatAmount(c.Amount),
			CreatedAt:   c.CreatedAt,
		})
	}
	return ret
}

func milestonesResponse(status approval.Status, goal uint64) MilestonesResponse {
	amounts := escrow.IncrementAmounts(goal)
	ret := MilestonesResponse{
		Approvers:          principalStrings(status.Approvers),
		MilestoneIndex:     status.MilestoneIndex,
		Approved:           status.Approved,
		Required:           status.Required,
		MilestonesClaimed:  status.Claimed,
		UnlockedIncrements: status.Unlocked,
		IncrementAmounts:   make([]string, 0, len(amounts)),
	}
	for _, amount := range amounts {
		ret.IncrementAmounts = append(ret.IncrementAmounts, formatAmount(amount))
	}
	return ret
}

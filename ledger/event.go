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
	"github.com/blinklabs-io/crowdfund/event"
	"github.com/blinklabs-io/crowdfund/identity"
	"github.com/blinklabs-io/crowdfund/outbox"
)

const (
	CampaignCreatedEventType event.EventType = "campaign.created"
	FundedEventType          event.EventType = "campaign.funded"
	FundsWithdrawnEventType  event.EventType = "campaign.funds_withdrawn"
)

// CampaignCreatedEvent is published after a campaign is created
type CampaignCreatedEvent struct {
	Creator     identity.Principal
	CampaignID  uint64
	FundingGoal uint64
}

// FundedEvent is published after each accepted contribution. Referrer is empty
// when the contribution named no referrer
type FundedEvent struct {
	Contributor identity.Principal
	Referrer    identity.Principal
	CampaignID  uint64
	Amount      uint64
}

// FundsWithdrawnEvent is published after milestone increments are released
type FundsWithdrawnEvent struct {
	Recipient     identity.Principal
	CampaignID    uint64
	Amount        uint64
	FromMilestone int
	ToMilestone   int
}

func registerEvents(o *outbox.Outbox) {
	outbox.Register[CampaignCreatedEvent](o, CampaignCreatedEventType)
	outbox.Register[FundedEvent](o, FundedEventType)
	outbox.Register[FundsWithdrawnEvent](o, FundsWithdrawnEventType)
}

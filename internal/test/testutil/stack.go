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

package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/blinklabs-io/crowdfund/approval"
	"github.com/blinklabs-io/crowdfund/database"
	"github.com/blinklabs-io/crowdfund/event"
	"github.com/blinklabs-io/crowdfund/identity"
	"github.com/blinklabs-io/crowdfund/ledger"
	"github.com/blinklabs-io/crowdfund/names"
	"github.com/blinklabs-io/crowdfund/outbox"
	"github.com/blinklabs-io/crowdfund/referral"
	"github.com/stretchr/testify/require"
)

// StackStart is the initial time of a Stack's clock
var StackStart = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

// Stack is a fully wired set of components backed by in-memory storage. The
// outbox dispatcher is not started; call Flush to deliver notifications
type Stack struct {
	Clock     *Clock
	Signers   *identity.SignerSet
	Database  *database.Database
	EventBus  *event.EventBus
	Outbox    *outbox.Outbox
	Ledger    *ledger.Ledger
	Approvals *approval.Engine
	Referrals *referral.Ledger
	Names     *names.Registry
}

// NewStack builds a Stack whose signer set has one principal per seed. All
// components are shut down when the test finishes
func NewStack(t *testing.T, signerSeeds ...byte) *Stack {
	t.Helper()
	s := &Stack{
		Clock:   NewClock(StackStart),
		Signers: SignerSet(t, signerSeeds...),
	}
	db, err := database.New(database.Config{})
	require.NoError(t, err)
	s.Database = db
	s.EventBus = event.NewEventBus(nil, nil)
	s.Outbox, err = outbox.New(outbox.OutboxConfig{
		Database: db,
		EventBus: s.EventBus,
	})
	require.NoError(t, err)
	s.Ledger, err = ledger.New(ledger.LedgerConfig{
		Database: db,
		Outbox:   s.Outbox,
		Clock:    s.Clock.Now,
	})
	require.NoError(t, err)
	s.Approvals, err = approval.New(approval.EngineConfig{
		Database: db,
		Ledger:   s.Ledger,
		Outbox:   s.Outbox,
		Signers:  s.Signers,
		Clock:    s.Clock.Now,
	})
	require.NoError(t, err)
	s.Referrals, err = referral.New(referral.LedgerConfig{
		Database: db,
		Outbox:   s.Outbox,
		EventBus: s.EventBus,
		Clock:    s.Clock.Now,
	})
	require.NoError(t, err)
	s.Names = names.New(db.KV(), nil)
	t.Cleanup(func() {
		s.Referrals.Stop()
		s.Outbox.Stop()
		s.EventBus.Stop()
		_ = db.Close()
	})
	return s
}

// Flush delivers every pending notification
func (s *Stack) Flush(t *testing.T) {
	t.Helper()
	require.NoError(t, s.Outbox.Flush(context.Background()))
}

// CreateCampaign creates a campaign owned by creator that closes a day after
// the current clock time
func (s *Stack) CreateCampaign(
	t *testing.T,
	creator identity.Principal,
	goal uint64,
) uint64 {
	t.Helper()
	id, err := s.Ledger.CreateCampaign(
		context.Background(),
		creator,
		ledger.CreateCampaignParams{
			Title:       "Community garden",
			Description: "Raised beds and an irrigation system",
			FundingGoal: goal,
			Deadline:    s.Clock.Now().Add(24 * time.Hour),
		},
	)
	require.NoError(t, err)
	return id
}

// Contribute adds amount to a campaign from contributor
func (s *Stack) Contribute(
	t *testing.T,
	contributor identity.Principal,
	campaignId uint64,
	amount uint64,
) {
	t.Helper()
	require.NoError(t, s.Ledger.Contribute(
		context.Background(),
		contributor,
		ledger.ContributeParams{
			CampaignID: campaignId,
			Amount:     amount,
		},
	))
}

// ApproveAll records an approval of the increment from every trusted signer
func (s *Stack) ApproveAll(t *testing.T, campaignId uint64, milestoneIndex int) {
	t.Helper()
	for _, signer := range s.Signers.Members() {
		require.NoError(t, s.Approvals.ApproveIncrement(
			context.Background(),
			signer,
			campaignId,
			milestoneIndex,
		))
	}
}

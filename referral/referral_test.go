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

package referral_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/blinklabs-io/crowdfund/database"
	"github.com/blinklabs-io/crowdfund/database/models"
	"github.com/blinklabs-io/crowdfund/database/types"
	"github.com/blinklabs-io/crowdfund/internal/test/testutil"
	"github.com/blinklabs-io/crowdfund/ledger"
	"github.com/blinklabs-io/crowdfund/referral"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordReferral(t *testing.T) {
	s := testutil.NewStack(t, 101)
	ctx := context.Background()
	alice := testutil.Principal(t, 1)
	bob := testutil.Principal(t, 2)
	carol := testutil.Principal(t, 3)

	created, err := s.Referrals.RecordReferral(ctx, bob, alice)
	require.NoError(t, err)
	assert.True(t, created)
	referrer, found, err := s.Referrals.Referrer(ctx, bob)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, alice, referrer)

	// The first referrer wins
	created, err = s.Referrals.RecordReferral(ctx, bob, carol)
	require.NoError(t, err)
	assert.False(t, created)
	referrer, _, err = s.Referrals.Referrer(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, alice, referrer)

	created, err = s.Referrals.RecordReferral(ctx, carol, alice)
	require.NoError(t, err)
	assert.True(t, created)

	count, err := s.Referrals.Count(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
	points, err := s.Referrals.Points(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(2*referral.DefaultPointsPerReferral), points)
	count, err = s.Referrals.Count(ctx, carol)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestRecordReferralRejections(t *testing.T) {
	s := testutil.NewStack(t, 101)
	ctx := context.Background()
	alice := testutil.Principal(t, 1)
	_, err := s.Referrals.RecordReferral(ctx, alice, alice)
	require.ErrorIs(t, err, ledger.ErrInvalidArgument)
	_, err = s.Referrals.RecordReferral(ctx, "", alice)
	require.ErrorIs(t, err, ledger.ErrInvalidArgument)
	_, found, err := s.Referrals.Referrer(ctx, alice)
	require.NoError(t, err)
	assert.False(t, found)
	points, err := s.Referrals.Points(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), points)
}

func TestClaimRewards(t *testing.T) {
	s := testutil.NewStack(t, 101)
	ctx := context.Background()
	alice := testutil.Principal(t, 1)
	_, err := s.Referrals.ClaimRewards(ctx, alice)
	require.ErrorIs(t, err, ledger.ErrNothingToClaim)
	_, err = s.Referrals.ClaimRewards(ctx, "")
	require.ErrorIs(t, err, ledger.ErrUnauthorized)

	_, err = s.Referrals.RecordReferral(ctx, testutil.Principal(t, 2), alice)
	require.NoError(t, err)
	_, err = s.Referrals.RecordReferral(ctx, testutil.Principal(t, 3), alice)
	require.NoError(t, err)
	claimed, err := s.Referrals.ClaimRewards(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), claimed)
	points, err := s.Referrals.Points(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), points)
	// Claiming does not reset the referral count
	count, err := s.Referrals.Count(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
	_, err = s.Referrals.ClaimRewards(ctx, alice)
	require.ErrorIs(t, err, ledger.ErrNothingToClaim)
}

func TestRecordReferralOverflow(t *testing.T) {
	s := testutil.NewStack(t, 101)
	ctx := context.Background()
	alice := testutil.Principal(t, 1)
	err := s.Database.Update(ctx, func(txn *database.Txn) error {
		return s.Database.SetReferralBalance(models.ReferralBalance{
			Referrer: alice.String(),
			Count:    1,
			Points:   types.Uint64(math.MaxUint64 - 5),
		}, 0, txn)
	})
	require.NoError(t, err)
	_, err = s.Referrals.RecordReferral(ctx, testutil.Principal(t, 2), alice)
	require.ErrorIs(t, err, ledger.ErrOverflow)
	_, found, err := s.Referrals.Referrer(ctx, testutil.Principal(t, 2))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReferralFromContribution(t *testing.T) {
	s := testutil.NewStack(t, 101)
	ctx := context.Background()
	creator := testutil.Principal(t, 1)
	alice := testutil.Principal(t, 2)
	bob := testutil.Principal(t, 3)
	_, recordedCh := s.EventBus.Subscribe(referral.ReferralRecordedEventType)
	require.NoError(t, s.Referrals.Start())
	// Starting twice is harmless
	require.NoError(t, s.Referrals.Start())

	id := s.CreateCampaign(t, creator, 300)
	require.NoError(t, s.Ledger.Contribute(ctx, bob, ledger.ContributeParams{
		CampaignID: id,
		Amount:     25,
		Referrer:   alice,
	}))
	s.Contribute(t, alice, id, 10)
	s.Flush(t)

	testutil.WaitForCondition(t, func() bool {
		count, err := s.Referrals.Count(ctx, alice)
		return err == nil && count == 1
	}, 2*time.Second, "referral from contribution")
	referrer, found, err := s.Referrals.Referrer(ctx, bob)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, alice, referrer)

	s.Flush(t)
	evt := testutil.RequireReceive(t, recordedCh, time.Second, "referral recorded")
	recorded, ok := evt.Data.(referral.ReferralRecordedEvent)
	require.True(t, ok)
	assert.Equal(t, bob, recorded.Referred)
	assert.Equal(t, alice, recorded.Referrer)
	assert.Equal(t, uint64(referral.DefaultPointsPerReferral), recorded.Points)

	// A later contribution naming another referrer changes nothing
	s.Referrals.Stop()
	require.NoError(t, s.Referrals.Start())
	require.NoError(t, s.Ledger.Contribute(ctx, bob, ledger.ContributeParams{
		CampaignID: id,
		Amount:     5,
		Referrer:   creator,
	}))
	s.Flush(t)
	testutil.RequireNoReceive(t, recordedCh, 100*time.Millisecond, "second referral")
	count, err := s.Referrals.Count(ctx, creator)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestRewardsClaimedNotification(t *testing.T) {
	s := testutil.NewStack(t, 101)
	ctx := context.Background()
	alice := testutil.Principal(t, 1)
	_, claimedCh := s.EventBus.Subscribe(referral.RewardsClaimedEventType)
	_, err := s.Referrals.RecordReferral(ctx, testutil.Principal(t, 2), alice)
	require.NoError(t, err)
	_, err = s.Referrals.ClaimRewards(ctx, alice)
	require.NoError(t, err)
	s.Flush(t)
	evt := testutil.RequireReceive(t, claimedCh, time.Second, "rewards claimed")
	claimed, ok := evt.Data.(referral.RewardsClaimedEvent)
	require.True(t, ok)
	assert.Equal(t, alice, claimed.Referrer)
	assert.Equal(t, uint64(10), claimed.Points)
}

func TestCustomPointsPerReferral(t *testing.T) {
	s := testutil.NewStack(t, 101)
	r, err := referral.New(referral.LedgerConfig{
		Database:          s.Database,
		Outbox:            s.Outbox,
		PointsPerReferral: 3,
	})
	require.NoError(t, err)
	ctx := context.Background()
	alice := testutil.Principal(t, 1)
	_, err = r.RecordReferral(ctx, testutil.Principal(t, 2), alice)
	require.NoError(t, err)
	points, err := r.Points(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), points)
	// Starting without an event bus is an error
	require.Error(t, r.Start())
}

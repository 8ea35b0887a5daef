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

package approval_test

import (
	"context"
	"testing"
	"time"

	"github.com/blinklabs-io/crowdfund/approval"
	"github.com/blinklabs-io/crowdfund/identity"
	"github.com/blinklabs-io/crowdfund/internal/test/testutil"
	"github.com/blinklabs-io/crowdfund/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	creatorSeed byte = 1
	aliceSeed   byte = 2
)

// newFundedCampaign returns a stack with two signers and a campaign with its
// first increment unlocked
func newFundedCampaign(t *testing.T) (*testutil.Stack, uint64, []identity.Principal) {
	t.Helper()
	s := testutil.NewStack(t, 101, 102)
	id := s.CreateCampaign(t, testutil.Principal(t, creatorSeed), 300)
	s.Contribute(t, testutil.Principal(t, aliceSeed), id, 100)
	return s, id, s.Signers.Members()
}

func TestNewRequiresSigners(t *testing.T) {
	s := testutil.NewStack(t, 101)
	_, err := approval.New(approval.EngineConfig{
		Database: s.Database,
		Ledger:   s.Ledger,
		Outbox:   s.Outbox,
	})
	require.ErrorIs(t, err, identity.ErrEmptySignerSet)
	_, err = approval.New(approval.EngineConfig{Signers: s.Signers})
	require.Error(t, err)
}

func TestApproveIncrement(t *testing.T) {
	s, id, signers := newFundedCampaign(t)
	ctx := context.Background()
	require.NoError(t, s.Approvals.ApproveIncrement(ctx, signers[0], id, 0))
	approved, err := s.Approvals.IsFullyApproved(ctx, id, 0)
	require.NoError(t, err)
	assert.False(t, approved)
	status, err := s.Approvals.ApprovalStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, status.MilestoneIndex)
	assert.Equal(t, 1, status.Approved)
	assert.Equal(t, 2, status.Required)
	assert.Equal(t, []identity.Principal{signers[0]}, status.Approvers)

	require.NoError(t, s.Approvals.ApproveIncrement(ctx, signers[1], id, 0))
	approved, err = s.Approvals.IsFullyApproved(ctx, id, 0)
	require.NoError(t, err)
	assert.True(t, approved)
	approvers, err := s.Approvals.Approvers(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, signers, approvers)
}

func TestApproveIncrementIdempotent(t *testing.T) {
	s, id, signers := newFundedCampaign(t)
	ctx := context.Background()
	_, approvedCh := s.EventBus.Subscribe(approval.MilestoneApprovedEventType)
	require.NoError(t, s.Approvals.ApproveIncrement(ctx, signers[0], id, 0))
	require.NoError(t, s.Approvals.ApproveIncrement(ctx, signers[0], id, 0))
	status, err := s.Approvals.ApprovalStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Approved)
	approved, err := s.Approvals.IsFullyApproved(ctx, id, 0)
	require.NoError(t, err)
	assert.False(t, approved)

	// Only the first approval is announced
	s.Flush(t)
	evt := testutil.RequireReceive(t, approvedCh, time.Second, "milestone approved")
	approvedEvt, ok := evt.Data.(approval.MilestoneApprovedEvent)
	require.True(t, ok)
	assert.Equal(t, signers[0], approvedEvt.Signer)
	assert.Equal(t, id, approvedEvt.CampaignID)
	assert.Equal(t, 0, approvedEvt.MilestoneIndex)
	testutil.RequireNoReceive(t, approvedCh, 50*time.Millisecond, "duplicate approval")
}

func TestApproveIncrementRejections(t *testing.T) {
	s, id, signers := newFundedCampaign(t)
	ctx := context.Background()
	err := s.Approvals.ApproveIncrement(ctx, testutil.Principal(t, aliceSeed), id, 0)
	require.ErrorIs(t, err, ledger.ErrUnauthorized)
	err = s.Approvals.ApproveIncrement(ctx, "", id, 0)
	require.ErrorIs(t, err, ledger.ErrUnauthorized)
	for _, idx := range []int{-1, 3} {
		err = s.Approvals.ApproveIncrement(ctx, signers[0], id, idx)
		require.ErrorIs(t, err, ledger.ErrInvalidArgument, "index %d", idx)
	}
	// Increment 1 is still locked
	err = s.Approvals.ApproveIncrement(ctx, signers[0], id, 1)
	require.ErrorIs(t, err, ledger.ErrInvalidArgument)
	err = s.Approvals.ApproveIncrement(ctx, signers[0], 99, 0)
	require.ErrorIs(t, err, ledger.ErrNotFound)
	status, err := s.Approvals.ApprovalStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, status.Approved)
	assert.Empty(t, status.Approvers)
}

func TestApproveClaimedIncrementRejected(t *testing.T) {
	s, id, signers := newFundedCampaign(t)
	ctx := context.Background()
	s.ApproveAll(t, id, 0)
	_, err := s.Ledger.Withdraw(ctx, testutil.Principal(t, creatorSeed), id)
	require.NoError(t, err)
	err = s.Approvals.ApproveIncrement(ctx, signers[0], id, 0)
	require.ErrorIs(t, err, ledger.ErrInvalidArgument)
	// Approvals are permanent
	approved, err := s.Approvals.IsFullyApproved(ctx, id, 0)
	require.NoError(t, err)
	assert.True(t, approved)
}

func TestApprovalStatusProgress(t *testing.T) {
	s, id, _ := newFundedCampaign(t)
	ctx := context.Background()
	creator := testutil.Principal(t, creatorSeed)
	s.Contribute(t, testutil.Principal(t, aliceSeed), id, 200)
	status, err := s.Approvals.ApprovalStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, status.Claimed)
	assert.Equal(t, 3, status.Unlocked)

	for idx := range 3 {
		s.ApproveAll(t, id, idx)
	}
	_, err = s.Ledger.Withdraw(ctx, creator, id)
	require.NoError(t, err)
	status, err = s.Approvals.ApprovalStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, status.MilestoneIndex)
	assert.Equal(t, 3, status.Claimed)
	assert.Equal(t, status.Required, status.Approved)

	_, err = s.Approvals.ApprovalStatus(ctx, 99)
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestSigners(t *testing.T) {
	s, _, signers := newFundedCampaign(t)
	assert.Equal(t, signers, s.Approvals.Signers().Members())
	assert.Equal(t, 2, s.Approvals.Signers().RequiredApprovals())
}

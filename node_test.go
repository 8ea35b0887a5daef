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

package crowdfund_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/blinklabs-io/crowdfund"
	"github.com/blinklabs-io/crowdfund/identity"
	"github.com/blinklabs-io/crowdfund/internal/test/testutil"
	"github.com/blinklabs-io/crowdfund/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signerStrings(t *testing.T, seeds ...byte) []string {
	t.Helper()
	ret := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		ret = append(ret, testutil.Principal(t, seed).String())
	}
	return ret
}

func TestNewValidation(t *testing.T) {
	_, err := crowdfund.New(crowdfund.NewConfig())
	require.ErrorIs(t, err, identity.ErrEmptySignerSet)

	_, err = crowdfund.New(crowdfund.NewConfig(
		crowdfund.WithSigners(1, signerStrings(t, 1, 2)...),
	))
	require.ErrorIs(t, err, identity.ErrRequiredApprovals)

	_, err = crowdfund.New(crowdfund.NewConfig(
		crowdfund.WithSigners(1, signerStrings(t, 1)...),
		crowdfund.WithApiListenAddress("127.0.0.1:0"),
	))
	require.Error(t, err)

	_, err = crowdfund.New(crowdfund.NewConfig(
		crowdfund.WithSigners(1, signerStrings(t, 1)...),
		crowdfund.WithDatabaseDriver("oracle"),
	))
	require.Error(t, err)
}

func TestNodeLifecycle(t *testing.T) {
	clock := testutil.NewClock(testutil.StackStart)
	n, err := crowdfund.New(crowdfund.NewConfig(
		crowdfund.WithSigners(2, signerStrings(t, 11, 12)...),
		crowdfund.WithAuthSecret([]byte("node-test-secret")),
		crowdfund.WithApiListenAddress("127.0.0.1:0"),
		crowdfund.WithOutboxPollInterval(10*time.Millisecond),
		crowdfund.WithShutdownTimeout(5*time.Second),
		crowdfund.WithClock(clock.Now),
		crowdfund.WithPointsPerReferral(7),
	))
	require.NoError(t, err)
	assert.Equal(t, 2, n.Signers().Size())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, n.Start(ctx))
	require.ErrorIs(t, n.Start(ctx), crowdfund.ErrAlreadyStarted)

	addr := n.ApiAddr()
	require.NotNil(t, addr)
	resp, err := http.Get("http://" + addr.String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	creator := testutil.Principal(t, 1)
	contributor := testutil.Principal(t, 2)
	referrer := testutil.Principal(t, 3)
	campaignId, err := n.Ledger().CreateCampaign(
		ctx,
		creator,
		ledger.CreateCampaignParams{
			Title:       "Library roof",
			Description: "Replace the leaking roof",
			FundingGoal: 300,
			Deadline:    clock.Now().Add(time.Hour),
		},
	)
	require.NoError(t, err)
	require.NoError(t, n.Ledger().Contribute(ctx, contributor, ledger.ContributeParams{
		CampaignID: campaignId,
		Amount:     100,
		Referrer:   referrer,
	}))

	// The running dispatcher delivers the Funded notification to the
	// referral ledger
	testutil.WaitForCondition(
		t,
		func() bool {
			points, err := n.Referrals().Points(ctx, referrer)
			return err == nil && points == 7
		},
		5*time.Second,
		"referral was not recorded",
	)

	for _, signer := range n.Signers().Members() {
		require.NoError(t, n.Approvals().ApproveIncrement(ctx, signer, campaignId, 0))
	}
	released, err := n.Ledger().Withdraw(ctx, creator, campaignId)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), released)

	require.NoError(t, n.Names().RegisterName(ctx, creator, "librarian"))

	require.NoError(t, n.Stop())
	require.NoError(t, n.Stop())
}

func TestNodeRunReturnsOnCancel(t *testing.T) {
	n, err := crowdfund.New(crowdfund.NewConfig(
		crowdfund.WithSigners(1, signerStrings(t, 21)...),
	))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- n.Run(ctx)
	}()
	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.NotNil(t, n.Ledger())
	assert.Nil(t, n.ApiAddr())
	require.NoError(t, n.Stop())
}

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

// Package referral keeps the referral rewards ledger. A referred principal is
// bound to the first referrer credited for them, and each new binding earns
// the referrer a fixed number of points that can later be claimed.
package referral

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/bits"
	"sync"
	"time"

	"github.com/blinklabs-io/crowdfund/database"
	"github.com/blinklabs-io/crowdfund/database/models"
	"github.com/blinklabs-io/crowdfund/database/types"
	"github.com/blinklabs-io/crowdfund/event"
	"github.com/blinklabs-io/crowdfund/identity"
	"github.com/blinklabs-io/crowdfund/ledger"
	"github.com/blinklabs-io/crowdfund/outbox"
	"github.com/prometheus/client_golang/prometheus"
)

const DefaultPointsPerReferral = 10

const (
	ReferralRecordedEventType event.EventType = "referral.recorded"
	RewardsClaimedEventType   event.EventType = "referral.rewards_claimed"
)

type ReferralRecordedEvent struct {
	Referred identity.Principal
	Referrer identity.Principal
	Points   uint64
}

type RewardsClaimedEvent struct {
	Referrer identity.Principal
	Points   uint64
}

type LedgerConfig struct {
	Logger       *slog.Logger
	Database     *database.Database
	Outbox       *outbox.Outbox
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
	Clock        func() time.Time
	// PointsPerReferral defaults to DefaultPointsPerReferral
	PointsPerReferral uint64
}

type Ledger struct {
	config  LedgerConfig
	logger  *slog.Logger
	db      *database.Database
	metrics referralMetrics
	subId   event.EventSubscriberId
	mu      sync.Mutex
	started bool
}

func New(cfg LedgerConfig) (*Ledger, error) {
	if cfg.Database == nil || cfg.Outbox == nil {
		return nil, errors.New("referral ledger requires a database and outbox")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.PointsPerReferral == 0 {
		cfg.PointsPerReferral = DefaultPointsPerReferral
	}
	r := &Ledger{
		config: cfg,
		logger: cfg.Logger.With("component", "referral"),
		db:     cfg.Database,
	}
	r.metrics.init(cfg.PromRegistry)
	outbox.Register[ReferralRecordedEvent](cfg.Outbox, ReferralRecordedEventType)
	outbox.Register[RewardsClaimedEvent](cfg.Outbox, RewardsClaimedEventType)
	return r, nil
}

// Start subscribes to funding notifications so that contributions naming a
// referrer are credited
func (r *Ledger) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	if r.config.EventBus == nil {
		return errors.New("referral ledger requires an event bus to start")
	}
	r.subId = r.config.EventBus.SubscribeFunc(
		ledger.FundedEventType,
		r.handleFundedEvent,
	)
	r.started = true
	return nil
}

// Stop ends the funding subscription
func (r *Ledger) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return
	}
	r.config.EventBus.Unsubscribe(ledger.FundedEventType, r.subId)
	r.started = false
}

func (r *Ledger) handleFundedEvent(evt event.Event) {
	funded, ok := evt.Data.(ledger.FundedEvent)
	if !ok {
		r.logger.Warn(
			fmt.Sprintf("unexpected funded event data type %T", evt.Data),
		)
		return
	}
	if funded.Referrer.IsZero() {
		return
	}
	if _, err := r.RecordReferral(
		context.Background(),
		funded.Contributor,
		funded.Referrer,
	); err != nil {
		r.logger.Error(
			"failed to record referral from contribution",
			"campaign_id", funded.CampaignID,
			"referred", funded.Contributor.String(),
			"referrer", funded.Referrer.String(),
			"error", err,
		)
	}
}

// RecordReferral binds referred to referrer and credits the referrer. It
// returns false without error when referred already has a referrer
func (r *Ledger) RecordReferral(
	ctx context.Context,
	referred identity.Principal,
	referrer identity.Principal,
) (bool, error) {
	if referred.IsZero() || referrer.IsZero() {
		return false, fmt.Errorf("referred and referrer are required: %w", ledger.ErrInvalidArgument)
	}
	if referred == referrer {
		return false, fmt.Errorf("a principal cannot refer itself: %w", ledger.ErrInvalidArgument)
	}
	var created bool
	err := r.db.Update(ctx, func(txn *database.Txn) error {
		var err error
		created, err = r.db.AddReferral(&models.Referral{
			Referred:  referred.String(),
			Referrer:  referrer.String(),
			CreatedAt: r.config.Clock().UTC(),
		}, txn)
		if err != nil || !created {
			return err
		}
		balance, err := r.db.GetReferralBalance(referrer.String(), txn)
		if err != nil {
			return err
		}
		prevPoints := balance.Points
		newPoints, carry := bits.Add64(uint64(prevPoints), r.config.PointsPerReferral, 0)
		if carry != 0 {
			return fmt.Errorf("referral points for %s: %w", referrer, ledger.ErrOverflow)
		}
		balance.Count++
		balance.Points = types.Uint64(newPoints)
		if err := r.db.SetReferralBalance(balance, prevPoints, txn); err != nil {
			return err
		}
		return r.config.Outbox.Enqueue(
			txn,
			ReferralRecordedEventType,
			0,
			ReferralRecordedEvent{
				Referred: referred,
				Referrer: referrer,
				Points:   r.config.PointsPerReferral,
			},
		)
	})
	if err != nil {
		return false, err
	}
	if created {
		r.metrics.referralsRecorded.Inc()
		r.logger.Info(
			"referral recorded",
			"referred", referred.String(),
			"referrer", referrer.String(),
		)
	}
	return created, nil
}

// ClaimRewards resets caller's points to zero and returns the points claimed
func (r *Ledger) ClaimRewards(
	ctx context.Context,
	caller identity.Principal,
) (uint64, error) {
	if caller.IsZero() {
		return 0, fmt.Errorf("no caller principal: %w", ledger.ErrUnauthorized)
	}
	var claimed uint64
	err := r.db.Update(ctx, func(txn *database.Txn) error {
		balance, err := r.db.GetReferralBalance(caller.String(), txn)
		if err != nil {
			return err
		}
		if balance.Points == 0 {
			return fmt.Errorf("no referral points for %s: %w", caller, ledger.ErrNothingToClaim)
		}
		prevPoints := balance.Points
		balance.Points = 0
		if err := r.db.SetReferralBalance(balance, prevPoints, txn); err != nil {
			if errors.Is(err, types.ErrStaleRecord) {
				return fmt.Errorf("referral points changed concurrently: %w", err)
			}
			return err
		}
		claimed = uint64(prevPoints)
		return r.config.Outbox.Enqueue(
			txn,
			RewardsClaimedEventType,
			0,
			RewardsClaimedEvent{
				Referrer: caller,
				Points:   claimed,
			},
		)
	})
	if err != nil {
		return 0, err
	}
	r.metrics.pointsClaimed.Add(float64(claimed))
	r.logger.Info(
		"referral rewards claimed",
		"referrer", caller.String(),
		"points", claimed,
	)
	return claimed, nil
}

// Referrer returns the referrer bound to referred, if any
func (r *Ledger) Referrer(
	ctx context.Context,
	referred identity.Principal,
) (identity.Principal, bool, error) {
	var ret identity.Principal
	var found bool
	err := r.db.View(ctx, func(txn *database.Txn) error {
		tmpReferral, err := r.db.GetReferral(referred.String(), txn)
		if err != nil {
			if errors.Is(err, database.ErrReferralNotFound) {
				return nil
			}
			return err
		}
		ret = identity.Principal(tmpReferral.Referrer)
		found = true
		return nil
	})
	return ret, found, err
}

// Balance returns the number of principals referred by referrer and the
// unclaimed points
func (r *Ledger) Balance(
	ctx context.Context,
	referrer identity.Principal,
) (uint64, uint64, error) {
	var count, points uint64
	err := r.db.View(ctx, func(txn *database.Txn) error {
		balance, err := r.db.GetReferralBalance(referrer.String(), txn)
		if err != nil {
			return err
		}
		count = balance.Count
		points = uint64(balance.Points)
		return nil
	})
	return count, points, err
}

// Count returns the number of principals referred by referrer
func (r *Ledger) Count(ctx context.Context, referrer identity.Principal) (uint64, error) {
	count, _, err := r.Balance(ctx, referrer)
	return count, err
}

// Points returns the unclaimed points of referrer
func (r *Ledger) Points(ctx context.Context, referrer identity.Principal) (uint64, error) {
	_, points, err := r.Balance(ctx, referrer)
	return points, err
}

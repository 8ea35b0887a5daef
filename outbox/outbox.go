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

// Package outbox delivers notifications that were written to the database in
// the same transaction as the state change they describe. A single dispatcher
// publishes pending notifications to the event bus in sequence order and only
// then marks them delivered, so every notification is published at least once
// even across restarts.
package outbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/crowdfund/database"
	"github.com/blinklabs-io/crowdfund/database/models"
	"github.com/blinklabs-io/crowdfund/event"
	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultBatchSize    = 100
)

var ErrUnknownEventType = errors.New("no decoder registered for event type")

type decodeFunc func([]byte) (any, error)

type OutboxConfig struct {
	Logger       *slog.Logger
	Database     *database.Database
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
	PollInterval time.Duration
	BatchSize    int
}

type Outbox struct {
	config     OutboxConfig
	logger     *slog.Logger
	decoders   map[event.EventType]decodeFunc
	metrics    outboxMetrics
	wakeCh     chan struct{}
	stopCh     chan struct{}
	doneCh     chan struct{}
	decodersMu sync.RWMutex
	dispatchMu sync.Mutex
	runMu      sync.Mutex
}

func New(cfg OutboxConfig) (*Outbox, error) {
	if cfg.Database == nil {
		return nil, errors.New("outbox requires a database")
	}
	if cfg.EventBus == nil {
		return nil, errors.New("outbox requires an event bus")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	o := &Outbox{
		config:   cfg,
		logger:   cfg.Logger.With("component", "outbox"),
		decoders: make(map[event.EventType]decodeFunc),
		wakeCh:   make(chan struct{}, 1),
	}
	o.metrics.init(cfg.PromRegistry)
	return o, nil
}

// Register associates an event type with the payload type T. Delivered events
// of that type carry a T value as their data
func Register[T any](o *Outbox, eventType event.EventType) {
	o.decodersMu.Lock()
	defer o.decodersMu.Unlock()
	o.decoders[eventType] = func(data []byte) (any, error) {
		var ret T
		if _, err := cbor.Decode(data, &ret); err != nil {
			return nil, err
		}
		return ret, nil
	}
}

// Enqueue writes a notification as part of txn. The dispatcher is woken once
// the transaction commits
func (o *Outbox) Enqueue(
	txn *database.Txn,
	eventType event.EventType,
	campaignId uint64,
	payload any,
) error {
	o.decodersMu.RLock()
	_, ok := o.decoders[eventType]
	o.decodersMu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}
	payloadCbor, err := cbor.Encode(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	tmpNotification := &models.Notification{
		EventType:  string(eventType),
		CampaignID: campaignId,
		Payload:    payloadCbor,
		CreatedAt:  time.Now(),
	}
	if err := txn.DB().AddNotification(tmpNotification, txn); err != nil {
		return err
	}
	txn.OnCommit(o.Notify)
	return nil
}

// Notify wakes the dispatcher without blocking
func (o *Outbox) Notify() {
	select {
	case o.wakeCh <- struct{}{}:
	default:
	}
}

// Start launches the dispatcher. Notifications left undelivered by a previous
// run are published first
func (o *Outbox) Start(ctx context.Context) error {
	o.runMu.Lock()
	defer o.runMu.Unlock()
	if o.stopCh != nil {
		return errors.New("outbox already started")
	}
	o.stopCh = make(chan struct{})
	o.doneCh = make(chan struct{})
	go o.run(ctx, o.stopCh, o.doneCh)
	o.Notify()
	return nil
}

// Stop halts the dispatcher and waits for it to exit
func (o *Outbox) Stop() {
	o.runMu.Lock()
	defer o.runMu.Unlock()
	if o.stopCh == nil {
		return
	}
	close(o.stopCh)
	<-o.doneCh
	o.stopCh = nil
	o.doneCh = nil
}

func (o *Outbox) run(
	ctx context.Context,
	stopCh <-chan struct{},
	doneCh chan<- struct{},
) {
	defer close(doneCh)
	ticker := time.NewTicker(o.config.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-o.wakeCh:
		case <-ticker.C:
		}
		if err := o.Flush(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			o.logger.Error(
				"failed to dispatch notifications",
				"error", err,
			)
		}
	}
}

// Flush publishes every pending notification and marks it delivered
func (o *Outbox) Flush(ctx context.Context) error {
	o.dispatchMu.Lock()
	defer o.dispatchMu.Unlock()
	for {
		var pending []models.Notification
		err := o.config.Database.View(ctx, func(txn *database.Txn) error {
			var err error
			pending, err = txn.DB().GetPendingNotifications(
				o.config.BatchSize,
				txn,
			)
			return err
		})
		if err != nil {
			return fmt.Errorf("load pending notifications: %w", err)
		}
		if len(pending) == 0 {
			o.metrics.pending.Set(0)
			return nil
		}
		ids := make([]uint64, 0, len(pending))
		for _, tmpNotification := range pending {
			o.publish(tmpNotification)
			ids = append(ids, tmpNotification.ID)
		}
		err = o.config.Database.Update(ctx, func(txn *database.Txn) error {
			return txn.DB().MarkNotificationsDelivered(ids, time.Now(), txn)
		})
		if err != nil {
			return fmt.Errorf("mark notifications delivered: %w", err)
		}
		o.metrics.delivered.Add(float64(len(ids)))
		if count, err := o.config.Database.CountPendingNotifications(nil); err == nil {
			o.metrics.pending.Set(float64(count))
		}
	}
}

func (o *Outbox) publish(tmpNotification models.Notification) {
	eventType := event.EventType(tmpNotification.EventType)
	o.decodersMu.RLock()
	decoder, ok := o.decoders[eventType]
	o.decodersMu.RUnlock()
	if !ok {
		o.metrics.decodeErrors.Inc()
		o.logger.Warn(
			"dropping notification with unknown event type",
			"type", eventType,
			"id", tmpNotification.ID,
		)
		return
	}
	data, err := decoder(tmpNotification.Payload)
	if err != nil {
		o.metrics.decodeErrors.Inc()
		o.logger.Error(
			"dropping notification with undecodable payload",
			"type", eventType,
			"id", tmpNotification.ID,
			"error", err,
		)
		return
	}
	evt := event.NewEvent(eventType, data)
	evt.Timestamp = tmpNotification.CreatedAt
	o.config.EventBus.Publish(eventType, evt)
	o.logger.Debug(
		"published notification",
		"type", eventType,
		"id", tmpNotification.ID,
		"campaign_id", tmpNotification.CampaignID,
	)
}

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

package outbox_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blinklabs-io/crowdfund/database"
	"github.com/blinklabs-io/crowdfund/event"
	"github.com/blinklabs-io/crowdfund/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEventType event.EventType = "test.happened"

type testPayload struct {
	Name   string
	Amount uint64
}

func newTestOutbox(
	t *testing.T,
	db *database.Database,
	bus *event.EventBus,
) *outbox.Outbox {
	t.Helper()
	o, err := outbox.New(outbox.OutboxConfig{
		Database:     db,
		EventBus:     bus,
		PollInterval: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	outbox.Register[testPayload](o, testEventType)
	return o
}

func enqueue(t *testing.T, db *database.Database, o *outbox.Outbox, payloads ...testPayload) {
	t.Helper()
	err := db.Update(context.Background(), func(txn *database.Txn) error {
		for _, payload := range payloads {
			if err := o.Enqueue(txn, testEventType, 1, payload); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestOutboxDeliversInOrder(t *testing.T) {
	db, err := database.New(database.Config{})
	require.NoError(t, err)
	defer db.Close()
	bus := event.NewEventBus(nil, nil)
	defer bus.Stop()
	o := newTestOutbox(t, db, bus)
	_, subCh := bus.Subscribe(testEventType)

	require.NoError(t, o.Start(context.Background()))
	defer o.Stop()
	enqueue(t, db, o,
		testPayload{Name: "first", Amount: 1},
		testPayload{Name: "second", Amount: 2},
	)
	enqueue(t, db, o, testPayload{Name: "third", Amount: 3})

	for _, expected := range []string{"first", "second", "third"} {
		select {
		case evt := <-subCh:
			payload, ok := evt.Data.(testPayload)
			require.True(t, ok, "unexpected event data type %T", evt.Data)
			assert.Equal(t, expected, payload.Name)
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for %s", expected)
		}
	}
	require.Eventually(t, func() bool {
		count, err := db.CountPendingNotifications(nil)
		return err == nil && count == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestOutboxRolledBackNotificationNotDelivered(t *testing.T) {
	db, err := database.New(database.Config{})
	require.NoError(t, err)
	defer db.Close()
	bus := event.NewEventBus(nil, nil)
	defer bus.Stop()
	o := newTestOutbox(t, db, bus)
	testErr := errors.New("abort")
	err = db.Update(context.Background(), func(txn *database.Txn) error {
		if err := o.Enqueue(txn, testEventType, 1, testPayload{Name: "lost"}); err != nil {
			return err
		}
		return testErr
	})
	require.ErrorIs(t, err, testErr)
	count, err := db.CountPendingNotifications(nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestOutboxRedeliversAfterRestart(t *testing.T) {
	db, err := database.New(database.Config{})
	require.NoError(t, err)
	defer db.Close()
	bus := event.NewEventBus(nil, nil)
	defer bus.Stop()

	// Written but never dispatched, as if the process stopped right after commit
	first := newTestOutbox(t, db, bus)
	enqueue(t, db, first, testPayload{Name: "pending", Amount: 42})

	_, subCh := bus.Subscribe(testEventType)
	second := newTestOutbox(t, db, bus)
	require.NoError(t, second.Flush(context.Background()))
	select {
	case evt := <-subCh:
		assert.Equal(t, testPayload{Name: "pending", Amount: 42}, evt.Data)
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for redelivered notification")
	}
	// Delivered notifications are not published again
	require.NoError(t, second.Flush(context.Background()))
	select {
	case evt := <-subCh:
		t.Fatalf("unexpected duplicate delivery: %#v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOutboxUnknownEventType(t *testing.T) {
	db, err := database.New(database.Config{})
	require.NoError(t, err)
	defer db.Close()
	bus := event.NewEventBus(nil, nil)
	defer bus.Stop()
	o := newTestOutbox(t, db, bus)
	err = db.Update(context.Background(), func(txn *database.Txn) error {
		return o.Enqueue(txn, "test.unregistered", 1, testPayload{})
	})
	require.ErrorIs(t, err, outbox.ErrUnknownEventType)
}

func TestOutboxStartTwice(t *testing.T) {
	db, err := database.New(database.Config{})
	require.NoError(t, err)
	defer db.Close()
	bus := event.NewEventBus(nil, nil)
	defer bus.Stop()
	o := newTestOutbox(t, db, bus)
	require.NoError(t, o.Start(context.Background()))
	require.Error(t, o.Start(context.Background()))
	o.Stop()
	o.Stop()
}

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

package event_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinklabs-io/crowdfund/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestEventBusSingleSubscriber(t *testing.T) {
	defer goleak.VerifyNone(t)
	var testEvtData int = 999
	var testEvtType event.EventType = "test.event"
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, testEvtData))
	select {
	case evt, ok := <-subCh:
		if !ok {
			t.Fatalf("event channel closed unexpectedly")
		}
		switch v := evt.Data.(type) {
		case int:
			if v != testEvtData {
				t.Fatalf("did not get expected event")
			}
		default:
			t.Fatalf("event data was not of expected type, expected int, got %T", evt.Data)
		}
		assert.Equal(t, testEvtType, evt.Type)
	case <-time.After(1 * time.Second):
		t.Fatalf("timeout waiting for event")
	}
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)
	var testEvtType event.EventType = "test.event"
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, sub1Ch := eb.Subscribe(testEvtType)
	_, sub2Ch := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "payload"))
	for _, ch := range []<-chan event.Event{sub1Ch, sub2Ch} {
		select {
		case evt := <-ch:
			assert.Equal(t, "payload", evt.Data)
		case <-time.After(1 * time.Second):
			t.Fatalf("timeout waiting for event")
		}
	}
}

func TestEventBusOtherTypeNotDelivered(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe("test.wanted")
	eb.Publish("test.other", event.NewEvent("test.other", 1))
	select {
	case evt := <-subCh:
		t.Fatalf("received unexpected event: %#v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	defer goleak.VerifyNone(t)
	var testEvtType event.EventType = "test.event"
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	subId, subCh := eb.Subscribe(testEvtType)
	eb.Unsubscribe(testEvtType, subId)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 1))
	select {
	case _, ok := <-subCh:
		if !ok {
			// Unsubscribe closes the subscriber channel
			return
		}
		t.Fatalf("received unexpected event")
	case <-time.After(1 * time.Second):
		t.Fatalf("subscriber channel was not closed after Unsubscribe")
	}
}

func TestSubscribeFuncPreservesOrder(t *testing.T) {
	defer goleak.VerifyNone(t)
	var testEvtType event.EventType = "test.order"
	eb := event.NewEventBus(nil, nil)
	var mu sync.Mutex
	var got []int
	eb.SubscribeFunc(testEvtType, func(evt event.Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, evt.Data.(int))
	})
	for i := range 100 {
		eb.Publish(testEvtType, event.NewEvent(testEvtType, i))
	}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 100
	}, 2*time.Second, 10*time.Millisecond)
	eb.Stop()
	for i, v := range got {
		require.Equal(t, i, v)
	}
}

func TestSubscribeFuncPanicRecovery(t *testing.T) {
	defer goleak.VerifyNone(t)
	var testEvtType event.EventType = "test.panic"
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()

	var received atomic.Int32
	eb.SubscribeFunc(testEvtType, func(evt event.Event) {
		if received.Add(1) == 1 {
			panic("intentional test panic")
		}
	})
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "panic"))
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "after-panic"))
	require.Eventually(t, func() bool {
		return received.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond,
		"handler should continue processing events after a panic",
	)
}

func TestEventBusStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	var testEvtType event.EventType = "test.event"
	eb := event.NewEventBus(nil, nil)
	_, subCh := eb.Subscribe(testEvtType)
	eb.SubscribeFunc(testEvtType, func(event.Event) {})
	eb.Stop()
	// Stop is idempotent
	eb.Stop()
	_, ok := <-subCh
	assert.False(t, ok, "subscriber channel should be closed by Stop")
	assert.False(
		t,
		eb.PublishAsync(testEvtType, event.NewEvent(testEvtType, 1)),
		"PublishAsync must fail after Stop",
	)
}

func TestPublishAsync(t *testing.T) {
	defer goleak.VerifyNone(t)
	var testEvtType event.EventType = "test.async"
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(testEvtType)
	require.True(t, eb.PublishAsync(testEvtType, event.NewEvent(testEvtType, 7)))
	select {
	case evt := <-subCh:
		assert.Equal(t, 7, evt.Data)
	case <-time.After(1 * time.Second):
		t.Fatalf("timeout waiting for async event")
	}
}

type failingSubscriber struct {
	closed atomic.Bool
}

func (f *failingSubscriber) Deliver(event.Event) error {
	panic("deliver failure")
}

func (f *failingSubscriber) Close() {
	f.closed.Store(true)
}

func TestFailingSubscriberRemoved(t *testing.T) {
	defer goleak.VerifyNone(t)
	var testEvtType event.EventType = "test.failing"
	reg := prometheus.NewRegistry()
	eb := event.NewEventBus(reg, nil)
	defer eb.Stop()
	sub := &failingSubscriber{}
	eb.RegisterSubscriber(testEvtType, sub)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 1))
	assert.True(t, sub.closed.Load(), "failing subscriber should be closed")
	count, err := testutil.GatherAndCount(
		reg,
		"crowdfund_event_delivery_errors_total",
	)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

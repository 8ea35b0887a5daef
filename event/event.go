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

// Package event provides the in-process publish/subscribe bus that carries
// ledger notifications to their consumers.
package event

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	EventQueueSize      = 20
	AsyncQueueSize      = 1000
	AsyncWorkerPoolSize = 4
)

type EventType string

type EventSubscriberId int

type EventHandlerFunc func(Event)

type Event struct {
	Timestamp time.Time
	Data      any
	Type      EventType
}

func NewEvent(eventType EventType, eventData any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      eventData,
	}
}

type asyncEvent struct {
	eventType EventType
	event     Event
}

type EventBus struct {
	subscribers  map[EventType]map[EventSubscriberId]Subscriber
	metrics      *eventMetrics
	logger       *slog.Logger
	asyncQueue   chan asyncEvent
	stopCh       chan struct{}
	lastSubId    EventSubscriberId
	asyncWg      sync.WaitGroup
	subscriberWg sync.WaitGroup
	mu           sync.RWMutex
	stopMu       sync.RWMutex
	stopped      bool
}

// NewEventBus creates a new EventBus and starts its async worker pool
func NewEventBus(
	promRegistry prometheus.Registerer,
	logger *slog.Logger,
) *EventBus {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e := &EventBus{
		subscribers: make(map[EventType]map[EventSubscriberId]Subscriber),
		logger:      logger.With("component", "event"),
		asyncQueue:  make(chan asyncEvent, AsyncQueueSize),
		stopCh:      make(chan struct{}),
	}
	if promRegistry != nil {
		e.initMetrics(promRegistry)
	}
	for range AsyncWorkerPoolSize {
		e.asyncWg.Add(1)
		go e.asyncWorker()
	}
	return e
}

func (e *EventBus) asyncWorker() {
	defer e.asyncWg.Done()
	for {
		select {
		case <-e.stopCh:
			return
		case ae := <-e.asyncQueue:
			e.Publish(ae.eventType, ae.event)
		}
	}
}

// Subscriber is a delivery abstraction for the EventBus. Implementations must
// make Close idempotent
type Subscriber interface {
	Deliver(Event) error
	Close()
}

// channelSubscriber delivers events on a buffered channel. Deliver blocks while
// the buffer is full, and Close waits for in-flight sends before closing
type channelSubscriber struct {
	ch     chan Event
	mu     sync.RWMutex
	closed bool
}

func newChannelSubscriber(buffer int) *channelSubscriber {
	return &channelSubscriber{
		ch: make(chan Event, buffer),
	}
}

func (c *channelSubscriber) Deliver(evt Event) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil
	}
	c.ch <- evt
	return nil
}

func (c *channelSubscriber) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}

// Subscribe allows a consumer to receive events of a particular type via a channel
func (e *EventBus) Subscribe(
	eventType EventType,
) (EventSubscriberId, <-chan Event) {
	chSub := newChannelSubscriber(EventQueueSize)
	subId := e.RegisterSubscriber(eventType, chSub)
	return subId, chSub.ch
}

// SubscribeFunc allows a consumer to receive events of a particular type via
// a callback function. The callback runs on a dedicated goroutine, one event
// at a time in publish order. A panicking callback is logged and does not stop
// delivery of later events
func (e *EventBus) SubscribeFunc(
	eventType EventType,
	handlerFunc EventHandlerFunc,
) EventSubscriberId {
	subId, evtCh := e.Subscribe(eventType)
	e.subscriberWg.Add(1)
	go func() {
		defer e.subscriberWg.Done()
		for evt := range evtCh {
			e.runHandler(eventType, handlerFunc, evt)
		}
	}()
	return subId
}

func (e *EventBus) runHandler(
	eventType EventType,
	handlerFunc EventHandlerFunc,
	evt Event,
) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error(
				fmt.Sprintf("event handler panic: %v", r),
				"type", eventType,
			)
			if e.metrics != nil {
				e.metrics.deliveryErrors.WithLabelValues(string(eventType), "handler-panic").
					Inc()
			}
		}
	}()
	handlerFunc(evt)
}

// RegisterSubscriber adds a custom Subscriber implementation and returns the
// assigned subscriber ID
func (e *EventBus) RegisterSubscriber(
	eventType EventType,
	sub Subscriber,
) EventSubscriberId {
	e.mu.Lock()
	defer e.mu.Unlock()
	subId := e.lastSubId + 1
	e.lastSubId = subId
	if _, ok := e.subscribers[eventType]; !ok {
		e.subscribers[eventType] = make(map[EventSubscriberId]Subscriber)
	}
	e.subscribers[eventType][subId] = sub
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType)).Inc()
	}
	return subId
}

// Unsubscribe stops delivery of events for a particular type for an existing subscriber
func (e *EventBus) Unsubscribe(eventType EventType, subId EventSubscriberId) {
	e.mu.Lock()
	var subToClose Subscriber
	if evtTypeSubs, ok := e.subscribers[eventType]; ok {
		if sub, ok2 := evtTypeSubs[subId]; ok2 {
			subToClose = sub
			delete(evtTypeSubs, subId)
			if len(evtTypeSubs) == 0 {
				delete(e.subscribers, eventType)
			}
			if e.metrics != nil {
				e.metrics.subscribers.WithLabelValues(string(eventType)).Dec()
			}
		}
	}
	e.mu.Unlock()
	if subToClose != nil {
		subToClose.Close()
	}
}

// Publish sends an event of a particular type to all subscribers. Subscribers
// are delivered to in subscription order, and Publish returns once every
// subscriber has accepted the event
func (e *EventBus) Publish(eventType EventType, evt Event) {
	e.mu.RLock()
	subs := e.subscribers[eventType]
	ids := make([]EventSubscriberId, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	subList := make([]Subscriber, 0, len(subs))
	slices.Sort(ids)
	for _, id := range ids {
		subList = append(subList, subs[id])
	}
	e.mu.RUnlock()
	for idx, sub := range subList {
		if err := deliver(sub, evt); err != nil {
			e.Unsubscribe(eventType, ids[idx])
			if e.metrics != nil {
				e.metrics.deliveryErrors.WithLabelValues(string(eventType), "deliver").
					Inc()
			}
			e.logger.Debug(
				"event delivery error",
				"type", eventType,
				"error", err,
			)
		}
	}
	if e.metrics != nil {
		e.metrics.eventsTotal.WithLabelValues(string(eventType)).Inc()
	}
}

func deliver(sub Subscriber, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber deliver panic: %v", r)
		}
	}()
	return sub.Deliver(evt)
}

// PublishAsync enqueues an event for asynchronous delivery to all subscribers.
// It returns false if the EventBus is stopped or the async queue is full
func (e *EventBus) PublishAsync(eventType EventType, evt Event) bool {
	e.stopMu.RLock()
	defer e.stopMu.RUnlock()
	if e.stopped {
		return false
	}
	select {
	case e.asyncQueue <- asyncEvent{eventType: eventType, event: evt}:
		return true
	default:
		e.logger.Warn(
			"async event queue full, dropping event",
			"type", eventType,
		)
		if e.metrics != nil {
			e.metrics.deliveryErrors.WithLabelValues(string(eventType), "async-dropped").
				Inc()
		}
		return false
	}
}

// Stop shuts down the async workers, closes all subscribers and waits for
// SubscribeFunc goroutines to exit. Calling Stop more than once is safe
func (e *EventBus) Stop() {
	e.stopMu.Lock()
	if e.stopped {
		e.stopMu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.stopMu.Unlock()
	e.asyncWg.Wait()

	e.mu.Lock()
	subsCopy := e.subscribers
	e.subscribers = make(map[EventType]map[EventSubscriberId]Subscriber)
	e.mu.Unlock()
	for _, evtTypeSubs := range subsCopy {
		for _, sub := range evtTypeSubs {
			sub.Close()
		}
	}
	if e.metrics != nil {
		e.metrics.subscribers.Reset()
	}
	e.subscriberWg.Wait()
}

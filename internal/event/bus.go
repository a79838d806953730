// SPDX-License-Identifier: MPL-2.0

// Package event carries the asynchronous acknowledgment/result notifications
// produced by command executions. It is backed by a watermill gochannel
// pub/sub while keeping direct typed delivery to subscribers, so payloads
// never round-trip through serialization.
package event

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Type identifies the kind of event.
type Type string

const (
	// CommandStarted is the immediate acknowledgment: the subprocess exists.
	CommandStarted Type = "command.started"
	// CommandFinished carries the captured output and exit status (or the
	// timeout indication) once the subprocess is done.
	CommandFinished Type = "command.finished"
)

type (
	// StartedPayload is the data of a CommandStarted event.
	StartedPayload struct {
		ExecutionID string
		Command     string
		PID         int
	}

	// FinishedPayload is the data of a CommandFinished event. Output holds
	// the combined stdout/stderr stream, possibly partial when TimedOut.
	FinishedPayload struct {
		ExecutionID string
		Command     string
		Output      string
		ExitCode    int
		TimedOut    bool
	}

	// Event is one notification published on the bus.
	Event struct {
		Type Type
		Data any
	}

	// Subscriber receives events.
	Subscriber func(Event)

	subscriberEntry struct {
		id uint64
		fn Subscriber
	}

	// Bus manages pub/sub delivery of execution events. Per invocation the
	// started event always precedes the finished event; events of different
	// invocations are unordered relative to each other.
	Bus struct {
		mu sync.RWMutex

		// watermill infrastructure, kept for middleware/routing and for
		// callers that want a message-based view of the stream.
		pubsub *gochannel.GoChannel

		subscribers map[Type][]subscriberEntry
		global      []subscriberEntry

		nextID uint64
		closed bool
	}
)

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				OutputChannelBuffer: 64,
				Persistent:          false,
			},
			watermill.NopLogger{},
		),
		subscribers: make(map[Type][]subscriberEntry),
	}
}

func (b *Bus) newID() uint64 {
	return atomic.AddUint64(&b.nextID, 1)
}

// Subscribe registers fn for one event type and returns an unsubscribe
// function.
func (b *Bus) Subscribe(t Type, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := b.newID()
	b.subscribers[t] = append(b.subscribers[t], subscriberEntry{id: id, fn: fn})
	return func() { b.unsubscribe(t, id) }
}

// SubscribeAll registers fn for every event type and returns an unsubscribe
// function.
func (b *Bus) SubscribeAll(fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	id := b.newID()
	b.global = append(b.global, subscriberEntry{id: id, fn: fn})
	return func() { b.unsubscribeGlobal(id) }
}

func (b *Bus) unsubscribe(t Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[t]
	for i, entry := range subs {
		if entry.id == id {
			b.subscribers[t] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

func (b *Bus) unsubscribeGlobal(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, entry := range b.global {
		if entry.id == id {
			b.global = append(b.global[:i], b.global[i+1:]...)
			break
		}
	}
}

// collect snapshots the subscriber set for one event under the read lock.
func (b *Bus) collect(t Type) []Subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil
	}
	subs := make([]Subscriber, 0, len(b.subscribers[t])+len(b.global))
	for _, entry := range b.subscribers[t] {
		subs = append(subs, entry.fn)
	}
	for _, entry := range b.global {
		subs = append(subs, entry.fn)
	}
	return subs
}

// Publish delivers the event to each subscriber in its own goroutine.
func (b *Bus) Publish(event Event) {
	for _, sub := range b.collect(event.Type) {
		go sub(event)
	}
}

// PublishSync delivers the event to all subscribers in the calling goroutine
// before returning. The executor uses this for the started event so the
// acknowledgment is observably ordered before the finished event.
func (b *Bus) PublishSync(event Event) {
	for _, sub := range b.collect(event.Type) {
		sub(event)
	}
}

// Close shuts down the bus; further subscriptions are no-ops and further
// publishes are dropped.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.subscribers = make(map[Type][]subscriberEntry)
	b.global = nil
	b.mu.Unlock()

	return b.pubsub.Close()
}

// PubSub exposes the underlying watermill GoChannel for callers that want
// the message-based stream (middleware, distributed backends).
func (b *Bus) PubSub() *gochannel.GoChannel {
	return b.pubsub
}

// WaitTimeout is a small helper for tests and callers that need to bound a
// wait for an event delivered through a channel.
func WaitTimeout[T any](ch <-chan T, d time.Duration) (T, bool) {
	select {
	case v := <-ch:
		return v, true
	case <-time.After(d):
		var zero T
		return zero, false
	}
}

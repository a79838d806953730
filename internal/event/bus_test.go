// SPDX-License-Identifier: MPL-2.0

package event

import (
	"sync"
	"testing"
	"time"
)

func TestBus_SubscribeAndPublish(t *testing.T) {
	t.Parallel()

	b := NewBus()
	t.Cleanup(func() { _ = b.Close() })

	got := make(chan Event, 1)
	b.Subscribe(CommandStarted, func(e Event) { got <- e })

	b.Publish(Event{Type: CommandStarted, Data: &StartedPayload{ExecutionID: "e1", PID: 42}})

	e, ok := WaitTimeout(got, time.Second)
	if !ok {
		t.Fatal("subscriber did not receive the event")
	}
	payload, ok := e.Data.(*StartedPayload)
	if !ok || payload.PID != 42 {
		t.Errorf("payload = %#v, want StartedPayload with PID 42", e.Data)
	}
}

func TestBus_TypeFiltering(t *testing.T) {
	t.Parallel()

	b := NewBus()
	t.Cleanup(func() { _ = b.Close() })

	var mu sync.Mutex
	var seen []Type
	b.Subscribe(CommandFinished, func(e Event) {
		mu.Lock()
		seen = append(seen, e.Type)
		mu.Unlock()
	})

	b.PublishSync(Event{Type: CommandStarted})
	b.PublishSync(Event{Type: CommandFinished})

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != CommandFinished {
		t.Errorf("seen = %v, want just CommandFinished", seen)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	t.Parallel()

	b := NewBus()
	t.Cleanup(func() { _ = b.Close() })

	count := 0
	unsub := b.Subscribe(CommandStarted, func(Event) { count++ })

	b.PublishSync(Event{Type: CommandStarted})
	unsub()
	b.PublishSync(Event{Type: CommandStarted})

	if count != 1 {
		t.Errorf("subscriber called %d times, want 1", count)
	}
}

func TestBus_PublishSyncOrdering(t *testing.T) {
	t.Parallel()

	b := NewBus()
	t.Cleanup(func() { _ = b.Close() })

	var order []Type
	b.SubscribeAll(func(e Event) { order = append(order, e.Type) })

	b.PublishSync(Event{Type: CommandStarted})
	b.PublishSync(Event{Type: CommandFinished})

	if len(order) != 2 || order[0] != CommandStarted || order[1] != CommandFinished {
		t.Errorf("order = %v, want started then finished", order)
	}
}

func TestBus_ClosedBusDropsEverything(t *testing.T) {
	t.Parallel()

	b := NewBus()
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	called := false
	unsub := b.Subscribe(CommandStarted, func(Event) { called = true })
	b.PublishSync(Event{Type: CommandStarted})
	unsub()

	if called {
		t.Error("subscriber on a closed bus was invoked")
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

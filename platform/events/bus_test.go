package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"outreach_backend/platform/logger"
)

type testEvent struct {
	BaseEvent
	name string
}

func (e testEvent) EventName() string { return e.name }

func TestPublishSyncRunsAllHandlers(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))

	var calls int
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		calls++
		return nil
	}))
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		calls++
		return nil
	}))

	if err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "test.event"}); err != nil {
		t.Fatalf("PublishSync returned error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 handler calls, got %d", calls)
	}
}

func TestPublishSyncJoinsHandlerErrors(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))

	wantErr := errors.New("handler failed")
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		return wantErr
	}))
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		return nil
	}))

	err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "test.event"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected joined error to contain %v, got %v", wantErr, err)
	}
}

func TestPublishSyncRecoversPanic(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))

	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		panic("boom")
	}))

	err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "test.event"})
	if err == nil {
		t.Fatal("expected error from panicking handler")
	}
}

func TestPublishDispatchesAsynchronously(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))

	var wg sync.WaitGroup
	wg.Add(1)
	bus.Subscribe("test.event", HandlerFunc(func(ctx context.Context, event Event) error {
		wg.Done()
		return nil
	}))

	bus.Publish(context.Background(), testEvent{NewBaseEvent(), "test.event"})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestPublishIgnoresUnsubscribedEvents(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))

	// No handlers registered: both paths must be no-ops.
	bus.Publish(context.Background(), testEvent{NewBaseEvent(), "test.unknown"})
	if err := bus.PublishSync(context.Background(), testEvent{NewBaseEvent(), "test.unknown"}); err != nil {
		t.Fatalf("PublishSync on unsubscribed event returned error: %v", err)
	}
}

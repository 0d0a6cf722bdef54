package sse

import (
	"sync"
	"testing"

	"outreach_backend/platform/logger"

	"github.com/google/uuid"
)

func TestPublishDeliversToUserSessions(t *testing.T) {
	svc := New(logger.New("test"))
	userID := uuid.New()

	first := &client{userID: userID, events: make(chan Event, 32)}
	second := &client{userID: userID, events: make(chan Event, 32)}
	other := &client{userID: uuid.New(), events: make(chan Event, 32)}
	svc.addClient(first)
	svc.addClient(second)
	svc.addClient(other)

	svc.Publish(userID, Event{Type: EventAnalysisComplete, ContactID: "prospect-1"})

	for _, c := range []*client{first, second} {
		select {
		case event := <-c.events:
			if event.ContactID != "prospect-1" {
				t.Fatalf("unexpected event: %+v", event)
			}
		default:
			t.Fatal("every session of the user must receive the event")
		}
	}
	select {
	case event := <-other.events:
		t.Fatalf("other users must not receive the event, got %+v", event)
	default:
	}
}

func TestBroadcastReachesAllUsers(t *testing.T) {
	svc := New(logger.New("test"))

	first := &client{userID: uuid.New(), events: make(chan Event, 32)}
	second := &client{userID: uuid.New(), events: make(chan Event, 32)}
	svc.addClient(first)
	svc.addClient(second)

	svc.Broadcast(Event{Type: EventConversationsStale})

	for _, c := range []*client{first, second} {
		select {
		case event := <-c.events:
			if event.Type != EventConversationsStale {
				t.Fatalf("unexpected event: %+v", event)
			}
		default:
			t.Fatal("broadcast must reach every connected user")
		}
	}
}

func TestBroadcastSurvivesConcurrentDisconnects(t *testing.T) {
	svc := New(logger.New("test"))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					svc.Broadcast(Event{Type: EventConversationsStale})
				}
			}
		}()
	}

	// Connection churn while broadcasts are in flight. A send racing a
	// disconnect used to risk a send on a closed channel.
	for i := 0; i < 200; i++ {
		c := &client{userID: uuid.New(), events: make(chan Event, 32)}
		svc.addClient(c)
		svc.removeClient(c)
	}

	close(stop)
	wg.Wait()
}

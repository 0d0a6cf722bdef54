// Package notification pushes domain events to connected dashboard sessions
// over SSE. It subscribes to the bus so domain modules never know about
// transport concerns.
package notification

import (
	"context"
	"fmt"

	"outreach_backend/internal/events"
	apphttp "outreach_backend/internal/http"
	"outreach_backend/internal/notification/sse"
	"outreach_backend/platform/httpkit"
	"outreach_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Module struct {
	sse *sse.Service
	log *logger.Logger
}

func NewModule(log *logger.Logger) *Module {
	return &Module{
		sse: sse.New(log),
		log: log,
	}
}

func (m *Module) SSE() *sse.Service {
	return m.sse
}

func (m *Module) Name() string {
	return "notification"
}

// RegisterRoutes mounts the SSE stream endpoint. The auth middleware accepts
// the token as a query param so EventSource clients can connect.
func (m *Module) RegisterRoutes(rc *apphttp.RouterContext) {
	rc.Protected.GET("/stream", m.sse.Handler(func(c *gin.Context) (uuid.UUID, bool) {
		id := httpkit.GetIdentity(c)
		if !id.IsAuthenticated() {
			return uuid.Nil, false
		}
		return id.UserID(), true
	}))
}

// RegisterHandlers subscribes the SSE broadcaster to the domain events the
// dashboard reacts to.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.AnalysisCompleted{}.EventName(), events.HandlerFunc(m.onAnalysisCompleted))
	bus.Subscribe(events.ReanalysisCompleted{}.EventName(), events.HandlerFunc(m.onReanalysisCompleted))
	bus.Subscribe(events.ConversationsStale{}.EventName(), events.HandlerFunc(m.onConversationsStale))
	bus.Subscribe(events.TraitCriteriaRefreshed{}.EventName(), events.HandlerFunc(m.onCriteriaRefreshed))
	bus.Subscribe(events.LeadershipChanged{}.EventName(), events.HandlerFunc(m.onLeadershipChanged))
}

func (m *Module) onAnalysisCompleted(ctx context.Context, event events.Event) error {
	completed, ok := event.(events.AnalysisCompleted)
	if !ok {
		return fmt.Errorf("unexpected event type for %s", event.EventName())
	}

	m.sse.Broadcast(sse.Event{
		Type:      sse.EventAnalysisComplete,
		ContactID: completed.ContactID,
		Data: map[string]interface{}{
			"matchPoints": completed.MatchPoints,
			"confidence":  completed.Confidence,
		},
	})
	return nil
}

func (m *Module) onReanalysisCompleted(ctx context.Context, event events.Event) error {
	completed, ok := event.(events.ReanalysisCompleted)
	if !ok {
		return fmt.Errorf("unexpected event type for %s", event.EventName())
	}

	m.sse.Broadcast(sse.Event{
		Type: sse.EventReanalysisComplete,
		Data: map[string]interface{}{
			"attempted": completed.Attempted,
			"scored":    completed.Scored,
			"skipped":   completed.Skipped,
			"failed":    completed.Failed,
		},
	})
	return nil
}

func (m *Module) onConversationsStale(ctx context.Context, event events.Event) error {
	stale, ok := event.(events.ConversationsStale)
	if !ok {
		return fmt.Errorf("unexpected event type for %s", event.EventName())
	}

	m.sse.Broadcast(sse.Event{
		Type:    sse.EventConversationsStale,
		Message: stale.Reason,
	})
	return nil
}

func (m *Module) onLeadershipChanged(ctx context.Context, event events.Event) error {
	changed, ok := event.(events.LeadershipChanged)
	if !ok {
		return fmt.Errorf("unexpected event type for %s", event.EventName())
	}

	m.sse.Broadcast(sse.Event{
		Type: sse.EventLeadershipChanged,
		Data: map[string]interface{}{
			"state": changed.State,
		},
	})
	return nil
}

func (m *Module) onCriteriaRefreshed(ctx context.Context, event events.Event) error {
	refreshed, ok := event.(events.TraitCriteriaRefreshed)
	if !ok {
		return fmt.Errorf("unexpected event type for %s", event.EventName())
	}

	m.sse.Broadcast(sse.Event{
		Type: sse.EventCriteriaRefreshed,
		Data: map[string]interface{}{
			"enabledCount": refreshed.EnabledCount,
		},
	})
	return nil
}

// Close releases all SSE connections.
func (m *Module) Close() {
	m.sse.Close()
}

// Package conversations wires the ranked conversation view: message-derived
// aggregates joined with the analysis cache, recomputed when stale.
package conversations

import (
	"context"

	"outreach_backend/internal/conversations/handler"
	"outreach_backend/internal/conversations/service"
	"outreach_backend/internal/events"
	apphttp "outreach_backend/internal/http"
	"outreach_backend/platform/logger"
)

type Module struct {
	svc     *service.Service
	handler *handler.Handler
}

func NewModule(messages service.MessageLister, analyses service.AnalysisLister, log *logger.Logger) *Module {
	svc := service.New(messages, analyses, log)

	return &Module{
		svc:     svc,
		handler: handler.New(svc),
	}
}

// RegisterHandlers subscribes the stale flag to the events that invalidate
// the ranked view.
func (m *Module) RegisterHandlers(bus events.Bus) {
	markStale := events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		m.svc.MarkStale()
		return nil
	})

	bus.Subscribe(events.ConversationsStale{}.EventName(), markStale)
	bus.Subscribe(events.AnalysisCompleted{}.EventName(), markStale)
	bus.Subscribe(events.TraitCriteriaRefreshed{}.EventName(), markStale)
}

func (m *Module) Name() string {
	return "conversations"
}

func (m *Module) RegisterRoutes(rc *apphttp.RouterContext) {
	m.handler.RegisterRoutes(rc.Protected.Group("/conversations"))
}

func (m *Module) Service() *service.Service {
	return m.svc
}

func (m *Module) Handler() *handler.Handler {
	return m.handler
}

// Package traits wires the trait criteria module: read-only access to the
// operator-configured ideal-customer criteria plus the refresh signal.
package traits

import (
	"outreach_backend/internal/events"
	apphttp "outreach_backend/internal/http"
	"outreach_backend/internal/traits/handler"
	"outreach_backend/internal/traits/repository"
	"outreach_backend/internal/traits/service"
	"outreach_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	svc     *service.Service
	handler *handler.Handler
}

func NewModule(pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log)

	return &Module{
		svc:     svc,
		handler: handler.New(svc),
	}
}

func (m *Module) Name() string {
	return "traits"
}

func (m *Module) RegisterRoutes(rc *apphttp.RouterContext) {
	m.handler.RegisterRoutes(rc.Protected.Group("/traits"))
}

func (m *Module) Service() *service.Service {
	return m.svc
}

func (m *Module) Handler() *handler.Handler {
	return m.handler
}

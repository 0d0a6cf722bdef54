// Package analysis wires the trait-analysis module: the persisted analysis
// cache, the scoring orchestrator and the batch reanalysis job.
package analysis

import (
	"outreach_backend/internal/analysis/handler"
	"outreach_backend/internal/analysis/repository"
	"outreach_backend/internal/analysis/service"
	"outreach_backend/internal/events"
	apphttp "outreach_backend/internal/http"
	messagerepo "outreach_backend/internal/messages/repository"
	traitservice "outreach_backend/internal/traits/service"
	"outreach_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	repo    *repository.Repository
	svc     *service.Service
	handler *handler.Handler
}

func NewModule(
	pool *pgxpool.Pool,
	messages *messagerepo.Repository,
	traits *traitservice.Service,
	clf service.Classifier,
	bus events.Bus,
	jobs handler.BackgroundEnqueuer,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(messages, traits, clf, repo, bus, log)

	return &Module{
		repo:    repo,
		svc:     svc,
		handler: handler.New(svc, jobs),
	}
}

func (m *Module) Name() string {
	return "analysis"
}

func (m *Module) RegisterRoutes(rc *apphttp.RouterContext) {
	m.handler.RegisterRoutes(rc.Protected.Group("/analysis"))
}

func (m *Module) Repository() *repository.Repository {
	return m.repo
}

func (m *Module) Service() *service.Service {
	return m.svc
}

func (m *Module) Handler() *handler.Handler {
	return m.handler
}

// Package messages wires the message storage module: the thin write path the
// external ingestion lands on, plus per-contact history reads.
package messages

import (
	apphttp "outreach_backend/internal/http"
	"outreach_backend/internal/messages/handler"
	"outreach_backend/internal/messages/repository"
	"outreach_backend/internal/messages/service"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	repo    *repository.Repository
	svc     *service.Service
	handler *handler.Handler
}

func NewModule(pool *pgxpool.Pool, stream service.StreamPublisher, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, stream, log)

	return &Module{
		repo:    repo,
		svc:     svc,
		handler: handler.New(svc, val),
	}
}

func (m *Module) Name() string {
	return "messages"
}

func (m *Module) RegisterRoutes(rc *apphttp.RouterContext) {
	m.handler.RegisterRoutes(rc.Protected.Group("/messages"))
}

func (m *Module) Repository() *repository.Repository {
	return m.repo
}

func (m *Module) Handler() *handler.Handler {
	return m.handler
}

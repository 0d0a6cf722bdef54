// Package service keeps a local copy of the enabled trait criteria.
// The criteria are mutated externally by the configuration UI; the dashboard
// emits a refresh signal after edits, which reloads the cache.
package service

import (
	"context"
	"sync"

	"outreach_backend/internal/events"
	"outreach_backend/internal/traits/repository"
	"outreach_backend/platform/logger"
)

// CriteriaReader is the read-only slice of the repository this service needs.
type CriteriaReader interface {
	List(ctx context.Context) ([]repository.TraitCriterion, error)
	ListEnabled(ctx context.Context) ([]repository.TraitCriterion, error)
}

type Service struct {
	repo CriteriaReader
	bus  events.Bus
	log  *logger.Logger

	mu      sync.RWMutex
	enabled []repository.TraitCriterion
}

func New(repo CriteriaReader, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// List returns all criteria straight from the store, for the dashboard.
func (s *Service) List(ctx context.Context) ([]repository.TraitCriterion, error) {
	return s.repo.List(ctx)
}

// Enabled returns the cached enabled criteria in position order.
// An empty slice means scoring is idle (NoTraitsConfigured).
func (s *Service) Enabled() []repository.TraitCriterion {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]repository.TraitCriterion, len(s.enabled))
	copy(out, s.enabled)
	return out
}

// Refresh reloads the enabled-criteria cache from the store and announces
// the new configuration on the bus.
func (s *Service) Refresh(ctx context.Context) error {
	enabled, err := s.repo.ListEnabled(ctx)
	if err != nil {
		s.log.DatabaseError("traits.refresh", err)
		return err
	}

	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()

	s.log.Info("trait criteria refreshed", "enabled", len(enabled))
	if s.bus != nil {
		s.bus.Publish(ctx, events.TraitCriteriaRefreshed{
			BaseEvent:    events.NewBaseEvent(),
			EnabledCount: len(enabled),
		})
	}

	return nil
}

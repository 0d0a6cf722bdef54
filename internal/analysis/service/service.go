// Package service contains the scoring orchestrator: it decides when a
// prospect is scored, calls the trait classifier, persists the result and
// signals the ranked view to recompute.
package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"outreach_backend/internal/analysis/repository"
	"outreach_backend/internal/events"
	messagerepo "outreach_backend/internal/messages/repository"
	traitrepo "outreach_backend/internal/traits/repository"
	"outreach_backend/platform/ai/classifier"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"
)

// ScoreStatus describes the outcome of a scoring attempt. The first two are
// expected idle states, not errors.
type ScoreStatus string

const (
	StatusScored             ScoreStatus = "scored"
	StatusNoTraitsConfigured ScoreStatus = "no_traits_configured"
	StatusNothingToAnalyze   ScoreStatus = "nothing_to_analyze"
)

// ScoreOutcome is the result of one ScoreContact call.
// Result is set only when Status is StatusScored.
type ScoreOutcome struct {
	Status ScoreStatus
	Result *repository.AnalysisResult
}

// MessageReader loads the message history the classifier judges.
type MessageReader interface {
	ListByContact(ctx context.Context, contactID string) ([]messagerepo.Message, error)
	ListContactIDs(ctx context.Context) ([]string, error)
}

// TraitSource provides the cached enabled criteria.
type TraitSource interface {
	Enabled() []traitrepo.TraitCriterion
}

// Classifier is the external classification capability.
type Classifier interface {
	Analyze(ctx context.Context, text string, traits []classifier.Trait) (classifier.Verdict, error)
}

// AnalysisStore is the persisted per-contact analysis cache.
type AnalysisStore interface {
	Get(ctx context.Context, contactID string) (repository.AnalysisResult, error)
	Upsert(ctx context.Context, result repository.AnalysisResult) (repository.AnalysisResult, error)
	ListAll(ctx context.Context) ([]repository.AnalysisResult, error)
}

type Service struct {
	messages MessageReader
	traits   TraitSource
	clf      Classifier
	store    AnalysisStore
	bus      events.Bus
	log      *logger.Logger
}

func New(messages MessageReader, traits TraitSource, clf Classifier, store AnalysisStore, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		messages: messages,
		traits:   traits,
		clf:      clf,
		store:    store,
		bus:      bus,
		log:      log,
	}
}

// Get returns the stored analysis for a contact.
func (s *Service) Get(ctx context.Context, contactID string) (repository.AnalysisResult, error) {
	result, err := s.store.Get(ctx, contactID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.AnalysisResult{}, apperr.NotFound("no analysis for contact")
	}
	if err != nil {
		s.log.DatabaseError("analysis.get", err)
		return repository.AnalysisResult{}, apperr.Wrap(apperr.KindInternal, "failed to load analysis", err)
	}
	return result, nil
}

// ScoreContact re-scores one prospect against the enabled criteria.
// Repeated calls with unchanged inputs converge to the same persisted row;
// on any failure the previously stored result stays authoritative.
func (s *Service) ScoreContact(ctx context.Context, contactID string) (ScoreOutcome, error) {
	enabled := s.traits.Enabled()
	if len(enabled) == 0 {
		return ScoreOutcome{Status: StatusNoTraitsConfigured}, nil
	}

	msgs, err := s.messages.ListByContact(ctx, contactID)
	if err != nil {
		s.log.DatabaseError("analysis.load_messages", err)
		return ScoreOutcome{}, apperr.Wrap(apperr.KindInternal, "failed to load messages", err).WithOp("analysis.score")
	}

	text := inboundText(msgs)
	if text == "" {
		return ScoreOutcome{Status: StatusNothingToAnalyze}, nil
	}

	verdict, err := s.clf.Analyze(ctx, text, toClassifierTraits(enabled))
	if err != nil {
		s.log.ClassificationError(contactID, err)
		return ScoreOutcome{}, classificationError(err)
	}

	result := buildResult(contactID, verdict, enabled, len(msgs))

	stored, err := s.store.Upsert(ctx, result)
	if err != nil {
		s.log.DatabaseError("analysis.upsert", err)
		return ScoreOutcome{}, apperr.Wrap(apperr.KindInternal, "failed to persist analysis", err).WithOp("analysis.score")
	}

	s.notifyScored(ctx, stored)

	return ScoreOutcome{Status: StatusScored, Result: &stored}, nil
}

// inboundText concatenates the inbound message texts in chronological order.
// Outbound text is excluded from the classification input.
func inboundText(msgs []messagerepo.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Direction != messagerepo.DirectionInbound {
			continue
		}
		if trimmed := strings.TrimSpace(msg.Text); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, " ")
}

// buildResult normalizes the classifier's verdict against the enabled
// criteria so the stored row always satisfies the cache invariants,
// whatever the model returned.
func buildResult(contactID string, verdict classifier.Verdict, enabled []traitrepo.TraitCriterion, messageCount int) repository.AnalysisResult {
	seen := make(map[int]bool, len(verdict.MetTraitIndices))
	indices := make([]int, 0, len(verdict.MetTraitIndices))
	for _, idx := range verdict.MetTraitIndices {
		if idx < 0 || idx >= len(enabled) || seen[idx] {
			continue
		}
		seen[idx] = true
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	metTraits := make([]string, 0, len(indices))
	for _, idx := range indices {
		metTraits = append(metTraits, enabled[idx].Text)
	}

	confidence := verdict.Confidence
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	return repository.AnalysisResult{
		ContactID:              contactID,
		MatchPoints:            len(indices),
		MetTraits:              metTraits,
		MetTraitIndices:        indices,
		Confidence:             confidence,
		AnalyzedAt:             time.Now(),
		MessageCountAtAnalysis: messageCount,
	}
}

func (s *Service) notifyScored(ctx context.Context, stored repository.AnalysisResult) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.AnalysisCompleted{
		BaseEvent:   events.NewBaseEvent(),
		ContactID:   stored.ContactID,
		MatchPoints: stored.MatchPoints,
		Confidence:  stored.Confidence,
	})
	s.bus.Publish(ctx, events.ConversationsStale{
		BaseEvent: events.NewBaseEvent(),
		Reason:    "analysis_updated",
	})
}

func classificationError(err error) error {
	switch {
	case errors.Is(err, classifier.ErrTimeout):
		return apperr.Wrap(apperr.KindTimeout, "classification timed out", err).WithOp("analysis.score")
	case errors.Is(err, classifier.ErrMalformed):
		return apperr.Wrap(apperr.KindUpstream, "classifier returned a malformed response", err).WithOp("analysis.score")
	default:
		return apperr.Wrap(apperr.KindUpstream, "classification failed", err).WithOp("analysis.score")
	}
}

func toClassifierTraits(enabled []traitrepo.TraitCriterion) []classifier.Trait {
	traits := make([]classifier.Trait, 0, len(enabled))
	for _, criterion := range enabled {
		traits = append(traits, classifier.Trait{
			Text:     criterion.Text,
			Position: criterion.Position,
		})
	}
	return traits
}

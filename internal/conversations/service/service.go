// Package service assembles conversations from the message set and serves
// the ranked view the dashboard lists prospects by.
package service

import (
	"context"
	"sync"

	analysisrepo "outreach_backend/internal/analysis/repository"
	messagerepo "outreach_backend/internal/messages/repository"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

// MessageLister loads the full message set conversations derive from.
type MessageLister interface {
	ListAll(ctx context.Context) ([]messagerepo.Message, error)
}

// AnalysisLister loads the cached analyses joined into the ranked view.
type AnalysisLister interface {
	ListAll(ctx context.Context) ([]analysisrepo.AnalysisResult, error)
}

type Service struct {
	messages MessageLister
	analyses AnalysisLister
	log      *logger.Logger

	mu        sync.Mutex
	reloading bool
	stale     bool
	loaded    bool
	cached    []RankedConversation
}

func New(messages MessageLister, analyses AnalysisLister, log *logger.Logger) *Service {
	return &Service{
		messages: messages,
		analyses: analyses,
		log:      log,
		stale:    true,
	}
}

// MarkStale flags the ranked view for recompute on the next read.
func (s *Service) MarkStale() {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
}

// Ranked returns the ranked conversation list, recomputing it when stale.
// A reload already in progress short-circuits concurrent requests: they get
// the previous view instead of starting a second reload.
func (s *Service) Ranked(ctx context.Context) ([]RankedConversation, error) {
	s.mu.Lock()
	needsReload := s.stale || !s.loaded
	if needsReload && s.reloading {
		// Another caller is already reloading; serve what we have.
		cached := s.cached
		s.mu.Unlock()
		return cached, nil
	}
	if !needsReload {
		cached := s.cached
		s.mu.Unlock()
		return cached, nil
	}
	s.reloading = true
	s.mu.Unlock()

	ranked, err := s.reload(ctx)

	s.mu.Lock()
	s.reloading = false
	if err == nil {
		s.cached = ranked
		s.loaded = true
		s.stale = false
	}
	cached := s.cached
	s.mu.Unlock()

	if err != nil {
		// Serve the stale view if we have one; the next read retries.
		if cached != nil {
			s.log.Error("conversation reload failed, serving stale view", "error", err)
			return cached, nil
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load conversations", err)
	}

	return cached, nil
}

func (s *Service) reload(ctx context.Context) ([]RankedConversation, error) {
	var (
		msgs     []messagerepo.Message
		analyses []analysisrepo.AnalysisResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		msgs, err = s.messages.ListAll(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		analyses, err = s.analyses.ListAll(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Rank(buildConversations(msgs), analyses), nil
}

// buildConversations groups the chronologically ordered message set by
// contact. The unread count is the run of inbound messages since the last
// outbound one.
func buildConversations(msgs []messagerepo.Message) []Conversation {
	order := make([]string, 0)
	byContact := make(map[string]*Conversation)

	for _, msg := range msgs {
		conv, ok := byContact[msg.ContactID]
		if !ok {
			conv = &Conversation{ContactID: msg.ContactID}
			byContact[msg.ContactID] = conv
			order = append(order, msg.ContactID)
		}

		conv.Messages = append(conv.Messages, msg)
		last := conv.Messages[len(conv.Messages)-1]
		conv.LastMessage = &last

		if msg.Direction == messagerepo.DirectionInbound {
			conv.UnreadCount++
		} else {
			conv.UnreadCount = 0
		}
	}

	conversations := make([]Conversation, 0, len(byContact))
	for _, contactID := range order {
		conversations = append(conversations, *byContact[contactID])
	}

	return conversations
}

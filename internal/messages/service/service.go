// Package service stores incoming messages and announces them on the account
// stream. The webhook/ingestion protocol itself lives outside this backend;
// this is the thin write path it lands on.
package service

import (
	"context"

	"outreach_backend/internal/ingest"
	"outreach_backend/internal/messages/repository"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"
)

// StreamPublisher announces stored messages to every running instance.
type StreamPublisher interface {
	PublishInsert(ctx context.Context, row ingest.MessageRow) error
}

type Service struct {
	repo   *repository.Repository
	stream StreamPublisher
	log    *logger.Logger
}

func New(repo *repository.Repository, stream StreamPublisher, log *logger.Logger) *Service {
	return &Service{repo: repo, stream: stream, log: log}
}

// Ingest stores a message and broadcasts the insert notification.
// A failed broadcast does not roll back the stored message; the next batch
// run or refresh picks the contact up.
func (s *Service) Ingest(ctx context.Context, params repository.InsertMessageParams) (repository.Message, error) {
	msg, err := s.repo.Insert(ctx, params)
	if err != nil {
		s.log.DatabaseError("messages.insert", err)
		return repository.Message{}, apperr.Wrap(apperr.KindInternal, "failed to store message", err)
	}

	if s.stream != nil {
		row := ingest.MessageRow{
			ID:         msg.ID.String(),
			ContactID:  msg.ContactID,
			Direction:  msg.Direction,
			Text:       msg.Text,
			OccurredAt: msg.OccurredAt,
		}
		if err := s.stream.PublishInsert(ctx, row); err != nil {
			s.log.Error("failed to publish message insert", "contact_id", msg.ContactID, "error", err)
		}
	}

	return msg, nil
}

// ListByContact returns a contact's messages in chronological order.
func (s *Service) ListByContact(ctx context.Context, contactID string) ([]repository.Message, error) {
	return s.repo.ListByContact(ctx, contactID)
}

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Message directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Message is one stored direct message. Immutable once inserted.
type Message struct {
	ID         uuid.UUID
	ContactID  string
	Direction  string
	Text       string
	OccurredAt time.Time
	CreatedAt  time.Time
}

// InsertMessageParams contains the parameters for storing a message.
type InsertMessageParams struct {
	ContactID  string
	Direction  string
	Text       string
	OccurredAt time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores a new message.
func (r *Repository) Insert(ctx context.Context, params InsertMessageParams) (Message, error) {
	var msg Message
	err := r.pool.QueryRow(ctx, `
		INSERT INTO messages (contact_id, direction, text, occurred_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, contact_id, direction, text, occurred_at, created_at
	`, params.ContactID, params.Direction, params.Text, params.OccurredAt).Scan(
		&msg.ID, &msg.ContactID, &msg.Direction, &msg.Text, &msg.OccurredAt, &msg.CreatedAt,
	)
	if err != nil {
		return Message{}, err
	}

	return msg, nil
}

// ListByContact returns all messages for a contact in chronological order.
func (r *Repository) ListByContact(ctx context.Context, contactID string) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, contact_id, direction, text, occurred_at, created_at
		FROM messages
		WHERE contact_id = $1
		ORDER BY occurred_at ASC, created_at ASC
	`, contactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.ContactID, &msg.Direction, &msg.Text, &msg.OccurredAt, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// ListAll returns every stored message in chronological order, for
// conversation assembly.
func (r *Repository) ListAll(ctx context.Context) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, contact_id, direction, text, occurred_at, created_at
		FROM messages
		ORDER BY occurred_at ASC, created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.ContactID, &msg.Direction, &msg.Text, &msg.OccurredAt, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// ListContactIDs returns every contact with at least one message, ordered by
// most recent activity first.
func (r *Repository) ListContactIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT contact_id
		FROM messages
		GROUP BY contact_id
		ORDER BY MAX(occurred_at) DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contactIDs := make([]string, 0)
	for rows.Next() {
		var contactID string
		if err := rows.Scan(&contactID); err != nil {
			return nil, err
		}
		contactIDs = append(contactIDs, contactID)
	}

	return contactIDs, rows.Err()
}

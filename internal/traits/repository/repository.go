package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TraitCriterion is one operator-defined ideal-customer characteristic.
// Criteria are edited by the configuration UI; this core only reads them.
type TraitCriterion struct {
	ID        uuid.UUID
	Text      string
	Enabled   bool
	Position  int
	UpdatedAt time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all trait criteria ordered by position.
func (r *Repository) List(ctx context.Context) ([]TraitCriterion, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, text, enabled, position, updated_at
		FROM trait_criteria
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	criteria := make([]TraitCriterion, 0)
	for rows.Next() {
		var criterion TraitCriterion
		if err := rows.Scan(&criterion.ID, &criterion.Text, &criterion.Enabled, &criterion.Position, &criterion.UpdatedAt); err != nil {
			return nil, err
		}
		criteria = append(criteria, criterion)
	}

	return criteria, rows.Err()
}

// ListEnabled returns only the enabled criteria, ordered by position.
// These are the criteria that participate in scoring.
func (r *Repository) ListEnabled(ctx context.Context) ([]TraitCriterion, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, text, enabled, position, updated_at
		FROM trait_criteria
		WHERE enabled = true
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	criteria := make([]TraitCriterion, 0)
	for rows.Next() {
		var criterion TraitCriterion
		if err := rows.Scan(&criterion.ID, &criterion.Text, &criterion.Enabled, &criterion.Position, &criterion.UpdatedAt); err != nil {
			return nil, err
		}
		criteria = append(criteria, criterion)
	}

	return criteria, rows.Err()
}

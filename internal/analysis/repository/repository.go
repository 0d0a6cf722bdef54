package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("analysis not found")

// AnalysisResult is the persisted last-known trait analysis for a contact.
// One row per contact; a fresh analysis fully replaces the prior one.
type AnalysisResult struct {
	ContactID              string
	MatchPoints            int
	MetTraits              []string
	MetTraitIndices        []int
	Confidence             float64
	AnalyzedAt             time.Time
	MessageCountAtAnalysis int
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the stored analysis for a contact, or ErrNotFound.
func (r *Repository) Get(ctx context.Context, contactID string) (AnalysisResult, error) {
	var result AnalysisResult
	var metTraitsJSON, metIndicesJSON []byte

	err := r.pool.QueryRow(ctx, `
		SELECT contact_id, match_points, met_traits, met_trait_indices, confidence, analyzed_at, message_count_at_analysis
		FROM analysis_results
		WHERE contact_id = $1
	`, contactID).Scan(
		&result.ContactID, &result.MatchPoints, &metTraitsJSON, &metIndicesJSON,
		&result.Confidence, &result.AnalyzedAt, &result.MessageCountAtAnalysis,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return AnalysisResult{}, ErrNotFound
	}
	if err != nil {
		return AnalysisResult{}, err
	}

	_ = json.Unmarshal(metTraitsJSON, &result.MetTraits)
	_ = json.Unmarshal(metIndicesJSON, &result.MetTraitIndices)

	return result, nil
}

// Upsert stores the analysis, fully overwriting any prior row for the
// contact. Last write wins.
func (r *Repository) Upsert(ctx context.Context, result AnalysisResult) (AnalysisResult, error) {
	metTraitsJSON, _ := json.Marshal(result.MetTraits)
	metIndicesJSON, _ := json.Marshal(result.MetTraitIndices)

	var stored AnalysisResult
	var storedTraitsJSON, storedIndicesJSON []byte

	err := r.pool.QueryRow(ctx, `
		INSERT INTO analysis_results (contact_id, match_points, met_traits, met_trait_indices, confidence, analyzed_at, message_count_at_analysis)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (contact_id) DO UPDATE SET
			match_points = EXCLUDED.match_points,
			met_traits = EXCLUDED.met_traits,
			met_trait_indices = EXCLUDED.met_trait_indices,
			confidence = EXCLUDED.confidence,
			analyzed_at = EXCLUDED.analyzed_at,
			message_count_at_analysis = EXCLUDED.message_count_at_analysis
		RETURNING contact_id, match_points, met_traits, met_trait_indices, confidence, analyzed_at, message_count_at_analysis
	`,
		result.ContactID, result.MatchPoints, metTraitsJSON, metIndicesJSON,
		result.Confidence, result.AnalyzedAt, result.MessageCountAtAnalysis,
	).Scan(
		&stored.ContactID, &stored.MatchPoints, &storedTraitsJSON, &storedIndicesJSON,
		&stored.Confidence, &stored.AnalyzedAt, &stored.MessageCountAtAnalysis,
	)
	if err != nil {
		return AnalysisResult{}, err
	}

	_ = json.Unmarshal(storedTraitsJSON, &stored.MetTraits)
	_ = json.Unmarshal(storedIndicesJSON, &stored.MetTraitIndices)

	return stored, nil
}

// ListAll returns the analysis for every contact that has one.
func (r *Repository) ListAll(ctx context.Context) ([]AnalysisResult, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT contact_id, match_points, met_traits, met_trait_indices, confidence, analyzed_at, message_count_at_analysis
		FROM analysis_results
		ORDER BY analyzed_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]AnalysisResult, 0)
	for rows.Next() {
		var result AnalysisResult
		var metTraitsJSON, metIndicesJSON []byte

		if err := rows.Scan(
			&result.ContactID, &result.MatchPoints, &metTraitsJSON, &metIndicesJSON,
			&result.Confidence, &result.AnalyzedAt, &result.MessageCountAtAnalysis,
		); err != nil {
			return nil, err
		}

		_ = json.Unmarshal(metTraitsJSON, &result.MetTraits)
		_ = json.Unmarshal(metIndicesJSON, &result.MetTraitIndices)

		results = append(results, result)
	}

	return results, rows.Err()
}

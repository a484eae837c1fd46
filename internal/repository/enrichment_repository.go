package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/triagehq/triage-service/internal/domain"
)

// EnrichmentRepository owns the atomic commit of an enrichment run: the
// ticket's analysis columns are overwritten and a suggestion row is
// appended in one transaction, both or neither.
type EnrichmentRepository interface {
	CommitEnrichment(ctx context.Context, analysis domain.TicketAnalysis, suggestion *domain.AISuggestion) error
	ListSuggestions(ctx context.Context, orgID, ticketID string) ([]domain.AISuggestion, error)
}

type enrichmentRepository struct {
	pool *pgxpool.Pool
}

// NewEnrichmentRepository instantiates repository.
func NewEnrichmentRepository(pool *pgxpool.Pool) EnrichmentRepository {
	return &enrichmentRepository{pool: pool}
}

// CommitEnrichment writes both halves of an enrichment result inside a
// single transaction. The ticket update deliberately leaves
// first_response_at untouched so a racing agent reply is never lost.
func (r *enrichmentRepository) CommitEnrichment(ctx context.Context, analysis domain.TicketAnalysis, suggestion *domain.AISuggestion) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const updateQuery = `
        UPDATE tickets SET sentiment=$1, sentiment_score=$2, priority=$3, category=$4,
            language=$5, summary=$6, analyzed_at=$7, updated_at=NOW()
        WHERE id=$8 AND organization_id=$9`
	cmd, err := tx.Exec(ctx, updateQuery,
		analysis.Sentiment,
		analysis.SentimentScore,
		analysis.Priority,
		analysis.Category,
		analysis.Language,
		analysis.Summary,
		analysis.AnalyzedAt,
		suggestion.TicketID,
		suggestion.OrganizationID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	const insertQuery = `
        INSERT INTO ai_suggestions (organization_id, ticket_id, suggested_reply, confidence, reasoning)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	if err := tx.QueryRow(ctx, insertQuery,
		suggestion.OrganizationID,
		suggestion.TicketID,
		suggestion.SuggestedReply,
		suggestion.Confidence,
		suggestion.Reasoning,
	).Scan(&suggestion.ID, &suggestion.CreatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *enrichmentRepository) ListSuggestions(ctx context.Context, orgID, ticketID string) ([]domain.AISuggestion, error) {
	const query = `
        SELECT id, organization_id, ticket_id, suggested_reply, confidence, reasoning, created_at
        FROM ai_suggestions
        WHERE organization_id=$1 AND ticket_id=$2
        ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, orgID, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AISuggestion
	for rows.Next() {
		var s domain.AISuggestion
		if err := rows.Scan(
			&s.ID,
			&s.OrganizationID,
			&s.TicketID,
			&s.SuggestedReply,
			&s.Confidence,
			&s.Reasoning,
			&s.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

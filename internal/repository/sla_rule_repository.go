package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/triagehq/triage-service/internal/domain"
	"github.com/triagehq/triage-service/internal/sla"
)

// SlaRuleRepository encapsulates SLA rule persistence. One rule exists per
// (organization, priority).
type SlaRuleRepository interface {
	Upsert(ctx context.Context, rule *sla.Rule) error
	Delete(ctx context.Context, orgID string, priority domain.TicketPriority) error
	GetByPriority(ctx context.Context, orgID string, priority domain.TicketPriority) (*sla.Rule, error)
	ListByOrganization(ctx context.Context, orgID string) ([]sla.Rule, error)
}

type slaRuleRepository struct {
	pool *pgxpool.Pool
}

// NewSlaRuleRepository instantiates repository.
func NewSlaRuleRepository(pool *pgxpool.Pool) SlaRuleRepository {
	return &slaRuleRepository{pool: pool}
}

func (r *slaRuleRepository) Upsert(ctx context.Context, rule *sla.Rule) error {
	const query = `
        INSERT INTO sla_rules (organization_id, priority, max_response_minutes)
        VALUES ($1,$2,$3)
        ON CONFLICT (organization_id, priority)
        DO UPDATE SET max_response_minutes=EXCLUDED.max_response_minutes, updated_at=NOW()
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		rule.OrganizationID,
		rule.Priority,
		rule.MaxResponseMinutes,
	).Scan(&rule.CreatedAt, &rule.UpdatedAt)
}

func (r *slaRuleRepository) Delete(ctx context.Context, orgID string, priority domain.TicketPriority) error {
	cmd, err := r.pool.Exec(ctx,
		`DELETE FROM sla_rules WHERE organization_id=$1 AND priority=$2`, orgID, priority)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *slaRuleRepository) GetByPriority(ctx context.Context, orgID string, priority domain.TicketPriority) (*sla.Rule, error) {
	var rule sla.Rule
	err := r.pool.QueryRow(ctx,
		`SELECT organization_id, priority, max_response_minutes, created_at, updated_at
         FROM sla_rules WHERE organization_id=$1 AND priority=$2`, orgID, priority).Scan(
		&rule.OrganizationID,
		&rule.Priority,
		&rule.MaxResponseMinutes,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *slaRuleRepository) ListByOrganization(ctx context.Context, orgID string) ([]sla.Rule, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT organization_id, priority, max_response_minutes, created_at, updated_at
         FROM sla_rules WHERE organization_id=$1 ORDER BY priority`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []sla.Rule
	for rows.Next() {
		var rule sla.Rule
		if err := rows.Scan(
			&rule.OrganizationID,
			&rule.Priority,
			&rule.MaxResponseMinutes,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}

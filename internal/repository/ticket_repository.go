package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/triagehq/triage-service/internal/domain"
)

// TicketFilter captures inbox search parameters. OrganizationID is
// mandatory; every query is tenant-scoped.
type TicketFilter struct {
	OrganizationID string
	CustomerID     *string
	AssigneeID     *string
	Unassigned     bool
	Statuses       []domain.TicketStatus
	Priorities     []domain.TicketPriority
	SearchTerm     *string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	Limit          int
	Offset         int
}

// StatusCounts maps ticket status to a count for dashboard rollups.
type StatusCounts map[domain.TicketStatus]int

// PriorityCounts maps ticket priority to a count.
type PriorityCounts map[domain.TicketPriority]int

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, orgID, id string) (*domain.Ticket, error)
	GetByExternalKey(ctx context.Context, orgID, key string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// ListOpenUnresponded returns OPEN/IN_PROGRESS tickets that have not
	// received a first response, for SLA evaluation.
	ListOpenUnresponded(ctx context.Context, orgID string) ([]domain.Ticket, error)
	// SetFirstResponse stamps first_response_at set-once via an atomic
	// partial update; a ticket already stamped keeps its original value.
	SetFirstResponse(ctx context.Context, orgID, id string, at time.Time) error
	CountByStatus(ctx context.Context, orgID string) (StatusCounts, error)
	CountByPriority(ctx context.Context, orgID string) (PriorityCounts, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, organization_id, external_key, customer_id, assignee_agent_id,
               subject, body, status, priority, first_response_at,
               sentiment, sentiment_score, category, language, summary, analyzed_at,
               created_at, updated_at, closed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (organization_id, external_key, customer_id, assignee_agent_id, subject, body, status, priority)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.OrganizationID,
		ticket.ExternalKey,
		ticket.CustomerID,
		ticket.AssigneeAgentID,
		ticket.Subject,
		ticket.Body,
		ticket.Status,
		ticket.Priority,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

// Update persists workflow fields only. Analysis columns are written by
// the enrichment commit and first_response_at by SetFirstResponse, so a
// racing enrichment cannot be clobbered by a stale read here.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET assignee_agent_id=$1, subject=$2, status=$3, priority=$4,
            closed_at=$5, updated_at=NOW()
        WHERE id=$6 AND organization_id=$7`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.AssigneeAgentID,
		ticket.Subject,
		ticket.Status,
		ticket.Priority,
		ticket.ClosedAt,
		ticket.ID,
		ticket.OrganizationID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, orgID, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 AND organization_id=$2`
	return r.fetchSingle(ctx, query, id, orgID)
}

func (r *ticketRepository) GetByExternalKey(ctx context.Context, orgID, key string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE external_key=$1 AND organization_id=$2`
	return r.fetchSingle(ctx, query, key, orgID)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, args...), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`

	args := []any{filter.OrganizationID}
	clauses := []string{"organization_id=$1"}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_agent_id=$%d", len(args)))
	} else if filter.Unassigned {
		clauses = append(clauses, "assignee_agent_id IS NULL")
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(subject) LIKE %s OR LOWER(body) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListOpenUnresponded(ctx context.Context, orgID string) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
              WHERE organization_id=$1 AND status IN ('OPEN','IN_PROGRESS') AND first_response_at IS NULL
              ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) SetFirstResponse(ctx context.Context, orgID, id string, at time.Time) error {
	const query = `
        UPDATE tickets SET first_response_at = COALESCE(first_response_at, $1), updated_at = NOW()
        WHERE id=$2 AND organization_id=$3`
	cmd, err := r.pool.Exec(ctx, query, at, id, orgID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) CountByStatus(ctx context.Context, orgID string) (StatusCounts, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM tickets WHERE organization_id=$1 GROUP BY status`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := StatusCounts{}
	for rows.Next() {
		var status domain.TicketStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *ticketRepository) CountByPriority(ctx context.Context, orgID string) (PriorityCounts, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT priority, COUNT(*) FROM tickets WHERE organization_id=$1 GROUP BY priority`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := PriorityCounts{}
	for rows.Next() {
		var priority domain.TicketPriority
		var count int
		if err := rows.Scan(&priority, &count); err != nil {
			return nil, err
		}
		counts[priority] = count
	}
	return counts, rows.Err()
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	var (
		sentiment      *string
		sentimentScore *float64
		category       *string
		language       *string
		summary        *string
		analyzedAt     *time.Time
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.OrganizationID,
		&ticket.ExternalKey,
		&ticket.CustomerID,
		&ticket.AssigneeAgentID,
		&ticket.Subject,
		&ticket.Body,
		&ticket.Status,
		&ticket.Priority,
		&ticket.FirstResponseAt,
		&sentiment,
		&sentimentScore,
		&category,
		&language,
		&summary,
		&analyzedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ClosedAt,
	); err != nil {
		return err
	}
	if analyzedAt != nil {
		analysis := domain.TicketAnalysis{AnalyzedAt: *analyzedAt}
		if sentiment != nil {
			analysis.Sentiment = domain.Sentiment(*sentiment)
		}
		if sentimentScore != nil {
			analysis.SentimentScore = *sentimentScore
		}
		if category != nil {
			analysis.Category = *category
		}
		if language != nil {
			analysis.Language = *language
		}
		if summary != nil {
			analysis.Summary = *summary
		}
		analysis.Priority = ticket.Priority
		ticket.Analysis = &analysis
	}
	return nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

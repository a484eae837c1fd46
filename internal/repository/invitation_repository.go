package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/triagehq/triage-service/internal/domain"
)

// InvitationRepository encapsulates agent invitation persistence.
type InvitationRepository interface {
	Create(ctx context.Context, invitation *domain.Invitation) error
	GetByToken(ctx context.Context, token string) (*domain.Invitation, error)
	MarkAccepted(ctx context.Context, id string) error
	ListPending(ctx context.Context, orgID string) ([]domain.Invitation, error)
}

type invitationRepository struct {
	pool *pgxpool.Pool
}

// NewInvitationRepository instantiates repository.
func NewInvitationRepository(pool *pgxpool.Pool) InvitationRepository {
	return &invitationRepository{pool: pool}
}

const invitationColumns = `id, organization_id, email, role, token, expires_at, accepted_at, created_at`

func (r *invitationRepository) Create(ctx context.Context, invitation *domain.Invitation) error {
	const query = `
        INSERT INTO invitations (organization_id, email, role, token, expires_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		invitation.OrganizationID,
		invitation.Email,
		invitation.Role,
		invitation.Token,
		invitation.ExpiresAt,
	).Scan(&invitation.ID, &invitation.CreatedAt)
}

func (r *invitationRepository) GetByToken(ctx context.Context, token string) (*domain.Invitation, error) {
	var inv domain.Invitation
	err := r.pool.QueryRow(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE token=$1`, token).Scan(
		&inv.ID,
		&inv.OrganizationID,
		&inv.Email,
		&inv.Role,
		&inv.Token,
		&inv.ExpiresAt,
		&inv.AcceptedAt,
		&inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// MarkAccepted flips accepted_at once; a second accept finds no row.
func (r *invitationRepository) MarkAccepted(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE invitations SET accepted_at=NOW() WHERE id=$1 AND accepted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *invitationRepository) ListPending(ctx context.Context, orgID string) ([]domain.Invitation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+invitationColumns+` FROM invitations
         WHERE organization_id=$1 AND accepted_at IS NULL AND expires_at > NOW()
         ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Invitation
	for rows.Next() {
		var inv domain.Invitation
		if err := rows.Scan(
			&inv.ID,
			&inv.OrganizationID,
			&inv.Email,
			&inv.Role,
			&inv.Token,
			&inv.ExpiresAt,
			&inv.AcceptedAt,
			&inv.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, inv)
	}
	return result, rows.Err()
}

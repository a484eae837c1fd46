package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/triagehq/triage-service/internal/auth"
	"github.com/triagehq/triage-service/internal/config"
	"github.com/triagehq/triage-service/internal/domain"
	"github.com/triagehq/triage-service/internal/events"
	"github.com/triagehq/triage-service/internal/repository"
	apperrors "github.com/triagehq/triage-service/pkg/util/errorutil"
)

// InvitationService manages bringing new agents into an organization.
// Only admins may invite; an invitation is consumed at most once and
// expires after the configured TTL.
type InvitationService struct {
	invitations repository.InvitationRepository
	agents      repository.AgentRepository
	dispatcher  events.Dispatcher
	cfg         config.AuthConfig
	logger      *zap.Logger
	clock       func() time.Time
}

// NewInvitationService wires the invitation flows.
func NewInvitationService(
	invitations repository.InvitationRepository,
	agents repository.AgentRepository,
	dispatcher events.Dispatcher,
	cfg config.AuthConfig,
	logger *zap.Logger,
) *InvitationService {
	return &InvitationService{
		invitations: invitations,
		agents:      agents,
		dispatcher:  dispatcher,
		cfg:         cfg,
		logger:      logger,
		clock:       time.Now,
	}
}

// Invite creates a pending invitation for a new agent.
func (s *InvitationService) Invite(ctx context.Context, admin *domain.Agent, email string, role domain.AgentRole) (*domain.Invitation, error) {
	if admin == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	if admin.Role != domain.AgentRoleAdmin {
		return nil, apperrors.NewForbidden("only admins may invite agents")
	}
	email = normalizeEmail(email)
	if email == "" {
		return nil, apperrors.NewValidationError("email is required", nil)
	}
	if role != domain.AgentRoleAdmin && role != domain.AgentRoleAgent {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}
	if existing, err := s.agents.GetByEmail(ctx, email); err == nil && existing.OrganizationID == admin.OrganizationID {
		return nil, apperrors.NewConflict("agent already exists", nil)
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	token, err := newInviteToken()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	invitation := &domain.Invitation{
		OrganizationID: admin.OrganizationID,
		Email:          email,
		Role:           role,
		Token:          token,
		ExpiresAt:      s.clock().Add(time.Duration(s.cfg.InvitationTTLHours) * time.Hour),
	}
	if err := s.invitations.Create(ctx, invitation); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("agent invited",
		zap.String("organization_id", admin.OrganizationID),
		zap.String("email", email),
		zap.String("role", string(role)),
	)
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:           events.EventAgentInvited,
		OrganizationID: admin.OrganizationID,
		Actor:          agentActor(admin.ID),
		Payload:        events.AgentInvitedPayload{Email: email, Role: role},
	})
	return invitation, nil
}

// AcceptInput carries the fields needed to redeem an invitation.
type AcceptInput struct {
	Token    string
	Name     string
	Password string
}

// Accept redeems an invitation and creates the agent account.
func (s *InvitationService) Accept(ctx context.Context, input AcceptInput) (*domain.Agent, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewValidationError("password must be at least 8 characters", nil)
	}

	invitation, err := s.invitations.GetByToken(ctx, strings.TrimSpace(input.Token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("invitation", nil)
		}
		return nil, apperrors.MapError(err)
	}
	if invitation.AcceptedAt != nil {
		return nil, apperrors.NewConflict("invitation already accepted", nil)
	}
	if invitation.Expired(s.clock()) {
		return nil, apperrors.NewConflict("invitation expired", nil)
	}

	hash, err := auth.HashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	agent := &domain.Agent{
		OrganizationID: invitation.OrganizationID,
		Name:           name,
		Email:          invitation.Email,
		PasswordHash:   hash,
		Role:           invitation.Role,
		Active:         true,
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.invitations.MarkAccepted(ctx, invitation.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewConflict("invitation already accepted", nil)
		}
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("invitation accepted",
		zap.String("organization_id", agent.OrganizationID),
		zap.String("agent_id", agent.ID),
	)
	return agent, nil
}

// ListPending returns the organization's outstanding invitations.
func (s *InvitationService) ListPending(ctx context.Context, admin *domain.Agent) ([]domain.Invitation, error) {
	if admin == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	if admin.Role != domain.AgentRoleAdmin {
		return nil, apperrors.NewForbidden("only admins may list invitations")
	}
	invitations, err := s.invitations.ListPending(ctx, admin.OrganizationID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return invitations, nil
}

// DeactivateAgent disables an agent's account. Admins cannot deactivate
// themselves; that would risk locking the organization out.
func (s *InvitationService) DeactivateAgent(ctx context.Context, admin *domain.Agent, agentID string) error {
	if admin == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	if admin.Role != domain.AgentRoleAdmin {
		return apperrors.NewForbidden("only admins may deactivate agents")
	}
	if admin.ID == agentID {
		return apperrors.NewValidationError("cannot deactivate yourself", nil)
	}
	if err := s.agents.SetActive(ctx, admin.OrganizationID, agentID, false); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("agent", map[string]any{"agent_id": agentID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// ListAgents returns the organization roster.
func (s *InvitationService) ListAgents(ctx context.Context, agent *domain.Agent) ([]domain.Agent, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	roster, err := s.agents.ListByOrganization(ctx, agent.OrganizationID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return roster, nil
}

func newInviteToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/triagehq/triage-service/internal/auth"
	"github.com/triagehq/triage-service/internal/config"
	"github.com/triagehq/triage-service/internal/domain"
	"github.com/triagehq/triage-service/internal/repository"
	apperrors "github.com/triagehq/triage-service/pkg/util/errorutil"
)

// AuthService handles login and registration for both sides of the desk.
// Agents authenticate by email alone; customers authenticate by email
// within their organization, since the same address may exist under
// several tenants.
type AuthService struct {
	agents    repository.AgentRepository
	customers repository.CustomerRepository
	orgs      repository.OrganizationRepository
	tokens    *auth.TokenManager
	cfg       config.AuthConfig
	logger    *zap.Logger
}

// LoginResult bundles a signed token with its expiry.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
}

// NewAuthService wires the authentication flows.
func NewAuthService(
	agents repository.AgentRepository,
	customers repository.CustomerRepository,
	orgs repository.OrganizationRepository,
	tokens *auth.TokenManager,
	cfg config.AuthConfig,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		agents:    agents,
		customers: customers,
		orgs:      orgs,
		tokens:    tokens,
		cfg:       cfg,
		logger:    logger,
	}
}

// LoginAgent authenticates an agent by email and password. Inactive
// agents are rejected with the same error as a bad password.
func (s *AuthService) LoginAgent(ctx context.Context, email, password string) (*LoginResult, *domain.Agent, error) {
	email = normalizeEmail(email)
	agent, err := s.agents.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, nil, apperrors.MapError(err)
	}
	if !agent.Active || auth.ComparePassword(agent.PasswordHash, password) != nil {
		return nil, nil, apperrors.NewUnauthorized("invalid credentials")
	}

	role := agent.Role
	token, expiresAt, err := s.tokens.GenerateToken(agent.ID, domain.SubjectTypeAgent, agent.OrganizationID, &role)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("agent login", zap.String("agent_id", agent.ID), zap.String("organization_id", agent.OrganizationID))
	return &LoginResult{Token: token, ExpiresAt: expiresAt}, agent, nil
}

// RegisterCustomerInput carries portal signup fields. The organization is
// identified by its public slug.
type RegisterCustomerInput struct {
	OrganizationSlug string
	Name             string
	Email            string
	Password         string
}

// RegisterCustomer creates a portal account under the named organization.
func (s *AuthService) RegisterCustomer(ctx context.Context, input RegisterCustomerInput) (*domain.Customer, error) {
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	if email == "" {
		return nil, apperrors.NewValidationError("email is required", nil)
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewValidationError("password must be at least 8 characters", nil)
	}

	org, err := s.orgs.GetBySlug(ctx, strings.TrimSpace(input.OrganizationSlug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("organization", map[string]any{"slug": input.OrganizationSlug})
		}
		return nil, apperrors.MapError(err)
	}
	if _, err := s.customers.GetByEmail(ctx, org.ID, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	customer := &domain.Customer{
		OrganizationID: org.ID,
		Name:           name,
		Email:          email,
		PasswordHash:   hash,
		Active:         true,
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("customer registered", zap.String("customer_id", customer.ID), zap.String("organization_id", org.ID))
	return customer, nil
}

// LoginCustomer authenticates a portal customer within one organization.
func (s *AuthService) LoginCustomer(ctx context.Context, orgSlug, email, password string) (*LoginResult, *domain.Customer, error) {
	org, err := s.orgs.GetBySlug(ctx, strings.TrimSpace(orgSlug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, nil, apperrors.MapError(err)
	}
	customer, err := s.customers.GetByEmail(ctx, org.ID, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, nil, apperrors.MapError(err)
	}
	if !customer.Active || auth.ComparePassword(customer.PasswordHash, password) != nil {
		return nil, nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.tokens.GenerateToken(customer.ID, domain.SubjectTypeCustomer, customer.OrganizationID, nil)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt}, customer, nil
}

// ChangeAgentPassword verifies the current password before updating.
func (s *AuthService) ChangeAgentPassword(ctx context.Context, agent *domain.Agent, current, next string) error {
	if agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	if auth.ComparePassword(agent.PasswordHash, current) != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	if len(next) < 8 {
		return apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	hash, err := auth.HashPassword(next, s.cfg.BcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.agents.UpdatePassword(ctx, agent.ID, hash); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// ChangeCustomerPassword verifies the current password before updating.
func (s *AuthService) ChangeCustomerPassword(ctx context.Context, customer *domain.Customer, current, next string) error {
	if customer == nil {
		return apperrors.NewUnauthorized("customer required")
	}
	if auth.ComparePassword(customer.PasswordHash, current) != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	if len(next) < 8 {
		return apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	hash, err := auth.HashPassword(next, s.cfg.BcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.customers.UpdatePassword(ctx, customer.ID, hash); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

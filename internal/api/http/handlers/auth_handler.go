package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/triagehq/triage-service/internal/api/dto"
	"github.com/triagehq/triage-service/internal/auth"
	"github.com/triagehq/triage-service/internal/service"
	apperrors "github.com/triagehq/triage-service/pkg/util/errorutil"
)

// AuthHandler covers login and registration for agents and customers.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// AgentLogin POST /auth/agents/login.
func (h *AuthHandler) AgentLogin(c *fiber.Ctx) error {
	var req dto.AgentLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, agent, err := h.service.LoginAgent(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"token":      result.Token,
			"expires_at": result.ExpiresAt,
			"agent":      dto.AgentFromDomain(agent),
		},
	})
}

// CustomerRegister POST /auth/customers/register.
func (h *AuthHandler) CustomerRegister(c *fiber.Ctx) error {
	var req dto.CustomerRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	customer, err := h.service.RegisterCustomer(c.UserContext(), service.RegisterCustomerInput{
		OrganizationSlug: req.OrganizationSlug,
		Name:             req.Name,
		Email:            req.Email,
		Password:         req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.CustomerFromDomain(customer)})
}

// CustomerLogin POST /auth/customers/login.
func (h *AuthHandler) CustomerLogin(c *fiber.Ctx) error {
	var req dto.CustomerLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, customer, err := h.service.LoginCustomer(c.UserContext(), req.OrganizationSlug, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"token":      result.Token,
			"expires_at": result.ExpiresAt,
			"customer":   dto.CustomerFromDomain(customer),
		},
	})
}

// ChangePassword POST /auth/password/change for either principal type.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	var err error
	switch {
	case principal.Agent != nil:
		err = h.service.ChangeAgentPassword(c.UserContext(), principal.Agent, req.CurrentPassword, req.NewPassword)
	case principal.Customer != nil:
		err = h.service.ChangeCustomerPassword(c.UserContext(), principal.Customer, req.CurrentPassword, req.NewPassword)
	default:
		err = apperrors.NewUnauthorized("authentication required")
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"updated": true}})
}

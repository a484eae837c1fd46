package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/triagehq/triage-service/internal/api/dto"
	"github.com/triagehq/triage-service/internal/auth"
	"github.com/triagehq/triage-service/internal/service"
	apperrors "github.com/triagehq/triage-service/pkg/util/errorutil"
)

// StaffHandler manages the agent roster and invitations.
type StaffHandler struct {
	service *service.InvitationService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(invitationService *service.InvitationService) *StaffHandler {
	return &StaffHandler{service: invitationService}
}

// Invite POST /staff/invitations.
func (h *StaffHandler) Invite(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.InviteAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	invitation, err := h.service.Invite(c.UserContext(), principal.Agent, req.Email, req.Role)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.InvitationFromDomain(invitation, true)})
}

// Accept POST /staff/invitations/accept. Unauthenticated; the invitation
// token is the credential.
func (h *StaffHandler) Accept(c *fiber.Ctx) error {
	var req dto.AcceptInvitationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	agent, err := h.service.Accept(c.UserContext(), service.AcceptInput{
		Token:    req.Token,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.AgentFromDomain(agent)})
}

// ListInvitations GET /staff/invitations.
func (h *StaffHandler) ListInvitations(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	invitations, err := h.service.ListPending(c.UserContext(), principal.Agent)
	if err != nil {
		return err
	}
	items := make([]dto.InvitationResponse, 0, len(invitations))
	for i := range invitations {
		items = append(items, dto.InvitationFromDomain(&invitations[i], false))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListAgents GET /staff/agents.
func (h *StaffHandler) ListAgents(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	agents, err := h.service.ListAgents(c.UserContext(), principal.Agent)
	if err != nil {
		return err
	}
	items := make([]dto.AgentResponse, 0, len(agents))
	for i := range agents {
		items = append(items, dto.AgentFromDomain(&agents[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// DeactivateAgent DELETE /staff/agents/:id.
func (h *StaffHandler) DeactivateAgent(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	if err := h.service.DeactivateAgent(c.UserContext(), principal.Agent, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deactivated": true}})
}

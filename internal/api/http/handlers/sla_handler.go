package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/triagehq/triage-service/internal/api/dto"
	"github.com/triagehq/triage-service/internal/auth"
	"github.com/triagehq/triage-service/internal/domain"
	"github.com/triagehq/triage-service/internal/service"
	apperrors "github.com/triagehq/triage-service/pkg/util/errorutil"
)

// SlaHandler manages SLA rule administration and the breach dashboard.
type SlaHandler struct {
	service *service.SlaService
}

// NewSlaHandler constructs handler.
func NewSlaHandler(slaService *service.SlaService) *SlaHandler {
	return &SlaHandler{service: slaService}
}

// UpsertRule PUT /sla/rules.
func (h *SlaHandler) UpsertRule(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.UpsertSlaRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	rule, err := h.service.UpsertRule(c.UserContext(), principal.Agent, req.Priority, req.MaxResponseMinutes)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": dto.SlaRuleFromDomain(rule)})
}

// DeleteRule DELETE /sla/rules/:priority.
func (h *SlaHandler) DeleteRule(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	priority := priorityParam(c)
	if err := h.service.DeleteRule(c.UserContext(), principal.Agent, priority); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}

// ListRules GET /sla/rules.
func (h *SlaHandler) ListRules(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	rules, err := h.service.ListRules(c.UserContext(), principal.Agent)
	if err != nil {
		return err
	}
	items := make([]dto.SlaRuleResponse, 0, len(rules))
	for i := range rules {
		items = append(items, dto.SlaRuleFromDomain(&rules[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func priorityParam(c *fiber.Ctx) domain.TicketPriority {
	return domain.TicketPriority(strings.ToUpper(c.Params("priority")))
}

// Dashboard GET /sla/dashboard lists open, unresponded tickets with their
// current SLA position.
func (h *SlaHandler) Dashboard(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	statuses, err := h.service.OpenTicketStatuses(c.UserContext(), principal.Agent.OrganizationID)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSlaStatusResponse, 0, len(statuses))
	for i := range statuses {
		items = append(items, dto.TicketSlaStatusResponse{
			Ticket: dto.TicketFromDomain(&statuses[i].Ticket),
			Status: dto.SlaStatusFromDomain(&statuses[i].Status),
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

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

// InboxTicketsHandler manages agent-facing ticket endpoints.
type InboxTicketsHandler struct {
	tickets    *service.TicketService
	slaService *service.SlaService
}

// NewInboxTicketsHandler constructs handler.
func NewInboxTicketsHandler(tickets *service.TicketService, slaService *service.SlaService) *InboxTicketsHandler {
	return &InboxTicketsHandler{tickets: tickets, slaService: slaService}
}

// ListTickets GET /inbox/tickets.
func (h *InboxTicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	limit, offset := parsePagination(c)
	filter := service.InboxFilter{
		SearchTerm: c.Query("q"),
		Unassigned: c.QueryBool("unassigned"),
		Limit:      limit,
		Offset:     offset,
	}
	for _, raw := range splitCSV(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(raw)))
	}
	for _, raw := range splitCSV(c.Query("priority")) {
		filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.ToUpper(raw)))
	}
	if assignee := c.Query("assignee_id"); assignee != "" {
		filter.AssigneeID = &assignee
	}

	tickets, err := h.tickets.ListInbox(c.UserContext(), principal.Agent, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.TicketFromDomain(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /inbox/tickets/:id.
func (h *InboxTicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	ticket, err := h.tickets.GetTicketForAgent(c.UserContext(), principal.Agent, c.Params("id"))
	if err != nil {
		return err
	}
	messages, err := h.tickets.ListMessages(c.UserContext(), ticket.OrganizationID, ticket.ID, true)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketDetailFromDomain(ticket, messages)})
}

// GetTicketSla GET /inbox/tickets/:id/sla.
func (h *InboxTicketsHandler) GetTicketSla(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	status, err := h.slaService.EvaluateTicket(c.UserContext(), principal.Agent, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SlaStatusFromDomain(status)})
}

// AddMessage POST /inbox/tickets/:id/messages.
func (h *InboxTicketsHandler) AddMessage(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	messageType := req.MessageType
	if messageType == "" {
		messageType = domain.MessageTypePublicReply
	}
	msg, err := h.tickets.AddAgentMessage(c.UserContext(), principal.Agent, c.Params("id"), service.AgentMessageInput{
		Body:        req.Body,
		MessageType: messageType,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.MessageFromDomain(msg)})
}

// UpdateStatus PATCH /inbox/tickets/:id/status.
func (h *InboxTicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.UpdateStatus(c.UserContext(), principal.Agent, c.Params("id"), req.Status, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket)})
}

// UpdatePriority PATCH /inbox/tickets/:id/priority.
func (h *InboxTicketsHandler) UpdatePriority(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.UpdatePriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.UpdatePriority(c.UserContext(), principal.Agent, c.Params("id"), req.Priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket)})
}

// Assign PATCH /inbox/tickets/:id/assignee.
func (h *InboxTicketsHandler) Assign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.tickets.Assign(c.UserContext(), principal.Agent, c.Params("id"), req.AssigneeAgentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket)})
}

// Stats GET /inbox/dashboard/stats.
func (h *InboxTicketsHandler) Stats(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	stats, err := h.tickets.Stats(c.UserContext(), principal.Agent)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.DashboardStatsResponse{
		ByStatus:   stats.ByStatus,
		ByPriority: stats.ByPriority,
	}})
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/triagehq/triage-service/internal/api/dto"
	"github.com/triagehq/triage-service/internal/auth"
	"github.com/triagehq/triage-service/internal/service"
	apperrors "github.com/triagehq/triage-service/pkg/util/errorutil"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PortalTicketsHandler manages customer-facing ticket endpoints.
type PortalTicketsHandler struct {
	service *service.TicketService
}

// NewPortalTicketsHandler constructs handler.
func NewPortalTicketsHandler(ticketService *service.TicketService) *PortalTicketsHandler {
	return &PortalTicketsHandler{service: ticketService}
}

// CreateTicket POST /portal/tickets.
func (h *PortalTicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Customer == nil {
		return apperrors.NewUnauthorized("customer required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), principal.Customer, service.CreateTicketInput{
		Subject:  req.Subject,
		Body:     req.Body,
		Priority: req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.TicketFromDomain(ticket)})
}

// ListTickets GET /portal/tickets.
func (h *PortalTicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Customer == nil {
		return apperrors.NewUnauthorized("customer required")
	}
	limit, offset := parsePagination(c)
	tickets, err := h.service.ListTicketsForCustomer(c.UserContext(), principal.Customer, limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.TicketFromDomain(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /portal/tickets/:id.
func (h *PortalTicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Customer == nil {
		return apperrors.NewUnauthorized("customer required")
	}
	ticket, err := h.service.GetTicketForCustomer(c.UserContext(), principal.Customer, c.Params("id"))
	if err != nil {
		return err
	}
	messages, err := h.service.ListMessages(c.UserContext(), ticket.OrganizationID, ticket.ID, false)
	if err != nil {
		return err
	}
	detail := dto.TicketDetailFromDomain(ticket, messages)
	// Customers never see the classification internals.
	detail.Analysis = nil
	return c.JSON(fiber.Map{"data": detail})
}

// AddReply POST /portal/tickets/:id/messages.
func (h *PortalTicketsHandler) AddReply(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Customer == nil {
		return apperrors.NewUnauthorized("customer required")
	}
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	msg, err := h.service.AddCustomerReply(c.UserContext(), principal.Customer, c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.MessageFromDomain(msg)})
}

// CloseTicket POST /portal/tickets/:id/close.
func (h *PortalTicketsHandler) CloseTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Customer == nil {
		return apperrors.NewUnauthorized("customer required")
	}
	ticket, err := h.service.CloseTicketForCustomer(c.UserContext(), principal.Customer, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketFromDomain(ticket)})
}

func parsePagination(c *fiber.Ctx) (limit, offset int) {
	limit = defaultPageSize
	if raw := c.Query("page_size"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	page := 1
	if raw := c.Query("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			page = v
		}
	}
	return limit, (page - 1) * limit
}

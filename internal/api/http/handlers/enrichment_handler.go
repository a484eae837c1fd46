package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/triagehq/triage-service/internal/api/dto"
	"github.com/triagehq/triage-service/internal/auth"
	"github.com/triagehq/triage-service/internal/service"
	apperrors "github.com/triagehq/triage-service/pkg/util/errorutil"
)

// EnrichmentHandler exposes the enrichment pipeline to agents.
type EnrichmentHandler struct {
	service *service.EnrichmentService
}

// NewEnrichmentHandler constructs handler.
func NewEnrichmentHandler(enrichmentService *service.EnrichmentService) *EnrichmentHandler {
	return &EnrichmentHandler{service: enrichmentService}
}

// Enrich POST /inbox/tickets/:id/enrich runs classification and reply
// suggestion for one ticket and returns the committed result.
func (h *EnrichmentHandler) Enrich(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	analysis, suggestion, err := h.service.EnrichTicket(c.UserContext(), principal.Agent, c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"data": dto.EnrichmentResponse{
		TicketID:   suggestion.TicketID,
		Analysis:   dto.AnalysisFromDomain(analysis),
		Suggestion: dto.SuggestionFromDomain(suggestion),
	}})
}

// ListSuggestions GET /inbox/tickets/:id/suggestions returns past reply
// drafts, newest first.
func (h *EnrichmentHandler) ListSuggestions(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	suggestions, err := h.service.ListSuggestions(c.UserContext(), principal.Agent, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.SuggestionResponse, 0, len(suggestions))
	for i := range suggestions {
		items = append(items, dto.SuggestionFromDomain(&suggestions[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

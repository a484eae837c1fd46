package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/triagehq/triage-service/internal/api/dto"
	"github.com/triagehq/triage-service/internal/auth"
	"github.com/triagehq/triage-service/internal/domain"
	"github.com/triagehq/triage-service/internal/service"
	apperrors "github.com/triagehq/triage-service/pkg/util/errorutil"
)

// ArticlesHandler manages the knowledge base. Agent routes cover the full
// lifecycle; portal routes only expose published entries.
type ArticlesHandler struct {
	service *service.ArticleService
}

// NewArticlesHandler constructs handler.
func NewArticlesHandler(articleService *service.ArticleService) *ArticlesHandler {
	return &ArticlesHandler{service: articleService}
}

// Create POST /inbox/articles.
func (h *ArticlesHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.ArticleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	article, err := h.service.Create(c.UserContext(), principal.Agent, service.ArticleInput{
		Title: req.Title,
		Body:  req.Body,
		Tags:  req.Tags,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.ArticleFromDomain(article)})
}

// Update PUT /inbox/articles/:id.
func (h *ArticlesHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.ArticleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	article, err := h.service.Update(c.UserContext(), principal.Agent, c.Params("id"), service.ArticleInput{
		Title: req.Title,
		Body:  req.Body,
		Tags:  req.Tags,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ArticleFromDomain(article)})
}

// SetPublished PATCH /inbox/articles/:id/publish.
func (h *ArticlesHandler) SetPublished(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	var req dto.PublishArticleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	article, err := h.service.SetPublished(c.UserContext(), principal.Agent, c.Params("id"), req.Published)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ArticleFromDomain(article)})
}

// Delete DELETE /inbox/articles/:id.
func (h *ArticlesHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	if err := h.service.Delete(c.UserContext(), principal.Agent, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}

// ListForAgents GET /inbox/articles.
func (h *ArticlesHandler) ListForAgents(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	articles, err := h.service.ListForAgents(c.UserContext(), principal.Agent)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": articleList(articles)})
}

// ListPublished GET /portal/articles.
func (h *ArticlesHandler) ListPublished(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Customer == nil {
		return apperrors.NewUnauthorized("customer required")
	}
	articles, err := h.service.ListPublished(c.UserContext(), principal.OrganizationID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": articleList(articles)})
}

// GetPublished GET /portal/articles/:slug.
func (h *ArticlesHandler) GetPublished(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Customer == nil {
		return apperrors.NewUnauthorized("customer required")
	}
	article, err := h.service.GetPublishedBySlug(c.UserContext(), principal.OrganizationID, c.Params("slug"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ArticleFromDomain(article)})
}

func articleList(articles []domain.Article) []dto.ArticleResponse {
	items := make([]dto.ArticleResponse, 0, len(articles))
	for i := range articles {
		items = append(items, dto.ArticleFromDomain(&articles[i]))
	}
	return items
}

package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/triagehq/triage-service/internal/domain"
	"github.com/triagehq/triage-service/internal/events"
	"github.com/triagehq/triage-service/internal/repository"
	apperrors "github.com/triagehq/triage-service/pkg/util/errorutil"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// ArticleService manages the knowledge base. Agents author and manage
// articles; customers only ever see published ones.
type ArticleService struct {
	articles   repository.ArticleRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	clock      func() time.Time
}

// NewArticleService wires the knowledge-base flows.
func NewArticleService(articles repository.ArticleRepository, dispatcher events.Dispatcher, logger *zap.Logger) *ArticleService {
	return &ArticleService{articles: articles, dispatcher: dispatcher, logger: logger, clock: time.Now}
}

// ArticleInput carries authoring fields.
type ArticleInput struct {
	Title string
	Body  string
	Tags  []string
}

// Create adds a draft article. The slug is derived from the title.
func (s *ArticleService) Create(ctx context.Context, agent *domain.Agent, input ArticleInput) (*domain.Article, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	title := strings.TrimSpace(input.Title)
	body := strings.TrimSpace(input.Body)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	if body == "" {
		return nil, apperrors.NewValidationError("body is required", nil)
	}

	article := &domain.Article{
		OrganizationID: agent.OrganizationID,
		AuthorAgentID:  &agent.ID,
		Title:          title,
		Slug:           slugify(title),
		Body:           body,
		Tags:           normalizeTags(input.Tags),
	}
	if err := s.articles.Create(ctx, article); err != nil {
		return nil, apperrors.MapError(err)
	}
	return article, nil
}

// Update edits an existing article. The slug follows the title.
func (s *ArticleService) Update(ctx context.Context, agent *domain.Agent, articleID string, input ArticleInput) (*domain.Article, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	article, err := s.getArticle(ctx, agent.OrganizationID, articleID)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	body := strings.TrimSpace(input.Body)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	if body == "" {
		return nil, apperrors.NewValidationError("body is required", nil)
	}

	article.Title = title
	article.Slug = slugify(title)
	article.Body = body
	article.Tags = normalizeTags(input.Tags)
	article.UpdatedAt = s.clock()
	if err := s.articles.Update(ctx, article); err != nil {
		return nil, apperrors.MapError(err)
	}
	return article, nil
}

// SetPublished toggles article visibility. Publishing emits an event so
// the realtime feed picks it up.
func (s *ArticleService) SetPublished(ctx context.Context, agent *domain.Agent, articleID string, published bool) (*domain.Article, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	article, err := s.getArticle(ctx, agent.OrganizationID, articleID)
	if err != nil {
		return nil, err
	}
	if article.Published == published {
		return article, nil
	}

	article.Published = published
	article.UpdatedAt = s.clock()
	if err := s.articles.Update(ctx, article); err != nil {
		return nil, apperrors.MapError(err)
	}
	if published {
		publishEvent(ctx, s.dispatcher, events.Event{
			Type:           events.EventArticlePublished,
			OrganizationID: article.OrganizationID,
			Actor:          agentActor(agent.ID),
			Payload: events.ArticlePublishedPayload{
				ArticleID: article.ID,
				Title:     article.Title,
				Slug:      article.Slug,
			},
		})
	}
	return article, nil
}

// Delete removes an article.
func (s *ArticleService) Delete(ctx context.Context, agent *domain.Agent, articleID string) error {
	if agent == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	if err := s.articles.Delete(ctx, agent.OrganizationID, articleID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("article", map[string]any{"article_id": articleID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// ListForAgents returns every article, drafts included.
func (s *ArticleService) ListForAgents(ctx context.Context, agent *domain.Agent) ([]domain.Article, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	articles, err := s.articles.List(ctx, agent.OrganizationID, false)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return articles, nil
}

// ListPublished returns the customer-visible catalog.
func (s *ArticleService) ListPublished(ctx context.Context, orgID string) ([]domain.Article, error) {
	articles, err := s.articles.List(ctx, orgID, true)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return articles, nil
}

// GetPublishedBySlug looks up one published article for the portal.
func (s *ArticleService) GetPublishedBySlug(ctx context.Context, orgID, slug string) (*domain.Article, error) {
	article, err := s.articles.GetBySlug(ctx, orgID, slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("article", map[string]any{"slug": slug})
		}
		return nil, apperrors.MapError(err)
	}
	if !article.Published {
		return nil, apperrors.NewNotFound("article", map[string]any{"slug": slug})
	}
	return article, nil
}

func (s *ArticleService) getArticle(ctx context.Context, orgID, articleID string) (*domain.Article, error) {
	article, err := s.articles.GetByID(ctx, orgID, articleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("article", map[string]any{"article_id": articleID})
		}
		return nil, apperrors.MapError(err)
	}
	return article, nil
}

func slugify(title string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 80 {
		slug = strings.Trim(slug[:80], "-")
	}
	if slug == "" {
		slug = uuid.NewString()[:8]
	}
	return slug
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

package dto

import (
	"time"

	"github.com/triagehq/triage-service/internal/domain"
)

// ArticleRequest payload for create and update.
type ArticleRequest struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

// PublishArticleRequest payload.
type PublishArticleRequest struct {
	Published bool `json:"published"`
}

// ArticleResponse one knowledge-base entry.
type ArticleResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ArticleFromDomain maps one article.
func ArticleFromDomain(a *domain.Article) ArticleResponse {
	return ArticleResponse{
		ID:        a.ID,
		Title:     a.Title,
		Slug:      a.Slug,
		Body:      a.Body,
		Tags:      a.Tags,
		Published: a.Published,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

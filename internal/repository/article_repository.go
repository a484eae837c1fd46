package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/triagehq/triage-service/internal/domain"
)

// ArticleRepository encapsulates knowledge-base persistence.
type ArticleRepository interface {
	Create(ctx context.Context, article *domain.Article) error
	Update(ctx context.Context, article *domain.Article) error
	Delete(ctx context.Context, orgID, id string) error
	GetByID(ctx context.Context, orgID, id string) (*domain.Article, error)
	GetBySlug(ctx context.Context, orgID, slug string) (*domain.Article, error)
	List(ctx context.Context, orgID string, publishedOnly bool) ([]domain.Article, error)
}

type articleRepository struct {
	pool *pgxpool.Pool
}

// NewArticleRepository instantiates repository.
func NewArticleRepository(pool *pgxpool.Pool) ArticleRepository {
	return &articleRepository{pool: pool}
}

const articleColumns = `id, organization_id, author_agent_id, title, slug, body, tags, published, created_at, updated_at`

func (r *articleRepository) Create(ctx context.Context, article *domain.Article) error {
	const query = `
        INSERT INTO articles (organization_id, author_agent_id, title, slug, body, tags, published)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		article.OrganizationID,
		article.AuthorAgentID,
		article.Title,
		article.Slug,
		article.Body,
		article.Tags,
		article.Published,
	).Scan(&article.ID, &article.CreatedAt, &article.UpdatedAt)
}

func (r *articleRepository) Update(ctx context.Context, article *domain.Article) error {
	const query = `
        UPDATE articles SET title=$1, slug=$2, body=$3, tags=$4, published=$5, updated_at=NOW()
        WHERE id=$6 AND organization_id=$7`
	cmd, err := r.pool.Exec(ctx, query,
		article.Title,
		article.Slug,
		article.Body,
		article.Tags,
		article.Published,
		article.ID,
		article.OrganizationID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *articleRepository) Delete(ctx context.Context, orgID, id string) error {
	cmd, err := r.pool.Exec(ctx,
		`DELETE FROM articles WHERE id=$1 AND organization_id=$2`, id, orgID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *articleRepository) GetByID(ctx context.Context, orgID, id string) (*domain.Article, error) {
	return r.fetchSingle(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE id=$1 AND organization_id=$2`, id, orgID)
}

func (r *articleRepository) GetBySlug(ctx context.Context, orgID, slug string) (*domain.Article, error) {
	return r.fetchSingle(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE slug=$1 AND organization_id=$2`, slug, orgID)
}

func (r *articleRepository) List(ctx context.Context, orgID string, publishedOnly bool) ([]domain.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE organization_id=$1`
	if publishedOnly {
		query += ` AND published`
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Article
	for rows.Next() {
		var article domain.Article
		if err := scanArticle(rows, &article); err != nil {
			return nil, err
		}
		result = append(result, article)
	}
	return result, rows.Err()
}

func (r *articleRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Article, error) {
	var article domain.Article
	if err := scanArticle(r.pool.QueryRow(ctx, query, args...), &article); err != nil {
		return nil, err
	}
	return &article, nil
}

func scanArticle(row pgx.Row, article *domain.Article) error {
	return row.Scan(
		&article.ID,
		&article.OrganizationID,
		&article.AuthorAgentID,
		&article.Title,
		&article.Slug,
		&article.Body,
		&article.Tags,
		&article.Published,
		&article.CreatedAt,
		&article.UpdatedAt,
	)
}

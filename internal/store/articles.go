package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/andreynetrebin/knowledge-base/internal/model"
)

const articleColumns = `id, title, slug, author_id, category_id, status, view_count,
	is_pinned, current_version_id, created_at, updated_at, published_at`

func scanArticle(row interface{ Scan(...any) error }) (model.Article, error) {
	var a model.Article
	err := row.Scan(&a.ID, &a.Title, &a.Slug, &a.AuthorID, &a.CategoryID, &a.Status,
		&a.ViewCount, &a.IsPinned, &a.CurrentVersionID, &a.CreatedAt, &a.UpdatedAt, &a.PublishedAt)
	return a, err
}

// CreateArticleParams holds parameters for CreateArticle.
type CreateArticleParams struct {
	Title       string
	Slug        string
	AuthorID    int64
	CategoryID  int64
	Status      string
	IsPinned    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	PublishedAt sql.NullTime
}

const createArticle = `
INSERT INTO articles (title, slug, author_id, category_id, status, is_pinned, created_at, updated_at, published_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + articleColumns

// CreateArticle inserts a new article row without content; the caller is
// expected to create its first version in the same transaction.
func (q *Queries) CreateArticle(ctx context.Context, arg CreateArticleParams) (model.Article, error) {
	row := q.db.QueryRowContext(ctx, createArticle,
		arg.Title, arg.Slug, arg.AuthorID, arg.CategoryID, arg.Status, arg.IsPinned,
		arg.CreatedAt, arg.UpdatedAt, arg.PublishedAt)
	a, err := scanArticle(row)
	if isUniqueViolation(err) {
		return model.Article{}, ErrConflict
	}
	return a, err
}

const getArticleByID = `SELECT ` + articleColumns + ` FROM articles WHERE id = ?`

// GetArticleByID fetches an article by primary key.
func (q *Queries) GetArticleByID(ctx context.Context, id int64) (model.Article, error) {
	a, err := scanArticle(q.db.QueryRowContext(ctx, getArticleByID, id))
	return a, mapRowErr(err)
}

const getArticleBySlug = `SELECT ` + articleColumns + ` FROM articles WHERE slug = ?`

// GetArticleBySlug fetches an article by its URL slug.
func (q *Queries) GetArticleBySlug(ctx context.Context, slug string) (model.Article, error) {
	a, err := scanArticle(q.db.QueryRowContext(ctx, getArticleBySlug, slug))
	return a, mapRowErr(err)
}

const articleSlugExists = `SELECT COUNT(*) FROM articles WHERE slug = ?`

// ArticleSlugExists reports whether any article already uses the slug.
func (q *Queries) ArticleSlugExists(ctx context.Context, slug string) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, articleSlugExists, slug).Scan(&n)
	return n > 0, err
}

// UpdateArticleParams holds parameters for UpdateArticle.
type UpdateArticleParams struct {
	ID          int64
	Title       string
	Slug        string
	CategoryID  int64
	Status      string
	IsPinned    bool
	UpdatedAt   time.Time
	PublishedAt sql.NullTime
}

const updateArticle = `
UPDATE articles
SET title = ?, slug = ?, category_id = ?, status = ?, is_pinned = ?, updated_at = ?, published_at = ?
WHERE id = ?
RETURNING ` + articleColumns

// UpdateArticle saves article metadata. Content changes go through the
// version manager, never through this statement.
func (q *Queries) UpdateArticle(ctx context.Context, arg UpdateArticleParams) (model.Article, error) {
	row := q.db.QueryRowContext(ctx, updateArticle,
		arg.Title, arg.Slug, arg.CategoryID, arg.Status, arg.IsPinned, arg.UpdatedAt, arg.PublishedAt, arg.ID)
	a, err := scanArticle(row)
	if isUniqueViolation(err) {
		return model.Article{}, ErrConflict
	}
	return a, mapRowErr(err)
}

const setCurrentVersion = `UPDATE articles SET current_version_id = ?, updated_at = ? WHERE id = ?`

// SetCurrentVersion atomically points the article at the given version.
func (q *Queries) SetCurrentVersion(ctx context.Context, articleID, versionID int64, now time.Time) error {
	_, err := q.db.ExecContext(ctx, setCurrentVersion, versionID, now, articleID)
	return err
}

const setCurrentVersionIfNull = `
UPDATE articles SET current_version_id = ?, updated_at = ?
WHERE id = ? AND current_version_id IS NULL
`

// SetCurrentVersionIfNull points the article at the version only when it has
// no current version yet. Returns true if the pointer was set.
func (q *Queries) SetCurrentVersionIfNull(ctx context.Context, articleID, versionID int64, now time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx, setCurrentVersionIfNull, versionID, now, articleID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

const incrementViewCount = `UPDATE articles SET view_count = view_count + 1 WHERE id = ?`

// IncrementViewCount bumps the view counter. Single atomic UPDATE; callers
// treat failures as non-fatal.
func (q *Queries) IncrementViewCount(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, incrementViewCount, id)
	return err
}

// ListArticlesParams holds filters for article listings. Zero values mean
// "no filter"; VisibleToUserID widens the published-only base query with the
// viewer's own drafts and private articles.
type ListArticlesParams struct {
	VisibleToUserID int64
	CategoryID      int64
	TagID           int64
	AuthorID        int64
	Status          string
	Search          string
	Limit           int64
	Offset          int64
}

const listArticlesBase = `
SELECT ` + articleColumns + ` FROM articles a
WHERE a.current_version_id IS NOT NULL
`

// articleFilters renders the shared WHERE clauses for ListArticles and
// CountArticles.
func articleFilters(arg ListArticlesParams) (string, []any) {
	var query string
	var args []any

	if arg.VisibleToUserID > 0 {
		query += ` AND (a.status = 'published' OR a.author_id = ?)`
		args = append(args, arg.VisibleToUserID)
	} else {
		query += ` AND a.status = 'published'`
	}
	if arg.CategoryID > 0 {
		query += ` AND a.category_id = ?`
		args = append(args, arg.CategoryID)
	}
	if arg.TagID > 0 {
		query += ` AND a.id IN (SELECT article_id FROM article_tags WHERE tag_id = ?)`
		args = append(args, arg.TagID)
	}
	if arg.AuthorID > 0 {
		query += ` AND a.author_id = ?`
		args = append(args, arg.AuthorID)
	}
	if arg.Status != "" {
		query += ` AND a.status = ?`
		args = append(args, arg.Status)
	}
	if arg.Search != "" {
		query += ` AND (a.title LIKE ? OR a.id IN (
			SELECT article_id FROM article_versions v
			WHERE v.id = a.current_version_id AND (v.content LIKE ? OR v.excerpt LIKE ?)))`
		pattern := "%" + arg.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}

	return query, args
}

// ListArticles returns article rows newest-first, applying the visibility
// rule: published articles for everyone, plus all of the viewer's own.
func (q *Queries) ListArticles(ctx context.Context, arg ListArticlesParams) ([]model.Article, error) {
	filters, args := articleFilters(arg)
	query := listArticlesBase + filters

	query += ` ORDER BY a.is_pinned DESC, a.created_at DESC`
	if arg.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, arg.Limit, arg.Offset)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// CountArticles counts the rows ListArticles would return with the same
// filters, for pagination.
func (q *Queries) CountArticles(ctx context.Context, arg ListArticlesParams) (int64, error) {
	filters, args := articleFilters(arg)
	query := `SELECT COUNT(*) FROM articles a WHERE a.current_version_id IS NOT NULL` + filters

	var n int64
	err := q.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

// ListArticlesByAuthor returns all of an author's articles regardless of
// status or content, newest-updated first. Used by the dashboard.
const listArticlesByAuthor = `
SELECT ` + articleColumns + ` FROM articles WHERE author_id = ? ORDER BY updated_at DESC
`

func (q *Queries) ListArticlesByAuthor(ctx context.Context, authorID int64) ([]model.Article, error) {
	rows, err := q.db.QueryContext(ctx, listArticlesByAuthor, authorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

const countArticlesByAuthorStatus = `
SELECT status, COUNT(*) FROM articles WHERE author_id = ? GROUP BY status
`

// CountArticlesByAuthorStatus returns a status -> count map for the dashboard.
func (q *Queries) CountArticlesByAuthorStatus(ctx context.Context, authorID int64) (map[string]int64, error) {
	rows, err := q.db.QueryContext(ctx, countArticlesByAuthorStatus, authorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

package store

import (
	"context"
	"time"

	"github.com/andreynetrebin/knowledge-base/internal/model"
)

const tagColumns = `id, name, slug, description, created_at`

func scanTag(row interface{ Scan(...any) error }) (model.Tag, error) {
	var t model.Tag
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Description, &t.CreatedAt)
	return t, err
}

// CreateTagParams holds parameters for CreateTag.
type CreateTagParams struct {
	Name        string
	Slug        string
	Description string
	CreatedAt   time.Time
}

const createTag = `
INSERT INTO tags (name, slug, description, created_at)
VALUES (?, ?, ?, ?)
RETURNING ` + tagColumns

// CreateTag inserts a new tag.
func (q *Queries) CreateTag(ctx context.Context, arg CreateTagParams) (model.Tag, error) {
	row := q.db.QueryRowContext(ctx, createTag, arg.Name, arg.Slug, arg.Description, arg.CreatedAt)
	t, err := scanTag(row)
	if isUniqueViolation(err) {
		return model.Tag{}, ErrConflict
	}
	return t, err
}

const getTagBySlug = `SELECT ` + tagColumns + ` FROM tags WHERE slug = ?`

// GetTagBySlug fetches a tag by its URL slug.
func (q *Queries) GetTagBySlug(ctx context.Context, slug string) (model.Tag, error) {
	t, err := scanTag(q.db.QueryRowContext(ctx, getTagBySlug, slug))
	return t, mapRowErr(err)
}

const getTagByName = `SELECT ` + tagColumns + ` FROM tags WHERE name = ?`

// GetTagByName fetches a tag by exact name.
func (q *Queries) GetTagByName(ctx context.Context, name string) (model.Tag, error) {
	t, err := scanTag(q.db.QueryRowContext(ctx, getTagByName, name))
	return t, mapRowErr(err)
}

// TagWithCount pairs a tag with the number of articles carrying it.
type TagWithCount struct {
	model.Tag
	ArticleCount int64
}

const listTagsWithCounts = `
SELECT t.id, t.name, t.slug, t.description, t.created_at, COUNT(at.article_id)
FROM tags t
JOIN article_tags at ON at.tag_id = t.id
JOIN articles a ON a.id = at.article_id AND a.status = 'published'
GROUP BY t.id
HAVING COUNT(at.article_id) > 0
ORDER BY COUNT(at.article_id) DESC, t.name
LIMIT ?
`

// ListTagsWithCounts returns tags ordered by published-article count, for
// the tag cloud and sidebars. Pass limit <= 0 for all tags.
func (q *Queries) ListTagsWithCounts(ctx context.Context, limit int64) ([]TagWithCount, error) {
	if limit <= 0 {
		limit = -1 // SQLite: negative LIMIT means unlimited
	}
	rows, err := q.db.QueryContext(ctx, listTagsWithCounts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []TagWithCount
	for rows.Next() {
		var t TagWithCount
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Description, &t.CreatedAt, &t.ArticleCount); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

const listTagsForArticle = `
SELECT t.id, t.name, t.slug, t.description, t.created_at
FROM tags t
JOIN article_tags at ON at.tag_id = t.id
WHERE at.article_id = ?
ORDER BY t.name
`

// ListTagsForArticle returns the tags attached to an article.
func (q *Queries) ListTagsForArticle(ctx context.Context, articleID int64) ([]model.Tag, error) {
	rows, err := q.db.QueryContext(ctx, listTagsForArticle, articleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

const attachTag = `INSERT OR IGNORE INTO article_tags (article_id, tag_id) VALUES (?, ?)`

// AttachTag links a tag to an article. Idempotent.
func (q *Queries) AttachTag(ctx context.Context, articleID, tagID int64) error {
	_, err := q.db.ExecContext(ctx, attachTag, articleID, tagID)
	return err
}

const detachTags = `DELETE FROM article_tags WHERE article_id = ?`

// DetachTags removes all tag links from an article, ahead of re-attaching
// the submitted set.
func (q *Queries) DetachTags(ctx context.Context, articleID int64) error {
	_, err := q.db.ExecContext(ctx, detachTags, articleID)
	return err
}

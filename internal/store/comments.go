package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/andreynetrebin/knowledge-base/internal/model"
)

const commentColumns = `id, article_id, author_id, parent_id, body, status, created_at, updated_at`

func scanComment(row interface{ Scan(...any) error }) (model.Comment, error) {
	var c model.Comment
	err := row.Scan(&c.ID, &c.ArticleID, &c.AuthorID, &c.ParentID, &c.Body, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// CreateCommentParams holds parameters for CreateComment.
type CreateCommentParams struct {
	ArticleID int64
	AuthorID  int64
	ParentID  sql.NullInt64
	Body      string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

const createComment = `
INSERT INTO comments (article_id, author_id, parent_id, body, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + commentColumns

// CreateComment inserts a comment or reply.
func (q *Queries) CreateComment(ctx context.Context, arg CreateCommentParams) (model.Comment, error) {
	row := q.db.QueryRowContext(ctx, createComment,
		arg.ArticleID, arg.AuthorID, arg.ParentID, arg.Body, arg.Status, arg.CreatedAt, arg.UpdatedAt)
	return scanComment(row)
}

const getCommentByID = `SELECT ` + commentColumns + ` FROM comments WHERE id = ?`

// GetCommentByID fetches a comment by primary key.
func (q *Queries) GetCommentByID(ctx context.Context, id int64) (model.Comment, error) {
	c, err := scanComment(q.db.QueryRowContext(ctx, getCommentByID, id))
	return c, mapRowErr(err)
}

const listCommentsForArticle = `
SELECT ` + commentColumns + ` FROM comments
WHERE article_id = ? AND status = 'active'
ORDER BY created_at DESC
`

// ListCommentsForArticle returns the article's visible comments, newest first.
func (q *Queries) ListCommentsForArticle(ctx context.Context, articleID int64) ([]model.Comment, error) {
	rows, err := q.db.QueryContext(ctx, listCommentsForArticle, articleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

const setCommentStatus = `
UPDATE comments SET status = ?, updated_at = ? WHERE id = ?
RETURNING ` + commentColumns

// SetCommentStatus moves a comment between active/deleted/pending. Rows are
// never removed so replies keep their anchor.
func (q *Queries) SetCommentStatus(ctx context.Context, id int64, status string, now time.Time) (model.Comment, error) {
	c, err := scanComment(q.db.QueryRowContext(ctx, setCommentStatus, status, now, id))
	return c, mapRowErr(err)
}

const countCommentsForArticle = `
SELECT COUNT(*) FROM comments WHERE article_id = ? AND status = 'active'
`

// CountCommentsForArticle returns the number of visible comments.
func (q *Queries) CountCommentsForArticle(ctx context.Context, articleID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countCommentsForArticle, articleID).Scan(&n)
	return n, err
}

// --- Ratings ---

const upsertRating = `
INSERT INTO ratings (article_id, user_id, value, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(article_id, user_id) DO UPDATE SET value = excluded.value
`

// UpsertRating records a like/dislike, replacing any previous vote by the
// same user on the same article.
func (q *Queries) UpsertRating(ctx context.Context, articleID, userID, value int64, now time.Time) error {
	_, err := q.db.ExecContext(ctx, upsertRating, articleID, userID, value, now)
	return err
}

const deleteRating = `DELETE FROM ratings WHERE article_id = ? AND user_id = ?`

// DeleteRating withdraws a user's vote.
func (q *Queries) DeleteRating(ctx context.Context, articleID, userID int64) error {
	_, err := q.db.ExecContext(ctx, deleteRating, articleID, userID)
	return err
}

const getRating = `SELECT value FROM ratings WHERE article_id = ? AND user_id = ?`

// GetRating returns the user's vote on an article, or 0 when absent.
func (q *Queries) GetRating(ctx context.Context, articleID, userID int64) (int64, error) {
	var v int64
	err := q.db.QueryRowContext(ctx, getRating, articleID, userID).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return v, err
}

const countRatings = `
SELECT
	COALESCE(SUM(CASE WHEN value = 1 THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN value = -1 THEN 1 ELSE 0 END), 0)
FROM ratings WHERE article_id = ?
`

// CountRatings returns the like and dislike totals for an article.
func (q *Queries) CountRatings(ctx context.Context, articleID int64) (likes, dislikes int64, err error) {
	err = q.db.QueryRowContext(ctx, countRatings, articleID).Scan(&likes, &dislikes)
	return likes, dislikes, err
}

// --- Favorites ---

const insertFavorite = `
INSERT OR IGNORE INTO favorites (article_id, user_id, created_at) VALUES (?, ?, ?)
`

const removeFavorite = `DELETE FROM favorites WHERE article_id = ? AND user_id = ?`

const isFavorite = `SELECT COUNT(*) FROM favorites WHERE article_id = ? AND user_id = ?`

// ToggleFavorite flips the favorite state and returns the new state.
func (q *Queries) ToggleFavorite(ctx context.Context, articleID, userID int64, now time.Time) (bool, error) {
	fav, err := q.IsFavorite(ctx, articleID, userID)
	if err != nil {
		return false, err
	}
	if fav {
		_, err = q.db.ExecContext(ctx, removeFavorite, articleID, userID)
		return false, err
	}
	_, err = q.db.ExecContext(ctx, insertFavorite, articleID, userID, now)
	return true, err
}

// IsFavorite reports whether the user has favorited the article.
func (q *Queries) IsFavorite(ctx context.Context, articleID, userID int64) (bool, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, isFavorite, articleID, userID).Scan(&n)
	return n > 0, err
}

const listFavoriteArticles = `
SELECT a.id, a.title, a.slug, a.author_id, a.category_id, a.status, a.view_count,
	a.is_pinned, a.current_version_id, a.created_at, a.updated_at, a.published_at
FROM articles a
JOIN favorites f ON f.article_id = a.id
WHERE f.user_id = ?
ORDER BY f.created_at DESC
`

// ListFavoriteArticles returns the user's bookmarked articles, most
// recently favorited first.
func (q *Queries) ListFavoriteArticles(ctx context.Context, userID int64) ([]model.Article, error) {
	rows, err := q.db.QueryContext(ctx, listFavoriteArticles, userID)
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

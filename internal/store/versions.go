package store

import (
	"context"
	"time"

	"github.com/andreynetrebin/knowledge-base/internal/model"
)

const versionColumns = `id, article_id, title, content, excerpt, author_id,
	version_number, change_reason, is_draft, created_at`

func scanVersion(row interface{ Scan(...any) error }) (model.ArticleVersion, error) {
	var v model.ArticleVersion
	err := row.Scan(&v.ID, &v.ArticleID, &v.Title, &v.Content, &v.Excerpt, &v.AuthorID,
		&v.VersionNumber, &v.ChangeReason, &v.IsDraft, &v.CreatedAt)
	return v, err
}

// CreateVersionParams holds parameters for CreateVersion.
type CreateVersionParams struct {
	ArticleID     int64
	Title         string
	Content       string
	Excerpt       string
	AuthorID      int64
	VersionNumber int64
	ChangeReason  string
	IsDraft       bool
	CreatedAt     time.Time
}

const createVersion = `
INSERT INTO article_versions (article_id, title, content, excerpt, author_id, version_number, change_reason, is_draft, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + versionColumns

// CreateVersion inserts a version row. A duplicate (article_id,
// version_number) pair surfaces as ErrConflict for the service to retry.
func (q *Queries) CreateVersion(ctx context.Context, arg CreateVersionParams) (model.ArticleVersion, error) {
	row := q.db.QueryRowContext(ctx, createVersion,
		arg.ArticleID, arg.Title, arg.Content, arg.Excerpt, arg.AuthorID,
		arg.VersionNumber, arg.ChangeReason, arg.IsDraft, arg.CreatedAt)
	v, err := scanVersion(row)
	if isUniqueViolation(err) {
		return model.ArticleVersion{}, ErrConflict
	}
	return v, err
}

const maxVersionNumber = `
SELECT COALESCE(MAX(version_number), 0) FROM article_versions WHERE article_id = ?
`

// MaxVersionNumber returns the highest version number for an article, or 0
// when it has no versions yet.
func (q *Queries) MaxVersionNumber(ctx context.Context, articleID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, maxVersionNumber, articleID).Scan(&n)
	return n, err
}

const getVersion = `
SELECT ` + versionColumns + ` FROM article_versions WHERE id = ? AND article_id = ?
`

// GetVersion fetches a version scoped to its owning article. A version ID
// belonging to a different article is ErrNotFound, never another row.
func (q *Queries) GetVersion(ctx context.Context, articleID, versionID int64) (model.ArticleVersion, error) {
	v, err := scanVersion(q.db.QueryRowContext(ctx, getVersion, versionID, articleID))
	return v, mapRowErr(err)
}

const getVersionByID = `SELECT ` + versionColumns + ` FROM article_versions WHERE id = ?`

// GetVersionByID fetches a version without parent scoping. Internal use
// only; user-facing lookups go through GetVersion.
func (q *Queries) GetVersionByID(ctx context.Context, id int64) (model.ArticleVersion, error) {
	v, err := scanVersion(q.db.QueryRowContext(ctx, getVersionByID, id))
	return v, mapRowErr(err)
}

const listVersions = `
SELECT ` + versionColumns + ` FROM article_versions
WHERE article_id = ?
ORDER BY version_number DESC
`

// ListVersions returns all versions of an article, newest first.
func (q *Queries) ListVersions(ctx context.Context, articleID int64) ([]model.ArticleVersion, error) {
	rows, err := q.db.QueryContext(ctx, listVersions, articleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []model.ArticleVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

const countVersions = `SELECT COUNT(*) FROM article_versions WHERE article_id = ?`

// CountVersions returns the number of versions an article has.
func (q *Queries) CountVersions(ctx context.Context, articleID int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countVersions, articleID).Scan(&n)
	return n, err
}

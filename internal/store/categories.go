package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/andreynetrebin/knowledge-base/internal/model"
)

const categoryColumns = `id, name, slug, description, parent_id, path, created_at, updated_at`

func scanCategory(row interface{ Scan(...any) error }) (model.Category, error) {
	var c model.Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.ParentID, &c.Path, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// CreateCategoryParams holds parameters for CreateCategory.
type CreateCategoryParams struct {
	Name        string
	Slug        string
	Description string
	ParentID    sql.NullInt64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const createCategory = `
INSERT INTO categories (name, slug, description, parent_id, path, created_at, updated_at)
VALUES (?, ?, ?, ?, '', ?, ?)
RETURNING ` + categoryColumns

const setCategoryPath = `UPDATE categories SET path = ? WHERE id = ?`

// CreateCategory inserts a category and materializes its ancestry path.
// The path needs the new row's id, so the insert and path update happen
// back to back; callers wanting atomicity wrap this in InTx.
func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (model.Category, error) {
	var parentPath string
	if arg.ParentID.Valid {
		parent, err := q.GetCategoryByID(ctx, arg.ParentID.Int64)
		if err != nil {
			return model.Category{}, err
		}
		parentPath = parent.Path
	}

	row := q.db.QueryRowContext(ctx, createCategory,
		arg.Name, arg.Slug, arg.Description, arg.ParentID, arg.CreatedAt, arg.UpdatedAt)
	c, err := scanCategory(row)
	if isUniqueViolation(err) {
		return model.Category{}, ErrConflict
	}
	if err != nil {
		return model.Category{}, err
	}

	c.Path = model.PathFor(parentPath, c.ID)
	if _, err := q.db.ExecContext(ctx, setCategoryPath, c.Path, c.ID); err != nil {
		return model.Category{}, err
	}
	return c, nil
}

const getCategoryByID = `SELECT ` + categoryColumns + ` FROM categories WHERE id = ?`

// GetCategoryByID fetches a category by primary key.
func (q *Queries) GetCategoryByID(ctx context.Context, id int64) (model.Category, error) {
	c, err := scanCategory(q.db.QueryRowContext(ctx, getCategoryByID, id))
	return c, mapRowErr(err)
}

const getCategoryBySlug = `SELECT ` + categoryColumns + ` FROM categories WHERE slug = ?`

// GetCategoryBySlug fetches a category by its URL slug.
func (q *Queries) GetCategoryBySlug(ctx context.Context, slug string) (model.Category, error) {
	c, err := scanCategory(q.db.QueryRowContext(ctx, getCategoryBySlug, slug))
	return c, mapRowErr(err)
}

const listCategories = `SELECT ` + categoryColumns + ` FROM categories ORDER BY path, name`

// ListCategories returns all categories in tree order (parents before children).
func (q *Queries) ListCategories(ctx context.Context) ([]model.Category, error) {
	return q.queryCategories(ctx, listCategories)
}

const listCategorySubtree = `
SELECT ` + categoryColumns + ` FROM categories WHERE path LIKE ? ORDER BY path, name
`

// ListCategorySubtree returns a category and all of its descendants using a
// single path-prefix match, no recursion.
func (q *Queries) ListCategorySubtree(ctx context.Context, root model.Category) ([]model.Category, error) {
	return q.queryCategories(ctx, listCategorySubtree, root.Path+"%")
}

func (q *Queries) queryCategories(ctx context.Context, query string, args ...any) ([]model.Category, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpdateCategoryParams holds parameters for UpdateCategory. Reparenting is
// intentionally not supported here: it would require rewriting the paths of
// the whole subtree, which the admin flow does by delete and re-create.
type UpdateCategoryParams struct {
	ID          int64
	Name        string
	Slug        string
	Description string
	UpdatedAt   time.Time
}

const updateCategory = `
UPDATE categories SET name = ?, slug = ?, description = ?, updated_at = ?
WHERE id = ?
RETURNING ` + categoryColumns

// UpdateCategory saves category fields other than the parent link.
func (q *Queries) UpdateCategory(ctx context.Context, arg UpdateCategoryParams) (model.Category, error) {
	row := q.db.QueryRowContext(ctx, updateCategory,
		arg.Name, arg.Slug, arg.Description, arg.UpdatedAt, arg.ID)
	c, err := scanCategory(row)
	if isUniqueViolation(err) {
		return model.Category{}, ErrConflict
	}
	return c, mapRowErr(err)
}

const deleteCategory = `DELETE FROM categories WHERE id = ?`

const countCategoryRefs = `
SELECT
	(SELECT COUNT(*) FROM articles WHERE category_id = ?1) +
	(SELECT COUNT(*) FROM categories WHERE parent_id = ?1)
`

// DeleteCategory removes a category. Returns ErrConflict while the
// category still holds articles or child categories.
func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	var refs int64
	if err := q.db.QueryRowContext(ctx, countCategoryRefs, id).Scan(&refs); err != nil {
		return err
	}
	if refs > 0 {
		return ErrConflict
	}
	_, err := q.db.ExecContext(ctx, deleteCategory, id)
	return err
}

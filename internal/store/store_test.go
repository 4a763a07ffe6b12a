package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/andreynetrebin/knowledge-base/internal/model"
)

// testDB creates a temporary test database.
func testDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp("", "kb-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	f.Close()

	db, err := NewDB(dbPath)
	if err != nil {
		os.Remove(dbPath)
		t.Fatalf("NewDB: %v", err)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		os.Remove(dbPath)
		t.Fatalf("Migrate: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}

	return db, cleanup
}

// fixtures creates a user, category, and article for tests that need them.
func fixtures(t *testing.T, q *Queries) (model.User, model.Category, model.Article) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	user, err := q.CreateUser(ctx, CreateUserParams{
		Email:        "author@example.com",
		Name:         "Author",
		PasswordHash: "hash",
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	cat, err := q.CreateCategory(ctx, CreateCategoryParams{
		Name:      "Guides",
		Slug:      "guides",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	article, err := q.CreateArticle(ctx, CreateArticleParams{
		Title:      "Getting Started",
		Slug:       "getting-started",
		AuthorID:   user.ID,
		CategoryID: cat.ID,
		Status:     model.StatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateArticle: %v", err)
	}

	return user, cat, article
}

func TestCreateAndGetArticle(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	_, _, article := fixtures(t, q)

	got, err := q.GetArticleBySlug(ctx, "getting-started")
	if err != nil {
		t.Fatalf("GetArticleBySlug: %v", err)
	}
	if got.ID != article.ID || got.Title != "Getting Started" {
		t.Errorf("got %+v, want id=%d title=Getting Started", got, article.ID)
	}
	if got.CurrentVersionID.Valid {
		t.Error("new article should have no current version")
	}

	_, err = q.GetArticleBySlug(ctx, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetArticleBySlug(missing) = %v, want ErrNotFound", err)
	}
}

func TestArticleSlugUniqueness(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	user, cat, _ := fixtures(t, q)

	now := time.Now()
	_, err := q.CreateArticle(ctx, CreateArticleParams{
		Title:      "Duplicate",
		Slug:       "getting-started",
		AuthorID:   user.ID,
		CategoryID: cat.ID,
		Status:     model.StatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate slug = %v, want ErrConflict", err)
	}
}

func TestVersionNumberUniqueness(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	user, _, article := fixtures(t, q)

	now := time.Now()
	_, err := q.CreateVersion(ctx, CreateVersionParams{
		ArticleID:     article.ID,
		Title:         article.Title,
		Content:       "content",
		AuthorID:      user.ID,
		VersionNumber: 1,
		CreatedAt:     now,
	})
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}

	_, err = q.CreateVersion(ctx, CreateVersionParams{
		ArticleID:     article.ID,
		Title:         article.Title,
		Content:       "other content",
		AuthorID:      user.ID,
		VersionNumber: 1,
		CreatedAt:     now,
	})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate version number = %v, want ErrConflict", err)
	}
}

func TestGetVersionScopedToArticle(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	user, cat, articleA := fixtures(t, q)

	now := time.Now()
	articleB, err := q.CreateArticle(ctx, CreateArticleParams{
		Title:      "Other",
		Slug:       "other",
		AuthorID:   user.ID,
		CategoryID: cat.ID,
		Status:     model.StatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateArticle: %v", err)
	}

	v, err := q.CreateVersion(ctx, CreateVersionParams{
		ArticleID:     articleA.ID,
		Title:         articleA.Title,
		Content:       "content",
		AuthorID:      user.ID,
		VersionNumber: 1,
		CreatedAt:     now,
	})
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}

	if _, err := q.GetVersion(ctx, articleA.ID, v.ID); err != nil {
		t.Errorf("GetVersion under owning article: %v", err)
	}

	// A's version requested under B must be NotFound, never A's row.
	_, err = q.GetVersion(ctx, articleB.ID, v.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetVersion under wrong article = %v, want ErrNotFound", err)
	}
}

func TestListVersionsDescending(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	user, _, article := fixtures(t, q)

	now := time.Now()
	for i := int64(1); i <= 3; i++ {
		if _, err := q.CreateVersion(ctx, CreateVersionParams{
			ArticleID:     article.ID,
			Title:         article.Title,
			Content:       "content",
			AuthorID:      user.ID,
			VersionNumber: i,
			CreatedAt:     now,
		}); err != nil {
			t.Fatalf("CreateVersion %d: %v", i, err)
		}
	}

	versions, err := q.ListVersions(ctx, article.ID)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("got %d versions, want 3", len(versions))
	}
	for i, want := range []int64{3, 2, 1} {
		if versions[i].VersionNumber != want {
			t.Errorf("versions[%d].VersionNumber = %d, want %d", i, versions[i].VersionNumber, want)
		}
	}

	maxN, err := q.MaxVersionNumber(ctx, article.ID)
	if err != nil {
		t.Fatalf("MaxVersionNumber: %v", err)
	}
	if maxN != 3 {
		t.Errorf("MaxVersionNumber = %d, want 3", maxN)
	}
}

func TestSetCurrentVersionIfNull(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	user, _, article := fixtures(t, q)

	now := time.Now()
	v1, err := q.CreateVersion(ctx, CreateVersionParams{
		ArticleID: article.ID, Title: "t", Content: "c", AuthorID: user.ID,
		VersionNumber: 1, CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}

	set, err := q.SetCurrentVersionIfNull(ctx, article.ID, v1.ID, now)
	if err != nil || !set {
		t.Fatalf("SetCurrentVersionIfNull = %v, %v; want true, nil", set, err)
	}

	v2, err := q.CreateVersion(ctx, CreateVersionParams{
		ArticleID: article.ID, Title: "t", Content: "c2", AuthorID: user.ID,
		VersionNumber: 2, CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}

	// Pointer already set; the guarded update must not move it.
	set, err = q.SetCurrentVersionIfNull(ctx, article.ID, v2.ID, now)
	if err != nil {
		t.Fatalf("SetCurrentVersionIfNull: %v", err)
	}
	if set {
		t.Error("SetCurrentVersionIfNull moved an existing pointer")
	}

	got, err := q.GetArticleByID(ctx, article.ID)
	if err != nil {
		t.Fatalf("GetArticleByID: %v", err)
	}
	if got.CurrentVersionID.Int64 != v1.ID {
		t.Errorf("current_version_id = %d, want %d", got.CurrentVersionID.Int64, v1.ID)
	}
}

func TestIncrementViewCount(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	_, _, article := fixtures(t, q)

	for i := 0; i < 3; i++ {
		if err := q.IncrementViewCount(ctx, article.ID); err != nil {
			t.Fatalf("IncrementViewCount: %v", err)
		}
	}

	got, err := q.GetArticleByID(ctx, article.ID)
	if err != nil {
		t.Fatalf("GetArticleByID: %v", err)
	}
	if got.ViewCount != 3 {
		t.Errorf("view_count = %d, want 3", got.ViewCount)
	}
}

func TestCategorySubtree(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	now := time.Now()

	root, err := q.CreateCategory(ctx, CreateCategoryParams{
		Name: "Root", Slug: "root", CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateCategory root: %v", err)
	}

	child, err := q.CreateCategory(ctx, CreateCategoryParams{
		Name: "Child", Slug: "child",
		ParentID:  sql.NullInt64{Int64: root.ID, Valid: true},
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateCategory child: %v", err)
	}

	grandchild, err := q.CreateCategory(ctx, CreateCategoryParams{
		Name: "Grandchild", Slug: "grandchild",
		ParentID:  sql.NullInt64{Int64: child.ID, Valid: true},
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateCategory grandchild: %v", err)
	}

	other, err := q.CreateCategory(ctx, CreateCategoryParams{
		Name: "Other", Slug: "other-cat", CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateCategory other: %v", err)
	}

	subtree, err := q.ListCategorySubtree(ctx, root)
	if err != nil {
		t.Fatalf("ListCategorySubtree: %v", err)
	}
	if len(subtree) != 3 {
		t.Fatalf("subtree size = %d, want 3", len(subtree))
	}
	ids := map[int64]bool{}
	for _, c := range subtree {
		ids[c.ID] = true
	}
	if !ids[root.ID] || !ids[child.ID] || !ids[grandchild.ID] || ids[other.ID] {
		t.Errorf("subtree ids = %v, want root+child+grandchild only", ids)
	}

	if grandchild.Depth() != 2 {
		t.Errorf("grandchild depth = %d, want 2", grandchild.Depth())
	}
}

func TestRatingsUpsert(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	user, _, article := fixtures(t, q)
	now := time.Now()

	if err := q.UpsertRating(ctx, article.ID, user.ID, model.RatingLike, now); err != nil {
		t.Fatalf("UpsertRating: %v", err)
	}
	if err := q.UpsertRating(ctx, article.ID, user.ID, model.RatingDislike, now); err != nil {
		t.Fatalf("UpsertRating (replace): %v", err)
	}

	likes, dislikes, err := q.CountRatings(ctx, article.ID)
	if err != nil {
		t.Fatalf("CountRatings: %v", err)
	}
	if likes != 0 || dislikes != 1 {
		t.Errorf("likes=%d dislikes=%d, want 0/1 after replacement", likes, dislikes)
	}

	v, err := q.GetRating(ctx, article.ID, user.ID)
	if err != nil {
		t.Fatalf("GetRating: %v", err)
	}
	if v != model.RatingDislike {
		t.Errorf("GetRating = %d, want %d", v, model.RatingDislike)
	}
}

func TestToggleFavorite(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	user, _, article := fixtures(t, q)
	now := time.Now()

	on, err := q.ToggleFavorite(ctx, article.ID, user.ID, now)
	if err != nil || !on {
		t.Fatalf("first toggle = %v, %v; want true, nil", on, err)
	}
	off, err := q.ToggleFavorite(ctx, article.ID, user.ID, now)
	if err != nil || off {
		t.Fatalf("second toggle = %v, %v; want false, nil", off, err)
	}
}

func TestCommentStatusTransitions(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	user, _, article := fixtures(t, q)
	now := time.Now()

	c, err := q.CreateComment(ctx, CreateCommentParams{
		ArticleID: article.ID,
		AuthorID:  user.ID,
		Body:      "Nice article",
		Status:    model.CommentStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}

	visible, err := q.ListCommentsForArticle(ctx, article.ID)
	if err != nil || len(visible) != 1 {
		t.Fatalf("ListCommentsForArticle = %d comments, err %v; want 1, nil", len(visible), err)
	}

	if _, err := q.SetCommentStatus(ctx, c.ID, model.CommentStatusDeleted, now); err != nil {
		t.Fatalf("SetCommentStatus: %v", err)
	}

	visible, err = q.ListCommentsForArticle(ctx, article.ID)
	if err != nil {
		t.Fatalf("ListCommentsForArticle: %v", err)
	}
	if len(visible) != 0 {
		t.Errorf("deleted comment still listed")
	}

	// Row survives soft delete.
	got, err := q.GetCommentByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCommentByID after delete: %v", err)
	}
	if got.Status != model.CommentStatusDeleted {
		t.Errorf("status = %q, want deleted", got.Status)
	}
}

func TestListArticlesVisibility(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	user, cat, draft := fixtures(t, q)
	now := time.Now()

	// Give the draft a current version so listings include it for the author.
	v, err := q.CreateVersion(ctx, CreateVersionParams{
		ArticleID: draft.ID, Title: draft.Title, Content: "c", AuthorID: user.ID,
		VersionNumber: 1, CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}
	if _, err := q.SetCurrentVersionIfNull(ctx, draft.ID, v.ID, now); err != nil {
		t.Fatalf("SetCurrentVersionIfNull: %v", err)
	}

	published, err := q.CreateArticle(ctx, CreateArticleParams{
		Title: "Public", Slug: "public", AuthorID: user.ID, CategoryID: cat.ID,
		Status: model.StatusPublished, CreatedAt: now, UpdatedAt: now,
		PublishedAt: sql.NullTime{Time: now, Valid: true},
	})
	if err != nil {
		t.Fatalf("CreateArticle: %v", err)
	}
	pv, err := q.CreateVersion(ctx, CreateVersionParams{
		ArticleID: published.ID, Title: "Public", Content: "c", AuthorID: user.ID,
		VersionNumber: 1, CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}
	if _, err := q.SetCurrentVersionIfNull(ctx, published.ID, pv.ID, now); err != nil {
		t.Fatalf("SetCurrentVersionIfNull: %v", err)
	}

	// Anonymous viewers see only the published article.
	anon, err := q.ListArticles(ctx, ListArticlesParams{})
	if err != nil {
		t.Fatalf("ListArticles anon: %v", err)
	}
	if len(anon) != 1 || anon[0].ID != published.ID {
		t.Errorf("anonymous listing = %d articles, want only published", len(anon))
	}

	// The author additionally sees their own draft.
	own, err := q.ListArticles(ctx, ListArticlesParams{VisibleToUserID: user.ID})
	if err != nil {
		t.Fatalf("ListArticles author: %v", err)
	}
	if len(own) != 2 {
		t.Errorf("author listing = %d articles, want 2", len(own))
	}
}

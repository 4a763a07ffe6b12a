package service

import (
	"context"
	"sync"
	"testing"

	"github.com/andreynetrebin/knowledge-base/internal/model"
	"github.com/andreynetrebin/knowledge-base/internal/store"
	"github.com/andreynetrebin/knowledge-base/internal/testutil"
)

func seedArticle(t *testing.T, svc *ArticleService, actor model.Actor, title, content string) model.Article {
	t.Helper()

	article, err := svc.Create(context.Background(), ArticleInput{
		Title:      title,
		Content:    content,
		CategoryID: 1,
		Status:     model.StatusDraft,
	}, actor)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return article
}

func TestCreateArticleWithFirstVersion(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	user := testutil.CreateUser(t, db, "author@example.com", model.RoleUser)
	testutil.CreateCategory(t, db, "Guides", "guides")

	versions := NewVersionService(db)
	articles := NewArticleService(db, versions)
	actor := model.ActorFor(&user)

	article := seedArticle(t, articles, actor, "Getting Started", "# Hello\nWorld")

	if article.Slug != "getting-started" {
		t.Errorf("slug = %q, want getting-started", article.Slug)
	}
	if !article.CurrentVersionID.Valid {
		t.Fatal("article created without a current version")
	}

	current, err := articles.CurrentVersion(context.Background(), &article)
	if err != nil {
		t.Fatalf("CurrentVersion: %v", err)
	}
	if current.Content != "# Hello\nWorld" {
		t.Errorf("content = %q, want original content", current.Content)
	}
	if current.VersionNumber != 1 {
		t.Errorf("version_number = %d, want 1", current.VersionNumber)
	}
	if current.ChangeReason != model.ReasonInitialVersion {
		t.Errorf("change_reason = %q, want default initial reason", current.ChangeReason)
	}
}

func TestVersionNumbersAreGapless(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	user := testutil.CreateUser(t, db, "author@example.com", model.RoleUser)
	testutil.CreateCategory(t, db, "Guides", "guides")

	versions := NewVersionService(db)
	articles := NewArticleService(db, versions)
	actor := model.ActorFor(&user)
	article := seedArticle(t, articles, actor, "Sequence", "v1 content")

	ctx := context.Background()
	for i := 2; i <= 5; i++ {
		if _, err := versions.CreateVersion(ctx, article.ID, VersionInput{
			Title:    "Sequence",
			Content:  "content",
			AuthorID: user.ID,
		}); err != nil {
			t.Fatalf("CreateVersion %d: %v", i, err)
		}
	}

	list, err := store.New(db).ListVersions(ctx, article.ID)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(list) != 5 {
		t.Fatalf("got %d versions, want 5", len(list))
	}
	for i, v := range list {
		want := int64(5 - i)
		if v.VersionNumber != want {
			t.Errorf("list[%d].VersionNumber = %d, want %d", i, v.VersionNumber, want)
		}
	}
}

func TestConcurrentVersionCreation(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	user := testutil.CreateUser(t, db, "author@example.com", model.RoleUser)
	testutil.CreateCategory(t, db, "Guides", "guides")

	versions := NewVersionService(db)
	articles := NewArticleService(db, versions)
	actor := model.ActorFor(&user)
	article := seedArticle(t, articles, actor, "Contended", "base")

	const writers = 8
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = versions.CreateVersion(ctx, article.ID, VersionInput{
				Title:    "Contended",
				Content:  "racing content",
				AuthorID: user.ID,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	if succeeded == 0 {
		t.Fatal("every concurrent writer failed")
	}

	// Whatever the mix of successes and conflicts, the surviving numbers
	// must be exactly 1..N with no gaps or duplicates.
	list, err := store.New(db).ListVersions(ctx, article.ID)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	want := int64(len(list))
	for _, v := range list {
		if v.VersionNumber != want {
			t.Fatalf("version numbers not gapless: got %d at position expecting %d", v.VersionNumber, want)
		}
		want--
	}
}

func TestAdvanceCurrentIdempotent(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	user := testutil.CreateUser(t, db, "author@example.com", model.RoleUser)
	testutil.CreateCategory(t, db, "Guides", "guides")

	versions := NewVersionService(db)
	articles := NewArticleService(db, versions)
	actor := model.ActorFor(&user)
	article := seedArticle(t, articles, actor, "Pointer", "v1")

	ctx := context.Background()
	v2, err := versions.CreateVersion(ctx, article.ID, VersionInput{
		Title: "Pointer", Content: "v2", AuthorID: user.ID,
	})
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}

	if err := versions.AdvanceCurrent(ctx, &article, &v2); err != nil {
		t.Fatalf("AdvanceCurrent: %v", err)
	}
	if err := versions.AdvanceCurrent(ctx, &article, &v2); err != nil {
		t.Fatalf("AdvanceCurrent (second call): %v", err)
	}

	got, err := store.New(db).GetArticleByID(ctx, article.ID)
	if err != nil {
		t.Fatalf("GetArticleByID: %v", err)
	}
	if got.CurrentVersionID.Int64 != v2.ID {
		t.Errorf("current_version_id = %d, want %d", got.CurrentVersionID.Int64, v2.ID)
	}

	count, err := store.New(db).CountVersions(ctx, article.ID)
	if err != nil {
		t.Fatalf("CountVersions: %v", err)
	}
	if count != 2 {
		t.Errorf("advancing twice created versions: count = %d, want 2", count)
	}
}

func TestAdvanceCurrentForeignVersionPanics(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	user := testutil.CreateUser(t, db, "author@example.com", model.RoleUser)
	testutil.CreateCategory(t, db, "Guides", "guides")

	versions := NewVersionService(db)
	articles := NewArticleService(db, versions)
	actor := model.ActorFor(&user)

	articleA := seedArticle(t, articles, actor, "Article A", "a")
	articleB := seedArticle(t, articles, actor, "Article B", "b")

	ctx := context.Background()
	versionB, err := articles.CurrentVersion(ctx, &articleB)
	if err != nil {
		t.Fatalf("CurrentVersion: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("AdvanceCurrent with a foreign version did not panic")
		}
	}()
	_ = versions.AdvanceCurrent(ctx, &articleA, versionB)
}

func TestNeedsNewVersion(t *testing.T) {
	current := &model.ArticleVersion{Title: "T", Content: "C", Excerpt: "E"}

	tests := []struct {
		name                    string
		current                 *model.ArticleVersion
		title, content, excerpt string
		want                    bool
	}{
		{name: "no current version", current: nil, title: "T", content: "C", excerpt: "E", want: true},
		{name: "identical fields", current: current, title: "T", content: "C", excerpt: "E", want: false},
		{name: "title changed", current: current, title: "T2", content: "C", excerpt: "E", want: true},
		{name: "content changed", current: current, title: "T", content: "C2", excerpt: "E", want: true},
		{name: "excerpt changed", current: current, title: "T", content: "C", excerpt: "E2", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsNewVersion(tt.current, tt.title, tt.content, tt.excerpt); got != tt.want {
				t.Errorf("NeedsNewVersion() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMetadataOnlyEditCreatesNoVersion(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	user := testutil.CreateUser(t, db, "author@example.com", model.RoleUser)
	testutil.CreateCategory(t, db, "Guides", "guides")
	other := testutil.CreateCategory(t, db, "Notes", "notes")

	versions := NewVersionService(db)
	articles := NewArticleService(db, versions)
	actor := model.ActorFor(&user)
	article := seedArticle(t, articles, actor, "Meta", "body")

	ctx := context.Background()
	updated, versioned, err := articles.Update(ctx, &article, ArticleInput{
		Title:      "Meta",
		Content:    "body",
		CategoryID: other.ID,
		Status:     model.StatusPrivate,
	}, actor)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if versioned {
		t.Error("metadata-only edit created a version")
	}
	if updated.CategoryID != other.ID || updated.Status != model.StatusPrivate {
		t.Errorf("metadata not saved: %+v", updated)
	}

	count, err := store.New(db).CountVersions(ctx, article.ID)
	if err != nil {
		t.Fatalf("CountVersions: %v", err)
	}
	if count != 1 {
		t.Errorf("version count = %d, want 1", count)
	}
}

func TestPublishedAtLifecycle(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	user := testutil.CreateUser(t, db, "author@example.com", model.RoleUser)
	testutil.CreateCategory(t, db, "Guides", "guides")

	versions := NewVersionService(db)
	articles := NewArticleService(db, versions)
	actor := model.ActorFor(&user)
	article := seedArticle(t, articles, actor, "Lifecycle", "body")

	if article.PublishedAt.Valid {
		t.Error("draft has published_at set")
	}

	ctx := context.Background()
	published, err := articles.SetStatus(ctx, &article, model.StatusPublished)
	if err != nil {
		t.Fatalf("SetStatus(published): %v", err)
	}
	if !published.PublishedAt.Valid {
		t.Error("published_at not set on publish")
	}

	archived, err := articles.SetStatus(ctx, &published, model.StatusArchived)
	if err != nil {
		t.Fatalf("SetStatus(archived): %v", err)
	}
	if archived.PublishedAt.Valid {
		t.Error("published_at not cleared on leaving published")
	}
}

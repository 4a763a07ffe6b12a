package logging

import (
	"log/slog"
	"testing"

	"github.com/andreynetrebin/knowledge-base/internal/model"
	"github.com/andreynetrebin/knowledge-base/internal/store"
	"github.com/andreynetrebin/knowledge-base/internal/testutil"
)

func TestHandlerMirrorsWarnings(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	logger := slog.New(NewEventLogHandler(testutil.TestLogger().Handler(), db))

	logger.Info("routine info, not mirrored")
	logger.Warn("article save failed", "category", model.EventCategoryArticle, "article_id", "42")
	logger.Error("restore failed for version")

	events, err := store.New(db).ListRecentEvents(t.Context(), 10)
	if err != nil {
		t.Fatalf("ListRecentEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	// Newest first.
	if events[0].Level != model.EventLevelError {
		t.Errorf("events[0].Level = %q", events[0].Level)
	}
	if events[0].Category != model.EventCategoryVersion {
		t.Errorf("inferred category = %q, want version", events[0].Category)
	}

	if events[1].Level != model.EventLevelWarning {
		t.Errorf("events[1].Level = %q", events[1].Level)
	}
	if events[1].Category != model.EventCategoryArticle {
		t.Errorf("explicit category = %q, want article", events[1].Category)
	}
	if events[1].Metadata != `{"article_id":"42"}` {
		t.Errorf("metadata = %q", events[1].Metadata)
	}
}

func TestInferCategory(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"login throttled", model.EventCategoryAuth},
		{"version restore failed", model.EventCategoryVersion},
		{"article not found", model.EventCategoryArticle},
		{"comment flagged", model.EventCategoryComment},
		{"user deactivated", model.EventCategoryUser},
		{"disk almost full", model.EventCategorySystem},
	}
	for _, tt := range tests {
		if got := inferCategory(tt.message); got != tt.want {
			t.Errorf("inferCategory(%q) = %q, want %q", tt.message, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("debug") != slog.LevelDebug {
		t.Error("debug not parsed")
	}
	if ParseLevel("WARN") != slog.LevelWarn {
		t.Error("warn not parsed case-insensitively")
	}
	if ParseLevel("nonsense") != slog.LevelInfo {
		t.Error("unknown level should default to info")
	}
}

// Package logging bridges slog to the audit event table: records at WARN
// and above are mirrored into events so operators can review them from the
// dashboard without shell access.
package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/andreynetrebin/knowledge-base/internal/model"
	"github.com/andreynetrebin/knowledge-base/internal/store"
)

// EventLogHandler wraps another slog.Handler and mirrors records at or
// above its threshold into the events table.
type EventLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	min     slog.Level
}

// NewEventLogHandler mirrors WARN and above.
func NewEventLogHandler(inner slog.Handler, db *sql.DB) *EventLogHandler {
	return &EventLogHandler{inner: inner, queries: store.New(db), min: slog.LevelWarn}
}

func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	err := h.inner.Handle(ctx, r)
	if r.Level >= h.min {
		h.mirror(r)
	}
	return err
}

func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EventLogHandler{inner: h.inner.WithAttrs(attrs), queries: h.queries, min: h.min}
}

func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	return &EventLogHandler{inner: h.inner.WithGroup(name), queries: h.queries, min: h.min}
}

// mirror writes the record as an audit event. A background context is used
// so a cancelled request cannot suppress the audit trail; write failures
// are swallowed, the inner handler already has the record.
func (h *EventLogHandler) mirror(r slog.Record) {
	attrs := make(map[string]string)
	category := ""
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "category" {
			category = a.Value.String()
			return true
		}
		attrs[a.Key] = a.Value.String()
		return true
	})
	if category == "" {
		category = inferCategory(r.Message)
	}

	metadata := "{}"
	if len(attrs) > 0 {
		if b, err := json.Marshal(attrs); err == nil {
			metadata = string(b)
		}
	}

	_, _ = h.queries.CreateEvent(context.Background(), store.CreateEventParams{
		Level:     eventLevel(r.Level),
		Category:  category,
		Message:   r.Message,
		Metadata:  metadata,
		CreatedAt: r.Time,
	})
}

func eventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

// inferCategory guesses an event category from the message when the logging
// site did not provide one.
func inferCategory(message string) string {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "login") || strings.Contains(msg, "logout") || strings.Contains(msg, "auth"):
		return model.EventCategoryAuth
	case strings.Contains(msg, "version") || strings.Contains(msg, "restore"):
		return model.EventCategoryVersion
	case strings.Contains(msg, "article"):
		return model.EventCategoryArticle
	case strings.Contains(msg, "comment"):
		return model.EventCategoryComment
	case strings.Contains(msg, "user"):
		return model.EventCategoryUser
	default:
		return model.EventCategorySystem
	}
}

// ParseLevel maps a config string to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

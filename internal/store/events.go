package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/andreynetrebin/knowledge-base/internal/model"
)

// CreateEventParams holds parameters for CreateEvent.
type CreateEventParams struct {
	Level     string
	Category  string
	Message   string
	UserID    sql.NullInt64
	Metadata  string
	CreatedAt time.Time
}

const createEvent = `
INSERT INTO events (level, category, message, user_id, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, level, category, message, user_id, metadata, created_at
`

// CreateEvent appends an entry to the event log.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (model.Event, error) {
	metadata := arg.Metadata
	if metadata == "" {
		metadata = "{}"
	}
	row := q.db.QueryRowContext(ctx, createEvent,
		arg.Level, arg.Category, arg.Message, arg.UserID, metadata, arg.CreatedAt)
	var e model.Event
	err := row.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.UserID, &e.Metadata, &e.CreatedAt)
	return e, err
}

const listRecentEvents = `
SELECT id, level, category, message, user_id, metadata, created_at
FROM events ORDER BY created_at DESC, id DESC LIMIT ?
`

// ListRecentEvents returns the newest event log entries.
func (q *Queries) ListRecentEvents(ctx context.Context, limit int64) ([]model.Event, error) {
	rows, err := q.db.QueryContext(ctx, listRecentEvents, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.UserID, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

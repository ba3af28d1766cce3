package pipeline

import (
	"context"
	"time"
)

// NoteLog records one completed submission for a user.
type NoteLog struct {
	ID        int64
	UserID    int64
	Note      string
	CreatedAt time.Time
}

// LogStore persists submission logs.
type LogStore interface {
	Append(ctx context.Context, userID int64, note string) error
	ListRecent(ctx context.Context, userID int64, limit int) ([]NoteLog, error)
}

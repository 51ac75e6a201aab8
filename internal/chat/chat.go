package chat

import (
	"context"
	"time"
)

// Turn is one question/answer exchange. Turns are immutable once written;
// saving a turn with an existing ID replaces it wholesale.
type Turn struct {
	ID              string
	SessionID       string
	UserID          string
	User            string
	Assistant       string
	ClientTimestamp string
	SavedAt         time.Time
}

// HistoryEntry is the shape history replay hands back to callers. The
// timestamp is the client-supplied one when present, mirroring what the
// caller originally saved.
type HistoryEntry struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
	Timestamp string `json:"timestamp,omitempty"`
}

type SaveInput struct {
	ID              string
	SessionID       string
	UserID          string
	User            string
	Assistant       string
	ClientTimestamp string
}

type Store interface {
	// Save upserts a turn by ID.
	Save(ctx context.Context, in SaveInput) (Turn, error)
	// History lists turns for a (session, user) pair ordered by server
	// timestamp ascending.
	History(ctx context.Context, sessionID, userID string) ([]HistoryEntry, error)
	// Sessions lists the distinct session IDs a user has turns in.
	Sessions(ctx context.Context, userID string) ([]string, error)
	HealthCheck(ctx context.Context) error
}

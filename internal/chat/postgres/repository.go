package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/fininsight/fininsight/internal/chat"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping chat store: %w", err)
	}
	return nil
}

func (r *Repository) Save(ctx context.Context, in chat.SaveInput) (chat.Turn, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}
	if strings.TrimSpace(in.SessionID) == "" {
		return chat.Turn{}, fmt.Errorf("session id is required")
	}
	if strings.TrimSpace(in.UserID) == "" {
		return chat.Turn{}, fmt.Errorf("user id is required")
	}

	query := `
INSERT INTO chat_turn (turn_id, session_id, user_id, user_text, assistant_text, client_ts)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (turn_id)
DO UPDATE SET session_id = EXCLUDED.session_id,
              user_id = EXCLUDED.user_id,
              user_text = EXCLUDED.user_text,
              assistant_text = EXCLUDED.assistant_text,
              client_ts = EXCLUDED.client_ts
RETURNING saved_at`

	turn := chat.Turn{
		ID:              id,
		SessionID:       in.SessionID,
		UserID:          in.UserID,
		User:            in.User,
		Assistant:       in.Assistant,
		ClientTimestamp: in.ClientTimestamp,
	}
	clientTS := sql.NullString{String: in.ClientTimestamp, Valid: in.ClientTimestamp != ""}
	if err := r.db.QueryRowContext(ctx, query, id, in.SessionID, in.UserID, in.User, in.Assistant, clientTS).Scan(&turn.SavedAt); err != nil {
		return chat.Turn{}, fmt.Errorf("save chat turn: %w", err)
	}
	return turn, nil
}

func (r *Repository) History(ctx context.Context, sessionID, userID string) ([]chat.HistoryEntry, error) {
	query := `
SELECT user_text, assistant_text, client_ts
FROM chat_turn
WHERE session_id = $1 AND user_id = $2
ORDER BY saved_at ASC`

	rows, err := r.db.QueryContext(ctx, query, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("query chat history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	history := make([]chat.HistoryEntry, 0)
	for rows.Next() {
		var entry chat.HistoryEntry
		var clientTS sql.NullString
		if err := rows.Scan(&entry.User, &entry.Assistant, &clientTS); err != nil {
			return nil, fmt.Errorf("scan chat turn: %w", err)
		}
		entry.Timestamp = clientTS.String
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat history: %w", err)
	}
	return history, nil
}

func (r *Repository) Sessions(ctx context.Context, userID string) ([]string, error) {
	query := `
SELECT DISTINCT session_id
FROM chat_turn
WHERE user_id = $1`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sessions := make([]string, 0)
	for rows.Next() {
		var sessionID string
		if err := rows.Scan(&sessionID); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		sessions = append(sessions, sessionID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

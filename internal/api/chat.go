package api

import (
	"net/http"
	"strings"

	"github.com/fininsight/fininsight/internal/chat"
	"github.com/fininsight/fininsight/internal/observability"
)

type chatSaveRequest struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	User      string `json:"user"`
	Assistant string `json:"assistant"`
	Timestamp string `json:"timestamp"`
}

type chatHistoryRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

func handleChatSave(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.ChatStore == nil {
		writeError(w, http.StatusNotImplemented, "chat store is not configured")
		return
	}

	var request chatSaveRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	if strings.TrimSpace(request.SessionID) == "" || strings.TrimSpace(request.UserID) == "" {
		writeError(w, http.StatusBadRequest, "session_id and user_id are required")
		return
	}

	if _, err := deps.ChatStore.Save(r.Context(), chat.SaveInput{
		ID:              request.ID,
		SessionID:       request.SessionID,
		UserID:          request.UserID,
		User:            request.User,
		Assistant:       request.Assistant,
		ClientTimestamp: request.Timestamp,
	}); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	observability.IncrementChatTurnSaved()
	writeJSON(w, http.StatusOK, map[string]any{"status": "saved"})
}

func handleChatHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.ChatStore == nil {
		writeError(w, http.StatusNotImplemented, "chat store is not configured")
		return
	}

	var request chatHistoryRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	if strings.TrimSpace(request.SessionID) == "" || strings.TrimSpace(request.UserID) == "" {
		writeError(w, http.StatusBadRequest, "session_id and user_id are required")
		return
	}

	history, err := deps.ChatStore.History(r.Context(), request.SessionID, request.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if history == nil {
		history = []chat.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

func handleChatSessions(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.ChatStore == nil {
		writeError(w, http.StatusNotImplemented, "chat store is not configured")
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	sessions, err := deps.ChatStore.Sessions(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

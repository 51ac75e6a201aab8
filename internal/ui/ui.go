package ui

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fininsight/fininsight/internal/chat"
	"github.com/fininsight/fininsight/internal/observability"
	"github.com/fininsight/fininsight/internal/rag"
)

//go:embed templates/*.html
var templateFS embed.FS

// Answerer runs one question through the assistant pipeline.
type Answerer interface {
	Run(ctx context.Context, req rag.Request) (rag.Result, error)
}

type Dependencies struct {
	Logger        *slog.Logger
	ChatStore     chat.Store
	Pipeline      Answerer
	DefaultUserID string
}

type Handler struct {
	templates *template.Template
	deps      Dependencies
}

// NewHandler builds the server-rendered assistant UI, mounted under /ui/.
func NewHandler(deps Dependencies) (http.Handler, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	h := &Handler{templates: templates, deps: deps}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ui/{$}", h.handleIndex)
	mux.HandleFunc("GET /ui/session/new", h.handleNewSession)
	mux.HandleFunc("GET /ui/session/{session}", h.handleSession)
	mux.HandleFunc("POST /ui/session/{session}/ask", h.handleAsk)
	return mux, nil
}

type indexPage struct {
	UserID   string
	Sessions []string
	Error    string
}

type sessionPage struct {
	UserID    string
	SessionID string
	Role      string
	History   []chat.HistoryEntry
	Answer    string
	SQL       string
	Rows      []map[string]any
	Columns   []string
	Error     string
}

func (h *Handler) userID(r *http.Request) string {
	if user := strings.TrimSpace(r.URL.Query().Get("user_id")); user != "" {
		return user
	}
	if h.deps.DefaultUserID != "" {
		return h.deps.DefaultUserID
	}
	return "demo"
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := indexPage{UserID: h.userID(r)}
	if h.deps.ChatStore != nil {
		sessions, err := h.deps.ChatStore.Sessions(r.Context(), page.UserID)
		if err != nil {
			page.Error = err.Error()
		} else {
			page.Sessions = sessions
		}
	}
	h.render(w, r, "index.html", page)
}

func (h *Handler) handleNewSession(w http.ResponseWriter, r *http.Request) {
	target := "/ui/session/" + uuid.NewString() + "?user_id=" + url.QueryEscape(h.userID(r))
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	page := sessionPage{
		UserID:    h.userID(r),
		SessionID: r.PathValue("session"),
		Role:      roleOrDefault(r.URL.Query().Get("role")),
		Error:     r.URL.Query().Get("error"),
	}
	h.loadHistory(r, &page)
	h.render(w, r, "session.html", page)
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	page := sessionPage{
		UserID:    h.userID(r),
		SessionID: r.PathValue("session"),
		Role:      roleOrDefault(r.FormValue("role")),
	}
	question := strings.TrimSpace(r.FormValue("question"))
	if question == "" {
		page.Error = "question is required"
		h.loadHistory(r, &page)
		h.render(w, r, "session.html", page)
		return
	}
	if h.deps.Pipeline == nil {
		page.Error = "assistant pipeline is not configured"
		h.loadHistory(r, &page)
		h.render(w, r, "session.html", page)
		return
	}

	result, err := h.deps.Pipeline.Run(r.Context(), rag.Request{
		Question: question,
		UserID:   page.UserID,
		Role:     page.Role,
	})
	if err != nil {
		// Failures render inline on the session page, nothing is saved.
		page.Error = err.Error()
		h.loadHistory(r, &page)
		h.render(w, r, "session.html", page)
		return
	}

	if h.deps.ChatStore != nil {
		_, err = h.deps.ChatStore.Save(r.Context(), chat.SaveInput{
			SessionID:       page.SessionID,
			UserID:          page.UserID,
			User:            question,
			Assistant:       result.Answer,
			ClientTimestamp: time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			if h.deps.Logger != nil {
				h.deps.Logger.ErrorContext(r.Context(), "save chat turn from ui",
					slog.String("session_id", page.SessionID),
					slog.String("error", err.Error()),
				)
			}
		} else {
			observability.IncrementChatTurnSaved()
		}
	}

	page.Answer = result.Answer
	page.SQL = result.SQL
	page.Rows = result.Rows
	page.Columns = columnsOf(result.Rows)
	h.loadHistory(r, &page)
	h.render(w, r, "session.html", page)
}

func (h *Handler) loadHistory(r *http.Request, page *sessionPage) {
	if h.deps.ChatStore == nil {
		return
	}
	history, err := h.deps.ChatStore.History(r.Context(), page.SessionID, page.UserID)
	if err != nil {
		if page.Error == "" {
			page.Error = err.Error()
		}
		return
	}
	page.History = history
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		if h.deps.Logger != nil {
			h.deps.Logger.ErrorContext(r.Context(), "render template",
				slog.String("template", name),
				slog.String("error", err.Error()),
			)
		}
	}
}

func roleOrDefault(role string) string {
	role = strings.TrimSpace(role)
	if role == "" {
		return "user"
	}
	return role
}

func columnsOf(rows []map[string]any) []string {
	if len(rows) == 0 {
		return nil
	}
	columns := make([]string, 0, len(rows[0]))
	for column := range rows[0] {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}

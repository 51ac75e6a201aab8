package ui

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fininsight/fininsight/internal/chat"
	"github.com/fininsight/fininsight/internal/rag"
)

type fakeChatStore struct {
	saved    []chat.SaveInput
	history  []chat.HistoryEntry
	sessions []string
}

func (f *fakeChatStore) Save(_ context.Context, in chat.SaveInput) (chat.Turn, error) {
	f.saved = append(f.saved, in)
	return chat.Turn{SessionID: in.SessionID, UserID: in.UserID}, nil
}

func (f *fakeChatStore) History(_ context.Context, _, _ string) ([]chat.HistoryEntry, error) {
	return f.history, nil
}

func (f *fakeChatStore) Sessions(_ context.Context, _ string) ([]string, error) {
	return f.sessions, nil
}

func (f *fakeChatStore) HealthCheck(context.Context) error { return nil }

type fakeAnswerer struct {
	result rag.Result
	err    error
}

func (f *fakeAnswerer) Run(context.Context, rag.Request) (rag.Result, error) {
	if f.err != nil {
		return rag.Result{}, f.err
	}
	return f.result, nil
}

func TestIndexListsSessions(t *testing.T) {
	h, err := NewHandler(Dependencies{
		ChatStore:     &fakeChatStore{sessions: []string{"s1", "s2"}},
		DefaultUserID: "demo",
	})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ui/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "/ui/session/s1") || !strings.Contains(body, "/ui/session/s2") {
		t.Fatalf("body missing session links:\n%s", body)
	}
}

func TestNewSessionRedirectsToFreshID(t *testing.T) {
	h, err := NewHandler(Dependencies{DefaultUserID: "demo"})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ui/session/new", nil))

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rr.Code)
	}
	location := rr.Header().Get("Location")
	if !strings.HasPrefix(location, "/ui/session/") {
		t.Fatalf("location = %q", location)
	}
}

func TestSessionPageRendersHistory(t *testing.T) {
	h, err := NewHandler(Dependencies{
		ChatStore: &fakeChatStore{history: []chat.HistoryEntry{
			{User: "what is the revenue?", Assistant: "Revenue is 100."},
		}},
		DefaultUserID: "demo",
	})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ui/session/s1", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "what is the revenue?") || !strings.Contains(body, "Revenue is 100.") {
		t.Fatalf("body missing history:\n%s", body)
	}
}

func TestAskRendersAnswerAndSavesTurn(t *testing.T) {
	store := &fakeChatStore{}
	h, err := NewHandler(Dependencies{
		ChatStore: store,
		Pipeline: &fakeAnswerer{result: rag.Result{
			Answer: "Revenue is 100.",
			SQL:    "SELECT revenue FROM financials",
			Rows:   []map[string]any{{"revenue": 100}},
		}},
		DefaultUserID: "demo",
	})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	form := url.Values{"question": {"what is the revenue?"}, "role": {"user"}}
	req := httptest.NewRequest(http.MethodPost, "/ui/session/s1/ask", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Revenue is 100.") {
		t.Fatalf("body missing answer:\n%s", body)
	}
	if !strings.Contains(body, "SELECT revenue FROM financials") {
		t.Fatalf("body missing sql:\n%s", body)
	}
	if len(store.saved) != 1 {
		t.Fatalf("saved turns = %d", len(store.saved))
	}
	if store.saved[0].User != "what is the revenue?" || store.saved[0].Assistant != "Revenue is 100." {
		t.Fatalf("saved turn = %+v", store.saved[0])
	}
}

func TestAskIncrementsSavedTurnCounter(t *testing.T) {
	h, err := NewHandler(Dependencies{
		ChatStore:     &fakeChatStore{},
		Pipeline:      &fakeAnswerer{result: rag.Result{Answer: "ok"}},
		DefaultUserID: "demo",
	})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	before := chatTurnsSavedCount(t)
	form := url.Values{"question": {"q"}}
	req := httptest.NewRequest(http.MethodPost, "/ui/session/s1/ask", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := chatTurnsSavedCount(t); got != before+1 {
		t.Fatalf("fininsight_chat_turns_saved_total = %v, want %v", got, before+1)
	}
}

func chatTurnsSavedCount(t *testing.T) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, family := range families {
		if family.GetName() == "fininsight_chat_turns_saved_total" {
			return family.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func TestAskRendersInlineError(t *testing.T) {
	store := &fakeChatStore{}
	h, err := NewHandler(Dependencies{
		ChatStore:     store,
		Pipeline:      &fakeAnswerer{err: errors.New("SQL execution error: boom")},
		DefaultUserID: "demo",
	})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	form := url.Values{"question": {"bad question"}}
	req := httptest.NewRequest(http.MethodPost, "/ui/session/s1/ask", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "SQL execution error: boom") {
		t.Fatalf("body missing inline error:\n%s", rr.Body.String())
	}
	if len(store.saved) != 0 {
		t.Fatalf("failed question should not be saved, got %d turns", len(store.saved))
	}
}

func TestAskRequiresQuestion(t *testing.T) {
	h, err := NewHandler(Dependencies{Pipeline: &fakeAnswerer{}, DefaultUserID: "demo"})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/ui/session/s1/ask", strings.NewReader("question="))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if !strings.Contains(rr.Body.String(), "question is required") {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

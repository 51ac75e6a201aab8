package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fininsight/fininsight/internal/chat"
	"github.com/fininsight/fininsight/internal/config"
	"github.com/fininsight/fininsight/internal/ingest"
	"github.com/fininsight/fininsight/internal/observability"
	"github.com/fininsight/fininsight/internal/rag"
)

type ReadinessCheck func(ctx context.Context) error

// RAGRunner answers one natural-language question end to end.
type RAGRunner interface {
	Run(ctx context.Context, req rag.Request) (rag.Result, error)
}

// IngestRunner lands one uploaded workbook in the financial records table.
type IngestRunner interface {
	Run(ctx context.Context, req ingest.Request) (ingest.Result, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	ChatStore         chat.Store
	Pipeline          RAGRunner
	Ingestor          IngestRunner
	UI                http.Handler
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"message": cfg.Service.Name + " is running",
		})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.HandleFunc("POST /chat/save/{$}", func(w http.ResponseWriter, r *http.Request) {
		handleChatSave(deps, w, r)
	})
	protected.HandleFunc("POST /chat/history/{$}", func(w http.ResponseWriter, r *http.Request) {
		handleChatHistory(deps, w, r)
	})
	protected.HandleFunc("GET /chat/sessions/{$}", func(w http.ResponseWriter, r *http.Request) {
		handleChatSessions(deps, w, r)
	})
	protected.HandleFunc("POST /ingest-excel-blob/{$}", func(w http.ResponseWriter, r *http.Request) {
		handleIngest(deps, w, r)
	})
	protected.HandleFunc("POST /rag-advanced/{$}", func(w http.ResponseWriter, r *http.Request) {
		handleRAG(deps, w, r)
	})

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				writeError(w, http.StatusInternalServerError, "auth middleware is required by configuration")
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("POST /chat/save/{$}", protectedHandler)
	mux.Handle("POST /chat/history/{$}", protectedHandler)
	mux.Handle("GET /chat/sessions/{$}", protectedHandler)
	mux.Handle("POST /ingest-excel-blob/{$}", protectedHandler)
	mux.Handle("POST /rag-advanced/{$}", protectedHandler)
	if deps.UI != nil {
		mux.Handle("/ui/", deps.UI)
	}

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func CheckDatabaseDSN(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.Database.DSN == "" {
			return errors.New("database dsn is not configured")
		}
		return nil
	}
}

func CheckAIConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.AI.BaseURL == "" && cfg.AI.APIKey == "" {
			return errors.New("ai endpoint is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError emits the flat error body every endpoint shares.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fininsight/fininsight/internal/finstore"
	"github.com/fininsight/fininsight/internal/nl2sql"
	"github.com/fininsight/fininsight/internal/observability"
)

// SQLExecutionError marks a failure caused by the generated statement. The
// offending SQL is part of the message so the caller can diagnose it.
type SQLExecutionError struct {
	SQL string
	Err error
}

func (e *SQLExecutionError) Error() string {
	return fmt.Sprintf("SQL execution error: %v\nSQL: %s", e.Err, e.SQL)
}

func (e *SQLExecutionError) Unwrap() error {
	return e.Err
}

type Request struct {
	Question string
	UserID   string
	Role     string
}

type Result struct {
	Answer string
	SQL    string
	Rows   []map[string]any
}

// Pipeline runs one question end to end: read schema, generate SQL, execute,
// mask, summarize. Every step failure aborts the run; nothing is retried.
type Pipeline struct {
	Store       finstore.Store
	Translator  nl2sql.Translator
	Synthesizer Synthesizer
	Table       string
	Logger      *slog.Logger
}

func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	result, outcome, err := p.run(ctx, req)
	observability.ObserveRAGPipeline(outcome, len(result.Rows), time.Since(start))
	return result, err
}

func (p *Pipeline) run(ctx context.Context, req Request) (Result, string, error) {
	if p.Store == nil || p.Translator == nil || p.Synthesizer == nil {
		return Result{}, "not_configured", fmt.Errorf("pipeline dependencies are not configured")
	}
	if strings.TrimSpace(req.Question) == "" {
		return Result{}, "bad_request", fmt.Errorf("question is required")
	}
	role := req.Role
	if role == "" {
		role = "user"
	}

	table := p.Table
	if table == "" {
		table = finstore.DefaultTable
	}
	schema, err := p.Store.Schema(ctx, table)
	if err != nil {
		return Result{}, "schema_error", fmt.Errorf("fetch table schema: %w", err)
	}

	translated, err := p.Translator.Translate(ctx, nl2sql.Request{
		Question:   req.Question,
		SchemaText: schema.Text(),
	})
	if err != nil {
		return Result{}, "translate_error", fmt.Errorf("generate SQL from question: %w", err)
	}
	if p.Logger != nil {
		p.Logger.DebugContext(ctx, "generated sql",
			slog.String("user_id", req.UserID),
			slog.String("sql", translated.SQL),
		)
	}

	if !isReadOnlySQL(translated.SQL) {
		return Result{SQL: translated.SQL}, "sql_error", &SQLExecutionError{
			SQL: translated.SQL,
			Err: fmt.Errorf("only read-only SELECT/WITH statements are allowed"),
		}
	}

	queried, err := p.Store.Query(ctx, translated.SQL)
	if err != nil {
		return Result{SQL: translated.SQL}, "sql_error", &SQLExecutionError{SQL: translated.SQL, Err: err}
	}

	// Masking happens here, before rows cross the executor boundary; the
	// synthesizer and the caller both see redacted data only.
	masked := MaskRows(queried.Rows, role)

	answer, err := p.Synthesizer.Synthesize(ctx, req.Question, masked)
	if err != nil {
		return Result{SQL: translated.SQL, Rows: masked}, "synthesize_error", fmt.Errorf("generate answer: %w", err)
	}

	return Result{Answer: answer, SQL: translated.SQL, Rows: masked}, "ok", nil
}

func isReadOnlySQL(sqlText string) bool {
	normalized := strings.ToLower(strings.TrimSpace(sqlText))
	return strings.HasPrefix(normalized, "select") || strings.HasPrefix(normalized, "with")
}

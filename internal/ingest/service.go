package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fininsight/fininsight/internal/finstore"
	"github.com/fininsight/fininsight/internal/observability"
	"github.com/fininsight/fininsight/internal/storage"
)

var ErrInvalidRequest = errors.New("ingest: invalid request")

type Request struct {
	Container string
	Blob      string
	Table     string
}

type Result struct {
	Table   string
	Columns []string
	Rows    int
}

// Service loads a workbook blob, parses it, and lands its rows in the
// financial records table, extending the table with new columns as needed.
type Service struct {
	Blobs  storage.ObjectStore
	Store  finstore.Store
	Logger *slog.Logger
}

func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	if s.Blobs == nil || s.Store == nil {
		return Result{}, fmt.Errorf("ingest dependencies are not configured")
	}
	container := strings.TrimSpace(req.Container)
	blob := strings.TrimSpace(req.Blob)
	if container == "" || blob == "" {
		return Result{}, fmt.Errorf("%w: container and blob names are required", ErrInvalidRequest)
	}
	table := strings.TrimSpace(req.Table)
	if table == "" {
		table = finstore.DefaultTable
	}
	if !finstore.ValidTableName(table) {
		return Result{}, fmt.Errorf("%w: invalid table name %q", ErrInvalidRequest, table)
	}

	start := time.Now()
	reader, err := s.Blobs.Get(ctx, container, blob)
	if err != nil {
		return Result{}, fmt.Errorf("fetch blob %q from %q: %w", blob, container, err)
	}
	defer reader.Close()

	sheet, err := ParseWorkbook(reader)
	if err != nil {
		return Result{}, err
	}

	inserted, err := s.Store.InsertRows(ctx, table, sheet.Columns, sheet.Rows)
	if err != nil {
		return Result{}, fmt.Errorf("insert workbook rows into %q: %w", table, err)
	}

	observability.ObserveIngest(inserted, time.Since(start))
	if s.Logger != nil {
		s.Logger.InfoContext(ctx, "ingested workbook",
			slog.String("container", container),
			slog.String("blob", blob),
			slog.String("table", table),
			slog.Int("columns", len(sheet.Columns)),
			slog.Int("rows", inserted),
		)
	}
	return Result{Table: table, Columns: sheet.Columns, Rows: inserted}, nil
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fininsight/fininsight/internal/finstore"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping financial store: %w", err)
	}
	return nil
}

func (s *Store) Schema(ctx context.Context, table string) (finstore.Schema, error) {
	if table == "" {
		table = finstore.DefaultTable
	}

	query := `
SELECT column_name, data_type
FROM information_schema.columns
WHERE table_name = $1
ORDER BY ordinal_position ASC`

	rows, err := s.db.QueryContext(ctx, query, table)
	if err != nil {
		return finstore.Schema{}, fmt.Errorf("read schema for %q: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	schema := finstore.Schema{Table: table}
	for rows.Next() {
		var col finstore.Column
		if err := rows.Scan(&col.Name, &col.Type); err != nil {
			return finstore.Schema{}, fmt.Errorf("scan schema row: %w", err)
		}
		schema.Columns = append(schema.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return finstore.Schema{}, fmt.Errorf("iterate schema rows: %w", err)
	}
	if len(schema.Columns) == 0 {
		return finstore.Schema{}, fmt.Errorf("%w: %q", finstore.ErrTableNotFound, table)
	}
	return schema, nil
}

func (s *Store) Query(ctx context.Context, sqlText string) (finstore.QueryResult, error) {
	if strings.TrimSpace(sqlText) == "" {
		return finstore.QueryResult{}, fmt.Errorf("sql is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return finstore.QueryResult{}, fmt.Errorf("begin query tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, sqlText)
	if err != nil {
		return finstore.QueryResult{}, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return finstore.QueryResult{}, fmt.Errorf("read result columns: %w", err)
	}

	result := finstore.QueryResult{Columns: columns, Rows: make([]map[string]any, 0)}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return finstore.QueryResult{}, fmt.Errorf("scan result row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, name := range columns {
			row[name] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return finstore.QueryResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return finstore.QueryResult{}, fmt.Errorf("commit query tx: %w", err)
	}
	return result, nil
}

func (s *Store) InsertRows(ctx context.Context, table string, columns []string, rows [][]string) (int, error) {
	if table == "" {
		table = finstore.DefaultTable
	}
	if !finstore.ValidTableName(table) {
		return 0, fmt.Errorf("invalid table name %q", table)
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("at least one column is required")
	}
	for _, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("row has %d values, want %d", len(row), len(columns))
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin ingest tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createSQL := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (id BIGSERIAL PRIMARY KEY)`, quoteIdent(table))
	if _, err := tx.ExecContext(ctx, createSQL); err != nil {
		return 0, fmt.Errorf("ensure table %q: %w", table, err)
	}
	for _, column := range columns {
		alterSQL := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s TEXT`, quoteIdent(table), quoteIdent(column))
		if _, err := tx.ExecContext(ctx, alterSQL); err != nil {
			return 0, fmt.Errorf("ensure column %q: %w", column, err)
		}
	}

	insertSQL := buildInsertSQL(table, columns)
	inserted := 0
	for i, row := range rows {
		args := make([]any, len(row))
		for j, value := range row {
			args[j] = value
		}
		if _, err := tx.ExecContext(ctx, insertSQL, args...); err != nil {
			return 0, fmt.Errorf("insert row %d: %w", i+1, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit ingest tx: %w", err)
	}
	return inserted, nil
}

func buildInsertSQL(table string, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = quoteIdent(column)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		quoteIdent(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)
}

// normalizeValue keeps materialized rows JSON-friendly: the pgx driver hands
// text columns back as []byte.
func normalizeValue(value any) any {
	if raw, ok := value.([]byte); ok {
		return string(raw)
	}
	return value
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

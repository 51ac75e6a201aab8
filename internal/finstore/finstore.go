package finstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DefaultTable is the financial records table queried when no table is named.
const DefaultTable = "financials"

var ErrTableNotFound = errors.New("finstore: table not found")

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type Schema struct {
	Table   string
	Columns []Column
}

// Text renders the schema the way the SQL-generation prompt consumes it:
// one "column: type" pair per line.
func (s Schema) Text() string {
	lines := make([]string, 0, len(s.Columns))
	for _, col := range s.Columns {
		lines = append(lines, col.Name+": "+col.Type)
	}
	return strings.Join(lines, "\n")
}

// QueryResult carries materialized rows plus the column order the statement
// produced them in; the maps alone cannot preserve it.
type QueryResult struct {
	Columns []string
	Rows    []map[string]any
}

type Store interface {
	// Schema reads the live column list for a table.
	Schema(ctx context.Context, table string) (Schema, error)
	// Query executes a SQL statement inside a transaction and materializes
	// every result row as a map keyed by column name.
	Query(ctx context.Context, sqlText string) (QueryResult, error)
	// InsertRows extends the table with any missing text columns and inserts
	// each row as its own statement inside one transaction.
	InsertRows(ctx context.Context, table string, columns []string, rows [][]string) (int, error)
	HealthCheck(ctx context.Context) error
}

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// NormalizeColumns maps raw spreadsheet headers to a validated column list:
// lowercased, spaces and dashes folded to underscores, every resulting name a
// legal SQL identifier and unique within the list. The serial "id" column is
// reserved.
func NormalizeColumns(headers []string) ([]string, error) {
	if len(headers) == 0 {
		return nil, fmt.Errorf("at least one column header is required")
	}
	seen := make(map[string]struct{}, len(headers))
	columns := make([]string, 0, len(headers))
	for i, header := range headers {
		name := strings.ToLower(strings.TrimSpace(header))
		name = strings.ReplaceAll(name, " ", "_")
		name = strings.ReplaceAll(name, "-", "_")
		if name == "" {
			return nil, fmt.Errorf("column %d has an empty header", i+1)
		}
		if !identPattern.MatchString(name) {
			return nil, fmt.Errorf("column header %q is not a valid identifier", header)
		}
		if name == "id" {
			return nil, fmt.Errorf("column name %q is reserved", name)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", name)
		}
		seen[name] = struct{}{}
		columns = append(columns, name)
	}
	return columns, nil
}

// ValidTableName reports whether a table identifier is safe to interpolate.
func ValidTableName(table string) bool {
	return identPattern.MatchString(table)
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/fininsight/fininsight/internal/finstore"
)

const schemaQuery = `
SELECT column_name, data_type
FROM information_schema.columns
WHERE table_name = $1
ORDER BY ordinal_position ASC`

func TestSchemaReadsInformationSchema(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(schemaQuery)).
		WithArgs("financials").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type"}).
			AddRow("id", "bigint").
			AddRow("revenue", "text").
			AddRow("cost", "text"))

	schema, err := store.Schema(context.Background(), "")
	if err != nil {
		t.Fatalf("Schema() error = %v", err)
	}
	if schema.Table != "financials" {
		t.Fatalf("Table = %q", schema.Table)
	}
	want := "id: bigint\nrevenue: text\ncost: text"
	if got := schema.Text(); got != want {
		t.Fatalf("Text() = %q, want %q", got, want)
	}
	assertSQLMock(t, mock)
}

func TestSchemaMissingTable(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(schemaQuery)).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type"}))

	_, err := store.Schema(context.Background(), "nope")
	if !errors.Is(err, finstore.ErrTableNotFound) {
		t.Fatalf("error = %v, want ErrTableNotFound", err)
	}
	assertSQLMock(t, mock)
}

func TestQueryMaterializesRowsAsMaps(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT project, revenue FROM financials`)).
		WillReturnRows(sqlmock.NewRows([]string{"project", "revenue"}).
			AddRow([]byte("apollo"), []byte("120")).
			AddRow([]byte("zephyr"), []byte("88")))
	mock.ExpectCommit()

	result, err := store.Query(context.Background(), "SELECT project, revenue FROM financials")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(result.Columns) != 2 || result.Columns[0] != "project" {
		t.Fatalf("Columns = %#v", result.Columns)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("len(Rows) = %d", len(result.Rows))
	}
	if result.Rows[0]["project"] != "apollo" {
		t.Fatalf("Rows[0][project] = %#v, want string apollo", result.Rows[0]["project"])
	}
	if result.Rows[1]["revenue"] != "88" {
		t.Fatalf("Rows[1][revenue] = %#v", result.Rows[1]["revenue"])
	}
	assertSQLMock(t, mock)
}

func TestQueryErrorRollsBack(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT nope FROM financials`)).
		WillReturnError(errors.New(`column "nope" does not exist`))
	mock.ExpectRollback()

	_, err := store.Query(context.Background(), "SELECT nope FROM financials")
	if err == nil {
		t.Fatal("expected execution error")
	}
	assertSQLMock(t, mock)
}

func TestQueryRejectsEmptySQL(t *testing.T) {
	db, _ := newSQLMock(t)
	store := NewStore(db)

	if _, err := store.Query(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty sql")
	}
}

func TestInsertRowsSingleTransaction(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "financials" (id BIGSERIAL PRIMARY KEY)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`ALTER TABLE "financials" ADD COLUMN IF NOT EXISTS "project" TEXT`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`ALTER TABLE "financials" ADD COLUMN IF NOT EXISTS "revenue" TEXT`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	insert := regexp.QuoteMeta(`INSERT INTO "financials" ("project", "revenue") VALUES ($1, $2)`)
	mock.ExpectExec(insert).WithArgs("apollo", "120").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(insert).WithArgs("zephyr", "88").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(insert).WithArgs("kestrel", "45").WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	count, err := store.InsertRows(context.Background(), "", []string{"project", "revenue"}, [][]string{
		{"apollo", "120"},
		{"zephyr", "88"},
		{"kestrel", "45"},
	})
	if err != nil {
		t.Fatalf("InsertRows() error = %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
	assertSQLMock(t, mock)
}

func TestInsertRowsMidIngestFailureRollsBackEverything(t *testing.T) {
	db, mock := newSQLMock(t)
	store := NewStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "financials" (id BIGSERIAL PRIMARY KEY)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`ALTER TABLE "financials" ADD COLUMN IF NOT EXISTS "project" TEXT`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	insert := regexp.QuoteMeta(`INSERT INTO "financials" ("project") VALUES ($1)`)
	mock.ExpectExec(insert).WithArgs("apollo").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(insert).WithArgs("zephyr").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := store.InsertRows(context.Background(), "financials", []string{"project"}, [][]string{
		{"apollo"},
		{"zephyr"},
	})
	if err == nil {
		t.Fatal("expected mid-ingest error")
	}
	assertSQLMock(t, mock)
}

func TestInsertRowsRejectsRaggedRows(t *testing.T) {
	db, _ := newSQLMock(t)
	store := NewStore(db)

	_, err := store.InsertRows(context.Background(), "financials", []string{"a", "b"}, [][]string{{"only one"}})
	if err == nil {
		t.Fatal("expected error for ragged row")
	}
}

func TestInsertRowsRejectsBadTableName(t *testing.T) {
	db, _ := newSQLMock(t)
	store := NewStore(db)

	_, err := store.InsertRows(context.Background(), "financials; DROP TABLE x", []string{"a"}, nil)
	if err == nil {
		t.Fatal("expected error for invalid table name")
	}
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

package finstore

import "testing"

func TestSchemaText(t *testing.T) {
	schema := Schema{
		Table: "financials",
		Columns: []Column{
			{Name: "revenue", Type: "double precision"},
			{Name: "project", Type: "character varying"},
		},
	}
	want := "revenue: double precision\nproject: character varying"
	if got := schema.Text(); got != want {
		t.Fatalf("Text() = %q, want %q", got, want)
	}
}

func TestSchemaTextEmpty(t *testing.T) {
	if got := (Schema{Table: "financials"}).Text(); got != "" {
		t.Fatalf("Text() = %q, want empty", got)
	}
}

func TestNormalizeColumns(t *testing.T) {
	columns, err := NormalizeColumns([]string{"Project", "Revenue", "Unit Cost"})
	if err != nil {
		t.Fatalf("NormalizeColumns() error = %v", err)
	}
	want := []string{"project", "revenue", "unit_cost"}
	for i := range want {
		if columns[i] != want[i] {
			t.Fatalf("columns = %#v, want %#v", columns, want)
		}
	}
}

func TestNormalizeColumnsRejectsBadHeaders(t *testing.T) {
	cases := map[string][]string{
		"empty list":    {},
		"empty header":  {"Project", "  "},
		"invalid chars": {"Revenue ($)"},
		"reserved id":   {"ID"},
		"duplicate":     {"Revenue", "revenue"},
		"leading digit": {"2024_revenue"},
	}
	for name, headers := range cases {
		if _, err := NormalizeColumns(headers); err == nil {
			t.Fatalf("%s: expected error for %#v", name, headers)
		}
	}
}

func TestValidTableName(t *testing.T) {
	if !ValidTableName("financials") {
		t.Fatal("financials should be valid")
	}
	if ValidTableName("financials; DROP TABLE x") {
		t.Fatal("injection attempt should be invalid")
	}
	if ValidTableName("") {
		t.Fatal("empty name should be invalid")
	}
}

package ingest

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/fininsight/fininsight/internal/finstore"
)

var ErrInvalidWorkbook = errors.New("ingest: invalid workbook")

// Sheet is the first worksheet of an uploaded workbook, reduced to a header
// derived column list and string cell values.
type Sheet struct {
	Columns []string
	Rows    [][]string
}

// ParseWorkbook reads an xlsx stream and extracts the first worksheet. The
// first row is the header; short data rows are padded with empty strings so
// every row matches the column list.
func ParseWorkbook(r io.Reader) (Sheet, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return Sheet{}, fmt.Errorf("%w: open xlsx: %v", ErrInvalidWorkbook, err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return Sheet{}, fmt.Errorf("%w: workbook has no sheets", ErrInvalidWorkbook)
	}
	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return Sheet{}, fmt.Errorf("%w: read sheet %q: %v", ErrInvalidWorkbook, sheets[0], err)
	}
	if len(rows) == 0 {
		return Sheet{}, fmt.Errorf("%w: sheet %q is empty", ErrInvalidWorkbook, sheets[0])
	}

	columns, err := finstore.NormalizeColumns(rows[0])
	if err != nil {
		return Sheet{}, fmt.Errorf("%w: %v", ErrInvalidWorkbook, err)
	}

	data := make([][]string, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if emptyRow(row) {
			continue
		}
		if len(row) > len(columns) {
			return Sheet{}, fmt.Errorf("%w: row %d has %d cells, header has %d columns", ErrInvalidWorkbook, i+2, len(row), len(columns))
		}
		padded := make([]string, len(columns))
		copy(padded, row)
		data = append(data, padded)
	}
	return Sheet{Columns: columns, Rows: data}, nil
}

func emptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

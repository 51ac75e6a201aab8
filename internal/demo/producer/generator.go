package producer

import (
	"bytes"
	"fmt"
	"math"
	"math/rand"

	"github.com/xuri/excelize/v2"
)

// Generator emits synthetic financial records shaped like the workbooks the
// ingest endpoint expects: a header row plus one row per record.
type Generator struct {
	rnd      *rand.Rand
	sequence int64
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

func (g *Generator) Columns() []string {
	return []string{"Department", "Region", "Fiscal Year", "Quarter", "Revenue", "Cost", "Headcount"}
}

func (g *Generator) NextRows(count int) [][]any {
	rows := make([][]any, 0, count)
	for i := 0; i < count; i++ {
		g.sequence++
		revenue := round2(50000 + g.rnd.Float64()*950000)
		margin := 0.4 + g.rnd.Float64()*0.45
		rows = append(rows, []any{
			pickOne(g.rnd, []string{"Sales", "Marketing", "Engineering", "Operations", "Finance"}),
			pickOne(g.rnd, []string{"NA", "EMEA", "APAC", "LATAM"}),
			2023 + g.rnd.Intn(3),
			fmt.Sprintf("Q%d", g.rnd.Intn(4)+1),
			revenue,
			round2(revenue * margin),
			10 + g.rnd.Intn(190),
		})
	}
	return rows
}

// BuildWorkbook renders a header and rows into xlsx bytes.
func BuildWorkbook(columns []string, rows [][]any) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	sheet := file.GetSheetList()[0]
	header := make([]any, len(columns))
	for i, column := range columns {
		header[i] = column
	}
	if err := file.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := file.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}

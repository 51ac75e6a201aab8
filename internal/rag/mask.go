package rag

// RedactionMarker replaces values the caller's role may not see.
const RedactionMarker = "***"

const maskedColumn = "cost"

const adminRole = "admin"

// MaskRows redacts the cost column for non-admin callers. The input is left
// untouched; masked copies are returned.
func MaskRows(rows []map[string]any, role string) []map[string]any {
	if role == adminRole {
		return rows
	}
	masked := make([]map[string]any, len(rows))
	for i, row := range rows {
		copied := make(map[string]any, len(row))
		for key, value := range row {
			copied[key] = value
		}
		if _, ok := copied[maskedColumn]; ok {
			copied[maskedColumn] = RedactionMarker
		}
		masked[i] = copied
	}
	return masked
}

package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

var nameComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// ValidateContainerName rejects names that cannot be a bucket or that could
// smuggle path segments into object keys.
func ValidateContainerName(name string) error {
	return validateNameComponent(name, "container name")
}

// BuildWorkbookKey derives a date-partitioned object key for an uploaded
// workbook, for example "financials/date=2026-08-31/upload-55-00003.xlsx".
func BuildWorkbookKey(dataset string, uploadTime time.Time, batchID int64, sequence int) (string, error) {
	if err := validateNameComponent(dataset, "dataset name"); err != nil {
		return "", err
	}
	if sequence < 0 {
		return "", fmt.Errorf("sequence must be >= 0")
	}

	ts := uploadTime.UTC()
	return path.Join(
		dataset,
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("upload-%d-%05d.xlsx", batchID, sequence),
	), nil
}

func validateNameComponent(value, field string) error {
	if !nameComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}

// runlog/reader.go
package runlog

import (
	"fmt"
	"path/filepath"
	"sort"
)

// ListByTargetDate scans every daily log in dir and returns the rows for targetDate
// (YYYY-MM-DD), oldest log first.
func ListByTargetDate(dir, targetDate string) ([]RunRow, error) {
	files, err := filepath.Glob(filepath.Join(dir, "runlog_*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to list run logs in %s: %w", dir, err)
	}
	sort.Strings(files)

	out := []RunRow{}
	for _, f := range files {
		rows, err := ReadFile(f)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			if r.TargetDate == targetDate {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

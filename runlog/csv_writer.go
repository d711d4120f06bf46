// runlog/csv_writer.go
package runlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jszwec/csvutil"
)

// CSVWriter appends run rows to one CSV file per day under Dir.
type CSVWriter struct {
	Dir string
}

func NewCSVWriter(dir string) *CSVWriter {
	return &CSVWriter{Dir: dir}
}

// PathFor returns the log file for day.
func (w *CSVWriter) PathFor(day time.Time) string {
	return filepath.Join(w.Dir, fmt.Sprintf("runlog_%s.csv", day.UTC().Format("20060102")))
}

// Write appends rows to the day's log. The header is written only when the file is new.
func (w *CSVWriter) Write(day time.Time, rows []RunRow) error {
	if len(rows) == 0 {
		return nil
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log dir %s: %w", w.Dir, err)
	}

	path := w.PathFor(day)
	fresh := true
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		fresh = false
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open run log %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = fresh

	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("failed to encode run log rows: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush run log %s: %w", path, err)
	}
	return nil
}

// ReadFile decodes a run log written by CSVWriter.
func ReadFile(path string) ([]RunRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log %s: %w", path, err)
	}
	defer f.Close()

	dec, err := csvutil.NewDecoder(csv.NewReader(f))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to create CSV decoder for %s: %w", path, err)
	}

	var rows []RunRow
	if err := dec.Decode(&rows); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode run log %s: %w", path, err)
	}
	return rows, nil
}

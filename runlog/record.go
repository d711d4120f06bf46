// runlog/record.go
package runlog

import (
	"sync"
	"time"

	"github.com/gewnthar/gnss-archiver/models"
)

const timeLayout = time.RFC3339

// RunRow is one line of the daily run log and one row of run_records.
type RunRow struct {
	RunID         string `csv:"run_id" db:"run_id" json:"run_id"`
	Product       string `csv:"product" db:"product" json:"product"`
	Outcome       string `csv:"outcome" db:"outcome" json:"outcome"`
	Reason        string `csv:"reason,omitempty" db:"reason" json:"reason,omitempty"`
	SourceFile    string `csv:"source_file" db:"source_file" json:"source_file"`
	ProductID     string `csv:"product_id,omitempty" db:"product_id" json:"product_id,omitempty"`
	CoverageStart string `csv:"coverage_start,omitempty" db:"coverage_start" json:"coverage_start,omitempty"`
	CoverageEnd   string `csv:"coverage_end,omitempty" db:"coverage_end" json:"coverage_end,omitempty"`
	CanonicalName string `csv:"canonical_name,omitempty" db:"canonical_name" json:"canonical_name,omitempty"`
	TargetDate    string `csv:"target_date" db:"target_date" json:"target_date"`
	DayOfYear     string `csv:"day_of_year" db:"day_of_year" json:"day_of_year"`
	CommittedAt   string `csv:"committed_at,omitempty" db:"committed_at" json:"committed_at,omitempty"`
}

// RowFromResult flattens a validation result for the log.
func RowFromResult(runID string, epoch models.TargetEpoch, r models.ValidationResult) RunRow {
	row := RunRow{
		RunID:         runID,
		Product:       r.Candidate.Product.String(),
		Outcome:       string(r.Outcome),
		Reason:        string(r.Reason),
		SourceFile:    r.Candidate.RemoteName,
		CanonicalName: r.CanonicalName,
		TargetDate:    epoch.DateString(),
		DayOfYear:     epoch.DayOfYear,
	}
	if r.Metadata != nil {
		row.ProductID = r.Metadata.ProductID
		row.CoverageStart = formatTime(r.Metadata.CoverageStart)
		row.CoverageEnd = formatTime(r.Metadata.CoverageEnd)
	}
	if !r.CommittedAt.IsZero() {
		row.CommittedAt = formatTime(r.CommittedAt)
	}
	return row
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// Record accumulates rows for one run. Safe for concurrent appends.
type Record struct {
	ID        string
	StartedAt time.Time

	mu   sync.Mutex
	rows []RunRow
}

func NewRecord(id string, startedAt time.Time) *Record {
	return &Record{ID: id, StartedAt: startedAt}
}

func (r *Record) Append(rows ...RunRow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, rows...)
}

// Rows returns a copy of the accumulated rows.
func (r *Record) Rows() []RunRow {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RunRow, len(r.rows))
	copy(out, r.rows)
	return out
}

func (r *Record) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// Accepted counts the accepted rows.
func (r *Record) Accepted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, row := range r.rows {
		if row.Outcome == string(models.OutcomeAccepted) {
			n++
		}
	}
	return n
}

// database/run_record_store.go
package database

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/gewnthar/gnss-archiver/runlog"
)

var runRecordColumns = []string{
	"run_id", "product", "outcome", "reason", "source_file", "product_id",
	"coverage_start", "coverage_end", "canonical_name", "target_date", "day_of_year", "committed_at",
}

// InsertRunRows stores the rows of one run in a single statement.
func (db *DB) InsertRunRows(ctx context.Context, rows []runlog.RunRow) error {
	if len(rows) == 0 {
		return nil
	}

	builder := sq.Insert("run_records").Columns(runRecordColumns...)
	for _, r := range rows {
		builder = builder.Values(
			r.RunID, r.Product, r.Outcome, r.Reason, r.SourceFile, r.ProductID,
			r.CoverageStart, r.CoverageEnd, r.CanonicalName, r.TargetDate, r.DayOfYear, r.CommittedAt,
		)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build run_records insert: %w", err)
	}
	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert %d run records: %w", len(rows), err)
	}

	if db.logger != nil {
		db.logger.Debug("stored run records", "count", len(rows))
	}
	return nil
}

// ListRunRowsByDate returns every stored row for a target date (YYYY-MM-DD) in insertion order.
func (db *DB) ListRunRowsByDate(ctx context.Context, targetDate string) ([]runlog.RunRow, error) {
	query, args, err := sq.Select(runRecordColumns...).
		From("run_records").
		Where(sq.Eq{"target_date": targetDate}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build run_records query: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query run_records: %w", err)
	}
	defer rows.Close()

	out := []runlog.RunRow{}
	for rows.Next() {
		var r runlog.RunRow
		if err := rows.Scan(
			&r.RunID, &r.Product, &r.Outcome, &r.Reason, &r.SourceFile, &r.ProductID,
			&r.CoverageStart, &r.CoverageEnd, &r.CanonicalName, &r.TargetDate, &r.DayOfYear, &r.CommittedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run_records row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run_records rows: %w", err)
	}
	return out, nil
}

// database/product_version_store.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/gewnthar/gnss-archiver/models"
)

const versionTimeLayout = time.RFC3339

// UpsertProductVersion records v as the latest committed version of its product.
func (db *DB) UpsertProductVersion(ctx context.Context, v models.ProductVersion) error {
	var suffix string
	switch db.driver {
	case DriverMySQL:
		suffix = `ON DUPLICATE KEY UPDATE
			source_url = VALUES(source_url),
			canonical_name = VALUES(canonical_name),
			stored_path = VALUES(stored_path),
			coverage_start = VALUES(coverage_start),
			coverage_end = VALUES(coverage_end),
			last_committed_at = VALUES(last_committed_at)`
	default:
		suffix = `ON CONFLICT(product) DO UPDATE SET
			source_url = excluded.source_url,
			canonical_name = excluded.canonical_name,
			stored_path = excluded.stored_path,
			coverage_start = excluded.coverage_start,
			coverage_end = excluded.coverage_end,
			last_committed_at = excluded.last_committed_at`
	}

	query, args, err := sq.Insert("product_versions").
		Columns("product", "source_url", "canonical_name", "stored_path", "coverage_start", "coverage_end", "last_committed_at").
		Values(v.Product, v.SourceURL, v.CanonicalName, v.StoredPath,
			nullableTime(v.CoverageStart), nullableTime(v.CoverageEnd),
			v.LastCommittedAt.UTC().Format(versionTimeLayout)).
		Suffix(suffix).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build product_versions upsert: %w", err)
	}

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to log product version for %s: %w", v.Product, err)
	}

	if db.logger != nil {
		db.logger.Debug("updated product version", "product", v.Product, "canonical", v.CanonicalName)
	}
	return nil
}

// ListProductVersions returns the latest committed version of every product.
func (db *DB) ListProductVersions(ctx context.Context) ([]models.ProductVersion, error) {
	query, args, err := sq.Select("product", "source_url", "canonical_name", "stored_path",
		"coverage_start", "coverage_end", "last_committed_at").
		From("product_versions").
		OrderBy("product").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build product_versions query: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query product_versions: %w", err)
	}
	defer rows.Close()

	var versions []models.ProductVersion
	for rows.Next() {
		var v models.ProductVersion
		var start, end sql.NullString
		var committed string
		if err := rows.Scan(&v.Product, &v.SourceURL, &v.CanonicalName, &v.StoredPath, &start, &end, &committed); err != nil {
			return nil, fmt.Errorf("failed to scan product_versions row: %w", err)
		}
		v.CoverageStart = parseNullableTime(start)
		v.CoverageEnd = parseNullableTime(end)
		if t, err := time.Parse(versionTimeLayout, committed); err == nil {
			v.LastCommittedAt = t
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product_versions rows: %w", err)
	}
	return versions, nil
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil || t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(versionTimeLayout), Valid: true}
}

func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(versionTimeLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}

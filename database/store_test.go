package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gewnthar/gnss-archiver/config"
	"github.com/gewnthar/gnss-archiver/models"
	"github.com/gewnthar/gnss-archiver/runlog"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	cfg := config.DatabaseConfig{Driver: DriverSQLite, DBName: filepath.Join(t.TempDir(), "db", "test.db")}
	db, err := Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), config.DatabaseConfig{Driver: "oracle"}, nil); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestRunRowsRoundTrip(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()

	rows := []runlog.RunRow{
		{RunID: "r1", Product: "orbit", Outcome: "accepted", SourceFile: "a.gz", ProductID: "23045_00",
			CoverageStart: "2024-03-07T00:00:00Z", CoverageEnd: "2024-03-08T23:45:00Z",
			CanonicalName: "igu23045_00.sp3", TargetDate: "2024-03-08", DayOfYear: "068", CommittedAt: "2024-03-08T06:00:00Z"},
		{RunID: "r1", Product: "orbit", Outcome: "rejected", Reason: "not_found", SourceFile: "b.gz",
			TargetDate: "2024-03-08", DayOfYear: "068"},
		{RunID: "r1", Product: "orbit", Outcome: "accepted", SourceFile: "c.gz", TargetDate: "2024-03-07", DayOfYear: "067"},
	}
	if err := db.InsertRunRows(ctx, rows); err != nil {
		t.Fatalf("InsertRunRows: %v", err)
	}
	if err := db.InsertRunRows(ctx, nil); err != nil {
		t.Fatalf("InsertRunRows(nil): %v", err)
	}

	got, err := db.ListRunRowsByDate(ctx, "2024-03-08")
	if err != nil {
		t.Fatalf("ListRunRowsByDate: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0] != rows[0] || got[1] != rows[1] {
		t.Fatalf("rows differ:\n got %+v\nwant %+v", got, rows[:2])
	}

	empty, err := db.ListRunRowsByDate(ctx, "1999-01-01")
	if err != nil {
		t.Fatalf("ListRunRowsByDate: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no rows, got %d", len(empty))
	}
}

func TestUpsertProductVersion(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	ctx := context.Background()

	start := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	end := start.Add(47*time.Hour + 45*time.Minute)
	v := models.ProductVersion{
		Product:         "orbit",
		SourceURL:       "https://example.test/2304/a.gz",
		CanonicalName:   "igu23045_00.sp3",
		StoredPath:      "archive/orbit/20240307/igu23045_00.sp3.gz",
		CoverageStart:   &start,
		CoverageEnd:     &end,
		LastCommittedAt: time.Date(2024, 3, 8, 6, 0, 0, 0, time.UTC),
	}
	if err := db.UpsertProductVersion(ctx, v); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	v.CanonicalName = "igu23045_06.sp3"
	v.CoverageStart = nil
	if err := db.UpsertProductVersion(ctx, v); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if err := db.UpsertProductVersion(ctx, models.ProductVersion{Product: "bulletin-A", LastCommittedAt: v.LastCommittedAt}); err != nil {
		t.Fatalf("bulletin upsert: %v", err)
	}

	versions, err := db.ListProductVersions(ctx)
	if err != nil {
		t.Fatalf("ListProductVersions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 products, got %d", len(versions))
	}
	orbit := versions[1]
	if orbit.Product != "orbit" || orbit.CanonicalName != "igu23045_06.sp3" {
		t.Fatalf("unexpected orbit version %+v", orbit)
	}
	if orbit.CoverageStart != nil {
		t.Fatalf("coverage start should be cleared, got %v", orbit.CoverageStart)
	}
	if orbit.CoverageEnd == nil || !orbit.CoverageEnd.Equal(end) {
		t.Fatalf("coverage end = %v", orbit.CoverageEnd)
	}
	if !orbit.LastCommittedAt.Equal(v.LastCommittedAt) {
		t.Fatalf("last committed = %v", orbit.LastCommittedAt)
	}
}

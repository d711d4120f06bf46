package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gewnthar/gnss-archiver/models"
	"github.com/gewnthar/gnss-archiver/runlog"
	"github.com/gewnthar/gnss-archiver/scraper"
)

func sp3Content(start time.Time, epochs int, step time.Duration, productID string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "#dP%4d %2d %2d %2d %2d %11.8f     %3d ORBIT IGb20 HLM  IGS\n",
		start.Year(), int(start.Month()), start.Day(), start.Hour(), start.Minute(), 0.0, epochs)
	fmt.Fprintf(&b, "/* ultra-rapid combination igu%s\n", productID)
	for i := 0; i < epochs; i++ {
		ts := start.Add(time.Duration(i) * step)
		fmt.Fprintf(&b, "*  %4d %2d %2d %2d %2d %11.8f\n",
			ts.Year(), int(ts.Month()), ts.Day(), ts.Hour(), ts.Minute(), 0.0)
		b.WriteString("PG01  -9435.420812 -13277.212512 -20739.658023    -99.370588\n")
	}
	b.WriteString("EOF\n")
	return []byte(b.String())
}

func ionexContent(first, last string) []byte {
	lines := []string{
		fmt.Sprintf("%-60s%s", "     1.0            IONOSPHERE MAPS     GPS", "IONEX VERSION / TYPE"),
		fmt.Sprintf("%-60s%s", "IGSIONO             IGS                 08-MAR-24 10:12", "PGM / RUN BY / DATE"),
		fmt.Sprintf("%-60s%s", first, "EPOCH OF FIRST MAP"),
		fmt.Sprintf("%-60s%s", last, "EPOCH OF LAST MAP"),
		fmt.Sprintf("%-60s%s", "", "END OF HEADER"),
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}

func mustGzip(t *testing.T, data []byte) []byte {
	t.Helper()
	out, err := Gzip(data, "")
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	return out
}

type testDirs struct {
	work, archive, holding, logs string
}

func newTestDirs(t *testing.T) testDirs {
	t.Helper()
	root := t.TempDir()
	return testDirs{
		work:    filepath.Join(root, "work"),
		archive: filepath.Join(root, "archive"),
		holding: filepath.Join(root, "holding"),
		logs:    filepath.Join(root, "logs"),
	}
}

func newTestCommitter(d testDirs, now time.Time) *Committer {
	return &Committer{
		WorkDir:    d.work,
		ArchiveDir: d.archive,
		HoldingDir: d.holding,
		Parser:     scraper.NewMetadataParser(scraper.IonexLayout{}),
		Now:        func() time.Time { return now },
	}
}

// fakeArchive serves files by remote name; anything else is not found.
type fakeArchive struct {
	probeErr error
	files    map[string][]byte

	mu      sync.Mutex
	fetched []string
}

func (f *fakeArchive) Probe(context.Context) error { return f.probeErr }

func (f *fakeArchive) Fetch(_ context.Context, dir, name string) ([]byte, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, dir+"/"+name)
	f.mu.Unlock()
	if data, ok := f.files[name]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s/%s", models.ErrNotFound, dir, name)
}

func (f *fakeArchive) FileURL(dir, name string) string {
	return "https://archive.test/" + dir + "/" + name
}

type fakeSink struct {
	mu       sync.Mutex
	rows     []runlog.RunRow
	versions []models.ProductVersion
}

func (s *fakeSink) InsertRunRows(_ context.Context, rows []runlog.RunRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
	return nil
}

func (s *fakeSink) UpsertProductVersion(_ context.Context, v models.ProductVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions = append(s.versions, v)
	return nil
}

type fakeBulletins struct {
	failClass models.BulletinClass
}

func (f *fakeBulletins) Latest(_ context.Context, class models.BulletinClass) (*models.Bulletin, error) {
	if class == f.failClass {
		return nil, fmt.Errorf("%w: class %s", models.ErrBulletinLookup, class)
	}
	return &models.Bulletin{
		Class:       class,
		VersionText: "2024-03-07",
		VersionDate: time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC),
		URL:         "https://iers.test/" + string(class) + ".txt",
		FileName:    "bulletin" + string(class) + ".txt",
	}, nil
}

func (f *fakeBulletins) Download(_ context.Context, b *models.Bulletin, destDir string) (string, error) {
	dest := filepath.Join(destDir, b.FileName)
	return dest, scraper.WriteFileAtomic(dest, []byte("bulletin "+string(b.Class)))
}

type fakeSolar struct {
	reports []models.SolarReport
	err     error
}

func (f *fakeSolar) Recent(context.Context, time.Time, int) ([]models.SolarReport, error) {
	return f.reports, f.err
}

// services/archive_service.go
package services

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gewnthar/gnss-archiver/models"
	"github.com/gewnthar/gnss-archiver/scraper"
)

// Covers reports whether the coverage range includes target, comparing calendar dates inclusively.
func Covers(meta models.ParsedMetadata, target time.Time) bool {
	day := dateOnly(target)
	return !dateOnly(meta.CoverageStart).After(day) && !dateOnly(meta.CoverageEnd).Before(day)
}

func dateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// CanonicalName is the archive name of an accepted product, before compression.
func CanonicalName(kind models.ProductKind, meta models.ParsedMetadata, e models.TargetEpoch) string {
	switch kind {
	case models.ProductIonosphere:
		return fmt.Sprintf("igsg%s0.%02di", e.DayOfYear, e.Year%100)
	default:
		return "igu" + meta.ProductID + ".sp3"
	}
}

// Committer validates a downloaded candidate and moves it to permanent or holding storage.
type Committer struct {
	WorkDir    string
	ArchiveDir string
	HoldingDir string
	Parser     scraper.MetadataParser
	Logger     *log.Logger
	Now        func() time.Time
}

// Process takes the raw compressed download at rawPath through decompress, parse, decide
// and commit. Whatever the outcome, the raw file and any intermediate end up in holding.
func (c *Committer) Process(candidate models.CandidateFile, e models.TargetEpoch, rawPath string) models.ValidationResult {
	raw, err := os.ReadFile(rawPath)
	if err != nil {
		return models.Rejected(candidate, models.ReasonIO, nil, fmt.Sprintf("io: raw file unreadable: %v", err))
	}

	content, err := Gunzip(raw)
	if err != nil {
		c.toHolding(rawPath)
		return models.Rejected(candidate, models.ReasonParseFailure, nil,
			fmt.Errorf("%w: %s: %v", models.ErrParseFailure, candidate.RemoteName, err).Error())
	}

	intermediate := filepath.Join(c.WorkDir, strings.TrimSuffix(candidate.LocalName, filepath.Ext(candidate.LocalName)))
	if err := scraper.WriteFileAtomic(intermediate, content); err != nil {
		c.toHolding(rawPath)
		return models.Rejected(candidate, models.ReasonIO, nil, fmt.Sprintf("io: failed to write intermediate: %v", err))
	}

	meta, err := c.Parser.Parse(candidate.Product, candidate.RemoteName, content)
	if err != nil {
		c.toHolding(rawPath, intermediate)
		return models.Rejected(candidate, models.ReasonParseFailure, nil, err.Error())
	}

	if !Covers(*meta, e.TargetDate) {
		c.toHolding(rawPath, intermediate)
		detail := fmt.Errorf("%w: coverage %s..%s does not include %s", models.ErrOutOfRange,
			meta.CoverageStart.Format("2006-01-02"), meta.CoverageEnd.Format("2006-01-02"), e.DateString()).Error()
		c.logf("candidate rejected", "file", candidate.RemoteName, "reason", models.ReasonOutOfRange, "detail", detail)
		return models.Rejected(candidate, models.ReasonOutOfRange, meta, detail)
	}

	canonical := CanonicalName(candidate.Product, *meta, e)
	canonicalPath := filepath.Join(c.WorkDir, canonical)
	if err := os.Rename(intermediate, canonicalPath); err != nil {
		c.toHolding(rawPath, intermediate)
		return models.Rejected(candidate, models.ReasonIO, meta, fmt.Sprintf("io: failed to rename to %s: %v", canonical, err))
	}

	storedPath := filepath.Join(c.ArchiveDir, candidate.Product.String(),
		meta.CoverageStart.UTC().Format("20060102"), canonical+".gz")
	if err := GzipFile(canonicalPath, storedPath); err != nil {
		c.toHolding(rawPath, canonicalPath)
		return models.Rejected(candidate, models.ReasonIO, meta, fmt.Sprintf("io: failed to archive: %v", err))
	}
	c.toHolding(rawPath, canonicalPath)

	c.logf("candidate committed", "file", candidate.RemoteName, "canonical", canonical, "stored", storedPath)
	return models.ValidationResult{
		Candidate:     candidate,
		Outcome:       models.OutcomeAccepted,
		Reason:        models.ReasonNone,
		Metadata:      meta,
		CanonicalName: canonical,
		StoredPath:    storedPath,
		CommittedAt:   c.now(),
	}
}

func (c *Committer) toHolding(paths ...string) {
	for _, p := range paths {
		if err := MoveFile(p, filepath.Join(c.HoldingDir, filepath.Base(p))); err != nil && c.Logger != nil {
			c.Logger.Warn("failed to move file to holding", "path", p, "err", err)
		}
	}
}

func (c *Committer) logf(msg string, keyvals ...interface{}) {
	if c.Logger != nil {
		c.Logger.Info(msg, keyvals...)
	}
}

func (c *Committer) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

// Gunzip decompresses a whole gzip stream.
func Gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	return out, nil
}

// Gzip compresses data into a single gzip member named name.
func Gzip(data []byte, name string) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	zw.Name = name
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	return buf.Bytes(), nil
}

// GzipFile writes a gzip copy of src at dst, creating dst's directory.
func GzipFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	compressed, err := Gzip(data, filepath.Base(src))
	if err != nil {
		return err
	}
	return scraper.WriteFileAtomic(dst, compressed)
}

// MoveFile renames src to dst, falling back to copy and remove across filesystems.
func MoveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(dst), err)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	if err := scraper.WriteFileAtomic(dst, data); err != nil {
		return err
	}
	return os.Remove(src)
}

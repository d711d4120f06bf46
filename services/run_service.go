// services/run_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gewnthar/gnss-archiver/epoch"
	"github.com/gewnthar/gnss-archiver/logging"
	"github.com/gewnthar/gnss-archiver/models"
	"github.com/gewnthar/gnss-archiver/runlog"
	"github.com/gewnthar/gnss-archiver/scraper"
)

// ArchiveFetcher retrieves product files from the remote archive.
type ArchiveFetcher interface {
	Probe(ctx context.Context) error
	Fetch(ctx context.Context, dir, name string) ([]byte, error)
	FileURL(dir, name string) string
}

// BulletinSource finds and downloads the newest bulletin of a series.
type BulletinSource interface {
	Latest(ctx context.Context, class models.BulletinClass) (*models.Bulletin, error)
	Download(ctx context.Context, b *models.Bulletin, destDir string) (string, error)
}

// SolarSource lists recent solar reports.
type SolarSource interface {
	Recent(ctx context.Context, now time.Time, window int) ([]models.SolarReport, error)
}

// RunSink persists run rows and committed versions. *database.DB satisfies it.
type RunSink interface {
	InsertRunRows(ctx context.Context, rows []runlog.RunRow) error
	UpsertProductVersion(ctx context.Context, v models.ProductVersion) error
}

// RunRequest selects what one run downloads.
type RunRequest struct {
	Days      []int // offsets before today, processed in order
	Products  []models.ProductKind
	Bulletins bool
	Solar     bool
}

// RunReport is what a run produced.
type RunReport struct {
	Record    *runlog.Record
	Bulletins []models.Bulletin
	Solar     []string // stored report paths
	// Secondary joins bulletin, solar, housekeeping and sink failures; none of them abort a run.
	Secondary error
}

// RunnerDeps are the collaborators of a Runner. Bulletins, Solar and Sink may be nil.
type RunnerDeps struct {
	Fetcher           ArchiveFetcher
	Committer         *Committer
	Housekeeper       *Housekeeper
	LogWriter         *runlog.CSVWriter
	Sink              RunSink
	Bulletins         BulletinSource
	Solar             SolarSource
	Specs             []epoch.ProductSpec
	IncludeRejections bool
	SolarWindow       int
	Logger            *log.Logger
	Now               func() time.Time
}

// Runner drives one download run: housekeeping, connectivity check, then every day, product
// and candidate in a fixed order, one at a time.
type Runner struct {
	deps  RunnerDeps
	specs map[models.ProductKind]epoch.ProductSpec
}

func NewRunner(deps RunnerDeps) *Runner {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	specs := make(map[models.ProductKind]epoch.ProductSpec, len(deps.Specs))
	for _, s := range deps.Specs {
		specs[s.Kind] = s
	}
	return &Runner{deps: deps, specs: specs}
}

// Run executes req. A connectivity failure aborts before any download and is returned;
// per-candidate failures are only recorded. On cancellation the rows gathered so far are
// still written and the partial report is returned with the error.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunReport, error) {
	logger := r.deps.Logger
	now := r.deps.Now().UTC()
	record := runlog.NewRecord(uuid.NewString(), now)
	report := &RunReport{Record: record}
	var secondary []error

	if hk := r.deps.Housekeeper; hk != nil {
		if err := hk.EnsureDirs(); err != nil {
			return nil, err
		}
		if err := hk.Prune(); err != nil {
			logger.Warn("housekeeping finished with errors", "err", err)
			secondary = append(secondary, err)
		}
	}

	if len(req.Products) > 0 {
		if err := r.deps.Fetcher.Probe(ctx); err != nil {
			logger.Error("archive unreachable, aborting run", "run_id", record.ID, "err", err)
			return nil, err
		}
	}

	days := req.Days
	if len(days) == 0 {
		days = []int{epoch.DefaultDaysAgo}
	}

	logger.Info("starting run", "run_id", record.ID, "days", days, "products", req.Products)
	var cancelErr error
days:
	for _, d := range days {
		target := epoch.Resolve(now, d)
		for _, kind := range req.Products {
			spec, ok := r.specs[kind]
			if !ok {
				logger.Warn("product not configured, skipping", "product", kind)
				continue
			}
			for _, c := range epoch.Candidates(target, spec) {
				if err := ctx.Err(); err != nil {
					cancelErr = fmt.Errorf("run %s cancelled: %w", record.ID, err)
					break days
				}
				r.processCandidate(ctx, record, target, c, &secondary)
			}
		}
	}

	if cancelErr == nil && req.Bulletins && r.deps.Bulletins != nil {
		bulletins, err := r.fetchBulletins(ctx, now)
		report.Bulletins = bulletins
		if err != nil {
			secondary = append(secondary, err)
		}
	}
	if cancelErr == nil && req.Solar && r.deps.Solar != nil {
		paths, err := r.fetchSolar(ctx, now)
		report.Solar = paths
		if err != nil {
			secondary = append(secondary, err)
		}
	}

	// Files already committed must reach the log even when the run was cancelled.
	persistCtx := context.WithoutCancel(ctx)
	rows := record.Rows()
	if r.deps.LogWriter != nil {
		if err := r.deps.LogWriter.Write(now, rows); err != nil {
			report.Secondary = errors.Join(secondary...)
			return report, errors.Join(cancelErr, fmt.Errorf("failed to write run log: %w", err))
		}
	}
	if r.deps.Sink != nil {
		if err := r.deps.Sink.InsertRunRows(persistCtx, rows); err != nil {
			logger.Error("failed to store run records", "run_id", record.ID, "err", err)
			secondary = append(secondary, err)
		}
	}

	report.Secondary = errors.Join(secondary...)
	if cancelErr != nil {
		logger.Warn("run cancelled", "run_id", record.ID, "rows", record.Len(), "accepted", record.Accepted())
		return report, cancelErr
	}
	logger.Info("run finished", "run_id", record.ID, "rows", record.Len(), "accepted", record.Accepted())
	return report, nil
}

func (r *Runner) processCandidate(ctx context.Context, record *runlog.Record, target models.TargetEpoch, c models.CandidateFile, secondary *[]error) {
	logger := r.deps.Logger

	var result models.ValidationResult
	data, err := r.deps.Fetcher.Fetch(ctx, c.RemoteDir, c.RemoteName)
	if err != nil {
		logger.Debug("candidate unavailable", "file", c.RemoteName, "err", err)
		result = models.Rejected(c, models.ReasonNotFound, nil, err.Error())
	} else {
		rawPath := filepath.Join(r.deps.Committer.WorkDir, c.LocalName)
		if err := scraper.WriteFileAtomic(rawPath, data); err != nil {
			result = models.Rejected(c, models.ReasonIO, nil, "io: "+err.Error())
		} else {
			result = r.deps.Committer.Process(c, target, rawPath)
		}
	}
	if result.Reason == models.ReasonIO {
		logger.Error("local filesystem failure", "file", c.RemoteName, "detail", result.Detail)
	}

	if result.Accepted() || r.deps.IncludeRejections {
		record.Append(runlog.RowFromResult(record.ID, target, result))
	}
	if !result.Accepted() || r.deps.Sink == nil {
		return
	}

	v := models.ProductVersion{
		Product:         c.Product.String(),
		SourceURL:       r.deps.Fetcher.FileURL(c.RemoteDir, c.RemoteName),
		CanonicalName:   result.CanonicalName,
		StoredPath:      result.StoredPath,
		LastCommittedAt: result.CommittedAt,
	}
	if result.Metadata != nil {
		start, end := result.Metadata.CoverageStart, result.Metadata.CoverageEnd
		v.CoverageStart, v.CoverageEnd = &start, &end
	}
	if err := r.deps.Sink.UpsertProductVersion(context.WithoutCancel(ctx), v); err != nil {
		logger.Error("failed to record product version", "product", v.Product, "err", err)
		*secondary = append(*secondary, err)
	}
}

func (r *Runner) fetchBulletins(ctx context.Context, now time.Time) ([]models.Bulletin, error) {
	logger := r.deps.Logger
	var (
		got  []models.Bulletin
		errs []error
	)
	for _, class := range models.AllBulletinClasses {
		b, err := r.deps.Bulletins.Latest(ctx, class)
		if err != nil {
			logger.Error("bulletin lookup failed", "class", class, "err", err)
			errs = append(errs, err)
			continue
		}
		dest := filepath.Join(r.deps.Committer.ArchiveDir, "bulletins", string(class))
		stored, err := r.deps.Bulletins.Download(ctx, b, dest)
		if err != nil {
			logger.Error("bulletin download failed", "class", class, "err", err)
			errs = append(errs, err)
			continue
		}
		got = append(got, *b)

		if r.deps.Sink != nil {
			v := models.ProductVersion{
				Product:         "bulletin-" + string(class),
				SourceURL:       b.URL,
				CanonicalName:   filepath.Base(stored),
				StoredPath:      stored,
				LastCommittedAt: now,
			}
			if !b.VersionDate.IsZero() {
				d := b.VersionDate
				v.CoverageStart = &d
			}
			if err := r.deps.Sink.UpsertProductVersion(ctx, v); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return got, errors.Join(errs...)
}

func (r *Runner) fetchSolar(ctx context.Context, now time.Time) ([]string, error) {
	reports, err := r.deps.Solar.Recent(ctx, now, r.deps.SolarWindow)
	var paths []string
	for _, rep := range reports {
		dest := filepath.Join(r.deps.Committer.ArchiveDir, "solar", rep.Name)
		if werr := scraper.WriteFileAtomic(dest, rep.Content); werr != nil {
			err = errors.Join(err, werr)
			continue
		}
		paths = append(paths, dest)
	}
	if err != nil {
		r.deps.Logger.Error("solar report fetch failed", "err", err)
	}
	return paths, err
}

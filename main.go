// main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gewnthar/gnss-archiver/config"
	"github.com/gewnthar/gnss-archiver/database"
	"github.com/gewnthar/gnss-archiver/epoch"
	"github.com/gewnthar/gnss-archiver/handlers"
	"github.com/gewnthar/gnss-archiver/logging"
	"github.com/gewnthar/gnss-archiver/models"
	"github.com/gewnthar/gnss-archiver/runlog"
	"github.com/gewnthar/gnss-archiver/scraper"
	"github.com/gewnthar/gnss-archiver/services"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (defaults to config/config.yaml when present)")
	days := flag.Int("days", epoch.DefaultDaysAgo, "Target date as days before today")
	dayRange := flag.String("range", "", "Inclusive range of day offsets FROM:TO, e.g. 1:7")
	ionex := flag.Bool("ionex", false, "Also download the IONEX ionosphere map")
	bulletins := flag.Bool("bulletins", false, "Also download the latest IERS bulletins A-D")
	solar := flag.Bool("solar", false, "Also download recent NOAA solar (RSGA) reports")
	serve := flag.Bool("serve", false, "Run the HTTP admin server instead of a single run")
	flag.Parse()

	path := *configPath
	if path == "" {
		if _, err := os.Stat("config/config.yaml"); err == nil {
			path = "config/config.yaml"
		}
	}

	cfg, err := config.LoadConfig(path, ".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *database.DB
	if cfg.Database.Driver != "" {
		db, err = database.Open(ctx, cfg.Database, logger.WithPrefix("database"))
		if err != nil {
			logger.Fatal("Error initializing database", "err", err)
		}
		defer db.Close()
	}

	runner, err := buildRunner(cfg, db, logger)
	if err != nil {
		logger.Fatal("Error building runner", "err", err)
	}

	if *serve {
		if err := runServer(ctx, cfg, runner, db, logger); err != nil {
			logger.Fatal("Server stopped", "err", err)
		}
		return
	}

	req := services.RunRequest{
		Days:      []int{*days},
		Products:  []models.ProductKind{},
		Bulletins: *bulletins || cfg.Bulletins.Enabled,
		Solar:     *solar || cfg.Solar.Enabled,
	}
	if *dayRange != "" {
		req.Days, err = parseRange(*dayRange)
		if err != nil {
			logger.Fatal("Invalid -range", "err", err)
		}
	}
	if cfg.Products.Orbit.Enabled {
		req.Products = append(req.Products, models.ProductOrbit)
	}
	if *ionex || cfg.Products.Ionex.Enabled {
		req.Products = append(req.Products, models.ProductIonosphere)
	}

	report, err := runner.Run(ctx, req)
	if err != nil {
		logger.Error("Run failed", "err", err)
		os.Exit(1)
	}
	if report.Secondary != nil {
		logger.Warn("Run finished with secondary errors", "err", report.Secondary)
	}
	logger.Info("Run complete", "run_id", report.Record.ID, "accepted", report.Record.Accepted(), "rows", report.Record.Len())
}

func buildRunner(cfg *config.Config, db *database.DB, logger *log.Logger) (*services.Runner, error) {
	cddis, err := scraper.NewCDDISClient(cfg.Archive.CDDISBaseURL, cfg.Credentials.Username, cfg.Credentials.Password,
		cfg.Archive.Timeout, logger.WithPrefix("cddis"))
	if err != nil {
		return nil, err
	}

	layout := scraper.IonexLayout{
		FirstMapLine:   cfg.IonexLayout.FirstMapLine,
		LastMapLine:    cfg.IonexLayout.LastMapLine,
		MinHeaderLines: cfg.IonexLayout.MinHeaderLines,
	}

	deps := services.RunnerDeps{
		Fetcher: cddis,
		Committer: &services.Committer{
			WorkDir:    cfg.Storage.WorkDir,
			ArchiveDir: cfg.Storage.ArchiveDir,
			HoldingDir: cfg.Storage.HoldingDir,
			Parser:     scraper.NewMetadataParser(layout),
			Logger:     logger.WithPrefix("commit"),
		},
		Housekeeper: &services.Housekeeper{
			Dirs: []string{cfg.Storage.WorkDir, cfg.Storage.ArchiveDir, cfg.Storage.HoldingDir, cfg.Storage.LogDir},
			Rules: []services.PruneRule{
				{Dir: cfg.Storage.HoldingDir, MaxAge: cfg.Storage.HoldingMaxAge},
				{Dir: cfg.Storage.ArchiveDir, MaxAge: cfg.Storage.ArchiveMaxAge},
			},
			Logger: logger.WithPrefix("housekeeping"),
		},
		LogWriter: runlog.NewCSVWriter(cfg.Storage.LogDir),
		Specs: []epoch.ProductSpec{
			productSpec(models.ProductOrbit, cfg.Products.Orbit),
			productSpec(models.ProductIonosphere, cfg.Products.Ionex),
		},
		Bulletins: scraper.NewBulletinScraper(&http.Client{Timeout: cfg.Archive.Timeout}, cfg.Bulletins.Pages,
			scraper.BulletinSelectors{
				LatestDate:   cfg.Bulletins.Selectors.LatestDate,
				DownloadLink: cfg.Bulletins.Selectors.DownloadLink,
			}, logger.WithPrefix("iers")),
		Solar:             scraper.NewSolarClient(cfg.Solar.Host, cfg.Solar.Path, cfg.Solar.Suffix, cfg.Archive.Timeout, logger.WithPrefix("noaa")),
		IncludeRejections: cfg.RunLog.IncludeRejections,
		SolarWindow:       cfg.Solar.WindowDays,
		Logger:            logger.WithPrefix("run"),
	}
	if db != nil {
		deps.Sink = db
	}
	return services.NewRunner(deps), nil
}

func productSpec(kind models.ProductKind, pc config.ProductConfig) epoch.ProductSpec {
	spec := epoch.OrbitSpec()
	if kind == models.ProductIonosphere {
		spec = epoch.IonosphereSpec()
	}
	if pc.Prefix != "" {
		spec.Prefix = pc.Prefix
	}
	if pc.Suffix != "" {
		spec.Suffix = pc.Suffix
	}
	if len(pc.Hours) > 0 {
		spec.Hours = pc.Hours
	}
	return spec
}

func runServer(ctx context.Context, cfg *config.Config, runner *services.Runner, db *database.DB, logger *log.Logger) error {
	var pinger handlers.Pinger
	var versions handlers.VersionLister
	var lister handlers.RunLister = handlers.LogDirLister{Dir: cfg.Storage.LogDir}
	if db != nil {
		pinger = db
		lister = db
		versions = db
	}

	apiLogger := logger.WithPrefix("api")
	router := handlers.NewRouter(
		handlers.NewAdminHandler(runner, pinger, apiLogger),
		handlers.NewRunHandler(lister, apiLogger),
		handlers.NewVersionHandler(versions, apiLogger),
	)
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Server starting", "addr", "http://localhost"+srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// parseRange reads "FROM:TO" day offsets.
func parseRange(s string) ([]int, error) {
	from, to, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("expected FROM:TO, got %q", s)
	}
	a, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil {
		return nil, fmt.Errorf("invalid FROM %q: %w", from, err)
	}
	b, err := strconv.Atoi(strings.TrimSpace(to))
	if err != nil {
		return nil, fmt.Errorf("invalid TO %q: %w", to, err)
	}
	return epoch.DayRange(a, b), nil
}

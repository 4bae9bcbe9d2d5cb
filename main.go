package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/kawafuchieirin/real-estate-scraping/config"
	"github.com/kawafuchieirin/real-estate-scraping/geocode"
	"github.com/kawafuchieirin/real-estate-scraping/models"
	"github.com/kawafuchieirin/real-estate-scraping/scraper"
	"github.com/kawafuchieirin/real-estate-scraping/scraper/demo"
	"github.com/kawafuchieirin/real-estate-scraping/scraper/homes"
	"github.com/kawafuchieirin/real-estate-scraping/scraper/suumo"
	"github.com/kawafuchieirin/real-estate-scraping/services"
	"github.com/kawafuchieirin/real-estate-scraping/storage"
	"github.com/kawafuchieirin/real-estate-scraping/utils"
)

func main() {
	var (
		configPath  = flag.String("config", "", "directory containing config.yaml")
		sitesFlag   = flag.String("sites", "", "comma-separated site keys (suumo, homes, demo)")
		areasFlag   = flag.String("areas", "", "comma-separated ward codes or names")
		typesFlag   = flag.String("property-types", "", "comma-separated building categories (apartment, apart, house)")
		maxPages    = flag.Int("max-pages", 0, "pages to walk per ward and category")
		format      = flag.String("format", "", "export format: csv, json or parquet")
		geocodeFlag = flag.Bool("geocode", false, "resolve coordinates for listings without them")
		uploadFlag  = flag.Bool("upload", false, "upload the exported batch to S3")
		demoFlag    = flag.Bool("demo", false, "generate a deterministic sample batch instead of scraping")
	)
	flag.Parse()

	// .env is optional; deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "sites":
			cfg.Scraper.Sites = splitList(*sitesFlag)
		case "max-pages":
			cfg.Scraper.MaxPages = *maxPages
		case "format":
			cfg.Export.Format = *format
		case "geocode":
			cfg.Geocode.Enabled = *geocodeFlag
		case "upload":
			cfg.Export.Upload = *uploadFlag
		case "demo":
			cfg.Scraper.DemoMode = *demoFlag
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.LogDir, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, splitList(*areasFlag), splitList(*typesFlag)); err != nil {
		logger.Fatal().Err(err).Msg("run failed")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger, areaKeys, typeLabels []string) error {
	areas := config.ResolveAreas(areaKeys)
	if len(areas) == 0 {
		return fmt.Errorf("no known wards among %v", areaKeys)
	}
	propertyTypes, err := parsePropertyTypes(typeLabels)
	if err != nil {
		return err
	}

	logger.Info().
		Strs("sites", cfg.Scraper.Sites).
		Int("areas", len(areas)).
		Str("format", cfg.Export.Format).
		Bool("demo", cfg.Scraper.DemoMode).
		Msg("starting run")

	var raw []*models.RawListing
	for _, src := range buildSources(cfg, logger) {
		listings, err := src.Scrape(ctx, areas, propertyTypes)
		raw = append(raw, listings...)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			logger.Error().Err(err).Str("site", src.Name()).Msg("scrape incomplete")
		}
	}
	if len(raw) == 0 {
		return errors.New("no listings scraped")
	}

	if path, err := saveRawSnapshot(cfg.RawDataDir, raw); err != nil {
		logger.Warn().Err(err).Msg("raw snapshot not saved")
	} else {
		logger.Info().Str("path", path).Int("listings", len(raw)).Msg("raw snapshot saved")
	}

	result, err := buildExporter(ctx, cfg, logger).Export(ctx, raw)
	if err != nil {
		return err
	}
	logger.Info().
		Str("batch_id", result.BatchID).
		Int("records", result.RecordsProcessed).
		Float64("quality_score", result.QualityScore).
		Str("file", result.LocalPath).
		Msg("batch exported")
	if result.RemotePath != "" {
		logger.Info().Str("remote", result.RemotePath).Msg("batch uploaded")
	}

	if cfg.Postgres.Enabled {
		if err := sinkToPostgres(cfg.Postgres, logger, result.Properties); err != nil {
			logger.Error().Err(err).Msg("postgres sink failed, file export is authoritative")
		}
	}

	insights := services.NewInsightService(logger)
	summary := insights.Generate(result.Properties)
	insights.Print(summary)

	summaryPath := strings.TrimSuffix(result.LocalPath, filepath.Ext(result.LocalPath)) + "_summary.json"
	if err := insights.SaveJSON(summary, summaryPath); err != nil {
		logger.Warn().Err(err).Msg("summary not saved")
	}

	return nil
}

// buildSources maps configured site keys to scrapers. Demo mode replaces
// the whole list so no browser is ever launched.
func buildSources(cfg *config.Config, logger zerolog.Logger) []scraper.Source {
	if cfg.Scraper.DemoMode {
		return []scraper.Source{demo.New(cfg.Scraper, logger)}
	}

	robots := scraper.NewRobotsGate(cfg.Scraper.UserAgent, cfg.Scraper.RequestTimeout, logger)
	var sources []scraper.Source
	for _, key := range cfg.Scraper.Sites {
		switch key {
		case "suumo":
			sources = append(sources, suumo.New(scraper.NewBase(cfg.Scraper, logger, robots)))
		case "homes":
			sources = append(sources, homes.New(scraper.NewBase(cfg.Scraper, logger, robots)))
		case "demo":
			sources = append(sources, demo.New(cfg.Scraper, logger))
		}
	}
	return sources
}

func buildExporter(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *services.DataExporter {
	var geocoder services.BatchGeocoder
	if cfg.Geocode.Enabled {
		if g := geocode.Build(cfg.Geocode, logger); g != nil {
			geocoder = g
		}
	}

	var uploader storage.Uploader
	if cfg.Export.Upload {
		up, err := storage.NewS3Uploader(ctx, cfg.Export, logger)
		if err != nil {
			logger.Error().Err(err).Msg("s3 uploader unavailable, keeping batch local")
		} else {
			uploader = up
		}
	}

	return services.NewDataExporter(
		cfg.Export,
		services.NewNormalizer(logger),
		geocoder,
		services.NewQualityChecker(cfg.Quality, logger),
		uploader,
		logger,
	)
}

func saveRawSnapshot(dir string, raw []*models.RawListing) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("listings_raw_%s.csv", time.Now().Format("20060102_150405")))
	w, err := storage.NewRawCSVWriter(path)
	if err != nil {
		return "", err
	}
	if err := w.WriteRaw(raw); err != nil {
		_ = w.Close()
		return "", err
	}
	return path, w.Close()
}

func sinkToPostgres(cfg config.PostgresConfig, logger zerolog.Logger, props []*models.Property) error {
	pg, err := storage.NewPostgresWriter(cfg.DSN())
	if err != nil {
		return err
	}
	defer pg.Close()

	if err := pg.Write(props); err != nil {
		return err
	}
	total, err := pg.Count()
	if err != nil {
		return err
	}

	logger.Info().Int("batch", len(props)).Int("total", total).Msg("postgres upsert complete")
	return nil
}

func parsePropertyTypes(labels []string) ([]models.PropertyType, error) {
	var out []models.PropertyType
	for _, label := range labels {
		pt, ok := models.PropertyTypeFromLabel(label)
		if !ok {
			return nil, fmt.Errorf("unknown property type %q", label)
		}
		out = append(out, pt)
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

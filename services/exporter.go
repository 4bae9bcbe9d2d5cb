package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kawafuchieirin/real-estate-scraping/config"
	"github.com/kawafuchieirin/real-estate-scraping/geocode"
	"github.com/kawafuchieirin/real-estate-scraping/models"
	"github.com/kawafuchieirin/real-estate-scraping/storage"
)

// ErrNoRecords means nothing in the batch survived normalization; there is
// no file to write and the run should stop.
var ErrNoRecords = errors.New("services: no records parsed from batch")

// BatchGeocoder resolves addresses in input order. nil disables geocoding.
type BatchGeocoder interface {
	BatchGeocode(ctx context.Context, addresses []string) ([]*geocode.Coordinate, error)
}

// DataExporter runs the batch pipeline: normalize, geocode, quality check,
// fix, serialize, and optionally upload. A failed upload never fails the
// batch; the local file is the source of truth and the failure is carried
// in the result.
type DataExporter struct {
	cfg        config.ExportConfig
	normalizer *Normalizer
	geocoder   BatchGeocoder
	checker    *QualityChecker
	uploader   storage.Uploader
	logger     zerolog.Logger
	now        func() time.Time
}

func NewDataExporter(
	cfg config.ExportConfig,
	normalizer *Normalizer,
	geocoder BatchGeocoder,
	checker *QualityChecker,
	uploader storage.Uploader,
	logger zerolog.Logger,
) *DataExporter {
	return &DataExporter{
		cfg:        cfg,
		normalizer: normalizer,
		geocoder:   geocoder,
		checker:    checker,
		uploader:   uploader,
		logger:     logger.With().Str("component", "exporter").Logger(),
		now:        time.Now,
	}
}

// Export processes one scraped batch end to end. The quality report is
// computed before repairs so it reflects what the scrape actually
// delivered; the exported file contains the repaired batch.
func (e *DataExporter) Export(ctx context.Context, raw []*models.RawListing) (*models.ExportResult, error) {
	props := e.normalizer.Normalize(raw)
	if len(props) == 0 {
		return nil, ErrNoRecords
	}

	// A canceled run stops geocoding but the batch still exports with
	// whatever coordinates resolved in time.
	geocoded := 0
	if e.geocoder != nil {
		var err error
		if geocoded, err = e.applyGeocodes(ctx, props); err != nil {
			e.logger.Warn().Err(err).Int("resolved", geocoded).
				Msg("geocoding interrupted, exporting partial batch")
		}
	}

	report := e.checker.Check(props)
	fixed := e.checker.FixCommonIssues(props)

	now := e.now()
	fileName := fmt.Sprintf("properties_%s_%s.%s",
		e.cfg.Region, now.Format("20060102_150405"), e.cfg.Format)
	localPath := filepath.Join(e.cfg.OutputDir, fileName)

	writer, err := storage.NewPropertyWriter(e.cfg.Format, localPath)
	if err != nil {
		return nil, err
	}
	if err := writer.Write(fixed); err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("services: write batch: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("services: close batch file: %w", err)
	}

	result := &models.ExportResult{
		BatchID:          uuid.NewString(),
		Format:           e.cfg.Format,
		RecordsIn:        len(raw),
		RecordsProcessed: len(fixed),
		Geocoded:         geocoded,
		QualityScore:     report.QualityScore,
		Report:           report,
		LocalPath:        localPath,
		Properties:       fixed,
	}

	e.saveReport(report, localPath)

	if e.uploader != nil && e.cfg.Upload {
		key := remoteKey(e.cfg.S3Prefix, e.cfg.Region, now, e.cfg.Format)
		if err := e.uploader.Upload(ctx, localPath, key); err != nil {
			result.UploadError = err.Error()
			e.logger.Error().Err(err).Str("key", key).Msg("upload failed, local file kept")
		} else {
			result.RemotePath = fmt.Sprintf("s3://%s/%s", e.cfg.S3Bucket, key)
		}
	}

	e.logger.Info().Str("batch_id", result.BatchID).
		Int("records_in", result.RecordsIn).Int("records_processed", result.RecordsProcessed).
		Int("geocoded", geocoded).Float64("quality_score", result.QualityScore).
		Str("path", localPath).Msg("batch exported")
	return result, nil
}

// applyGeocodes resolves coordinates for records that have an address but
// no coordinates yet. On cancellation it applies whatever resolved before
// the cut and reports the cause.
func (e *DataExporter) applyGeocodes(ctx context.Context, props []*models.Property) (int, error) {
	var idx []int
	var addrs []string
	for i, p := range props {
		if p.HasCoordinates() || p.Address == "" {
			continue
		}
		idx = append(idx, i)
		addrs = append(addrs, p.Address)
	}
	if len(addrs) == 0 {
		return 0, nil
	}

	coords, err := e.geocoder.BatchGeocode(ctx, addrs)

	geocoded := 0
	for j, c := range coords {
		if c == nil {
			continue
		}
		p := props[idx[j]]
		lat, lon := c.Latitude, c.Longitude
		p.Latitude = &lat
		p.Longitude = &lon
		geocoded++
	}
	if err != nil {
		return geocoded, fmt.Errorf("services: geocoding aborted: %w", err)
	}

	e.logger.Info().Int("resolved", geocoded).Int("requested", len(addrs)).
		Msg("geocoding complete")
	return geocoded, nil
}

// saveReport writes the quality report next to the batch file. Failure is
// logged, not fatal; the batch file is the deliverable.
func (e *DataExporter) saveReport(report *models.QualityReport, batchPath string) {
	path := strings.TrimSuffix(batchPath, filepath.Ext(batchPath)) + "_report.json"
	data, err := json.MarshalIndent(report, "", "  ")
	if err == nil {
		err = os.WriteFile(path, data, 0644)
	}
	if err != nil {
		e.logger.Warn().Err(err).Str("path", path).Msg("could not save quality report")
	}
}

// remoteKey builds the date-partitioned object key, e.g.
// raw/tokyo/2026/08/25_tokyo.csv.
func remoteKey(prefix, region string, ts time.Time, ext string) string {
	return fmt.Sprintf("%s/%s/%04d/%02d/%02d_%s.%s",
		prefix, region, ts.Year(), int(ts.Month()), ts.Day(), region, ext)
}

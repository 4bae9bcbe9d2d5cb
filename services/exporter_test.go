package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kawafuchieirin/real-estate-scraping/config"
	"github.com/kawafuchieirin/real-estate-scraping/geocode"
	"github.com/kawafuchieirin/real-estate-scraping/models"
	"github.com/kawafuchieirin/real-estate-scraping/storage"
)

type mockBatchGeocoder struct {
	mock.Mock
}

func (m *mockBatchGeocoder) BatchGeocode(ctx context.Context, addresses []string) ([]*geocode.Coordinate, error) {
	args := m.Called(ctx, addresses)
	if out, ok := args.Get(0).([]*geocode.Coordinate); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, localPath, remoteKey string) error {
	args := m.Called(ctx, localPath, remoteKey)
	return args.Error(0)
}

func newTestExporter(t *testing.T, format string, geocoder BatchGeocoder, uploader storage.Uploader, upload bool) *DataExporter {
	t.Helper()
	cfg := config.ExportConfig{
		Format:    format,
		OutputDir: t.TempDir(),
		Region:    "tokyo",
		Upload:    upload,
		S3Bucket:  "test-bucket",
		S3Prefix:  "raw",
	}
	e := NewDataExporter(cfg,
		NewNormalizer(zerolog.Nop()),
		geocoder,
		NewQualityChecker(testQualityConfig(), zerolog.Nop()),
		uploader,
		zerolog.Nop())
	e.now = func() time.Time {
		return time.Date(2026, time.August, 25, 14, 30, 5, 0, time.UTC)
	}
	return e
}

func rawListing(id, addr string) *models.RawListing {
	return &models.RawListing{
		PropertyID:   id,
		SiteName:     "suumo",
		URL:          "https://suumo.jp/chintai/" + id + "/",
		Title:        "テスト物件 " + id,
		PropertyType: "マンション",
		Address:      addr,
		Rent:         "8.5万円",
		FloorPlan:    "1LDK",
		Area:         "30㎡",
		ScrapedAt:    time.Date(2026, time.August, 25, 9, 0, 0, 0, time.UTC),
	}
}

func TestExportEndToEnd(t *testing.T) {
	e := newTestExporter(t, "csv", nil, nil, false)

	malformed := rawListing("suumo_2", "東京都新宿区西新宿2-8-1")
	malformed.Rent = "要相談"
	noURL := rawListing("suumo_3", "東京都港区芝公園4-2-8")
	noURL.URL = ""

	result, err := e.Export(context.Background(), []*models.RawListing{
		rawListing("suumo_1", "東京都渋谷区恵比寿1-2-3"),
		malformed,
		noURL,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.RecordsIn)
	assert.Equal(t, 2, result.RecordsProcessed)
	assert.Len(t, result.Properties, 2)
	assert.NotEmpty(t, result.BatchID)
	assert.Empty(t, result.RemotePath)

	// One of two surviving records has no parseable rent: 100 − 0.40×50.
	assert.Equal(t, 80.0, result.QualityScore)
	require.Contains(t, result.Report.MissingValues, "rent")
	assert.Equal(t, 1, result.Report.MissingValues["rent"].Count)

	data, err := os.ReadFile(result.LocalPath)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF}))).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3) // header + 2 records

	reportPath := strings.TrimSuffix(result.LocalPath, filepath.Ext(result.LocalPath)) + "_report.json"
	reportData, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var report models.QualityReport
	require.NoError(t, json.Unmarshal(reportData, &report))
	assert.Equal(t, 2, report.TotalRecords)
}

func TestExportFileNameCarriesRegionAndTimestamp(t *testing.T) {
	e := newTestExporter(t, "csv", nil, nil, false)

	result, err := e.Export(context.Background(), []*models.RawListing{
		rawListing("suumo_1", "東京都渋谷区恵比寿1-2-3"),
	})
	require.NoError(t, err)
	assert.Equal(t, "properties_tokyo_20260825_143005.csv", filepath.Base(result.LocalPath))
}

func TestExportNothingParsesReturnsError(t *testing.T) {
	e := newTestExporter(t, "csv", nil, nil, false)

	missing := rawListing("", "")
	_, err := e.Export(context.Background(), []*models.RawListing{missing})
	require.ErrorIs(t, err, ErrNoRecords)
}

func TestExportGeocodesRecordsWithoutCoordinates(t *testing.T) {
	geocoder := &mockBatchGeocoder{}
	geocoder.On("BatchGeocode", mock.Anything,
		[]string{"東京都渋谷区恵比寿1-2-3", "東京都新宿区西新宿2-8-1"}).
		Return([]*geocode.Coordinate{
			{Latitude: 35.6467, Longitude: 139.7101},
			nil,
		}, nil).Once()

	e := newTestExporter(t, "json", geocoder, nil, false)

	noAddr := rawListing("suumo_3", "")
	result, err := e.Export(context.Background(), []*models.RawListing{
		rawListing("suumo_1", "東京都渋谷区恵比寿1-2-3"),
		rawListing("suumo_2", "東京都新宿区西新宿2-8-1"),
		noAddr,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Geocoded)
	geocoder.AssertExpectations(t)

	data, err := os.ReadFile(result.LocalPath)
	require.NoError(t, err)
	var got []*models.Property
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 3)
	require.NotNil(t, got[0].Latitude)
	assert.Equal(t, 35.6467, *got[0].Latitude)
	assert.Nil(t, got[1].Latitude)
}

func TestExportProceedsWhenGeocodingCanceled(t *testing.T) {
	// One address resolved before the cut, one did not.
	geocoder := &mockBatchGeocoder{}
	geocoder.On("BatchGeocode", mock.Anything, mock.Anything).
		Return([]*geocode.Coordinate{
			{Latitude: 35.6467, Longitude: 139.7101},
			nil,
		}, context.Canceled)

	e := newTestExporter(t, "json", geocoder, nil, false)

	result, err := e.Export(context.Background(), []*models.RawListing{
		rawListing("suumo_1", "東京都渋谷区恵比寿1-2-3"),
		rawListing("suumo_2", "東京都新宿区西新宿2-8-1"),
	})
	require.NoError(t, err, "a canceled geocode run must not abort the export")

	assert.Equal(t, 1, result.Geocoded)
	assert.Equal(t, 2, result.RecordsProcessed)

	data, err := os.ReadFile(result.LocalPath)
	require.NoError(t, err)
	var got []*models.Property
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 2)
	require.NotNil(t, got[0].Latitude)
	assert.Nil(t, got[1].Latitude)
}

func TestExportUploadFailureIsNotFatal(t *testing.T) {
	uploader := &mockUploader{}
	uploader.On("Upload", mock.Anything, mock.Anything, mock.Anything).
		Return(assert.AnError)

	e := newTestExporter(t, "csv", nil, uploader, true)

	result, err := e.Export(context.Background(), []*models.RawListing{
		rawListing("suumo_1", "東京都渋谷区恵比寿1-2-3"),
	})
	require.NoError(t, err)
	assert.Contains(t, result.UploadError, assert.AnError.Error())
	assert.Empty(t, result.RemotePath)

	_, statErr := os.Stat(result.LocalPath)
	assert.NoError(t, statErr, "local file must survive a failed upload")
}

func TestExportUploadBuildsDatePartitionedKey(t *testing.T) {
	uploader := &mockUploader{}
	uploader.On("Upload", mock.Anything, mock.Anything, "raw/tokyo/2026/08/25_tokyo.csv").
		Return(nil).Once()

	e := newTestExporter(t, "csv", nil, uploader, true)

	result, err := e.Export(context.Background(), []*models.RawListing{
		rawListing("suumo_1", "東京都渋谷区恵比寿1-2-3"),
	})
	require.NoError(t, err)
	assert.Equal(t, "s3://test-bucket/raw/tokyo/2026/08/25_tokyo.csv", result.RemotePath)
	assert.Empty(t, result.UploadError)
	uploader.AssertExpectations(t)
}

func TestExportCollapsesDuplicatesBeforeWriting(t *testing.T) {
	e := newTestExporter(t, "csv", nil, nil, false)

	result, err := e.Export(context.Background(), []*models.RawListing{
		rawListing("suumo_1", "東京都渋谷区恵比寿1-2-3"),
		rawListing("suumo_1", "東京都渋谷区恵比寿1-2-3"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.RecordsIn)
	assert.Equal(t, 1, result.RecordsProcessed)
	// The report is computed before the fix: 100 − 0.25×50.
	assert.Equal(t, 87.5, result.QualityScore)
	assert.Equal(t, 2, result.Report.Duplicates["property_id"]["suumo_1"])
}

package storage

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kawafuchieirin/real-estate-scraping/models"
)

// Shared by the test files in this package.
func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestCSVWriterWritesBOMHeaderAndNilCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "batch.csv")

	w, err := NewCSVWriter(path)
	require.NoError(t, err)

	scraped := time.Date(2026, time.August, 25, 10, 0, 0, 0, time.UTC)
	props := []*models.Property{
		{
			PropertyID: "suumo_1",
			SiteName:   "suumo",
			URL:        "https://suumo.jp/chintai/jnc_1/",
			Title:      "恵比寿レジデンス",
			Rent:       intPtr(85000),
			Area:       floatPtr(25.5),
			Latitude:   floatPtr(35.6581),
			Longitude:  floatPtr(139.7017),
			TrainLines: []string{"JR山手線", "東京メトロ日比谷線"},
			ScrapedAt:  scraped,
			UpdatedAt:  scraped,
		},
		{PropertyID: "homes_2", SiteName: "homes", URL: "https://homes.co.jp/2"},
	}
	require.NoError(t, w.Write(props))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, utf8BOM), "file must start with a UTF-8 BOM")

	rows, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, propertyHeader, rows[0])

	rent := slices.Index(propertyHeader, "rent")
	lat := slices.Index(propertyHeader, "latitude")
	lines := slices.Index(propertyHeader, "train_lines")

	assert.Equal(t, "85000", rows[1][rent])
	assert.Equal(t, "35.658100", rows[1][lat])
	assert.Equal(t, "JR山手線、東京メトロ日比谷線", rows[1][lines])

	// Unknown numerics are empty cells, not zeros.
	assert.Equal(t, "", rows[2][rent])
	assert.Equal(t, "", rows[2][lat])
}

func TestRawCSVWriterKeepsSourceText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.csv")

	w, err := NewRawCSVWriter(path)
	require.NoError(t, err)

	listings := []*models.RawListing{
		{
			PropertyID: "suumo_1",
			SiteName:   "suumo",
			URL:        "https://suumo.jp/chintai/jnc_1/",
			Rent:       "８．５万円",
			Area:       "25.5㎡",
			ScrapedAt:  time.Date(2026, time.August, 25, 10, 0, 0, 0, time.UTC),
		},
	}
	require.NoError(t, w.WriteRaw(listings))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	rent := slices.Index(rawHeader, "rent")
	assert.Equal(t, "８．５万円", rows[1][rent], "raw text must not be normalized")
}
